package domain

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestNewUser(t *testing.T) {
	user, err := NewUser("  Test@Example.com ", "correct-horse-battery")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if user.ID == uuid.Nil {
		t.Error("Expected non-nil UUID, got nil UUID")
	}
	if user.Email != "test@example.com" {
		t.Errorf("Expected normalized email, got %s", user.Email)
	}
	if len(user.Permissions) != 0 {
		t.Errorf("Expected no permissions, got %v", user.Permissions)
	}
	if user.CreatedAt.IsZero() || user.UpdatedAt.IsZero() {
		t.Error("Expected timestamps to be set")
	}
}

func TestNewUserErrors(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		want     error
	}{
		{"empty email", "", "correct-horse-battery", ErrEmptyEmail},
		{"no at sign", "invalidemail", "correct-horse-battery", ErrInvalidEmail},
		{"no domain dot", "user@localhost", "correct-horse-battery", ErrInvalidEmail},
		{"empty password", "user@example.com", "", ErrEmptyPassword},
		{"short password", "user@example.com", "short", ErrPasswordTooShort},
		{"long password", "user@example.com", strings.Repeat("x", 73), ErrPasswordTooLong},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewUser(tc.email, tc.password)
			if !errors.Is(err, tc.want) {
				t.Errorf("Expected error %v, got %v", tc.want, err)
			}
		})
	}
}

func TestUserValidateWithHash(t *testing.T) {
	user := User{
		ID:             uuid.New(),
		Email:          "user@example.com",
		HashedPassword: "$2a$10$abcdefghijklmnopqrstuv",
		Permissions:    Permissions{PermissionAssignTask},
	}
	if err := user.Validate(); err != nil {
		t.Errorf("Expected valid user, got %v", err)
	}

	user.Permissions = append(user.Permissions, Permission("fly"))
	if err := user.Validate(); !errors.Is(err, ErrInvalidPermission) {
		t.Errorf("Expected ErrInvalidPermission, got %v", err)
	}
}

func TestUserCan(t *testing.T) {
	plain := User{Permissions: Permissions{PermissionAssignTask}}
	if !plain.Can(PermissionAssignTask) {
		t.Error("Expected assign_task to be granted")
	}
	if plain.Can(PermissionManageAllTask) {
		t.Error("Expected manage_all_task to be denied")
	}

	root := User{Permissions: Permissions{PermissionRoot}}
	for _, p := range []Permission{PermissionManageAllTask, PermissionManageUser, PermissionAssignTask} {
		if !root.Can(p) {
			t.Errorf("Expected root to imply %s", p)
		}
	}
}

func TestPermissionsNormalize(t *testing.T) {
	got := Permissions{PermissionRoot, PermissionAssignTask, PermissionRoot}.Normalize()
	want := Permissions{PermissionAssignTask, PermissionRoot}
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Expected %v, got %v", want, got)
		}
	}
}
