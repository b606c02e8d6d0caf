package service

import (
	"context"
	"strconv"
	"testing"

	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newUserFixture(t *testing.T) (*UserServiceImpl, *mockUserStore) {
	t.Helper()

	users := &mockUserStore{}
	svc := NewUserService(users, nil, discardLogger()).(*UserServiceImpl)
	svc.runTx = inlineTx
	t.Cleanup(func() { users.AssertExpectations(t) })
	return svc, users
}

func TestCreateUser(t *testing.T) {
	ctx := context.Background()

	t.Run("registers user", func(t *testing.T) {
		svc, users := newUserFixture(t)
		users.On("Create", mock.Anything, mock.AnythingOfType("*domain.User")).Return(nil)

		user, err := svc.CreateUser(ctx, "  New@Example.com ", "correct-horse-battery")
		require.NoError(t, err)
		assert.Equal(t, "new@example.com", user.Email)
		assert.Empty(t, user.Permissions)
	})

	t.Run("short password", func(t *testing.T) {
		svc, _ := newUserFixture(t)

		_, err := svc.CreateUser(ctx, "a@example.com", "short")
		assert.ErrorIs(t, err, domain.ErrPasswordTooShort)
	})

	t.Run("email taken", func(t *testing.T) {
		svc, users := newUserFixture(t)
		users.On("Create", mock.Anything, mock.Anything).Return(store.ErrEmailExists)

		_, err := svc.CreateUser(ctx, "a@example.com", "correct-horse-battery")
		assert.ErrorIs(t, err, store.ErrEmailExists)
	})
}

func TestSetPermissions(t *testing.T) {
	ctx := context.Background()

	t.Run("root replaces permissions", func(t *testing.T) {
		svc, users := newUserFixture(t)
		actor := newUser(domain.PermissionRoot)
		target := newUser()
		want := domain.Permissions{domain.PermissionAssignTask, domain.PermissionManageAllTask}

		users.On("GetByID", mock.Anything, actor.ID).Return(actor, nil)
		users.On("GetByID", mock.Anything, target.ID).Return(target, nil)
		users.On("SetPermissions", mock.Anything, target.ID, want).Return(nil)

		got, err := svc.SetPermissions(ctx, actor.ID, target.ID,
			domain.Permissions{domain.PermissionManageAllTask, domain.PermissionAssignTask, domain.PermissionAssignTask})
		require.NoError(t, err)
		assert.Equal(t, want, got.Permissions)
	})

	t.Run("user manager is not enough", func(t *testing.T) {
		svc, users := newUserFixture(t)
		actor := newUser(domain.PermissionManageUser)
		target := newUser()
		users.On("GetByID", mock.Anything, actor.ID).Return(actor, nil)

		_, err := svc.SetPermissions(ctx, actor.ID, target.ID, domain.Permissions{domain.PermissionAssignTask})
		assert.ErrorIs(t, err, ErrPermissionDenied)
	})

	t.Run("root cannot grant root", func(t *testing.T) {
		svc, users := newUserFixture(t)
		actor := newUser(domain.PermissionRoot)
		target := newUser()
		users.On("GetByID", mock.Anything, actor.ID).Return(actor, nil)
		users.On("GetByID", mock.Anything, target.ID).Return(target, nil)

		_, err := svc.SetPermissions(ctx, actor.ID, target.ID, domain.Permissions{domain.PermissionRoot})
		assert.ErrorIs(t, err, ErrRootImmutable)
		users.AssertNotCalled(t, "SetPermissions", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("root cannot revoke root", func(t *testing.T) {
		svc, users := newUserFixture(t)
		actor := newUser(domain.PermissionRoot)
		target := newUser(domain.PermissionRoot, domain.PermissionAssignTask)
		users.On("GetByID", mock.Anything, actor.ID).Return(actor, nil)
		users.On("GetByID", mock.Anything, target.ID).Return(target, nil)

		_, err := svc.SetPermissions(ctx, actor.ID, target.ID, domain.Permissions{domain.PermissionAssignTask})
		assert.ErrorIs(t, err, ErrRootImmutable)
	})

	t.Run("root kept on another root", func(t *testing.T) {
		svc, users := newUserFixture(t)
		actor := newUser(domain.PermissionRoot)
		target := newUser(domain.PermissionRoot)
		want := domain.Permissions{domain.PermissionManageUser, domain.PermissionRoot}
		users.On("GetByID", mock.Anything, actor.ID).Return(actor, nil)
		users.On("GetByID", mock.Anything, target.ID).Return(target, nil)
		users.On("SetPermissions", mock.Anything, target.ID, want).Return(nil)

		_, err := svc.SetPermissions(ctx, actor.ID, target.ID, domain.Permissions{domain.PermissionRoot, domain.PermissionManageUser})
		assert.NoError(t, err)
	})

	t.Run("unknown target", func(t *testing.T) {
		svc, users := newUserFixture(t)
		actor := newUser(domain.PermissionRoot)
		target := newUser()
		users.On("GetByID", mock.Anything, actor.ID).Return(actor, nil)
		users.On("GetByID", mock.Anything, target.ID).Return(nil, store.ErrUserNotFound)

		_, err := svc.SetPermissions(ctx, actor.ID, target.ID, domain.Permissions{})
		assert.ErrorIs(t, err, store.ErrUserNotFound)
	})

	t.Run("unknown permission", func(t *testing.T) {
		svc, _ := newUserFixture(t)
		actor := newUser(domain.PermissionRoot)

		_, err := svc.SetPermissions(ctx, actor.ID, actor.ID, domain.Permissions{"fly"})
		assert.ErrorIs(t, err, domain.ErrInvalidPermission)
	})
}

func TestSearchUsers(t *testing.T) {
	ctx := context.Background()

	t.Run("trims keyword and caps results", func(t *testing.T) {
		svc, users := newUserFixture(t)
		found := []domain.User{*newUser()}
		users.On("Search", mock.Anything, "ada", SearchLimit).Return(found, nil)

		got, err := svc.SearchUsers(ctx, "  ada ")
		require.NoError(t, err)
		assert.Equal(t, found, got)
	})

	for _, keyword := range []string{"", "   "} {
		t.Run("blank keyword "+strconv.Quote(keyword), func(t *testing.T) {
			svc, _ := newUserFixture(t)

			_, err := svc.SearchUsers(ctx, keyword)
			assert.ErrorIs(t, err, ErrEmptySearch)
		})
	}
}

func TestListUsers(t *testing.T) {
	ctx := context.Background()

	t.Run("user manager lists everyone", func(t *testing.T) {
		svc, users := newUserFixture(t)
		actor := newUser(domain.PermissionManageUser)
		all := []domain.User{*actor, *newUser(domain.PermissionAssignTask)}
		users.On("GetByID", mock.Anything, actor.ID).Return(actor, nil)
		users.On("List", mock.Anything).Return(all, nil)

		got, err := svc.ListUsers(ctx, actor.ID)
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("needs manage_user", func(t *testing.T) {
		svc, users := newUserFixture(t)
		actor := newUser(domain.PermissionAssignTask)
		users.On("GetByID", mock.Anything, actor.ID).Return(actor, nil)

		_, err := svc.ListUsers(ctx, actor.ID)
		assert.ErrorIs(t, err, ErrPermissionDenied)
	})
}

func TestDeleteUser(t *testing.T) {
	ctx := context.Background()

	t.Run("user manager deletes", func(t *testing.T) {
		svc, users := newUserFixture(t)
		actor := newUser(domain.PermissionManageUser)
		target := newUser(domain.PermissionAssignTask)
		users.On("GetByID", mock.Anything, actor.ID).Return(actor, nil)
		users.On("GetByID", mock.Anything, target.ID).Return(target, nil)
		users.On("Delete", mock.Anything, target.ID).Return(nil)

		assert.NoError(t, svc.DeleteUser(ctx, actor.ID, target.ID))
	})

	t.Run("self is rejected before anything is loaded", func(t *testing.T) {
		svc, _ := newUserFixture(t)
		actor := newUser(domain.PermissionRoot)

		assert.ErrorIs(t, svc.DeleteUser(ctx, actor.ID, actor.ID), ErrCannotDeleteSelf)
	})

	t.Run("needs manage_user", func(t *testing.T) {
		svc, users := newUserFixture(t)
		actor := newUser()
		target := newUser()
		users.On("GetByID", mock.Anything, actor.ID).Return(actor, nil)

		assert.ErrorIs(t, svc.DeleteUser(ctx, actor.ID, target.ID), ErrPermissionDenied)
	})

	t.Run("unknown target", func(t *testing.T) {
		svc, users := newUserFixture(t)
		actor := newUser(domain.PermissionManageUser)
		target := newUser()
		users.On("GetByID", mock.Anything, actor.ID).Return(actor, nil)
		users.On("GetByID", mock.Anything, target.ID).Return(nil, store.ErrUserNotFound)

		assert.ErrorIs(t, svc.DeleteUser(ctx, actor.ID, target.ID), store.ErrUserNotFound)
	})

	t.Run("root cannot be deleted", func(t *testing.T) {
		svc, users := newUserFixture(t)
		actor := newUser(domain.PermissionRoot)
		target := newUser(domain.PermissionRoot)
		users.On("GetByID", mock.Anything, actor.ID).Return(actor, nil)
		users.On("GetByID", mock.Anything, target.ID).Return(target, nil)

		assert.ErrorIs(t, svc.DeleteUser(ctx, actor.ID, target.ID), ErrPermissionDenied)
		users.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})
}

func TestGrantPermissions(t *testing.T) {
	svc, users := newUserFixture(t)
	user := newUser(domain.PermissionAssignTask)
	merged := domain.Permissions{domain.PermissionAssignTask, domain.PermissionRoot}

	users.On("GetByEmail", mock.Anything, user.Email).Return(user, nil)
	users.On("SetPermissions", mock.Anything, user.ID, merged).Return(nil)

	got, err := svc.GrantPermissions(context.Background(), user.Email, domain.Permissions{domain.PermissionRoot})
	require.NoError(t, err)
	assert.Equal(t, merged, got.Permissions)
}
