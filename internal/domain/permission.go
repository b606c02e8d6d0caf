package domain

import (
	"fmt"
	"sort"
)

// Permission names a capability granted to a user.
type Permission string

const (
	// PermissionManageAllTask allows editing, deleting and staffing any task.
	PermissionManageAllTask Permission = "manage_all_task"
	// PermissionManageUser allows changing other users' permissions.
	PermissionManageUser Permission = "manage_user"
	// PermissionAssignTask allows adding or removing users other than oneself.
	PermissionAssignTask Permission = "assign_task"
	// PermissionRoot implies every other permission.
	PermissionRoot Permission = "root"
)

// IsValid reports whether p is a known permission.
func (p Permission) IsValid() bool {
	switch p {
	case PermissionManageAllTask, PermissionManageUser, PermissionAssignTask, PermissionRoot:
		return true
	}
	return false
}

// Permissions is the set of permissions held by a user.
type Permissions []Permission

// Has reports whether the set grants p. Root grants everything.
func (ps Permissions) Has(p Permission) bool {
	for _, held := range ps {
		if held == p || held == PermissionRoot {
			return true
		}
	}
	return false
}

// Validate rejects unknown permission names.
func (ps Permissions) Validate() error {
	for _, p := range ps {
		if !p.IsValid() {
			return fmt.Errorf("%w: %q", ErrInvalidPermission, p)
		}
	}
	return nil
}

// Normalize returns a sorted copy without duplicates.
func (ps Permissions) Normalize() Permissions {
	seen := make(map[Permission]struct{}, len(ps))
	out := make(Permissions, 0, len(ps))
	for _, p := range ps {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
