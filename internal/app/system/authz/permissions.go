package authz

import (
	"sort"

	"github.com/dalemusser/taskhub/internal/domain/models"
)

// Permission is a capability tag checked by Guard.
type Permission string

const (
	CreateWorkspace         Permission = "create-workspace"
	DeleteWorkspace         Permission = "delete-workspace"
	EditWorkspace           Permission = "edit-workspace"
	ManageWorkspaceSettings Permission = "manage-workspace-settings"

	AddMember        Permission = "add-member"
	ChangeMemberRole Permission = "change-member-role"
	RemoveMember     Permission = "remove-member"

	CreateProject Permission = "create-project"
	EditProject   Permission = "edit-project"
	DeleteProject Permission = "delete-project"

	CreateTask Permission = "create-task"
	EditTask   Permission = "edit-task"
	DeleteTask Permission = "delete-task"

	ViewOnly Permission = "view"
)

// AllPermissions lists every defined permission.
var AllPermissions = []Permission{
	CreateWorkspace, DeleteWorkspace, EditWorkspace, ManageWorkspaceSettings,
	AddMember, ChangeMemberRole, RemoveMember,
	CreateProject, EditProject, DeleteProject,
	CreateTask, EditTask, DeleteTask,
	ViewOnly,
}

// PermissionSet is an unordered set of permissions.
type PermissionSet map[Permission]struct{}

// Has reports whether p is in the set.
func (s PermissionSet) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

// Strings returns the set as sorted strings.
func (s PermissionSet) Strings() []string {
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, string(p))
	}
	sort.Strings(out)
	return out
}

func newSet(perms ...Permission) PermissionSet {
	s := make(PermissionSet, len(perms))
	for _, p := range perms {
		s[p] = struct{}{}
	}
	return s
}

// rolePermissions is the compiled-in permission table. It is never mutated
// after package init; callers only see copies.
var rolePermissions = map[string]PermissionSet{
	models.RoleOwner: newSet(AllPermissions...),
	models.RoleAdmin: newSet(
		AddMember,
		CreateProject, EditProject, DeleteProject,
		CreateTask, EditTask, DeleteTask,
		ManageWorkspaceSettings,
		ViewOnly,
	),
	models.RoleMember: newSet(
		ViewOnly,
		CreateTask, EditTask,
	),
}

// PermissionsFor returns a copy of the permission set for role.
// An unknown role has no permissions.
func PermissionsFor(role string) PermissionSet {
	src := rolePermissions[role]
	out := make(PermissionSet, len(src))
	for p := range src {
		out[p] = struct{}{}
	}
	return out
}

// Roles returns the role names defined in the table.
func Roles() []string {
	out := make([]string, 0, len(rolePermissions))
	for _, name := range models.RoleNames {
		if _, ok := rolePermissions[name]; ok {
			out = append(out, name)
		}
	}
	return out
}
