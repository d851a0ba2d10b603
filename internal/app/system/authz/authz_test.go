package authz_test

import (
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/taskhub/internal/app/system/apperr"
	"github.com/dalemusser/taskhub/internal/app/system/auth"
	"github.com/dalemusser/taskhub/internal/app/system/authz"
	"github.com/dalemusser/taskhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestGuard_SubsetPasses(t *testing.T) {
	// Every subset of a role's permissions must pass; check each single
	// permission and the full set.
	for _, role := range authz.Roles() {
		granted := authz.PermissionsFor(role)
		all := make([]authz.Permission, 0, len(granted))
		for p := range granted {
			all = append(all, p)
			if err := authz.Guard(role, p); err != nil {
				t.Errorf("Guard(%q, %q) = %v, want nil", role, p, err)
			}
		}
		if err := authz.Guard(role, all...); err != nil {
			t.Errorf("Guard(%q, all granted) = %v, want nil", role, err)
		}
	}
}

func TestGuard_MissingPermissionFails(t *testing.T) {
	for _, role := range authz.Roles() {
		granted := authz.PermissionsFor(role)
		for _, p := range authz.AllPermissions {
			if granted.Has(p) {
				continue
			}
			err := authz.Guard(role, authz.ViewOnly, p)
			if !apperr.Is(err, apperr.KindForbidden) {
				t.Errorf("Guard(%q, view+%q) = %v, want forbidden", role, p, err)
			}
		}
	}
}

func TestGuard_EmptyRequirementAlwaysPasses(t *testing.T) {
	for _, role := range []string{models.RoleOwner, models.RoleAdmin, models.RoleMember, "", "unknown"} {
		if err := authz.Guard(role); err != nil {
			t.Errorf("Guard(%q) with no requirements = %v, want nil", role, err)
		}
	}
}

func TestGuard_UnknownRoleHasNothing(t *testing.T) {
	if len(authz.PermissionsFor("superuser")) != 0 {
		t.Error("unknown role should have an empty permission set")
	}
	for _, p := range authz.AllPermissions {
		if authz.Allowed("superuser", p) {
			t.Errorf("unknown role should not be allowed %q", p)
		}
	}
}

func TestPermissionTable(t *testing.T) {
	tests := []struct {
		role string
		perm authz.Permission
		want bool
	}{
		{models.RoleOwner, authz.DeleteWorkspace, true},
		{models.RoleOwner, authz.ChangeMemberRole, true},
		{models.RoleAdmin, authz.DeleteWorkspace, false},
		{models.RoleAdmin, authz.EditWorkspace, false},
		{models.RoleAdmin, authz.ChangeMemberRole, false},
		{models.RoleAdmin, authz.AddMember, true},
		{models.RoleAdmin, authz.DeleteProject, true},
		{models.RoleMember, authz.ViewOnly, true},
		{models.RoleMember, authz.CreateTask, true},
		{models.RoleMember, authz.EditTask, true},
		{models.RoleMember, authz.DeleteTask, false},
		{models.RoleMember, authz.CreateProject, false},
	}

	for _, tt := range tests {
		t.Run(tt.role+"/"+string(tt.perm), func(t *testing.T) {
			if got := authz.Allowed(tt.role, tt.perm); got != tt.want {
				t.Errorf("Allowed(%q, %q) = %v, want %v", tt.role, tt.perm, got, tt.want)
			}
		})
	}
}

func TestOwnerHasEveryPermission(t *testing.T) {
	if err := authz.Guard(models.RoleOwner, authz.AllPermissions...); err != nil {
		t.Errorf("owner missing permissions: %v", err)
	}
}

func TestPermissionsFor_ReturnsCopy(t *testing.T) {
	s := authz.PermissionsFor(models.RoleMember)
	s[authz.DeleteWorkspace] = struct{}{}

	if authz.Allowed(models.RoleMember, authz.DeleteWorkspace) {
		t.Error("mutating a returned set must not change the table")
	}
}

func TestUserCtx(t *testing.T) {
	id := primitive.NewObjectID()
	req := httptest.NewRequest("GET", "/test", nil)
	req = auth.WithTestUser(req, &auth.SessionUser{ID: id.Hex(), Name: "Ada"})

	name, userID, ok := authz.UserCtx(req)
	if !ok {
		t.Fatal("expected ok")
	}
	if name != "Ada" || userID != id {
		t.Errorf("UserCtx = (%q, %s), want (%q, %s)", name, userID.Hex(), "Ada", id.Hex())
	}
}

func TestUserCtx_MalformedID(t *testing.T) {
	req := httptest.NewRequest("GET", "/test", nil)
	req = auth.WithTestUser(req, &auth.SessionUser{ID: "not-an-id"})

	if _, _, ok := authz.UserCtx(req); ok {
		t.Error("expected ok=false for malformed user id")
	}
}

func TestUserCtx_NoUser(t *testing.T) {
	req := httptest.NewRequest("GET", "/test", nil)
	if _, _, ok := authz.UserCtx(req); ok {
		t.Error("expected ok=false without a user")
	}
}

func TestCaller(t *testing.T) {
	id := primitive.NewObjectID()
	req := auth.WithTestUser(httptest.NewRequest("GET", "/test", nil), &auth.SessionUser{ID: id.Hex()})
	if got, err := authz.Caller(req); err != nil || got != id {
		t.Errorf("Caller = (%s, %v), want (%s, nil)", got.Hex(), err, id.Hex())
	}

	if _, err := authz.Caller(httptest.NewRequest("GET", "/test", nil)); !apperr.Is(err, apperr.KindUnauthenticated) {
		t.Errorf("expected unauthenticated, got %v", err)
	}
}
