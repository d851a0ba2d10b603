// Package memberpolicy resolves a user's role inside a workspace.
//
// Every workspace-scoped operation starts here: the caller's membership is
// looked up fresh from the store (nothing is cached), its role is loaded,
// and the role is then checked against the permission table with
// authz.Guard.
//
// Errors:
//   - not a member of the workspace: apperr.KindForbidden (never not-found,
//     so callers cannot probe which workspaces exist)
//   - member references a role that does not exist: apperr.KindConfig
//   - store failures: apperr.KindInternal
package memberpolicy

import (
	"context"
	"errors"

	memberstore "github.com/dalemusser/taskhub/internal/app/store/members"
	rolestore "github.com/dalemusser/taskhub/internal/app/store/roles"
	"github.com/dalemusser/taskhub/internal/app/system/apperr"
	"github.com/dalemusser/taskhub/internal/app/system/authz"
	"github.com/dalemusser/taskhub/internal/app/system/metrics"
	"github.com/dalemusser/taskhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// MemberLookup finds one membership.
type MemberLookup interface {
	Get(ctx context.Context, userID, wsID primitive.ObjectID) (*models.Member, error)
}

// RoleLookup loads a role by ID.
type RoleLookup interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Role, error)
}

// Resolver maps (user, workspace) to the user's role.
type Resolver struct {
	members MemberLookup
	roles   RoleLookup
	log     *zap.Logger
	metrics *metrics.Metrics
}

// New builds a Resolver over explicit lookups.
func New(members MemberLookup, roles RoleLookup) *Resolver {
	return &Resolver{members: members, roles: roles, log: zap.NewNop()}
}

// WithObservability sets the logger and metrics used to record denials.
func (r *Resolver) WithObservability(logger *zap.Logger, m *metrics.Metrics) *Resolver {
	if logger != nil {
		r.log = logger
	}
	r.metrics = m
	return r
}

// NewFromDB builds a Resolver backed by the member and role stores.
func NewFromDB(db *mongo.Database) *Resolver {
	return New(memberstore.New(db), rolestore.New(db))
}

// ResolveRole returns the role userID holds in wsID.
func (r *Resolver) ResolveRole(ctx context.Context, userID, wsID primitive.ObjectID) (models.Role, error) {
	m, err := r.members.Get(ctx, userID, wsID)
	if err != nil {
		if errors.Is(err, memberstore.ErrNotFound) {
			return models.Role{}, apperr.Forbidden()
		}
		return models.Role{}, apperr.Internal("failed to load workspace membership", err)
	}

	role, err := r.roles.GetByID(ctx, m.RoleID)
	if err != nil {
		if errors.Is(err, rolestore.ErrNotFound) {
			return models.Role{}, apperr.Config("Role not found for workspace member", err)
		}
		return models.Role{}, apperr.Internal("failed to load member role", err)
	}
	return *role, nil
}

// Require resolves the caller's role in wsID and checks it holds every
// permission in required. It returns the role on success.
func (r *Resolver) Require(ctx context.Context, userID, wsID primitive.ObjectID, required ...authz.Permission) (models.Role, error) {
	role, err := r.check(ctx, userID, wsID, required)
	if err != nil {
		return models.Role{}, err
	}
	return role, nil
}

// Authorize is Require for a named operation: denials are logged at Info
// with the role that was refused, and counted per operation.
func (r *Resolver) Authorize(ctx context.Context, operation string, userID, wsID primitive.ObjectID, required ...authz.Permission) (models.Role, error) {
	role, err := r.check(ctx, userID, wsID, required)
	if err == nil {
		return role, nil
	}
	if apperr.Is(err, apperr.KindForbidden) {
		r.log.Info("authorization denied",
			zap.String("operation", operation),
			zap.String("user_id", userID.Hex()),
			zap.String("workspace_id", wsID.Hex()),
			zap.String("role", role.Name))
		r.metrics.Denied(operation)
	}
	return models.Role{}, err
}

// check returns the resolved role even when the guard refuses it. The
// role is empty when the caller is not a member.
func (r *Resolver) check(ctx context.Context, userID, wsID primitive.ObjectID, required []authz.Permission) (models.Role, error) {
	role, err := r.ResolveRole(ctx, userID, wsID)
	if err != nil {
		return models.Role{}, err
	}
	return role, authz.Guard(role.Name, required...)
}
