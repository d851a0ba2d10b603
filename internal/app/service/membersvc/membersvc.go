// Package membersvc implements joining a workspace by invite code and
// removing members from it.
package membersvc

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/taskhub/internal/app/policy/memberpolicy"
	memberstore "github.com/dalemusser/taskhub/internal/app/store/members"
	rolestore "github.com/dalemusser/taskhub/internal/app/store/roles"
	taskstore "github.com/dalemusser/taskhub/internal/app/store/tasks"
	userstore "github.com/dalemusser/taskhub/internal/app/store/users"
	workspacestore "github.com/dalemusser/taskhub/internal/app/store/workspaces"
	"github.com/dalemusser/taskhub/internal/app/system/apperr"
	"github.com/dalemusser/taskhub/internal/app/system/authz"
	"github.com/dalemusser/taskhub/internal/app/system/normalize"
	"github.com/dalemusser/taskhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// TxRunner runs fn in a transaction; txn.Runner implements it.
type TxRunner interface {
	Run(ctx context.Context, fn func(sc mongo.SessionContext) error) error
}

// Service implements membership operations.
type Service struct {
	users      *userstore.Store
	workspaces *workspacestore.Store
	roles      *rolestore.Store
	members    *memberstore.Store
	tasks      *taskstore.Store
	policy     *memberpolicy.Resolver
	tx         TxRunner
	log        *zap.Logger
}

// New creates a Service backed by db.
func New(db *mongo.Database, policy *memberpolicy.Resolver, tx TxRunner, logger *zap.Logger) *Service {
	return &Service{
		users:      userstore.New(db),
		workspaces: workspacestore.New(db),
		roles:      rolestore.New(db),
		members:    memberstore.New(db),
		tasks:      taskstore.New(db),
		policy:     policy,
		tx:         tx,
		log:        logger,
	}
}

// JoinResult identifies the workspace joined and the role granted.
type JoinResult struct {
	WorkspaceID primitive.ObjectID `json:"workspaceId"`
	Role        string             `json:"role"`
}

// JoinByInviteCode adds userID to the workspace the code points at with the
// member role.
func (s *Service) JoinByInviteCode(ctx context.Context, userID primitive.ObjectID, code string) (JoinResult, error) {
	ws, err := s.workspaces.GetByInviteCode(ctx, normalize.Code(code))
	if err != nil {
		if errors.Is(err, workspacestore.ErrNotFound) {
			return JoinResult{}, apperr.NotFound("Invalid invite code or workspace not found")
		}
		return JoinResult{}, err
	}

	already, err := s.members.IsMember(ctx, userID, ws.ID)
	if err != nil {
		return JoinResult{}, err
	}
	if already {
		return JoinResult{}, apperr.Validation("You are already a member of this workspace")
	}

	role, err := s.roles.GetByName(ctx, models.RoleMember)
	if err != nil {
		if errors.Is(err, rolestore.ErrNotFound) {
			return JoinResult{}, apperr.Config("Member role not found", err)
		}
		return JoinResult{}, err
	}

	if _, err := s.members.Create(ctx, models.Member{
		UserID:      userID,
		WorkspaceID: ws.ID,
		RoleID:      role.ID,
		JoinedAt:    time.Now().UTC(),
	}); err != nil {
		// Lost a race with a concurrent join of the same user.
		if errors.Is(err, memberstore.ErrAlreadyMember) {
			return JoinResult{}, apperr.Validation("You are already a member of this workspace")
		}
		return JoinResult{}, err
	}

	s.log.Info("member joined workspace",
		zap.String("workspace_id", ws.ID.Hex()),
		zap.String("user_id", userID.Hex()))
	return JoinResult{WorkspaceID: ws.ID, Role: role.Name}, nil
}

// Remove takes memberUserID out of wsID. Their tasks in the workspace are
// unassigned and, if it was their current workspace, they move to their
// earliest remaining membership. The owner cannot be removed.
func (s *Service) Remove(ctx context.Context, userID, wsID, memberUserID primitive.ObjectID) error {
	if _, err := s.policy.Authorize(ctx, "member.remove", userID, wsID, authz.RemoveMember); err != nil {
		return err
	}

	ws, err := s.workspaces.GetByID(ctx, wsID)
	if err != nil {
		if errors.Is(err, workspacestore.ErrNotFound) {
			return apperr.NotFound("Workspace not found")
		}
		return err
	}
	if ws.IsOwnedBy(memberUserID) {
		return &apperr.Error{
			Kind:    apperr.KindValidation,
			Code:    apperr.CodeOwnerCannotBeRemoved,
			Message: "The workspace owner cannot be removed",
		}
	}

	err = s.tx.Run(ctx, func(sc mongo.SessionContext) error {
		n, err := s.members.Delete(sc, memberUserID, wsID)
		if err != nil {
			return err
		}
		if n == 0 {
			return apperr.NotFound("Member not found in the workspace")
		}

		if _, err := s.tasks.UnassignUser(sc, wsID, memberUserID); err != nil {
			return err
		}

		u, err := s.users.GetByID(sc, memberUserID)
		if err != nil {
			if errors.Is(err, userstore.ErrNotFound) {
				return nil
			}
			return err
		}
		if u.CurrentWorkspace == nil || *u.CurrentWorkspace != wsID {
			return nil
		}
		remaining, err := s.members.WorkspaceIDsForUser(sc, memberUserID)
		if err != nil {
			return err
		}
		var next *primitive.ObjectID
		if len(remaining) > 0 {
			next = &remaining[0]
		}
		return s.users.SetCurrentWorkspace(sc, memberUserID, next)
	})
	if err != nil {
		return err
	}

	s.log.Info("member removed",
		zap.String("workspace_id", wsID.Hex()),
		zap.String("member_id", memberUserID.Hex()),
		zap.String("user_id", userID.Hex()))
	return nil
}
