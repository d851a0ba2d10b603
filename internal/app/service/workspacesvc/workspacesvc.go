// Package workspacesvc implements workspace operations: creation, listing,
// details, analytics, updates, deletion and member role changes.
//
// Every operation on an existing workspace resolves the caller's role and
// runs the role guard before it reads or writes workspace data.
package workspacesvc

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/taskhub/internal/app/policy/memberpolicy"
	memberstore "github.com/dalemusser/taskhub/internal/app/store/members"
	projectstore "github.com/dalemusser/taskhub/internal/app/store/projects"
	rolestore "github.com/dalemusser/taskhub/internal/app/store/roles"
	taskstore "github.com/dalemusser/taskhub/internal/app/store/tasks"
	userstore "github.com/dalemusser/taskhub/internal/app/store/users"
	workspacestore "github.com/dalemusser/taskhub/internal/app/store/workspaces"
	"github.com/dalemusser/taskhub/internal/app/system/apperr"
	"github.com/dalemusser/taskhub/internal/app/system/authz"
	"github.com/dalemusser/taskhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/taskhub/internal/app/system/normalize"
	"github.com/dalemusser/taskhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// MemberStore is the subset of the member store the service needs.
type MemberStore interface {
	Create(ctx context.Context, m models.Member) (models.Member, error)
	Get(ctx context.Context, userID, wsID primitive.ObjectID) (*models.Member, error)
	WorkspaceIDsForUser(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error)
	ListViews(ctx context.Context, wsID primitive.ObjectID) ([]models.MemberView, error)
	UpdateRole(ctx context.Context, userID, wsID, roleID primitive.ObjectID) error
	DeleteByWorkspace(ctx context.Context, wsID primitive.ObjectID) (int64, error)
}

// RoleStore reads seeded roles.
type RoleStore interface {
	GetByName(ctx context.Context, name string) (*models.Role, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Role, error)
	List(ctx context.Context) ([]models.Role, error)
}

// TxRunner runs fn in a transaction; txn.Runner implements it.
type TxRunner interface {
	Run(ctx context.Context, fn func(sc mongo.SessionContext) error) error
}

// Stores groups the collaborators of Service.
type Stores struct {
	Users      *userstore.Store
	Workspaces *workspacestore.Store
	Roles      RoleStore
	Members    MemberStore
	Projects   *projectstore.Store
	Tasks      *taskstore.Store
}

// StoresFromDB wires Stores to MongoDB.
func StoresFromDB(db *mongo.Database) Stores {
	return Stores{
		Users:      userstore.New(db),
		Workspaces: workspacestore.New(db),
		Roles:      rolestore.New(db),
		Members:    memberstore.New(db),
		Projects:   projectstore.New(db),
		Tasks:      taskstore.New(db),
	}
}

// Service implements the workspace operations.
type Service struct {
	stores Stores
	policy *memberpolicy.Resolver
	tx     TxRunner
	log    *zap.Logger
	now    func() time.Time
}

// New creates a Service.
func New(stores Stores, policy *memberpolicy.Resolver, tx TxRunner, logger *zap.Logger) *Service {
	return &Service{
		stores: stores,
		policy: policy,
		tx:     tx,
		log:    logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// CreateInput describes a new workspace.
type CreateInput struct {
	Name        string
	Description string
}

// UpdateInput changes a workspace. An empty Name keeps the current name; a
// nil Description keeps the current description.
type UpdateInput struct {
	Name        string
	Description *string
}

// Details is a workspace with its members.
type Details struct {
	Workspace models.Workspace    `json:"workspace"`
	Members   []models.MemberView `json:"members"`
}

// MemberList is the members of a workspace plus the roles they can hold.
type MemberList struct {
	Members []models.MemberView `json:"members"`
	Roles   []models.Role       `json:"roles"`
}

// Create makes userID the owner of a new workspace and switches the user to
// it. Any authenticated user may create a workspace.
func (s *Service) Create(ctx context.Context, userID primitive.ObjectID, in CreateInput) (models.Workspace, error) {
	name := normalize.Name(in.Name)
	if name == "" {
		return models.Workspace{}, apperr.Validation("Name is required",
			apperr.FieldError{Field: "name", Message: "Name is required"})
	}

	var ws models.Workspace
	err := s.tx.Run(ctx, func(sc mongo.SessionContext) error {
		if _, err := s.stores.Users.GetByID(sc, userID); err != nil {
			if errors.Is(err, userstore.ErrNotFound) {
				return apperr.NotFound("User not found")
			}
			return err
		}

		owner, err := s.stores.Roles.GetByName(sc, models.RoleOwner)
		if err != nil {
			if errors.Is(err, rolestore.ErrNotFound) {
				return apperr.Config("Owner role not found", err)
			}
			return err
		}

		ws, err = s.stores.Workspaces.Create(sc, models.Workspace{
			Name:        name,
			Description: htmlsanitize.PlainText(in.Description),
			Owner:       userID,
			InviteCode:  workspacestore.NewInviteCode(),
		})
		if err != nil {
			return err
		}

		if _, err := s.stores.Members.Create(sc, models.Member{
			UserID:      userID,
			WorkspaceID: ws.ID,
			RoleID:      owner.ID,
			JoinedAt:    s.now(),
		}); err != nil {
			return err
		}

		return s.stores.Users.SetCurrentWorkspace(sc, userID, &ws.ID)
	})
	if err != nil {
		return models.Workspace{}, err
	}

	s.log.Info("workspace created",
		zap.String("workspace_id", ws.ID.Hex()),
		zap.String("user_id", userID.Hex()))
	return ws, nil
}

// ListForUser returns the workspaces userID belongs to.
func (s *Service) ListForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Workspace, error) {
	ids, err := s.stores.Members.WorkspaceIDsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.stores.Workspaces.ListByIDs(ctx, ids)
}

// Get returns a workspace and its members.
func (s *Service) Get(ctx context.Context, userID, wsID primitive.ObjectID) (Details, error) {
	if _, err := s.policy.Authorize(ctx, "workspace.get", userID, wsID, authz.ViewOnly); err != nil {
		return Details{}, err
	}

	ws, err := s.workspace(ctx, wsID)
	if err != nil {
		return Details{}, err
	}
	members, err := s.stores.Members.ListViews(ctx, wsID)
	if err != nil {
		return Details{}, err
	}
	return Details{Workspace: ws, Members: members}, nil
}

// Members lists the workspace members and the available roles.
func (s *Service) Members(ctx context.Context, userID, wsID primitive.ObjectID) (MemberList, error) {
	if _, err := s.policy.Authorize(ctx, "workspace.members", userID, wsID, authz.ViewOnly); err != nil {
		return MemberList{}, err
	}

	members, err := s.stores.Members.ListViews(ctx, wsID)
	if err != nil {
		return MemberList{}, err
	}
	roles, err := s.stores.Roles.List(ctx)
	if err != nil {
		return MemberList{}, err
	}
	return MemberList{Members: members, Roles: roles}, nil
}

// Analytics counts the workspace's tasks.
func (s *Service) Analytics(ctx context.Context, userID, wsID primitive.ObjectID) (taskstore.Analytics, error) {
	if _, err := s.policy.Authorize(ctx, "workspace.analytics", userID, wsID, authz.ViewOnly); err != nil {
		return taskstore.Analytics{}, err
	}
	return s.stores.Tasks.Analytics(ctx, wsID, nil, s.now())
}

// Update renames a workspace and, when given, replaces its description.
func (s *Service) Update(ctx context.Context, userID, wsID primitive.ObjectID, in UpdateInput) (models.Workspace, error) {
	if _, err := s.policy.Authorize(ctx, "workspace.update", userID, wsID, authz.EditWorkspace); err != nil {
		return models.Workspace{}, err
	}

	var upd workspacestore.Update
	if name := normalize.Name(in.Name); name != "" {
		upd.Name = &name
	}
	if in.Description != nil {
		desc := htmlsanitize.PlainText(*in.Description)
		upd.Description = &desc
	}
	ws, err := s.stores.Workspaces.Update(ctx, wsID, upd)
	if err != nil {
		if errors.Is(err, workspacestore.ErrNotFound) {
			return models.Workspace{}, apperr.NotFound("Workspace not found")
		}
		return models.Workspace{}, err
	}
	return ws, nil
}

// Delete removes a workspace with its members, projects and tasks. Only the
// owner may delete. Users whose current workspace was the deleted one are
// unset; the caller moves to their earliest remaining membership. The
// caller's new current workspace is returned (nil if none remain).
func (s *Service) Delete(ctx context.Context, userID, wsID primitive.ObjectID) (*primitive.ObjectID, error) {
	if _, err := s.policy.Authorize(ctx, "workspace.delete", userID, wsID, authz.DeleteWorkspace); err != nil {
		return nil, err
	}

	var next *primitive.ObjectID
	err := s.tx.Run(ctx, func(sc mongo.SessionContext) error {
		ws, err := s.workspace(sc, wsID)
		if err != nil {
			return err
		}
		if !ws.IsOwnedBy(userID) {
			return apperr.Forbidden()
		}

		if _, err := s.stores.Tasks.DeleteByWorkspace(sc, wsID); err != nil {
			return err
		}
		if _, err := s.stores.Projects.DeleteByWorkspace(sc, wsID); err != nil {
			return err
		}
		if _, err := s.stores.Members.DeleteByWorkspace(sc, wsID); err != nil {
			return err
		}
		if _, err := s.stores.Workspaces.Delete(sc, wsID); err != nil {
			return err
		}
		if _, err := s.stores.Users.ClearCurrentWorkspace(sc, wsID); err != nil {
			return err
		}

		remaining, err := s.stores.Members.WorkspaceIDsForUser(sc, userID)
		if err != nil {
			return err
		}
		next = nil
		if len(remaining) > 0 {
			id := remaining[0]
			next = &id
		}
		return s.stores.Users.SetCurrentWorkspace(sc, userID, next)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("workspace deleted",
		zap.String("workspace_id", wsID.Hex()),
		zap.String("user_id", userID.Hex()))
	return next, nil
}

// ChangeMemberRole gives memberUserID the role roleID. The guard runs before
// the target member or role is read. The owner's role cannot be changed and
// the owner role cannot be handed out.
func (s *Service) ChangeMemberRole(ctx context.Context, userID, wsID, memberUserID, roleID primitive.ObjectID) (models.Member, error) {
	if _, err := s.policy.Authorize(ctx, "workspace.change_member_role", userID, wsID, authz.ChangeMemberRole); err != nil {
		return models.Member{}, err
	}

	role, err := s.stores.Roles.GetByID(ctx, roleID)
	if err != nil {
		if errors.Is(err, rolestore.ErrNotFound) {
			return models.Member{}, apperr.NotFound("Role not found")
		}
		return models.Member{}, err
	}
	if role.Name == models.RoleOwner {
		return models.Member{}, apperr.Validation("The owner role cannot be assigned")
	}

	member, err := s.stores.Members.Get(ctx, memberUserID, wsID)
	if err != nil {
		if errors.Is(err, memberstore.ErrNotFound) {
			return models.Member{}, apperr.NotFound("Member not found in the workspace")
		}
		return models.Member{}, err
	}

	ws, err := s.workspace(ctx, wsID)
	if err != nil {
		return models.Member{}, err
	}
	if ws.IsOwnedBy(memberUserID) {
		return models.Member{}, &apperr.Error{
			Kind:    apperr.KindValidation,
			Code:    apperr.CodeOwnerCannotBeRemoved,
			Message: "The workspace owner's role cannot be changed",
		}
	}

	if err := s.stores.Members.UpdateRole(ctx, memberUserID, wsID, role.ID); err != nil {
		if errors.Is(err, memberstore.ErrNotFound) {
			return models.Member{}, apperr.NotFound("Member not found in the workspace")
		}
		return models.Member{}, err
	}
	member.RoleID = role.ID
	return *member, nil
}

func (s *Service) workspace(ctx context.Context, wsID primitive.ObjectID) (models.Workspace, error) {
	ws, err := s.stores.Workspaces.GetByID(ctx, wsID)
	if err != nil {
		if errors.Is(err, workspacestore.ErrNotFound) {
			return models.Workspace{}, apperr.NotFound("Workspace not found")
		}
		return models.Workspace{}, err
	}
	return ws, nil
}
