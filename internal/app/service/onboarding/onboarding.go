// Package onboarding provisions accounts: email/password registration,
// external-identity sign-in and password verification.
//
// A new identity is onboarded atomically. Inside one transaction it gets a
// user, an account for its provider, a personal workspace it owns, an
// owner membership, and that workspace as its current workspace. Either all
// six writes commit or none do.
package onboarding

import (
	"context"
	"time"

	accountstore "github.com/dalemusser/taskhub/internal/app/store/accounts"
	memberstore "github.com/dalemusser/taskhub/internal/app/store/members"
	rolestore "github.com/dalemusser/taskhub/internal/app/store/roles"
	userstore "github.com/dalemusser/taskhub/internal/app/store/users"
	workspacestore "github.com/dalemusser/taskhub/internal/app/store/workspaces"
	"github.com/dalemusser/taskhub/internal/app/system/metrics"
	"github.com/dalemusser/taskhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// DefaultWorkspaceName names the personal workspace created at onboarding.
const DefaultWorkspaceName = "My Workspace"

// UserStore is the subset of the user store onboarding needs.
type UserStore interface {
	Create(ctx context.Context, u models.User) (models.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	SetCurrentWorkspace(ctx context.Context, id primitive.ObjectID, wsID *primitive.ObjectID) error
	UpdateLastLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error
}

// AccountStore is the subset of the account store onboarding needs.
type AccountStore interface {
	Create(ctx context.Context, a models.Account) (models.Account, error)
	GetByProvider(ctx context.Context, provider, providerID string) (*models.Account, error)
}

// WorkspaceStore creates workspaces.
type WorkspaceStore interface {
	Create(ctx context.Context, ws models.Workspace) (models.Workspace, error)
}

// RoleStore looks roles up by name.
type RoleStore interface {
	GetByName(ctx context.Context, name string) (*models.Role, error)
}

// MemberStore creates memberships.
type MemberStore interface {
	Create(ctx context.Context, m models.Member) (models.Member, error)
}

// TxRunner runs fn in a transaction; txn.Runner implements it.
type TxRunner interface {
	Run(ctx context.Context, fn func(sc mongo.SessionContext) error) error
}

// Stores groups the collaborators of Service.
type Stores struct {
	Users      UserStore
	Accounts   AccountStore
	Workspaces WorkspaceStore
	Roles      RoleStore
	Members    MemberStore
}

// StoresFromDB wires Stores to MongoDB.
func StoresFromDB(db *mongo.Database) Stores {
	return Stores{
		Users:      userstore.New(db),
		Accounts:   accountstore.New(db),
		Workspaces: workspacestore.New(db),
		Roles:      rolestore.New(db),
		Members:    memberstore.New(db),
	}
}

// Config tunes a Service. Zero values pick the defaults.
type Config struct {
	WorkspaceName string
	BcryptCost    int
	Metrics       *metrics.Metrics
}

// Service provisions accounts.
type Service struct {
	stores        Stores
	tx            TxRunner
	log           *zap.Logger
	metrics       *metrics.Metrics
	workspaceName string
	bcryptCost    int
	inviteCode    func() string
	now           func() time.Time
}

// New creates a Service.
func New(stores Stores, tx TxRunner, cfg Config, logger *zap.Logger) *Service {
	if cfg.WorkspaceName == "" {
		cfg.WorkspaceName = DefaultWorkspaceName
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		stores:        stores,
		tx:            tx,
		log:           logger,
		metrics:       cfg.Metrics,
		workspaceName: cfg.WorkspaceName,
		bcryptCost:    cfg.BcryptCost,
		inviteCode:    workspacestore.NewInviteCode,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Result describes the user a provisioning call resolved to.
type Result struct {
	User models.User
	// WorkspaceID is the user's current workspace (NilObjectID if none).
	WorkspaceID primitive.ObjectID
	// Created is true when the call onboarded a new user.
	Created bool
}

func existingResult(u models.User) Result {
	r := Result{User: u}
	if u.CurrentWorkspace != nil {
		r.WorkspaceID = *u.CurrentWorkspace
	}
	return r
}
