package onboarding_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dalemusser/taskhub/internal/app/service/onboarding"
	userstore "github.com/dalemusser/taskhub/internal/app/store/users"
	"github.com/dalemusser/taskhub/internal/app/system/apperr"
	"github.com/dalemusser/taskhub/internal/app/system/metrics"
	"github.com/dalemusser/taskhub/internal/app/system/txn"
	"github.com/dalemusser/taskhub/internal/domain/models"
	"github.com/dalemusser/taskhub/internal/testutil"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var errInjected = errors.New("injected failure")

// Failing decorators for each write the onboarding sequence performs.

type failingUsers struct {
	onboarding.UserStore
	failCreate, failSetCurrent bool
}

func (f failingUsers) Create(ctx context.Context, u models.User) (models.User, error) {
	if f.failCreate {
		return models.User{}, errInjected
	}
	return f.UserStore.Create(ctx, u)
}

func (f failingUsers) SetCurrentWorkspace(ctx context.Context, id primitive.ObjectID, ws *primitive.ObjectID) error {
	if f.failSetCurrent {
		return errInjected
	}
	return f.UserStore.SetCurrentWorkspace(ctx, id, ws)
}

// conflictingUsers reports a unique-index violation for every insert.
type conflictingUsers struct{ onboarding.UserStore }

func (conflictingUsers) Create(context.Context, models.User) (models.User, error) {
	return models.User{}, userstore.ErrDuplicateEmail
}

type failingAccounts struct{ onboarding.AccountStore }

func (failingAccounts) Create(context.Context, models.Account) (models.Account, error) {
	return models.Account{}, errInjected
}

type failingWorkspaces struct{ onboarding.WorkspaceStore }

func (failingWorkspaces) Create(context.Context, models.Workspace) (models.Workspace, error) {
	return models.Workspace{}, errInjected
}

type failingMembers struct{ onboarding.MemberStore }

func (failingMembers) Create(context.Context, models.Member) (models.Member, error) {
	return models.Member{}, errInjected
}

type env struct {
	db       *mongo.Database
	fixtures *testutil.Fixtures
	stores   onboarding.Stores
	tx       *txn.Runner
	metrics  *metrics.Metrics
}

func setup(t *testing.T, seedRoles bool) (*env, context.Context) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	testutil.RequireTransactions(t, db)
	ctx, cancel := testutil.TestContext()
	t.Cleanup(cancel)

	e := &env{
		db:       db,
		fixtures: testutil.NewFixtures(t, db),
		stores:   onboarding.StoresFromDB(db),
		tx:       txn.New(db.Client(), zap.NewNop()),
		metrics:  metrics.New(),
	}
	if seedRoles {
		e.fixtures.SeedRoles(ctx)
	}
	return e, ctx
}

func (e *env) service(stores onboarding.Stores) *onboarding.Service {
	return onboarding.New(stores, e.tx, onboarding.Config{
		BcryptCost: bcrypt.MinCost,
		Metrics:    e.metrics,
	}, zap.NewNop())
}

func (e *env) counts(ctx context.Context) map[string]int64 {
	out := map[string]int64{}
	for _, c := range []string{"users", "accounts", "workspaces", "members"} {
		out[c] = e.fixtures.Count(ctx, c, nil)
	}
	return out
}

func TestRegister_ScenarioA(t *testing.T) {
	e, ctx := setup(t, true)
	svc := e.service(e.stores)

	res, err := svc.Register(ctx, onboarding.RegisterInput{
		Email:    "alice@example.com",
		Name:     "Alice",
		Password: "s3cret-pass",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if !res.Created {
		t.Error("expected Created to be true")
	}

	for coll, want := range map[string]int64{"users": 1, "accounts": 1, "workspaces": 1, "members": 1} {
		if got := e.fixtures.Count(ctx, coll, nil); got != want {
			t.Errorf("%s: got %d documents, want %d", coll, got, want)
		}
	}

	var acc models.Account
	if err := e.db.Collection("accounts").FindOne(ctx, bson.M{}).Decode(&acc); err != nil {
		t.Fatalf("load account: %v", err)
	}
	if acc.Provider != models.ProviderEmail || acc.ProviderID != "alice@example.com" || acc.UserID != res.User.ID {
		t.Errorf("unexpected account: %+v", acc)
	}

	var ws models.Workspace
	if err := e.db.Collection("workspaces").FindOne(ctx, bson.M{}).Decode(&ws); err != nil {
		t.Fatalf("load workspace: %v", err)
	}
	if ws.Name != "My Workspace" {
		t.Errorf("workspace name: got %q", ws.Name)
	}
	if ws.Description != "Workspace created for Alice" {
		t.Errorf("workspace description: got %q", ws.Description)
	}
	if !ws.IsOwnedBy(res.User.ID) {
		t.Error("expected the new user to own the workspace")
	}
	if len(ws.InviteCode) != 8 {
		t.Errorf("invite code: got %q", ws.InviteCode)
	}

	var m models.Member
	if err := e.db.Collection("members").FindOne(ctx, bson.M{}).Decode(&m); err != nil {
		t.Fatalf("load member: %v", err)
	}
	var role models.Role
	if err := e.db.Collection("roles").FindOne(ctx, bson.M{"_id": m.RoleID}).Decode(&role); err != nil {
		t.Fatalf("load role: %v", err)
	}
	if role.Name != models.RoleOwner || m.WorkspaceID != ws.ID || m.UserID != res.User.ID {
		t.Errorf("unexpected member: %+v (role %q)", m, role.Name)
	}

	var u models.User
	if err := e.db.Collection("users").FindOne(ctx, bson.M{"_id": res.User.ID}).Decode(&u); err != nil {
		t.Fatalf("load user: %v", err)
	}
	if u.CurrentWorkspace == nil || *u.CurrentWorkspace != ws.ID {
		t.Errorf("current workspace: got %v, want %v", u.CurrentWorkspace, ws.ID)
	}
	if u.PasswordHash == nil || *u.PasswordHash == "s3cret-pass" {
		t.Error("expected a hashed password")
	}
	if res.WorkspaceID != ws.ID {
		t.Errorf("result workspace: got %v, want %v", res.WorkspaceID, ws.ID)
	}

	if got := promtest.ToFloat64(e.metrics.OnboardingTotal.WithLabelValues(models.ProviderEmail, metrics.OutcomeCreated)); got != 1 {
		t.Errorf("onboarding metric: got %v, want 1", got)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	e, ctx := setup(t, true)
	svc := e.service(e.stores)

	if _, err := svc.Register(ctx, onboarding.RegisterInput{Email: "bob@example.com", Name: "Bob", Password: "password1"}); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}
	before := e.counts(ctx)

	_, err := svc.Register(ctx, onboarding.RegisterInput{Email: " BOB@example.com ", Name: "Bobby", Password: "password2"})
	ae, ok := apperr.As(err)
	if !ok || ae.Kind != apperr.KindDuplicate || ae.Code != apperr.CodeEmailAlreadyExists {
		t.Fatalf("expected duplicate email error, got %v", err)
	}

	after := e.counts(ctx)
	for coll, n := range before {
		if after[coll] != n {
			t.Errorf("%s changed: %d -> %d", coll, n, after[coll])
		}
	}
}

func TestRegister_ConcurrentSameEmail(t *testing.T) {
	e, ctx := setup(t, true)
	svc := e.service(e.stores)

	const n = 4
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Register(ctx, onboarding.RegisterInput{Email: "race@example.com", Name: "Racer", Password: "password1"})
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case apperr.Is(err, apperr.KindDuplicate):
		case txn.IsNotSupported(err):
			t.Skipf("transactions unavailable: %v", err)
		default:
			// Write conflicts between concurrent transactions are also a
			// valid way to lose the race.
			t.Logf("loser error: %v", err)
		}
	}
	if ok != 1 {
		t.Fatalf("expected exactly one successful registration, got %d", ok)
	}
	if got := e.fixtures.Count(ctx, "users", bson.M{"email": "race@example.com"}); got != 1 {
		t.Errorf("users with email: got %d, want 1", got)
	}
	if got := e.fixtures.Count(ctx, "workspaces", nil); got != 1 {
		t.Errorf("workspaces: got %d, want 1", got)
	}
}

func TestOnboard_RollbackOnEachWrite(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *onboarding.Stores)
	}{
		{"user insert", func(s *onboarding.Stores) { s.Users = failingUsers{UserStore: s.Users, failCreate: true} }},
		{"account insert", func(s *onboarding.Stores) { s.Accounts = failingAccounts{s.Accounts} }},
		{"workspace insert", func(s *onboarding.Stores) { s.Workspaces = failingWorkspaces{s.Workspaces} }},
		{"member insert", func(s *onboarding.Stores) { s.Members = failingMembers{s.Members} }},
		{"current workspace update", func(s *onboarding.Stores) {
			s.Users = failingUsers{UserStore: s.Users, failSetCurrent: true}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, ctx := setup(t, true)
			stores := e.stores
			tt.mutate(&stores)
			svc := e.service(stores)

			_, err := svc.Register(ctx, onboarding.RegisterInput{Email: "carol@example.com", Name: "Carol", Password: "password1"})
			if !errors.Is(err, errInjected) {
				t.Fatalf("expected injected error to surface unchanged, got %v", err)
			}
			for coll, n := range e.counts(ctx) {
				if n != 0 {
					t.Errorf("%s: got %d documents after rollback, want 0", coll, n)
				}
			}
		})
	}
}

func TestOnboard_MissingOwnerRole(t *testing.T) {
	e, ctx := setup(t, false)
	svc := e.service(e.stores)

	_, err := svc.Register(ctx, onboarding.RegisterInput{Email: "dave@example.com", Name: "Dave", Password: "password1"})
	if !apperr.Is(err, apperr.KindConfig) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	for coll, n := range e.counts(ctx) {
		if n != 0 {
			t.Errorf("%s: got %d documents, want 0", coll, n)
		}
	}
}

func TestLoginOrCreate_Idempotent(t *testing.T) {
	e, ctx := setup(t, true)
	svc := e.service(e.stores)

	id := onboarding.ExternalIdentity{
		Provider:    models.ProviderGoogle,
		ProviderID:  "google-42",
		DisplayName: "Erin",
		Picture:     "https://example.com/erin.png",
		Email:       "erin@example.com",
	}

	first, err := svc.LoginOrCreate(ctx, id)
	if err != nil {
		t.Fatalf("first LoginOrCreate failed: %v", err)
	}
	if !first.Created {
		t.Error("expected first call to onboard")
	}
	before := e.counts(ctx)

	second, err := svc.LoginOrCreate(ctx, id)
	if err != nil {
		t.Fatalf("second LoginOrCreate failed: %v", err)
	}
	if second.Created {
		t.Error("expected second call to find the existing user")
	}
	if second.User.ID != first.User.ID || second.WorkspaceID != first.WorkspaceID {
		t.Errorf("second call resolved to a different user/workspace: %+v vs %+v", second, first)
	}
	after := e.counts(ctx)
	for coll, n := range before {
		if after[coll] != n {
			t.Errorf("%s changed on repeat login: %d -> %d", coll, n, after[coll])
		}
	}
}

func TestLoginOrCreate_MatchesExistingEmail(t *testing.T) {
	e, ctx := setup(t, true)
	svc := e.service(e.stores)

	reg, err := svc.Register(ctx, onboarding.RegisterInput{Email: "frank@example.com", Name: "Frank", Password: "password1"})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	before := e.counts(ctx)

	res, err := svc.LoginOrCreate(ctx, onboarding.ExternalIdentity{
		Provider:   models.ProviderGoogle,
		ProviderID: "google-frank",
		Email:      "Frank@Example.com",
	})
	if err != nil {
		t.Fatalf("LoginOrCreate failed: %v", err)
	}
	if res.User.ID != reg.User.ID || res.Created {
		t.Errorf("expected existing user %v, got %+v", reg.User.ID, res)
	}
	after := e.counts(ctx)
	for coll, n := range before {
		if after[coll] != n {
			t.Errorf("%s changed: %d -> %d", coll, n, after[coll])
		}
	}
}

func TestLoginOrCreate_WithoutEmail(t *testing.T) {
	e, ctx := setup(t, true)
	svc := e.service(e.stores)

	res, err := svc.LoginOrCreate(ctx, onboarding.ExternalIdentity{Provider: models.ProviderGoogle, ProviderID: "no-email"})
	if err != nil {
		t.Fatalf("LoginOrCreate failed: %v", err)
	}
	if res.User.Email != nil {
		t.Errorf("expected no email, got %q", *res.User.Email)
	}
	if res.User.Name != "User" {
		t.Errorf("expected placeholder name, got %q", res.User.Name)
	}

	if _, err := svc.LoginOrCreate(ctx, onboarding.ExternalIdentity{Provider: models.ProviderGoogle}); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("missing provider id: expected validation error, got %v", err)
	}
}

func TestLoginOrCreate_UnresolvedConflict(t *testing.T) {
	e, ctx := setup(t, true)
	stores := e.stores
	stores.Users = conflictingUsers{stores.Users}
	svc := e.service(stores)

	_, err := svc.LoginOrCreate(ctx, onboarding.ExternalIdentity{
		Provider: models.ProviderGoogle, ProviderID: "g-conflict", Email: "hal@example.com", DisplayName: "Hal",
	})
	if !apperr.Is(err, apperr.KindDuplicate) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	if ae, _ := apperr.As(err); ae.Code != apperr.CodeResourceConflict {
		t.Errorf("code: got %q, want %q", ae.Code, apperr.CodeResourceConflict)
	}
	if !errors.Is(err, userstore.ErrDuplicateEmail) {
		t.Error("expected the store error to stay in the chain")
	}
	for coll, n := range e.counts(ctx) {
		if n != 0 {
			t.Errorf("%s: got %d documents, want 0", coll, n)
		}
	}
}

func TestVerifyPassword(t *testing.T) {
	e, ctx := setup(t, true)
	svc := e.service(e.stores)

	reg, err := svc.Register(ctx, onboarding.RegisterInput{Email: "gina@example.com", Name: "Gina", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	u, err := svc.VerifyPassword(ctx, "GINA@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("VerifyPassword failed: %v", err)
	}
	if u.ID != reg.User.ID {
		t.Errorf("user: got %v, want %v", u.ID, reg.User.ID)
	}

	var stored models.User
	_ = e.db.Collection("users").FindOne(ctx, bson.M{"_id": u.ID}).Decode(&stored)
	if stored.LastLogin == nil {
		t.Error("expected last login to be recorded")
	}

	if _, err := svc.LoginOrCreate(ctx, onboarding.ExternalIdentity{Provider: models.ProviderGoogle, ProviderID: "g-h", Email: "hal@example.com"}); err != nil {
		t.Fatalf("LoginOrCreate failed: %v", err)
	}

	tests := []struct {
		name, email, password string
	}{
		{"wrong password", "gina@example.com", "nope"},
		{"unknown email", "nobody@example.com", "correct-horse"},
		{"external-only user", "hal@example.com", "anything"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.VerifyPassword(ctx, tt.email, tt.password)
			ae, ok := apperr.As(err)
			if !ok || ae.Kind != apperr.KindUnauthenticated {
				t.Fatalf("expected unauthenticated, got %v", err)
			}
			if ae.Message != "Invalid email or password" {
				t.Errorf("message: got %q", ae.Message)
			}
		})
	}
}
