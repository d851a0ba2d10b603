package onboarding

import (
	"context"
	"errors"

	accountstore "github.com/dalemusser/taskhub/internal/app/store/accounts"
	userstore "github.com/dalemusser/taskhub/internal/app/store/users"
	"github.com/dalemusser/taskhub/internal/app/system/apperr"
	"github.com/dalemusser/taskhub/internal/app/system/metrics"
	"github.com/dalemusser/taskhub/internal/app/system/normalize"
	"github.com/dalemusser/taskhub/internal/domain/models"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Message for every failed password sign-in, whatever the cause.
const invalidCredentials = "Invalid email or password"

// RegisterInput is an email/password registration.
type RegisterInput struct {
	Email    string
	Name     string
	Password string
}

// ExternalIdentity is an identity asserted by an external provider.
type ExternalIdentity struct {
	Provider    string
	ProviderID  string
	DisplayName string
	Picture     string
	Email       string
}

func errEmailExists() error {
	return apperr.Duplicate(apperr.CodeEmailAlreadyExists, "Email already exists")
}

// isIdentityConflict reports whether err is a unique-index violation on the
// user email or on the provider identity.
func isIdentityConflict(err error) bool {
	return errors.Is(err, userstore.ErrDuplicateEmail) || errors.Is(err, accountstore.ErrDuplicate)
}

// Register onboards a new email/password user. An email that is already
// taken fails with KindDuplicate before any write; a concurrent
// registration losing the race on the unique email index fails the same way.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Result, error) {
	email := normalize.Email(in.Email)

	exists, err := s.stores.Users.EmailExists(ctx, email)
	if err != nil {
		s.metrics.Onboarding(models.ProviderEmail, metrics.OutcomeFailed)
		return Result{}, apperr.Internal("failed to check email", err)
	}
	if exists {
		s.metrics.Onboarding(models.ProviderEmail, metrics.OutcomeFailed)
		return Result{}, errEmailExists()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		s.metrics.Onboarding(models.ProviderEmail, metrics.OutcomeFailed)
		return Result{}, apperr.Internal("failed to hash password", err)
	}
	h := string(hash)

	res, err := s.onboard(ctx, intent{
		Name:         normalize.Name(in.Name),
		Email:        &email,
		PasswordHash: &h,
		Provider:     models.ProviderEmail,
		ProviderID:   email,
	})
	if err != nil {
		s.metrics.Onboarding(models.ProviderEmail, metrics.OutcomeFailed)
		if isIdentityConflict(err) {
			return Result{}, errEmailExists()
		}
		return Result{}, err
	}

	s.metrics.Onboarding(models.ProviderEmail, metrics.OutcomeCreated)
	return res, nil
}

// LoginOrCreate resolves an external identity to a user. A known
// (provider, provider id) returns its user; otherwise a user with the same
// email is returned unchanged; otherwise the identity is onboarded.
// Repeated calls with the same identity never create a second user.
func (s *Service) LoginOrCreate(ctx context.Context, id ExternalIdentity) (Result, error) {
	if id.Provider == "" || id.ProviderID == "" {
		return Result{}, apperr.Validation("Provider and provider id are required.")
	}

	if res, ok, err := s.lookupExternal(ctx, id); err != nil || ok {
		if ok {
			s.metrics.Onboarding(id.Provider, metrics.OutcomeExisting)
		}
		return res, err
	}

	in := intent{
		Name:       normalize.Name(id.DisplayName),
		Provider:   id.Provider,
		ProviderID: id.ProviderID,
	}
	if in.Name == "" {
		in.Name = "User"
	}
	if e := normalize.Email(id.Email); e != "" {
		in.Email = &e
	}
	if id.Picture != "" {
		p := id.Picture
		in.Picture = &p
	}

	res, err := s.onboard(ctx, in)
	if err != nil {
		if isIdentityConflict(err) {
			// A concurrent sign-in with the same identity committed first.
			if res, ok, lerr := s.lookupExternal(ctx, id); lerr == nil && ok {
				s.metrics.Onboarding(id.Provider, metrics.OutcomeExisting)
				return res, nil
			}
			s.metrics.Onboarding(id.Provider, metrics.OutcomeFailed)
			conflict := apperr.Duplicate(apperr.CodeResourceConflict, "This sign-in conflicts with an existing account")
			conflict.Err = err
			return Result{}, conflict
		}
		s.metrics.Onboarding(id.Provider, metrics.OutcomeFailed)
		return Result{}, err
	}

	s.metrics.Onboarding(id.Provider, metrics.OutcomeCreated)
	return res, nil
}

// lookupExternal finds the user for id by account, then by email.
func (s *Service) lookupExternal(ctx context.Context, id ExternalIdentity) (Result, bool, error) {
	acc, err := s.stores.Accounts.GetByProvider(ctx, id.Provider, id.ProviderID)
	switch {
	case err == nil:
		u, err := s.stores.Users.GetByID(ctx, acc.UserID)
		if err != nil {
			if errors.Is(err, userstore.ErrNotFound) {
				return Result{}, false, apperr.Config("Account references a missing user", err)
			}
			return Result{}, false, apperr.Internal("failed to load user", err)
		}
		return existingResult(*u), true, nil
	case !errors.Is(err, accountstore.ErrNotFound):
		return Result{}, false, apperr.Internal("failed to load account", err)
	}

	if id.Email == "" {
		return Result{}, false, nil
	}
	u, err := s.stores.Users.GetByEmail(ctx, id.Email)
	switch {
	case err == nil:
		return existingResult(*u), true, nil
	case errors.Is(err, userstore.ErrNotFound):
		return Result{}, false, nil
	default:
		return Result{}, false, apperr.Internal("failed to load user", err)
	}
}

// VerifyPassword checks email/password credentials and records the login.
// Unknown email, missing password, wrong password and inactive user all
// fail with the same KindUnauthenticated error.
func (s *Service) VerifyPassword(ctx context.Context, email, password string) (models.User, error) {
	email = normalize.Email(email)

	acc, err := s.stores.Accounts.GetByProvider(ctx, models.ProviderEmail, email)
	if err != nil {
		if errors.Is(err, accountstore.ErrNotFound) {
			return models.User{}, apperr.Unauthenticated(invalidCredentials)
		}
		return models.User{}, apperr.Internal("failed to load account", err)
	}

	u, err := s.stores.Users.GetByID(ctx, acc.UserID)
	if err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			return models.User{}, apperr.Unauthenticated(invalidCredentials)
		}
		return models.User{}, apperr.Internal("failed to load user", err)
	}
	if u.PasswordHash == nil || !u.IsActive {
		return models.User{}, apperr.Unauthenticated(invalidCredentials)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*u.PasswordHash), []byte(password)); err != nil {
		return models.User{}, apperr.Unauthenticated(invalidCredentials)
	}

	if err := s.stores.Users.UpdateLastLogin(ctx, u.ID, s.now()); err != nil {
		s.log.Warn("failed to record last login", zap.String("user_id", u.ID.Hex()), zap.Error(err))
	}
	return *u, nil
}
