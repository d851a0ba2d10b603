package onboarding

import (
	"context"
	"errors"

	rolestore "github.com/dalemusser/taskhub/internal/app/store/roles"
	"github.com/dalemusser/taskhub/internal/app/system/apperr"
	"github.com/dalemusser/taskhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// intent is what onboarding needs to know about a new identity.
type intent struct {
	Name         string
	Email        *string
	PasswordHash *string
	Picture      *string
	Provider     string
	ProviderID   string
}

// onboard creates the user, account, personal workspace and owner
// membership in one transaction and points the user at the workspace.
// Any failure aborts the transaction; the error is returned unchanged.
func (s *Service) onboard(ctx context.Context, in intent) (Result, error) {
	var res Result
	err := s.tx.Run(ctx, func(sc mongo.SessionContext) error {
		u, err := s.stores.Users.Create(sc, models.User{
			Name:           in.Name,
			Email:          in.Email,
			PasswordHash:   in.PasswordHash,
			ProfilePicture: in.Picture,
			IsActive:       true,
		})
		if err != nil {
			return err
		}

		if _, err := s.stores.Accounts.Create(sc, models.Account{
			Provider:   in.Provider,
			ProviderID: in.ProviderID,
			UserID:     u.ID,
		}); err != nil {
			return err
		}

		ws, err := s.stores.Workspaces.Create(sc, models.Workspace{
			Name:        s.workspaceName,
			Description: "Workspace created for " + u.Name,
			Owner:       u.ID,
			InviteCode:  s.inviteCode(),
		})
		if err != nil {
			return err
		}

		owner, err := s.stores.Roles.GetByName(sc, models.RoleOwner)
		if err != nil {
			if errors.Is(err, rolestore.ErrNotFound) {
				return apperr.Config("Owner role not found", err)
			}
			return err
		}

		if _, err := s.stores.Members.Create(sc, models.Member{
			UserID:      u.ID,
			WorkspaceID: ws.ID,
			RoleID:      owner.ID,
			JoinedAt:    s.now(),
		}); err != nil {
			return err
		}

		if err := s.stores.Users.SetCurrentWorkspace(sc, u.ID, &ws.ID); err != nil {
			return err
		}

		u.CurrentWorkspace = &ws.ID
		res = Result{User: u, WorkspaceID: ws.ID, Created: true}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	s.log.Info("user onboarded",
		zap.String("user_id", res.User.ID.Hex()),
		zap.String("workspace_id", res.WorkspaceID.Hex()),
		zap.String("provider", in.Provider))
	return res, nil
}
