package auth

import (
	"context"
	"errors"

	"github.com/AnshRaj112/plant-journal-backend/internal/apperrors"
	"github.com/AnshRaj112/plant-journal-backend/internal/logging"
	"github.com/AnshRaj112/plant-journal-backend/internal/models"
	"github.com/AnshRaj112/plant-journal-backend/internal/repository"
	"github.com/AnshRaj112/plant-journal-backend/pkg/utils"
)

// AdminFinder is the part of the admin repository login needs.
type AdminFinder interface {
	FindByUsername(ctx context.Context, username string) (*models.Admin, error)
}

// Service authenticates the admin and issues tokens.
type Service struct {
	admins AdminFinder
	tokens *TokenIssuer
}

func NewService(admins AdminFinder, tokens *TokenIssuer) *Service {
	return &Service{admins: admins, tokens: tokens}
}

// Login checks username and password and returns a bearer token. Unknown
// users and wrong passwords yield the same AuthInvalid error.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	admin, err := s.admins.FindByUsername(ctx, utils.NormalizeUsername(username))
	if err != nil {
		if errors.Is(err, repository.ErrAdminNotFound) {
			return "", &apperrors.AuthError{Kind: apperrors.AuthInvalid}
		}
		return "", err
	}

	ok, err := utils.VerifyPassword(password, admin.Hash())
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("admin_id", admin.ID).Msg("stored admin hash is unreadable")
		return "", &apperrors.AuthError{Kind: apperrors.AuthInvalid}
	}
	if !ok {
		return "", &apperrors.AuthError{Kind: apperrors.AuthInvalid}
	}
	if utils.NeedsRehash(admin.Hash()) {
		logging.Ctx(ctx).Warn().Str("admin_id", admin.ID).Msg("admin password uses a legacy bcrypt hash; re-run createadmin to upgrade")
	}

	return s.tokens.Issue(admin.ID)
}

// Verify resolves a bearer token to the admin identity.
func (s *Service) Verify(token string) (string, error) {
	return s.tokens.Verify(token)
}
