package services

import (
	"context"
	"errors"

	"github.com/flowbit/support-platform/internal/auth"
	"github.com/flowbit/support-platform/internal/core/domain"
	apperrors "github.com/flowbit/support-platform/internal/core/errors"
	"github.com/flowbit/support-platform/internal/core/ports"
)

// IdentityService resolves bearer credentials into caller identities. It
// holds no per-request state; resolution is a pure lookup against the user
// store and runs before any other tenant-scoped query.
type IdentityService struct {
	tokens   *auth.TokenManager
	userRepo ports.UserRepository
}

var _ ports.IdentityResolver = (*IdentityService)(nil)

// NewIdentityService creates a new identity service.
func NewIdentityService(tokens *auth.TokenManager, userRepo ports.UserRepository) ports.IdentityResolver {
	return &IdentityService{
		tokens:   tokens,
		userRepo: userRepo,
	}
}

// Resolve validates the credential and loads the account it names. The user
// lookup is scoped to the tenant the claims assert, so a forged tenant claim
// resolves to nothing rather than to another tenant's account.
func (s *IdentityService) Resolve(ctx context.Context, bearerToken string) (*domain.Identity, error) {
	if bearerToken == "" {
		return nil, apperrors.ErrUnauthenticated
	}

	claims, err := s.tokens.ValidateToken(bearerToken)
	if err != nil {
		return nil, apperrors.ErrInvalidCredential
	}

	user, err := s.userRepo.GetByID(ctx, claims.TenantID, claims.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidCredential
		}
		return nil, err
	}

	if !user.IsActive {
		return nil, apperrors.ErrInactiveAccount
	}

	return &domain.Identity{
		UserID:   user.ID,
		TenantID: user.TenantID,
		Role:     user.Role,
	}, nil
}
