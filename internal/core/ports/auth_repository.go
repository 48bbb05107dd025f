package ports

import (
	"context"

	"github.com/safehealth/portal/internal/core/domain"
)

// AuthRepository defines the interface for user account persistence.
// Lookups return domain.ErrUserNotFound when no account matches.
type AuthRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateProfile(ctx context.Context, id string, profile domain.Profile) error
}
