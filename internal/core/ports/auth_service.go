package ports

import (
	"context"
	"time"

	"github.com/safehealth/portal/internal/core/domain"
)

// RegisterInput carries the fields accepted by the register endpoint.
type RegisterInput struct {
	Email    string
	Password string
	Role     string
	Profile  domain.Profile
	IP       string
}

// LoginInput carries login credentials. ExpectedRole is optional; when set the
// account must hold that role.
type LoginInput struct {
	Email        string
	Password     string
	ExpectedRole string
	IP           string
}

// ChangePasswordInput carries a password rotation request for the acting user.
type ChangePasswordInput struct {
	CurrentPassword string
	NewPassword     string
	IP              string
}

// AuthResult is returned by every operation that issues credentials.
type AuthResult struct {
	User         *domain.User
	Token        string
	RefreshToken string
	ExpiresAt    time.Time
	RedirectTo   string
}

type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, in LoginInput) (*AuthResult, error)
	CurrentIdentity(ctx context.Context, id *domain.Identity) (*domain.User, error)
	Refresh(ctx context.Context, refreshToken string) (*AuthResult, error)
	ChangePassword(ctx context.Context, id *domain.Identity, in ChangePasswordInput) error
	UpdateProfile(ctx context.Context, id *domain.Identity, profile domain.Profile) (*domain.User, error)
}
