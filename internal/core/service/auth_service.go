package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/safehealth/portal/internal/core/domain"
	"github.com/safehealth/portal/internal/core/ports"
	"github.com/safehealth/portal/internal/core/roleroute"
	"github.com/safehealth/portal/internal/pkg/metrics"
)

// AuthOptions carries the optional collaborators of AuthService. Nil
// collaborators disable the corresponding feature.
type AuthOptions struct {
	Policy     PasswordPolicy
	Limiter    ports.LoginLimiter
	Events     ports.AuthEventPublisher
	Routes     *roleroute.Router
	BcryptCost int
}

// AuthService implements registration, login and session renewal.
type AuthService struct {
	repo      ports.AuthRepository
	creds     *CredentialService
	policy    PasswordPolicy
	limiter   ports.LoginLimiter
	events    ports.AuthEventPublisher
	routes    *roleroute.Router
	cost      int
	dummyHash []byte
	validate  *validator.Validate
	log       zerolog.Logger
	now       func() time.Time
}

func NewAuthService(repo ports.AuthRepository, creds *CredentialService, opts AuthOptions, log zerolog.Logger) *AuthService {
	if opts.Policy.MinLength <= 0 {
		opts.Policy = DefaultPasswordPolicy()
	}
	if opts.Routes == nil {
		opts.Routes = roleroute.New()
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}

	// Compared against when the email is unknown so both failure paths pay
	// for one bcrypt comparison.
	dummy, _ := bcrypt.GenerateFromPassword([]byte("safe-portal-unknown-account"), opts.BcryptCost)

	return &AuthService{
		repo:      repo,
		creds:     creds,
		policy:    opts.Policy,
		limiter:   opts.Limiter,
		events:    opts.Events,
		routes:    opts.Routes,
		cost:      opts.BcryptCost,
		dummyHash: dummy,
		validate:  validator.New(),
		log:       log,
		now:       time.Now,
	}
}

func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
	email := domain.NormalizeEmail(in.Email)
	if email == "" {
		return nil, domain.Validation("email is required")
	}
	if err := s.validate.Var(email, "email"); err != nil {
		return nil, domain.Validation("email must be a valid email")
	}
	role, err := domain.ParseRole(in.Role)
	if err != nil {
		return nil, domain.Validation("role must be one of: patient, doctor, pharmacist, admin")
	}
	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, domain.ErrDuplicateEmail
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	if err := s.policy.Check(in.Password); err != nil {
		return nil, err
	}

	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	created, err := s.repo.Create(ctx, &domain.User{
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Profile:      in.Profile,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, err
	}

	result, err := s.issue(created)
	if err != nil {
		return nil, err
	}

	metrics.RegistrationsTotal.WithLabelValues(role.String()).Inc()
	s.publish(domain.EventRegistered, created.ID, email, role, in.IP)
	return result, nil
}

// Login authenticates by email and password. Unknown email, wrong password
// and role mismatch all yield the same ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, in ports.LoginInput) (*ports.AuthResult, error) {
	email := domain.NormalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	if s.limiter != nil {
		locked, err := s.limiter.Locked(ctx, email)
		if err != nil {
			s.log.Warn().Err(err).Msg("login limiter check failed, continuing")
		} else if locked {
			metrics.LoginAttemptsTotal.WithLabelValues("throttled").Inc()
			s.publish(domain.EventLoginThrottled, "", email, 0, in.IP)
			return nil, domain.ErrTooManyAttempts
		}
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(in.Password))
			return nil, s.loginFailed(ctx, "", email, in.IP)
		}
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)) != nil {
		return nil, s.loginFailed(ctx, user.ID, email, in.IP)
	}

	if in.ExpectedRole != "" {
		expected, err := domain.ParseRole(in.ExpectedRole)
		if err != nil || expected != user.Role {
			return nil, s.loginFailed(ctx, user.ID, email, in.IP)
		}
	}

	if s.limiter != nil {
		if err := s.limiter.Reset(ctx, email); err != nil {
			s.log.Warn().Err(err).Msg("login limiter reset failed")
		}
	}

	result, err := s.issue(user)
	if err != nil {
		return nil, err
	}

	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	s.publish(domain.EventLoginSucceeded, user.ID, email, user.Role, in.IP)
	return result, nil
}

// CurrentIdentity returns the stored account of the acting identity.
func (s *AuthService) CurrentIdentity(ctx context.Context, id *domain.Identity) (*domain.User, error) {
	if id == nil || id.UserID == "" {
		return nil, domain.ErrUnauthenticated
	}
	return s.findAccount(ctx, id.UserID)
}

// Refresh exchanges a refresh token for a new token pair. The role is taken
// from the stored account, not from the presented token.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*ports.AuthResult, error) {
	cred, err := s.creds.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.findAccount(ctx, cred.Subject)
	if err != nil {
		return nil, err
	}

	result, err := s.issue(user)
	if err != nil {
		return nil, err
	}
	s.publish(domain.EventTokenRefreshed, user.ID, user.Email, user.Role, "")
	return result, nil
}

func (s *AuthService) ChangePassword(ctx context.Context, id *domain.Identity, in ports.ChangePasswordInput) error {
	if id == nil || id.UserID == "" {
		return domain.ErrUnauthenticated
	}

	user, err := s.findAccount(ctx, id.UserID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.CurrentPassword)) != nil {
		return domain.ErrInvalidCredentials
	}
	if err := s.policy.Check(in.NewPassword); err != nil {
		return err
	}

	hash, err := s.hashPassword(in.NewPassword)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePassword(ctx, user.ID, hash); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrUnauthenticated
		}
		return err
	}

	s.publish(domain.EventPasswordChanged, user.ID, user.Email, user.Role, in.IP)
	return nil
}

// UpdateProfile replaces the personal fields of the acting account.
func (s *AuthService) UpdateProfile(ctx context.Context, id *domain.Identity, profile domain.Profile) (*domain.User, error) {
	if id == nil || id.UserID == "" {
		return nil, domain.ErrUnauthenticated
	}

	profile = domain.Profile{
		FirstName: strings.TrimSpace(profile.FirstName),
		LastName:  strings.TrimSpace(profile.LastName),
		Phone:     strings.TrimSpace(profile.Phone),
	}
	if err := s.repo.UpdateProfile(ctx, id.UserID, profile); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUnauthenticated
		}
		return nil, err
	}

	user, err := s.findAccount(ctx, id.UserID)
	if err != nil {
		return nil, err
	}
	s.publish(domain.EventProfileUpdated, user.ID, user.Email, user.Role, "")
	return user, nil
}

func (s *AuthService) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", domain.Validation("password must be at most %d bytes", MaxPasswordBytes)
		}
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// findAccount loads a user by id, treating a missing account as an
// unauthenticated caller.
func (s *AuthService) findAccount(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUnauthenticated
		}
		return nil, err
	}
	return user, nil
}

func (s *AuthService) issue(user *domain.User) (*ports.AuthResult, error) {
	token, err := s.creds.Issue(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	refresh, err := s.creds.IssueRefresh(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	return &ports.AuthResult{
		User:         user,
		Token:        token,
		RefreshToken: refresh,
		ExpiresAt:    s.now().UTC().Add(s.creds.AccessTTL()),
		RedirectTo:   s.routes.RedirectTarget(user.Role),
	}, nil
}

func (s *AuthService) loginFailed(ctx context.Context, userID, email, ip string) error {
	if s.limiter != nil {
		if err := s.limiter.RecordFailure(ctx, email); err != nil {
			s.log.Warn().Err(err).Msg("login limiter record failed")
		}
	}
	metrics.LoginAttemptsTotal.WithLabelValues("invalid_credentials").Inc()
	s.publish(domain.EventLoginFailed, userID, email, 0, ip)
	return domain.ErrInvalidCredentials
}

func (s *AuthService) publish(t domain.AuthEventType, userID, email string, role domain.Role, ip string) {
	if s.events == nil {
		return
	}
	s.events.Publish(domain.AuthEvent{
		Type:   t,
		UserID: userID,
		Email:  email,
		Role:   role,
		IP:     ip,
		At:     s.now().UTC(),
	})
}
