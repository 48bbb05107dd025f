package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/safehealth/portal/internal/core/domain"
)

const (
	DefaultAccessTTL  = 24 * time.Hour
	DefaultRefreshTTL = 7 * 24 * time.Hour

	tokenIssuer = "safe-portal"
	useAccess   = "access"
	useRefresh  = "refresh"
)

// ErrMissingSecret is returned when the service is built without a signing key.
var ErrMissingSecret = errors.New("credential service: signing secret is required")

type tokenClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
	Use  string `json:"use"`
}

// CredentialService issues and verifies HS256 tokens. It holds no mutable
// state and is safe for concurrent use.
type CredentialService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewCredentialService(secret string, accessTTL, refreshTTL time.Duration) (*CredentialService, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTTL
	}
	return &CredentialService{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}, nil
}

// AccessTTL is the lifetime of tokens returned by Issue.
func (s *CredentialService) AccessTTL() time.Duration { return s.accessTTL }

// Issue returns a signed access token for userID.
func (s *CredentialService) Issue(userID string, role domain.Role) (string, error) {
	return s.sign(userID, role, useAccess, s.accessTTL)
}

// IssueRefresh returns a signed refresh token for userID. Refresh tokens are
// rejected by Verify.
func (s *CredentialService) IssueRefresh(userID string, role domain.Role) (string, error) {
	return s.sign(userID, role, useRefresh, s.refreshTTL)
}

// Verify decodes an access token.
func (s *CredentialService) Verify(token string) (domain.Credential, error) {
	return s.verify(token, useAccess)
}

// VerifyRefresh decodes a refresh token.
func (s *CredentialService) VerifyRefresh(token string) (domain.Credential, error) {
	return s.verify(token, useRefresh)
}

func (s *CredentialService) sign(userID string, role domain.Role, use string, ttl time.Duration) (string, error) {
	if userID == "" || !role.Valid() {
		return "", domain.Validation("cannot issue token for subject %q with role %s", userID, role)
	}

	now := s.now().UTC()
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    tokenIssuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role: role.String(),
		Use:  use,
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.secret)
}

func (s *CredentialService) verify(token, use string) (domain.Credential, error) {
	if token == "" {
		return domain.Credential{}, domain.ErrTokenMalformed
	}

	claims := &tokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.Credential{}, domain.ErrTokenExpired
		}
		return domain.Credential{}, &domain.Error{Kind: domain.KindTokenMalformed, Message: domain.ErrTokenMalformed.Message, Err: err}
	}
	if !parsed.Valid || claims.Use != use || claims.Subject == "" {
		return domain.Credential{}, domain.ErrTokenMalformed
	}

	role, err := domain.ParseRole(claims.Role)
	if err != nil {
		return domain.Credential{}, domain.ErrTokenMalformed
	}

	return domain.Credential{
		Subject:   claims.Subject,
		Role:      role,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
