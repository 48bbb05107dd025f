package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/safehealth/portal/internal/core/domain"
	"github.com/safehealth/portal/internal/core/ports"
	"github.com/safehealth/portal/internal/pkg/metrics"
)

// IdentityKey is the echo.Context key holding the resolved domain.Identity.
const IdentityKey = "identity"

// UserFinder loads the account named by a credential's subject.
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
}

// Protect verifies the bearer credential and reloads the account on every
// request, so deleted accounts and role changes take effect immediately.
// Verification failures keep their kind (TokenExpired, TokenMalformed).
func Protect(verifier ports.CredentialVerifier, users UserFinder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				metrics.TokenVerificationsTotal.WithLabelValues(domain.KindUnauthenticated.String()).Inc()
				return domain.ErrUnauthenticated
			}

			cred, err := verifier.Verify(token)
			if err != nil {
				metrics.TokenVerificationsTotal.WithLabelValues(domain.KindOf(err).String()).Inc()
				return err
			}

			ctx := c.Request().Context()
			user, err := users.FindByID(ctx, cred.Subject)
			if err != nil {
				if errors.Is(err, domain.ErrUserNotFound) {
					metrics.TokenVerificationsTotal.WithLabelValues(domain.KindUnauthenticated.String()).Inc()
					return domain.ErrUnauthenticated
				}
				return err
			}
			metrics.TokenVerificationsTotal.WithLabelValues("ok").Inc()

			id := domain.Identity{UserID: user.ID, Role: user.Role}
			c.SetRequest(c.Request().WithContext(domain.WithIdentity(ctx, id)))
			c.Set(IdentityKey, id)
			return next(c)
		}
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
