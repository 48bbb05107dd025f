package middleware

import (
	"slices"

	"github.com/labstack/echo/v4"

	"github.com/safehealth/portal/internal/core/domain"
)

// RequireRoles rejects requests whose identity does not hold one of roles.
// It must run after Protect.
func RequireRoles(roles ...domain.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := c.Get(IdentityKey).(domain.Identity)
			if !ok {
				return domain.ErrUnauthenticated
			}
			if !slices.Contains(roles, id.Role) {
				return domain.ErrForbidden
			}
			return next(c)
		}
	}
}
