package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/safehealth/portal/internal/api/middleware"
	"github.com/safehealth/portal/internal/core/domain"
)

// ctxIdentity returns the identity resolved by the Protect middleware.
// A missing identity means the route was mounted without Protect and is
// reported as unauthenticated.
func ctxIdentity(c echo.Context) (*domain.Identity, error) {
	id, ok := c.Get(middleware.IdentityKey).(domain.Identity)
	if !ok {
		return nil, domain.ErrUnauthenticated
	}
	return &id, nil
}
