// Package roleroute maps portal roles to their landing routes and decides
// whether a client-side navigation should be allowed.
//
// Decisions made here are advisory. The server-side auth middleware is the
// only security boundary; clients use Guard to avoid rendering screens the
// API will refuse anyway.
package roleroute

import "github.com/safehealth/portal/internal/core/domain"

const (
	LoginRoute        = "/login"
	UnauthorizedRoute = "/unauthorized"
)

var defaultRoutes = map[domain.Role]string{
	domain.RolePatient:    "/patient",
	domain.RoleDoctor:     "/doctor",
	domain.RolePharmacist: "/pharmacist",
	domain.RoleAdmin:      "/admin",
}

// Router holds a static role to landing route table.
type Router struct {
	routes   map[domain.Role]string
	fallback string
}

// New returns a Router with the portal's standard landing routes.
func New() *Router {
	return NewWithRoutes(defaultRoutes, LoginRoute)
}

// NewWithRoutes returns a Router over a copy of routes. Unmapped roles
// resolve to fallback.
func NewWithRoutes(routes map[domain.Role]string, fallback string) *Router {
	m := make(map[domain.Role]string, len(routes))
	for r, path := range routes {
		m[r] = path
	}
	return &Router{routes: m, fallback: fallback}
}

// RedirectTarget returns the landing route for role.
func (r *Router) RedirectTarget(role domain.Role) string {
	if path, ok := r.routes[role]; ok {
		return path
	}
	return r.fallback
}

// Decision is the outcome of Guard. Redirect is set only when Allowed is false.
type Decision struct {
	Allowed  bool
	Redirect string
}

// Guard reports whether current may enter a screen restricted to required.
// An invalid current role means no cached credential and redirects to login.
// An empty required set admits any authenticated role.
func (r *Router) Guard(required []domain.Role, current domain.Role) Decision {
	if !current.Valid() {
		return Decision{Redirect: LoginRoute}
	}
	if len(required) == 0 {
		return Decision{Allowed: true}
	}
	for _, want := range required {
		if want == current {
			return Decision{Allowed: true}
		}
	}
	return Decision{Redirect: UnauthorizedRoute}
}
