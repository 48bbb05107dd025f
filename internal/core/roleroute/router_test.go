package roleroute

import (
	"testing"

	"github.com/safehealth/portal/internal/core/domain"
)

func TestRouter_RedirectTarget(t *testing.T) {
	r := New()

	cases := map[domain.Role]string{
		domain.RolePatient:    "/patient",
		domain.RoleDoctor:     "/doctor",
		domain.RolePharmacist: "/pharmacist",
		domain.RoleAdmin:      "/admin",
	}
	for role, want := range cases {
		if got := r.RedirectTarget(role); got != want {
			t.Fatalf("RedirectTarget(%s) = %q, want %q", role, got, want)
		}
	}
}

func TestRouter_RedirectTarget_Unmapped(t *testing.T) {
	r := NewWithRoutes(map[domain.Role]string{domain.RoleDoctor: "/doctor"}, "/home")

	if got := r.RedirectTarget(domain.RolePatient); got != "/home" {
		t.Fatalf("expected fallback, got %q", got)
	}
	if got := r.RedirectTarget(domain.Role(0)); got != "/home" {
		t.Fatalf("expected fallback for zero role, got %q", got)
	}
}

func TestRouter_NewWithRoutes_CopiesTable(t *testing.T) {
	routes := map[domain.Role]string{domain.RoleDoctor: "/doctor"}
	r := NewWithRoutes(routes, LoginRoute)
	routes[domain.RoleDoctor] = "/changed"

	if got := r.RedirectTarget(domain.RoleDoctor); got != "/doctor" {
		t.Fatalf("router table mutated through caller map: %q", got)
	}
}

func TestRouter_Guard(t *testing.T) {
	r := New()
	pharmacistOnly := []domain.Role{domain.RolePharmacist}

	tests := []struct {
		name     string
		required []domain.Role
		current  domain.Role
		want     Decision
	}{
		{"allowed", pharmacistOnly, domain.RolePharmacist, Decision{Allowed: true}},
		{"wrong role", pharmacistOnly, domain.RolePatient, Decision{Redirect: UnauthorizedRoute}},
		{"admin not implied", pharmacistOnly, domain.RoleAdmin, Decision{Redirect: UnauthorizedRoute}},
		{"no credential", pharmacistOnly, domain.Role(0), Decision{Redirect: LoginRoute}},
		{"any authenticated", nil, domain.RoleDoctor, Decision{Allowed: true}},
		{"any but anonymous", nil, domain.Role(0), Decision{Redirect: LoginRoute}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.Guard(tt.required, tt.current); got != tt.want {
				t.Fatalf("Guard() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
