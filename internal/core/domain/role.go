package domain

import (
	"fmt"
	"strings"
)

// Role is the closed set of portal roles. The zero value is not a valid role.
type Role uint8

const (
	RolePatient Role = iota + 1
	RoleDoctor
	RolePharmacist
	RoleAdmin
)

var roleNames = map[Role]string{
	RolePatient:    "patient",
	RoleDoctor:     "doctor",
	RolePharmacist: "pharmacist",
	RoleAdmin:      "admin",
}

// Roles lists every valid role in declaration order.
func Roles() []Role {
	return []Role{RolePatient, RoleDoctor, RolePharmacist, RoleAdmin}
}

// ParseRole converts the wire name of a role (case-insensitive) to a Role.
func ParseRole(s string) (Role, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for r, n := range roleNames {
		if n == name {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown role %q", s)
}

func (r Role) String() string {
	if n, ok := roleNames[r]; ok {
		return n
	}
	return fmt.Sprintf("Role(%d)", uint8(r))
}

// Valid reports whether r is one of the declared roles.
func (r Role) Valid() bool {
	_, ok := roleNames[r]
	return ok
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid role %d", uint8(r))
	}
	return []byte(roleNames[r]), nil
}

func (r *Role) UnmarshalText(b []byte) error {
	parsed, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
