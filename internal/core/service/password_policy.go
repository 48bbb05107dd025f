package service

import (
	"strings"
	"unicode"

	"github.com/safehealth/portal/internal/core/domain"
)

// SpecialCharacters is the set counted towards RequireSpecial.
const SpecialCharacters = "@$!%*?&"

// MaxPasswordBytes is the longest input bcrypt accepts.
const MaxPasswordBytes = 72

// PasswordPolicy describes the strength rules applied on register and on
// password change.
type PasswordPolicy struct {
	MinLength      int
	RequireUpper   bool
	RequireLower   bool
	RequireDigit   bool
	RequireSpecial bool
}

// DefaultPasswordPolicy requires eight characters mixing case, digits and a
// special character.
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength:      8,
		RequireUpper:   true,
		RequireLower:   true,
		RequireDigit:   true,
		RequireSpecial: true,
	}
}

// Check returns a ValidationError naming the first unmet rule.
func (p PasswordPolicy) Check(password string) error {
	if len([]rune(password)) < p.MinLength {
		return domain.Validation("password must be at least %d characters", p.MinLength)
	}
	if len(password) > MaxPasswordBytes {
		return domain.Validation("password must be at most %d bytes", MaxPasswordBytes)
	}

	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(SpecialCharacters, r):
			special = true
		}
	}

	switch {
	case p.RequireUpper && !upper:
		return domain.Validation("password must contain an uppercase letter")
	case p.RequireLower && !lower:
		return domain.Validation("password must contain a lowercase letter")
	case p.RequireDigit && !digit:
		return domain.Validation("password must contain a digit")
	case p.RequireSpecial && !special:
		return domain.Validation("password must contain one of %s", SpecialCharacters)
	}
	return nil
}
