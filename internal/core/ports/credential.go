package ports

import "github.com/safehealth/portal/internal/core/domain"

// CredentialIssuer mints signed tokens for an account.
type CredentialIssuer interface {
	Issue(userID string, role domain.Role) (string, error)
	IssueRefresh(userID string, role domain.Role) (string, error)
}

// CredentialVerifier checks a bearer token. Implementations perform no I/O.
type CredentialVerifier interface {
	Verify(token string) (domain.Credential, error)
}
