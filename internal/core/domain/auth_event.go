package domain

import "time"

// AuthEventType names an entry of the authentication audit trail.
type AuthEventType string

const (
	EventRegistered      AuthEventType = "registered"
	EventLoginSucceeded  AuthEventType = "login_succeeded"
	EventLoginFailed     AuthEventType = "login_failed"
	EventLoginThrottled  AuthEventType = "login_throttled"
	EventTokenRefreshed  AuthEventType = "token_refreshed"
	EventPasswordChanged AuthEventType = "password_changed"
	EventProfileUpdated  AuthEventType = "profile_updated"
)

// AuthEvent records a single authentication outcome.
type AuthEvent struct {
	Type   AuthEventType
	UserID string // empty when the account is unknown
	Email  string
	Role   Role
	IP     string
	At     time.Time
}
