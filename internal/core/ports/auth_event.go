package ports

import (
	"context"

	"github.com/safehealth/portal/internal/core/domain"
)

// AuthEventRepository persists audit entries.
type AuthEventRepository interface {
	InsertEvent(ctx context.Context, event *domain.AuthEvent) error
}

// AuthEventPublisher hands audit entries to an asynchronous writer. Publish
// must not block the caller.
type AuthEventPublisher interface {
	Publish(event domain.AuthEvent)
}

// LoginLimiter throttles repeated failed logins per normalized email.
type LoginLimiter interface {
	Locked(ctx context.Context, email string) (bool, error)
	RecordFailure(ctx context.Context, email string) error
	Reset(ctx context.Context, email string) error
}
