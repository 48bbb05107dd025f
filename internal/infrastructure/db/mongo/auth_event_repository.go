package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/safehealth/portal/internal/core/domain"
	"github.com/safehealth/portal/internal/core/ports"
)

const authEventsCollection = "auth_events"

// AuthEventRepository implements ports.AuthEventRepository using MongoDB.
type AuthEventRepository struct {
	conn *Manager
}

// NewAuthEventRepository creates a new AuthEventRepository.
func NewAuthEventRepository(conn *Manager) ports.AuthEventRepository {
	return &AuthEventRepository{conn: conn}
}

// InsertEvent persists an auth event to the auth_events audit collection.
func (r *AuthEventRepository) InsertEvent(ctx context.Context, event *domain.AuthEvent) error {
	h, err := r.conn.Acquire(ctx)
	if err != nil {
		return err
	}

	doc := bson.M{
		"type":        string(event.Type),
		"email":       event.Email,
		"at":          event.At.UTC(),
		"recorded_at": time.Now().UTC(),
	}
	if event.UserID != "" {
		doc["user_id"] = event.UserID
	}
	if event.Role.Valid() {
		doc["role"] = event.Role.String()
	}
	if event.IP != "" {
		doc["ip"] = event.IP
	}

	if _, err := h.DB.Collection(authEventsCollection).InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert auth event: %w", r.conn.Observe(h, err))
	}
	return nil
}
