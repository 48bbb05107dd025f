package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestError_IsMatchesKind(t *testing.T) {
	wrapped := fmt.Errorf("login: %w", ErrInvalidCredentials)
	if !errors.Is(wrapped, ErrInvalidCredentials) {
		t.Fatalf("expected wrapped error to match its kind")
	}
	if errors.Is(wrapped, ErrUnauthenticated) {
		t.Fatalf("different kinds must not match")
	}

	if !errors.Is(Validation("email is required"), Validation("other message")) {
		t.Fatalf("validation errors match by kind")
	}
	if !errors.Is(ErrShuttingDown, ErrConnection) {
		t.Fatalf("shutting down is a connection error")
	}
}

func TestConnectionFailure_Unwraps(t *testing.T) {
	cause := errors.New("dial tcp 127.0.0.1:27017: connect: connection refused")
	err := ConnectionFailure(cause)

	if !errors.Is(err, cause) || !errors.Is(err, ErrConnection) {
		t.Fatalf("expected both cause and kind to match: %v", err)
	}
	if KindOf(err) != KindConnection {
		t.Fatalf("unexpected kind %s", KindOf(err))
	}
	if KindOf(errors.New("plain")) != KindUnknown {
		t.Fatalf("plain errors have no kind")
	}
}

func TestKind_String(t *testing.T) {
	if KindTokenExpired.String() != "TokenExpired" || KindConnection.String() != "ConnectionError" {
		t.Fatalf("unexpected kind names")
	}
	if Kind(200).String() != "Unknown" {
		t.Fatalf("out of range kinds render as Unknown")
	}
}

func TestIdentityContext(t *testing.T) {
	if _, ok := IdentityFrom(context.Background()); ok {
		t.Fatalf("empty context must carry no identity")
	}
	ctx := WithIdentity(context.Background(), Identity{UserID: "u1", Role: RoleDoctor})
	id, ok := IdentityFrom(ctx)
	if !ok || id.UserID != "u1" || id.Role != RoleDoctor {
		t.Fatalf("unexpected identity %+v", id)
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Alice@Example.COM "); got != "alice@example.com" {
		t.Fatalf("unexpected %q", got)
	}
}
