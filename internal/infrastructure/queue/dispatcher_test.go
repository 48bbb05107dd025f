package queue

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/safehealth/portal/internal/core/domain"
)

type recordingRepo struct {
	mu     sync.Mutex
	events []domain.AuthEvent
	err    error
}

func (r *recordingRepo) InsertEvent(_ context.Context, e *domain.AuthEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, *e)
	return nil
}

func TestDispatcher_WritesAndDrainsOnClose(t *testing.T) {
	repo := &recordingRepo{}
	d := NewDispatcher(2, repo, zerolog.Nop())
	d.Start(context.Background())

	d.Publish(domain.AuthEvent{Type: domain.EventLoginFailed, Email: "a@x.com"})
	d.Publish(domain.AuthEvent{Type: domain.EventLoginSucceeded, Email: "a@x.com"})
	d.Publish(domain.AuthEvent{Type: domain.EventRegistered, Email: "b@x.com"})
	d.Close()

	if len(repo.events) != 3 {
		t.Fatalf("expected 3 events written, got %d", len(repo.events))
	}

	var perAccount []domain.AuthEventType
	for _, e := range repo.events {
		if e.Email == "a@x.com" {
			perAccount = append(perAccount, e.Type)
		}
	}
	if len(perAccount) != 2 || perAccount[0] != domain.EventLoginFailed || perAccount[1] != domain.EventLoginSucceeded {
		t.Fatalf("per-account order not preserved: %v", perAccount)
	}
}

func TestDispatcher_PublishAfterCloseIsDropped(t *testing.T) {
	repo := &recordingRepo{}
	d := NewDispatcher(1, repo, zerolog.Nop())
	d.Start(context.Background())
	d.Close()
	d.Close()

	d.Publish(domain.AuthEvent{Type: domain.EventRegistered, Email: "a@x.com"})
	if len(repo.events) != 0 {
		t.Fatalf("expected no writes after close, got %d", len(repo.events))
	}
}

func TestDispatcher_WriteFailureDoesNotStopWorker(t *testing.T) {
	repo := &recordingRepo{err: errors.New("store down")}
	d := NewDispatcher(1, repo, zerolog.Nop())
	d.Start(context.Background())

	d.Publish(domain.AuthEvent{Type: domain.EventLoginFailed, Email: "a@x.com"})
	d.Close()

	if len(repo.events) != 0 {
		t.Fatalf("expected failed write to record nothing")
	}
}

func TestDispatcher_PublishNeverBlocks(t *testing.T) {
	repo := &recordingRepo{}
	d := NewDispatcher(1, repo, zerolog.Nop())

	for i := 0; i < channelBuffer+10; i++ {
		d.Publish(domain.AuthEvent{Type: domain.EventLoginFailed, Email: "a@x.com"})
	}

	d.Start(context.Background())
	d.Close()
	if len(repo.events) != channelBuffer {
		t.Fatalf("expected %d buffered events written, got %d", channelBuffer, len(repo.events))
	}
}

func TestDispatcher_ShardIndexStable(t *testing.T) {
	d := NewDispatcher(8, &recordingRepo{}, zerolog.Nop())
	first := d.shardIndex("a@x.com")
	for i := 0; i < 10; i++ {
		if d.shardIndex("a@x.com") != first {
			t.Fatalf("shard index changed between calls")
		}
	}
	if first < 0 || first >= 8 {
		t.Fatalf("shard index out of range: %d", first)
	}
}
