package mongo

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/safehealth/portal/internal/core/domain"
)

// gatedDialer blocks every dial until release is closed and counts calls.
type gatedDialer struct {
	calls   atomic.Int32
	release chan struct{}
	err     error
}

func newGatedDialer(err error) *gatedDialer {
	return &gatedDialer{release: make(chan struct{}), err: err}
}

func (d *gatedDialer) dial(ctx context.Context) (*Handle, error) {
	d.calls.Add(1)
	<-d.release
	if d.err != nil {
		return nil, d.err
	}
	return &Handle{}, nil
}

func waitForWaiters(t *testing.T, m *Manager, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		m.mu.Lock()
		got := 0
		if m.inflight != nil {
			got = m.inflight.waiters
		}
		m.mu.Unlock()
		if got >= n {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d waiters", n)
}

func TestManager_ConcurrentAcquire_SingleDial(t *testing.T) {
	const n = 32
	d := newGatedDialer(nil)
	m := NewManager(d.dial, nil, zerolog.Nop())

	handles := make([]*Handle, n)
	var g errgroup.Group
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			h, err := m.Acquire(context.Background())
			handles[i] = h
			return err
		})
	}

	waitForWaiters(t, m, n)
	if m.State() != StateConnecting {
		t.Fatalf("expected connecting, got %s", m.State())
	}
	close(d.release)

	if err := g.Wait(); err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	if got := d.calls.Load(); got != 1 {
		t.Fatalf("expected 1 dial, got %d", got)
	}
	for i, h := range handles {
		if h == nil || h != handles[0] {
			t.Fatalf("caller %d got a different handle", i)
		}
	}
	if m.State() != StateConnected {
		t.Fatalf("expected connected, got %s", m.State())
	}
}

func TestManager_Acquire_CachedNoDial(t *testing.T) {
	d := newGatedDialer(nil)
	close(d.release)
	m := NewManager(d.dial, nil, zerolog.Nop())

	first, err := m.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	second, err := m.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if first != second {
		t.Fatalf("expected cached handle")
	}
	if got := d.calls.Load(); got != 1 {
		t.Fatalf("expected 1 dial, got %d", got)
	}
}

func TestManager_ConcurrentAcquire_SharedFailure(t *testing.T) {
	const n = 16
	dialErr := errors.New("connection refused")
	d := newGatedDialer(dialErr)
	m := NewManager(d.dial, nil, zerolog.Nop())

	errs := make([]error, n)
	var g errgroup.Group
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			_, errs[i] = m.Acquire(context.Background())
			return nil
		})
	}

	waitForWaiters(t, m, n)
	close(d.release)
	_ = g.Wait()

	if got := d.calls.Load(); got != 1 {
		t.Fatalf("expected 1 dial, got %d", got)
	}
	for i, err := range errs {
		if !errors.Is(err, domain.ErrConnection) || !errors.Is(err, dialErr) {
			t.Fatalf("caller %d: expected ConnectionError wrapping dial error, got %v", i, err)
		}
		if err != errs[0] {
			t.Fatalf("caller %d observed a different failure", i)
		}
	}
	if m.State() != StateDisconnected {
		t.Fatalf("expected disconnected after failure, got %s", m.State())
	}
}

func TestManager_RetryAfterFailure(t *testing.T) {
	var calls atomic.Int32
	dial := func(ctx context.Context) (*Handle, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("boom")
		}
		return &Handle{}, nil
	}
	m := NewManager(dial, nil, zerolog.Nop())

	if _, err := m.Acquire(context.Background()); domain.KindOf(err) != domain.KindConnection {
		t.Fatalf("expected ConnectionError, got %v", err)
	}
	h, err := m.Acquire(context.Background())
	if err != nil || h == nil {
		t.Fatalf("expected second acquire to reconnect, got %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 dials, got %d", calls.Load())
	}
}

func TestManager_SetupFailureDiscardsHandle(t *testing.T) {
	d := newGatedDialer(nil)
	close(d.release)
	setup := func(ctx context.Context, h *Handle) error { return errors.New("index build failed") }
	m := NewManager(d.dial, setup, zerolog.Nop())

	if _, err := m.Acquire(context.Background()); domain.KindOf(err) != domain.KindConnection {
		t.Fatalf("expected ConnectionError, got %v", err)
	}
	if m.State() != StateDisconnected {
		t.Fatalf("expected disconnected, got %s", m.State())
	}
}

func TestManager_CancelledWaiterDoesNotCancelAttempt(t *testing.T) {
	d := newGatedDialer(nil)
	m := NewManager(d.dial, nil, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := m.Acquire(ctx)
		done <- err
	}()
	waitForWaiters(t, m, 1)
	cancel()

	err := <-done
	if domain.KindOf(err) != domain.KindConnection || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected ConnectionError wrapping context.Canceled, got %v", err)
	}

	other := make(chan *Handle, 1)
	go func() {
		h, _ := m.Acquire(context.Background())
		other <- h
	}()
	waitForWaiters(t, m, 2)
	close(d.release)

	if h := <-other; h == nil {
		t.Fatalf("second waiter did not receive the shared handle")
	}
	if got := d.calls.Load(); got != 1 {
		t.Fatalf("expected 1 dial, got %d", got)
	}
}

func TestManager_Invalidate(t *testing.T) {
	var calls atomic.Int32
	dial := func(ctx context.Context) (*Handle, error) {
		calls.Add(1)
		return &Handle{}, nil
	}
	m := NewManager(dial, nil, zerolog.Nop())

	first, _ := m.Acquire(context.Background())
	m.Invalidate(&Handle{}, errors.New("stale"))
	if m.State() != StateConnected {
		t.Fatalf("stale handle must not reset state")
	}

	m.Invalidate(first, errors.New("socket closed"))
	if m.State() != StateDisconnected {
		t.Fatalf("expected disconnected, got %s", m.State())
	}

	second, err := m.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire after invalidate: %v", err)
	}
	if second == first {
		t.Fatalf("expected a fresh handle")
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 dials, got %d", calls.Load())
	}
}

func TestManager_Observe_PassesThroughNonNetworkErrors(t *testing.T) {
	m := NewManager(func(context.Context) (*Handle, error) { return &Handle{}, nil }, nil, zerolog.Nop())
	h, _ := m.Acquire(context.Background())

	plain := errors.New("decode failed")
	if err := m.Observe(h, plain); err != plain {
		t.Fatalf("expected error unchanged, got %v", err)
	}
	if err := m.Observe(h, nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if m.State() != StateConnected {
		t.Fatalf("expected connected, got %s", m.State())
	}
}

func TestManager_Close(t *testing.T) {
	m := NewManager(func(context.Context) (*Handle, error) { return &Handle{}, nil }, nil, zerolog.Nop())
	if _, err := m.Acquire(context.Background()); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	if err := m.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := m.Acquire(context.Background()); !errors.Is(err, domain.ErrShuttingDown) {
		t.Fatalf("expected shutting down error, got %v", err)
	}
	if err := m.Close(context.Background()); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestManager_CloseDuringAttempt(t *testing.T) {
	d := newGatedDialer(nil)
	m := NewManager(d.dial, nil, zerolog.Nop())

	done := make(chan error, 1)
	go func() {
		_, err := m.Acquire(context.Background())
		done <- err
	}()
	waitForWaiters(t, m, 1)

	closed := make(chan error, 1)
	go func() { closed <- m.Close(context.Background()) }()

	time.Sleep(10 * time.Millisecond)
	close(d.release)

	if err := <-done; domain.KindOf(err) != domain.KindConnection {
		t.Fatalf("expected ConnectionError for waiter, got %v", err)
	}
	if err := <-closed; err != nil {
		t.Fatalf("close: %v", err)
	}
	if m.State() != StateClosed {
		t.Fatalf("expected closed, got %s", m.State())
	}
}
