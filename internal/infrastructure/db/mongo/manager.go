package mongo

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/safehealth/portal/internal/core/domain"
	"github.com/safehealth/portal/internal/pkg/metrics"
)

// DialFunc opens a new connection to the backing store.
type DialFunc func(ctx context.Context) (*Handle, error)

// SetupFunc runs once against every freshly dialed handle before it is
// published to callers (index creation and the like).
type SetupFunc func(ctx context.Context, h *Handle) error

// State is the lifecycle state of a Manager.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// attempt is one in-flight dial shared by every caller that arrives while it
// runs. done is closed once handle or err is set. waiters is guarded by the
// manager's mutex.
type attempt struct {
	done    chan struct{}
	handle  *Handle
	err     error
	waiters int
}

// Manager owns the process's single backing store connection.
//
// At most one dial is in flight at any time: callers arriving while the
// manager is connecting wait on the same attempt and observe the same
// outcome. A failed attempt returns the manager to disconnected and the next
// Acquire dials again; there is no background retry.
type Manager struct {
	dial  DialFunc
	setup SetupFunc
	log   zerolog.Logger

	mu       sync.Mutex
	state    State
	handle   *Handle
	inflight *attempt
}

// NewManager returns a disconnected Manager. setup may be nil.
func NewManager(dial DialFunc, setup SetupFunc, log zerolog.Logger) *Manager {
	metrics.ConnectionState.Set(float64(StateDisconnected))
	return &Manager{dial: dial, setup: setup, log: log}
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Acquire returns the live handle, dialing if needed. If ctx ends while
// waiting, Acquire returns a ConnectionError but the shared attempt keeps
// running for the other waiters.
func (m *Manager) Acquire(ctx context.Context) (*Handle, error) {
	m.mu.Lock()
	switch m.state {
	case StateClosed:
		m.mu.Unlock()
		return nil, domain.ErrShuttingDown
	case StateConnected:
		h := m.handle
		m.mu.Unlock()
		return h, nil
	case StateDisconnected:
		m.inflight = &attempt{done: make(chan struct{})}
		m.setState(StateConnecting)
		go m.connect(context.WithoutCancel(ctx), m.inflight)
	}
	a := m.inflight
	a.waiters++
	m.mu.Unlock()

	select {
	case <-a.done:
		if a.err != nil {
			return nil, a.err
		}
		return a.handle, nil
	case <-ctx.Done():
		return nil, domain.ConnectionFailure(ctx.Err())
	}
}

func (m *Manager) connect(ctx context.Context, a *attempt) {
	defer close(a.done)

	m.log.Info().Msg("connecting to backing store")
	h, err := m.dial(ctx)
	if err == nil && m.setup != nil {
		if err = m.setup(ctx, h); err != nil {
			_ = disconnect(ctx, h)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StateClosed {
		if err == nil {
			_ = disconnect(ctx, h)
		}
		a.err = domain.ErrShuttingDown
		return
	}

	m.inflight = nil
	if err != nil {
		metrics.ConnectionAttemptsTotal.WithLabelValues("failure").Inc()
		m.log.Error().Err(err).Int("waiters", a.waiters).Msg("backing store connection failed, retrying on next request")
		m.setState(StateDisconnected)
		a.err = domain.ConnectionFailure(err)
		return
	}

	metrics.ConnectionAttemptsTotal.WithLabelValues("success").Inc()
	m.log.Info().Int("waiters", a.waiters).Msg("backing store connected")
	m.handle = h
	m.setState(StateConnected)
	a.handle = h
}

// Invalidate drops h if it is still the live handle, so the next Acquire
// dials again. Stale handles are ignored.
func (m *Manager) Invalidate(h *Handle, cause error) {
	m.mu.Lock()
	if m.state != StateConnected || m.handle != h {
		m.mu.Unlock()
		return
	}
	m.handle = nil
	m.setState(StateDisconnected)
	m.mu.Unlock()

	m.log.Warn().Err(cause).Msg("backing store connection dropped")
	go func() {
		if err := disconnect(context.Background(), h); err != nil {
			m.log.Debug().Err(err).Msg("disconnect of dropped handle failed")
		}
	}()
}

// Observe inspects an error returned by an operation on h. Network failures
// invalidate h and come back as ConnectionError; other errors pass through.
func (m *Manager) Observe(h *Handle, err error) error {
	if err == nil {
		return nil
	}
	if mongo.IsNetworkError(err) || errors.Is(err, mongo.ErrClientDisconnected) {
		m.Invalidate(h, err)
		return domain.ConnectionFailure(err)
	}
	return err
}

// Ping acquires the handle and round-trips to the server.
func (m *Manager) Ping(ctx context.Context) error {
	h, err := m.Acquire(ctx)
	if err != nil {
		return err
	}
	if h.Client == nil {
		return nil
	}
	return m.Observe(h, h.Client.Ping(ctx, nil))
}

// Close releases the connection. Later Acquire calls fail with a
// shutting-down ConnectionError. An attempt still in flight is awaited until
// ctx ends and its handle, if any, is released.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	if m.state == StateClosed {
		m.mu.Unlock()
		return nil
	}
	h := m.handle
	a := m.inflight
	m.handle = nil
	m.setState(StateClosed)
	m.mu.Unlock()

	if a != nil {
		select {
		case <-a.done:
		case <-ctx.Done():
		}
	}

	if err := disconnect(ctx, h); err != nil {
		return err
	}
	m.log.Info().Msg("backing store connection closed")
	return nil
}

// setState must be called with mu held.
func (m *Manager) setState(s State) {
	m.state = s
	metrics.ConnectionState.Set(float64(s))
}
