package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/muhammadut/Finite-State-Machine/internal/logging"
	"github.com/muhammadut/Finite-State-Machine/pkg/automaton"
	"github.com/muhammadut/Finite-State-Machine/pkg/domain"
	"github.com/muhammadut/Finite-State-Machine/pkg/ports"
)

// DefaultLockTTL bounds how long a distributed lock survives a crashed holder.
const DefaultLockTTL = 30 * time.Second

// Builder produces fresh automata by machine name. *registry.Registry implements it.
type Builder interface {
	Build(name string, opts ...automaton.Option[string, string]) (*automaton.Automaton[string, string], error)
}

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates session access, ensuring safe concurrent operations.
// It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	store    ports.SessionStore
	machines Builder

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	logger  *slog.Logger
	options func(machine string) []automaton.Option[string, string]
	now     func() time.Time
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL overrides DefaultLockTTL.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithAutomatonOptions supplies per-machine options (hooks, loggers) applied every time a
// session's automaton is rebuilt.
func WithAutomatonOptions(fn func(machine string) []automaton.Option[string, string]) Option {
	return func(m *Manager) {
		m.options = fn
	}
}

// WithClock replaces time.Now for CreatedAt and UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a new Session Manager with the given persistence store and machine source.
func NewManager(store ports.SessionStore, machines Builder, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		machines: machines,
		locks:    make(map[string]*lockEntry),
		lockTTL:  DefaultLockTTL,
		logger:   logging.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(sessionID) after unlocking.
func (m *Manager) acquire(sessionID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		entry = &lockEntry{}
		m.locks[sessionID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, sessionID)
	}
}

func (m *Manager) build(machine string) (*automaton.Automaton[string, string], error) {
	var opts []automaton.Option[string, string]
	if m.options != nil {
		opts = m.options(machine)
	}
	return m.machines.Build(machine, opts...)
}

// restore rebuilds the session's machine and moves it to the stored cursor.
func (m *Manager) restore(s *domain.Session) (*automaton.Automaton[string, string], error) {
	a, err := m.build(s.Machine)
	if err != nil {
		return nil, err
	}
	if err := a.Restore(s.Snapshot()); err != nil {
		return nil, fmt.Errorf("session %s no longer matches machine %s: %w", s.ID, s.Machine, err)
	}
	return a, nil
}

// Start creates a session for machine at its initial state.
// It fails with domain.ErrSessionExists if the ID is taken.
func (m *Manager) Start(ctx context.Context, sessionID, machine string) (*domain.Session, error) {
	if err := domain.ValidateID(sessionID); err != nil {
		return nil, err
	}
	a, err := m.build(machine)
	if err != nil {
		return nil, err
	}

	var session *domain.Session
	err = m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		_, err := m.store.Load(ctx, sessionID)
		if err == nil {
			return fmt.Errorf("%w: %s", domain.ErrSessionExists, sessionID)
		}
		if !errors.Is(err, domain.ErrSessionNotFound) {
			return fmt.Errorf("failed to check session existence: %w", err)
		}

		session = domain.NewSession(sessionID, machine, a, m.now())
		if err := m.store.Save(ctx, session); err != nil {
			return fmt.Errorf("failed to initialize session: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("session started", "session_id", sessionID, "machine", machine)
	return session, nil
}

// Feed runs symbols on the session.
//
// Runs are not atomic: when a symbol is rejected, the symbols before it stay applied and are
// persisted. The returned session is then the persisted one and the error is the *automaton.StepError.
func (m *Manager) Feed(ctx context.Context, sessionID string, symbols []string) (*domain.Session, error) {
	var (
		session *domain.Session
		runErr  error
	)
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		var err error
		session, err = m.store.Load(ctx, sessionID)
		if err != nil {
			return err
		}
		a, err := m.restore(session)
		if err != nil {
			return err
		}

		_, runErr = a.Run(symbols)
		session.Apply(a, m.now())

		if err := m.store.Save(ctx, session); err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.logger.Debug("session fed",
		"session_id", sessionID,
		"symbols", len(symbols),
		"current", session.Current,
		"err", runErr,
	)
	return session, runErr
}

// Reset moves the session back to its machine's initial state.
func (m *Manager) Reset(ctx context.Context, sessionID string) (*domain.Session, error) {
	var session *domain.Session
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		var err error
		session, err = m.store.Load(ctx, sessionID)
		if err != nil {
			return err
		}
		a, err := m.build(session.Machine)
		if err != nil {
			return err
		}
		a.Reset()
		session.Apply(a, m.now())
		return m.store.Save(ctx, session)
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// Load retrieves an existing session from the store.
func (m *Manager) Load(ctx context.Context, sessionID string) (*domain.Session, error) {
	var session *domain.Session
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		var err error
		session, err = m.store.Load(ctx, sessionID)
		return err
	})
	return session, err
}

// Delete removes the session from the store.
// It returns domain.ErrSessionNotFound when there is nothing to delete.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		if _, err := m.store.Load(ctx, sessionID); err != nil {
			return err
		}
		return m.store.Delete(ctx, sessionID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying session store.
func (m *Manager) Store() ports.SessionStore {
	return m.store
}

// WithLock executes a function while holding the lock for the session.
func (m *Manager) WithLock(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	entry := m.acquire(sessionID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(sessionID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, sessionID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"session_id", sessionID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
