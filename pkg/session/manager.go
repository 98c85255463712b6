package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/topoedit"
	"github.com/aretw0/topoedit/internal/logging"
	"github.com/aretw0/topoedit/pkg/domain"
	"github.com/aretw0/topoedit/pkg/ports"
)

// DefaultLockTTL bounds how long a crashed holder keeps a distributed lock.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates workspace access, ensuring safe concurrent operations.
// It uses reference counting to garbage collect unused locks.
type Manager struct {
	store ports.SnapshotStore

	mu     sync.Mutex
	locks  map[string]*lockEntry
	spaces map[string]*topoedit.Workspace

	locker  ports.DistributedLocker
	lockTTL time.Duration
	logger  *slog.Logger
	opts    []topoedit.Option
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking and disables the workspace cache.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the expiry of distributed locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithWorkspaceOptions sets the options every loaded workspace is built with.
func WithWorkspaceOptions(opts ...topoedit.Option) Option {
	return func(m *Manager) {
		m.opts = append(m.opts, opts...)
	}
}

// NewManager creates a Manager over store.
func NewManager(store ports.SnapshotStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		spaces:  make(map[string]*topoedit.Workspace),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller must lock entry.mu, then call release(id) after unlocking.
func (m *Manager) acquire(id string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.locks[id]
	if !ok {
		entry = &lockEntry{}
		m.locks[id] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry at zero.
func (m *Manager) release(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.locks[id]
	if !ok {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, id)
	}
}

func (m *Manager) cached(id string) *topoedit.Workspace {
	if m.locker != nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.spaces[id]
}

func (m *Manager) remember(id string, ws *topoedit.Workspace) {
	if m.locker != nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.spaces[id] = ws
}

// Evict drops the in-process copy of a workspace; the next access reloads it
// from the store.
func (m *Manager) Evict(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.spaces, id)
}

func (m *Manager) workspaceOptions(id string) []topoedit.Option {
	return append([]topoedit.Option{topoedit.WithLogger(m.logger), topoedit.WithName(id)}, m.opts...)
}

// load returns the workspace stored under id. Callers hold the lock for id.
func (m *Manager) load(ctx context.Context, id string) (*topoedit.Workspace, error) {
	if ws := m.cached(id); ws != nil {
		return ws, nil
	}
	s, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	ws, err := topoedit.Open(s, m.workspaceOptions(id)...)
	if err != nil {
		return nil, fmt.Errorf("failed to open workspace %q: %w", id, err)
	}
	m.remember(id, ws)
	return ws, nil
}

// Create stores a new empty workspace under id. It fails with a state error
// if id is taken.
func (m *Manager) Create(ctx context.Context, id string) error {
	return m.WithLock(ctx, id, func(ctx context.Context) error {
		_, err := m.store.Load(ctx, id)
		switch {
		case err == nil:
			return domain.Newf(domain.CodeState, "workspace %q already exists", id)
		case !errors.Is(err, domain.ErrSnapshotNotFound):
			return fmt.Errorf("failed to check workspace existence: %w", err)
		}
		ws := topoedit.New(m.workspaceOptions(id)...)
		if err := m.store.Save(ctx, id, ws.Snapshot()); err != nil {
			return fmt.Errorf("failed to initialize workspace: %w", err)
		}
		m.remember(id, ws)
		return nil
	})
}

// View runs fn on the workspace stored under id. fn must not mutate it.
func (m *Manager) View(ctx context.Context, id string, fn func(ctx context.Context, ws *topoedit.Workspace) error) error {
	return m.WithLock(ctx, id, func(ctx context.Context) error {
		ws, err := m.load(ctx, id)
		if err != nil {
			return err
		}
		return fn(ctx, ws)
	})
}

// Update runs fn on the workspace stored under id and saves its snapshot. If
// fn fails nothing is saved and the in-process copy is dropped, so commands
// fn applied before failing are forgotten.
func (m *Manager) Update(ctx context.Context, id string, fn func(ctx context.Context, ws *topoedit.Workspace) error) error {
	return m.WithLock(ctx, id, func(ctx context.Context) error {
		ws, err := m.load(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(ctx, ws); err != nil {
			m.Evict(id)
			return err
		}
		if err := m.store.Save(ctx, id, ws.Snapshot()); err != nil {
			m.Evict(id)
			return fmt.Errorf("failed to save workspace %q: %w", id, err)
		}
		return nil
	})
}

// Delete removes the workspace from the store and the cache.
func (m *Manager) Delete(ctx context.Context, id string) error {
	return m.WithLock(ctx, id, func(ctx context.Context) error {
		m.Evict(id)
		return m.store.Delete(ctx, id)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying snapshot store.
func (m *Manager) Store() ports.SnapshotStore {
	return m.store
}

// WithLock executes fn while holding the lock for id.
func (m *Manager) WithLock(ctx context.Context, id string, fn func(context.Context) error) error {
	entry := m.acquire(id)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(id)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, id, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("failed to release distributed lock (will expire via TTL)",
					"workspace", id,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
