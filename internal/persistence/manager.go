package persistence

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"causeway/internal/objectcache/ports"
	"causeway/internal/objectcache/service"
)

// Manager opens sessions over shared collaborators and keeps track of the
// open ones for diagnostics. Each session gets its own cache; the type
// descriptors, generator, injector and store are shared.
type Manager struct {
	store       ObjectStore
	descriptors ports.TypeDescriptors
	factory     ports.AdapterFactory
	generator   ports.OidGenerator
	injector    ports.Injector

	cacheOpts []service.Option
	clock     func() time.Time
	logger    *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

type Option func(*Manager)

func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithCacheOptions are applied to every session's cache.
func WithCacheOptions(opts ...service.Option) Option {
	return func(m *Manager) {
		m.cacheOpts = append(m.cacheOpts, opts...)
	}
}

// WithClock sets the time source for version stamps.
func WithClock(clock func() time.Time) Option {
	return func(m *Manager) {
		if clock != nil {
			m.clock = clock
		}
	}
}

func NewManager(
	store ObjectStore,
	descriptors ports.TypeDescriptors,
	factory ports.AdapterFactory,
	generator ports.OidGenerator,
	injector ports.Injector,
	opts ...Option,
) (*Manager, error) {
	if store == nil {
		return nil, fmt.Errorf("object store is required")
	}
	m := &Manager{
		store:       store,
		descriptors: descriptors,
		factory:     factory,
		generator:   generator,
		injector:    injector,
		clock:       time.Now,
		logger:      slog.New(slog.DiscardHandler),
		sessions:    make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	// Fail here rather than on the first Open.
	if _, err := m.newCache(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) newCache() (*service.Cache, error) {
	opts := append([]service.Option{service.WithLogger(m.logger)}, m.cacheOpts...)
	return service.New(m.descriptors, m.factory, m.generator, m.injector, opts...)
}

// Open starts a session acting for user.
func (m *Manager) Open(ctx context.Context, user string) (*Session, error) {
	cache, err := m.newCache()
	if err != nil {
		return nil, err
	}
	s := &Session{
		id:          uuid.NewString(),
		user:        user,
		cache:       cache,
		store:       m.store,
		descriptors: m.descriptors,
		generator:   m.generator,
		clock:       m.clock,
		logger:      m.logger,
		onClose:     m.forget,
	}
	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()

	m.logger.DebugContext(ctx, "session opened", "session_id", s.id, "user", user)
	return s, nil
}

func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// SessionIDs returns the open session ids in lexical order.
func (m *Manager) SessionIDs() []string {
	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()
	slices.Sort(ids)
	return ids
}

// SessionSnapshot renders the adapters of an open session.
func (m *Manager) SessionSnapshot(id string) ([]service.AdapterView, bool) {
	s, ok := m.Get(id)
	if !ok {
		return nil, false
	}
	return s.Snapshot(), true
}

// CloseAll closes every open session.
func (m *Manager) CloseAll(ctx context.Context) {
	m.mu.RLock()
	open := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		open = append(open, s)
	}
	m.mu.RUnlock()
	for _, s := range open {
		s.Close(ctx)
	}
}

func (m *Manager) forget(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}
