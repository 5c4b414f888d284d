package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ModelFactory builds a model for an API key. An empty key means the
// deployment default.
type ModelFactory func(ctx context.Context, apiKey string) (Model, error)

// Manager owns the live sessions of a server process.
type Manager struct {
	factory ModelFactory
	exec    ToolExecutor
	cfg     Config
	log     zerolog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates an empty session registry.
func NewManager(factory ModelFactory, exec ToolExecutor, cfg Config, log zerolog.Logger) *Manager {
	return &Manager{
		factory:  factory,
		exec:     exec,
		cfg:      cfg.withDefaults(),
		log:      log,
		sessions: make(map[string]*Session),
	}
}

// Create starts a new session with the default model.
func (m *Manager) Create(ctx context.Context) (*Session, error) {
	return m.CreateWithKey(ctx, "")
}

// CreateWithKey starts a new session whose model uses apiKey.
func (m *Manager) CreateWithKey(ctx context.Context, apiKey string) (*Session, error) {
	model, err := m.factory(ctx, apiKey)
	if err != nil {
		return nil, fmt.Errorf("Create: build model: %w", err)
	}

	id := uuid.New().String()
	s := NewSession(id, model, m.exec, m.cfg, m.log)

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	m.log.Info().Str("session_id", id).Msg("Session created")
	return s, nil
}

// Get returns the session with id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, nil
}

// GetOrCreate returns the session with id, or a new session when id is empty.
func (m *Manager) GetOrCreate(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return m.Create(ctx)
	}
	return m.Get(id)
}

// UpdateCredentials rebuilds the model of session id with apiKey.
func (m *Manager) UpdateCredentials(ctx context.Context, id, apiKey string) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}
	model, err := m.factory(ctx, apiKey)
	if err != nil {
		return fmt.Errorf("UpdateCredentials: build model: %w", err)
	}
	s.SetModel(model)
	m.log.Info().Str("session_id", id).Msg("Session credentials updated")
	return nil
}

// End drops session id. It reports whether the session existed.
func (m *Manager) End(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return false
	}
	delete(m.sessions, id)
	return true
}

// Sweep removes sessions idle for longer than maxIdle and returns how many
// were removed.
func (m *Manager) Sweep(now time.Time, maxIdle time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, s := range m.sessions {
		if now.Sub(s.LastActive()) > maxIdle && s.State() == StateIdle {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
