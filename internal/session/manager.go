package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/anatolykoptev/go_jobboard/internal/engine"
)

// ErrNotFound is returned for an unknown or expired session id.
var ErrNotFound = errors.New("session: not found")

// Manager owns every open session and closes idle ones.
type Manager struct {
	deps    Deps
	idleTTL time.Duration

	mu       sync.Mutex
	sessions map[string]*Session
	cron     *cron.Cron
}

// NewManager builds a Manager. Sessions unused for idleTTL are closed by Sweep.
func NewManager(deps Deps, idleTTL time.Duration) *Manager {
	if deps.Clock == nil {
		deps.Clock = engine.SystemClock()
	}
	return &Manager{deps: deps, idleTTL: idleTTL, sessions: make(map[string]*Session)}
}

// Open starts a session. An empty visitorID mints a new durable visitor.
// The visitor's subscribed flag is read from the store; a store failure
// is logged and treated as not subscribed.
func (m *Manager) Open(ctx context.Context, visitorID string, ident Identity) (*Session, error) {
	if visitorID == "" {
		visitorID = uuid.NewString()
	}
	subscribed := false
	if m.deps.Store != nil {
		ok, err := m.deps.Store.Subscribed(ctx, visitorID)
		if err != nil {
			slog.Warn("session: read subscribed flag failed", slog.String("visitor", visitorID), slog.Any("error", err))
		}
		subscribed = ok
	}

	s := newSession(uuid.NewString(), visitorID, m.deps, subscribed, ident)
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	engine.IncrSessionOpened()
	slog.Debug("session: opened", slog.String("id", s.ID), slog.String("visitor", visitorID), slog.Bool("subscribed", subscribed))
	return s, nil
}

// Get returns the session and marks it used.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	s.touch()
	return s, nil
}

// CloseSession closes and forgets the session.
func (m *Manager) CloseSession(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	s.Close()
	return nil
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep closes sessions idle for longer than the idle TTL and returns how
// many were closed.
func (m *Manager) Sweep() int {
	now := m.deps.Clock.Now()
	var idle []*Session
	m.mu.Lock()
	for id, s := range m.sessions {
		if now.Sub(s.LastUsed()) > m.idleTTL {
			idle = append(idle, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range idle {
		s.Close()
	}
	if len(idle) > 0 {
		engine.AddSessionsSwept(len(idle))
		slog.Info("session: swept idle sessions", slog.Int("count", len(idle)))
	}
	return len(idle)
}

// Start runs Sweep on the cron spec, e.g. "@every 1m".
func (m *Manager) Start(spec string) error {
	c := cron.New(cron.WithLogger(cron.DefaultLogger))
	if _, err := c.AddFunc(spec, func() { m.Sweep() }); err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}
	m.mu.Lock()
	m.cron = c
	m.mu.Unlock()
	c.Start()
	slog.Info("session: sweeper started", slog.String("spec", spec), slog.Duration("idle_ttl", m.idleTTL))
	return nil
}

// Stop halts the sweeper and closes every session.
func (m *Manager) Stop() {
	m.mu.Lock()
	c := m.cron
	m.cron = nil
	all := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
	for _, s := range all {
		s.Close()
	}
}
