package session

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("session not found")

// Session is the live, per-connection state of the relay protocol. It is
// created when a websocket connection opens and removed when it closes; it is
// never persisted.
type Session struct {
	ID             string    `json:"session_id"`
	RemoteAddr     string    `json:"remote_addr"`
	StartedAt      time.Time `json:"started_at"`
	LastActivityAt time.Time `json:"last_activity_at"`

	// generating is the Idle/AwaitingCompletion gate: at most one in-flight
	// generation per connection.
	generating atomic.Bool
}

// BeginGeneration transitions Idle -> AwaitingCompletion. It reports false
// when a generation is already in flight, in which case the caller must
// reject the intent rather than queue it.
func (s *Session) BeginGeneration() bool {
	return s.generating.CompareAndSwap(false, true)
}

// EndGeneration transitions back to Idle.
func (s *Session) EndGeneration() {
	s.generating.Store(false)
}

// Generating reports whether the session is in AwaitingCompletion.
func (s *Session) Generating() bool {
	return s.generating.Load()
}

// Manager is the connection registry: a mapping from connection identifier to
// Session state, owned by the transport layer.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Session)}
}

// Register creates a Session for a newly opened connection.
func (m *Manager) Register(remoteAddr string) *Session {
	now := time.Now().UTC()
	s := &Session{
		ID:             uuid.NewString(),
		RemoteAddr:     remoteAddr,
		StartedAt:      now,
		LastActivityAt: now,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return s
}

// Unregister removes a Session when its connection closes.
func (m *Manager) Unregister(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
}

func (m *Manager) Get(sessionID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Touch records inbound activity on a session.
func (m *Manager) Touch(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[sessionID]; ok {
		s.LastActivityAt = time.Now().UTC()
	}
}

func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
