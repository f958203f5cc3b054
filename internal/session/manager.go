package session

import (
	"time"

	"github.com/google/uuid"

	"kaskelas/internal/cache"
	"kaskelas/internal/log"
)

// CookieName carries the session token.
const CookieName = "kas_session"

const defaultMaxSessions = 1024

// Manager maps opaque tokens to sessions. Sessions expire after ttl without use.
type Manager struct {
	creds    Credentials
	policy   Policy
	sessions *cache.LRUCache[*Session]
	logger   *log.Logger
}

func NewManager(creds Credentials, policy Policy, ttl time.Duration, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Manager{
		creds:    creds,
		policy:   policy,
		sessions: cache.NewLRUCache[*Session](defaultMaxSessions, ttl),
		logger:   logger.WithComponent(log.ComponentSession),
	}
}

// Create starts a fresh anonymous session.
func (m *Manager) Create() (string, *Session) {
	token := uuid.NewString()
	s := New(m.creds, m.policy)
	m.sessions.Set(token, s)
	return token, s
}

// Get returns the live session for token and extends its lifetime.
func (m *Manager) Get(token string) (*Session, bool) {
	if token == "" {
		return nil, false
	}
	s, ok := m.sessions.Get(token)
	if ok {
		m.sessions.Touch(token)
	}
	return s, ok
}

// Destroy ends the session behind token.
func (m *Manager) Destroy(token string) {
	if s, ok := m.sessions.Get(token); ok {
		m.logger.Info("Session destroyed", log.FieldUser, s.User())
	}
	m.sessions.Delete(token)
}

// Cleaner exposes the session store to a cache.Manager sweep.
func (m *Manager) Cleaner() cache.Cleaner { return m.sessions }

// Count returns the number of stored sessions.
func (m *Manager) Count() int { return m.sessions.Size() }
