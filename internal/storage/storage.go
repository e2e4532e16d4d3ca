package storage

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/lehigh-university-libraries/library-assistant/internal/models"
	"github.com/lehigh-university-libraries/library-assistant/internal/workspace"
)

// ErrSessionNotFound is returned for unknown or expired sessions.
var ErrSessionNotFound = errors.New("session not found")

type entry struct {
	session *models.Session
	area    *workspace.Area
}

// SessionStore keeps live sessions and their storage areas. A session that is
// deleted, expires or is pushed out by newer ones has its area destroyed.
type SessionStore struct {
	sessions *expirable.LRU[string, *entry]
	mu       sync.Mutex
}

// New creates a store holding at most size sessions for ttl each.
func New(size int, ttl time.Duration) *SessionStore {
	return &SessionStore{
		sessions: expirable.NewLRU[string, *entry](size, onEvict, ttl),
	}
}

func onEvict(id string, e *entry) {
	if e.area == nil {
		return
	}
	if err := e.area.Destroy(); err != nil {
		slog.Warn("Unable to remove session files", "session_id", id, "err", err)
		return
	}
	slog.Info("Session ended", "session_id", id)
}

// Get returns a copy of the session and its storage area.
func (s *SessionStore) Get(sessionID string) (*models.Session, *workspace.Area, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, exists := s.sessions.Get(sessionID)
	if !exists {
		return nil, nil, false
	}
	session := *e.session
	return &session, e.area, true
}

func (s *SessionStore) Set(session *models.Session, area *workspace.Area) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions.Add(session.ID, &entry{session: session, area: area})
}

// Update applies fn to a session under the store lock.
func (s *SessionStore) Update(sessionID string, fn func(*models.Session)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, exists := s.sessions.Get(sessionID)
	if !exists {
		return ErrSessionNotFound
	}
	fn(e.session)
	return nil
}

func (s *SessionStore) Len() int {
	return s.sessions.Len()
}

func (s *SessionStore) Delete(sessionID string) bool {
	return s.sessions.Remove(sessionID)
}

// Close ends every session.
func (s *SessionStore) Close() {
	s.sessions.Purge()
}
