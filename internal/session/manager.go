package session

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/maypok86/otter/v2"
)

// CookieName is the cookie carrying the session id.
const CookieName = "fitdash_session"

// Manager hands out sessions by id. Idle sessions expire after the TTL and
// at most size sessions are held.
type Manager struct {
	sessions *otter.Cache[string, *Session]
	ttl      time.Duration
	secure   bool
	logger   *slog.Logger
}

// NewManager creates a Manager. secure marks the cookie Secure.
func NewManager(size int, ttl time.Duration, secure bool, logger *slog.Logger) *Manager {
	if size <= 0 {
		size = 1000
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		sessions: otter.Must(&otter.Options[string, *Session]{
			MaximumSize:      size,
			ExpiryCalculator: otter.ExpiryAccessing[string, *Session](ttl),
		}),
		ttl:    ttl,
		secure: secure,
		logger: logger,
	}
}

// Get returns the session with id, or false when it is unknown or expired.
func (m *Manager) Get(id string) (*Session, bool) {
	if id == "" {
		return nil, false
	}
	return m.sessions.GetIfPresent(id)
}

// Create starts a new session with a random id.
func (m *Manager) Create() *Session {
	s := New(uuid.NewString())
	m.sessions.Set(s.ID, s)
	m.logger.Debug("session created", "id", s.ID)
	return s
}

// Lookup returns the session for r, creating one when the cookie is missing
// or stale. The cookie is (re)written on w whenever a session is created.
func (m *Manager) Lookup(w http.ResponseWriter, r *http.Request) *Session {
	if c, err := r.Cookie(CookieName); err == nil {
		if s, ok := m.Get(c.Value); ok {
			return s
		}
	}
	s := m.Create()
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    s.ID,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return s
}

// Delete forgets the session with id.
func (m *Manager) Delete(id string) {
	m.sessions.Invalidate(id)
}

// Len returns the approximate number of live sessions.
func (m *Manager) Len() int {
	return m.sessions.EstimatedSize()
}
