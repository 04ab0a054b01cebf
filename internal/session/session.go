// Package session keeps the per-visitor dataset override.
//
// Every visitor starts on the server's default dataset. A successful upload
// installs an override for that visitor only; a failed upload leaves the
// session exactly as it was.
package session

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/TobiSchelling/fitdash/internal/dataset"
)

// LoadFunc parses an uploaded file. dataset.Load satisfies it.
type LoadFunc func(r io.Reader, name string) (*dataset.Table, error)

// Session is one visitor's context. It is safe for concurrent use.
type Session struct {
	ID      string
	Created time.Time

	override atomic.Pointer[dataset.Table]
}

// New returns a session without an override.
func New(id string) *Session {
	return &Session{ID: id, Created: time.Now()}
}

// Active returns the uploaded table, or def when there is none.
func (s *Session) Active(def *dataset.Table) *dataset.Table {
	if t := s.override.Load(); t != nil {
		return t
	}
	return def
}

// Override returns the uploaded table or nil.
func (s *Session) Override() *dataset.Table {
	return s.override.Load()
}

// Replace installs t as the override. A nil t is the same as Reset.
func (s *Session) Replace(t *dataset.Table) {
	s.override.Store(t)
}

// Reset drops the override so the default dataset is active again.
func (s *Session) Reset() {
	s.override.Store(nil)
}

// Upload parses r with load and installs the result. On error the current
// override is kept.
func (s *Session) Upload(r io.Reader, name string, load LoadFunc) (*dataset.Table, error) {
	if load == nil {
		load = dataset.Load
	}
	t, err := load(r, name)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", name, err)
	}
	s.Replace(t)
	return t, nil
}
