// Package session stores per-visitor state between requests.
package session

import (
	"context"
	"time"

	"github.com/BradenHooton/kontakt/internal/models"
	"github.com/google/uuid"
)

// Session is the server-side state of one visitor.
type Session struct {
	ID        string            `json:"id"`
	CSRF      *models.CSRFToken `json:"csrf,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	ExpiresAt time.Time         `json:"expires_at"`

	dirty bool
}

// New creates a session that lives for ttl.
func New(ttl time.Duration) *Session {
	now := time.Now()
	return &Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
		dirty:     true,
	}
}

// SetCSRF binds token to the session.
func (s *Session) SetCSRF(token models.CSRFToken) {
	s.CSRF = &token
	s.dirty = true
}

// Dirty reports whether the session changed since it was loaded.
func (s *Session) Dirty() bool {
	return s.dirty
}

// MarkClean is called by stores after a successful save.
func (s *Session) MarkClean() {
	s.dirty = false
}

func (s *Session) clone() *Session {
	c := *s
	if s.CSRF != nil {
		token := *s.CSRF
		c.CSRF = &token
	}
	return &c
}

// Expired reports whether the session has outlived its TTL.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Store loads and saves sessions by ID.
type Store interface {
	// Get returns models.ErrNotFound for unknown or expired sessions.
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}

type contextKey struct{}

// WithSession attaches s to ctx.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session attached by the session middleware, if any.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(contextKey{}).(*Session)
	return s
}
