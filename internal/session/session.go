// Package session keeps the per-browser state of the web frontend: the bearer
// token, the resolved user, flash messages and the booking wizard draft.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/smarttransit/busticket-web/internal/api"
	"github.com/smarttransit/busticket-web/internal/booking"
	"github.com/smarttransit/busticket-web/internal/models"
)

// ErrNotFound is returned by stores for unknown or expired sessions
var ErrNotFound = errors.New("session not found")

// Flash kinds
const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashInfo    = "info"
)

// Flash is a one-shot message shown on the next rendered page
type Flash struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Session is the server-side state behind the session cookie
type Session struct {
	ID    string       `json:"id"`
	Token string       `json:"token,omitempty"`
	User  *models.User `json:"user,omitempty"`

	// Resolved is set once the token has been checked against the backend
	Resolved   bool      `json:"resolved"`
	ResolvedAt time.Time `json:"resolved_at"`

	// CSRFToken must accompany every state-changing form post
	CSRFToken string `json:"csrf_token,omitempty"`

	Flash  []Flash        `json:"flash,omitempty"`
	Wizard *booking.State `json:"wizard,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Store persists sessions by id
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, sess *Session) error
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// IsAuthenticated reports whether the session carries a token and a user
func (s *Session) IsAuthenticated() bool {
	return s != nil && s.Token != "" && s.User != nil
}

// IsAdmin reports whether the signed-in user is an admin
func (s *Session) IsAdmin() bool {
	return s.IsAuthenticated() && s.User.IsAdmin()
}

// Context attaches the session token to ctx for data-access calls
func (s *Session) Context(ctx context.Context) context.Context {
	if s == nil {
		return ctx
	}
	return api.WithToken(ctx, s.Token)
}

// AddFlash queues a message for the next page
func (s *Session) AddFlash(kind, message string) {
	s.Flash = append(s.Flash, Flash{Kind: kind, Message: message})
}

// PopFlash returns and clears queued messages
func (s *Session) PopFlash() []Flash {
	flash := s.Flash
	s.Flash = nil
	return flash
}

// Expired reports whether the session is past its expiry
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// clearAuth drops everything tied to the signed-in user
func (s *Session) clearAuth() {
	s.Token = ""
	s.User = nil
	s.Wizard = nil
	s.Resolved = true
}

func (s *Session) clone() *Session {
	c := *s
	if s.User != nil {
		u := *s.User
		c.User = &u
	}
	if s.Wizard != nil {
		w := *s.Wizard
		c.Wizard = &w
	}
	if s.Flash != nil {
		c.Flash = append([]Flash(nil), s.Flash...)
	}
	return &c
}
