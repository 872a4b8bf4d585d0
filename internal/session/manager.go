package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/busticket-web/internal/api"
	"github.com/smarttransit/busticket-web/internal/models"
)

// DefaultCookieName is the session cookie used when none is configured
const DefaultCookieName = "busticket_session"

// Options configures a Manager
type Options struct {
	CookieName string
	MaxAge     time.Duration
	Secure     bool
	Logger     *logrus.Logger
	Now        func() time.Time

	// ResolveTTL is how long a resolved user is trusted before the token
	// is checked again
	ResolveTTL time.Duration
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager owns the session lifecycle: loading from the cookie, resolving
// the user behind the token, login, logout and persistence
type Manager struct {
	store      Store
	auth       api.AuthService
	cookieName string
	maxAge     time.Duration
	secure     bool
	resolveTTL time.Duration
	logger     *logrus.Logger
	now        func() time.Time

	locksMu sync.Mutex
	locks   map[string]*lockEntry
}

// NewManager creates a session manager
func NewManager(store Store, auth api.AuthService, opts Options) *Manager {
	if opts.CookieName == "" {
		opts.CookieName = DefaultCookieName
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = 7 * 24 * time.Hour
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.ResolveTTL <= 0 {
		opts.ResolveTTL = 5 * time.Minute
	}

	return &Manager{
		store:      store,
		auth:       auth,
		cookieName: opts.CookieName,
		maxAge:     opts.MaxAge,
		secure:     opts.Secure,
		resolveTTL: opts.ResolveTTL,
		logger:     opts.Logger,
		now:        opts.Now,
		locks:      make(map[string]*lockEntry),
	}
}

// CookieName returns the session cookie name
func (m *Manager) CookieName() string {
	return m.cookieName
}

// SessionID returns the session id carried by the request cookie, "" when
// there is none
func (m *Manager) SessionID(r *http.Request) string {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// Load returns the session named by the request cookie, or a fresh one
func (m *Manager) Load(r *http.Request) (*Session, error) {
	if id := m.SessionID(r); id != "" {
		sess, err := m.store.Get(r.Context(), id)
		if err == nil {
			if sess.CSRFToken == "" {
				sess.CSRFToken = uuid.NewString()
			}
			return sess, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("failed to load session: %w", err)
		}
	}
	return m.newSession(), nil
}

func (m *Manager) newSession() *Session {
	now := m.now()
	return &Session{
		ID:        uuid.NewString(),
		CSRFToken: uuid.NewString(),
		Resolved:  true,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(m.maxAge),
	}
}

// Save persists sess and refreshes the cookie
func (m *Manager) Save(ctx context.Context, w http.ResponseWriter, sess *Session) error {
	now := m.now()
	sess.UpdatedAt = now
	sess.ExpiresAt = now.Add(m.maxAge)

	if err := m.store.Save(ctx, sess); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    sess.ID,
		Path:     "/",
		MaxAge:   int(m.maxAge.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Resolve checks the stored token against the backend, at most once per
// ResolveTTL. Any failure signs the session out.
func (m *Manager) Resolve(ctx context.Context, sess *Session) {
	if sess.Resolved && m.now().Sub(sess.ResolvedAt) < m.resolveTTL {
		return
	}
	if sess.Token == "" {
		sess.clearAuth()
		return
	}

	user, err := m.auth.CurrentUser(api.WithToken(ctx, sess.Token))
	if err != nil {
		m.logger.WithFields(logrus.Fields{
			"session_id": shortID(sess.ID),
			"status":     api.StatusOf(err),
		}).WithError(err).Warn("Failed to resolve session user, signing out")
		sess.clearAuth()
		return
	}

	sess.User = user
	sess.Resolved = true
	sess.ResolvedAt = m.now()
}

// Login authenticates and stores the token and user in sess. The session
// id is rotated so a pre-login id cannot be reused.
func (m *Manager) Login(ctx context.Context, sess *Session, email, password string) (*models.User, error) {
	resp, err := m.auth.Login(ctx, models.LoginRequest{
		Email:    strings.TrimSpace(email),
		Password: password,
	})
	if err != nil {
		return nil, err
	}

	oldID := sess.ID
	sess.ID = uuid.NewString()
	sess.CSRFToken = uuid.NewString()
	if err := m.store.Delete(ctx, oldID); err != nil {
		m.logger.WithError(err).Warn("Failed to delete pre-login session")
	}

	user := resp.User
	sess.Token = resp.AccessToken
	sess.User = &user
	sess.Resolved = true
	sess.ResolvedAt = m.now()
	sess.Wizard = nil

	m.logger.WithFields(logrus.Fields{
		"user_id":    user.ID,
		"session_id": shortID(sess.ID),
	}).Info("User logged in")

	return &user, nil
}

// Register creates an account. The caller signs in separately.
func (m *Manager) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	return m.auth.Register(ctx, req)
}

// Logout deletes the session from the store and continues with a fresh
// anonymous one under a new id. The next Save issues its cookie.
func (m *Manager) Logout(ctx context.Context, sess *Session) error {
	if err := m.store.Delete(ctx, sess.ID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	if sess.User != nil {
		m.logger.WithField("user_id", sess.User.ID).Info("User logged out")
	}

	fresh := m.newSession()
	*sess = *fresh
	return nil
}

// Lock serialises work on one session id within the process and returns
// the unlock function
func (m *Manager) Lock(id string) func() {
	m.locksMu.Lock()
	entry, ok := m.locks[id]
	if !ok {
		entry = &lockEntry{}
		m.locks[id] = entry
	}
	entry.refs++
	m.locksMu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()

		m.locksMu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(m.locks, id)
		}
		m.locksMu.Unlock()
	}
}

// Cleanup removes expired sessions from the store
func (m *Manager) Cleanup(ctx context.Context) {
	removed, err := m.store.DeleteExpired(ctx, m.now())
	if err != nil {
		m.logger.WithError(err).Error("Failed to clean up expired sessions")
		return
	}
	if removed > 0 {
		m.logger.WithField("removed", removed).Info("Expired sessions cleaned up")
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
