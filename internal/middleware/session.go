package middleware

import (
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/busticket-web/internal/models"
	"github.com/smarttransit/busticket-web/internal/session"
)

// SessionContextKey is the key used to store the session in Gin context
const SessionContextKey = "session"

// Guard messages
const (
	MsgLoginRequired = "Please log in to continue"
	MsgAdminRequired = "Admin access required"
)

// sessionWriter saves the session right before the response headers go out,
// so the cookie is part of them
type sessionWriter struct {
	gin.ResponseWriter
	once sync.Once
	save func()
}

func (w *sessionWriter) flush() {
	w.once.Do(w.save)
}

func (w *sessionWriter) WriteHeader(code int) {
	w.flush()
	w.ResponseWriter.WriteHeader(code)
}

func (w *sessionWriter) WriteHeaderNow() {
	w.flush()
	w.ResponseWriter.WriteHeaderNow()
}

func (w *sessionWriter) Write(data []byte) (int, error) {
	w.flush()
	return w.ResponseWriter.Write(data)
}

func (w *sessionWriter) WriteString(s string) (int, error) {
	w.flush()
	return w.ResponseWriter.WriteString(s)
}

// LoadSession loads the session behind the cookie, re-checks its token when
// due and saves it before the response is written. Requests on one session
// are serialised.
func LoadSession(manager *session.Manager, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Lock before loading so a request queued behind another on the same
		// session sees what the first one saved
		if id := manager.SessionID(c.Request); id != "" {
			unlock := manager.Lock(id)
			defer unlock()
		}

		sess, err := manager.Load(c.Request)
		if err != nil {
			logger.WithError(err).Error("Failed to load session")
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}

		ctx := c.Request.Context()
		manager.Resolve(ctx, sess)
		c.Set(SessionContextKey, sess)

		writer := &sessionWriter{ResponseWriter: c.Writer}
		writer.save = func() {
			if err := manager.Save(ctx, writer.ResponseWriter, sess); err != nil {
				logger.WithError(err).Error("Failed to save session")
			}
		}
		c.Writer = writer

		c.Next()

		// Handlers that wrote nothing still persist their changes
		if !writer.Written() {
			writer.flush()
		}
	}
}

// GetSession returns the request session. Outside LoadSession it returns an
// empty anonymous session.
func GetSession(c *gin.Context) *session.Session {
	if value, exists := c.Get(SessionContextKey); exists {
		if sess, ok := value.(*session.Session); ok {
			return sess
		}
	}
	return &session.Session{}
}

// CurrentUser returns the signed-in user, nil when anonymous
func CurrentUser(c *gin.Context) *models.User {
	sess := GetSession(c)
	if !sess.IsAuthenticated() {
		return nil
	}
	return sess.User
}

// RequireAuth redirects anonymous users to the login page. GET requests
// carry their URL in next so the user returns after signing in.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := GetSession(c)
		if sess.IsAuthenticated() {
			c.Next()
			return
		}

		location := "/login"
		if c.Request.Method == http.MethodGet {
			location = LoginPath(c.Request.URL.RequestURI())
		}
		sess.AddFlash(session.FlashInfo, MsgLoginRequired)
		c.Redirect(http.StatusFound, location)
		c.Abort()
	}
}

// RequireAdmin redirects everyone but admins to the home page
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := GetSession(c)
		if sess.IsAdmin() {
			c.Next()
			return
		}

		sess.AddFlash(session.FlashError, MsgAdminRequired)
		c.Redirect(http.StatusFound, "/")
		c.Abort()
	}
}

// LoginPath is the login URL returning to next afterwards
func LoginPath(next string) string {
	next = SafeNext(next)
	if next == "/" {
		return "/login"
	}
	return "/login?next=" + url.QueryEscape(next)
}

// SafeNext accepts only local paths as a post-login destination
func SafeNext(next string) string {
	next = strings.TrimSpace(next)
	if next == "" || !strings.HasPrefix(next, "/") ||
		strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	if u, err := url.Parse(next); err != nil || u.Scheme != "" || u.Host != "" {
		return "/"
	}
	return next
}
