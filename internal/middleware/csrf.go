package middleware

import (
	"crypto/subtle"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/busticket-web/internal/session"
	"github.com/smarttransit/busticket-web/internal/utils"
)

const (
	// CSRFFormField is the hidden form field carrying the session token
	CSRFFormField = "csrf_token"

	// CSRFHeader carries the token for scripted requests
	CSRFHeader = "X-CSRF-Token"

	// MsgCSRFRejected is flashed when a form post fails the token check
	MsgCSRFRejected = "Your form has expired. Please try again."
)

// VerifyCSRF rejects state-changing requests whose token does not match the
// session's. It must run after LoadSession. A rejected post is sent back to
// the page it came from with a flash message.
func VerifyCSRF(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		sess := GetSession(c)
		sent := c.GetHeader(CSRFHeader)
		if sent == "" {
			sent = c.PostForm(CSRFFormField)
		}
		if sess.CSRFToken != "" && subtle.ConstantTimeCompare([]byte(sent), []byte(sess.CSRFToken)) == 1 {
			c.Next()
			return
		}

		logger.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"ip":      utils.GetRealIP(c),
			"missing": sent == "",
		}).Warn("Rejected request with invalid CSRF token")

		sess.AddFlash(session.FlashError, MsgCSRFRejected)
		c.Redirect(http.StatusSeeOther, refererPath(c.Request))
		c.Abort()
	}
}

// refererPath returns the local page a form was posted from, "/" when the
// referer is missing or foreign
func refererPath(r *http.Request) string {
	u, err := url.Parse(r.Referer())
	if err != nil || u.Host != r.Host {
		return "/"
	}
	return SafeNext(u.RequestURI())
}
