package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eatbalance/web/internal"
	"github.com/eatbalance/web/internal/response"
	"github.com/eatbalance/web/internal/session"
)

const (
	CookieName = "eb_session"
	// HeaderName lets non-browser clients carry the session id without cookies.
	HeaderName = "X-Session-ID"

	sessionKey = "session"
)

type CookieOptions struct {
	Secure bool
	MaxAge int
}

// SessionMiddleware loads the visitor's session, creating one when the
// cookie is missing or stale, and stores it on the gin context.
func SessionMiddleware(sessions *session.Manager, opts CookieOptions, logger internal.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(CookieName)
		if err != nil || id == "" {
			id = c.GetHeader(HeaderName)
		}
		sess, created, err := sessions.LoadOrCreate(c.Request.Context(), id)
		if err != nil {
			logger.Errorf("[request_id=%s] session middleware: %v", c.GetString("request_id"), err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, response.InternalError("Session unavailable"))
			return
		}
		if created {
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(CookieName, sess.ID, opts.MaxAge, "/", "", opts.Secure, true)
		}
		c.Writer.Header().Set(HeaderName, sess.ID)
		c.Set(sessionKey, sess)
		c.Next()
	}
}

// ClearSessionCookie tells the browser to drop the session cookie.
func ClearSessionCookie(c *gin.Context, opts CookieOptions) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, "", -1, "/", "", opts.Secure, true)
}

// RequireAuth rejects requests whose session holds no credential.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !SessionFrom(c).Authenticated() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Unauthorized("Login required"))
			return
		}
		c.Next()
	}
}

// SessionFrom returns the session loaded by SessionMiddleware.
func SessionFrom(c *gin.Context) *internal.Session {
	if v, ok := c.Get(sessionKey); ok {
		if s, ok := v.(*internal.Session); ok {
			return s
		}
	}
	return nil
}
