package http

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/flashorca/gateway/config"
	"github.com/flashorca/gateway/ports"
)

// SessionCookie is the cookie carrying the signed session token.
const SessionCookie = "gateway_session"

const sessionKey = "sessionID"

const sessionCookieMaxAge = 7 * 24 * 60 * 60 // seconds

// SessionMiddleware guarantees every request carries a tamper-evident
// session id. A missing or invalid cookie gets a fresh session; the id is
// exposed to handlers via the gin context.
func SessionMiddleware(tokenizer ports.Tokenizer, cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw, err := c.Cookie(SessionCookie); err == nil {
			if sessionID, err := tokenizer.ParseSessionToken(raw); err == nil {
				c.Set(sessionKey, sessionID)
				c.Next()
				return
			}
		}

		sessionID := uuid.New().String()
		token, err := tokenizer.SessionToken(sessionID)
		if err == nil {
			c.SetCookie(SessionCookie, token, sessionCookieMaxAge, "/", cfg.CookieDomain, false, true)
		}
		c.Set(sessionKey, sessionID)
		c.Next()
	}
}

// sessionID returns the session id the middleware attached.
func sessionID(c *gin.Context) string {
	if v, ok := c.Get(sessionKey); ok {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}
