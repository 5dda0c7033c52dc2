// internal/interfaces/http/middleware/session.go
package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	sessionCookieName = "cart_session"
	sessionKey        = "session_id"
	// Cookie lifetime exceeds the sweeper's cutoff; an expired-and-swept cart
	// just reads back empty.
	sessionCookieMaxAge = 7 * 24 * 60 * 60
)

// Session ensures every visitor carries a cart session id, minting a new one
// on first contact.
func Session() gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, err := c.Cookie(sessionCookieName)
		if err != nil || sessionID == "" {
			sessionID = uuid.New().String()
			c.SetCookie(sessionCookieName, sessionID, sessionCookieMaxAge, "/", "", false, true)
		}
		c.Set(sessionKey, sessionID)
		c.Next()
	}
}

// GetSessionIDFromContext extracts the cart session id from gin context
func GetSessionIDFromContext(c *gin.Context) string {
	return c.GetString(sessionKey)
}
