// internal/interfaces/http/middleware/cors.go
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront-backend/internal/config"
)

// CORS answers cross-origin requests for the storefront frontends listed in
// the security config. Credentials are only allowed for an explicitly matched
// origin, never for the wildcard.
func CORS(cfg *config.Config) gin.HandlerFunc {
	allowMethods := strings.Join(cfg.Security.CORSAllowedMethods, ", ")
	allowHeaders := strings.Join(cfg.Security.CORSAllowedHeaders, ", ")

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" && originAllowed(origin, cfg.Security.CORSAllowedOrigins) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
		}
		c.Header("Access-Control-Allow-Methods", allowMethods)
		c.Header("Access-Control-Allow-Headers", allowHeaders)
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// originAllowed matches the origin against the configured list. A "*.domain"
// entry covers any subdomain of domain but not domain itself.
func originAllowed(origin string, allowed []string) bool {
	for _, candidate := range allowed {
		switch {
		case candidate == "*" || candidate == origin:
			return true
		case strings.HasPrefix(candidate, "*."):
			// Keep the dot so "evil-domain.com" cannot match "*.domain.com".
			if strings.HasSuffix(origin, candidate[1:]) {
				return true
			}
		}
	}
	return false
}
