// internal/interfaces/http/middleware/auth.go
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/pkg/auth"
)

const actorKey = "actor"

// AuthMiddleware creates JWT authentication middleware
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	jwtManager := auth.NewJWTManager(cfg)

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization header required",
			})
			c.Abort()
			return
		}

		tokenString := auth.ExtractTokenFromHeader(authHeader)
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid authorization header format",
			})
			c.Abort()
			return
		}

		claims, err := jwtManager.ValidateAccessToken(tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired token",
			})
			c.Abort()
			return
		}

		c.Set(actorKey, claims.Actor())
		c.Next()
	}
}

// OptionalAuthMiddleware authenticates when a token is present but lets
// anonymous requests through. Cart endpoints serve both kinds of visitor.
func OptionalAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	jwtManager := auth.NewJWTManager(cfg)

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		tokenString := auth.ExtractTokenFromHeader(authHeader)
		if tokenString == "" {
			c.Next()
			return
		}

		if claims, err := jwtManager.ValidateAccessToken(tokenString); err == nil {
			c.Set(actorKey, claims.Actor())
		}
		c.Next()
	}
}

// BackofficeMiddleware ensures the actor holds a back-office role.
func BackofficeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := GetActorFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication required",
			})
			c.Abort()
			return
		}

		if !actor.IsPrivileged() {
			c.JSON(http.StatusForbidden, gin.H{
				"error": "Back-office access required",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// GetActorFromContext extracts the authenticated actor from gin context
func GetActorFromContext(c *gin.Context) (order.Actor, bool) {
	value, exists := c.Get(actorKey)
	if !exists {
		return order.Actor{}, false
	}
	return value.(order.Actor), true
}
