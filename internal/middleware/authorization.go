package middleware

import (
	"net/http"

	"xquest/pkg/auth"
	"xquest/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SelfOnly lets the request through only when the authenticated user is the
// one named by the :param path segment. It must run after the JWT middleware.
func SelfOnly(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.Logger()

		value, exists := c.Get(auth.ClaimsKey)
		if !exists {
			log.Error("auth claims not found in context")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		claims, ok := value.(*auth.Claims)
		if !ok {
			log.Error("invalid type assertion for auth claims")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		if claims.UserID != c.Param(param) {
			log.Info("user tried to act on another account",
				zap.String("user_id", claims.UserID),
				zap.String("target", c.Param(param)))
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}

		c.Next()
	}
}
