package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/oggyb/wholikeme/internal/auth"
	svcErr "github.com/oggyb/wholikeme/internal/errors"
)

const callerKey = "user_id"

// Auth validates the bearer token and sets the caller's user id in context.
// A nil verifier disables authentication and every request passes through.
func Auth(v *auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if v == nil {
			c.Next()
			return
		}
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}
		claims, err := v.Parse(strings.TrimSpace(parts[1]))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		c.Set(callerKey, claims.UserID)
		c.Next()
	}
}

// CallerID returns the authenticated user id, or "" when auth is disabled.
func CallerID(c *gin.Context) string {
	return c.GetString(callerKey)
}

// RequireSelf rejects requests acting on behalf of another user.
// Without an authenticated caller the claimed userID is trusted.
func RequireSelf(c *gin.Context, userID string) error {
	caller := CallerID(c)
	if caller == "" || caller == userID {
		return nil
	}
	return svcErr.Forbidden("cannot act on behalf of another user")
}
