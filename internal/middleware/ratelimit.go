package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oggyb/wholikeme/internal/cache"
)

// RateLimit allows limit requests per window per client, counted in Redis
// so every instance shares the budget. The client is the authenticated user,
// else the remote IP. Redis errors let the request through.
func RateLimit(rc *cache.RedisCache, limit int, window time.Duration, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rc == nil || limit <= 0 {
			c.Next()
			return
		}

		client := CallerID(c)
		if client == "" {
			client = c.ClientIP()
		}

		n, err := rc.Hit(c.Request.Context(), rc.KeyForRateLimit(client, window), window)
		if err != nil {
			if log != nil {
				log.Warn("rate limiter unavailable", "err", err)
			}
			c.Next()
			return
		}

		remaining := int64(limit) - n
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if n > int64(limit) {
			c.Header("Retry-After", strconv.Itoa(int(window.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
