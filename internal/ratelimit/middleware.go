package ratelimit

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Middleware rejects requests over the limit with a 429. Applied to the
// mutation route groups only; reads stay unthrottled.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.AllowRequest() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
				"stats": rl.GetStats(),
			})
			return
		}
		c.Next()
	}
}
