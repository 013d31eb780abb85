package transport

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/ganot/cronograma-mcp/internal/mcp"
)

// CodeRateLimited is returned with 429 when the download bucket is empty.
const CodeRateLimited = "RATE_LIMITED"

// RateLimit applies one token bucket shared by every caller of the route.
// A non-positive limit disables it.
func RateLimit(limit rate.Limit, burst int) gin.HandlerFunc {
	if limit <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(limit, burst)

	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, mcp.ErrorResponse{
				OK:        false,
				ErrorCode: CodeRateLimited,
				Message:   "too many download requests",
				Details:   []any{},
			})
			return
		}
		c.Next()
	}
}
