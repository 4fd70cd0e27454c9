package middleware

import (
	"log"

	"github.com/labstack/echo/v4"

	"quillchat/internal/infrastructure/ratelimit"
	"quillchat/pkg/response"
)

// RateLimit limits requests per authenticated user, or per client IP before
// authentication.
func RateLimit(rl *ratelimit.RateLimiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key, ok := c.Get("uid").(string)
			if !ok || key == "" {
				key = "ip:" + c.RealIP()
			}

			allowed, waitTime := rl.Allow(key, ratelimit.ActionHTTP)
			if !allowed {
				log.Printf("RATE LIMIT: Blocked request from %s (reset in %v)", key, waitTime)
				return response.TooManyRequests(c, "Rate limit exceeded", waitTime)
			}

			return next(c)
		}
	}
}
