package middleware

import (
	"github.com/gofiber/fiber/v2"
)

// SecurityHeaders adds baseline security headers to every response.
func SecurityHeaders() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")

		if c.Protocol() == "https" {
			c.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
		}

		return c.Next()
	}
}

// NoStore marks responses as uncacheable by any shared or private cache and
// keys cache variance on the credentials that scoped the response. Required
// on every endpoint returning per-user organisation data, so one member's
// view can never be served to another through an intermediary.
func NoStore() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderCacheControl, "private, no-store, no-cache, must-revalidate")
		c.Set("Pragma", "no-cache")
		c.Set("Expires", "0")
		c.Set(fiber.HeaderVary, "Cookie, Authorization")

		return c.Next()
	}
}
