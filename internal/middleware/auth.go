package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/google/uuid"
)

// AuthenticatedSession requires a logged-in session and exposes the user ID
// as the "user_id" local.
func AuthenticatedSession(sessionStore *session.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := sessionStore.Get(c)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "session error",
			})
		}

		rawUserID, ok := sess.Get("user_id").(string)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "authentication required",
			})
		}

		userID, err := uuid.Parse(rawUserID)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "authentication required",
			})
		}

		c.Locals("user_id", userID)

		return c.Next()
	}
}

// UserID reads the authenticated user ID set by AuthenticatedSession.
func UserID(c *fiber.Ctx) uuid.UUID {
	userID, _ := c.Locals("user_id").(uuid.UUID)
	return userID
}
