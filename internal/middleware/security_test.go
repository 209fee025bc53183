package middleware_test

import (
	"net/http/httptest"
	"testing"

	"echoscribe/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoStore(t *testing.T) {
	app := fiber.New()
	app.Get("/members", middleware.NoStore(), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/members", nil))
	require.Nil(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "private, no-store, no-cache, must-revalidate", resp.Header.Get("Cache-Control"))
	assert.Equal(t, "no-cache", resp.Header.Get("Pragma"))
	assert.Equal(t, "0", resp.Header.Get("Expires"))
	assert.Equal(t, "Cookie, Authorization", resp.Header.Get("Vary"))
}

func TestSecurityHeaders(t *testing.T) {
	app := fiber.New()
	app.Use(middleware.SecurityHeaders())
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil))
	require.Nil(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
	assert.Equal(t, "strict-origin-when-cross-origin", resp.Header.Get("Referrer-Policy"))

	// Plain-http test requests must not get HSTS.
	assert.Empty(t, resp.Header.Get("Strict-Transport-Security"))
}
