package api

import (
	"time"

	"echoscribe/internal/account"
	"echoscribe/internal/database"
	"echoscribe/internal/monitoring"
	"echoscribe/internal/openfga"
	"echoscribe/internal/organisation"
	"echoscribe/internal/recording"
	"echoscribe/internal/validator"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
)

type Handler struct {
	store         *session.Store
	db            *database.Database
	telemetry     monitoring.Telemetry
	validator     *validator.Validator
	authenticator *account.Authenticator
	rateLimiter   *account.RateLimiter
	orgManager    *organisation.Manager
	memberReader  *organisation.MemberReader
	recordings    *recording.Manager
	authz         *openfga.AuthorizationService
}

func NewHandler(
	store *session.Store,
	db *database.Database,
	telemetry monitoring.Telemetry,
	v *validator.Validator,
	authenticator *account.Authenticator,
	rateLimiter *account.RateLimiter,
	orgManager *organisation.Manager,
	memberReader *organisation.MemberReader,
	recordings *recording.Manager,
	authz *openfga.AuthorizationService,
) Handler {
	return Handler{
		store:         store,
		db:            db,
		telemetry:     telemetry,
		validator:     v,
		authenticator: authenticator,
		rateLimiter:   rateLimiter,
		orgManager:    orgManager,
		memberReader:  memberReader,
		recordings:    recordings,
		authz:         authz,
	}
}

// Health returns the health status of the application.
func (h *Handler) Health(c *fiber.Ctx) error {
	if err := h.db.Ping(c.Context()); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unhealthy",
			"error":  "database connection failed",
		})
	}

	return c.JSON(fiber.Map{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
