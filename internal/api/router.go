package api

import (
	"echoscribe/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
)

// RegisterRoutes wires all HTTP endpoints. Organisation member data is
// always served behind the no-store middleware.
func RegisterRoutes(app *fiber.App, handler *Handler, sessionStore *session.Store) {
	app.Get("/health", handler.Health)

	app.Post("/auth/register", handler.Register)
	app.Post("/auth/login", handler.Login)
	app.Post("/auth/logout", handler.Logout)

	// Stripe calls this without a session.
	app.Post("/webhooks/stripe", handler.StripeWebhook)

	authenticated := app.Group("/api", middleware.AuthenticatedSession(sessionStore))

	org := authenticated.Group("/organisation", middleware.NoStore())
	org.Post("/", handler.CreateOrganisation)
	org.Get("/members", handler.GetMembers)
	org.Post("/:organisationID/invites", handler.InviteMember)
	org.Post("/invites/accept", handler.AcceptInvite)
	org.Delete("/:organisationID/members/:memberID", handler.RemoveMember)

	billing := authenticated.Group("/billing", middleware.NoStore())
	billing.Post("/checkout", handler.CreateCheckoutSession)

	recordings := authenticated.Group("/recordings")
	recordings.Post("/", handler.UploadRecording)
	recordings.Get("/", handler.ListRecordings)
	recordings.Get("/:recordingID", handler.GetRecording)
	recordings.Post("/:recordingID/transcription", handler.SubmitTranscription)
	recordings.Get("/:recordingID/transcript", handler.GetTranscript)
	recordings.Put("/:recordingID/transcript", handler.SaveTranscript)
	recordings.Post("/:recordingID/shares", handler.ShareRecording)
}
