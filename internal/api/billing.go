package api

import (
	"encoding/json"
	"errors"

	"echoscribe/internal/middleware"
	"echoscribe/internal/organisation"

	"github.com/gofiber/fiber/v2"
	stripelib "github.com/stripe/stripe-go/v76"
)

type checkoutRequest struct {
	Plan       string `json:"plan" validate:"required"`
	SuccessURL string `json:"success_url" validate:"required,url"`
	CancelURL  string `json:"cancel_url" validate:"required,url"`
}

func (h *Handler) CreateCheckoutSession(c *fiber.Ctx) error {
	userID := middleware.UserID(c)

	var req checkoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	if err := h.validator.Validate(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "validation failed",
		})
	}

	plan, err := organisation.ParseSubscriptionPlan(req.Plan)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "unknown plan",
		})
	}

	members, err := h.memberReader.GetMembersForUser(c.Context(), userID)
	if err != nil {
		if errors.Is(err, organisation.ErrNotInOrganisation) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "not in an organisation",
			})
		}
		h.telemetry.Logger().ErrorContext(c.Context(), "Failed to resolve organisation", "user_id", userID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	}
	if members.CurrentUserRole != organisation.RoleOwner {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "only the owner can change the subscription",
		})
	}

	sessionURL, err := h.orgManager.CreateCheckoutSession(c.Context(), organisation.CreateCheckoutSessionParams{
		OrganisationID: members.Organisation.ID,
		Plan:           plan,
		SuccessURL:     req.SuccessURL,
		CancelURL:      req.CancelURL,
	})
	if err != nil {
		h.telemetry.Logger().ErrorContext(c.Context(), "Failed to create checkout session", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	}

	return c.JSON(fiber.Map{
		"checkout_url": sessionURL,
	})
}

// StripeWebhook handles subscription lifecycle events pushed by Stripe.
func (h *Handler) StripeWebhook(c *fiber.Ctx) error {
	event, err := h.orgManager.VerifyStripeEvent(c.Body(), c.Get("Stripe-Signature"))
	if err != nil {
		h.telemetry.Logger().WarnContext(c.Context(), "Rejected Stripe webhook", "error", err)
		return c.SendStatus(fiber.StatusBadRequest)
	}

	switch event.Type {
	case "customer.subscription.created", "customer.subscription.updated", "customer.subscription.deleted":
		var subscription stripelib.Subscription
		if err := json.Unmarshal(event.Data.Raw, &subscription); err != nil {
			h.telemetry.Logger().ErrorContext(c.Context(), "Failed to parse subscription event", "error", err)
			return c.SendStatus(fiber.StatusBadRequest)
		}

		if err := h.orgManager.SyncSubscription(c.Context(), subscription.ID); err != nil {
			h.telemetry.Logger().ErrorContext(c.Context(), "Failed to sync subscription", "subscription_id", subscription.ID, "error", err)
			return c.SendStatus(fiber.StatusInternalServerError)
		}
	default:
		h.telemetry.Logger().DebugContext(c.Context(), "Ignoring Stripe event", "type", event.Type)
	}

	return c.SendStatus(fiber.StatusOK)
}
