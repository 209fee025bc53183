package api

import (
	"errors"

	"echoscribe/internal/database"
	"echoscribe/internal/middleware"
	"echoscribe/internal/organisation"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type createOrganisationRequest struct {
	Name string `json:"name" validate:"required,min=2,max=100"`
}

func (h *Handler) CreateOrganisation(c *fiber.Ctx) error {
	userID := middleware.UserID(c)

	var req createOrganisationRequest
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

	user, err := h.authenticator.GetUser(c.Context(), userID)
	if err != nil {
		h.telemetry.Logger().ErrorContext(c.Context(), "Failed to get user", "user_id", userID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	}

	org, err := h.orgManager.CreateOrganisation(c.Context(), organisation.CreateOrganisationParams{
		Name:       req.Name,
		OwnerID:    userID,
		OwnerEmail: user.Email,
	})
	if err != nil {
		h.telemetry.Logger().ErrorContext(c.Context(), "Failed to create organisation", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"organisation": fiber.Map{
			"id":   org.ID,
			"name": org.Name,
		},
	})
}

// GetMembers returns the caller's organisation and its full member list.
// The no-store middleware on this route keeps per-user membership data out
// of shared caches.
func (h *Handler) GetMembers(c *fiber.Ctx) error {
	userID := middleware.UserID(c)

	members, err := h.memberReader.GetMembersForUser(c.Context(), userID)
	if err != nil {
		if errors.Is(err, organisation.ErrNotInOrganisation) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "not in an organisation",
			})
		}
		h.telemetry.Logger().ErrorContext(c.Context(), "Failed to get organisation members", "user_id", userID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	}

	memberPayload := make([]fiber.Map, len(members.Members))
	for i, member := range members.Members {
		memberPayload[i] = fiber.Map{
			"user_id":    member.UserID,
			"name":       member.Name,
			"email":      member.Email,
			"avatar_url": member.AvatarURL,
			"role":       member.Role,
			"joined_at":  member.JoinedAt,
		}
	}

	return c.JSON(fiber.Map{
		"organisation": fiber.Map{
			"id":   members.Organisation.ID,
			"name": members.Organisation.Name,
		},
		"members":           memberPayload,
		"current_user_role": members.CurrentUserRole,
	})
}

type inviteMemberRequest struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required,oneof=admin member"`
}

func (h *Handler) InviteMember(c *fiber.Ctx) error {
	userID := middleware.UserID(c)

	organisationID, err := uuid.Parse(c.Params("organisationID"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid organisation ID",
		})
	}

	var req inviteMemberRequest
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

	if err := h.rateLimiter.CheckInvite(c.Context(), req.Email); err != nil {
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"error": "too many attempts, please try again later",
		})
	}

	token, err := h.orgManager.InviteMember(c.Context(), organisation.InviteMemberParams{
		OrganisationID: organisationID,
		InviterID:      userID,
		Email:          req.Email,
		Role:           req.Role,
	})
	if err != nil {
		if errors.Is(err, organisation.ErrNotAllowed) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "not allowed",
			})
		}
		h.telemetry.Logger().ErrorContext(c.Context(), "Failed to invite member", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"token": token,
	})
}

type acceptInviteRequest struct {
	Token string `json:"token" validate:"required"`
}

func (h *Handler) AcceptInvite(c *fiber.Ctx) error {
	userID := middleware.UserID(c)

	var req acceptInviteRequest
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

	org, err := h.orgManager.AcceptInvite(c.Context(), req.Token, userID)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrInviteNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "invite not found",
			})
		case errors.Is(err, organisation.ErrInviteExpired):
			return c.Status(fiber.StatusGone).JSON(fiber.Map{
				"error": "invite expired",
			})
		case errors.Is(err, organisation.ErrInviteAlreadyUsed):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "invite already used",
			})
		case errors.Is(err, organisation.ErrInviteEmailMismatch):
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "invite was issued to a different email address",
			})
		}
		h.telemetry.Logger().ErrorContext(c.Context(), "Failed to accept invite", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	}

	return c.JSON(fiber.Map{
		"organisation": fiber.Map{
			"id":   org.ID,
			"name": org.Name,
		},
	})
}

func (h *Handler) RemoveMember(c *fiber.Ctx) error {
	userID := middleware.UserID(c)

	organisationID, err := uuid.Parse(c.Params("organisationID"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid organisation ID",
		})
	}
	memberID, err := uuid.Parse(c.Params("memberID"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid member ID",
		})
	}

	if err := h.orgManager.RemoveMember(c.Context(), organisation.RemoveMemberParams{
		OrganisationID: organisationID,
		RequesterID:    userID,
		MemberID:       memberID,
	}); err != nil {
		if errors.Is(err, organisation.ErrNotAllowed) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "not allowed",
			})
		}
		h.telemetry.Logger().ErrorContext(c.Context(), "Failed to remove member", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	}

	return c.SendStatus(fiber.StatusNoContent)
}
