package api

import (
	"errors"
	"strings"

	"echoscribe/internal/account"

	"github.com/gofiber/fiber/v2"
)

type registerRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email,no_disposable_email"`
	Password string `json:"password" validate:"required,password_strength"`
}

func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	if err := h.validator.Validate(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "validation failed",
		})
	}

	if err := h.rateLimiter.CheckRegister(c.Context(), req.Email); err != nil {
		if errors.Is(err, account.ErrTooManyAttempts) {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "too many attempts, please try again later",
			})
		}
		h.telemetry.Logger().ErrorContext(c.Context(), "Rate limiter failure", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	}

	userID, err := h.authenticator.Register(c.Context(), account.RegisterParams{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, account.ErrEmailAlreadyInUse) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "email already in use",
			})
		}
		h.telemetry.Logger().ErrorContext(c.Context(), "Failed to register user", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"user_id": userID,
	})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	if err := h.validator.Validate(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "validation failed",
		})
	}

	if err := h.rateLimiter.CheckLogin(c.Context(), req.Email); err != nil {
		if errors.Is(err, account.ErrTooManyAttempts) {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "too many attempts, please try again later",
			})
		}
		h.telemetry.Logger().ErrorContext(c.Context(), "Rate limiter failure", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	}

	userID, err := h.authenticator.Login(c.Context(), account.LoginParams{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, account.ErrUserNotFound) || errors.Is(err, account.ErrInvalidPassword) {
			// Generic error to prevent email enumeration
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid email or password",
			})
		}
		h.telemetry.Logger().ErrorContext(c.Context(), "Failed to log in user", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	}

	sess, err := h.store.Get(c)
	if err != nil {
		h.telemetry.Logger().ErrorContext(c.Context(), "Failed to get session", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to create session",
		})
	}
	sess.Set("user_id", userID.String())
	if err := sess.Save(); err != nil {
		h.telemetry.Logger().ErrorContext(c.Context(), "Failed to save session", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to save session",
		})
	}

	if err := h.rateLimiter.ResetAttempts(c.Context(), req.Email, "login"); err != nil {
		h.telemetry.Logger().WarnContext(c.Context(), "Failed to reset login attempts", "error", err)
	}

	return c.JSON(fiber.Map{
		"user_id": userID,
	})
}

func (h *Handler) Logout(c *fiber.Ctx) error {
	sess, err := h.store.Get(c)
	if err != nil {
		h.telemetry.Logger().ErrorContext(c.Context(), "Failed to get session", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "session error",
		})
	}

	if err := sess.Destroy(); err != nil {
		h.telemetry.Logger().ErrorContext(c.Context(), "Failed to destroy session", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to destroy session",
		})
	}

	return c.SendStatus(fiber.StatusNoContent)
}
