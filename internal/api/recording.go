package api

import (
	"bytes"
	"errors"
	"io"

	"echoscribe/internal/database"
	"echoscribe/internal/middleware"
	"echoscribe/internal/recording"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const maxUploadSizeBytes = 500 << 20 // 500 MiB

type uploadMetadata struct {
	Title    string `json:"title" validate:"required,min=1,max=200"`
	MimeType string `json:"mime_type" validate:"required,audio_mime_type"`
}

func (h *Handler) UploadRecording(c *fiber.Ctx) error {
	userID := middleware.UserID(c)

	fileHeader, err := c.FormFile("audio")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "missing audio file",
		})
	}
	if fileHeader.Size > maxUploadSizeBytes {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
			"error": "audio file too large",
		})
	}

	meta := uploadMetadata{
		Title:    c.FormValue("title"),
		MimeType: fileHeader.Header.Get("Content-Type"),
	}
	if err := h.validator.Validate(meta); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "validation failed",
		})
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.telemetry.Logger().ErrorContext(c.Context(), "Failed to open uploaded file", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	}
	defer file.Close()

	rec, err := h.recordings.Upload(c.Context(), recording.UploadParams{
		OwnerID:   userID,
		Title:     meta.Title,
		Filename:  fileHeader.Filename,
		MimeType:  meta.MimeType,
		SizeBytes: fileHeader.Size,
		Content:   file,
	})
	if err != nil {
		h.telemetry.Logger().ErrorContext(c.Context(), "Failed to upload recording", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	}

	if err := h.authz.GrantRecordingOwner(c.Context(), userID, rec.ID); err != nil {
		h.telemetry.Logger().ErrorContext(c.Context(), "Failed to grant recording ownership", "recording_id", rec.ID, "error", err)
	}

	return c.Status(fiber.StatusCreated).JSON(recordingPayload(rec))
}

func (h *Handler) ListRecordings(c *fiber.Ctx) error {
	userID := middleware.UserID(c)

	recordings, err := h.recordings.ListRecordings(c.Context(), recording.ListParams{
		OwnerID: userID,
		Limit:   c.QueryInt("limit", 50),
		Offset:  c.QueryInt("offset", 0),
	})
	if err != nil {
		h.telemetry.Logger().ErrorContext(c.Context(), "Failed to list recordings", "user_id", userID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	}

	payload := make([]fiber.Map, len(recordings))
	for i, rec := range recordings {
		payload[i] = recordingPayload(rec)
	}

	return c.JSON(fiber.Map{
		"recordings": payload,
	})
}

func (h *Handler) GetRecording(c *fiber.Ctx) error {
	userID := middleware.UserID(c)

	recordingID, err := uuid.Parse(c.Params("recordingID"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid recording ID",
		})
	}

	rec, err := h.recordings.GetRecording(c.Context(), userID, recordingID)
	if err != nil {
		if errors.Is(err, database.ErrRecordingNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "recording not found",
			})
		}
		h.telemetry.Logger().ErrorContext(c.Context(), "Failed to get recording", "recording_id", recordingID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	}

	return c.JSON(recordingPayload(rec))
}

func (h *Handler) SubmitTranscription(c *fiber.Ctx) error {
	userID := middleware.UserID(c)

	recordingID, err := uuid.Parse(c.Params("recordingID"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid recording ID",
		})
	}

	job, err := h.recordings.SubmitForTranscription(c.Context(), userID, recordingID)
	if err != nil {
		if errors.Is(err, database.ErrRecordingNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "recording not found",
			})
		}
		h.telemetry.Logger().ErrorContext(c.Context(), "Failed to submit transcription", "recording_id", recordingID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"job_id": job.ID,
		"status": job.Status,
	})
}

// canAccessRecording reports whether the user owns the recording or holds
// the given share relation on it.
func (h *Handler) canAccessRecording(c *fiber.Ctx, userID, recordingID uuid.UUID, relation string) bool {
	if _, err := h.recordings.GetRecording(c.Context(), userID, recordingID); err == nil {
		return true
	}

	var (
		allowed bool
		err     error
	)
	switch relation {
	case "can_edit":
		allowed, err = h.authz.CanEditRecording(c.Context(), userID, recordingID)
	default:
		allowed, err = h.authz.CanViewRecording(c.Context(), userID, recordingID)
	}
	if err != nil {
		h.telemetry.Logger().ErrorContext(c.Context(), "Authorization check failed", "recording_id", recordingID, "error", err)
		return false
	}
	return allowed
}

// GetTranscript streams the recording's current transcript artifact.
func (h *Handler) GetTranscript(c *fiber.Ctx) error {
	userID := middleware.UserID(c)

	recordingID, err := uuid.Parse(c.Params("recordingID"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid recording ID",
		})
	}

	if !h.canAccessRecording(c, userID, recordingID, "can_view") {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "recording not found",
		})
	}

	reader, path, err := h.recordings.OpenLatestTranscript(c.Context(), recordingID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "transcript not found",
		})
	}
	defer reader.Close()

	content, err := io.ReadAll(reader)
	if err != nil {
		h.telemetry.Logger().ErrorContext(c.Context(), "Failed to read transcript", "path", path, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(content)
}

// SaveTranscript stores an edited transcript as a new version.
func (h *Handler) SaveTranscript(c *fiber.Ctx) error {
	userID := middleware.UserID(c)

	recordingID, err := uuid.Parse(c.Params("recordingID"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid recording ID",
		})
	}

	if len(c.Body()) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "empty transcript body",
		})
	}

	if !h.canAccessRecording(c, userID, recordingID, "can_edit") {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "not allowed",
		})
	}

	path, err := h.recordings.SaveTranscript(c.Context(), recordingID, bytes.NewReader(c.Body()))
	if err != nil {
		if errors.Is(err, database.ErrRecordingNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "recording not found",
			})
		}
		h.telemetry.Logger().ErrorContext(c.Context(), "Failed to save transcript", "recording_id", recordingID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	}

	return c.JSON(fiber.Map{
		"transcript_path": path,
	})
}

type shareRecordingRequest struct {
	UserID   uuid.UUID `json:"user_id" validate:"required"`
	Relation string    `json:"relation" validate:"required,oneof=viewer editor"`
}

func (h *Handler) ShareRecording(c *fiber.Ctx) error {
	userID := middleware.UserID(c)

	recordingID, err := uuid.Parse(c.Params("recordingID"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid recording ID",
		})
	}

	var req shareRecordingRequest
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

	// Only the owner may share.
	if _, err := h.recordings.GetRecording(c.Context(), userID, recordingID); err != nil {
		if errors.Is(err, database.ErrRecordingNotFound) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "not allowed",
			})
		}
		h.telemetry.Logger().ErrorContext(c.Context(), "Failed to get recording", "recording_id", recordingID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	}

	if err := h.authz.ShareRecording(c.Context(), req.UserID, recordingID, req.Relation); err != nil {
		h.telemetry.Logger().ErrorContext(c.Context(), "Failed to share recording", "recording_id", recordingID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func recordingPayload(rec database.Recording) fiber.Map {
	return fiber.Map{
		"id":               rec.ID,
		"title":            rec.Title,
		"mime_type":        rec.MimeType,
		"size_bytes":       rec.SizeBytes,
		"duration_seconds": rec.DurationSeconds,
		"status":           rec.Status,
		"created_at":       rec.CreatedAt,
	}
}
