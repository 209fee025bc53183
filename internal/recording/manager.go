package recording

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"echoscribe/internal/database"
	"echoscribe/internal/storage"
	"echoscribe/internal/transcript"
	"echoscribe/internal/transcription"
	"echoscribe/internal/util"

	"github.com/google/uuid"
)

const audioURLExpiration = 15 * time.Minute

// Manager owns the recording lifecycle: upload, listing, transcription
// submission and transcript retrieval.
type Manager struct {
	db       *database.Database
	logger   *slog.Logger
	store    storage.Storage
	provider *transcription.Client
	resolver *transcript.Resolver
}

func NewManager(db *database.Database, logger *slog.Logger, store storage.Storage, provider *transcription.Client, resolver *transcript.Resolver) Manager {
	return Manager{
		db:       db,
		logger:   logger,
		store:    store,
		provider: provider,
		resolver: resolver,
	}
}

type UploadParams struct {
	OwnerID   uuid.UUID
	Title     string
	Filename  string
	MimeType  string
	SizeBytes int64
	Content   io.Reader
}

// Upload stores the audio object and registers the recording.
func (m *Manager) Upload(ctx context.Context, params UploadParams) (database.Recording, error) {
	var recording database.Recording

	if params.Title == "" {
		return recording, fmt.Errorf("recording title cannot be empty")
	}

	key := fmt.Sprintf("%s/audio/%s_%s", params.OwnerID, uuid.NewString(), storage.SafeObjectName(params.Filename))
	if err := m.store.Put(ctx, key, params.Content, params.MimeType); err != nil {
		return recording, fmt.Errorf("failed to store audio object: %w", err)
	}

	recording, err := m.db.CreateRecording(ctx, database.CreateRecordingParams{
		OwnerID:   params.OwnerID,
		Title:     params.Title,
		AudioPath: key,
		MimeType:  params.MimeType,
		SizeBytes: params.SizeBytes,
	})
	if err != nil {
		// The audio object is orphaned at this point; best effort removal.
		if delErr := m.store.Delete(ctx, key); delErr != nil {
			m.logger.ErrorContext(ctx, "Failed to remove orphaned audio object", "key", key, "error", delErr)
		}
		return recording, fmt.Errorf("failed to create recording: %w", err)
	}

	m.logger.InfoContext(ctx, "Recording uploaded", "recording_id", recording.ID, "owner_id", params.OwnerID, "size_bytes", params.SizeBytes)

	return recording, nil
}

func (m *Manager) GetRecording(ctx context.Context, ownerID, recordingID uuid.UUID) (database.Recording, error) {
	return m.db.GetRecording(ctx, database.GetRecordingParams{
		ID:      util.Some(recordingID),
		OwnerID: util.Some(ownerID),
	})
}

type ListParams struct {
	OwnerID uuid.UUID
	Limit   int
	Offset  int
}

func (m *Manager) ListRecordings(ctx context.Context, params ListParams) ([]database.Recording, error) {
	if params.Limit <= 0 || params.Limit > 100 {
		params.Limit = 50
	}
	return m.db.ListRecordings(ctx, database.ListRecordingsParams{
		OwnerID: params.OwnerID,
		Limit:   params.Limit,
		Offset:  params.Offset,
	})
}

// SubmitForTranscription hands the recording's audio to the transcription
// provider and registers a job to be polled.
func (m *Manager) SubmitForTranscription(ctx context.Context, ownerID, recordingID uuid.UUID) (database.TranscriptionJob, error) {
	var job database.TranscriptionJob

	recording, err := m.GetRecording(ctx, ownerID, recordingID)
	if err != nil {
		return job, err
	}

	audioURL, err := m.store.GetURL(ctx, recording.AudioPath, audioURLExpiration)
	if err != nil {
		return job, fmt.Errorf("failed to get audio URL for recording %s: %w", recording.ID, err)
	}

	providerJobID, err := m.provider.SubmitJob(ctx, transcription.SubmitJobParams{
		AudioURL: audioURL,
		MimeType: recording.MimeType,
	})
	if err != nil {
		return job, fmt.Errorf("failed to submit recording %s for transcription: %w", recording.ID, err)
	}

	job, err = m.db.CreateTranscriptionJob(ctx, database.CreateTranscriptionJobParams{
		RecordingID:   recording.ID,
		ProviderJobID: providerJobID,
	})
	if err != nil {
		return job, fmt.Errorf("failed to create transcription job for recording %s: %w", recording.ID, err)
	}

	if err := m.db.UpdateRecordingByID(ctx, recording.ID, database.UpdateRecordingParams{
		Status: util.Some(database.RecordingStatusTranscribing),
	}); err != nil {
		return job, fmt.Errorf("failed to mark recording %s as transcribing: %w", recording.ID, err)
	}

	m.logger.InfoContext(ctx, "Recording submitted for transcription", "recording_id", recording.ID, "provider_job_id", providerJobID)

	return job, nil
}

// OpenLatestTranscript resolves the recording's current transcript artifact
// and opens it for reading. Authorization happens at the HTTP boundary, so
// this works for shared recordings too; resolution is always keyed on the
// recording's owner.
func (m *Manager) OpenLatestTranscript(ctx context.Context, recordingID uuid.UUID) (io.ReadCloser, string, error) {
	recording, err := m.db.GetRecording(ctx, database.GetRecordingParams{ID: util.Some(recordingID)})
	if err != nil {
		return nil, "", err
	}

	path := m.resolver.ResolvePath(ctx, recording.OwnerID, recording.ID)

	reader, err := m.store.Retrieve(ctx, path)
	if err != nil {
		return nil, path, fmt.Errorf("failed to open transcript %s: %w", path, err)
	}

	return reader, path, nil
}

// SaveTranscript persists an edited transcript as a new versioned artifact
// and moves the recording's pointer to it. Earlier versions stay in place.
func (m *Manager) SaveTranscript(ctx context.Context, recordingID uuid.UUID, content io.Reader) (string, error) {
	recording, err := m.db.GetRecording(ctx, database.GetRecordingParams{ID: util.Some(recordingID)})
	if err != nil {
		return "", err
	}

	key := transcript.VersionedKey(recording.OwnerID, recording.ID, time.Now().UTC())
	if err := m.store.Put(ctx, key, content, "application/json"); err != nil {
		return "", fmt.Errorf("failed to store transcript: %w", err)
	}

	if err := m.db.UpdateRecordingByID(ctx, recording.ID, database.UpdateRecordingParams{
		TranscriptPath: util.Some(key),
		Status:         util.Some(database.RecordingStatusTranscribed),
	}); err != nil {
		return "", fmt.Errorf("failed to update transcript pointer for recording %s: %w", recording.ID, err)
	}

	m.logger.InfoContext(ctx, "Transcript saved", "recording_id", recording.ID, "transcript_path", key)

	return key, nil
}
