package daemon

import (
	"bytes"
	"context"
	"log/slog"
	"time"

	"echoscribe/internal/database"
	"echoscribe/internal/storage"
	"echoscribe/internal/transcript"
	"echoscribe/internal/transcription"
	"echoscribe/internal/util"
)

const openJobBatchSize = 20

// PollTranscriptionJobsTask polls the transcription provider for open jobs.
// Completed transcripts are written to storage under a fresh versioned key
// and the recording's transcript pointer is updated to that exact key.
func PollTranscriptionJobsTask(db *database.Database, store storage.Storage, provider *transcription.Client, logger *slog.Logger, interval time.Duration) Task {
	return func(ctx context.Context, name string) error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		logger.Info("Transcription poll task started", "task", name)

		for {
			select {
			case <-ctx.Done():
				logger.Info("Transcription poll task shutting down", "task", name)
				return nil
			case <-ticker.C:
				jobs, err := db.ListOpenTranscriptionJobs(ctx, openJobBatchSize)
				if err != nil {
					logger.Error("Failed to list open transcription jobs", "error", err)
					continue
				}

				for _, job := range jobs {
					if err := pollJob(ctx, db, store, provider, logger, job); err != nil {
						logger.Error("Failed to poll transcription job", "job_id", job.ID, "error", err)
					}
				}
			}
		}
	}
}

func pollJob(ctx context.Context, db *database.Database, store storage.Storage, provider *transcription.Client, logger *slog.Logger, job database.TranscriptionJob) error {
	providerJob, err := provider.GetJob(ctx, job.ProviderJobID)
	if err != nil {
		return err
	}

	switch providerJob.Status {
	case transcription.ProviderJobStatusQueued:
		return nil
	case transcription.ProviderJobStatusRunning:
		if job.Status == database.TranscriptionJobStatusRunning {
			return nil
		}
		return db.UpdateTranscriptionJobByID(ctx, job.ID, database.UpdateTranscriptionJobParams{
			Status: util.Some(database.TranscriptionJobStatusRunning),
		})
	case transcription.ProviderJobStatusCompleted:
		return completeJob(ctx, db, store, logger, job, providerJob.Transcript)
	case transcription.ProviderJobStatusFailed:
		return failJob(ctx, db, logger, job, providerJob.Error)
	default:
		logger.Warn("Unknown provider job status", "job_id", job.ID, "status", providerJob.Status)
		return nil
	}
}

func completeJob(ctx context.Context, db *database.Database, store storage.Storage, logger *slog.Logger, job database.TranscriptionJob, payload []byte) error {
	recording, err := db.GetRecording(ctx, database.GetRecordingParams{ID: util.Some(job.RecordingID)})
	if err != nil {
		return err
	}

	key := transcript.VersionedKey(recording.OwnerID, recording.ID, time.Now().UTC())
	if err := store.Put(ctx, key, bytes.NewReader(payload), "application/json"); err != nil {
		return err
	}

	if err := db.UpdateRecordingByID(ctx, recording.ID, database.UpdateRecordingParams{
		TranscriptPath: util.Some(key),
		Status:         util.Some(database.RecordingStatusTranscribed),
	}); err != nil {
		return err
	}

	if err := db.UpdateTranscriptionJobByID(ctx, job.ID, database.UpdateTranscriptionJobParams{
		Status: util.Some(database.TranscriptionJobStatusCompleted),
	}); err != nil {
		return err
	}

	logger.Info("Transcription completed", "recording_id", recording.ID, "transcript_path", key)

	return nil
}

func failJob(ctx context.Context, db *database.Database, logger *slog.Logger, job database.TranscriptionJob, reason string) error {
	if err := db.UpdateTranscriptionJobByID(ctx, job.ID, database.UpdateTranscriptionJobParams{
		Status:        util.Some(database.TranscriptionJobStatusFailed),
		FailureReason: util.Some(reason),
	}); err != nil {
		return err
	}

	if err := db.UpdateRecordingByID(ctx, job.RecordingID, database.UpdateRecordingParams{
		Status: util.Some(database.RecordingStatusFailed),
	}); err != nil {
		return err
	}

	logger.Warn("Transcription failed", "recording_id", job.RecordingID, "reason", reason)

	return nil
}
