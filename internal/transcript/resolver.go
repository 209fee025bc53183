package transcript

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"echoscribe/internal/database"
	"echoscribe/internal/monitoring"
	"echoscribe/internal/storage"
	"echoscribe/internal/util"

	"github.com/google/uuid"
)

// listPageSize bounds the versioned listing at tier 2.
const listPageSize = 100

// Resolution tiers, in precedence order.
const (
	TierPointer = "pointer"
	TierListing = "listing"
	TierLegacy  = "legacy"
)

type recordingStore interface {
	GetRecording(ctx context.Context, params database.GetRecordingParams) (database.Recording, error)
}

type objectLister interface {
	List(ctx context.Context, prefix string, max int) ([]storage.ObjectInfo, error)
}

// Resolver determines the single authoritative storage path of a recording's
// latest transcript. Resolution is a total function: it degrades to a
// constructed legacy path rather than erroring, so callers always get a path
// even when every backing read fails. The caller handles a later not-found
// when fetching the returned path.
//
// Precedence is strict: pointer > versioned listing > legacy path. Tiers are
// never merged or compared across.
type Resolver struct {
	db        recordingStore
	store     objectLister
	logger    *slog.Logger
	telemetry monitoring.Telemetry
}

func NewResolver(db recordingStore, store objectLister, logger *slog.Logger, telemetry monitoring.Telemetry) Resolver {
	return Resolver{
		db:        db,
		store:     store,
		logger:    logger,
		telemetry: telemetry,
	}
}

// tierOutcome is the explicit found/absent result of one resolution tier.
// Lookup errors collapse to absent so the fallthrough is visible in control
// flow rather than hidden in error suppression.
type tierOutcome struct {
	Path  string
	Found bool
}

func found(path string) tierOutcome { return tierOutcome{Path: path, Found: true} }
func absent() tierOutcome           { return tierOutcome{} }

// ResolvePath returns the storage path of the latest transcript for the
// given recording. The owner id must already be authenticated as the
// caller's own id; the resolver performs no authorization of its own beyond
// scoping every lookup by it.
func (r *Resolver) ResolvePath(ctx context.Context, ownerID, recordingID uuid.UUID) string {
	if out := r.lookupPointer(ctx, ownerID, recordingID); out.Found {
		r.telemetry.RecordTranscriptResolution(ctx, TierPointer)
		return out.Path
	}

	if out := r.listVersioned(ctx, ownerID, recordingID); out.Found {
		r.telemetry.RecordTranscriptResolution(ctx, TierListing)
		return out.Path
	}

	r.telemetry.RecordTranscriptResolution(ctx, TierLegacy)
	return LegacyPath(ownerID, recordingID)
}

// lookupPointer reads the recording's transcript_path pointer. A missing
// row, empty pointer, or lookup error all collapse to absent.
func (r *Resolver) lookupPointer(ctx context.Context, ownerID, recordingID uuid.UUID) tierOutcome {
	recording, err := r.db.GetRecording(ctx, database.GetRecordingParams{
		ID:      util.Some(recordingID),
		OwnerID: util.Some(ownerID),
	})
	if err != nil {
		r.logger.DebugContext(ctx, "Transcript pointer lookup failed, falling through",
			"recording_id", recordingID, "error", err)
		return absent()
	}

	if !recording.TranscriptPath.IsSet || recording.TranscriptPath.Val == "" {
		return absent()
	}

	return found(recording.TranscriptPath.Val)
}

// listVersioned lists the versioned artifacts under {owner}/{recording} and
// picks the lexicographically greatest name. Names are fixed-width
// millisecond timestamps, so name-descending order is also newest-first; a
// listing error collapses to absent.
func (r *Resolver) listVersioned(ctx context.Context, ownerID, recordingID uuid.UUID) tierOutcome {
	prefix := fmt.Sprintf("%s/%s", ownerID, recordingID)

	objects, err := r.store.List(ctx, prefix, listPageSize)
	if err != nil {
		r.logger.DebugContext(ctx, "Transcript listing failed, falling through",
			"prefix", prefix, "error", err)
		return absent()
	}

	if len(objects) == 0 {
		return absent()
	}

	return found(fmt.Sprintf("%s/%s", prefix, objects[0].Name))
}

// LegacyPath is the fixed non-versioned key used by recordings that predate
// the versioning scheme. No existence check is performed.
func LegacyPath(ownerID, recordingID uuid.UUID) string {
	return fmt.Sprintf("%s/%s.json", ownerID, recordingID)
}

// VersionedKey builds the storage key for a transcript written at the given
// time. The 13-digit zero-padded millisecond name keeps lexicographic order
// equal to chronological order.
func VersionedKey(ownerID, recordingID uuid.UUID, at time.Time) string {
	return fmt.Sprintf("%s/%s/%013d.json", ownerID, recordingID, at.UnixMilli())
}
