package transcript_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"echoscribe/internal/database"
	"echoscribe/internal/storage"
	"echoscribe/internal/transcript"
	"echoscribe/internal/util"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecordingStore struct {
	recording database.Recording
	err       error
	calls     int
}

func (f *fakeRecordingStore) GetRecording(ctx context.Context, params database.GetRecordingParams) (database.Recording, error) {
	f.calls++
	if f.err != nil {
		return database.Recording{}, f.err
	}
	return f.recording, nil
}

type fakeLister struct {
	objects []storage.ObjectInfo
	err     error
	prefix  string
	max     int
	calls   int
}

func (f *fakeLister) List(ctx context.Context, prefix string, max int) ([]storage.ObjectInfo, error) {
	f.calls++
	f.prefix = prefix
	f.max = max
	if f.err != nil {
		return nil, f.err
	}
	return f.objects, nil
}

type fakeTelemetry struct {
	tiers      []string
	operations []string
}

func (f *fakeTelemetry) RecordStoreRoundTrip(ctx context.Context, operation string, duration time.Duration) {
	f.operations = append(f.operations, operation)
}

func (f *fakeTelemetry) RecordTranscriptResolution(ctx context.Context, tier string) {
	f.tiers = append(f.tiers, tier)
}

func (f *fakeTelemetry) Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (f *fakeTelemetry) Shutdown(ctx context.Context) error { return nil }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestResolvePath_PointerWins(t *testing.T) {
	ownerID := uuid.New()
	recordingID := uuid.New()

	db := &fakeRecordingStore{
		recording: database.Recording{
			ID:             recordingID,
			OwnerID:        ownerID,
			TranscriptPath: util.Some("custom/location/transcript-v7.json"),
		},
	}
	store := &fakeLister{
		objects: []storage.ObjectInfo{{Name: "0001700000000000.json"}},
	}
	telemetry := &fakeTelemetry{}
	resolver := transcript.NewResolver(db, store, discardLogger(), telemetry)

	path := resolver.ResolvePath(context.Background(), ownerID, recordingID)

	// The pointer is authoritative verbatim, even when versioned artifacts
	// exist.
	assert.Equal(t, "custom/location/transcript-v7.json", path)
	assert.Equal(t, 0, store.calls)
	assert.Equal(t, []string{transcript.TierPointer}, telemetry.tiers)
}

func TestResolvePath_ListingPicksNewest(t *testing.T) {
	ownerID := uuid.New()
	recordingID := uuid.New()

	db := &fakeRecordingStore{
		recording: database.Recording{
			ID:      recordingID,
			OwnerID: ownerID,
		},
	}
	store := &fakeLister{
		objects: []storage.ObjectInfo{
			{Name: "0001700000000300.json"},
			{Name: "0001700000000200.json"},
			{Name: "0001700000000100.json"},
		},
	}
	telemetry := &fakeTelemetry{}
	resolver := transcript.NewResolver(db, store, discardLogger(), telemetry)

	path := resolver.ResolvePath(context.Background(), ownerID, recordingID)

	expected := fmt.Sprintf("%s/%s/0001700000000300.json", ownerID, recordingID)
	assert.Equal(t, expected, path)
	assert.Equal(t, fmt.Sprintf("%s/%s", ownerID, recordingID), store.prefix)
	assert.Equal(t, 100, store.max)
	assert.Equal(t, []string{transcript.TierListing}, telemetry.tiers)
}

func TestResolvePath_LegacyFallback(t *testing.T) {
	ownerID := uuid.New()
	recordingID := uuid.New()

	db := &fakeRecordingStore{
		recording: database.Recording{ID: recordingID, OwnerID: ownerID},
	}
	store := &fakeLister{}
	telemetry := &fakeTelemetry{}
	resolver := transcript.NewResolver(db, store, discardLogger(), telemetry)

	path := resolver.ResolvePath(context.Background(), ownerID, recordingID)

	assert.Equal(t, fmt.Sprintf("%s/%s.json", ownerID, recordingID), path)
	assert.Equal(t, []string{transcript.TierLegacy}, telemetry.tiers)
}

func TestResolvePath_TotalUnderFailure(t *testing.T) {
	ownerID := uuid.New()
	recordingID := uuid.New()

	db := &fakeRecordingStore{err: errors.New("connection refused")}
	store := &fakeLister{err: errors.New("storage unavailable")}
	telemetry := &fakeTelemetry{}
	resolver := transcript.NewResolver(db, store, discardLogger(), telemetry)

	// Every tier fails; the resolver still returns the legacy path.
	path := resolver.ResolvePath(context.Background(), ownerID, recordingID)

	assert.Equal(t, transcript.LegacyPath(ownerID, recordingID), path)
	assert.Equal(t, []string{transcript.TierLegacy}, telemetry.tiers)
}

func TestResolvePath_MissingRecordingFallsThrough(t *testing.T) {
	ownerID := uuid.New()
	recordingID := uuid.New()

	db := &fakeRecordingStore{err: database.ErrRecordingNotFound}
	store := &fakeLister{
		objects: []storage.ObjectInfo{{Name: "0001700000000100.json"}},
	}
	telemetry := &fakeTelemetry{}
	resolver := transcript.NewResolver(db, store, discardLogger(), telemetry)

	path := resolver.ResolvePath(context.Background(), ownerID, recordingID)

	expected := fmt.Sprintf("%s/%s/0001700000000100.json", ownerID, recordingID)
	assert.Equal(t, expected, path)
}

func TestResolvePath_EmptyPointerFallsThrough(t *testing.T) {
	ownerID := uuid.New()
	recordingID := uuid.New()

	db := &fakeRecordingStore{
		recording: database.Recording{
			ID:             recordingID,
			OwnerID:        ownerID,
			TranscriptPath: util.Some(""),
		},
	}
	store := &fakeLister{}
	telemetry := &fakeTelemetry{}
	resolver := transcript.NewResolver(db, store, discardLogger(), telemetry)

	path := resolver.ResolvePath(context.Background(), ownerID, recordingID)

	assert.Equal(t, transcript.LegacyPath(ownerID, recordingID), path)
}

func TestResolvePath_Idempotent(t *testing.T) {
	ownerID := uuid.New()
	recordingID := uuid.New()

	db := &fakeRecordingStore{
		recording: database.Recording{
			ID:             recordingID,
			OwnerID:        ownerID,
			TranscriptPath: util.Some("pinned/path.json"),
		},
	}
	store := &fakeLister{}
	telemetry := &fakeTelemetry{}
	resolver := transcript.NewResolver(db, store, discardLogger(), telemetry)

	first := resolver.ResolvePath(context.Background(), ownerID, recordingID)
	second := resolver.ResolvePath(context.Background(), ownerID, recordingID)

	assert.Equal(t, first, second)
}

func TestVersionedKey_LexicalOrderMatchesChronological(t *testing.T) {
	ownerID := uuid.New()
	recordingID := uuid.New()

	earlier := transcript.VersionedKey(ownerID, recordingID, time.UnixMilli(999))
	later := transcript.VersionedKey(ownerID, recordingID, time.UnixMilli(1_700_000_000_000))

	// Fixed-width names keep string order equal to time order across digit
	// count boundaries.
	assert.Less(t, earlier, later)

	require.Contains(t, earlier, "/0000000000999.json")
	require.Contains(t, later, "/1700000000000.json")
}
