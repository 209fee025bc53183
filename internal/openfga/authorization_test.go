package openfga_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"echoscribe/internal/config"
	"echoscribe/internal/openfga"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDisabledService(t *testing.T) *openfga.AuthorizationService {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client, err := openfga.NewClient(config.OpenFGAConfig{Enabled: false}, logger)
	require.Nil(t, err)

	return openfga.NewAuthorizationService(client)
}

func TestDisabledClient_DeniesAllChecks(t *testing.T) {
	svc := newDisabledService(t)
	ctx := context.Background()

	userID := uuid.New()
	recordingID := uuid.New()

	// Without a tuple store no share grants exist, so a user who is not the
	// recording's owner must be denied. Owner access goes through the
	// owner-scoped database lookup, never through these checks.
	canView, err := svc.CanViewRecording(ctx, userID, recordingID)
	require.Nil(t, err)
	assert.False(t, canView)

	canEdit, err := svc.CanEditRecording(ctx, userID, recordingID)
	require.Nil(t, err)
	assert.False(t, canEdit)

	canShare, err := svc.CanShareRecording(ctx, userID, recordingID)
	require.Nil(t, err)
	assert.False(t, canShare)
}

func TestDisabledClient_GrantsDeniedEvenAfterWrite(t *testing.T) {
	svc := newDisabledService(t)
	ctx := context.Background()

	ownerID := uuid.New()
	viewerID := uuid.New()
	recordingID := uuid.New()

	// Writes are silent no-ops; they must not flip any later check.
	require.Nil(t, svc.GrantRecordingOwner(ctx, ownerID, recordingID))
	require.Nil(t, svc.ShareRecording(ctx, viewerID, recordingID, openfga.RelationViewer))

	canView, err := svc.CanViewRecording(ctx, viewerID, recordingID)
	require.Nil(t, err)
	assert.False(t, canView)
}

func TestShareRecording_RejectsUnknownRelation(t *testing.T) {
	svc := newDisabledService(t)

	err := svc.ShareRecording(context.Background(), uuid.New(), uuid.New(), "owner")

	assert.NotNil(t, err)
	assert.Contains(t, err.Error(), "invalid share relation")
}
