package openfga

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Share relations a recording owner can grant to other users.
const (
	RelationViewer = "viewer"
	RelationEditor = "editor"
)

// AuthorizationService answers recording-level permission questions on top
// of the tuple store. Recording shares are modelled as viewer/editor
// relations on the recording object; can_view/can_edit/can_share are the
// model's computed relations over owner and shares.
type AuthorizationService struct {
	client *Client
}

func NewAuthorizationService(client *Client) *AuthorizationService {
	return &AuthorizationService{
		client: client,
	}
}

func recordingTuple(userID, recordingID uuid.UUID, relation string) tuple {
	return tuple{
		User:     fmt.Sprintf("user:%s", userID),
		Relation: relation,
		Object:   fmt.Sprintf("recording:%s", recordingID),
	}
}

// CanViewRecording checks if user may read a recording and its transcripts.
func (s *AuthorizationService) CanViewRecording(ctx context.Context, userID, recordingID uuid.UUID) (bool, error) {
	return s.client.Check(ctx, recordingTuple(userID, recordingID, "can_view"))
}

// CanEditRecording checks if user may edit a recording's transcript.
func (s *AuthorizationService) CanEditRecording(ctx context.Context, userID, recordingID uuid.UUID) (bool, error) {
	return s.client.Check(ctx, recordingTuple(userID, recordingID, "can_edit"))
}

// CanShareRecording checks if user may grant others access to a recording.
func (s *AuthorizationService) CanShareRecording(ctx context.Context, userID, recordingID uuid.UUID) (bool, error) {
	return s.client.Check(ctx, recordingTuple(userID, recordingID, "can_share"))
}

// GrantRecordingOwner records the uploader as the recording's owner.
func (s *AuthorizationService) GrantRecordingOwner(ctx context.Context, userID, recordingID uuid.UUID) error {
	if err := s.client.Write(ctx, recordingTuple(userID, recordingID, "owner")); err != nil {
		return fmt.Errorf("failed to grant recording owner: %w", err)
	}
	return nil
}

// ShareRecording grants another user viewer or editor access.
func (s *AuthorizationService) ShareRecording(ctx context.Context, userID, recordingID uuid.UUID, relation string) error {
	if relation != RelationViewer && relation != RelationEditor {
		return fmt.Errorf("invalid share relation: %s", relation)
	}
	if err := s.client.Write(ctx, recordingTuple(userID, recordingID, relation)); err != nil {
		return fmt.Errorf("failed to share recording: %w", err)
	}
	return nil
}

// RevokeRecordingShare removes a previously granted share.
func (s *AuthorizationService) RevokeRecordingShare(ctx context.Context, userID, recordingID uuid.UUID, relation string) error {
	if err := s.client.Delete(ctx, recordingTuple(userID, recordingID, relation)); err != nil {
		return fmt.Errorf("failed to revoke recording share: %w", err)
	}
	return nil
}
