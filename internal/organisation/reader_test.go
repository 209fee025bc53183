package organisation_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"echoscribe/internal/database"
	"echoscribe/internal/organisation"
	"echoscribe/internal/util"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMembershipStore struct {
	membership    database.UserMembership
	membershipErr error
	profiles      []database.MemberProfile
	profilesErr   error

	membershipCalls int
	profileCalls    int
}

func (f *fakeMembershipStore) GetUserMembership(ctx context.Context, userID uuid.UUID) (database.UserMembership, error) {
	f.membershipCalls++
	if f.membershipErr != nil {
		return database.UserMembership{}, f.membershipErr
	}
	return f.membership, nil
}

func (f *fakeMembershipStore) ListOrganisationMemberProfiles(ctx context.Context, organisationID uuid.UUID) ([]database.MemberProfile, error) {
	f.profileCalls++
	if f.profilesErr != nil {
		return nil, f.profilesErr
	}
	return f.profiles, nil
}

type fakeTelemetry struct {
	operations []string
}

func (f *fakeTelemetry) RecordStoreRoundTrip(ctx context.Context, operation string, duration time.Duration) {
	f.operations = append(f.operations, operation)
}

func (f *fakeTelemetry) RecordTranscriptResolution(ctx context.Context, tier string) {}

func (f *fakeTelemetry) Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (f *fakeTelemetry) Shutdown(ctx context.Context) error { return nil }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func memberProfiles(count int) []database.MemberProfile {
	profiles := make([]database.MemberProfile, count)
	for i := range profiles {
		profiles[i] = database.MemberProfile{
			UserID:   uuid.New(),
			Name:     fmt.Sprintf("Member %d", i),
			Email:    fmt.Sprintf("member%d@example.com", i),
			Role:     organisation.RoleMember,
			JoinedAt: time.Now(),
		}
	}
	return profiles
}

func TestGetMembersForUser_TwoRoundTripsRegardlessOfSize(t *testing.T) {
	organisationID := uuid.New()

	tests := []struct {
		name        string
		memberCount int
	}{
		{name: "single member", memberCount: 1},
		{name: "mid-size organisation", memberCount: 50},
		{name: "large organisation", memberCount: 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := &fakeMembershipStore{
				membership: database.UserMembership{
					OrganisationID:   organisationID,
					OrganisationName: "Praktijk De Bron",
					Role:             organisation.RoleOwner,
				},
				profiles: memberProfiles(tt.memberCount),
			}
			telemetry := &fakeTelemetry{}
			reader := organisation.NewMemberReader(db, discardLogger(), telemetry)

			list, err := reader.GetMembersForUser(context.Background(), uuid.New())

			require.Nil(t, err)
			assert.Len(t, list.Members, tt.memberCount)
			assert.Equal(t, 1, db.membershipCalls)
			assert.Equal(t, 1, db.profileCalls)
			assert.Equal(t, []string{"organisation.membership", "organisation.members"}, telemetry.operations)
		})
	}
}

func TestGetMembersForUser_MapsMembershipAndProfiles(t *testing.T) {
	organisationID := uuid.New()
	memberID := uuid.New()
	joined := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

	db := &fakeMembershipStore{
		membership: database.UserMembership{
			OrganisationID:   organisationID,
			OrganisationName: "Logopedie Centrum Zuid",
			Role:             organisation.RoleAdmin,
		},
		profiles: []database.MemberProfile{
			{
				UserID:    memberID,
				Name:      "Sanne Visser",
				Email:     "sanne@example.com",
				AvatarURL: util.Some("https://cdn.example.com/avatars/sanne.png"),
				Role:      organisation.RoleOwner,
				JoinedAt:  joined,
			},
		},
	}
	telemetry := &fakeTelemetry{}
	reader := organisation.NewMemberReader(db, discardLogger(), telemetry)

	list, err := reader.GetMembersForUser(context.Background(), uuid.New())

	require.Nil(t, err)
	assert.Equal(t, organisationID, list.Organisation.ID)
	assert.Equal(t, "Logopedie Centrum Zuid", list.Organisation.Name)
	assert.Equal(t, organisation.RoleAdmin, list.CurrentUserRole)

	require.Len(t, list.Members, 1)
	member := list.Members[0]
	assert.Equal(t, memberID, member.UserID)
	assert.Equal(t, "Sanne Visser", member.Name)
	assert.Equal(t, "sanne@example.com", member.Email)
	assert.True(t, member.AvatarURL.IsSet)
	assert.Equal(t, "https://cdn.example.com/avatars/sanne.png", member.AvatarURL.Val)
	assert.Equal(t, organisation.RoleOwner, member.Role)
	assert.Equal(t, joined, member.JoinedAt)
}

func TestGetMembersForUser_NotInOrganisation(t *testing.T) {
	db := &fakeMembershipStore{membershipErr: database.ErrMembershipNotFound}
	telemetry := &fakeTelemetry{}
	reader := organisation.NewMemberReader(db, discardLogger(), telemetry)

	_, err := reader.GetMembersForUser(context.Background(), uuid.New())

	assert.ErrorIs(t, err, organisation.ErrNotInOrganisation)
	assert.Equal(t, 0, db.profileCalls)
}

func TestGetMembersForUser_MembershipStoreErrorPropagates(t *testing.T) {
	storeErr := errors.New("connection reset by peer")
	db := &fakeMembershipStore{membershipErr: storeErr}
	telemetry := &fakeTelemetry{}
	reader := organisation.NewMemberReader(db, discardLogger(), telemetry)

	_, err := reader.GetMembersForUser(context.Background(), uuid.New())

	assert.ErrorIs(t, err, storeErr)
	// No degraded or partial result: the second round trip never happens.
	assert.Equal(t, 0, db.profileCalls)
}

func TestGetMembersForUser_ProfileStoreErrorPropagates(t *testing.T) {
	storeErr := errors.New("query timeout")
	db := &fakeMembershipStore{
		membership: database.UserMembership{
			OrganisationID:   uuid.New(),
			OrganisationName: "Praktijk Noord",
			Role:             organisation.RoleMember,
		},
		profilesErr: storeErr,
	}
	telemetry := &fakeTelemetry{}
	reader := organisation.NewMemberReader(db, discardLogger(), telemetry)

	_, err := reader.GetMembersForUser(context.Background(), uuid.New())

	assert.ErrorIs(t, err, storeErr)
	// The failed round trip is still measured.
	assert.Equal(t, []string{"organisation.membership", "organisation.members"}, telemetry.operations)
}
