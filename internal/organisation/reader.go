package organisation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"echoscribe/internal/database"
	"echoscribe/internal/monitoring"
	"echoscribe/internal/util"

	"github.com/google/uuid"
)

// ErrNotInOrganisation is the terminal state for a user without a current
// organisation. Callers must treat it as a valid empty state, not a failure.
var ErrNotInOrganisation = errors.New("user is not in an organisation")

type membershipStore interface {
	GetUserMembership(ctx context.Context, userID uuid.UUID) (database.UserMembership, error)
	ListOrganisationMemberProfiles(ctx context.Context, organisationID uuid.UUID) ([]database.MemberProfile, error)
}

type Organisation struct {
	ID   uuid.UUID
	Name string
}

type Member struct {
	UserID    uuid.UUID
	Name      string
	Email     string
	AvatarURL util.Optional[string]
	Role      string
	JoinedAt  time.Time
}

type MemberList struct {
	Organisation    Organisation
	Members         []Member
	CurrentUserRole string
}

// MemberReader resolves a user's organisation membership and the full member
// list in exactly two backing store round trips, independent of member count:
// one joined query for the user's own membership and organisation, one joined
// query for every member's profile. Store failures are propagated, never
// papered over; membership data has no safe fallback.
//
// Results must not pass through any shared cache. The HTTP boundary emits
// cache-suppressing headers whenever this reader's output reaches a response.
type MemberReader struct {
	db        membershipStore
	logger    *slog.Logger
	telemetry monitoring.Telemetry
}

func NewMemberReader(db membershipStore, logger *slog.Logger, telemetry monitoring.Telemetry) MemberReader {
	return MemberReader{
		db:        db,
		logger:    logger,
		telemetry: telemetry,
	}
}

// GetMembersForUser returns the user's organisation, its full member list,
// and the user's own role. Returns ErrNotInOrganisation when the user has no
// current organisation.
func (r *MemberReader) GetMembersForUser(ctx context.Context, userID uuid.UUID) (MemberList, error) {
	var list MemberList

	start := time.Now()
	membership, err := r.db.GetUserMembership(ctx, userID)
	r.telemetry.RecordStoreRoundTrip(ctx, "organisation.membership", time.Since(start))
	if err != nil {
		if errors.Is(err, database.ErrMembershipNotFound) {
			return list, ErrNotInOrganisation
		}
		return list, fmt.Errorf("failed to resolve membership for user %s: %w", userID, err)
	}

	start = time.Now()
	profiles, err := r.db.ListOrganisationMemberProfiles(ctx, membership.OrganisationID)
	r.telemetry.RecordStoreRoundTrip(ctx, "organisation.members", time.Since(start))
	if err != nil {
		return list, fmt.Errorf("failed to list members of organisation %s: %w", membership.OrganisationID, err)
	}

	members := make([]Member, len(profiles))
	for i, profile := range profiles {
		members[i] = Member{
			UserID:    profile.UserID,
			Name:      profile.Name,
			Email:     profile.Email,
			AvatarURL: profile.AvatarURL,
			Role:      profile.Role,
			JoinedAt:  profile.JoinedAt,
		}
	}

	list = MemberList{
		Organisation: Organisation{
			ID:   membership.OrganisationID,
			Name: membership.OrganisationName,
		},
		Members:         members,
		CurrentUserRole: membership.Role,
	}

	return list, nil
}
