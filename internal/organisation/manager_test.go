package organisation_test

import (
	"context"
	"testing"
	"time"

	"echoscribe/internal/database"
	"echoscribe/internal/organisation"
	"echoscribe/internal/util"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOrgStore struct {
	invite    database.OrganisationInvite
	inviteErr error
	user      database.User
	userErr   error
	org       database.Organisation

	createdMembers []database.CreateOrganisationMemberParams
	usedInviteIDs  []uuid.UUID
	userUpdates    []uuid.UUID
}

func (f *fakeOrgStore) GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error) {
	if f.userErr != nil {
		return database.User{}, f.userErr
	}
	return f.user, nil
}

func (f *fakeOrgStore) UpdateUserByID(ctx context.Context, id uuid.UUID, params database.UpdateUserParams) error {
	f.userUpdates = append(f.userUpdates, id)
	return nil
}

func (f *fakeOrgStore) ClearUserCurrentOrganisation(ctx context.Context, id uuid.UUID) error {
	return nil
}

func (f *fakeOrgStore) GetUserMembership(ctx context.Context, userID uuid.UUID) (database.UserMembership, error) {
	return database.UserMembership{}, database.ErrMembershipNotFound
}

func (f *fakeOrgStore) CreateOrganisation(ctx context.Context, params database.CreateOrganisationParams) (database.Organisation, error) {
	return database.Organisation{}, nil
}

func (f *fakeOrgStore) GetOrganisationByID(ctx context.Context, id uuid.UUID) (database.Organisation, error) {
	return f.org, nil
}

func (f *fakeOrgStore) GetOrganisationByStripeCustomerID(ctx context.Context, customerID string) (database.Organisation, error) {
	return f.org, nil
}

func (f *fakeOrgStore) GetOrganisationByStripeSubscriptionID(ctx context.Context, subscriptionID string) (database.Organisation, error) {
	return f.org, nil
}

func (f *fakeOrgStore) UpdateOrganisationByID(ctx context.Context, id uuid.UUID, params database.UpdateOrganisationParams) error {
	return nil
}

func (f *fakeOrgStore) CreateOrganisationMember(ctx context.Context, params database.CreateOrganisationMemberParams) (database.OrganisationMember, error) {
	f.createdMembers = append(f.createdMembers, params)
	return database.OrganisationMember{}, nil
}

func (f *fakeOrgStore) DeleteOrganisationMember(ctx context.Context, organisationID, userID uuid.UUID) error {
	return nil
}

func (f *fakeOrgStore) CreateOrganisationInvite(ctx context.Context, params database.CreateOrganisationInviteParams) (database.OrganisationInvite, error) {
	return database.OrganisationInvite{}, nil
}

func (f *fakeOrgStore) GetOrganisationInviteByToken(ctx context.Context, token string) (database.OrganisationInvite, error) {
	if f.inviteErr != nil {
		return database.OrganisationInvite{}, f.inviteErr
	}
	return f.invite, nil
}

func (f *fakeOrgStore) UpdateOrganisationInviteByID(ctx context.Context, id uuid.UUID, params database.UpdateOrganisationInviteParams) error {
	f.usedInviteIDs = append(f.usedInviteIDs, id)
	return nil
}

func pendingInvite(organisationID uuid.UUID, email string) database.OrganisationInvite {
	return database.OrganisationInvite{
		ID:             uuid.New(),
		Token:          "invite-token",
		OrganisationID: organisationID,
		Email:          email,
		Role:           organisation.RoleMember,
		ExpiresAt:      time.Now().UTC().Add(time.Hour),
	}
}

func TestAcceptInvite_AddsMatchingUser(t *testing.T) {
	organisationID := uuid.New()
	userID := uuid.New()

	db := &fakeOrgStore{
		invite: pendingInvite(organisationID, "sanne@example.com"),
		user:   database.User{ID: userID, Email: "Sanne@Example.com"},
		org:    database.Organisation{ID: organisationID, Name: "Praktijk De Bron"},
	}
	manager := organisation.NewManager(db, discardLogger(), nil, organisation.NopMailer{Logger: discardLogger()})

	org, err := manager.AcceptInvite(context.Background(), "invite-token", userID)

	require.Nil(t, err)
	assert.Equal(t, organisationID, org.ID)

	// Email comparison is case-insensitive; the member lands with the
	// invite's role and the invite is consumed.
	require.Len(t, db.createdMembers, 1)
	assert.Equal(t, userID, db.createdMembers[0].UserID)
	assert.Equal(t, organisation.RoleMember, db.createdMembers[0].Role)
	assert.Len(t, db.usedInviteIDs, 1)
}

func TestAcceptInvite_RejectsDifferentEmail(t *testing.T) {
	organisationID := uuid.New()
	userID := uuid.New()

	db := &fakeOrgStore{
		invite: pendingInvite(organisationID, "sanne@example.com"),
		user:   database.User{ID: userID, Email: "intruder@example.com"},
	}
	manager := organisation.NewManager(db, discardLogger(), nil, organisation.NopMailer{Logger: discardLogger()})

	// A forwarded token must not be redeemable by an account the invite was
	// never addressed to.
	_, err := manager.AcceptInvite(context.Background(), "invite-token", userID)

	assert.ErrorIs(t, err, organisation.ErrInviteEmailMismatch)
	assert.Empty(t, db.createdMembers)
	assert.Empty(t, db.usedInviteIDs)
}

func TestAcceptInvite_RejectsUsedInvite(t *testing.T) {
	invite := pendingInvite(uuid.New(), "sanne@example.com")
	invite.UsedAt = util.Some(time.Now().UTC().Add(-time.Hour))

	db := &fakeOrgStore{
		invite: invite,
		user:   database.User{Email: "sanne@example.com"},
	}
	manager := organisation.NewManager(db, discardLogger(), nil, organisation.NopMailer{Logger: discardLogger()})

	_, err := manager.AcceptInvite(context.Background(), "invite-token", uuid.New())

	assert.ErrorIs(t, err, organisation.ErrInviteAlreadyUsed)
	assert.Empty(t, db.createdMembers)
}

func TestAcceptInvite_RejectsExpiredInvite(t *testing.T) {
	invite := pendingInvite(uuid.New(), "sanne@example.com")
	invite.ExpiresAt = time.Now().UTC().Add(-time.Minute)

	db := &fakeOrgStore{
		invite: invite,
		user:   database.User{Email: "sanne@example.com"},
	}
	manager := organisation.NewManager(db, discardLogger(), nil, organisation.NopMailer{Logger: discardLogger()})

	_, err := manager.AcceptInvite(context.Background(), "invite-token", uuid.New())

	assert.ErrorIs(t, err, organisation.ErrInviteExpired)
	assert.Empty(t, db.createdMembers)
}
