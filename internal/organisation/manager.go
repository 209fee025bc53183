package organisation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"echoscribe/internal/database"
	"echoscribe/internal/stripe"
	"echoscribe/internal/util"

	"github.com/google/uuid"
)

const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleMember = "member"
)

const inviteValidity = 7 * 24 * time.Hour

var (
	ErrInviteExpired       = errors.New("organisation invite has expired")
	ErrInviteAlreadyUsed   = errors.New("organisation invite has already been used")
	ErrInviteEmailMismatch = errors.New("organisation invite was issued to a different email address")
	ErrNotAllowed          = errors.New("user is not allowed to perform this action")
)

// organisationStore is the slice of the database the manager needs.
type organisationStore interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error)
	UpdateUserByID(ctx context.Context, id uuid.UUID, params database.UpdateUserParams) error
	ClearUserCurrentOrganisation(ctx context.Context, id uuid.UUID) error
	GetUserMembership(ctx context.Context, userID uuid.UUID) (database.UserMembership, error)
	CreateOrganisation(ctx context.Context, params database.CreateOrganisationParams) (database.Organisation, error)
	GetOrganisationByID(ctx context.Context, id uuid.UUID) (database.Organisation, error)
	GetOrganisationByStripeCustomerID(ctx context.Context, customerID string) (database.Organisation, error)
	GetOrganisationByStripeSubscriptionID(ctx context.Context, subscriptionID string) (database.Organisation, error)
	UpdateOrganisationByID(ctx context.Context, id uuid.UUID, params database.UpdateOrganisationParams) error
	CreateOrganisationMember(ctx context.Context, params database.CreateOrganisationMemberParams) (database.OrganisationMember, error)
	DeleteOrganisationMember(ctx context.Context, organisationID, userID uuid.UUID) error
	CreateOrganisationInvite(ctx context.Context, params database.CreateOrganisationInviteParams) (database.OrganisationInvite, error)
	GetOrganisationInviteByToken(ctx context.Context, token string) (database.OrganisationInvite, error)
	UpdateOrganisationInviteByID(ctx context.Context, id uuid.UUID, params database.UpdateOrganisationInviteParams) error
}

// InviteMailer delivers invitation emails. Delivery failures are logged, not
// fatal; the invite token stays valid either way.
type InviteMailer interface {
	SendInviteEmail(ctx context.Context, email, organisationName, token string) error
}

// NopMailer logs invites instead of sending them. Used in development.
type NopMailer struct {
	Logger *slog.Logger
}

func (m NopMailer) SendInviteEmail(ctx context.Context, email, organisationName, token string) error {
	m.Logger.InfoContext(ctx, "Invite email suppressed", "email", email, "organisation", organisationName, "token", token)
	return nil
}

type Manager struct {
	db     organisationStore
	logger *slog.Logger
	stripe *stripe.Client
	mailer InviteMailer
}

func NewManager(db organisationStore, logger *slog.Logger, stripeClient *stripe.Client, mailer InviteMailer) Manager {
	return Manager{
		db:     db,
		logger: logger,
		stripe: stripeClient,
		mailer: mailer,
	}
}

type CreateOrganisationParams struct {
	Name       string
	OwnerID    uuid.UUID
	OwnerEmail string
}

// CreateOrganisation creates an organisation with a Stripe customer, makes
// the creating user its owner, and points their profile at it.
func (m *Manager) CreateOrganisation(ctx context.Context, params CreateOrganisationParams) (Organisation, error) {
	var org Organisation

	customer, err := m.stripe.CreateCustomer(ctx, params.OwnerEmail)
	if err != nil {
		return org, fmt.Errorf("failed to create Stripe customer for organisation %s: %w", params.Name, err)
	}

	// Every organisation starts on the free plan.
	subscriptionID, err := m.stripe.AddSubscriptionToCustomer(ctx, customer.ID, stripe.PriceIDFreePlan)
	if err != nil {
		return org, fmt.Errorf("failed to create free subscription for organisation %s: %w", params.Name, err)
	}

	dbOrg, err := m.db.CreateOrganisation(ctx, database.CreateOrganisationParams{
		Name:                 params.Name,
		StripeCustomerID:     customer.ID,
		StripeSubscriptionID: subscriptionID,
		StripeProductPriceID: string(stripe.PriceIDFreePlan),
	})
	if err != nil {
		return org, fmt.Errorf("failed to create organisation: %w", err)
	}

	if _, err := m.db.CreateOrganisationMember(ctx, database.CreateOrganisationMemberParams{
		OrganisationID: dbOrg.ID,
		UserID:         params.OwnerID,
		Role:           RoleOwner,
	}); err != nil {
		return org, fmt.Errorf("failed to add owner to organisation %s: %w", dbOrg.ID, err)
	}

	if err := m.db.UpdateUserByID(ctx, params.OwnerID, database.UpdateUserParams{
		CurrentOrganisationID: util.Some(dbOrg.ID),
	}); err != nil {
		return org, fmt.Errorf("failed to set current organisation for user %s: %w", params.OwnerID, err)
	}

	m.logger.InfoContext(ctx, "Organisation created", "organisation_id", dbOrg.ID, "owner_id", params.OwnerID)

	return Organisation{ID: dbOrg.ID, Name: dbOrg.Name}, nil
}

func (m *Manager) GetOrganisation(ctx context.Context, id uuid.UUID) (Organisation, error) {
	dbOrg, err := m.db.GetOrganisationByID(ctx, id)
	if err != nil {
		return Organisation{}, err
	}

	return Organisation{ID: dbOrg.ID, Name: dbOrg.Name}, nil
}

type InviteMemberParams struct {
	OrganisationID uuid.UUID
	InviterID      uuid.UUID
	Email          string
	Role           string
}

// InviteMember creates an invite token for the given email. Only owners and
// admins may invite.
func (m *Manager) InviteMember(ctx context.Context, params InviteMemberParams) (string, error) {
	membership, err := m.db.GetUserMembership(ctx, params.InviterID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve inviter membership: %w", err)
	}
	if membership.OrganisationID != params.OrganisationID {
		return "", ErrNotAllowed
	}
	if membership.Role != RoleOwner && membership.Role != RoleAdmin {
		return "", ErrNotAllowed
	}

	token, err := util.RandomToken(32)
	if err != nil {
		return "", fmt.Errorf("failed to generate invite token: %w", err)
	}

	invite, err := m.db.CreateOrganisationInvite(ctx, database.CreateOrganisationInviteParams{
		Token:          token,
		OrganisationID: params.OrganisationID,
		Email:          params.Email,
		Role:           params.Role,
		ExpiresAt:      time.Now().UTC().Add(inviteValidity),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create invite: %w", err)
	}

	if err := m.mailer.SendInviteEmail(ctx, params.Email, membership.OrganisationName, token); err != nil {
		m.logger.ErrorContext(ctx, "Failed to send invite email", "invite_id", invite.ID, "error", err)
	}

	m.logger.InfoContext(ctx, "Member invited", "organisation_id", params.OrganisationID, "email", params.Email, "role", params.Role)

	return token, nil
}

// AcceptInvite redeems an invite token for the given user, adding them to
// the organisation and pointing their profile at it. The token alone is not
// enough: the accepting account's email must match the address the invite
// was issued to, so a forwarded token cannot be redeemed by someone else.
func (m *Manager) AcceptInvite(ctx context.Context, token string, userID uuid.UUID) (Organisation, error) {
	var org Organisation

	invite, err := m.db.GetOrganisationInviteByToken(ctx, token)
	if err != nil {
		return org, err
	}

	if invite.UsedAt.IsSet {
		return org, ErrInviteAlreadyUsed
	}
	if time.Now().UTC().After(invite.ExpiresAt) {
		return org, ErrInviteExpired
	}

	user, err := m.db.GetUserByID(ctx, userID)
	if err != nil {
		return org, fmt.Errorf("failed to get user %s: %w", userID, err)
	}
	if !strings.EqualFold(user.Email, invite.Email) {
		return org, ErrInviteEmailMismatch
	}

	if _, err := m.db.CreateOrganisationMember(ctx, database.CreateOrganisationMemberParams{
		OrganisationID: invite.OrganisationID,
		UserID:         userID,
		Role:           invite.Role,
	}); err != nil {
		return org, fmt.Errorf("failed to add member to organisation %s: %w", invite.OrganisationID, err)
	}

	if err := m.db.UpdateUserByID(ctx, userID, database.UpdateUserParams{
		CurrentOrganisationID: util.Some(invite.OrganisationID),
	}); err != nil {
		return org, fmt.Errorf("failed to set current organisation for user %s: %w", userID, err)
	}

	if err := m.db.UpdateOrganisationInviteByID(ctx, invite.ID, database.UpdateOrganisationInviteParams{
		UsedAt: util.Some(time.Now().UTC()),
	}); err != nil {
		return org, fmt.Errorf("failed to mark invite %s as used: %w", invite.ID, err)
	}

	dbOrg, err := m.db.GetOrganisationByID(ctx, invite.OrganisationID)
	if err != nil {
		return org, fmt.Errorf("failed to get organisation %s: %w", invite.OrganisationID, err)
	}

	m.logger.InfoContext(ctx, "Invite accepted", "organisation_id", dbOrg.ID, "user_id", userID)

	return Organisation{ID: dbOrg.ID, Name: dbOrg.Name}, nil
}

type RemoveMemberParams struct {
	OrganisationID uuid.UUID
	RequesterID    uuid.UUID
	MemberID       uuid.UUID
}

// RemoveMember removes a member from the organisation. Owners and admins may
// remove others; any member may remove themselves.
func (m *Manager) RemoveMember(ctx context.Context, params RemoveMemberParams) error {
	if params.RequesterID != params.MemberID {
		membership, err := m.db.GetUserMembership(ctx, params.RequesterID)
		if err != nil {
			return fmt.Errorf("failed to resolve requester membership: %w", err)
		}
		if membership.OrganisationID != params.OrganisationID {
			return ErrNotAllowed
		}
		if membership.Role != RoleOwner && membership.Role != RoleAdmin {
			return ErrNotAllowed
		}
	}

	if err := m.db.DeleteOrganisationMember(ctx, params.OrganisationID, params.MemberID); err != nil {
		return err
	}

	// Clear the member's current organisation if it still points here.
	member, err := m.db.GetUserByID(ctx, params.MemberID)
	if err == nil && member.CurrentOrganisationID.IsSet && member.CurrentOrganisationID.Val == params.OrganisationID {
		if err := m.db.ClearUserCurrentOrganisation(ctx, params.MemberID); err != nil {
			return fmt.Errorf("failed to clear current organisation for user %s: %w", params.MemberID, err)
		}
	}

	m.logger.InfoContext(ctx, "Member removed", "organisation_id", params.OrganisationID, "member_id", params.MemberID)

	return nil
}
