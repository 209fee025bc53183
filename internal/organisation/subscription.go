package organisation

import (
	"context"
	"fmt"

	"echoscribe/internal/database"
	"echoscribe/internal/stripe"
	"echoscribe/internal/util"

	"github.com/google/uuid"
	stripelib "github.com/stripe/stripe-go/v76"
)

type SubscriptionPlan string

const (
	SubscriptionPlanFree   SubscriptionPlan = "Free"
	SubscriptionPlanPro    SubscriptionPlan = "Pro"
	SubscriptionPlanClinic SubscriptionPlan = "Clinic"
)

func (p SubscriptionPlan) IsValid() bool {
	switch p {
	case SubscriptionPlanFree, SubscriptionPlanPro, SubscriptionPlanClinic:
		return true
	default:
		return false
	}
}

func (p SubscriptionPlan) String() string {
	return string(p)
}

func ParseSubscriptionPlan(s string) (SubscriptionPlan, error) {
	plan := SubscriptionPlan(s)
	if !plan.IsValid() {
		return "", fmt.Errorf("invalid subscription plan: %s", s)
	}
	return plan, nil
}

var (
	PlanToPriceID = map[SubscriptionPlan]stripe.PriceID{
		SubscriptionPlanFree:   stripe.PriceIDFreePlan,
		SubscriptionPlanPro:    stripe.PriceIDProPlan,
		SubscriptionPlanClinic: stripe.PriceIDClinicPlan,
	}
	PriceIDToPlan = map[stripe.PriceID]SubscriptionPlan{
		stripe.PriceIDFreePlan:   SubscriptionPlanFree,
		stripe.PriceIDProPlan:    SubscriptionPlanPro,
		stripe.PriceIDClinicPlan: SubscriptionPlanClinic,
	}
)

type ChangeSubscriptionParams struct {
	OrganisationID   uuid.UUID
	StripeCustomerID string
	NewPlan          SubscriptionPlan
}

func (m *Manager) ChangeSubscription(ctx context.Context, params ChangeSubscriptionParams) error {
	if params.OrganisationID == uuid.Nil && params.StripeCustomerID == "" {
		return fmt.Errorf("either organisationID or stripeCustomerID must be provided")
	}

	priceID, ok := PlanToPriceID[params.NewPlan]
	if !ok {
		return fmt.Errorf("unknown plan: %s", params.NewPlan)
	}

	var (
		org database.Organisation
		err error
	)
	if params.StripeCustomerID != "" {
		org, err = m.db.GetOrganisationByStripeCustomerID(ctx, params.StripeCustomerID)
		if err != nil {
			return fmt.Errorf("failed to get organisation by Stripe customer ID %s: %w", params.StripeCustomerID, err)
		}
	} else {
		org, err = m.db.GetOrganisationByID(ctx, params.OrganisationID)
		if err != nil {
			return fmt.Errorf("failed to get organisation %s: %w", params.OrganisationID, err)
		}
	}

	if org.StripeProductPriceID == string(priceID) {
		// No change needed
		return nil
	}

	if err := m.stripe.SwitchSubscriptionPlan(ctx, org.StripeSubscriptionID, priceID); err != nil {
		return fmt.Errorf("stripe subscription change failed for organisation %s to plan %s: %w",
			org.ID, params.NewPlan, err)
	}

	if err := m.db.UpdateOrganisationByID(ctx, org.ID, database.UpdateOrganisationParams{
		StripeProductPriceID: util.Some(string(priceID)),
	}); err != nil {
		return fmt.Errorf("failed to update Stripe price ID for organisation %s: %w", org.ID, err)
	}

	m.logger.InfoContext(ctx, "Organisation subscription changed", "organisation_id", org.ID, "new_plan", params.NewPlan)

	return nil
}

type CreateCheckoutSessionParams struct {
	OrganisationID uuid.UUID
	Plan           SubscriptionPlan
	SuccessURL     string
	CancelURL      string
}

func (m *Manager) CreateCheckoutSession(ctx context.Context, params CreateCheckoutSessionParams) (string, error) {
	priceID, ok := PlanToPriceID[params.Plan]
	if !ok {
		return "", fmt.Errorf("unknown plan: %s", params.Plan)
	}

	org, err := m.db.GetOrganisationByID(ctx, params.OrganisationID)
	if err != nil {
		return "", fmt.Errorf("failed to get organisation by ID: %w", err)
	}

	if org.StripeProductPriceID == string(priceID) {
		return "", fmt.Errorf("organisation %s is already on the requested plan", params.OrganisationID)
	}

	sessionURL, err := m.stripe.CreateCheckoutSession(ctx, org.StripeCustomerID, priceID, params.SuccessURL, params.CancelURL)
	if err != nil {
		return "", fmt.Errorf("failed to create checkout session: %w", err)
	}

	return sessionURL, nil
}

// VerifyStripeEvent validates an incoming webhook payload against the
// configured signing secret.
func (m *Manager) VerifyStripeEvent(payload []byte, signatureHeader string) (stripelib.Event, error) {
	return m.stripe.VerifyWebhookSignature(payload, signatureHeader)
}

// SyncSubscription reconciles the stored plan with what Stripe reports for
// the subscription. Called from the Stripe webhook handler.
func (m *Manager) SyncSubscription(ctx context.Context, subscriptionID string) error {
	org, err := m.db.GetOrganisationByStripeSubscriptionID(ctx, subscriptionID)
	if err != nil {
		return fmt.Errorf("failed to get organisation by subscription ID %s: %w", subscriptionID, err)
	}

	subscription, err := m.stripe.GetSubscriptionByCustomerID(ctx, org.StripeCustomerID)
	if err != nil {
		return fmt.Errorf("failed to get subscription for organisation %s: %w", org.ID, err)
	}
	if subscription == nil {
		return fmt.Errorf("no active subscription found for organisation %s", org.ID)
	}

	if len(subscription.Items.Data) != 1 {
		return fmt.Errorf("unexpected number of subscription items for organisation %s: %d", org.ID, len(subscription.Items.Data))
	}
	priceID := stripe.PriceID(subscription.Items.Data[0].Price.ID)

	plan, ok := PriceIDToPlan[priceID]
	if !ok {
		return fmt.Errorf("unknown price ID %s for organisation %s", priceID, org.ID)
	}

	if err := m.ChangeSubscription(ctx, ChangeSubscriptionParams{
		OrganisationID: org.ID,
		NewPlan:        plan,
	}); err != nil {
		return fmt.Errorf("failed to change subscription for organisation %s: %w", org.ID, err)
	}

	return nil
}
