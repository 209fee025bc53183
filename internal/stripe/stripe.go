package stripe

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/stripe/stripe-go/v76"
	stripeCheckoutSession "github.com/stripe/stripe-go/v76/checkout/session"
	stripeCustomer "github.com/stripe/stripe-go/v76/customer"
	stripeSubscription "github.com/stripe/stripe-go/v76/subscription"
	stripeWebhook "github.com/stripe/stripe-go/v76/webhook"
)

type PriceID string

const (
	PriceIDFreePlan   PriceID = "price_1PxQ2n00cRhT8LwVDkpe3JmA"
	PriceIDProPlan    PriceID = "price_1PxQ4b00cRhT8LwVKu8r7NzD"
	PriceIDClinicPlan PriceID = "price_1PxQ6t00cRhT8LwVYw2m5QbF"
)

// Client is a thin wrapper over the Stripe SDK. It holds no application
// state; callers pass Stripe customer and subscription IDs directly.
type Client struct {
	logger        *slog.Logger
	webhookSecret string
}

func NewClient(logger *slog.Logger, apiKey, webhookSecret string) Client {
	// The SDK keys every call off this package-level variable.
	stripe.Key = apiKey

	return Client{
		logger:        logger,
		webhookSecret: webhookSecret,
	}
}

type Customer struct {
	ID    string
	Email string
}

func (c *Client) CreateCustomer(ctx context.Context, email string) (Customer, error) {
	result, err := stripeCustomer.New(&stripe.CustomerParams{
		Email: stripe.String(email),
	})
	if err != nil {
		return Customer{}, fmt.Errorf("failed to create Stripe customer: %w", err)
	}

	return Customer{ID: result.ID, Email: result.Email}, nil
}

// GetSubscriptionByCustomerID returns the customer's subscription, or nil
// when the customer has none.
func (c *Client) GetSubscriptionByCustomerID(ctx context.Context, customerID string) (*stripe.Subscription, error) {
	params := &stripe.SubscriptionListParams{
		Customer: stripe.String(customerID),
	}
	params.Limit = stripe.Int64(1)

	iter := stripeSubscription.List(params)
	if iter.Next() {
		return iter.Subscription(), nil
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to list subscriptions for customer %s: %w", customerID, err)
	}

	return nil, nil
}

func (c *Client) AddSubscriptionToCustomer(ctx context.Context, customerID string, priceID PriceID) (string, error) {
	subscription, err := stripeSubscription.New(&stripe.SubscriptionParams{
		Customer: stripe.String(customerID),
		Items: []*stripe.SubscriptionItemsParams{
			{Price: stripe.String(string(priceID))},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to create Stripe subscription: %w", err)
	}

	return subscription.ID, nil
}

// SwitchSubscriptionPlan moves the subscription's single item to the given
// price.
func (c *Client) SwitchSubscriptionPlan(ctx context.Context, subscriptionID string, newPriceID PriceID) error {
	subscription, err := stripeSubscription.Get(subscriptionID, nil)
	if err != nil {
		return fmt.Errorf("failed to retrieve Stripe subscription %s: %w", subscriptionID, err)
	}

	if len(subscription.Items.Data) == 0 {
		return fmt.Errorf("subscription %s has no items", subscriptionID)
	}

	_, err = stripeSubscription.Update(subscriptionID, &stripe.SubscriptionParams{
		Items: []*stripe.SubscriptionItemsParams{
			{
				ID:    stripe.String(subscription.Items.Data[0].ID),
				Price: stripe.String(string(newPriceID)),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to update Stripe subscription %s: %w", subscriptionID, err)
	}

	return nil
}

func (c *Client) CreateCheckoutSession(ctx context.Context, customerID string, priceID PriceID, successURL, cancelURL string) (string, error) {
	session, err := stripeCheckoutSession.New(&stripe.CheckoutSessionParams{
		Customer:                 stripe.String(customerID),
		SuccessURL:               stripe.String(successURL),
		CancelURL:                stripe.String(cancelURL),
		Mode:                     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		BillingAddressCollection: stripe.String(string(stripe.CheckoutSessionBillingAddressCollectionAuto)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(string(priceID)),
				Quantity: stripe.Int64(1),
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to create Stripe checkout session: %w", err)
	}

	return session.URL, nil
}

// VerifyWebhookSignature validates a webhook payload against the configured
// signing secret and returns the parsed event.
func (c *Client) VerifyWebhookSignature(payload []byte, signatureHeader string) (stripe.Event, error) {
	event, err := stripeWebhook.ConstructEvent(payload, signatureHeader, c.webhookSecret)
	if err != nil {
		return stripe.Event{}, fmt.Errorf("failed to verify webhook signature: %w", err)
	}
	return event, nil
}
