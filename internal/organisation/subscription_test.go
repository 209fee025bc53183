package organisation_test

import (
	"testing"

	"echoscribe/internal/organisation"
	"echoscribe/internal/stripe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSubscriptionPlan(t *testing.T) {
	tests := []struct {
		name  string
		input string
		plan  organisation.SubscriptionPlan
		valid bool
	}{
		{name: "free", input: "Free", plan: organisation.SubscriptionPlanFree, valid: true},
		{name: "pro", input: "Pro", plan: organisation.SubscriptionPlanPro, valid: true},
		{name: "clinic", input: "Clinic", plan: organisation.SubscriptionPlanClinic, valid: true},
		{name: "lowercase rejected", input: "pro", valid: false},
		{name: "unknown rejected", input: "Enterprise", valid: false},
		{name: "empty rejected", input: "", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := organisation.ParseSubscriptionPlan(tt.input)
			if tt.valid {
				assert.Nil(t, err)
				assert.Equal(t, tt.plan, plan)
			} else {
				assert.NotNil(t, err)
			}
		})
	}
}

func TestPlanPriceMappingRoundTrips(t *testing.T) {
	for plan, priceID := range organisation.PlanToPriceID {
		back, ok := organisation.PriceIDToPlan[priceID]
		require.True(t, ok, "price %s has no reverse mapping", priceID)
		assert.Equal(t, plan, back)
	}

	assert.Equal(t, stripe.PriceIDFreePlan, organisation.PlanToPriceID[organisation.SubscriptionPlanFree])
}
