package billing

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mintleaf/billing/pkg/types"
)

func decodeProviderSubscription(t *testing.T, raw string) *ProviderSubscription {
	t.Helper()
	var sub ProviderSubscription
	require.NoError(t, json.Unmarshal([]byte(raw), &sub))
	return &sub
}

const completeSubscriptionJSON = `{
	"id": "sub_123",
	"customer": "cus_456",
	"status": "active",
	"cancel_at_period_end": false,
	"items": {
		"data": [{
			"price": {"id": "price_789", "lookup_key": "family_monthly"},
			"current_period_start": 1700000000,
			"current_period_end": 1702592000
		}]
	}
}`

func TestBuildPayloadComplete(t *testing.T) {
	sub := decodeProviderSubscription(t, completeSubscriptionJSON)

	payload, err := BuildPayload(sub)
	require.NoError(t, err)

	assert.Equal(t, "cus_456", payload.StripeCustomerID)
	assert.Equal(t, "sub_123", payload.StripeSubscriptionID)
	assert.Equal(t, "price_789", payload.StripePriceID)
	assert.Equal(t, types.SubscriptionPlanFamily, payload.Plan)
	assert.Equal(t, types.SubscriptionStatusActive, payload.Status)
	assert.Equal(t, time.Unix(1700000000, 0), payload.CurrentPeriodStart)
	assert.Equal(t, time.Unix(1702592000, 0), payload.CurrentPeriodEnd)
	assert.Nil(t, payload.CanceledAt)
	assert.False(t, payload.CancelAtPeriodEnd)
}

func TestBuildPayloadExpandedCustomer(t *testing.T) {
	sub := decodeProviderSubscription(t, completeSubscriptionJSON)
	sub.Customer = json.RawMessage(`{"id": "cus_expanded", "email": "a@b.c"}`)

	payload, err := BuildPayload(sub)
	require.NoError(t, err)
	assert.Equal(t, "cus_expanded", payload.StripeCustomerID)
}

func TestBuildPayloadCanceledAt(t *testing.T) {
	sub := decodeProviderSubscription(t, completeSubscriptionJSON)
	sub.Status = "canceled"
	sub.CanceledAt = 1701000000
	sub.CancelAtPeriodEnd = true

	payload, err := BuildPayload(sub)
	require.NoError(t, err)
	require.NotNil(t, payload.CanceledAt)
	assert.Equal(t, time.Unix(1701000000, 0), *payload.CanceledAt)
	assert.True(t, payload.CancelAtPeriodEnd)
}

// Any unresolvable piece must fail the whole build; no partial payload ever
// comes back.
func TestBuildPayloadAllOrNothing(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(sub *ProviderSubscription)
	}{
		{name: "missing subscription id", mutate: func(sub *ProviderSubscription) { sub.ID = "" }},
		{name: "missing customer", mutate: func(sub *ProviderSubscription) { sub.Customer = nil }},
		{name: "customer object without id", mutate: func(sub *ProviderSubscription) { sub.Customer = json.RawMessage(`{"email":"a@b.c"}`) }},
		{name: "no line items", mutate: func(sub *ProviderSubscription) { sub.Items.Data = nil }},
		{name: "item without price", mutate: func(sub *ProviderSubscription) { sub.Items.Data[0].Price = nil }},
		{name: "unknown lookup key", mutate: func(sub *ProviderSubscription) { sub.Items.Data[0].Price.LookupKey = "enterprise_monthly" }},
		{name: "unknown status", mutate: func(sub *ProviderSubscription) { sub.Status = "paused" }},
		{name: "no billing period", mutate: func(sub *ProviderSubscription) {
			sub.Items.Data[0].CurrentPeriodStart = 0
			sub.Items.Data[0].CurrentPeriodEnd = 0
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := decodeProviderSubscription(t, completeSubscriptionJSON)
			tt.mutate(sub)

			payload, err := BuildPayload(sub)
			assert.Nil(t, payload)
			assert.ErrorIs(t, err, ErrCannotBuildPayload)
		})
	}
}
