package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mintleaf/billing/pkg/types"
)

func TestSubscriptionValid(t *testing.T) {
	future := time.Now().Add(24 * time.Hour)
	past := time.Now().Add(-24 * time.Hour)

	tests := []struct {
		name string
		sub  *Subscription
		want bool
	}{
		{name: "nil subscription", sub: nil, want: false},
		{name: "active within period", sub: &Subscription{Status: types.SubscriptionStatusActive, CurrentPeriodEnd: future}, want: true},
		{name: "trialing within period", sub: &Subscription{Status: types.SubscriptionStatusTrialing, CurrentPeriodEnd: future}, want: true},
		{name: "active but period over", sub: &Subscription{Status: types.SubscriptionStatusActive, CurrentPeriodEnd: past}, want: false},
		{name: "past_due within period", sub: &Subscription{Status: types.SubscriptionStatusPastDue, CurrentPeriodEnd: future}, want: false},
		{name: "canceled within period", sub: &Subscription{Status: types.SubscriptionStatusCanceled, CurrentPeriodEnd: future}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.sub.Valid())
		})
	}
}
