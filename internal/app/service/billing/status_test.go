package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mintleaf/billing/pkg/types"
)

func TestNormalizeStatus(t *testing.T) {
	known := []string{"active", "trialing", "past_due", "canceled", "incomplete", "incomplete_expired", "unpaid"}
	for _, raw := range known {
		t.Run(raw, func(t *testing.T) {
			status, ok := NormalizeStatus(raw)
			assert.True(t, ok)
			assert.Equal(t, types.SubscriptionStatus(raw), status)
		})
	}

	for _, raw := range []string{"", "paused", "ACTIVE", "deleted"} {
		t.Run("rejects "+raw, func(t *testing.T) {
			_, ok := NormalizeStatus(raw)
			assert.False(t, ok)
		})
	}
}
