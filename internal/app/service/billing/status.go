package billing

import "github.com/mintleaf/billing/pkg/types"

// NormalizeStatus validates a provider subscription status against the set of
// statuses the rest of the system understands. Unknown values are rejected
// rather than stored, a new status appearing upstream has to be mapped here
// before it reaches the database.
func NormalizeStatus(raw string) (types.SubscriptionStatus, bool) {
	status := types.SubscriptionStatus(raw)
	if !status.Known() {
		return "", false
	}
	return status, true
}
