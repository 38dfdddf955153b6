package billing

import (
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"

	"github.com/mintleaf/billing/pkg/types"
)

// ErrCannotBuildPayload marks a provider subscription that cannot be turned
// into a complete database payload. Callers treat it as a hard failure, a
// partial row is never written.
var ErrCannotBuildPayload = errors.New("cannot build subscription payload")

// SubscriptionPayload is the full set of fields a sync writes to a
// subscription row. Building it is all-or-nothing: every field resolves or
// the whole build fails.
type SubscriptionPayload struct {
	StripeCustomerID     string
	StripeSubscriptionID string
	StripePriceID        string
	Plan                 types.SubscriptionPlan
	Status               types.SubscriptionStatus
	CurrentPeriodStart   time.Time
	CurrentPeriodEnd     time.Time
	CanceledAt           *time.Time
	CancelAtPeriodEnd    bool
}

// BuildPayload assembles a SubscriptionPayload from a provider subscription.
// Any missing or unresolvable piece fails the build with
// ErrCannotBuildPayload so the caller never persists a half-filled record.
func BuildPayload(sub *ProviderSubscription) (*SubscriptionPayload, error) {
	if sub.ID == "" {
		return nil, fmt.Errorf("%w: missing subscription id", ErrCannotBuildPayload)
	}
	customerID, ok := sub.CustomerID()
	if !ok {
		return nil, fmt.Errorf("%w: missing customer id", ErrCannotBuildPayload)
	}
	item := sub.FirstItem()
	if item == nil || item.Price == nil || item.Price.ID == "" {
		return nil, fmt.Errorf("%w: subscription %s has no line item price", ErrCannotBuildPayload, sub.ID)
	}
	plan, ok := ResolvePlan(item.Price.LookupKey)
	if !ok {
		return nil, fmt.Errorf("%w: unresolvable price lookup key %q", ErrCannotBuildPayload, item.Price.LookupKey)
	}
	status, ok := NormalizeStatus(sub.Status)
	if !ok {
		return nil, fmt.Errorf("%w: unknown subscription status %q", ErrCannotBuildPayload, sub.Status)
	}
	period, ok := ExtractPeriod(sub)
	if !ok {
		return nil, fmt.Errorf("%w: subscription %s has no billing period", ErrCannotBuildPayload, sub.ID)
	}

	payload := &SubscriptionPayload{
		StripeCustomerID:     customerID,
		StripeSubscriptionID: sub.ID,
		StripePriceID:        item.Price.ID,
		Plan:                 plan,
		Status:               status,
		CurrentPeriodStart:   time.Unix(period.Start, 0),
		CurrentPeriodEnd:     time.Unix(period.End, 0),
		CancelAtPeriodEnd:    sub.CancelAtPeriodEnd,
	}
	if sub.CanceledAt > 0 {
		payload.CanceledAt = lo.ToPtr(time.Unix(sub.CanceledAt, 0))
	}
	return payload, nil
}
