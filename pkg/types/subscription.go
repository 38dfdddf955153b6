package types

import "time"

type SubscriptionPlan string

const (
	SubscriptionPlanIndividual SubscriptionPlan = "individual"
	SubscriptionPlanFamily     SubscriptionPlan = "family"
)

// SubscriptionStatus mirrors the provider's lifecycle states. Only the values
// below are accepted; anything else is treated as unresolvable and must not be
// written to a local row.
type SubscriptionStatus string

const (
	SubscriptionStatusActive            SubscriptionStatus = "active"
	SubscriptionStatusTrialing          SubscriptionStatus = "trialing"
	SubscriptionStatusPastDue           SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled          SubscriptionStatus = "canceled"
	SubscriptionStatusIncomplete        SubscriptionStatus = "incomplete"
	SubscriptionStatusIncompleteExpired SubscriptionStatus = "incomplete_expired"
	SubscriptionStatusUnpaid            SubscriptionStatus = "unpaid"
)

var knownSubscriptionStatuses = map[SubscriptionStatus]struct{}{
	SubscriptionStatusActive:            {},
	SubscriptionStatusTrialing:          {},
	SubscriptionStatusPastDue:           {},
	SubscriptionStatusCanceled:          {},
	SubscriptionStatusIncomplete:        {},
	SubscriptionStatusIncompleteExpired: {},
	SubscriptionStatusUnpaid:            {},
}

func (s SubscriptionStatus) Known() bool {
	_, ok := knownSubscriptionStatuses[s]
	return ok
}

// Entitled reports whether a status grants access to paid features.
func (s SubscriptionStatus) Entitled() bool {
	return s == SubscriptionStatusActive || s == SubscriptionStatusTrialing
}

type UserSubscriptionInfo struct {
	Plan              SubscriptionPlan   `json:"plan"`
	Status            SubscriptionStatus `json:"status"`
	CurrentPeriodEnd  time.Time          `json:"current_period_end"`
	CancelAtPeriodEnd bool               `json:"cancel_at_period_end"`
}
