package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/mintleaf/billing/pkg/types"
)

// Subscription mirrors the provider's subscription state for one user. There is
// at most one row per user; every sync replaces the full set of plan/status/
// period fields from the latest provider snapshot, never a partial merge.
type Subscription struct {
	ID     string `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID string `gorm:"column:user_id;type:varchar(64);not null;uniqueIndex" json:"user_id"`

	// Provider correlation keys for inbound webhook events.
	StripeCustomerID     string `gorm:"column:stripe_customer_id;type:varchar(64);not null;index" json:"stripe_customer_id"`
	StripeSubscriptionID string `gorm:"column:stripe_subscription_id;type:varchar(64);not null;index" json:"stripe_subscription_id"`
	StripePriceID        string `gorm:"column:stripe_price_id;type:varchar(64);not null" json:"stripe_price_id"`

	Plan   types.SubscriptionPlan   `gorm:"column:plan;type:varchar(32);not null" json:"plan"`
	Status types.SubscriptionStatus `gorm:"column:status;type:varchar(32);not null" json:"status"`

	// CurrentPeriodStart/End define the active billing window.
	CurrentPeriodStart time.Time `gorm:"column:current_period_start;not null" json:"current_period_start"`
	CurrentPeriodEnd   time.Time `gorm:"column:current_period_end;not null" json:"current_period_end"`

	CanceledAt        *time.Time `gorm:"column:canceled_at;default:null" json:"canceled_at"`
	CancelAtPeriodEnd bool       `gorm:"column:cancel_at_period_end;not null;default:false" json:"cancel_at_period_end"`

	// Extra stores additional JSON data (for example promotion details).
	Extra datatypes.JSON `gorm:"column:extra;type:jsonb;default:'{}'" json:"extra"`
	// CreatedAt is managed by GORM and records the creation time.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is managed by GORM and records the update time.
	UpdatedAt time.Time `json:"updated_at"`
}

func (Subscription) TableName() string {
	return "subscription"
}

// Valid reports whether the subscription currently grants paid features.
func (s *Subscription) Valid() bool {
	return s != nil &&
		s.Status.Entitled() &&
		s.CurrentPeriodEnd.After(time.Now())
}
