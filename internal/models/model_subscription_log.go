package models

import (
	"time"

	"gorm.io/datatypes"
)

type SubscriptionChangeReason string

const (
	SubscriptionChangeReasonSync          SubscriptionChangeReason = "sync"
	SubscriptionChangeReasonInvoicePeriod SubscriptionChangeReason = "invoice_period"
	SubscriptionChangeReasonDelete        SubscriptionChangeReason = "delete"
)

// SubscriptionLog keeps a before/after snapshot of every subscription mutation.
// Written asynchronously; a failed write is logged, never surfaced.
type SubscriptionLog struct {
	ID     string                            `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID string                            `gorm:"column:user_id;type:varchar(64);not null;index" json:"user_id"`
	Reason SubscriptionChangeReason          `gorm:"column:reason;type:varchar(32);not null" json:"reason"`
	Before datatypes.JSONType[*Subscription] `gorm:"column:before;type:jsonb" json:"before"`
	After  datatypes.JSONType[*Subscription] `gorm:"column:after;type:jsonb" json:"after"`
	Extra  datatypes.JSONMap                 `gorm:"column:extra;type:jsonb;default:'{}'" json:"extra"`

	CreatedAt time.Time `json:"created_at"`
}

func (SubscriptionLog) TableName() string {
	return "subscription_log"
}
