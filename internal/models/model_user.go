package models

import "time"

// User is the budgeting app's account record. This service only reads it: the
// stripe_customer_id column is the correlation target for customer.* events.
type User struct {
	ID               string  `gorm:"column:id;type:uuid;primary_key" json:"id"`
	Email            string  `gorm:"column:email;type:varchar(255);not null;uniqueIndex" json:"email"`
	Name             string  `gorm:"column:name;type:varchar(255)" json:"name"`
	StripeCustomerID *string `gorm:"column:stripe_customer_id;type:varchar(64);index" json:"stripe_customer_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "app_user"
}
