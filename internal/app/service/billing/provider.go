package billing

import "encoding/json"

// Provider payload shapes, decoded from the raw webhook event data. Stripe
// sends several fields in two forms (a bare id string or an expanded object,
// billing periods top-level or inside the first line item), so the shapes are
// declared explicitly here and both variants resolved through one place.

type ProviderPrice struct {
	ID        string `json:"id"`
	LookupKey string `json:"lookup_key"`
}

type ProviderSubscriptionItem struct {
	Price              *ProviderPrice `json:"price"`
	CurrentPeriodStart int64          `json:"current_period_start"`
	CurrentPeriodEnd   int64          `json:"current_period_end"`
}

type ProviderSubscription struct {
	ID       string          `json:"id"`
	Customer json.RawMessage `json:"customer"`
	Status   string          `json:"status"`

	CurrentPeriodStart int64 `json:"current_period_start"`
	CurrentPeriodEnd   int64 `json:"current_period_end"`

	CancelAtPeriodEnd bool  `json:"cancel_at_period_end"`
	CanceledAt        int64 `json:"canceled_at"`

	Items struct {
		Data []ProviderSubscriptionItem `json:"data"`
	} `json:"items"`

	Metadata map[string]string `json:"metadata"`
}

// CustomerID resolves the customer reference, which arrives either as a bare
// id string or as an expanded customer object.
func (s *ProviderSubscription) CustomerID() (string, bool) {
	return resolveRef(s.Customer)
}

// FirstItem returns the subscription's first line item, if any.
func (s *ProviderSubscription) FirstItem() *ProviderSubscriptionItem {
	if len(s.Items.Data) == 0 {
		return nil
	}
	return &s.Items.Data[0]
}

type ProviderInvoicePeriod struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

type ProviderInvoiceLine struct {
	Period *ProviderInvoicePeriod `json:"period"`
}

type ProviderInvoice struct {
	ID           string          `json:"id"`
	Customer     json.RawMessage `json:"customer"`
	Subscription json.RawMessage `json:"subscription"`

	Lines struct {
		Data []ProviderInvoiceLine `json:"data"`
	} `json:"lines"`
}

// SubscriptionID resolves the invoice's subscription reference (string or
// expanded object).
func (i *ProviderInvoice) SubscriptionID() (string, bool) {
	return resolveRef(i.Subscription)
}

type ProviderCheckoutSession struct {
	ID       string            `json:"id"`
	Customer json.RawMessage   `json:"customer"`
	Metadata map[string]string `json:"metadata"`
}

func (s *ProviderCheckoutSession) CustomerID() (string, bool) {
	return resolveRef(s.Customer)
}

// resolveRef decodes a provider reference that is either a bare id string or
// an expanded object carrying an "id" field.
func resolveRef(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		if id == "" {
			return "", false
		}
		return id, true
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil || obj.ID == "" {
		return "", false
	}
	return obj.ID, true
}
