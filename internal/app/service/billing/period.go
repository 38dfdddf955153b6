package billing

// BillingPeriod holds the current billing window as epoch seconds.
type BillingPeriod struct {
	Start int64
	End   int64
}

// ExtractPeriod locates the current billing period on a provider
// subscription. Newer API versions carry the period on the first line item,
// older ones at the top level, so the top-level fields win and the first item
// is the fallback. A period only counts when both bounds are present.
func ExtractPeriod(sub *ProviderSubscription) (BillingPeriod, bool) {
	if sub.CurrentPeriodStart > 0 && sub.CurrentPeriodEnd > 0 {
		return BillingPeriod{Start: sub.CurrentPeriodStart, End: sub.CurrentPeriodEnd}, true
	}
	if item := sub.FirstItem(); item != nil && item.CurrentPeriodStart > 0 && item.CurrentPeriodEnd > 0 {
		return BillingPeriod{Start: item.CurrentPeriodStart, End: item.CurrentPeriodEnd}, true
	}
	return BillingPeriod{}, false
}

// ExtractInvoicePeriod locates the billing period on an invoice, which lives
// on the first line item.
func ExtractInvoicePeriod(inv *ProviderInvoice) (BillingPeriod, bool) {
	if len(inv.Lines.Data) == 0 {
		return BillingPeriod{}, false
	}
	period := inv.Lines.Data[0].Period
	if period == nil || period.Start <= 0 || period.End <= 0 {
		return BillingPeriod{}, false
	}
	return BillingPeriod{Start: period.Start, End: period.End}, true
}
