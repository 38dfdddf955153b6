package billing

import (
	"strings"

	"github.com/mintleaf/billing/pkg/types"
)

// planByLookupKey maps the Stripe price lookup keys provisioned for the
// product to internal plans. Prices are created with these exact keys, the
// substring fallback in ResolvePlan only covers keys added out of band.
var planByLookupKey = map[string]types.SubscriptionPlan{
	"individual_monthly": types.SubscriptionPlanIndividual,
	"individual_yearly":  types.SubscriptionPlanIndividual,
	"family_monthly":     types.SubscriptionPlanFamily,
	"family_yearly":      types.SubscriptionPlanFamily,
}

// ResolvePlan maps a price lookup key to an internal plan. The exact table is
// consulted first, then a case-insensitive substring match. An empty or
// unrecognized key resolves to nothing.
func ResolvePlan(lookupKey string) (types.SubscriptionPlan, bool) {
	if lookupKey == "" {
		return "", false
	}
	if plan, ok := planByLookupKey[lookupKey]; ok {
		return plan, true
	}
	lower := strings.ToLower(lookupKey)
	switch {
	case strings.Contains(lower, "family"):
		return types.SubscriptionPlanFamily, true
	case strings.Contains(lower, "individual"):
		return types.SubscriptionPlanIndividual, true
	}
	return "", false
}
