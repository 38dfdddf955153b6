package billing

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mintleaf/billing/internal/models"
	"github.com/mintleaf/billing/pkg/config"
	"github.com/mintleaf/billing/pkg/logctx"
)

// Notifier is the hook the service fires when a subscription's validity
// flips. Implementations must not block, delivery failures stay on their
// side.
type Notifier interface {
	SubscriptionChanged(ctx context.Context, user *models.User, before, after *models.Subscription)
}

type Service struct {
	cfg      *config.Config
	store    Store
	notifier Notifier
	log      *zap.SugaredLogger
}

func NewService(cfg *config.Config, store Store, notifier Notifier, log *zap.SugaredLogger) *Service {
	return &Service{cfg: cfg, store: store, notifier: notifier, log: log}
}

// UserByCustomerID looks up the account a provider customer id belongs to.
// Returns (nil, nil) when no user carries the id.
func (s *Service) UserByCustomerID(ctx context.Context, customerID string) (*models.User, error) {
	return s.store.GetUserByStripeCustomerID(ctx, customerID)
}

// GetByUser returns the user's subscription row, or (nil, nil) when none
// exists.
func (s *Service) GetByUser(ctx context.Context, userID string) (*models.Subscription, error) {
	return s.store.GetSubscriptionByUserID(ctx, userID)
}

// Sync replaces the user's subscription row with the state carried by a
// provider subscription snapshot. The payload is built all-or-nothing first;
// then the existing row (if any) gets every payload field overwritten. Events
// are applied in arrival order with no sequencing check, the last snapshot to
// arrive wins.
func (s *Service) Sync(ctx context.Context, user *models.User, psub *ProviderSubscription) (*models.Subscription, error) {
	payload, err := BuildPayload(psub)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.GetSubscriptionByUserID(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load subscription for sync: %w", err)
	}

	var before *models.Subscription
	sub := existing
	if sub == nil {
		sub = &models.Subscription{UserID: user.ID}
	} else {
		copied := *existing
		before = &copied
	}

	sub.StripeCustomerID = payload.StripeCustomerID
	sub.StripeSubscriptionID = payload.StripeSubscriptionID
	sub.StripePriceID = payload.StripePriceID
	sub.Plan = payload.Plan
	sub.Status = payload.Status
	sub.CurrentPeriodStart = payload.CurrentPeriodStart
	sub.CurrentPeriodEnd = payload.CurrentPeriodEnd
	sub.CanceledAt = payload.CanceledAt
	sub.CancelAtPeriodEnd = payload.CancelAtPeriodEnd

	if err := s.store.SaveSubscription(ctx, before, sub, models.SubscriptionChangeReasonSync); err != nil {
		return nil, err
	}

	logctx.FromCtx(ctx, s.log).Infof("synced subscription, user_id=%s, stripe_subscription_id=%s, status=%s",
		user.ID, sub.StripeSubscriptionID, sub.Status)

	if s.notifier != nil && before.Valid() != sub.Valid() {
		s.notifier.SubscriptionChanged(ctx, user, before, sub)
	}

	return sub, nil
}

// RefreshFromInvoice updates only the billing period of the subscription an
// invoice refers to. Invoices without a subscription reference, without a
// line-item period, or referring to a subscription this service never stored
// are a no-op, signalled by a (nil, nil) return.
func (s *Service) RefreshFromInvoice(ctx context.Context, inv *ProviderInvoice) (*models.Subscription, error) {
	subscriptionID, ok := inv.SubscriptionID()
	if !ok {
		return nil, nil
	}
	period, ok := ExtractInvoicePeriod(inv)
	if !ok {
		return nil, nil
	}

	sub, err := s.store.GetSubscriptionByStripeSubscriptionID(ctx, subscriptionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load subscription for invoice %s: %w", inv.ID, err)
	}
	if sub == nil {
		return nil, nil
	}

	before := *sub
	sub.CurrentPeriodStart = time.Unix(period.Start, 0)
	sub.CurrentPeriodEnd = time.Unix(period.End, 0)

	if err := s.store.SaveSubscription(ctx, &before, sub, models.SubscriptionChangeReasonInvoicePeriod); err != nil {
		return nil, err
	}

	logctx.FromCtx(ctx, s.log).Infof("refreshed subscription period from invoice, user_id=%s, invoice_id=%s",
		sub.UserID, inv.ID)

	return sub, nil
}

// DeleteForUser removes the user's subscription row if one exists. Reports
// whether a row was actually deleted; deleting an absent row is not an error.
func (s *Service) DeleteForUser(ctx context.Context, user *models.User) (bool, error) {
	sub, err := s.store.GetSubscriptionByUserID(ctx, user.ID)
	if err != nil {
		return false, fmt.Errorf("failed to load subscription for delete: %w", err)
	}
	if sub == nil {
		return false, nil
	}

	if err := s.store.DeleteSubscription(ctx, sub); err != nil {
		return false, err
	}

	logctx.FromCtx(ctx, s.log).Infof("deleted subscription, user_id=%s, stripe_subscription_id=%s",
		user.ID, sub.StripeSubscriptionID)

	if s.notifier != nil && sub.Valid() {
		s.notifier.SubscriptionChanged(ctx, user, sub, nil)
	}

	return true, nil
}

// ScanSubscriptions exposes the paginated admin listing.
func (s *Service) ScanSubscriptions(ctx context.Context, req *ScanSubscriptionsRequest) (*ScanSubscriptionsResponse, error) {
	return s.store.ScanSubscriptions(ctx, req)
}
