package billing

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mintleaf/billing/internal/models"
	"github.com/mintleaf/billing/pkg/logctx"
	"github.com/mintleaf/billing/pkg/tool"
	"github.com/mintleaf/billing/pkg/types"
)

// Store is the persistence surface the billing service works against.
// Lookups return (nil, nil) when no row matches; an error always means the
// query itself failed.
type Store interface {
	GetUserByStripeCustomerID(ctx context.Context, customerID string) (*models.User, error)
	GetSubscriptionByUserID(ctx context.Context, userID string) (*models.Subscription, error)
	GetSubscriptionByStripeSubscriptionID(ctx context.Context, subscriptionID string) (*models.Subscription, error)
	SaveSubscription(ctx context.Context, before, after *models.Subscription, reason models.SubscriptionChangeReason) error
	DeleteSubscription(ctx context.Context, sub *models.Subscription) error
	ScanSubscriptions(ctx context.Context, req *ScanSubscriptionsRequest) (*ScanSubscriptionsResponse, error)
}

type ScanSubscriptionsRequest struct {
	Filters   []*types.CommonFilter `json:"filters"`
	From      int                   `json:"from"`
	Size      int                   `json:"size"`
	SortBy    string                `json:"sort_by"`
	SortOrder string                `json:"sort_order"`
}

type ScanSubscriptionsResponse struct {
	Items []*models.Subscription `json:"items"`
	Total int64                  `json:"total"`
}

type gormStore struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewStore(db *gorm.DB, log *zap.SugaredLogger) Store {
	return &gormStore{db: db, log: log}
}

func (s *gormStore) GetUserByStripeCustomerID(ctx context.Context, customerID string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("stripe_customer_id = ?", customerID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by customer id: %w", err)
	}
	return &user, nil
}

func (s *gormStore) GetSubscriptionByUserID(ctx context.Context, userID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription by user id: %w", err)
	}
	return &sub, nil
}

func (s *gormStore) GetSubscriptionByStripeSubscriptionID(ctx context.Context, subscriptionID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := s.db.WithContext(ctx).Where("stripe_subscription_id = ?", subscriptionID).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription by stripe subscription id: %w", err)
	}
	return &sub, nil
}

// SaveSubscription persists the row and writes the change log asynchronously;
// log errors are logged but not returned.
func (s *gormStore) SaveSubscription(ctx context.Context, before, after *models.Subscription, reason models.SubscriptionChangeReason) error {
	if after.ID == "" {
		after.ID = tool.GenerateUUIDV7()
	}
	if err := s.db.WithContext(ctx).Save(after).Error; err != nil {
		return fmt.Errorf("failed to save subscription: %w", err)
	}
	go s.saveSubscriptionLog(ctx, before, after, after.UserID, reason)
	return nil
}

func (s *gormStore) DeleteSubscription(ctx context.Context, sub *models.Subscription) error {
	if err := s.db.WithContext(ctx).Delete(sub).Error; err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}
	go s.saveSubscriptionLog(ctx, sub, nil, sub.UserID, models.SubscriptionChangeReasonDelete)
	return nil
}

func (s *gormStore) saveSubscriptionLog(ctx context.Context, before, after *models.Subscription, userID string, reason models.SubscriptionChangeReason) {
	entry := &models.SubscriptionLog{
		ID:     tool.GenerateUUIDV7(),
		UserID: userID,
		Reason: reason,
		Before: datatypes.NewJSONType(before),
		After:  datatypes.NewJSONType(after),
		Extra:  datatypes.JSONMap{},
	}
	if err := s.db.Save(entry).Error; err != nil {
		logctx.FromCtx(ctx, s.log).Errorf("failed to save subscription log: %v", err)
	}
}

// filtersAnd combines multiple CommonFilter into a single clause.Expression.
type filtersAnd struct{ filters []*types.CommonFilter }

func (w filtersAnd) Build(builder clause.Builder) {
	if len(w.filters) == 0 {
		builder.WriteString("1=1")
		return
	}
	exprs := make([]clause.Expression, 0, len(w.filters))
	for _, f := range w.filters {
		exprs = append(exprs, f)
	}
	clause.And(exprs...).Build(builder)
}

// ScanSubscriptions implements paginated admin listing with filters.
func (s *gormStore) ScanSubscriptions(ctx context.Context, req *ScanSubscriptionsRequest) (*ScanSubscriptionsResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}
	if req.Size <= 0 {
		req.Size = 10
	}
	if req.From < 0 {
		req.From = 0
	}

	tx := s.db.WithContext(ctx).Model(&models.Subscription{})
	if len(req.Filters) > 0 {
		tx = tx.Where(clause.Where{Exprs: []clause.Expression{filtersAnd{filters: req.Filters}}})
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count subscriptions: %w", err)
	}

	var rows []*models.Subscription

	q := tx.Limit(req.Size)

	if req.From > 0 {
		q = q.Offset(req.From)
	}

	if req.SortBy != "" {
		q = q.Order(clause.OrderBy{Columns: []clause.OrderByColumn{{Column: clause.Column{Name: req.SortBy}, Desc: req.SortOrder != "asc"}}})
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	return &ScanSubscriptionsResponse{Items: rows, Total: total}, nil
}
