package handlers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mintleaf/billing/internal/app/service/billing"
	"github.com/mintleaf/billing/internal/models"
	"github.com/mintleaf/billing/pkg/config"
	"github.com/mintleaf/billing/pkg/types"
)

const testWebhookSecret = "whsec_test_secret"

// webhookStore is an in-memory billing.Store that also records whether any
// query ran at all.
type webhookStore struct {
	usersByCustomerID map[string]*models.User
	subsByUserID      map[string]*models.Subscription
	touched           bool
}

func newWebhookStore() *webhookStore {
	return &webhookStore{
		usersByCustomerID: map[string]*models.User{},
		subsByUserID:      map[string]*models.Subscription{},
	}
}

func (s *webhookStore) GetUserByStripeCustomerID(_ context.Context, customerID string) (*models.User, error) {
	s.touched = true
	return s.usersByCustomerID[customerID], nil
}

func (s *webhookStore) GetSubscriptionByUserID(_ context.Context, userID string) (*models.Subscription, error) {
	s.touched = true
	return s.subsByUserID[userID], nil
}

func (s *webhookStore) GetSubscriptionByStripeSubscriptionID(_ context.Context, subscriptionID string) (*models.Subscription, error) {
	s.touched = true
	for _, sub := range s.subsByUserID {
		if sub.StripeSubscriptionID == subscriptionID {
			return sub, nil
		}
	}
	return nil, nil
}

func (s *webhookStore) SaveSubscription(_ context.Context, _, after *models.Subscription, _ models.SubscriptionChangeReason) error {
	s.touched = true
	if after.ID == "" {
		after.ID = "generated-id"
	}
	s.subsByUserID[after.UserID] = after
	return nil
}

func (s *webhookStore) DeleteSubscription(_ context.Context, sub *models.Subscription) error {
	s.touched = true
	delete(s.subsByUserID, sub.UserID)
	return nil
}

func (s *webhookStore) ScanSubscriptions(_ context.Context, _ *billing.ScanSubscriptionsRequest) (*billing.ScanSubscriptionsResponse, error) {
	return &billing.ScanSubscriptionsResponse{}, nil
}

func newWebhookRouter(secret string, store billing.Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{Stripe: config.StripeConfig{WebhookSecret: secret}}
	svc := billing.NewService(cfg, store, nil, zap.NewNop().Sugar())
	h := NewStripeWebhook(cfg, svc, nil, zap.NewNop().Sugar())

	r := gin.New()
	RegisterStripeWebhookRoutes(r.Group("/api/webhooks"), h)
	return r
}

// signPayload computes the Stripe v1 signature header for a payload.
func signPayload(secret string, payload []byte) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func eventPayload(eventType, dataObject string) []byte {
	return []byte(fmt.Sprintf(`{"id":"evt_1","object":"event","type":%q,"data":{"object":%s}}`, eventType, dataObject))
}

func postWebhook(r *gin.Engine, payload []byte, sigHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", bytes.NewReader(payload))
	if sigHeader != "" {
		req.Header.Set("Stripe-Signature", sigHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func subscriptionObject(periodEnd int64) string {
	return fmt.Sprintf(`{
		"id": "sub_123",
		"customer": "cus_456",
		"status": "active",
		"cancel_at_period_end": false,
		"items": {"data": [{
			"price": {"id": "price_789", "lookup_key": "family_monthly"},
			"current_period_start": 1700000000,
			"current_period_end": %d
		}]}
	}`, periodEnd)
}

func TestWebhookSubscriptionUpdatedSyncsRow(t *testing.T) {
	store := newWebhookStore()
	store.usersByCustomerID["cus_456"] = &models.User{ID: "user-1", Email: "sam@example.com"}
	r := newWebhookRouter(testWebhookSecret, store)

	periodEnd := time.Now().Add(30 * 24 * time.Hour).Unix()
	payload := eventPayload("customer.subscription.updated", subscriptionObject(periodEnd))

	w := postWebhook(r, payload, signPayload(testWebhookSecret, payload))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Subscription synced", w.Body.String())

	row := store.subsByUserID["user-1"]
	require.NotNil(t, row)
	assert.Equal(t, "sub_123", row.StripeSubscriptionID)
	assert.Equal(t, types.SubscriptionPlanFamily, row.Plan)
	assert.Equal(t, types.SubscriptionStatusActive, row.Status)
	assert.Equal(t, time.Unix(periodEnd, 0), row.CurrentPeriodEnd)
}

func TestWebhookInvoiceWithoutSubscriptionIsNoOp(t *testing.T) {
	store := newWebhookStore()
	r := newWebhookRouter(testWebhookSecret, store)

	payload := eventPayload("invoice.created", `{"id": "in_1", "lines": {"data": []}}`)
	w := postWebhook(r, payload, signPayload(testWebhookSecret, payload))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Invoice processed with no subscription updates required.", w.Body.String())
}

func TestWebhookInvoiceRefreshesPeriod(t *testing.T) {
	store := newWebhookStore()
	store.subsByUserID["user-1"] = &models.Subscription{
		ID:                   "row-1",
		UserID:               "user-1",
		StripeSubscriptionID: "sub_123",
		Status:               types.SubscriptionStatusActive,
	}
	r := newWebhookRouter(testWebhookSecret, store)

	payload := eventPayload("invoice.created", `{
		"id": "in_1",
		"subscription": "sub_123",
		"lines": {"data": [{"period": {"start": 1800000000, "end": 1802592000}}]}
	}`)
	w := postWebhook(r, payload, signPayload(testWebhookSecret, payload))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Invoice processed", w.Body.String())
	assert.Equal(t, time.Unix(1802592000, 0), store.subsByUserID["user-1"].CurrentPeriodEnd)
}

func TestWebhookDeleteWithoutRowStillSucceeds(t *testing.T) {
	store := newWebhookStore()
	store.usersByCustomerID["cus_456"] = &models.User{ID: "user-1", Email: "sam@example.com"}
	r := newWebhookRouter(testWebhookSecret, store)

	payload := eventPayload("customer.subscription.deleted", subscriptionObject(1700000000))
	w := postWebhook(r, payload, signPayload(testWebhookSecret, payload))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "No subscription record to delete.", w.Body.String())
}

func TestWebhookDeleteRemovesRow(t *testing.T) {
	store := newWebhookStore()
	store.usersByCustomerID["cus_456"] = &models.User{ID: "user-1", Email: "sam@example.com"}
	store.subsByUserID["user-1"] = &models.Subscription{ID: "row-1", UserID: "user-1", StripeSubscriptionID: "sub_123"}
	r := newWebhookRouter(testWebhookSecret, store)

	payload := eventPayload("customer.subscription.deleted", subscriptionObject(1700000000))
	w := postWebhook(r, payload, signPayload(testWebhookSecret, payload))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Subscription record deleted", w.Body.String())
	assert.Nil(t, store.subsByUserID["user-1"])
}

// A tampered signature must be rejected before anything touches the store.
func TestWebhookTamperedSignatureRejected(t *testing.T) {
	store := newWebhookStore()
	r := newWebhookRouter(testWebhookSecret, store)

	payload := eventPayload("customer.subscription.updated", subscriptionObject(1700000000))
	w := postWebhook(r, payload, signPayload("whsec_wrong_secret", payload))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Webhook error", w.Body.String())
	assert.False(t, store.touched, "no store access on a failed verification")
}

func TestWebhookMissingSignatureHeader(t *testing.T) {
	store := newWebhookStore()
	r := newWebhookRouter(testWebhookSecret, store)

	payload := eventPayload("customer.subscription.updated", subscriptionObject(1700000000))
	w := postWebhook(r, payload, "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, store.touched)
}

func TestWebhookMissingSecretIs500(t *testing.T) {
	store := newWebhookStore()
	r := newWebhookRouter("", store)

	payload := eventPayload("customer.subscription.updated", subscriptionObject(1700000000))
	w := postWebhook(r, payload, signPayload(testWebhookSecret, payload))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.False(t, store.touched)
}

func TestWebhookUnknownCustomerIs404(t *testing.T) {
	store := newWebhookStore()
	r := newWebhookRouter(testWebhookSecret, store)

	payload := eventPayload("customer.subscription.updated", subscriptionObject(1700000000))
	w := postWebhook(r, payload, signPayload(testWebhookSecret, payload))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "User not found", w.Body.String())
}

func TestWebhookIncompleteSubscriptionIs500(t *testing.T) {
	store := newWebhookStore()
	store.usersByCustomerID["cus_456"] = &models.User{ID: "user-1", Email: "sam@example.com"}
	r := newWebhookRouter(testWebhookSecret, store)

	// Status the service does not understand fails the payload build.
	obj := `{
		"id": "sub_123",
		"customer": "cus_456",
		"status": "paused",
		"items": {"data": [{
			"price": {"id": "price_789", "lookup_key": "family_monthly"},
			"current_period_start": 1700000000,
			"current_period_end": 1702592000
		}]}
	}`
	payload := eventPayload("customer.subscription.updated", obj)
	w := postWebhook(r, payload, signPayload(testWebhookSecret, payload))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Nil(t, store.subsByUserID["user-1"], "nothing was written")
}

func TestWebhookUnhandledEventTypeAcknowledged(t *testing.T) {
	store := newWebhookStore()
	r := newWebhookRouter(testWebhookSecret, store)

	payload := eventPayload("charge.succeeded", `{"id": "ch_1"}`)
	w := postWebhook(r, payload, signPayload(testWebhookSecret, payload))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, store.touched)
}

func TestWebhookCheckoutCompletedAcknowledged(t *testing.T) {
	store := newWebhookStore()
	r := newWebhookRouter(testWebhookSecret, store)

	payload := eventPayload("checkout.session.completed", `{"id": "cs_1", "metadata": {"user_id": "user-1"}}`)
	w := postWebhook(r, payload, signPayload(testWebhookSecret, payload))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Checkout session received", w.Body.String())
	assert.False(t, store.touched)
}
