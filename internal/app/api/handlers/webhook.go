package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/mintleaf/billing/internal/app/service/billing"
	"github.com/mintleaf/billing/internal/app/service/eventlog"
	"github.com/mintleaf/billing/internal/models"
	"github.com/mintleaf/billing/pkg/config"
	"github.com/mintleaf/billing/pkg/logctx"
)

const maxWebhookBodyBytes = 1 << 20

// StripeWebhook routes verified Stripe events to the billing service. The
// endpoint secret is resolved once at construction; handling never consults
// the environment.
type StripeWebhook struct {
	secret  string
	billing *billing.Service
	events  *eventlog.Service
	log     *zap.SugaredLogger
}

func NewStripeWebhook(cfg *config.Config, billingSvc *billing.Service, events *eventlog.Service, log *zap.SugaredLogger) *StripeWebhook {
	return &StripeWebhook{
		secret:  cfg.Stripe.WebhookSecret,
		billing: billingSvc,
		events:  events,
		log:     log,
	}
}

// @Summary      Stripe Webhook
// @Description  Handles Stripe subscription lifecycle events. The request body is the raw Stripe event; responses are plain text.
// @Tags         Webhook
// @Accept       json
// @Produce      plain
// @Success      200  {string}  string  "event handled"
// @Failure      400  {string}  string  "Webhook error"
// @Router       /api/webhooks/stripe [post]
// Handle verifies the signature and dispatches the event.
func (h *StripeWebhook) Handle(c *gin.Context) {
	log := logctx.FromCtx(c, h.log)

	if h.secret == "" {
		log.Errorw("webhook_stripe_secret_missing")
		c.String(http.StatusInternalServerError, "Webhook secret not configured")
		return
	}

	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		log.Errorw("webhook_stripe_body_read_error", "error", err.Error())
		c.String(http.StatusBadRequest, "Failed to read request body")
		return
	}

	sig := c.GetHeader("Stripe-Signature")
	if sig == "" {
		c.String(http.StatusBadRequest, "Missing Stripe signature")
		return
	}

	event, err := webhook.ConstructEventWithOptions(payload, sig, h.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		log.Errorw("webhook_stripe_signature_error", "error", err.Error())
		c.String(http.StatusBadRequest, "Webhook error")
		return
	}

	log.Infow("webhook_stripe_received", "event_id", event.ID, "event_type", event.Type)

	status, body, userID := h.dispatch(c, &event)

	if h.events != nil {
		entry := &models.WebhookEventLog{
			EventID:   event.ID,
			EventType: string(event.Type),
			UserID:    userID,
			TraceID:   c.GetString("traceID"),
			Data:      datatypes.JSON(event.Data.Raw),
			Status:    models.WebhookEventLogStatusHandled,
		}
		if status >= http.StatusBadRequest {
			entry.Status = models.WebhookEventLogStatusHandleFailed
		}
		if result, err := json.Marshal(gin.H{"code": status, "body": body}); err == nil {
			raw := datatypes.JSON(result)
			entry.Result = &raw
		}
		h.events.Save(c, entry)
	}

	c.String(status, body)
}

// dispatch runs the event-type specific handling and reports the HTTP status,
// plain-text body and the affected user (when one was resolved).
func (h *StripeWebhook) dispatch(c *gin.Context, event *stripe.Event) (int, string, *string) {
	switch event.Type {
	case stripe.EventTypeCustomerSubscriptionCreated,
		stripe.EventTypeCustomerSubscriptionUpdated:
		return h.handleSubscriptionChange(c, event)
	case stripe.EventTypeCustomerSubscriptionDeleted:
		return h.handleSubscriptionDeleted(c, event)
	case stripe.EventTypeInvoiceCreated:
		return h.handleInvoiceCreated(c, event)
	case stripe.EventTypeCheckoutSessionCompleted:
		return h.handleCheckoutCompleted(c, event)
	default:
		return http.StatusOK, "Unhandled event type", nil
	}
}

func (h *StripeWebhook) handleSubscriptionChange(c *gin.Context, event *stripe.Event) (int, string, *string) {
	log := logctx.FromCtx(c, h.log)

	var sub billing.ProviderSubscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		log.Errorw("webhook_stripe_decode_error", "event_id", event.ID, "error", err.Error())
		return http.StatusBadRequest, "Invalid payload", nil
	}

	customerID, ok := sub.CustomerID()
	if !ok {
		return http.StatusBadRequest, "Missing customer id", nil
	}

	user, err := h.billing.UserByCustomerID(c, customerID)
	if err != nil {
		return http.StatusInternalServerError, err.Error(), nil
	}
	if user == nil {
		return http.StatusNotFound, "User not found", nil
	}

	if _, err := h.billing.Sync(c, user, &sub); err != nil {
		log.Errorw("webhook_stripe_sync_error", "event_id", event.ID, "user_id", user.ID, "error", err.Error())
		return http.StatusInternalServerError, err.Error(), &user.ID
	}
	return http.StatusOK, "Subscription synced", &user.ID
}

func (h *StripeWebhook) handleSubscriptionDeleted(c *gin.Context, event *stripe.Event) (int, string, *string) {
	log := logctx.FromCtx(c, h.log)

	var sub billing.ProviderSubscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		log.Errorw("webhook_stripe_decode_error", "event_id", event.ID, "error", err.Error())
		return http.StatusBadRequest, "Invalid payload", nil
	}

	customerID, ok := sub.CustomerID()
	if !ok {
		return http.StatusBadRequest, "Missing customer id", nil
	}

	user, err := h.billing.UserByCustomerID(c, customerID)
	if err != nil {
		return http.StatusInternalServerError, err.Error(), nil
	}
	if user == nil {
		return http.StatusNotFound, "User not found", nil
	}

	deleted, err := h.billing.DeleteForUser(c, user)
	if err != nil {
		return http.StatusInternalServerError, err.Error(), &user.ID
	}
	if !deleted {
		return http.StatusOK, "No subscription record to delete.", &user.ID
	}
	return http.StatusOK, "Subscription record deleted", &user.ID
}

func (h *StripeWebhook) handleInvoiceCreated(c *gin.Context, event *stripe.Event) (int, string, *string) {
	log := logctx.FromCtx(c, h.log)

	var inv billing.ProviderInvoice
	if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
		log.Errorw("webhook_stripe_decode_error", "event_id", event.ID, "error", err.Error())
		return http.StatusBadRequest, "Invalid payload", nil
	}

	sub, err := h.billing.RefreshFromInvoice(c, &inv)
	if err != nil {
		log.Errorw("webhook_stripe_invoice_error", "event_id", event.ID, "error", err.Error())
		return http.StatusInternalServerError, err.Error(), nil
	}
	if sub == nil {
		return http.StatusOK, "Invoice processed with no subscription updates required.", nil
	}
	return http.StatusOK, "Invoice processed", &sub.UserID
}

// Checkout completion is informational here: the subscription row is written
// by the customer.subscription.created event that follows it.
func (h *StripeWebhook) handleCheckoutCompleted(c *gin.Context, event *stripe.Event) (int, string, *string) {
	log := logctx.FromCtx(c, h.log)

	var session billing.ProviderCheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		log.Errorw("webhook_stripe_decode_error", "event_id", event.ID, "error", err.Error())
		return http.StatusBadRequest, "Invalid payload", nil
	}

	log.Infow("webhook_stripe_checkout_completed",
		"session_id", session.ID, "client_reference", session.Metadata["user_id"])
	return http.StatusOK, "Checkout session received", nil
}

func RegisterStripeWebhookRoutes(r gin.IRouter, h *StripeWebhook) {
	// Mount under provided group, expected at "/api/webhooks"
	r.POST("/stripe", h.Handle)
}
