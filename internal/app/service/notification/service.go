package notification

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mintleaf/billing/internal/models"
	"github.com/mintleaf/billing/pkg/logctx"
)

// Service sends lifecycle emails when a user gains or loses access to paid
// features. Delivery is fire-and-forget: the webhook response never waits on
// SMTP, and a failed send is only logged.
type Service struct {
	mailer Mailer
	log    *zap.SugaredLogger
}

func NewService(mailer Mailer, log *zap.SugaredLogger) *Service {
	return &Service{mailer: mailer, log: log}
}

// SubscriptionChanged implements billing.Notifier.
func (s *Service) SubscriptionChanged(ctx context.Context, user *models.User, before, after *models.Subscription) {
	if user == nil || user.Email == "" {
		return
	}

	subject, body := composeChangeMail(user, after)

	go func() {
		if err := s.mailer.Send(user.Email, subject, body); err != nil {
			logctx.FromCtx(ctx, s.log).Errorf("failed to send subscription change mail, user_id=%s: %v", user.ID, err)
			return
		}
		logctx.FromCtx(ctx, s.log).Infof("sent subscription change mail, user_id=%s", user.ID)
	}()
}

func composeChangeMail(user *models.User, after *models.Subscription) (subject, body string) {
	name := user.Name
	if name == "" {
		name = user.Email
	}

	if after.Valid() {
		subject = "Your Mintleaf subscription is active"
		body = fmt.Sprintf("Hi %s,\n\nYour %s plan is now active until %s. Happy budgeting!\n",
			name, after.Plan, after.CurrentPeriodEnd.Format("January 2, 2006"))
		return subject, body
	}

	subject = "Your Mintleaf subscription has ended"
	body = fmt.Sprintf("Hi %s,\n\nYour subscription is no longer active. You can resubscribe any time from the app.\n", name)
	return subject, body
}
