package notification

import (
	"go.uber.org/fx"

	"github.com/mintleaf/billing/internal/app/service/billing"
)

var Module = fx.Options(
	fx.Provide(NewSMTPMailer),
	fx.Provide(NewService),
	fx.Provide(func(s *Service) billing.Notifier { return s }),
)
