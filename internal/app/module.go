package app

import (
	"time"

	"go.uber.org/fx"

	"github.com/mintleaf/billing/internal/app/api/server"
	"github.com/mintleaf/billing/internal/app/service/billing"
	"github.com/mintleaf/billing/internal/app/service/eventlog"
	"github.com/mintleaf/billing/internal/app/service/notification"
	"github.com/mintleaf/billing/internal/platform/db"
	"github.com/mintleaf/billing/pkg/config"
	"github.com/mintleaf/billing/pkg/logger"
)

const (
	DefaultStartTimeout = 15 * time.Second
	DefaultStopTimeout  = 10 * time.Second
)

var Module = fx.Options(
	logger.Module,
	config.Module,
	db.Module,
	server.Module,
	billing.Module,
	eventlog.Module,
	notification.Module,
)
