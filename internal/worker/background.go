package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/opsdesk/task-service/internal/scheduler"
	"github.com/opsdesk/task-service/internal/service"
)

// Background owns the non-HTTP activities of the API process: notification event
// handlers and the cron-driven sweeps.
type Background struct {
	notifications *service.NotificationService
	sweeps        *scheduler.Scheduler
	logger        *zap.Logger
}

// NewBackground wires the workers. sweeps may be nil when scheduling is disabled.
func NewBackground(notifications *service.NotificationService, sweeps *scheduler.Scheduler, logger *zap.Logger) *Background {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Background{notifications: notifications, sweeps: sweeps, logger: logger}
}

// Start registers notification handlers and starts the sweep scheduler.
func (b *Background) Start() {
	if b.notifications != nil {
		b.notifications.RegisterHandlers()
	}
	if b.sweeps == nil {
		b.logger.Info("sweep scheduler disabled")
		return
	}
	b.sweeps.Start()
}

// Stop waits for running sweeps until ctx expires.
func (b *Background) Stop(ctx context.Context) {
	if b.sweeps != nil {
		b.sweeps.Stop(ctx)
	}
}
