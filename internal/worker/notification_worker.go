package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ebingo-service/internal/service"
)

// StartNotificationWorker registers notification handlers, starts webhook
// delivery when a webhook is configured and, when interval is positive, runs
// the window watcher. Everything stops with ctx.
func StartNotificationWorker(ctx context.Context, notificationService *service.NotificationService, watcher *WindowWatcher, interval time.Duration) {
	if notificationService != nil {
		notificationService.RegisterHandlers()
		if notificationService.WebhookEnabled() {
			go notificationService.Run(ctx)
		}
	}
	if watcher == nil || interval <= 0 {
		return
	}
	watcher.logger.Info("window watcher started", zap.Duration("interval", interval))
	go watcher.Run(ctx, interval)
}
