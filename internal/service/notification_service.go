package service

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/ebingo-service/internal/config"
	"github.com/spec-kit/ebingo-service/internal/events"
)

// NotificationService logs domain events and forwards them to the configured
// webhook. Deliveries are queued so publishers never wait on the network.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
	queue      chan events.Event
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.WebhookURL = strings.TrimSpace(cfg.WebhookURL)
	size := cfg.QueueSize
	if size <= 0 {
		size = 128
	}
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
		queue:      make(chan events.Event, size),
	}
}

// WebhookEnabled reports whether events leave the process.
func (n *NotificationService) WebhookEnabled() bool {
	return n.cfg.WebhookURL != ""
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventBranchCreated, n.handleBranchChanged)
	n.dispatcher.Subscribe(events.EventBranchUpdated, n.handleBranchChanged)
	n.dispatcher.Subscribe(events.EventBranchDeleted, n.handleBranchChanged)
	n.dispatcher.Subscribe(events.EventBranchScheduleChanged, n.handleScheduleChanged)
	n.dispatcher.Subscribe(events.EventMemberBanned, n.handleBanChanged)
	n.dispatcher.Subscribe(events.EventMemberUnbanned, n.handleBanChanged)
	n.dispatcher.Subscribe(events.EventVisitRecorded, n.handleVisitRecorded)
	n.dispatcher.Subscribe(events.EventBranchOpened, n.handleWindowTransition)
	n.dispatcher.Subscribe(events.EventBranchClosed, n.handleWindowTransition)
}

// Run delivers queued events until ctx is done.
func (n *NotificationService) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-n.queue:
			n.deliver(event)
		}
	}
}

func (n *NotificationService) handleBranchChanged(_ context.Context, event events.Event) error {
	n.logger.Info(string(event.Type), zap.Int64("branch_id", event.BranchID), zap.Int64("actor_id", event.Actor.UserID))
	n.forward(event)
	return nil
}

func (n *NotificationService) handleScheduleChanged(_ context.Context, event events.Event) error {
	n.logger.Info("BranchScheduleChanged", zap.Int64("branch_id", event.BranchID), zap.Any("payload", event.Payload))
	n.forward(event)
	return nil
}

func (n *NotificationService) handleBanChanged(_ context.Context, event events.Event) error {
	n.logger.Info(string(event.Type), zap.Int64("branch_id", event.BranchID), zap.Any("payload", event.Payload))
	n.forward(event)
	return nil
}

func (n *NotificationService) handleVisitRecorded(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.VisitRecordedPayload)
	if ok && payload.Banned {
		n.logger.Warn("banned member presented at door",
			zap.Int64("branch_id", event.BranchID),
			zap.Int64("member_id", payload.MemberID))
		n.forward(event)
		return nil
	}
	n.logger.Debug("VisitRecorded", zap.Int64("branch_id", event.BranchID), zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) handleWindowTransition(_ context.Context, event events.Event) error {
	n.logger.Info(string(event.Type), zap.Int64("branch_id", event.BranchID), zap.Any("payload", event.Payload))
	n.forward(event)
	return nil
}

// forward queues event for the webhook; a full queue drops it.
func (n *NotificationService) forward(event events.Event) {
	if !n.WebhookEnabled() {
		return
	}
	select {
	case n.queue <- event:
	default:
		n.logger.Warn("notification queue full; dropping event",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)))
	}
}

func (n *NotificationService) deliver(event events.Event) {
	agent := fiber.Post(n.cfg.WebhookURL).
		Timeout(n.cfg.WebhookTimeout()).
		JSON(event)

	code, body, errs := agent.Bytes()
	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.Int64("branch_id", event.BranchID),
	}
	if len(errs) > 0 {
		n.logger.Warn("webhook delivery failed", append(fields, zap.Errors("errors", errs))...)
		return
	}
	if code < fiber.StatusOK || code >= fiber.StatusMultipleChoices {
		n.logger.Warn("webhook rejected event", append(fields, zap.Int("status", code), zap.ByteString("body", body))...)
		return
	}
	n.logger.Debug("webhook delivered", append(fields, zap.Int("status", code))...)
}
