package service

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ebingo-service/internal/config"
	"github.com/spec-kit/ebingo-service/internal/events"
)

func webhookServer(t *testing.T, status int) (string, <-chan map[string]any) {
	t.Helper()
	received := make(chan map[string]any, 8)
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Post("/hook", func(c *fiber.Ctx) error {
		body := map[string]any{}
		if err := json.Unmarshal(c.Body(), &body); err != nil {
			return c.SendStatus(fiber.StatusBadRequest)
		}
		received <- body
		return c.SendStatus(status)
	})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })
	return "http://" + ln.Addr().String() + "/hook", received
}

func TestNotificationsDeliverToWebhook(t *testing.T) {
	url, received := webhookServer(t, fiber.StatusNoContent)
	dispatcher := events.NewInMemoryDispatcher()
	svc := NewNotificationService(dispatcher, nil, config.NotificationConfig{WebhookURL: url, WebhookTimeoutMS: 1000})
	require.True(t, svc.WebhookEnabled())
	svc.RegisterHandlers()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.Run(ctx)

	require.NoError(t, dispatcher.Publish(ctx, events.Event{
		ID:       "evt-1",
		Type:     events.EventBranchOpened,
		BranchID: 3,
		Payload:  events.BranchWindowPayload{Unset: false},
	}))

	select {
	case body := <-received:
		assert.Equal(t, "evt-1", body["id"])
		assert.Equal(t, "branch_opened", body["type"])
		assert.EqualValues(t, 3, body["branch_id"])
	case <-time.After(2 * time.Second):
		t.Fatal("webhook never received the event")
	}
}

func TestNotificationsSkipRoutineVisits(t *testing.T) {
	url, received := webhookServer(t, fiber.StatusOK)
	dispatcher := events.NewInMemoryDispatcher()
	svc := NewNotificationService(dispatcher, nil, config.NotificationConfig{WebhookURL: url})
	svc.RegisterHandlers()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.Run(ctx)

	require.NoError(t, dispatcher.Publish(ctx, events.Event{ID: "visit", Type: events.EventVisitRecorded, BranchID: 3,
		Payload: events.VisitRecordedPayload{MemberID: 1}}))
	require.NoError(t, dispatcher.Publish(ctx, events.Event{ID: "banned", Type: events.EventVisitRecorded, BranchID: 3,
		Payload: events.VisitRecordedPayload{MemberID: 2, Banned: true}}))

	select {
	case body := <-received:
		assert.Equal(t, "banned", body["id"], "only banned members at the door are forwarded")
	case <-time.After(2 * time.Second):
		t.Fatal("banned visit was not forwarded")
	}
}

func TestNotificationsWithoutWebhookQueueNothing(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	svc := NewNotificationService(dispatcher, nil, config.NotificationConfig{WebhookURL: "  "})
	assert.False(t, svc.WebhookEnabled())
	svc.RegisterHandlers()

	require.NoError(t, dispatcher.Publish(context.Background(), events.Event{Type: events.EventBranchClosed, BranchID: 3}))
	assert.Len(t, svc.queue, 0)
}

func TestNotificationQueueDropsWhenFull(t *testing.T) {
	svc := NewNotificationService(nil, nil, config.NotificationConfig{WebhookURL: "http://127.0.0.1:1/hook", QueueSize: 1})
	svc.forward(events.Event{ID: "first"})
	svc.forward(events.Event{ID: "second"})

	require.Len(t, svc.queue, 1)
	assert.Equal(t, "first", (<-svc.queue).ID)
}
