package apiclient

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ebingo-service/internal/auth"
	"github.com/spec-kit/ebingo-service/internal/schedule"
)

func serve(t *testing.T, app *fiber.App) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })
	return "http://" + ln.Addr().String()
}

func TestWindowDecodesDecision(t *testing.T) {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get("/branches/:id/window", func(c *fiber.Ctx) error {
		if c.Get(fiber.HeaderAuthorization) != "Bearer tok" {
			return c.SendStatus(fiber.StatusUnauthorized)
		}
		return c.JSON(fiber.Map{"data": fiber.Map{
			"branch_id":     c.Params("id"),
			"is_open":       false,
			"next_opening":  "2024-05-11T09:00:00+08:00",
			"ms_until_open": 46800000,
			"unset":         false,
		}})
	})
	client := New(serve(t, app), "tok", time.Second)

	d, err := client.Window(context.Background(), 7)
	require.NoError(t, err)
	assert.False(t, d.IsOpen)
	require.NotNil(t, d.NextOpening)
	assert.True(t, d.NextOpening.Equal(time.Date(2024, 5, 11, 1, 0, 0, 0, time.UTC)))
	assert.EqualValues(t, 46800000, d.MillisUntilOpen)
}

func TestWindowFailuresAreUnavailable(t *testing.T) {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get("/branches/:id/window", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": fiber.Map{
			"code":    "SCHEDULE_UNAVAILABLE",
			"message": "branch schedule unavailable",
		}})
	})
	client := New(serve(t, app), "tok", time.Second)

	_, err := client.Window(context.Background(), 7)
	assert.ErrorIs(t, err, schedule.ErrUnavailable)
	assert.Contains(t, err.Error(), "SCHEDULE_UNAVAILABLE")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = client.Window(ctx, 7)
	assert.ErrorIs(t, err, schedule.ErrUnavailable)
}

func TestWindowClassifiesRejections(t *testing.T) {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get("/branches/:id/window", func(c *fiber.Ctx) error {
		switch c.Params("id") {
		case "1":
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": fiber.Map{"code": "UNAUTHORIZED", "message": "session expired"}})
		case "2":
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": fiber.Map{"code": "FORBIDDEN"}})
		default:
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": fiber.Map{"code": "NOT_FOUND"}})
		}
	})
	client := New(serve(t, app), "tok", time.Second)
	ctx := context.Background()

	testCases := []struct {
		name     string
		branchID int64
		is       []error
	}{
		{name: "unauthorized", branchID: 1, is: []error{ErrUnauthorized, auth.ErrSessionRejected}},
		{name: "forbidden", branchID: 2, is: []error{ErrUnauthorized, auth.ErrSessionRejected}},
		{name: "not found", branchID: 3, is: []error{schedule.ErrUnknownBranch}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := client.Window(ctx, tc.branchID)
			for _, target := range tc.is {
				assert.ErrorIs(t, err, target)
			}
			assert.NotErrorIs(t, err, schedule.ErrUnavailable, "retrying cannot fix this")
		})
	}
}

func TestLoginKeepsToken(t *testing.T) {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Post("/auth/login", func(c *fiber.Ctx) error {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := c.BodyParser(&req); err != nil || req.Password != "secret-pass" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": fiber.Map{"code": "UNAUTHORIZED"}})
		}
		return c.JSON(fiber.Map{"data": fiber.Map{"auth": fiber.Map{"token": "issued", "expires_at": time.Now().Add(time.Hour)}}})
	})
	client := New(serve(t, app), "", time.Second)

	_, err := client.Login(context.Background(), "guard1", "wrong")
	assert.ErrorIs(t, err, ErrUnauthorized)

	token, err := client.Login(context.Background(), "guard1", "secret-pass")
	require.NoError(t, err)
	assert.Equal(t, "issued", token)
	assert.Equal(t, "issued", client.Token())
}
