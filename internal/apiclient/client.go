// Package apiclient is the terminal's HTTP client for the ebingo API.
package apiclient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ebingo-service/internal/api/dto"
	"github.com/spec-kit/ebingo-service/internal/auth"
	"github.com/spec-kit/ebingo-service/internal/schedule"
)

// ErrUnauthorized is returned when the API rejects the credentials or token.
var ErrUnauthorized = errors.New("apiclient: unauthorized")

// Client calls the API with fiber's HTTP agent.
type Client struct {
	baseURL string
	token   string
	timeout time.Duration
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type envelope[T any] struct {
	Data  T         `json:"data"`
	Error *apiError `json:"error"`
}

type loginData struct {
	Auth dto.AuthResponse `json:"auth"`
}

// New builds a client for baseURL. token may be empty until Login.
func New(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 4 * time.Second
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), token: token, timeout: timeout}
}

// Token is the bearer token in use.
func (c *Client) Token() string {
	return c.token
}

// Login exchanges credentials for a session token and keeps it.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	agent := fiber.Post(c.baseURL + "/auth/login").
		Timeout(c.timeout).
		JSON(dto.LoginRequest{Username: username, Password: password})

	var out envelope[loginData]
	code, _, errs := agent.Struct(&out)
	if len(errs) > 0 {
		return "", fmt.Errorf("apiclient: login: %w", errors.Join(errs...))
	}
	if code == fiber.StatusUnauthorized {
		return "", ErrUnauthorized
	}
	if code != fiber.StatusOK {
		return "", fmt.Errorf("apiclient: login: status %d%s", code, describe(out.Error))
	}
	c.token = out.Data.Auth.Token
	return c.token, nil
}

// Window fetches the server-evaluated window of a branch. A rejected session
// wraps ErrUnauthorized and auth.ErrSessionRejected, a missing branch wraps
// schedule.ErrUnknownBranch; any other transport or server failure is
// schedule.ErrUnavailable.
func (c *Client) Window(ctx context.Context, branchID int64) (schedule.Decision, error) {
	if err := ctx.Err(); err != nil {
		return schedule.Decision{}, fmt.Errorf("%w: %v", schedule.ErrUnavailable, err)
	}
	agent := fiber.Get(fmt.Sprintf("%s/branches/%d/window", c.baseURL, branchID)).
		Timeout(c.timeout)
	if c.token != "" {
		agent.Set(fiber.HeaderAuthorization, "Bearer "+c.token)
	}

	var out envelope[dto.WindowResponse]
	code, _, errs := agent.Struct(&out)
	if len(errs) > 0 {
		return schedule.Decision{}, fmt.Errorf("%w: %v", schedule.ErrUnavailable, errors.Join(errs...))
	}
	switch code {
	case fiber.StatusOK:
		return out.Data.Decision(), nil
	case fiber.StatusUnauthorized, fiber.StatusForbidden:
		return schedule.Decision{}, fmt.Errorf("%w: %w: status %d%s", ErrUnauthorized, auth.ErrSessionRejected, code, describe(out.Error))
	case fiber.StatusNotFound:
		return schedule.Decision{}, fmt.Errorf("%w: branch %d%s", schedule.ErrUnknownBranch, branchID, describe(out.Error))
	default:
		return schedule.Decision{}, fmt.Errorf("%w: status %d%s", schedule.ErrUnavailable, code, describe(out.Error))
	}
}

func describe(apiErr *apiError) string {
	if apiErr == nil {
		return ""
	}
	return fmt.Sprintf(" (%s: %s)", apiErr.Code, apiErr.Message)
}
