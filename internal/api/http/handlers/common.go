package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ebingo-service/internal/auth"
	"github.com/spec-kit/ebingo-service/internal/events"
	apperrors "github.com/spec-kit/ebingo-service/pkg/util"
)

func principalOf(c *fiber.Ctx) (*auth.Principal, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return principal, nil
}

func actorOf(principal *auth.Principal) events.Actor {
	return events.Actor{UserID: principal.UserID, Role: principal.Role}
}

func idParam(c *fiber.Ctx) (int64, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, fiber.NewError(http.StatusBadRequest, "invalid id")
	}
	return int64(id), nil
}

// branchOf is the claim branch of a cashier or guard.
func branchOf(principal *auth.Principal) (int64, error) {
	if principal.BranchID == nil {
		return 0, apperrors.NewForbidden("branch assignment required")
	}
	return *principal.BranchID, nil
}
