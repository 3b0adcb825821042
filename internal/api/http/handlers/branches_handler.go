package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ebingo-service/internal/api/dto"
	"github.com/spec-kit/ebingo-service/internal/schedule"
	"github.com/spec-kit/ebingo-service/internal/service"
	apperrors "github.com/spec-kit/ebingo-service/pkg/util"
)

// BranchesHandler exposes branch management and the window endpoint.
type BranchesHandler struct {
	branches  *service.BranchService
	schedules *service.ScheduleService
}

// NewBranchesHandler constructs handler.
func NewBranchesHandler(branches *service.BranchService, schedules *service.ScheduleService) *BranchesHandler {
	return &BranchesHandler{branches: branches, schedules: schedules}
}

// List handles GET /branches.
func (h *BranchesHandler) List(c *fiber.Ctx) error {
	branches, err := h.branches.List(c.UserContext())
	if err != nil {
		return err
	}
	resp := make([]dto.BranchResponse, 0, len(branches))
	for i := range branches {
		resp = append(resp, dto.NewBranchResponse(&branches[i], h.schedules.Location()))
	}
	return c.JSON(fiber.Map{"data": resp})
}

// Get handles GET /branches/:id.
func (h *BranchesHandler) Get(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	if err := h.ownBranchOnly(c, id); err != nil {
		return err
	}
	branch, err := h.branches.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewBranchResponse(branch, h.schedules.Location())})
}

// Window handles GET /branches/:id/window. It needs no session.
func (h *BranchesHandler) Window(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	report, err := h.schedules.Window(c.UserContext(), id)
	if err != nil {
		if de := apperrors.ToDomainError(err); de.Code == "NOT_FOUND" {
			return de
		}
		return apperrors.NewScheduleUnavailable(err)
	}
	return c.JSON(fiber.Map{"data": dto.NewWindowResponse(report)})
}

// Create handles POST /branches.
func (h *BranchesHandler) Create(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	var req dto.BranchRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	opening, closing, err := h.parseWindow(req.OpeningTime, req.ClosingTime)
	if err != nil {
		return err
	}

	branch, err := h.branches.Create(c.UserContext(), actorOf(principal), service.BranchInput{
		Name:    req.Name,
		Address: req.Address,
		Email:   req.Email,
		Opening: opening,
		Closing: closing,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewBranchResponse(branch, h.schedules.Location())})
}

// Update handles PUT /branches/:id.
func (h *BranchesHandler) Update(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	id, err := idParam(c)
	if err != nil {
		return err
	}
	var req dto.BranchUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	branch, err := h.branches.Update(c.UserContext(), actorOf(principal), id, service.BranchUpdateInput{
		Name:    req.Name,
		Address: req.Address,
		Email:   req.Email,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewBranchResponse(branch, h.schedules.Location())})
}

// UpdateSchedule handles PUT /branches/:id/schedule.
func (h *BranchesHandler) UpdateSchedule(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	id, err := idParam(c)
	if err != nil {
		return err
	}
	var req dto.ScheduleRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	opening, closing, err := h.parseWindow(req.OpeningTime, req.ClosingTime)
	if err != nil {
		return err
	}

	branch, err := h.branches.UpdateSchedule(c.UserContext(), actorOf(principal), id, opening, closing)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewBranchResponse(branch, h.schedules.Location())})
}

// Delete handles DELETE /branches/:id.
func (h *BranchesHandler) Delete(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	id, err := idParam(c)
	if err != nil {
		return err
	}
	if err := h.branches.Delete(c.UserContext(), actorOf(principal), id); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func (h *BranchesHandler) parseWindow(openingRaw, closingRaw string) (*schedule.TimeOfDay, *schedule.TimeOfDay, error) {
	opening, err := schedule.ParseInput(openingRaw, h.schedules.Location())
	if err != nil {
		return nil, nil, apperrors.NewValidationError("invalid opening_time", map[string]any{"opening_time": openingRaw})
	}
	closing, err := schedule.ParseInput(closingRaw, h.schedules.Location())
	if err != nil {
		return nil, nil, apperrors.NewValidationError("invalid closing_time", map[string]any{"closing_time": closingRaw})
	}
	return opening, closing, nil
}

// ownBranchOnly keeps cashiers and guards to their claim branch.
func (h *BranchesHandler) ownBranchOnly(c *fiber.Ctx, id int64) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	if principal.Role.Admin() {
		return nil
	}
	if principal.Role.BranchScoped() && principal.BranchID != nil && *principal.BranchID == id {
		return nil
	}
	return apperrors.NewForbidden("Access Denied: branch mismatch")
}
