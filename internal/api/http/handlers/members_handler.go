package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ebingo-service/internal/api/dto"
	"github.com/spec-kit/ebingo-service/internal/service"
)

// MembersHandler exposes the door lookup and ban list, scoped to the caller's branch.
type MembersHandler struct {
	members *service.MemberService
}

// NewMembersHandler constructs handler.
func NewMembersHandler(members *service.MemberService) *MembersHandler {
	return &MembersHandler{members: members}
}

// Lookup handles POST /members/lookup.
func (h *MembersHandler) Lookup(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	branchID, err := branchOf(principal)
	if err != nil {
		return err
	}
	var req dto.LookupRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	result, err := h.members.Lookup(c.UserContext(), actorOf(principal), branchID, req.Query)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "Member found and visit recorded",
		"data":    dto.NewLookupResponse(result),
	})
}

// Ban handles POST /members/:id/ban.
func (h *MembersHandler) Ban(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	branchID, err := branchOf(principal)
	if err != nil {
		return err
	}
	id, err := idParam(c)
	if err != nil {
		return err
	}
	var req dto.BanRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	if err := h.members.Ban(c.UserContext(), actorOf(principal), branchID, id, req.Reason); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"message": "Member banned successfully"}})
}

// Unban handles POST /members/:id/unban.
func (h *MembersHandler) Unban(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	branchID, err := branchOf(principal)
	if err != nil {
		return err
	}
	id, err := idParam(c)
	if err != nil {
		return err
	}
	if err := h.members.Unban(c.UserContext(), actorOf(principal), branchID, id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"message": "Member unbanned successfully"}})
}

// Banned handles GET /members/banned.
func (h *MembersHandler) Banned(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	branchID, err := branchOf(principal)
	if err != nil {
		return err
	}
	members, err := h.members.Banned(c.UserContext(), branchID)
	if err != nil {
		return err
	}
	resp := make([]dto.MemberResponse, 0, len(members))
	for i := range members {
		resp = append(resp, dto.NewMemberResponse(&members[i]))
	}
	return c.JSON(fiber.Map{"data": resp})
}
