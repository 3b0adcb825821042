package handlers

import (
	"github.com/gofiber/fiber/v2"
)

// Landing answers the per-role landing routes once the role and hours checks have passed.
func Landing(c *fiber.Ctx) error {
	principal, err := principalOf(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"message":   "Access granted",
			"role":      principal.Role,
			"branch_id": principal.BranchID,
		},
	})
}
