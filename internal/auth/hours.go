package auth

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/ebingo-service/internal/observability"
	"github.com/spec-kit/ebingo-service/internal/schedule"
	apperrors "github.com/spec-kit/ebingo-service/pkg/util"
)

// WindowSource evaluates a branch's operating window against the server clock.
type WindowSource interface {
	BranchWindow(ctx context.Context, branchID int64) (schedule.Decision, error)
}

// HoursGuard rejects cashier and guard requests outside their branch's hours.
// It is the server-side check behind every state-changing terminal action.
type HoursGuard struct {
	windows WindowSource
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewHoursGuard constructs the guard.
func NewHoursGuard(windows WindowSource, logger *zap.Logger, metrics *observability.Metrics) *HoursGuard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HoursGuard{windows: windows, logger: logger, metrics: metrics}
}

// Handle enforces the operating window for branch-scoped roles.
func (g *HoursGuard) Handle(c *fiber.Ctx) error {
	principal, ok := PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if !principal.Role.BranchScoped() {
		return c.Next()
	}
	if principal.BranchID == nil {
		return apperrors.NewForbidden("branch assignment required")
	}

	decision, err := g.windows.BranchWindow(c.UserContext(), *principal.BranchID)
	if err != nil {
		if de := apperrors.ToDomainError(err); de.Code == "NOT_FOUND" {
			return de
		}
		g.logger.Warn("branch schedule unavailable; failing closed",
			zap.Int64("branch_id", *principal.BranchID), zap.Error(err))
		g.metrics.RecordDenial("SCHEDULE_UNAVAILABLE", *principal.BranchID)
		return apperrors.NewScheduleUnavailable(err)
	}
	if !decision.IsOpen {
		g.metrics.RecordDenial("BRANCH_CLOSED", *principal.BranchID)
		return apperrors.NewBranchClosed(ClosedDetails(*principal.BranchID, decision))
	}
	return c.Next()
}

// ClosedDetails is the error payload describing when a branch opens next.
func ClosedDetails(branchID int64, d schedule.Decision) map[string]any {
	details := map[string]any{
		"branch_id":     branchID,
		"is_closed":     true,
		"unset":         d.Unset,
		"ms_until_open": d.MillisUntilOpen,
	}
	if d.NextOpening != nil {
		details["next_opening"] = d.NextOpening.Format(time.RFC3339)
	}
	return details
}
