package dto

import (
	"time"

	"github.com/spec-kit/ebingo-service/internal/domain"
	"github.com/spec-kit/ebingo-service/internal/schedule"
	"github.com/spec-kit/ebingo-service/internal/service"
)

// BranchRequest payload for creating a branch. Times accept "15:04", "15:04:05" or a full timestamp.
type BranchRequest struct {
	Name        string `json:"name"`
	Address     string `json:"address"`
	Email       string `json:"email"`
	OpeningTime string `json:"opening_time"`
	ClosingTime string `json:"closing_time"`
}

// BranchUpdateRequest payload for descriptive branch edits.
type BranchUpdateRequest struct {
	Name    *string `json:"name"`
	Address *string `json:"address"`
	Email   *string `json:"email"`
}

// ScheduleRequest sets or clears (both empty) a branch's daily window.
type ScheduleRequest struct {
	OpeningTime string `json:"opening_time"`
	ClosingTime string `json:"closing_time"`
}

// BranchResponse exposes a branch with its window as venue-local times of day.
type BranchResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Address     string    `json:"address"`
	Email       string    `json:"email"`
	OpeningTime *string   `json:"opening_time"`
	ClosingTime *string   `json:"closing_time"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewBranchResponse maps a domain branch.
func NewBranchResponse(b *domain.Branch, loc *time.Location) BranchResponse {
	resp := BranchResponse{
		ID:        b.ID,
		Name:      b.Name,
		Address:   b.Address,
		Email:     b.Email,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
	if b.HasSchedule() {
		opening := schedule.TimeOfDayFrom(*b.OpeningTime, loc).String()
		closing := schedule.TimeOfDayFrom(*b.ClosingTime, loc).String()
		resp.OpeningTime, resp.ClosingTime = &opening, &closing
	}
	return resp
}

// WindowResponse is the evaluated window of a branch at the server's current time.
type WindowResponse struct {
	BranchID        int64      `json:"branch_id"`
	Now             time.Time  `json:"now"`
	IsOpen          bool       `json:"is_open"`
	NextOpening     *time.Time `json:"next_opening"`
	ClosesAt        *time.Time `json:"closes_at,omitempty"`
	MillisUntilOpen int64      `json:"ms_until_open"`
	Unset           bool       `json:"unset"`
	OpeningTime     *string    `json:"opening_time"`
	ClosingTime     *string    `json:"closing_time"`
	Countdown       string     `json:"countdown,omitempty"`
}

// NewWindowResponse maps a window report.
func NewWindowResponse(r *service.WindowReport) WindowResponse {
	d := r.Decision
	resp := WindowResponse{
		BranchID:        r.BranchID,
		Now:             r.Now,
		IsOpen:          d.IsOpen,
		NextOpening:     d.NextOpening,
		ClosesAt:        d.ClosesAt,
		MillisUntilOpen: d.MillisUntilOpen,
		Unset:           d.Unset,
	}
	if r.Opening != nil && r.Closing != nil {
		opening, closing := r.Opening.String(), r.Closing.String()
		resp.OpeningTime, resp.ClosingTime = &opening, &closing
	}
	if c := d.Countdown(); c != nil {
		resp.Countdown = c.String()
	}
	return resp
}

// Decision converts the payload back into an evaluator decision.
func (w WindowResponse) Decision() schedule.Decision {
	return schedule.Decision{
		IsOpen:          w.IsOpen,
		NextOpening:     w.NextOpening,
		ClosesAt:        w.ClosesAt,
		MillisUntilOpen: w.MillisUntilOpen,
		Unset:           w.Unset,
	}
}
