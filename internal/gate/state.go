// Package gate decides which terminal view a session may see and keeps that
// decision current while the view stays mounted.
package gate

import (
	"context"

	"github.com/spec-kit/ebingo-service/internal/auth"
	"github.com/spec-kit/ebingo-service/internal/schedule"
)

// State is the access decision for one navigation.
type State string

const (
	StateUnknown         State = "UNKNOWN"
	StateAllowed         State = "ALLOWED"
	StateDeniedNoSession State = "DENIED_NO_SESSION"
	StateDeniedWrongRole State = "DENIED_WRONG_ROLE"
	StateDeniedClosed    State = "DENIED_CLOSED"
)

// Outcome is a gate decision plus where the terminal should go next.
type Outcome struct {
	State State
	// Path is the route that was evaluated.
	Path string
	// Redirect is empty when State is ALLOWED.
	Redirect string
	// BranchID travels to the closed route as navigation state.
	BranchID *int64
	Claims   *auth.Claims
	Decision *schedule.Decision
	// Unavailable marks a closed decision forced by repeated schedule fetch failures.
	Unavailable bool
	Err         error
}

// Allowed reports whether the guarded content may render.
func (o Outcome) Allowed() bool {
	return o.State == StateAllowed
}

// ScheduleSource returns the server-evaluated window of a branch.
type ScheduleSource interface {
	Window(ctx context.Context, branchID int64) (schedule.Decision, error)
}
