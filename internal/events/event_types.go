package events

import (
	"time"

	"github.com/spec-kit/ebingo-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventBranchCreated         EventType = "branch_created"
	EventBranchUpdated         EventType = "branch_updated"
	EventBranchScheduleChanged EventType = "branch_schedule_changed"
	EventBranchDeleted         EventType = "branch_deleted"
	EventMemberBanned          EventType = "member_banned"
	EventMemberUnbanned        EventType = "member_unbanned"
	EventVisitRecorded         EventType = "visit_recorded"
	EventBranchOpened          EventType = "branch_opened"
	EventBranchClosed          EventType = "branch_closed"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	UserID int64       `json:"user_id"`
	Role   domain.Role `json:"role"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	BranchID  int64       `json:"branch_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// BranchSchedulePayload carries the new time-of-day window; empty strings mean unset.
type BranchSchedulePayload struct {
	OpeningTime string `json:"opening_time,omitempty"`
	ClosingTime string `json:"closing_time,omitempty"`
}

// BranchPayload payload.
type BranchPayload struct {
	Name string `json:"name"`
}

// MemberBanPayload payload.
type MemberBanPayload struct {
	MemberID int64  `json:"member_id"`
	Reason   string `json:"reason,omitempty"`
}

// VisitRecordedPayload payload.
type VisitRecordedPayload struct {
	VisitID    int64 `json:"visit_id"`
	MemberID   int64 `json:"member_id"`
	Banned     bool  `json:"banned"`
	SameBranch bool  `json:"same_branch"`
}

// BranchWindowPayload describes an observed open/closed transition.
type BranchWindowPayload struct {
	NextOpening *time.Time `json:"next_opening,omitempty"`
	ClosesAt    *time.Time `json:"closes_at,omitempty"`
	Unset       bool       `json:"unset"`
}
