package domain

import "time"

// Visit is a logged entry of a member at a branch.
type Visit struct {
	ID             int64
	MemberID       int64
	CardNo         string
	FirstName      string
	MiddleName     string
	LastName       string
	BranchID       int64
	RiskAssessment string
	Banned         bool
	VisitedAt      time.Time
}
