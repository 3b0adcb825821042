package domain

import "time"

// Member is a registered patron. Members are created by the registration flow.
type Member struct {
	ID             int64
	CardNo         string
	IDNumber       string
	FirstName      string
	MiddleName     string
	LastName       string
	BranchID       int64
	Banned         bool
	BanReason      string
	RiskAssessment string
	CreatedAt      time.Time
}

// FullName joins the non-empty name parts.
func (m *Member) FullName() string {
	name := m.FirstName
	if m.MiddleName != "" {
		name += " " + m.MiddleName
	}
	if m.LastName != "" {
		name += " " + m.LastName
	}
	return name
}

// MemberRegistration is one branch a card holder registered at.
type MemberRegistration struct {
	BranchID   int64
	BranchName string
	CreatedAt  time.Time
}
