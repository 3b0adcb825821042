package dto

import (
	"time"

	"github.com/spec-kit/ebingo-service/internal/domain"
	"github.com/spec-kit/ebingo-service/internal/service"
)

// LookupRequest carries a card number, ID number, or a two or three part name.
type LookupRequest struct {
	Query string `json:"query"`
}

// BanRequest payload.
type BanRequest struct {
	Reason string `json:"reason"`
}

// MemberResponse is the door view of a member.
type MemberResponse struct {
	ID             int64  `json:"id"`
	CardNo         string `json:"card_no"`
	IDNumber       string `json:"id_number"`
	FirstName      string `json:"first_name"`
	MiddleName     string `json:"middle_name"`
	LastName       string `json:"last_name"`
	FullName       string `json:"full_name"`
	BranchID       int64  `json:"branch_id"`
	Banned         bool   `json:"banned"`
	BanReason      string `json:"ban_reason,omitempty"`
	RiskAssessment string `json:"risk_assessment"`
}

// RegistrationResponse is one branch the card holder is registered at.
type RegistrationResponse struct {
	BranchID   int64     `json:"branch_id"`
	BranchName string    `json:"branch_name"`
	CreatedAt  time.Time `json:"created_at"`
}

// LookupResponse is returned after a successful door lookup.
type LookupResponse struct {
	Member     MemberResponse         `json:"member"`
	VisitID    int64                  `json:"visit_id"`
	VisitedAt  time.Time              `json:"visited_at"`
	SameBranch bool                   `json:"same_branch"`
	Branches   []RegistrationResponse `json:"branches"`
}

// NewMemberResponse maps a domain member.
func NewMemberResponse(m *domain.Member) MemberResponse {
	return MemberResponse{
		ID:             m.ID,
		CardNo:         m.CardNo,
		IDNumber:       m.IDNumber,
		FirstName:      m.FirstName,
		MiddleName:     m.MiddleName,
		LastName:       m.LastName,
		FullName:       m.FullName(),
		BranchID:       m.BranchID,
		Banned:         m.Banned,
		BanReason:      m.BanReason,
		RiskAssessment: m.RiskAssessment,
	}
}

// NewLookupResponse maps a lookup result.
func NewLookupResponse(r *service.LookupResult) LookupResponse {
	branches := make([]RegistrationResponse, 0, len(r.Registrations))
	for _, reg := range r.Registrations {
		branches = append(branches, RegistrationResponse{BranchID: reg.BranchID, BranchName: reg.BranchName, CreatedAt: reg.CreatedAt})
	}
	return LookupResponse{
		Member:     NewMemberResponse(r.Member),
		VisitID:    r.Visit.ID,
		VisitedAt:  r.Visit.VisitedAt,
		SameBranch: r.SameBranch,
		Branches:   branches,
	}
}
