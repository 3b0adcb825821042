package service

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/ebingo-service/internal/clock"
	"github.com/spec-kit/ebingo-service/internal/domain"
	"github.com/spec-kit/ebingo-service/internal/events"
	"github.com/spec-kit/ebingo-service/internal/repository"
	apperrors "github.com/spec-kit/ebingo-service/pkg/util"
)

var cardPattern = regexp.MustCompile(`^[0-9\-]+$`)

// MemberService handles door lookups, visit logging, and bans.
type MemberService struct {
	members    repository.MemberRepository
	visits     repository.VisitRepository
	clock      clock.Clock
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// MemberDependencies bundles member service collaborators.
type MemberDependencies struct {
	MemberRepo repository.MemberRepository
	VisitRepo  repository.VisitRepository
	Clock      clock.Clock
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// LookupResult is the member found at the door and the visit logged for it.
type LookupResult struct {
	Member        *domain.Member
	Visit         *domain.Visit
	Registrations []domain.MemberRegistration
	SameBranch    bool
}

// NewMemberService constructs the service.
func NewMemberService(deps MemberDependencies) *MemberService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemberService{
		members:    deps.MemberRepo,
		visits:     deps.VisitRepo,
		clock:      deps.Clock,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// Lookup finds a member by card number, ID number, or a two or three part name,
// then records a visit. Numeric input tries the card number before the ID number.
func (s *MemberService) Lookup(ctx context.Context, actor events.Actor, branchID int64, query string) (*LookupResult, error) {
	input := strings.TrimSpace(query)
	if input == "" {
		return nil, apperrors.NewValidationError("Card number, ID number, or name is required.", nil)
	}

	member, err := s.find(ctx, input)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("member", map[string]any{"query": input})
		}
		return nil, err
	}

	registrations, err := s.members.ListRegistrations(ctx, member.CardNo)
	if err != nil {
		return nil, err
	}

	visit := &domain.Visit{
		MemberID:       member.ID,
		CardNo:         member.CardNo,
		FirstName:      member.FirstName,
		MiddleName:     member.MiddleName,
		LastName:       member.LastName,
		BranchID:       member.BranchID,
		RiskAssessment: member.RiskAssessment,
		Banned:         member.Banned,
		VisitedAt:      s.clock.Now(),
	}
	if err := s.visits.Create(ctx, visit); err != nil {
		return nil, err
	}

	result := &LookupResult{
		Member:        member,
		Visit:         visit,
		Registrations: registrations,
		SameBranch:    member.BranchID == branchID,
	}
	s.publish(ctx, events.EventVisitRecorded, branchID, actor, events.VisitRecordedPayload{
		VisitID:    visit.ID,
		MemberID:   member.ID,
		Banned:     member.Banned,
		SameBranch: result.SameBranch,
	})
	return result, nil
}

func (s *MemberService) find(ctx context.Context, input string) (*domain.Member, error) {
	if cardPattern.MatchString(input) {
		member, err := s.members.FindByCardNo(ctx, input)
		if err == nil || !errors.Is(err, pgx.ErrNoRows) {
			return member, err
		}
		return s.members.FindByIDNumber(ctx, input)
	}

	parts := strings.Fields(input)
	if len(parts) != 2 && len(parts) != 3 {
		return nil, apperrors.NewValidationError("Invalid name format.", nil)
	}
	return s.members.FindByName(ctx, parts)
}

// Ban marks a member of branchID as banned. A reason is mandatory.
func (s *MemberService) Ban(ctx context.Context, actor events.Actor, branchID, memberID int64, reason string) error {
	reason = cleanText(reason)
	if reason == "" {
		return apperrors.NewValidationError("State a reason of banning this member", nil)
	}
	if err := s.members.Ban(ctx, memberID, branchID, reason); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("member", map[string]any{"id": memberID, "reason": "not found or already banned"})
		}
		return err
	}
	s.publish(ctx, events.EventMemberBanned, branchID, actor, events.MemberBanPayload{MemberID: memberID, Reason: reason})
	return nil
}

// Unban clears a member's ban within branchID.
func (s *MemberService) Unban(ctx context.Context, actor events.Actor, branchID, memberID int64) error {
	if err := s.members.Unban(ctx, memberID, branchID); err != nil {
		return notFound(err, "member", memberID)
	}
	s.publish(ctx, events.EventMemberUnbanned, branchID, actor, events.MemberBanPayload{MemberID: memberID})
	return nil
}

// Banned lists the banned members of a branch.
func (s *MemberService) Banned(ctx context.Context, branchID int64) ([]domain.Member, error) {
	return s.members.ListBanned(ctx, branchID)
}

func (s *MemberService) publish(ctx context.Context, eventType events.EventType, branchID int64, actor events.Actor, payload any) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		BranchID:  branchID,
		Actor:     actor,
		Timestamp: s.clock.Now(),
		Payload:   payload,
	}); err != nil {
		s.logger.Warn("event handler failed", zap.String("event_type", string(eventType)), zap.Error(err))
	}
}
