package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/ebingo-service/internal/domain"
	"github.com/spec-kit/ebingo-service/internal/events"
	"github.com/spec-kit/ebingo-service/internal/repository"
	"github.com/spec-kit/ebingo-service/internal/schedule"
	apperrors "github.com/spec-kit/ebingo-service/pkg/util"
)

// BranchService coordinates branch administration and schedule changes.
type BranchService struct {
	branches   repository.BranchRepository
	users      repository.UserRepository
	sessions   repository.SessionRepository
	schedules  *ScheduleService
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// BranchDependencies bundles repositories for branch service.
type BranchDependencies struct {
	BranchRepo  repository.BranchRepository
	UserRepo    repository.UserRepository
	SessionRepo repository.SessionRepository
	Schedules   *ScheduleService
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// BranchInput describes branch creation payload.
type BranchInput struct {
	Name    string
	Address string
	Email   string
	Opening *schedule.TimeOfDay
	Closing *schedule.TimeOfDay
}

// BranchUpdateInput carries optional field changes; schedule is updated separately.
type BranchUpdateInput struct {
	Name    *string
	Address *string
	Email   *string
}

// NewBranchService constructs the service.
func NewBranchService(deps BranchDependencies) *BranchService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BranchService{
		branches:   deps.BranchRepo,
		users:      deps.UserRepo,
		sessions:   deps.SessionRepo,
		schedules:  deps.Schedules,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// Create adds a branch, optionally with its daily window.
func (s *BranchService) Create(ctx context.Context, actor events.Actor, input BranchInput) (*domain.Branch, error) {
	branch := &domain.Branch{
		Name:    cleanText(input.Name),
		Address: cleanText(input.Address),
		Email:   cleanText(input.Email),
	}
	if err := validateBranch(branch); err != nil {
		return nil, err
	}
	opening, closing, err := s.scheduleInstants(input.Opening, input.Closing)
	if err != nil {
		return nil, err
	}
	branch.OpeningTime, branch.ClosingTime = opening, closing

	if err := s.branches.Create(ctx, branch); err != nil {
		return nil, err
	}
	s.publish(ctx, events.EventBranchCreated, branch.ID, actor, events.BranchPayload{Name: branch.Name})
	return branch, nil
}

// Get returns a single branch.
func (s *BranchService) Get(ctx context.Context, id int64) (*domain.Branch, error) {
	branch, err := s.branches.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "branch", id)
	}
	return branch, nil
}

// List returns all branches, newest first.
func (s *BranchService) List(ctx context.Context) ([]domain.Branch, error) {
	return s.branches.List(ctx)
}

// Update changes descriptive fields and leaves the schedule untouched.
func (s *BranchService) Update(ctx context.Context, actor events.Actor, id int64, input BranchUpdateInput) (*domain.Branch, error) {
	branch, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.Name != nil {
		branch.Name = cleanText(*input.Name)
	}
	if input.Address != nil {
		branch.Address = cleanText(*input.Address)
	}
	if input.Email != nil {
		branch.Email = cleanText(*input.Email)
	}
	if err := validateBranch(branch); err != nil {
		return nil, err
	}
	if err := s.branches.Update(ctx, branch); err != nil {
		return nil, notFound(err, "branch", id)
	}
	s.publish(ctx, events.EventBranchUpdated, branch.ID, actor, events.BranchPayload{Name: branch.Name})
	return branch, nil
}

// UpdateSchedule sets or clears the daily window. Both times or neither.
func (s *BranchService) UpdateSchedule(ctx context.Context, actor events.Actor, id int64, opening, closing *schedule.TimeOfDay) (*domain.Branch, error) {
	openingAt, closingAt, err := s.scheduleInstants(opening, closing)
	if err != nil {
		return nil, err
	}
	if err := s.branches.UpdateSchedule(ctx, id, openingAt, closingAt); err != nil {
		return nil, notFound(err, "branch", id)
	}
	s.schedules.Invalidate(ctx, id)

	payload := events.BranchSchedulePayload{}
	if opening != nil {
		payload.OpeningTime = opening.String()
		payload.ClosingTime = closing.String()
	}
	s.publish(ctx, events.EventBranchScheduleChanged, id, actor, payload)
	return s.Get(ctx, id)
}

// Delete removes a branch that no staff account or active session references.
func (s *BranchService) Delete(ctx context.Context, actor events.Actor, id int64) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	active, err := s.sessions.CountActive(ctx, id, s.schedules.Now())
	if err != nil {
		return apperrors.NewInternalError(fmt.Errorf("count active sessions: %w", err))
	}
	if active > 0 {
		return apperrors.NewConflict("branch has active sessions", map[string]any{"branch_id": id, "active_sessions": active})
	}

	staff, err := s.users.CountByBranch(ctx, id)
	if err != nil {
		return err
	}
	if staff > 0 {
		return apperrors.NewConflict("branch still has staff accounts", map[string]any{"branch_id": id, "users": staff})
	}

	if err := s.branches.Delete(ctx, id); err != nil {
		return notFound(err, "branch", id)
	}
	s.schedules.Invalidate(ctx, id)
	s.publish(ctx, events.EventBranchDeleted, id, actor, nil)
	return nil
}

// scheduleInstants anchors times of day to today's venue date for storage.
func (s *BranchService) scheduleInstants(opening, closing *schedule.TimeOfDay) (*time.Time, *time.Time, error) {
	if opening == nil && closing == nil {
		return nil, nil, nil
	}
	if opening == nil || closing == nil {
		return nil, nil, apperrors.NewValidationError("opening_time and closing_time must be set together", nil)
	}
	today := s.schedules.Now()
	openingAt := opening.On(today)
	closingAt := closing.On(today)
	return &openingAt, &closingAt, nil
}

func (s *BranchService) publish(ctx context.Context, eventType events.EventType, branchID int64, actor events.Actor, payload any) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		BranchID:  branchID,
		Actor:     actor,
		Timestamp: s.schedules.Now(),
		Payload:   payload,
	}); err != nil {
		s.logger.Warn("event handler failed",
			zap.String("event_type", string(eventType)),
			zap.Int64("branch_id", branchID),
			zap.Error(err))
	}
}

func validateBranch(branch *domain.Branch) error {
	if branch.Name == "" {
		return apperrors.NewValidationError("name required", nil)
	}
	if branch.Email != "" {
		if _, err := mail.ParseAddress(branch.Email); err != nil {
			return apperrors.NewValidationError("invalid email", map[string]any{"email": branch.Email})
		}
	}
	return nil
}

func notFound(err error, resource string, id int64) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound(resource, map[string]any{"id": id})
	}
	return err
}
