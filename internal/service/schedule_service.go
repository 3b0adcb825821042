package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/ebingo-service/internal/clock"
	"github.com/spec-kit/ebingo-service/internal/repository"
	"github.com/spec-kit/ebingo-service/internal/schedule"
	apperrors "github.com/spec-kit/ebingo-service/pkg/util"
)

// ScheduleService answers "is this branch open now" using the server clock.
// It is the only place schedule columns are turned into window decisions.
type ScheduleService struct {
	branches repository.BranchRepository
	cache    repository.ScheduleCache
	clock    clock.Clock
	loc      *time.Location
	cacheTTL time.Duration
	logger   *zap.Logger
}

// ScheduleDependencies bundles schedule service collaborators.
type ScheduleDependencies struct {
	BranchRepo repository.BranchRepository
	Cache      repository.ScheduleCache
	Clock      clock.Clock
	Location   *time.Location
	CacheTTL   time.Duration
	Logger     *zap.Logger
}

// WindowReport is a decision together with the inputs it was computed from.
type WindowReport struct {
	BranchID int64
	Now      time.Time
	Opening  *schedule.TimeOfDay
	Closing  *schedule.TimeOfDay
	Decision schedule.Decision
}

// NewScheduleService constructs the service.
func NewScheduleService(deps ScheduleDependencies) *ScheduleService {
	loc := deps.Location
	if loc == nil {
		loc = clock.LoadLocation("")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{
		branches: deps.BranchRepo,
		cache:    deps.Cache,
		clock:    deps.Clock,
		loc:      loc,
		cacheTTL: deps.CacheTTL,
		logger:   logger,
	}
}

// Location is the venue time zone schedules are interpreted in.
func (s *ScheduleService) Location() *time.Location {
	return s.loc
}

// Now is the authoritative current instant in the venue location.
func (s *ScheduleService) Now() time.Time {
	return s.clock.Now().In(s.loc)
}

// BranchWindow evaluates the branch's window at the current server time.
func (s *ScheduleService) BranchWindow(ctx context.Context, branchID int64) (schedule.Decision, error) {
	report, err := s.Window(ctx, branchID)
	if err != nil {
		return schedule.Decision{}, err
	}
	return report.Decision, nil
}

// Window fetches the schedule and evaluates it.
func (s *ScheduleService) Window(ctx context.Context, branchID int64) (*WindowReport, error) {
	sched, err := s.schedule(ctx, branchID)
	if err != nil {
		return nil, err
	}

	now := s.Now()
	opening, closing := s.TimesOfDay(sched.OpeningTime, sched.ClosingTime)
	return &WindowReport{
		BranchID: branchID,
		Now:      now,
		Opening:  opening,
		Closing:  closing,
		Decision: schedule.Evaluate(now, opening, closing),
	}, nil
}

// TimesOfDay reduces stored timestamps to venue-local times of day; a half-set pair counts as unset.
func (s *ScheduleService) TimesOfDay(openingAt, closingAt *time.Time) (*schedule.TimeOfDay, *schedule.TimeOfDay) {
	if openingAt == nil || closingAt == nil {
		return nil, nil
	}
	opening := schedule.TimeOfDayFrom(*openingAt, s.loc)
	closing := schedule.TimeOfDayFrom(*closingAt, s.loc)
	return &opening, &closing
}

// Invalidate drops the cached schedule after a write.
func (s *ScheduleService) Invalidate(ctx context.Context, branchID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, branchID); err != nil {
		s.logger.Warn("schedule cache invalidate failed", zap.Int64("branch_id", branchID), zap.Error(err))
	}
}

func (s *ScheduleService) schedule(ctx context.Context, branchID int64) (repository.CachedSchedule, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, branchID)
		if err == nil {
			return *cached, nil
		}
		if !errors.Is(err, repository.ErrCacheMiss) {
			s.logger.Warn("schedule cache read failed", zap.Int64("branch_id", branchID), zap.Error(err))
		}
	}

	branch, err := s.branches.GetByID(ctx, branchID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.CachedSchedule{}, apperrors.NewNotFound("branch", map[string]any{"branch_id": branchID})
		}
		return repository.CachedSchedule{}, fmt.Errorf("%w: %v", schedule.ErrUnavailable, err)
	}

	sched := repository.CachedSchedule{OpeningTime: branch.OpeningTime, ClosingTime: branch.ClosingTime}
	if s.cache != nil {
		if err := s.cache.Set(ctx, branchID, sched, s.cacheTTL); err != nil {
			s.logger.Warn("schedule cache write failed", zap.Int64("branch_id", branchID), zap.Error(err))
		}
	}
	return sched, nil
}
