package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/spec-kit/ebingo-service/internal/clock"
	"github.com/spec-kit/ebingo-service/internal/domain"
	"github.com/spec-kit/ebingo-service/internal/repository/repotest"
	"github.com/spec-kit/ebingo-service/internal/schedule"
	apperrors "github.com/spec-kit/ebingo-service/pkg/util"
)

var venue = time.FixedZone("UTC+8", 8*60*60)

func venueAt(day, hour, minute int) time.Time {
	return time.Date(2024, 5, day, hour, minute, 0, 0, venue)
}

type scheduleServiceSuite struct {
	suite.Suite

	clock    *clock.Manual
	branches *repotest.Branches
	cache    *repotest.ScheduleCache
	svc      *ScheduleService
}

func TestScheduleServiceSuite(t *testing.T) {
	suite.Run(t, new(scheduleServiceSuite))
}

func (s *scheduleServiceSuite) SetupTest() {
	// stored on an unrelated date and in UTC; only the venue time of day matters
	opening := time.Date(2023, 1, 2, 1, 0, 0, 0, time.UTC)  // 09:00 venue
	closing := time.Date(2023, 1, 2, 10, 0, 0, 0, time.UTC) // 18:00 venue
	s.branches = repotest.NewBranches(
		domain.Branch{ID: 1, Name: "Main", OpeningTime: &opening, ClosingTime: &closing},
		domain.Branch{ID: 2, Name: "Unscheduled"},
	)
	s.cache = repotest.NewScheduleCache()
	s.clock = clock.NewManual(venueAt(10, 12, 0))
	s.svc = NewScheduleService(ScheduleDependencies{
		BranchRepo: s.branches,
		Cache:      s.cache,
		Clock:      s.clock,
		Location:   venue,
		CacheTTL:   time.Minute,
	})
}

func (s *scheduleServiceSuite) TestWindowUsesVenueTimeOfDay() {
	report, err := s.svc.Window(context.Background(), 1)
	s.Require().NoError(err)
	s.True(report.Decision.IsOpen)
	s.Equal("09:00:00", report.Opening.String())
	s.Equal("18:00:00", report.Closing.String())

	s.clock.Set(venueAt(10, 19, 0))
	decision, err := s.svc.BranchWindow(context.Background(), 1)
	s.Require().NoError(err)
	s.False(decision.IsOpen)
	s.Equal(venueAt(11, 9, 0), *decision.NextOpening)
	s.EqualValues(14*time.Hour/time.Millisecond, decision.MillisUntilOpen)
}

func (s *scheduleServiceSuite) TestUnsetSchedule() {
	decision, err := s.svc.BranchWindow(context.Background(), 2)
	s.Require().NoError(err)
	s.True(decision.Unset)
	s.False(decision.IsOpen)
	s.Nil(decision.NextOpening)
}

func (s *scheduleServiceSuite) TestReadThroughCache() {
	_, err := s.svc.BranchWindow(context.Background(), 1)
	s.Require().NoError(err)
	_, err = s.svc.BranchWindow(context.Background(), 1)
	s.Require().NoError(err)
	s.Equal(1, s.branches.Reads)

	s.svc.Invalidate(context.Background(), 1)
	_, err = s.svc.BranchWindow(context.Background(), 1)
	s.Require().NoError(err)
	s.Equal(2, s.branches.Reads)
	s.Equal([]int64{1}, s.cache.Invalidated)
}

func (s *scheduleServiceSuite) TestMissingBranchIsNotFound() {
	_, err := s.svc.BranchWindow(context.Background(), 99)
	s.Require().Error(err)
	s.Equal("NOT_FOUND", apperrors.ToDomainError(err).Code)
}

func (s *scheduleServiceSuite) TestStoreFailureIsUnavailable() {
	s.branches.Err = errors.New("connection refused")
	_, err := s.svc.BranchWindow(context.Background(), 1)
	s.ErrorIs(err, schedule.ErrUnavailable)
}

func (s *scheduleServiceSuite) TestTimesOfDayRequiresBoth() {
	at := venueAt(1, 9, 0)
	opening, closing := s.svc.TimesOfDay(&at, nil)
	s.Nil(opening)
	s.Nil(closing)
}
