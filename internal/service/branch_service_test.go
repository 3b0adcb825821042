package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/ebingo-service/internal/clock"
	"github.com/spec-kit/ebingo-service/internal/domain"
	"github.com/spec-kit/ebingo-service/internal/events"
	"github.com/spec-kit/ebingo-service/internal/repository/repotest"
	"github.com/spec-kit/ebingo-service/internal/schedule"
	apperrors "github.com/spec-kit/ebingo-service/pkg/util"
)

type branchServiceSuite struct {
	suite.Suite

	branches  *repotest.Branches
	users     *repotest.Users
	sessions  *repotest.Sessions
	cache     *repotest.ScheduleCache
	published []events.Event
	schedules *ScheduleService
	svc       *BranchService
	actor     events.Actor
}

func TestBranchServiceSuite(t *testing.T) {
	suite.Run(t, new(branchServiceSuite))
}

func (s *branchServiceSuite) SetupTest() {
	s.branches = repotest.NewBranches()
	s.users = repotest.NewUsers()
	s.sessions = repotest.NewSessions()
	s.cache = repotest.NewScheduleCache()
	s.published = nil

	dispatcher := events.NewInMemoryDispatcher()
	for _, eventType := range []events.EventType{events.EventBranchCreated, events.EventBranchScheduleChanged, events.EventBranchDeleted} {
		dispatcher.Subscribe(eventType, func(_ context.Context, e events.Event) error {
			s.published = append(s.published, e)
			return nil
		})
	}

	s.schedules = NewScheduleService(ScheduleDependencies{
		BranchRepo: s.branches,
		Cache:      s.cache,
		Clock:      clock.NewManual(venueAt(10, 12, 0)),
		Location:   venue,
	})
	s.svc = NewBranchService(BranchDependencies{
		BranchRepo:  s.branches,
		UserRepo:    s.users,
		SessionRepo: s.sessions,
		Schedules:   s.schedules,
		Dispatcher:  dispatcher,
	})
	s.actor = events.Actor{UserID: 1, Role: domain.RoleKaizen}
}

func (s *branchServiceSuite) create(opening, closing *schedule.TimeOfDay) *domain.Branch {
	branch, err := s.svc.Create(context.Background(), s.actor, BranchInput{
		Name:    "Pasay <b>Main</b>",
		Address: "Roxas Blvd",
		Email:   "pasay@example.com",
		Opening: opening,
		Closing: closing,
	})
	s.Require().NoError(err)
	return branch
}

func (s *branchServiceSuite) TestCreateSanitizesAndStoresWindow() {
	branch := s.create(&schedule.TimeOfDay{Hour: 22}, &schedule.TimeOfDay{Hour: 6})

	s.Equal("Pasay Main", branch.Name)
	s.Require().True(branch.HasSchedule())
	s.Equal("22:00:00", schedule.TimeOfDayFrom(*branch.OpeningTime, venue).String())
	s.Equal("06:00:00", schedule.TimeOfDayFrom(*branch.ClosingTime, venue).String())
	s.Require().Len(s.published, 1)
	s.Equal(events.EventBranchCreated, s.published[0].Type)
}

func (s *branchServiceSuite) TestCreateValidation() {
	testCases := []struct {
		name  string
		input BranchInput
	}{
		{name: "missing name", input: BranchInput{Email: "a@example.com"}},
		{name: "bad email", input: BranchInput{Name: "North", Email: "not-an-email"}},
		{name: "half window", input: BranchInput{Name: "North", Opening: &schedule.TimeOfDay{Hour: 9}}},
	}
	for _, tc := range testCases {
		s.Run(tc.name, func() {
			_, err := s.svc.Create(context.Background(), s.actor, tc.input)
			s.Require().Error(err)
			s.Equal("VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
		})
	}
}

func (s *branchServiceSuite) TestUpdateScheduleInvalidatesCache() {
	branch := s.create(nil, nil)
	decision, err := s.schedules.BranchWindow(context.Background(), branch.ID)
	s.Require().NoError(err)
	s.True(decision.Unset)

	_, err = s.svc.UpdateSchedule(context.Background(), s.actor, branch.ID, &schedule.TimeOfDay{Hour: 9}, &schedule.TimeOfDay{Hour: 18})
	s.Require().NoError(err)
	s.Contains(s.cache.Invalidated, branch.ID)

	decision, err = s.schedules.BranchWindow(context.Background(), branch.ID)
	s.Require().NoError(err)
	s.True(decision.IsOpen)

	last := s.published[len(s.published)-1]
	s.Equal(events.EventBranchScheduleChanged, last.Type)
	s.Equal(events.BranchSchedulePayload{OpeningTime: "09:00:00", ClosingTime: "18:00:00"}, last.Payload)
}

func (s *branchServiceSuite) TestUpdateScheduleUnknownBranch() {
	_, err := s.svc.UpdateSchedule(context.Background(), s.actor, 404, nil, nil)
	s.Require().Error(err)
	s.Equal("NOT_FOUND", apperrors.ToDomainError(err).Code)
}

func (s *branchServiceSuite) TestDeleteRejectedWhileReferenced() {
	branch := s.create(nil, nil)
	branchID := branch.ID

	s.Require().NoError(s.sessions.Track(context.Background(), domain.Session{
		ID: "jti-1", UserID: 5, Role: domain.RoleGuard, BranchID: &branchID, ExpiresAt: venueAt(11, 12, 0),
	}))
	err := s.svc.Delete(context.Background(), s.actor, branchID)
	s.Require().Error(err)
	s.Equal("CONFLICT", apperrors.ToDomainError(err).Code)

	s.Require().NoError(s.sessions.Release(context.Background(), domain.Session{ID: "jti-1", BranchID: &branchID}))
	s.Require().NoError(s.users.Create(context.Background(), &domain.User{Username: "guard1", Role: domain.RoleGuard, BranchID: &branchID}))
	err = s.svc.Delete(context.Background(), s.actor, branchID)
	s.Require().Error(err)
	s.Equal("CONFLICT", apperrors.ToDomainError(err).Code)
}

func (s *branchServiceSuite) TestDeleteIgnoresExpiredSessions() {
	branch := s.create(nil, nil)
	branchID := branch.ID
	s.Require().NoError(s.sessions.Track(context.Background(), domain.Session{
		ID: "old", BranchID: &branchID, ExpiresAt: venueAt(9, 12, 0),
	}))

	s.Require().NoError(s.svc.Delete(context.Background(), s.actor, branchID))
	_, err := s.svc.Get(context.Background(), branchID)
	s.Equal("NOT_FOUND", apperrors.ToDomainError(err).Code)
	s.Equal(events.EventBranchDeleted, s.published[len(s.published)-1].Type)
}

func (s *branchServiceSuite) TestUpdateKeepsSchedule() {
	branch := s.create(&schedule.TimeOfDay{Hour: 9}, &schedule.TimeOfDay{Hour: 18})
	name := "Renamed"

	updated, err := s.svc.Update(context.Background(), s.actor, branch.ID, BranchUpdateInput{Name: &name})
	s.Require().NoError(err)
	s.Equal("Renamed", updated.Name)
	s.True(updated.HasSchedule())
	s.WithinDuration(*branch.OpeningTime, *updated.OpeningTime, time.Second)
}

func (s *branchServiceSuite) TestFailingHandlerIsLoggedNotReturned() {
	core, logs := observer.New(zap.WarnLevel)
	dispatcher := events.NewInMemoryDispatcher()
	dispatcher.Subscribe(events.EventBranchCreated, func(context.Context, events.Event) error {
		return errors.New("webhook queue closed")
	})
	svc := NewBranchService(BranchDependencies{
		BranchRepo:  s.branches,
		UserRepo:    s.users,
		SessionRepo: s.sessions,
		Schedules:   s.schedules,
		Dispatcher:  dispatcher,
		Logger:      zap.New(core),
	})

	branch, err := svc.Create(context.Background(), s.actor, BranchInput{Name: "Makati", Email: "makati@example.com"})
	s.Require().NoError(err)
	s.NotZero(branch.ID)

	entries := logs.FilterMessage("event handler failed").All()
	s.Require().Len(entries, 1)
	fields := entries[0].ContextMap()
	s.Equal(string(events.EventBranchCreated), fields["event_type"])
	s.EqualValues(branch.ID, fields["branch_id"])
	s.Contains(fields["error"], "webhook queue closed")
}
