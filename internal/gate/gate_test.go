package gate

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/spec-kit/ebingo-service/internal/auth"
	"github.com/spec-kit/ebingo-service/internal/clock"
	"github.com/spec-kit/ebingo-service/internal/domain"
	"github.com/spec-kit/ebingo-service/internal/observability"
	"github.com/spec-kit/ebingo-service/internal/schedule"
)

const (
	testPoll   = 10 * time.Millisecond
	testWithin = time.Second
)

type gateTestSuite struct {
	suite.Suite

	clock   *clock.Manual
	source  *fakeSource
	metrics *observability.Metrics
	gate    *Gate
	guard   string
	cashier string
	kaizen  string
}

func TestGateSuite(t *testing.T) {
	suite.Run(t, new(gateTestSuite))
}

func (s *gateTestSuite) SetupTest() {
	s.clock = clock.NewManual(venueAt(10, 12, 0, 0))
	s.source = newFakeSource(s.clock, tod(9, 0), tod(18, 0))
	s.metrics = observability.NewMetrics()

	g, err := New(Options{
		Source:             s.source,
		Clock:              s.clock,
		PollInterval:       testPoll,
		ClosedPollInterval: testPoll,
		Metrics:            s.metrics,
	})
	s.Require().NoError(err)
	s.gate = g

	s.guard = tokenFor(s.T(), domain.RoleGuard, branch(7), farFuture)
	s.cashier = tokenFor(s.T(), domain.RoleCashier, branch(7), farFuture)
	s.kaizen = tokenFor(s.T(), domain.RoleKaizen, nil, farFuture)
}

func (s *gateTestSuite) TestNoSessionRedirectsToLogin() {
	testCases := []struct {
		name  string
		token string
	}{
		{name: "missing", token: ""},
		{name: "garbage", token: "not.a.jwt"},
		{name: "expired", token: tokenFor(s.T(), domain.RoleGuard, branch(7), venueAt(10, 11, 0, 0))},
		{name: "guard without branch", token: tokenFor(s.T(), domain.RoleGuard, nil, farFuture)},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			outcome := s.gate.Navigate(context.Background(), tc.token, "/guard")
			s.Equal(StateDeniedNoSession, outcome.State)
			s.Equal("/", outcome.Redirect)
			s.Error(outcome.Err)
		})
	}
	s.EqualValues(0, s.source.calls.Load(), "claim failures never reach the schedule")
}

func (s *gateTestSuite) TestWrongRoleRedirectsHomeWithoutLoop() {
	outcome := s.gate.Navigate(context.Background(), s.guard, "/cashier/members")
	s.Equal(StateDeniedWrongRole, outcome.State)
	s.Equal("/guard", outcome.Redirect)

	next := s.gate.Navigate(context.Background(), s.guard, outcome.Redirect)
	s.Equal(StateAllowed, next.State)
	s.Empty(next.Redirect)
}

func (s *gateTestSuite) TestClosedBranchRedirectsWithBranchState() {
	s.clock.Set(venueAt(10, 20, 0, 0))

	outcome := s.gate.Navigate(context.Background(), s.cashier, "/cashier/members")
	s.Equal(StateDeniedClosed, outcome.State)
	s.Equal("/closed", outcome.Redirect)
	s.Require().NotNil(outcome.BranchID)
	s.EqualValues(7, *outcome.BranchID)
	s.Require().NotNil(outcome.Decision)
	s.Equal(venueAt(11, 9, 0, 0), *outcome.Decision.NextOpening)
	s.False(outcome.Unavailable)
	s.EqualValues(1, s.metrics.Snapshot().Denials["DENIED_CLOSED|7"])
}

func (s *gateTestSuite) TestAdminRolesIgnoreBranchHours() {
	s.clock.Set(venueAt(10, 23, 0, 0))

	outcome := s.gate.Navigate(context.Background(), s.kaizen, "/kaizen/branches")
	s.Equal(StateAllowed, outcome.State)
	s.EqualValues(0, s.source.calls.Load())

	view, mounted := s.gate.Mount(context.Background(), s.kaizen, "/kaizen/members", nil)
	s.Equal(StateAllowed, mounted.State)
	s.Require().NotNil(view)
	view.Close()
}

func (s *gateTestSuite) TestFirstLoadFailureFailsClosed() {
	s.source.fail(1)

	outcome := s.gate.Navigate(context.Background(), s.guard, "/guard")
	s.Equal(StateDeniedClosed, outcome.State)
	s.True(outcome.Unavailable)
	s.ErrorIs(outcome.Err, schedule.ErrUnavailable)
}

func (s *gateTestSuite) TestTransientFailureKeepsAccessUntilThreshold() {
	ctx := context.Background()
	s.Require().True(s.gate.Navigate(ctx, s.guard, "/guard").Allowed())

	s.source.fail(1)
	s.True(s.gate.Navigate(ctx, s.guard, "/guard").Allowed(), "one failure keeps the last decision")
	s.True(s.gate.Navigate(ctx, s.guard, "/guard").Allowed(), "success resets the failure count")

	s.source.fail(3)
	s.True(s.gate.Navigate(ctx, s.guard, "/guard").Allowed())
	s.True(s.gate.Navigate(ctx, s.guard, "/guard").Allowed())
	third := s.gate.Navigate(ctx, s.guard, "/guard")
	s.Equal(StateDeniedClosed, third.State)
	s.True(third.Unavailable)
}

func (s *gateTestSuite) TestMountedViewClosesAtBoundary() {
	s.clock.Set(venueAt(10, 17, 59, 58))

	denied := make(chan Outcome, 1)
	view, outcome := s.gate.Mount(context.Background(), s.guard, "/guard", func(o Outcome) { denied <- o })
	s.Require().Equal(StateAllowed, outcome.State)
	defer view.Close()

	s.clock.Set(venueAt(10, 18, 0, 1))

	select {
	case o := <-denied:
		s.Equal(StateDeniedClosed, o.State)
		s.Equal("/closed", o.Redirect)
		s.EqualValues(7, *o.BranchID)
	case <-time.After(testWithin):
		s.Fail("view did not close after the boundary")
	}

	opened := make(chan Outcome, 1)
	var mu sync.Mutex
	var views []ClosedView
	page := s.gate.Closed(context.Background(), branch(7), s.guard, func(v ClosedView) {
		mu.Lock()
		views = append(views, v)
		mu.Unlock()
	}, func(o Outcome) { opened <- o })
	defer page.Close()

	s.Eventually(func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(views) > 0
	}, testWithin, testPoll)
	mu.Lock()
	first := views[0]
	mu.Unlock()
	s.Equal(MessageClosed, first.Message)
	s.Require().NotNil(first.Countdown)
	s.Equal("14h 59m 59s", first.Countdown.String())

	s.clock.Set(venueAt(11, 9, 0, 0))
	select {
	case o := <-opened:
		s.Equal(StateAllowed, o.State)
		s.Equal("/guard", o.Redirect)
	case <-time.After(testWithin):
		s.Fail("closed page did not reopen")
	}

	s.True(s.gate.Navigate(context.Background(), s.guard, "/guard").Allowed())
}

func (s *gateTestSuite) TestMountedViewSurvivesOneFailedPoll() {
	denied := make(chan Outcome, 1)
	view, outcome := s.gate.Mount(context.Background(), s.guard, "/guard", func(o Outcome) { denied <- o })
	s.Require().True(outcome.Allowed())
	defer view.Close()

	s.source.fail(1)
	before := s.source.calls.Load()
	s.Eventually(func() bool { return s.source.calls.Load() >= before+3 }, testWithin, testPoll)
	s.Len(denied, 0)

	s.source.fail(3)
	select {
	case o := <-denied:
		s.True(o.Unavailable)
	case <-time.After(testWithin):
		s.Fail("three consecutive failures must deny")
	}
}

func (s *gateTestSuite) TestOverlappingTicksAreDropped() {
	view, outcome := s.gate.Mount(context.Background(), s.guard, "/guard", nil)
	s.Require().True(outcome.Allowed())

	release := make(chan struct{})
	s.source.blockWith(release)
	before := s.source.calls.Load()

	s.Eventually(func() bool { return view.poller.dropped.Load() >= 3 }, testWithin, testPoll)
	s.LessOrEqual(s.source.calls.Load(), before+1, "only one fetch in flight")

	done := make(chan struct{})
	go func() {
		view.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(testWithin):
		s.Fail("Close did not cancel the in-flight fetch")
	}
	close(release)
}

func (s *gateTestSuite) TestCloseStopsPolling() {
	view, outcome := s.gate.Mount(context.Background(), s.guard, "/guard", nil)
	s.Require().True(outcome.Allowed())
	s.Eventually(func() bool { return s.source.calls.Load() >= 3 }, testWithin, testPoll)

	view.Close()
	view.Close()
	after := s.source.calls.Load()
	time.Sleep(5 * testPoll)
	s.Equal(after, s.source.calls.Load())
}

func (s *gateTestSuite) TestCloseFromInsideOnDeny() {
	var view *View
	closed := make(chan struct{})
	view, outcome := s.gate.Mount(context.Background(), s.guard, "/guard", func(Outcome) {
		view.Close()
		close(closed)
	})
	s.Require().True(outcome.Allowed())

	s.clock.Set(venueAt(10, 19, 0, 0))
	select {
	case <-closed:
	case <-time.After(testWithin):
		s.Fail("onDeny never ran")
	}
	view.Close()
}

func (s *gateTestSuite) TestContextCancelStopsView() {
	ctx, cancel := context.WithCancel(context.Background())
	view, outcome := s.gate.Mount(ctx, s.guard, "/guard", nil)
	s.Require().True(outcome.Allowed())

	cancel()
	view.Close()
	after := s.source.calls.Load()
	time.Sleep(5 * testPoll)
	s.Equal(after, s.source.calls.Load())
}

func (s *gateTestSuite) TestUnusableSessionRedirectsToLogin() {
	testCases := []struct {
		name string
		err  error
	}{
		{name: "session rejected", err: fmt.Errorf("status 401: %w", auth.ErrSessionRejected)},
		{name: "branch deleted", err: fmt.Errorf("%w: branch 7", schedule.ErrUnknownBranch)},
	}
	for _, tc := range testCases {
		s.Run(tc.name, func() {
			s.source.failWith(tc.err)
			outcome := s.gate.Navigate(context.Background(), s.guard, "/guard")
			s.Equal(StateDeniedNoSession, outcome.State)
			s.Equal(s.gate.Routes().Login, outcome.Redirect)
			s.False(outcome.Unavailable)
			s.ErrorIs(outcome.Err, tc.err)
		})
	}
}

func (s *gateTestSuite) TestMountedViewEndsWhenSessionExpires() {
	token := tokenFor(s.T(), domain.RoleGuard, branch(7), venueAt(10, 13, 0, 0))
	denied := make(chan Outcome, 1)
	view, outcome := s.gate.Mount(context.Background(), token, "/guard", func(o Outcome) { denied <- o })
	s.Require().True(outcome.Allowed())
	defer view.Close()

	s.clock.Set(venueAt(10, 13, 0, 1))
	select {
	case o := <-denied:
		s.Equal(StateDeniedNoSession, o.State)
		s.Equal(s.gate.Routes().Login, o.Redirect)
		s.ErrorIs(o.Err, auth.ErrExpiredClaim)
	case <-time.After(testWithin):
		s.Fail("expired session kept the view mounted")
	}
}

func (s *gateTestSuite) TestMountedViewEndsWhenServerRejectsSession() {
	denied := make(chan Outcome, 1)
	view, outcome := s.gate.Mount(context.Background(), s.guard, "/guard", func(o Outcome) { denied <- o })
	s.Require().True(outcome.Allowed())
	defer view.Close()

	s.source.failWith(auth.ErrSessionRejected)
	select {
	case o := <-denied:
		s.Equal(StateDeniedNoSession, o.State)
		s.False(o.Unavailable)
	case <-time.After(testWithin):
		s.Fail("rejected session kept the view mounted")
	}
}

func TestNewRequiresSource(t *testing.T) {
	_, err := New(Options{})
	require.Error(t, err)
}

func TestDecodeFailureIsMalformed(t *testing.T) {
	g, err := New(Options{Source: newFakeSource(clock.NewManual(venueAt(10, 12, 0, 0)), tod(9, 0), tod(18, 0))})
	require.NoError(t, err)
	outcome := g.Navigate(context.Background(), "abc", "/guard")
	assert.ErrorIs(t, outcome.Err, auth.ErrMalformedClaim)
}
