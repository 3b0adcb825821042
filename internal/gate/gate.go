package gate

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ebingo-service/internal/auth"
	"github.com/spec-kit/ebingo-service/internal/clock"
	"github.com/spec-kit/ebingo-service/internal/observability"
	"github.com/spec-kit/ebingo-service/internal/schedule"
)

const (
	DefaultPollInterval       = 5 * time.Second
	DefaultClosedPollInterval = time.Second
	DefaultFailureThreshold   = 3
)

// Options configures a Gate.
type Options struct {
	Routes             *Routes
	Source             ScheduleSource
	Clock              clock.Clock
	PollInterval       time.Duration
	ClosedPollInterval time.Duration
	FailureThreshold   int
	Logger             *zap.Logger
	Metrics            *observability.Metrics
}

// Gate evaluates navigations against the session claim, the routes table and
// the branch window. It remembers the last decision per branch so transient
// schedule failures do not lock staff out.
type Gate struct {
	routes             *Routes
	source             ScheduleSource
	clock              clock.Clock
	pollInterval       time.Duration
	closedPollInterval time.Duration
	threshold          int
	logger             *zap.Logger
	metrics            *observability.Metrics

	mu     sync.Mutex
	memory map[int64]*branchMemory
}

type branchMemory struct {
	allowed  bool
	failures int
	last     *schedule.Decision
}

type branchCheck struct {
	open        bool
	decision    *schedule.Decision
	unavailable bool
	// rejected means the server refused the session or no longer knows the branch.
	rejected bool
	err      error
}

// New builds a gate, filling unset options with defaults.
func New(opts Options) (*Gate, error) {
	if opts.Source == nil {
		return nil, errors.New("gate: schedule source is required")
	}
	g := &Gate{
		routes:             opts.Routes,
		source:             opts.Source,
		clock:              opts.Clock,
		pollInterval:       opts.PollInterval,
		closedPollInterval: opts.ClosedPollInterval,
		threshold:          opts.FailureThreshold,
		logger:             opts.Logger,
		metrics:            opts.Metrics,
		memory:             make(map[int64]*branchMemory),
	}
	if g.routes == nil {
		g.routes = DefaultRoutes()
	}
	if g.clock == nil {
		g.clock = clock.NewVenue("")
	}
	if g.pollInterval <= 0 {
		g.pollInterval = DefaultPollInterval
	}
	if g.closedPollInterval <= 0 {
		g.closedPollInterval = DefaultClosedPollInterval
	}
	if g.threshold <= 0 {
		g.threshold = DefaultFailureThreshold
	}
	if g.logger == nil {
		g.logger = zap.NewNop()
	}
	return g, nil
}

// Routes exposes the table the gate redirects with.
func (g *Gate) Routes() *Routes {
	return g.routes
}

// Navigate decides whether the session behind token may enter path.
func (g *Gate) Navigate(ctx context.Context, token, path string) Outcome {
	path = cleanPath(path)
	claims, err := auth.DecodeClaims(token, g.clock.Now())
	if err != nil {
		return g.deny(g.noSession(path, nil, err))
	}

	if !g.routes.Allows(path, claims.Role) {
		return g.deny(Outcome{
			State:    StateDeniedWrongRole,
			Path:     path,
			Redirect: g.routes.HomeFor(claims.Role),
			Claims:   claims,
		})
	}

	if claims.Role.BranchScoped() {
		check := g.checkBranch(ctx, *claims.BranchID)
		if check.rejected {
			return g.deny(g.noSession(path, claims.BranchID, check.err))
		}
		if !check.open {
			return g.deny(g.closedOutcome(path, claims, check))
		}
		return Outcome{State: StateAllowed, Path: path, Claims: claims, BranchID: claims.BranchID, Decision: check.decision}
	}
	return Outcome{State: StateAllowed, Path: path, Claims: claims}
}

// Mount navigates to path and, when allowed for a cashier or guard, keeps
// re-checking the session expiry and the branch window every poll interval.
// The first non-allowed result is passed to onDeny and polling stops. A denied
// navigation returns a nil view.
func (g *Gate) Mount(ctx context.Context, token, path string, onDeny func(Outcome)) (*View, Outcome) {
	outcome := g.Navigate(ctx, token, path)
	if !outcome.Allowed() {
		return nil, outcome
	}

	view := &View{Outcome: outcome}
	if !outcome.Claims.Role.BranchScoped() {
		return view, outcome
	}

	branchID := *outcome.Claims.BranchID
	claims := outcome.Claims
	p, pollCtx := newPoller(ctx)
	view.poller = p
	p.start(pollCtx, g.pollInterval, false, func(ctx context.Context) (bool, func()) {
		var denied Outcome
		if _, err := auth.DecodeClaims(token, g.clock.Now()); err != nil {
			denied = g.noSession(outcome.Path, claims.BranchID, err)
		} else {
			check := g.checkBranch(ctx, branchID)
			switch {
			case check.open:
				return false, nil
			case ctx.Err() != nil:
				return true, nil
			case check.rejected:
				denied = g.noSession(outcome.Path, claims.BranchID, check.err)
			default:
				denied = g.closedOutcome(outcome.Path, claims, check)
			}
		}
		denied = g.deny(denied)
		if onDeny == nil {
			return true, nil
		}
		return true, func() { onDeny(denied) }
	})
	return view, outcome
}

func (g *Gate) noSession(path string, branchID *int64, err error) Outcome {
	return Outcome{State: StateDeniedNoSession, Path: path, Redirect: g.routes.Login, BranchID: branchID, Err: err}
}

// sessionUnusable reports fetch errors that no retry can fix: the server
// refused the session, or the branch is gone.
func sessionUnusable(err error) bool {
	return errors.Is(err, auth.ErrSessionRejected) || errors.Is(err, schedule.ErrUnknownBranch)
}

func (g *Gate) closedOutcome(path string, claims *auth.Claims, check branchCheck) Outcome {
	return Outcome{
		State:       StateDeniedClosed,
		Path:        path,
		Redirect:    g.routes.Closed,
		BranchID:    claims.BranchID,
		Claims:      claims,
		Decision:    check.decision,
		Unavailable: check.unavailable,
		Err:         check.err,
	}
}

// checkBranch fetches the branch window. On a failed fetch the last ALLOWED
// decision holds until threshold consecutive failures; with no prior ALLOWED
// decision it fails closed at once. A rejected session is not a failure.
func (g *Gate) checkBranch(ctx context.Context, branchID int64) branchCheck {
	decision, err := g.source.Window(ctx, branchID)
	if err != nil && sessionUnusable(err) {
		return branchCheck{rejected: true, err: err}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	mem, ok := g.memory[branchID]
	if !ok {
		mem = &branchMemory{}
		g.memory[branchID] = mem
	}

	if err == nil {
		mem.failures = 0
		mem.allowed = decision.IsOpen
		mem.last = &decision
		return branchCheck{open: decision.IsOpen, decision: &decision}
	}

	mem.failures++
	if mem.allowed && mem.failures < g.threshold {
		g.logger.Warn("schedule fetch failed; keeping last decision",
			zap.Int64("branch_id", branchID),
			zap.Int("failures", mem.failures),
			zap.Error(err))
		return branchCheck{open: true, decision: mem.last, err: err}
	}

	mem.allowed = false
	g.logger.Warn("schedule unavailable; failing closed",
		zap.Int64("branch_id", branchID),
		zap.Int("failures", mem.failures),
		zap.Error(err))
	return branchCheck{unavailable: true, err: err}
}

func (g *Gate) remember(branchID int64, decision schedule.Decision) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.memory[branchID] = &branchMemory{allowed: decision.IsOpen, last: &decision}
}

func (g *Gate) deny(o Outcome) Outcome {
	var branchID int64
	if o.BranchID != nil {
		branchID = *o.BranchID
	}
	g.metrics.RecordDenial(string(o.State), branchID)
	fields := []zap.Field{
		zap.String("state", string(o.State)),
		zap.String("path", o.Path),
		zap.String("redirect", o.Redirect),
	}
	if o.BranchID != nil {
		fields = append(fields, zap.Int64("branch_id", branchID))
	}
	if o.Err != nil {
		fields = append(fields, zap.Error(o.Err))
	}
	g.logger.Info("gate denied", fields...)
	return o
}

// View is a mounted guarded view.
type View struct {
	Outcome Outcome
	poller  *poller
}

// Close stops re-evaluation and waits for any in-flight check. Safe to call
// more than once, from any goroutine and from inside onDeny. No onDeny call
// starts after Close returns.
func (v *View) Close() {
	if v == nil {
		return
	}
	v.poller.stop()
}
