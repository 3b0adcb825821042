package gate

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ebingo-service/internal/auth"
	"github.com/spec-kit/ebingo-service/internal/schedule"
)

const (
	MessageClosed        = "Ebingo system is currently closed."
	MessageUnset         = "Opening time has not been configured for this branch yet."
	MessageNoWindow      = "This branch has no opening window."
	MessageChecking      = "Checking branch status..."
	MessageUnavailable   = "Unable to reach the branch schedule. Retrying..."
	MessageUnknownBranch = "Branch information is unavailable. Please log in again."
)

// ClosedView is what the closed page shows after one poll.
type ClosedView struct {
	BranchID    *int64
	Message     string
	NextOpening *time.Time
	Countdown   *schedule.Countdown
	Unset       bool
	Unavailable bool
}

// ClosedPage polls a closed branch until it opens, then hands the session back
// to its home route. It never unlocks on its own countdown.
type ClosedPage struct {
	gate     *Gate
	branchID *int64
	token    string
	poller   *poller
	failures int
	rendered bool
}

// Closed shows the closed page for branchID, the navigation state from a
// DENIED_CLOSED outcome. A nil branchID falls back to the claim's branch; if
// neither exists a static message renders and nothing polls. onOpen receives
// the next navigation: the role's home once the branch opens, or login when
// the session or the branch can no longer be used. The page needs no valid
// session while it waits.
func (g *Gate) Closed(ctx context.Context, branchID *int64, token string, render func(ClosedView), onOpen func(Outcome)) *ClosedPage {
	page := &ClosedPage{gate: g, branchID: branchID, token: token}
	if page.branchID == nil {
		if claims, err := auth.DecodeClaims(token, g.clock.Now()); err == nil && claims.BranchID != nil {
			page.branchID = claims.BranchID
		}
	}
	if page.branchID == nil {
		if render != nil {
			render(ClosedView{Message: MessageUnknownBranch})
		}
		return page
	}

	p, pollCtx := newPoller(ctx)
	page.poller = p
	p.start(pollCtx, g.closedPollInterval, true, func(ctx context.Context) (bool, func()) {
		view, leave, outcome := page.poll(ctx)
		if ctx.Err() != nil {
			return true, nil
		}
		if leave {
			if onOpen == nil {
				return true, nil
			}
			return true, func() { onOpen(outcome) }
		}
		if view != nil && render != nil {
			shown := *view
			return false, func() { render(shown) }
		}
		return false, nil
	})
	return page
}

// BranchID is the branch being watched, nil for the static page.
func (p *ClosedPage) BranchID() *int64 {
	return p.branchID
}

// Close stops polling unconditionally and waits for the loop to exit. No
// render or onOpen call starts after Close returns.
func (p *ClosedPage) Close() {
	if p == nil {
		return
	}
	p.poller.stop()
}

// poll runs on the poller goroutine only; ticks never overlap.
func (p *ClosedPage) poll(ctx context.Context) (*ClosedView, bool, Outcome) {
	g := p.gate
	branchID := *p.branchID
	decision, err := g.source.Window(ctx, branchID)
	if err != nil && sessionUnusable(err) {
		g.logger.Info("closed page cannot continue; sending to login",
			zap.Int64("branch_id", branchID),
			zap.Error(err))
		return nil, true, g.noSession(g.routes.Closed, p.branchID, err)
	}
	if err != nil {
		p.failures++
		g.logger.Warn("closed page schedule fetch failed",
			zap.Int64("branch_id", branchID),
			zap.Int("failures", p.failures),
			zap.Error(err))
		if p.failures < g.threshold {
			if p.rendered {
				return nil, false, Outcome{}
			}
			p.rendered = true
			return &ClosedView{BranchID: p.branchID, Message: MessageChecking}, false, Outcome{}
		}
		return &ClosedView{BranchID: p.branchID, Message: MessageUnavailable, Unavailable: true}, false, Outcome{}
	}
	p.failures = 0

	if decision.IsOpen {
		g.remember(branchID, decision)
		return nil, true, p.reopen(decision)
	}

	p.rendered = true
	view := &ClosedView{BranchID: p.branchID, Unset: decision.Unset, NextOpening: decision.NextOpening}
	switch {
	case decision.Unset:
		view.Message = MessageUnset
	case decision.NextOpening == nil:
		view.Message = MessageNoWindow
	case decision.MillisUntilOpen == 0:
		view.Message = MessageChecking
	default:
		view.Message = MessageClosed
		view.Countdown = decision.Countdown()
	}
	return view, false, Outcome{}
}

// reopen sends a still-valid session to its home route, anything else to login.
func (p *ClosedPage) reopen(decision schedule.Decision) Outcome {
	g := p.gate
	claims, err := auth.DecodeClaims(p.token, g.clock.Now())
	if err != nil {
		out := g.noSession(g.routes.Closed, p.branchID, err)
		out.Decision = &decision
		return out
	}
	home := g.routes.HomeFor(claims.Role)
	g.logger.Info("branch opened; leaving closed page",
		zap.Int64("branch_id", *p.branchID),
		zap.String("redirect", home))
	return Outcome{State: StateAllowed, Path: g.routes.Closed, Redirect: home, BranchID: p.branchID, Claims: claims, Decision: &decision}
}
