package worker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/ebingo-service/internal/domain"
	"github.com/spec-kit/ebingo-service/internal/events"
	"github.com/spec-kit/ebingo-service/internal/schedule"
)

// BranchLister lists every known branch.
type BranchLister interface {
	List(ctx context.Context) ([]domain.Branch, error)
}

// WindowSource evaluates the current window of one branch. Now is the clock
// its decisions are made against, so event timestamps agree with them.
type WindowSource interface {
	BranchWindow(ctx context.Context, branchID int64) (schedule.Decision, error)
	Now() time.Time
}

// WindowWatcher publishes EventBranchOpened and EventBranchClosed when a branch
// crosses a window boundary. The first observation of a branch only seeds its state.
type WindowWatcher struct {
	branches   BranchLister
	windows    WindowSource
	dispatcher events.Dispatcher
	logger     *zap.Logger

	mu   sync.Mutex
	open map[int64]bool
}

// NewWindowWatcher wires the watcher; a nil logger is replaced with a no-op one.
func NewWindowWatcher(branches BranchLister, windows WindowSource, dispatcher events.Dispatcher, logger *zap.Logger) *WindowWatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WindowWatcher{
		branches:   branches,
		windows:    windows,
		dispatcher: dispatcher,
		logger:     logger,
		open:       make(map[int64]bool),
	}
}

// Sweep evaluates every branch once and returns the transitions it published.
func (w *WindowWatcher) Sweep(ctx context.Context) int {
	list, err := w.branches.List(ctx)
	if err != nil {
		w.logger.Warn("window watcher: list branches", zap.Error(err))
		return 0
	}

	seen := make(map[int64]struct{}, len(list))
	published := 0
	for _, branch := range list {
		seen[branch.ID] = struct{}{}
		decision, err := w.windows.BranchWindow(ctx, branch.ID)
		if err != nil {
			// keep the previous state; an outage is not a transition
			w.logger.Warn("window watcher: evaluate branch", zap.Int64("branch_id", branch.ID), zap.Error(err))
			continue
		}
		if w.observe(branch.ID, decision.IsOpen) {
			w.publish(ctx, branch.ID, decision)
			published++
		}
	}

	w.mu.Lock()
	for id := range w.open {
		if _, ok := seen[id]; !ok {
			delete(w.open, id)
		}
	}
	w.mu.Unlock()
	return published
}

// Run sweeps immediately and then on every interval until ctx is done.
func (w *WindowWatcher) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

func (w *WindowWatcher) observe(branchID int64, isOpen bool) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	prev, known := w.open[branchID]
	w.open[branchID] = isOpen
	return known && prev != isOpen
}

func (w *WindowWatcher) publish(ctx context.Context, branchID int64, decision schedule.Decision) {
	eventType := events.EventBranchClosed
	if decision.IsOpen {
		eventType = events.EventBranchOpened
	}
	err := w.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		BranchID:  branchID,
		Timestamp: w.windows.Now().UTC(),
		Payload: events.BranchWindowPayload{
			NextOpening: decision.NextOpening,
			ClosesAt:    decision.ClosesAt,
			Unset:       decision.Unset,
		},
	})
	if err != nil {
		w.logger.Warn("window watcher: publish", zap.Int64("branch_id", branchID), zap.Error(err))
	}
}
