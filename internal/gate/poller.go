package gate

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// tickFunc fetches once. It returns true to stop polling, plus an optional
// callback that runs after the fetch has been accounted for.
type tickFunc func(ctx context.Context) (bool, func())

// poller runs tick on a fixed interval. A tick that fires while the previous
// fetch or its callback is still running is dropped.
type poller struct {
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	inFlight atomic.Bool
	stopped  atomic.Bool
	cbMu     sync.Mutex
	dropped  atomic.Int64
}

func newPoller(parent context.Context) (*poller, context.Context) {
	ctx, cancel := context.WithCancel(parent)
	return &poller{cancel: cancel}, ctx
}

// start launches the loop. immediate runs the first tick without waiting an interval.
func (p *poller) start(ctx context.Context, interval time.Duration, immediate bool, tick tickFunc) {
	p.wg.Add(1)
	go p.loop(ctx, interval, immediate, tick)
}

func (p *poller) loop(ctx context.Context, interval time.Duration, immediate bool, tick tickFunc) {
	defer p.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if immediate {
		p.fire(ctx, tick)
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.fire(ctx, tick)
		}
	}
}

func (p *poller) fire(ctx context.Context, tick tickFunc) {
	if !p.inFlight.CompareAndSwap(false, true) {
		p.dropped.Add(1)
		return
	}
	p.wg.Add(1)
	go func() {
		defer p.inFlight.Store(false)
		if cb := p.fetch(ctx, tick); cb != nil {
			p.run(cb)
		}
	}()
}

// fetch is the part of a tick that stop waits for.
func (p *poller) fetch(ctx context.Context, tick tickFunc) func() {
	defer p.wg.Done()
	if ctx.Err() != nil {
		return nil
	}
	done, cb := tick(ctx)
	if done {
		p.cancel()
	}
	return cb
}

// run invokes a callback unless the poller was stopped. Callbacks are outside
// the wait group, so a callback may call stop.
func (p *poller) run(cb func()) {
	p.cbMu.Lock()
	defer p.cbMu.Unlock()
	if p.stopped.Load() {
		return
	}
	cb()
}

// stop cancels polling and waits for the loop and any in-flight fetch, from
// any goroutine. A callback already running may still be finishing; none
// starts afterwards.
func (p *poller) stop() {
	if p == nil {
		return
	}
	p.stopped.Store(true)
	p.cancel()
	p.wg.Wait()
}
