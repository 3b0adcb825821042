package gate

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPollerStopFromOtherGoroutineDuringCallback(t *testing.T) {
	p, ctx := newPoller(context.Background())

	var ticks, callbacks atomic.Int32
	entered := make(chan struct{})
	release := make(chan struct{})
	p.start(ctx, testPoll, true, func(context.Context) (bool, func()) {
		ticks.Add(1)
		return false, func() {
			if callbacks.Add(1) == 1 {
				close(entered)
				<-release
			}
		}
	})

	select {
	case <-entered:
	case <-time.After(testWithin):
		t.Fatal("callback never ran")
	}

	stopped := make(chan struct{})
	go func() {
		p.stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(testWithin):
		t.Fatal("stop blocked on a running callback")
	}

	// the loop has exited: nothing fires once the callback returns
	afterStop := ticks.Load()
	close(release)
	time.Sleep(5 * testPoll)
	assert.Equal(t, afterStop, ticks.Load())
	assert.EqualValues(t, 1, callbacks.Load())
}

func TestPollerStopFromInsideCallback(t *testing.T) {
	p, ctx := newPoller(context.Background())

	done := make(chan struct{})
	p.start(ctx, testPoll, true, func(context.Context) (bool, func()) {
		return false, func() {
			p.stop()
			close(done)
		}
	})

	select {
	case <-done:
	case <-time.After(testWithin):
		t.Fatal("stop from inside a callback deadlocked")
	}
	p.stop()
}

func TestPollerStopWaitsForInFlightFetch(t *testing.T) {
	p, ctx := newPoller(context.Background())

	started := make(chan struct{})
	var finished atomic.Bool
	p.start(ctx, testPoll, true, func(ctx context.Context) (bool, func()) {
		close(started)
		<-ctx.Done()
		time.Sleep(2 * testPoll)
		finished.Store(true)
		return false, func() { t.Error("callback ran after stop") }
	})

	<-started
	p.stop()
	require.True(t, finished.Load(), "stop returned before the fetch finished")
	time.Sleep(2 * testPoll)
}
