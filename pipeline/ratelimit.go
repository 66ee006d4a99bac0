package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// rateGate is a shared pause shared by all workers. When any worker sees
// a rate-limit response it pauses the gate; every worker waits out the
// same pause instead of each discovering the limit on its own.
type rateGate struct {
	mu       sync.Mutex
	paused   int32 // atomic: 1 = paused
	pauseEnd time.Time
}

func (g *rateGate) isPaused() bool {
	return atomic.LoadInt32(&g.paused) == 1
}

func (g *rateGate) pause(d time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	end := time.Now().Add(d)
	if end.After(g.pauseEnd) {
		g.pauseEnd = end
	}
	atomic.StoreInt32(&g.paused, 1)
}

func (g *rateGate) unpause() {
	atomic.StoreInt32(&g.paused, 0)
}

// wait blocks until any active pause has elapsed or ctx is cancelled.
func (g *rateGate) wait(ctx context.Context) error {
	for g.isPaused() {
		g.mu.Lock()
		remaining := time.Until(g.pauseEnd)
		g.mu.Unlock()
		if remaining <= 0 {
			g.unpause()
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(remaining):
		}
	}
	return nil
}
