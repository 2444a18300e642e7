package registry

import (
	"log"
	"time"
)

// sweepLoop periodically evicts abandoned canvases and, on its own
// independent cadence, stale cursor-throttle entries.
func (r *Registry) sweepLoop() {
	canvasTicker := time.NewTicker(r.cfg.SweepInterval)
	throttleTicker := time.NewTicker(r.cfg.CursorThrottleSweep)
	defer canvasTicker.Stop()
	defer throttleTicker.Stop()

	for {
		select {
		case <-r.done:
			return
		case <-canvasTicker.C:
			if n := r.SweepCanvases(); n > 0 {
				log.Printf("🧹 Sweep evicted %d empty canvas(es)", n)
			}
		case <-throttleTicker.C:
			r.SweepThrottleEntries()
		}
	}
}

// SweepCanvases evicts every canvas whose presence map is empty and
// whose most recent activity is older than the retention threshold.
// Eviction is destructive and unconditional: durable object state
// must already have gone through the persistence collaborator.
// Returns the number of canvases evicted.
func (r *Registry) SweepCanvases() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	evicted := 0

	for canvasID, cs := range r.canvases {
		if len(cs.presence) > 0 {
			continue
		}
		if now.Sub(cs.lastActivity) <= r.cfg.CanvasRetention {
			continue
		}

		// Presence is empty so no timer should remain, but eviction
		// must never leak scheduled work.
		for userID, t := range cs.timers {
			t.Stop()
			delete(cs.timers, userID)
		}
		delete(r.canvases, canvasID)
		evicted++
	}
	return evicted
}

// SweepThrottleEntries discards cursor-throttle entries older than the
// throttle retention to bound unrelated memory growth. Returns the
// number discarded.
func (r *Registry) SweepThrottleEntries() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	discarded := 0

	for key, last := range r.cursorLogAt {
		if now.Sub(last) > r.cfg.CursorThrottleSweep {
			delete(r.cursorLogAt, key)
			discarded++
		}
	}
	return discarded
}
