package registry

import "drawboard/internal/models"

/*
LEARNING: PRESENCE DECAY STATE MACHINE

Each (canvas, user) pair has at most one pending timer. The states
decay monotonically: active → idle once the idle threshold passes,
idle → away once total inactivity reaches the away threshold. Any
activity cancels the pending timer and resets to active. Presence
removal cancels the timer outright - that is the machine's terminal.
Driving this through the Clock interface keeps it deterministic under
a fake clock in tests.
*/

// scheduleIdleLocked (re)arms the idle timer for a user. Caller must
// hold r.mu.
func (r *Registry) scheduleIdleLocked(cs *canvasState, canvasID, userID string) {
	if t, ok := cs.timers[userID]; ok {
		t.Stop()
	}
	cs.timers[userID] = r.clock.AfterFunc(r.cfg.IdleTimeout, func() {
		r.idleTimerFired(canvasID, userID)
	})
}

func (r *Registry) idleTimerFired(canvasID, userID string) {
	r.mu.Lock()
	cs, ok := r.canvases[canvasID]
	if !ok {
		r.mu.Unlock()
		return
	}
	entry, ok := cs.presence[userID]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(cs.timers, userID)

	elapsed := r.clock.Now().Sub(entry.LastActiveAt)

	var ev *models.ActivityEvent
	if elapsed >= r.cfg.AwayTimeout {
		// The idle threshold fired late enough that the away
		// threshold has already passed: skip straight to away.
		entry.Status = models.StatusAway
		ev = r.appendActivityLocked(cs, canvasID, userID, entry.ClientID, models.ActivityAway, nil)
	} else {
		entry.Status = models.StatusIdle
		ev = r.appendActivityLocked(cs, canvasID, userID, entry.ClientID, models.ActivityIdle, nil)

		remaining := r.cfg.AwayTimeout - elapsed
		cs.timers[userID] = r.clock.AfterFunc(remaining, func() {
			r.awayTimerFired(canvasID, userID)
		})
	}
	r.mu.Unlock()

	r.publish(ev)
}

func (r *Registry) awayTimerFired(canvasID, userID string) {
	r.mu.Lock()
	cs, ok := r.canvases[canvasID]
	if !ok {
		r.mu.Unlock()
		return
	}
	entry, ok := cs.presence[userID]
	if !ok || entry.Status != models.StatusIdle {
		// Touched (or removed) since the follow-up was scheduled.
		r.mu.Unlock()
		return
	}
	delete(cs.timers, userID)

	entry.Status = models.StatusAway
	ev := r.appendActivityLocked(cs, canvasID, userID, entry.ClientID, models.ActivityAway, nil)
	r.mu.Unlock()

	r.publish(ev)
}
