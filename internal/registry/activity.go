package registry

import "drawboard/internal/models"

// appendActivityLocked appends an event to the canvas's bounded log,
// dropping the oldest entries once the cap is exceeded; call order
// gives the canvas a total event order. Caller must hold r.mu.
func (r *Registry) appendActivityLocked(cs *canvasState, canvasID, userID, clientID string, typ models.ActivityType, payload map[string]any) *models.ActivityEvent {
	ev := models.NewActivityEvent(canvasID, userID, clientID, typ, r.clock.Now(), payload)

	cs.activity = append(cs.activity, ev)
	if overflow := len(cs.activity) - r.cfg.ActivityLogCap; overflow > 0 {
		cs.activity = cs.activity[overflow:]
	}

	cs.version++
	cs.lastActivity = ev.Timestamp
	return ev
}

// RecentActivity returns up to limit of the canvas's most recent
// events, oldest first. limit <= 0 returns the whole log. Unknown
// canvas returns an empty slice.
func (r *Registry) RecentActivity(canvasID string, limit int) []*models.ActivityEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	cs, ok := r.canvases[canvasID]
	if !ok {
		return []*models.ActivityEvent{}
	}

	events := cs.activity
	if limit > 0 && len(events) > limit {
		events = events[len(events)-limit:]
	}

	out := make([]*models.ActivityEvent, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Clone())
	}
	return out
}
