package registry

import "drawboard/internal/models"

// AddPresence adds a participant to a canvas's live roster with
// status active, updates the identity indexes and starts idle
// tracking. Returns a copy of the created entry.
func (r *Registry) AddPresence(canvasID, userID, clientID string, info models.UserInfo, role models.Role) *models.PresenceEntry {
	r.mu.Lock()
	entry, ev := r.addPresenceLocked(canvasID, userID, clientID, info, role)
	r.mu.Unlock()

	r.publish(ev)
	return entry
}

func (r *Registry) addPresenceLocked(canvasID, userID, clientID string, info models.UserInfo, role models.Role) (*models.PresenceEntry, *models.ActivityEvent) {
	// A client lives in at most one canvas: joining a second canvas
	// implicitly leaves the first. SwitchCanvas makes this explicit,
	// but the index must stay consistent either way.
	if prev, ok := r.clientCanvas[clientID]; ok && prev != canvasID {
		r.removePresenceLocked(prev, userID, clientID)
	}

	cs := r.getOrCreateLocked(canvasID)
	now := r.clock.Now()

	rejoin := false
	if prior, ok := cs.presence[userID]; ok {
		// Presence is keyed by user, so a second client of the same
		// user takes over the existing seat rather than adding one.
		// The displaced client's index mapping has to go with it or
		// it would never be cleaned up.
		rejoin = true
		if prior.ClientID != clientID {
			delete(r.clientCanvas, prior.ClientID)
		}
	}

	entry := &models.PresenceEntry{
		UserID:       userID,
		ClientID:     clientID,
		Name:         info.Name,
		Color:        info.Color,
		Role:         role,
		Status:       models.StatusActive,
		JoinedAt:     now,
		LastActiveAt: now,
	}
	cs.presence[userID] = entry

	r.clientCanvas[clientID] = canvasID
	if !rejoin {
		if r.userCanvases[userID] == nil {
			r.userCanvases[userID] = make(map[string]int)
		}
		r.userCanvases[userID][canvasID]++
	}

	ev := r.appendActivityLocked(cs, canvasID, userID, clientID, models.ActivityJoin, map[string]any{
		"name": info.Name,
		"role": string(role),
	})
	r.scheduleIdleLocked(cs, canvasID, userID)

	return entry.Clone(), ev
}

// RemovePresence deletes the user's presence entry and cursor,
// cancels the pending activity timer and updates the indexes.
// No-op if the user was never present.
func (r *Registry) RemovePresence(canvasID, userID, clientID string) bool {
	r.mu.Lock()
	ev := r.removePresenceLocked(canvasID, userID, clientID)
	r.mu.Unlock()

	r.publish(ev)
	return ev != nil
}

// removePresenceLocked does the work under r.mu and returns the leave
// event, or nil if nothing was removed.
func (r *Registry) removePresenceLocked(canvasID, userID, clientID string) *models.ActivityEvent {
	cs, ok := r.canvases[canvasID]
	if !ok {
		return nil
	}
	entry, ok := cs.presence[userID]
	if !ok {
		return nil
	}

	// Cancel the timer before deleting the entry, or it will later
	// fire against a record that no longer exists.
	if t, ok := cs.timers[userID]; ok {
		t.Stop()
		delete(cs.timers, userID)
	}

	delete(cs.cursors, userID)
	delete(cs.presence, userID)
	// The resident entry's client may differ from the acting client
	// (another client of the same user); drop the mapping that was
	// actually pointing here.
	delete(r.clientCanvas, entry.ClientID)

	if canvases, ok := r.userCanvases[userID]; ok {
		canvases[canvasID]--
		// Only drop the canvas from the user's set once no other
		// client of that user remains in it.
		if canvases[canvasID] <= 0 {
			delete(canvases, canvasID)
		}
		if len(canvases) == 0 {
			delete(r.userCanvases, userID)
		}
	}

	return r.appendActivityLocked(cs, canvasID, userID, clientID, models.ActivityLeave, map[string]any{
		"name": entry.Name,
	})
}

// ListPresence returns copies of the canvas's roster entries.
func (r *Registry) ListPresence(canvasID string) []*models.PresenceEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	cs, ok := r.canvases[canvasID]
	if !ok {
		return []*models.PresenceEntry{}
	}

	out := make([]*models.PresenceEntry, 0, len(cs.presence))
	for _, entry := range cs.presence {
		out = append(out, entry.Clone())
	}
	return out
}

// TouchActivity refreshes the user's last-activity time, resets a
// decayed status back to active and (re)schedules the idle timer.
// No-op if the user has no presence in the canvas.
func (r *Registry) TouchActivity(canvasID, userID, clientID string) {
	r.mu.Lock()
	cs, ok := r.canvases[canvasID]
	if !ok {
		r.mu.Unlock()
		return
	}
	ev := r.touchActivityLocked(cs, canvasID, userID, clientID)
	r.mu.Unlock()

	r.publish(ev)
}

func (r *Registry) touchActivityLocked(cs *canvasState, canvasID, userID, clientID string) *models.ActivityEvent {
	entry, ok := cs.presence[userID]
	if !ok {
		return nil
	}

	entry.LastActiveAt = r.clock.Now()

	var ev *models.ActivityEvent
	if entry.Status != models.StatusActive {
		entry.Status = models.StatusActive
		ev = r.appendActivityLocked(cs, canvasID, userID, clientID, models.ActivityActive, nil)
	}

	r.scheduleIdleLocked(cs, canvasID, userID)
	return ev
}

// CleanupUserState removes the user's presence from every canvas in
// their membership set: the full-disconnect path. Returns the ids of
// the canvases the user was removed from.
func (r *Registry) CleanupUserState(userID, clientID string) []string {
	r.mu.Lock()

	canvases := make([]string, 0, len(r.userCanvases[userID]))
	for canvasID := range r.userCanvases[userID] {
		canvases = append(canvases, canvasID)
	}

	events := make([]*models.ActivityEvent, 0, len(canvases))
	for _, canvasID := range canvases {
		if ev := r.removePresenceLocked(canvasID, userID, clientID); ev != nil {
			events = append(events, ev)
		}
	}
	r.mu.Unlock()

	r.publish(events...)
	return canvases
}

// SwitchCanvas moves a client from one canvas to another: leave, then
// join. The two steps are deliberately not atomic for other
// observers; the brief window where the client is in neither roster
// is harmless. When from is empty the client's current canvas is
// used. The caller is expected to follow up with GetSnapshot on the
// destination.
func (r *Registry) SwitchCanvas(userID, clientID, from, to string, info models.UserInfo, role models.Role) *models.PresenceEntry {
	r.mu.Lock()
	if from == "" {
		from = r.clientCanvas[clientID]
	}

	var events []*models.ActivityEvent
	if from != "" && from != to {
		if ev := r.removePresenceLocked(from, userID, clientID); ev != nil {
			events = append(events, ev)
		}
	}

	entry, ev := r.addPresenceLocked(to, userID, clientID, info, role)
	events = append(events, ev)
	r.mu.Unlock()

	r.publish(events...)
	return entry
}
