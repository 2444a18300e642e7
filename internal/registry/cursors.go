package registry

import "drawboard/internal/models"

// cursorLogKey identifies a (canvas, user) pair in the throttle map.
func cursorLogKey(canvasID, userID string) string {
	return canvasID + "\x00" + userID
}

// UpdateCursor upserts the user's pointer state (last write wins) and
// counts as user activity. The cursor position itself is never
// throttled; only its activity-log footprint is, to at most one
// cursor_move event per (canvas, user) per throttle window.
func (r *Registry) UpdateCursor(canvasID, userID, clientID string, pos models.Point, visible bool, tool string, info models.UserInfo) *models.CursorState {
	r.mu.Lock()
	cs := r.getOrCreateLocked(canvasID)
	now := r.clock.Now()

	cursor := &models.CursorState{
		UserID:    userID,
		Name:      info.Name,
		Position:  pos,
		Visible:   visible,
		Tool:      tool,
		Color:     info.Color,
		UpdatedAt: now,
	}
	cs.cursors[userID] = cursor
	cs.version++

	touchEv := r.touchActivityLocked(cs, canvasID, userID, clientID)

	var moveEv *models.ActivityEvent
	key := cursorLogKey(canvasID, userID)
	if last, ok := r.cursorLogAt[key]; !ok || now.Sub(last) >= r.cfg.CursorThrottleWindow {
		r.cursorLogAt[key] = now
		moveEv = r.appendActivityLocked(cs, canvasID, userID, clientID, models.ActivityCursorMove, map[string]any{
			"x": pos.X,
			"y": pos.Y,
		})
	}

	updated := cursor.Clone()
	r.mu.Unlock()

	r.publish(touchEv, moveEv)
	return updated
}

// RemoveCursor deletes the user's cursor without touching presence.
func (r *Registry) RemoveCursor(canvasID, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cs, ok := r.canvases[canvasID]; ok {
		delete(cs.cursors, userID)
	}
}

// ListCursors returns copies of all live cursors on the canvas.
func (r *Registry) ListCursors(canvasID string) []*models.CursorState {
	r.mu.Lock()
	defer r.mu.Unlock()

	cs, ok := r.canvases[canvasID]
	if !ok {
		return []*models.CursorState{}
	}

	out := make([]*models.CursorState, 0, len(cs.cursors))
	for _, cursor := range cs.cursors {
		out = append(out, cursor.Clone())
	}
	return out
}

// GetUserCursor returns a copy of one user's cursor, if visible.
func (r *Registry) GetUserCursor(canvasID, userID string) (*models.CursorState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cs, ok := r.canvases[canvasID]
	if !ok {
		return nil, false
	}
	cursor, ok := cs.cursors[userID]
	if !ok {
		return nil, false
	}
	return cursor.Clone(), true
}
