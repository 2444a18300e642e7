package registry

import (
	"testing"
	"time"

	"drawboard/internal/models"
)

func presenceStatus(t *testing.T, reg *Registry, canvasID, userID string) models.PresenceStatus {
	t.Helper()

	for _, entry := range reg.ListPresence(canvasID) {
		if entry.UserID == userID {
			return entry.Status
		}
	}
	t.Fatalf("user %s not present in %s", userID, canvasID)
	return ""
}

func TestAddPresence(t *testing.T) {
	reg, _, rec := newTestRegistry(t)

	entry := reg.AddPresence("canvas-1", "user-alice", "client-1", alice(), models.RoleEditor)
	if entry.Status != models.StatusActive {
		t.Errorf("Status = %q, want active", entry.Status)
	}
	if entry.Role != models.RoleEditor {
		t.Errorf("Role = %q, want editor", entry.Role)
	}

	roster := reg.ListPresence("canvas-1")
	if len(roster) != 1 {
		t.Fatalf("roster = %d, want 1", len(roster))
	}
	if n := rec.countOf(models.ActivityJoin); n != 1 {
		t.Errorf("join events = %d, want 1", n)
	}
}

func TestRemovePresenceNeverAdded(t *testing.T) {
	reg, _, rec := newTestRegistry(t)

	reg.AddPresence("canvas-1", "user-alice", "client-1", alice(), models.RoleEditor)

	// Removing a user who never joined is a quiet no-op: no event, no
	// roster change.
	if reg.RemovePresence("canvas-1", "user-bob", "client-2") {
		t.Error("expected no-op removal to report false")
	}
	if reg.RemovePresence("unknown-canvas", "user-alice", "client-1") {
		t.Error("expected unknown-canvas removal to report false")
	}
	if len(reg.ListPresence("canvas-1")) != 1 {
		t.Error("roster changed by no-op removal")
	}
	if n := rec.countOf(models.ActivityLeave); n != 0 {
		t.Errorf("leave events = %d, want 0", n)
	}
}

func TestRemovePresence(t *testing.T) {
	reg, _, rec := newTestRegistry(t)

	reg.AddPresence("canvas-1", "user-alice", "client-1", alice(), models.RoleEditor)
	reg.UpdateCursor("canvas-1", "user-alice", "client-1", models.Point{X: 5, Y: 5}, true, "pen", alice())

	if !reg.RemovePresence("canvas-1", "user-alice", "client-1") {
		t.Fatal("expected removal to report true")
	}
	if len(reg.ListPresence("canvas-1")) != 0 {
		t.Error("roster not empty after removal")
	}
	// The cursor leaves with the presence entry.
	if len(reg.ListCursors("canvas-1")) != 0 {
		t.Error("cursor survived presence removal")
	}
	if n := rec.countOf(models.ActivityLeave); n != 1 {
		t.Errorf("leave events = %d, want 1", n)
	}
}

func TestPresenceDecay(t *testing.T) {
	t.Run("active to idle to away", func(t *testing.T) {
		reg, clock, rec := newTestRegistry(t)

		reg.AddPresence("canvas-1", "user-alice", "client-1", alice(), models.RoleEditor)

		clock.Advance(2 * time.Minute)
		if got := presenceStatus(t, reg, "canvas-1", "user-alice"); got != models.StatusIdle {
			t.Fatalf("status after idle threshold = %q, want idle", got)
		}

		clock.Advance(3 * time.Minute)
		if got := presenceStatus(t, reg, "canvas-1", "user-alice"); got != models.StatusAway {
			t.Fatalf("status after away threshold = %q, want away", got)
		}

		types := rec.types()
		if len(types) != 3 || types[0] != models.ActivityJoin || types[1] != models.ActivityIdle || types[2] != models.ActivityAway {
			t.Errorf("event order = %v, want [join idle away]", types)
		}
	})

	t.Run("single late fire skips straight to away", func(t *testing.T) {
		reg, clock, _ := newTestRegistry(t)

		reg.AddPresence("canvas-1", "user-alice", "client-1", alice(), models.RoleEditor)

		// One big jump: by the time the idle timer fires, total
		// inactivity already exceeds the away threshold.
		clock.Advance(10 * time.Minute)
		if got := presenceStatus(t, reg, "canvas-1", "user-alice"); got != models.StatusAway {
			t.Fatalf("status = %q, want away", got)
		}
	})

	t.Run("touch resets to active", func(t *testing.T) {
		reg, clock, rec := newTestRegistry(t)

		reg.AddPresence("canvas-1", "user-alice", "client-1", alice(), models.RoleEditor)

		clock.Advance(2 * time.Minute)
		if got := presenceStatus(t, reg, "canvas-1", "user-alice"); got != models.StatusIdle {
			t.Fatalf("status = %q, want idle", got)
		}

		reg.TouchActivity("canvas-1", "user-alice", "client-1")
		if got := presenceStatus(t, reg, "canvas-1", "user-alice"); got != models.StatusActive {
			t.Fatalf("status after touch = %q, want active", got)
		}
		if n := rec.countOf(models.ActivityActive); n != 1 {
			t.Errorf("active events = %d, want 1", n)
		}

		// The cycle restarts from the touch.
		clock.Advance(2 * time.Minute)
		if got := presenceStatus(t, reg, "canvas-1", "user-alice"); got != models.StatusIdle {
			t.Fatalf("status after renewed idle threshold = %q, want idle", got)
		}
	})

	t.Run("touch while active emits no event", func(t *testing.T) {
		reg, clock, rec := newTestRegistry(t)

		reg.AddPresence("canvas-1", "user-alice", "client-1", alice(), models.RoleEditor)
		clock.Advance(30 * time.Second)
		reg.TouchActivity("canvas-1", "user-alice", "client-1")

		if n := rec.countOf(models.ActivityActive); n != 0 {
			t.Errorf("active events = %d, want 0", n)
		}
	})

	t.Run("removal cancels pending timers", func(t *testing.T) {
		reg, clock, rec := newTestRegistry(t)

		reg.AddPresence("canvas-1", "user-alice", "client-1", alice(), models.RoleEditor)
		reg.RemovePresence("canvas-1", "user-alice", "client-1")

		clock.Advance(10 * time.Minute)
		if n := rec.countOf(models.ActivityIdle) + rec.countOf(models.ActivityAway); n != 0 {
			t.Errorf("decay events after removal = %d, want 0", n)
		}
	})
}

func TestCleanupUserState(t *testing.T) {
	reg, _, _ := newTestRegistry(t)

	// Two clients of the same user in different canvases.
	reg.AddPresence("canvas-1", "user-alice", "client-1", alice(), models.RoleEditor)
	reg.AddPresence("canvas-2", "user-alice", "client-2", alice(), models.RoleEditor)

	affected := reg.CleanupUserState("user-alice", "client-1")
	if len(affected) != 2 {
		t.Fatalf("affected canvases = %v, want 2", affected)
	}
	if len(reg.ListPresence("canvas-1")) != 0 || len(reg.ListPresence("canvas-2")) != 0 {
		t.Error("presence survived cleanup")
	}

	stats := reg.GetStats()
	if stats.ActiveUsers != 0 {
		t.Errorf("ActiveUsers after cleanup = %d, want 0", stats.ActiveUsers)
	}
	if stats.ActiveClients != 0 {
		t.Errorf("ActiveClients after cleanup = %d, want 0", stats.ActiveClients)
	}

	// Cleanup of an unknown user touches nothing.
	if affected := reg.CleanupUserState("user-ghost", "client-9"); len(affected) != 0 {
		t.Errorf("unknown user cleanup = %v, want empty", affected)
	}
}

func TestSecondClientSameCanvas(t *testing.T) {
	reg, _, _ := newTestRegistry(t)

	// Same user opens the same canvas in two tabs: the second client
	// takes over the seat, it does not add one.
	reg.AddPresence("canvas-1", "user-alice", "client-1", alice(), models.RoleEditor)
	entry := reg.AddPresence("canvas-1", "user-alice", "client-2", alice(), models.RoleEditor)
	if entry.ClientID != "client-2" {
		t.Errorf("ClientID = %q, want client-2", entry.ClientID)
	}
	if n := len(reg.ListPresence("canvas-1")); n != 1 {
		t.Fatalf("roster size = %d, want 1", n)
	}

	stats := reg.GetStats()
	if stats.ActiveUsers != 1 || stats.ActiveClients != 1 {
		t.Errorf("stats = %d users / %d clients, want 1/1", stats.ActiveUsers, stats.ActiveClients)
	}

	reg.RemovePresence("canvas-1", "user-alice", "client-2")
	reg.CleanupUserState("user-alice", "client-1")

	stats = reg.GetStats()
	if stats.ActiveUsers != 0 {
		t.Errorf("ActiveUsers after teardown = %d, want 0", stats.ActiveUsers)
	}
	if stats.ActiveClients != 0 {
		t.Errorf("ActiveClients after teardown = %d, want 0", stats.ActiveClients)
	}
}

func TestSwitchCanvas(t *testing.T) {
	reg, _, rec := newTestRegistry(t)

	reg.AddPresence("canvas-1", "user-alice", "client-1", alice(), models.RoleEditor)
	entry := reg.SwitchCanvas("user-alice", "client-1", "", "canvas-2", alice(), models.RoleEditor)

	if entry.Status != models.StatusActive {
		t.Errorf("Status after switch = %q, want active", entry.Status)
	}
	if len(reg.ListPresence("canvas-1")) != 0 {
		t.Error("still present in origin canvas")
	}
	if len(reg.ListPresence("canvas-2")) != 1 {
		t.Error("not present in destination canvas")
	}

	// leave on the origin, join on the destination.
	if n := rec.countOf(models.ActivityLeave); n != 1 {
		t.Errorf("leave events = %d, want 1", n)
	}
	if n := rec.countOf(models.ActivityJoin); n != 2 {
		t.Errorf("join events = %d, want 2", n)
	}
}

func TestActivityLogBounded(t *testing.T) {
	reg, _, _ := newTestRegistry(t)

	reg.AddPresence("canvas-1", "user-alice", "client-1", alice(), models.RoleEditor)
	for i := 0; i < 150; i++ {
		reg.AddObject("canvas-1", &models.CanvasObject{Type: models.ObjectPath}, "user-alice", "client-1")
	}

	logCap := testConfig().ActivityLogCap
	recent := reg.RecentActivity("canvas-1", 0)
	if len(recent) != logCap {
		t.Fatalf("activity log length = %d, want %d", len(recent), logCap)
	}

	// Oldest entries were trimmed first: the join should be long gone
	// and only object_create events remain, oldest first.
	for _, ev := range recent {
		if ev.Type != models.ActivityObjectCreate {
			t.Fatalf("unexpected surviving event type %q", ev.Type)
		}
	}
	if recent[0].Timestamp.After(recent[len(recent)-1].Timestamp) {
		t.Error("expected oldest-first ordering")
	}

	// Limit caps the returned slice from the newest end.
	if got := len(reg.RecentActivity("canvas-1", 10)); got != 10 {
		t.Errorf("limited activity = %d, want 10", got)
	}
}
