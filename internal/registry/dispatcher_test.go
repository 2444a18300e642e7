package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"drawboard/internal/models"
)

type storeCall struct {
	op       string
	canvasID string
	objectID string
}

// fakeStore records persistence calls on a channel so tests can wait
// for the async workers without sleeping.
type fakeStore struct {
	calls chan storeCall
	err   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{calls: make(chan storeCall, 16)}
}

func (s *fakeStore) AddObject(ctx context.Context, canvasID string, object *models.CanvasObject) error {
	s.calls <- storeCall{op: "add", canvasID: canvasID, objectID: object.ID}
	return s.err
}

func (s *fakeStore) UpdateObject(ctx context.Context, canvasID, objectID string, update *models.ObjectUpdate) error {
	s.calls <- storeCall{op: "update", canvasID: canvasID, objectID: objectID}
	return s.err
}

func (s *fakeStore) RemoveObject(ctx context.Context, canvasID, objectID string) error {
	s.calls <- storeCall{op: "remove", canvasID: canvasID, objectID: objectID}
	return s.err
}

func (s *fakeStore) Clear(ctx context.Context, canvasID string) error {
	s.calls <- storeCall{op: "clear", canvasID: canvasID}
	return s.err
}

type fakeAudit struct {
	calls chan models.ActivityType
	err   error
}

func newFakeAudit() *fakeAudit {
	return &fakeAudit{calls: make(chan models.ActivityType, 16)}
}

func (a *fakeAudit) Record(ctx context.Context, event *models.ActivityEvent) error {
	a.calls <- event.Type
	return a.err
}

func waitStoreCall(t *testing.T, s *fakeStore) storeCall {
	t.Helper()

	select {
	case call := <-s.calls:
		return call
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for store call")
		return storeCall{}
	}
}

func waitAuditCall(t *testing.T, a *fakeAudit) models.ActivityType {
	t.Helper()

	select {
	case typ := <-a.calls:
		return typ
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for audit call")
		return ""
	}
}

func TestDispatcherPersistsMutations(t *testing.T) {
	store := newFakeStore()
	audit := newFakeAudit()

	reg := New(store, audit, newFakeClock(time.Now()), testConfig())
	reg.Start()
	defer reg.Shutdown()

	stored := reg.AddObject("canvas-1", &models.CanvasObject{Type: models.ObjectRectangle}, "user-alice", "client-1")

	call := waitStoreCall(t, store)
	if call.op != "add" || call.canvasID != "canvas-1" || call.objectID != stored.ID {
		t.Errorf("store call = %+v, want add of %s", call, stored.ID)
	}
	if typ := waitAuditCall(t, audit); typ != models.ActivityObjectCreate {
		t.Errorf("audit type = %q, want object_create", typ)
	}

	newX := 5.0
	if _, err := reg.UpdateObject("canvas-1", stored.ID, &models.ObjectUpdate{X: &newX}, "user-alice", "client-1"); err != nil {
		t.Fatalf("UpdateObject error: %v", err)
	}
	if call := waitStoreCall(t, store); call.op != "update" {
		t.Errorf("store call = %+v, want update", call)
	}

	reg.ClearCanvas("canvas-1", "user-alice", "client-1")
	if call := waitStoreCall(t, store); call.op != "clear" {
		t.Errorf("store call = %+v, want clear", call)
	}
	if typ := waitAuditCall(t, audit); typ != models.ActivityObjectDelete {
		t.Errorf("audit type = %q, want object_delete", typ)
	}
}

func TestDispatcherFailureDoesNotRollBack(t *testing.T) {
	store := newFakeStore()
	store.err = errors.New("database down")

	reg := New(store, nil, newFakeClock(time.Now()), testConfig())
	reg.Start()
	defer reg.Shutdown()

	stored := reg.AddObject("canvas-1", &models.CanvasObject{Type: models.ObjectText, Text: "hi"}, "user-alice", "client-1")
	waitStoreCall(t, store)

	// The durable write failed but the edit the user saw stands.
	objects := reg.GetObjects("canvas-1")
	if len(objects) != 1 || objects[0].ID != stored.ID {
		t.Errorf("in-memory state rolled back: %+v", objects)
	}
}

func TestDispatcherSubmitDuringShutdown(t *testing.T) {
	store := newFakeStore()

	reg := New(store, nil, newFakeClock(time.Now()), testConfig())
	reg.Start()
	reg.Shutdown()

	// A mutation arriving after teardown, e.g. a disconnect racing
	// process shutdown, drops its durable write instead of panicking
	// on the closed queue.
	stored := reg.AddObject("canvas-1", &models.CanvasObject{Type: models.ObjectRectangle}, "user-alice", "client-1")
	if stored == nil {
		t.Fatal("AddObject returned nil")
	}

	select {
	case call := <-store.calls:
		t.Errorf("unexpected store call after shutdown: %+v", call)
	case <-time.After(50 * time.Millisecond):
	}

	// Shutdown stays idempotent.
	reg.Shutdown()
}

func TestDispatcherAuditSubset(t *testing.T) {
	audit := newFakeAudit()

	reg := New(nil, audit, newFakeClock(time.Now()), testConfig())
	reg.Start()
	defer reg.Shutdown()

	reg.AddPresence("canvas-1", "user-alice", "client-1", alice(), models.RoleEditor)
	if typ := waitAuditCall(t, audit); typ != models.ActivityJoin {
		t.Errorf("audit type = %q, want join", typ)
	}

	// Cursor movement is high-frequency noise and never audited.
	reg.UpdateCursor("canvas-1", "user-alice", "client-1", models.Point{X: 1, Y: 1}, true, "pen", alice())

	reg.RemovePresence("canvas-1", "user-alice", "client-1")
	if typ := waitAuditCall(t, audit); typ != models.ActivityLeave {
		t.Errorf("audit type = %q, want leave (cursor moves must not be audited)", typ)
	}
}
