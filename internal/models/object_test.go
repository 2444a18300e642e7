package models

import "testing"

func TestObjectApply(t *testing.T) {
	obj := &CanvasObject{
		Type:   ObjectRectangle,
		X:      10,
		Y:      20,
		Width:  100,
		Height: 50,
		Fill:   "#ff0000",
	}

	newX := 42.0
	newFill := "#00ff00"
	obj.Apply(&ObjectUpdate{X: &newX, Fill: &newFill})

	if obj.X != 42 {
		t.Errorf("X = %v, want 42", obj.X)
	}
	if obj.Fill != "#00ff00" {
		t.Errorf("Fill = %q, want #00ff00", obj.Fill)
	}
	// Untouched fields keep their values.
	if obj.Y != 20 || obj.Width != 100 || obj.Height != 50 {
		t.Errorf("unrelated fields changed: %+v", obj)
	}

	// nil update is a no-op.
	obj.Apply(nil)
	if obj.X != 42 {
		t.Errorf("X after nil apply = %v, want 42", obj.X)
	}
}

func TestObjectClone(t *testing.T) {
	obj := &CanvasObject{
		Type:   ObjectPath,
		Points: []Point{{X: 1, Y: 1}, {X: 2, Y: 2}},
	}

	dup := obj.Clone()
	dup.Points[0].X = 99

	if obj.Points[0].X != 1 {
		t.Error("clone shares the points slice with the original")
	}
}

func TestActivityEventAudited(t *testing.T) {
	audited := []ActivityType{ActivityJoin, ActivityLeave, ActivityObjectCreate, ActivityObjectDelete}
	for _, typ := range audited {
		if !(&ActivityEvent{Type: typ}).Audited() {
			t.Errorf("%s should be audited", typ)
		}
	}

	transient := []ActivityType{ActivityCursorMove, ActivityObjectUpdate, ActivityIdle, ActivityAway, ActivityActive}
	for _, typ := range transient {
		if (&ActivityEvent{Type: typ}).Audited() {
			t.Errorf("%s should not be audited", typ)
		}
	}
}
