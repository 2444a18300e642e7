package models

import "time"

type ObjectType string

const (
	ObjectRectangle ObjectType = "rectangle"
	ObjectEllipse   ObjectType = "ellipse"
	ObjectLine      ObjectType = "line"
	ObjectPath      ObjectType = "path"
	ObjectText      ObjectType = "text"
)

// Point is a single coordinate in canvas space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// CanvasObject is the in-memory snapshot of one drawn shape.
// The registry owns the authoritative copy; clients only ever see
// deep copies of it (see registry.GetSnapshot).
type CanvasObject struct {
	ID          string     `json:"id"`
	Type        ObjectType `json:"type"`
	X           float64    `json:"x"`
	Y           float64    `json:"y"`
	Width       float64    `json:"width"`
	Height      float64    `json:"height"`
	Rotation    float64    `json:"rotation,omitempty"`
	Points      []Point    `json:"points,omitempty"`
	Fill        string     `json:"fill,omitempty"`
	Stroke      string     `json:"stroke,omitempty"`
	StrokeWidth float64    `json:"stroke_width,omitempty"`
	Text        string     `json:"text,omitempty"`
	CreatedBy   string     `json:"created_by"`
	UpdatedBy   string     `json:"updated_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Clone returns an independent copy of the object.
func (o *CanvasObject) Clone() *CanvasObject {
	dup := *o
	if o.Points != nil {
		dup.Points = make([]Point, len(o.Points))
		copy(dup.Points, o.Points)
	}
	return &dup
}

// ObjectUpdate is a partial update: nil fields are left untouched.
type ObjectUpdate struct {
	X           *float64 `json:"x,omitempty"`
	Y           *float64 `json:"y,omitempty"`
	Width       *float64 `json:"width,omitempty"`
	Height      *float64 `json:"height,omitempty"`
	Rotation    *float64 `json:"rotation,omitempty"`
	Points      []Point  `json:"points,omitempty"`
	Fill        *string  `json:"fill,omitempty"`
	Stroke      *string  `json:"stroke,omitempty"`
	StrokeWidth *float64 `json:"stroke_width,omitempty"`
	Text        *string  `json:"text,omitempty"`
}

// Apply merges the non-nil fields of the update into the object.
func (o *CanvasObject) Apply(u *ObjectUpdate) {
	if u == nil {
		return
	}
	if u.X != nil {
		o.X = *u.X
	}
	if u.Y != nil {
		o.Y = *u.Y
	}
	if u.Width != nil {
		o.Width = *u.Width
	}
	if u.Height != nil {
		o.Height = *u.Height
	}
	if u.Rotation != nil {
		o.Rotation = *u.Rotation
	}
	if u.Points != nil {
		o.Points = make([]Point, len(u.Points))
		copy(o.Points, u.Points)
	}
	if u.Fill != nil {
		o.Fill = *u.Fill
	}
	if u.Stroke != nil {
		o.Stroke = *u.Stroke
	}
	if u.StrokeWidth != nil {
		o.StrokeWidth = *u.StrokeWidth
	}
	if u.Text != nil {
		o.Text = *u.Text
	}
}
