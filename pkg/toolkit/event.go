package toolkit

// Point is a position in widget-local or global coordinates.
type Point struct {
	X, Y int
}

// Size is a widget extent.
type Size struct {
	Width, Height int
}

// Rect is an axis aligned rectangle.
type Rect struct {
	X, Y, Width, Height int
}

// Valid reports whether the rectangle has a positive area.
func (r Rect) Valid() bool {
	return r.Width > 0 && r.Height > 0
}

// Center returns the center point of the rectangle
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Contains checks if point p is inside the rectangle
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X < r.X+r.Width && p.Y >= r.Y && p.Y < r.Y+r.Height
}

// Event is anything delivered through the application event stream.
type Event interface {
	Type() EventType
}

// BasicEvent carries no payload beyond its type (focus, show, activation...).
type BasicEvent struct {
	Kind EventType
}

func (e *BasicEvent) Type() EventType { return e.Kind }

// MouseEvent is a button press or release.
type MouseEvent struct {
	Kind      EventType
	Pos       Point
	GlobalPos Point
	Button    MouseButton
	Buttons   MouseButtons
	Modifiers KeyboardModifiers
}

func (e *MouseEvent) Type() EventType { return e.Kind }

// KeyEvent is a key press or release.
type KeyEvent struct {
	Kind      EventType
	Key       Key
	Modifiers KeyboardModifiers
	Text      string
}

func (e *KeyEvent) Type() EventType { return e.Kind }
