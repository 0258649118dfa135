// Package toolkit defines the narrow surface Puppeteer needs from a host UI
// toolkit: an object tree with names and properties, a single interceptable
// event stream, event injection, keyboard focus and single-shot timers.
//
// Nothing in this package talks to a real widget set. Adapters for a concrete
// toolkit implement these interfaces; pkg/memtk is the headless one used by
// the tests and the demo.
package toolkit

import "time"

// TargetKind tags objects whose click position can be re-derived at playback
// time from target hints instead of recorded coordinates.
type TargetKind int

const (
	KindWidget TargetKind = iota
	KindMenuBar
	KindMenu
	KindComboBox
)

func (k TargetKind) String() string {
	switch k {
	case KindMenuBar:
		return "menubar"
	case KindMenu:
		return "menu"
	case KindComboBox:
		return "combobox"
	default:
		return "widget"
	}
}

// Object is a live UI object.
type Object interface {
	ObjectName() string
	ClassName() string
	// Inherits reports whether the object's class is className or derives from it.
	Inherits(className string) bool
	Parent() Object
	Children() []Object
	// Property returns the string form of a named property. ok is false when the
	// object has no such property or it holds no value.
	Property(name string) (value string, ok bool)
	Kind() TargetKind
	Size() Size
}

// ActionInfo describes a menu entry found under a position.
type ActionInfo struct {
	Text     string
	IconText string
	Data     *Variant
}

// Variant is a typed data value attached to an action or item.
type Variant struct {
	Type  string
	Value string
}

// ActionContainer is implemented by objects of kind KindMenuBar and KindMenu.
type ActionContainer interface {
	Object
	ActionAt(p Point) *ActionInfo
}

// ComboBox is implemented by objects of kind KindComboBox.
type ComboBox interface {
	Object
	// FindText returns the index of the item with the given text, or -1.
	FindText(text string) int
	Popup() ItemView
}

// ItemView is the popup list of a combo box.
type ItemView interface {
	Hidden() bool
	ScrollTo(index int)
	VisualRect(index int) Rect
	// IndexAt returns the item index under p, or -1.
	IndexAt(p Point) int
	ItemText(index int) string
	Viewport() Object
}

// EventFilter observes every application-level event before delivery.
// Returning true swallows the event.
type EventFilter interface {
	FilterEvent(receiver Object, ev Event) bool
}

// EventFilterFunc adapts a function literal to the EventFilter interface.
type EventFilterFunc func(receiver Object, ev Event) bool

// FilterEvent calls the underlying function.
func (f EventFilterFunc) FilterEvent(receiver Object, ev Event) bool {
	return f(receiver, ev)
}

// Timer is a single-shot timer whose callback runs on the UI loop.
type Timer interface {
	Start(interval time.Duration)
	Stop()
	Active() bool
	Interval() time.Duration
}

// Application is the running application seen through its event loop.
// All methods must be called from the loop.
type Application interface {
	TopLevelObjects() []Object
	FocusObject() Object
	SetFocus(obj Object)
	PostEvent(receiver Object, ev Event)
	InstallEventFilter(f EventFilter)
	RemoveEventFilter(f EventFilter)
	NewTimer(callback func()) Timer
	OnAboutToQuit(callback func())
}
