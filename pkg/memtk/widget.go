package memtk

import (
	"strconv"

	"Puppeteer/pkg/toolkit"
)

// Class chains, most derived first.
var (
	classWidget     = []string{"Widget", "Object"}
	classMainWindow = []string{"MainWindow", "Widget", "Object"}
	classFrame      = []string{"Frame", "Widget", "Object"}
	classLabel      = []string{"Label", "Frame", "Widget", "Object"}
	classPushButton = []string{"PushButton", "AbstractButton", "Widget", "Object"}
	classLineEdit   = []string{"LineEdit", "Widget", "Object"}
	classComboBox   = []string{"ComboBox", "Widget", "Object"}
	classMenuBar    = []string{"MenuBar", "Widget", "Object"}
	classMenu       = []string{"Menu", "Widget", "Object"}
	classListView   = []string{"ListView", "AbstractItemView", "AbstractScrollArea", "Frame", "Widget", "Object"}
	classViewport   = []string{"Viewport", "Widget", "Object"}
)

// based is implemented by every memtk object through the embedded *Widget.
type based interface {
	base() *Widget
}

func widgetOf(obj toolkit.Object) *Widget {
	if b, ok := obj.(based); ok {
		return b.base()
	}
	return nil
}

// Widget is the common part of every memtk object. The self field points at
// the outermost wrapper (Button, Menu...) so tree walks hand out the full type.
type Widget struct {
	app       *App
	self      toolkit.Object
	name      string
	classes   []string
	parent    *Widget
	children  []*Widget
	props     map[string]string
	geom      toolkit.Rect
	kind      toolkit.TargetKind
	hidden    bool
	disabled  bool
	focusable bool
	handler   func(ev toolkit.Event)
}

func newWidget(app *App, parent *Widget, classes []string, name string) *Widget {
	w := &Widget{
		app:     app,
		name:    name,
		classes: classes,
		parent:  parent,
		props:   make(map[string]string),
		geom:    toolkit.Rect{Width: 100, Height: 30},
	}
	w.self = w
	if parent != nil {
		parent.children = append(parent.children, w)
	} else {
		app.windows = append(app.windows, w)
	}
	return w
}

// NewWidget creates a plain widget. A nil parent makes it a top-level window.
func (a *App) NewWidget(parent *Widget, name string) *Widget {
	return newWidget(a, parent, classWidget, name)
}

// NewMainWindow creates a top-level main window.
func (a *App) NewMainWindow(name string) *Widget {
	return newWidget(a, nil, classMainWindow, name)
}

// NewFrame creates a container frame.
func NewFrame(parent *Widget, name string) *Widget {
	return newWidget(parent.app, parent, classFrame, name)
}

func (w *Widget) base() *Widget { return w }

func (w *Widget) ObjectName() string { return w.name }

// SetObjectName renames the widget.
func (w *Widget) SetObjectName(name string) { w.name = name }

func (w *Widget) ClassName() string { return w.classes[0] }

func (w *Widget) Inherits(className string) bool {
	for _, c := range w.classes {
		if c == className {
			return true
		}
	}
	return false
}

func (w *Widget) Parent() toolkit.Object {
	if w.parent == nil {
		return nil
	}
	return w.parent.self
}

func (w *Widget) Children() []toolkit.Object {
	out := make([]toolkit.Object, 0, len(w.children))
	for _, c := range w.children {
		out = append(out, c.self)
	}
	return out
}

// Property serves objectName, enabled and visible plus any string property
// set with SetProperty.
func (w *Widget) Property(name string) (string, bool) {
	switch name {
	case "objectName":
		return w.name, true
	case "enabled":
		return strconv.FormatBool(!w.disabled), true
	case "visible":
		return strconv.FormatBool(w.IsVisible()), true
	}
	v, ok := w.props[name]
	return v, ok
}

// SetProperty sets a string property.
func (w *Widget) SetProperty(name, value string) { w.props[name] = value }

func (w *Widget) Kind() toolkit.TargetKind { return w.kind }

func (w *Widget) Size() toolkit.Size {
	return toolkit.Size{Width: w.geom.Width, Height: w.geom.Height}
}

// SetGeometry places the widget relative to its parent.
func (w *Widget) SetGeometry(x, y, width, height int) {
	w.geom = toolkit.Rect{X: x, Y: y, Width: width, Height: height}
}

// Geometry returns the rectangle relative to the parent.
func (w *Widget) Geometry() toolkit.Rect { return w.geom }

// MapToGlobal converts a widget-local point to screen coordinates.
func (w *Widget) MapToGlobal(p toolkit.Point) toolkit.Point {
	for cur := w; cur != nil; cur = cur.parent {
		p.X += cur.geom.X
		p.Y += cur.geom.Y
	}
	return p
}

// IsVisible reports whether the widget and all its ancestors are shown.
func (w *Widget) IsVisible() bool {
	for cur := w; cur != nil; cur = cur.parent {
		if cur.hidden {
			return false
		}
	}
	return true
}

// Show marks the widget visible and posts a Show event to it.
func (w *Widget) Show() {
	w.hidden = false
	w.app.post(w, &toolkit.BasicEvent{Kind: toolkit.EventShow})
}

// Hide marks the widget hidden and posts a Hide event to it.
func (w *Widget) Hide() {
	if w.hidden {
		return
	}
	w.hidden = true
	if w.app.focus != nil && !w.app.focus.IsVisible() {
		w.app.focus = nil
	}
	w.app.post(w, &toolkit.BasicEvent{Kind: toolkit.EventHide})
}

func (w *Widget) SetEnabled(enabled bool) { w.disabled = !enabled }

func (w *Widget) IsEnabled() bool { return !w.disabled }

// SetFocusable controls whether SetFocus and clicks may give the widget focus.
func (w *Widget) SetFocusable(focusable bool) { w.focusable = focusable }

func (w *Widget) acceptsFocus() bool {
	return w.focusable && !w.disabled && w.IsVisible()
}

// HasFocus reports whether the widget is the focus widget.
func (w *Widget) HasFocus() bool { return w.app.focus == w }

func (w *Widget) handle(ev toolkit.Event) {
	if w.disabled {
		switch ev.Type() {
		case toolkit.EventMouseButtonPress, toolkit.EventMouseButtonRelease,
			toolkit.EventKeyPress, toolkit.EventKeyRelease:
			return
		}
	}
	if me, ok := ev.(*toolkit.MouseEvent); ok && me.Kind == toolkit.EventMouseButtonPress && w.acceptsFocus() {
		w.app.SetFocus(w.self)
	}
	if w.handler != nil {
		w.handler(ev)
	}
}
