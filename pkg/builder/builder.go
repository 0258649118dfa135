// Package builder synthesizes the toolkit event described by an event record,
// the inverse of package recorder.
package builder

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"Puppeteer/pkg/logging"
	"Puppeteer/pkg/record"
	"Puppeteer/pkg/toolkit"
)

var (
	ErrInvalidType     = errors.New("invalid event type")
	ErrUnsupportedType = errors.New("unsupported event type")
	ErrNoTarget        = errors.New("no target object")
	ErrBadCoordinate   = errors.New("malformed coordinate")
	ErrNoKey           = errors.New("no or invalid key in key event")
)

// BuildError reports why a record could not be turned into an event.
type BuildError struct {
	Type string
	Err  error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("build %s event: %v", e.Type, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }

// GlobalMapper is implemented by objects that can map local coordinates to
// screen coordinates.
type GlobalMapper interface {
	MapToGlobal(p toolkit.Point) toolkit.Point
}

// positionResolver finds where to click inside a compound widget from the
// record's target hints. It may re-target the event to a sub-object.
type positionResolver func(target toolkit.Object, hints *record.RecordNode) (toolkit.Object, toolkit.Point, bool)

var positionResolvers = map[toolkit.TargetKind]positionResolver{
	toolkit.KindMenuBar:  menuBarPosition,
	toolkit.KindMenu:     menuPosition,
	toolkit.KindComboBox: comboBoxPosition,
}

// Build returns the receiver and the event to post for rec. The receiver is
// target unless position resolution moved the event to a sub-object.
func Build(target toolkit.Object, rec *record.EventRecord) (toolkit.Object, toolkit.Event, error) {
	typeName := rec.Type()
	t := toolkit.ParseEventType(typeName)
	if t == toolkit.EventNone {
		return nil, nil, &BuildError{Type: typeName, Err: ErrInvalidType}
	}
	if target == nil {
		return nil, nil, &BuildError{Type: typeName, Err: ErrNoTarget}
	}

	switch t {
	case toolkit.EventMouseButtonPress, toolkit.EventMouseButtonRelease:
		return buildMouseEvent(target, t, rec)
	case toolkit.EventKeyPress, toolkit.EventKeyRelease:
		ev, err := buildKeyEvent(t, rec)
		if err != nil {
			return nil, nil, err
		}
		return target, ev, nil
	default:
		return nil, nil, &BuildError{Type: typeName, Err: ErrUnsupportedType}
	}
}

func buildMouseEvent(target toolkit.Object, t toolkit.EventType, rec *record.EventRecord) (toolkit.Object, toolkit.Event, error) {
	button := toolkit.NoButton
	if v := rec.Attribute("button"); v != "" {
		button = toolkit.ParseButton(v)
	}

	// Recorded coordinates are widget-local and go negative when a release
	// lands outside the widget.
	var (
		pos        toolkit.Point
		hasX, hasY bool
	)
	for _, c := range []struct {
		attr string
		dst  *int
		set  *bool
	}{{"x", &pos.X, &hasX}, {"y", &pos.Y, &hasY}} {
		v := rec.Attribute(c.attr)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, nil, &BuildError{Type: t.String(), Err: fmt.Errorf("%w: %s=%q", ErrBadCoordinate, c.attr, v)}
		}
		*c.dst = n
		*c.set = true
	}

	warnModifiers(rec)

	receiver := target
	if !hasX && !hasY {
		if resolve, ok := positionResolvers[target.Kind()]; ok {
			if obj, p, found := resolve(target, rec.TargetHints()); found {
				receiver, pos, hasX, hasY = obj, p, true, true
			}
		}
	}

	if !hasX || !hasY {
		size := receiver.Size()
		if !hasX && !hasY {
			logging.LogInfo("builder").
				Str("objectPath", rec.ObjectPath()).
				Msg("No position given, aiming dead center")
		}
		if !hasX {
			pos.X = size.Width / 2
		}
		if !hasY {
			pos.Y = size.Height / 2
		}
	}

	// A lone synthetic event must report a button state consistent with a
	// press-then-release sequence: held on press, released on release.
	var buttons toolkit.MouseButtons
	if t == toolkit.EventMouseButtonPress {
		buttons = toolkit.MouseButtons(button)
	}

	global := pos
	if m, ok := receiver.(GlobalMapper); ok {
		global = m.MapToGlobal(pos)
	}

	return receiver, &toolkit.MouseEvent{
		Kind:      t,
		Pos:       pos,
		GlobalPos: global,
		Button:    button,
		Buttons:   buttons,
	}, nil
}

func buildKeyEvent(t toolkit.EventType, rec *record.EventRecord) (toolkit.Event, error) {
	var key toolkit.Key
	if v := rec.Attribute("key"); v != "" {
		key = toolkit.ParseKey(v)
	}
	if key == 0 {
		return nil, &BuildError{Type: t.String(), Err: ErrNoKey}
	}

	warnModifiers(rec)

	return &toolkit.KeyEvent{Kind: t, Key: key, Text: rec.Attribute("text")}, nil
}

// warnModifiers notes modifier strings, which are not decoded into injected
// events.
func warnModifiers(rec *record.EventRecord) {
	if v := rec.Attribute("keyboardModifiers"); v != "" && v != "none" {
		logging.LogWarn("builder").
			Str("keyboardModifiers", v).
			Msg("Modifier decoding is not supported; sending event without modifiers")
	}
}

// ========================================
// Position resolvers
// ========================================

func wantedActionText(hints *record.RecordNode) string {
	if hints == nil {
		return ""
	}
	action := hints.Child("action")
	if action == nil {
		return ""
	}
	return action.Attribute("text")
}

// menuBarPosition scans the vertical middle of a menu bar in 10 pixel steps
// for the hinted action.
func menuBarPosition(target toolkit.Object, hints *record.RecordNode) (toolkit.Object, toolkit.Point, bool) {
	container, ok := target.(toolkit.ActionContainer)
	want := wantedActionText(hints)
	if !ok || want == "" {
		return nil, toolkit.Point{}, false
	}

	size := target.Size()
	y := size.Height / 2
	for x := 5; x < size.Width; x += 10 {
		p := toolkit.Point{X: x, Y: y}
		if findsAction(container, p, want) {
			return target, p, true
		}
	}

	logging.LogWarn("builder").Str("action", want).Msg("Menu bar has no such action")
	return nil, toolkit.Point{}, false
}

// menuPosition scans the horizontal middle of a menu in 9 pixel steps.
func menuPosition(target toolkit.Object, hints *record.RecordNode) (toolkit.Object, toolkit.Point, bool) {
	container, ok := target.(toolkit.ActionContainer)
	want := wantedActionText(hints)
	if !ok || want == "" {
		return nil, toolkit.Point{}, false
	}

	size := target.Size()
	x := size.Width / 2
	for y := 5; y < size.Height; y += 9 {
		p := toolkit.Point{X: x, Y: y}
		if findsAction(container, p, want) {
			return target, p, true
		}
	}

	logging.LogWarn("builder").Str("action", want).Msg("Menu has no such action")
	return nil, toolkit.Point{}, false
}

func findsAction(container toolkit.ActionContainer, p toolkit.Point, want string) bool {
	a := container.ActionAt(p)
	if a == nil || toolkit.StripMnemonic(a.Text) != want {
		return false
	}
	logging.LogDebug("builder").Str("action", want).Int("x", p.X).Int("y", p.Y).Msg("Found action")
	return true
}

// comboBoxPosition aims at the hinted item in the open popup of a combo box
// and re-targets the event to the popup's viewport.
func comboBoxPosition(target toolkit.Object, hints *record.RecordNode) (toolkit.Object, toolkit.Point, bool) {
	combo, ok := target.(toolkit.ComboBox)
	if !ok || hints == nil {
		return nil, toolkit.Point{}, false
	}
	item := hints.Child("item")
	if item == nil {
		return nil, toolkit.Point{}, false
	}
	want := item.Attribute("text")
	if want == "" {
		return nil, toolkit.Point{}, false
	}

	index := combo.FindText(want)
	if index < 0 {
		return nil, toolkit.Point{}, false
	}

	view := combo.Popup()
	if view == nil || view.Hidden() {
		return nil, toolkit.Point{}, false
	}

	view.ScrollTo(index)
	r := view.VisualRect(index)
	if !r.Valid() {
		return nil, toolkit.Point{}, false
	}

	p := r.Center()
	if got := view.IndexAt(p); got != index {
		logging.LogWarn("builder").Int("want", index).Int("got", got).Msg("Index under item center disagrees")
	}
	if got := view.ItemText(view.IndexAt(p)); got != want {
		logging.LogWarn("builder").Str("want", want).Str("got", got).Msg("Item under pointer has unexpected text")
		return nil, toolkit.Point{}, false
	}

	return view.Viewport(), p, true
}
