// Package recorder turns live toolkit events into event records.
package recorder

import (
	"fmt"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"Puppeteer/pkg/record"
	"Puppeteer/pkg/resolver"
	"Puppeteer/pkg/toolkit"
)

// Options configures a Recorder.
type Options struct {
	// Now is the clock used for timestamps and throttling. Defaults to time.Now.
	Now func() time.Time
	// MaxEventsPerSecond caps how many records Allow admits. Zero disables the cap.
	MaxEventsPerSecond float64
	// Burst is the number of records admitted at once when throttled. Defaults to 1.
	Burst int
}

// Recorder builds event records. It never fails: anything it cannot find out
// about an event is simply left out of the record.
type Recorder struct {
	now     func() time.Time
	start   time.Time
	active  bool
	limiter *rate.Limiter
	dropped int
}

// New creates a recorder whose timestamps are relative to now.
func New(opts Options) *Recorder {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	r := &Recorder{now: opts.Now, start: opts.Now()}
	if opts.MaxEventsPerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		r.limiter = rate.NewLimiter(rate.Limit(opts.MaxEventsPerSecond), burst)
	}
	return r
}

// NeverRecord reports whether events of type t are noise that must never
// produce a record.
func NeverRecord(t toolkit.EventType) bool {
	switch t {
	case toolkit.EventPaint,
		toolkit.EventPaletteChange,
		toolkit.EventLayoutRequest,
		toolkit.EventMouseMove,
		toolkit.EventEnter,
		toolkit.EventLeave,
		toolkit.EventHoverMove,
		toolkit.EventHoverEnter,
		toolkit.EventHoverLeave,
		toolkit.EventChildAdded,
		toolkit.EventChildRemoved,
		toolkit.EventDeferredDelete,
		toolkit.EventUpdateRequest,
		toolkit.EventPolishRequest,
		toolkit.EventPolish,
		toolkit.EventChildPolished,
		toolkit.EventStatusTip,
		toolkit.EventToolTip:
		return true
	}
	return false
}

// Active reports whether ApplicationActivate has been seen.
func (r *Recorder) Active() bool { return r.active }

// Dropped returns the number of records refused by Allow.
func (r *Recorder) Dropped() int { return r.dropped }

// Allow reports whether one more record fits the throttle budget. It never
// blocks; refused records are counted.
func (r *Recorder) Allow() bool {
	if r.limiter == nil {
		return true
	}
	if r.limiter.AllowN(r.now(), 1) {
		return true
	}
	r.dropped++
	return false
}

// Timestamp returns the time since the recorder was created as "sec.usec".
func (r *Recorder) Timestamp() string {
	d := r.now().Sub(r.start)
	if d < 0 {
		d = 0
	}
	usec := d.Microseconds()
	return fmt.Sprintf("%d.%06d", usec/1e6, usec%1e6)
}

// Record builds the record of ev delivered to obj, or returns nil for event
// types that are never recorded.
func (r *Recorder) Record(obj toolkit.Object, ev toolkit.Event) *record.EventRecord {
	t := ev.Type()
	if NeverRecord(t) {
		return nil
	}
	if t == toolkit.EventApplicationActivate {
		r.active = true
		return nil
	}

	rec := record.NewEventRecord(t.String(), r.Timestamp())

	switch e := ev.(type) {
	case *toolkit.MouseEvent:
		if t == toolkit.EventMouseButtonPress || t == toolkit.EventMouseButtonRelease {
			recordMouseEvent(obj, e, rec)
		}
	case *toolkit.KeyEvent:
		if t == toolkit.EventKeyPress || t == toolkit.EventKeyRelease {
			recordKeyEvent(obj, e, rec)
		}
	default:
		switch t {
		case toolkit.EventShow, toolkit.EventFocusIn, toolkit.EventFocusOut:
			recordObjectPath(obj, rec)
		}
	}
	return rec
}

// QuitRecord is written when the application quits while recording.
func QuitRecord() *record.RecordNode {
	return record.NewNode(record.QuitNodeName)
}

// recordObjectPath stores the object path; an unnamed receiver also gets
// class hints, plus its title when it is a menu.
func recordObjectPath(obj toolkit.Object, rec *record.EventRecord) {
	if obj == nil {
		return
	}
	rec.AddAttribute(record.AttrObjectPath, resolver.PathOf(obj))

	if obj.ObjectName() != "" {
		return
	}
	hints := rec.AddClassHints(obj.ClassName())
	if obj.Kind() == toolkit.KindMenu {
		if title, ok := obj.Property("title"); ok && title != "" {
			record.AddProperty(hints, "title", title)
		}
	}
}

func recordMouseEvent(obj toolkit.Object, ev *toolkit.MouseEvent, rec *record.EventRecord) {
	recordObjectPath(obj, rec)

	rec.AddAttribute("keyboardModifiers", ev.Modifiers.String())
	rec.AddAttribute("x", strconv.Itoa(ev.Pos.X))
	rec.AddAttribute("y", strconv.Itoa(ev.Pos.Y))
	rec.AddAttribute("globalX", strconv.Itoa(ev.GlobalPos.X))
	rec.AddAttribute("globalY", strconv.Itoa(ev.GlobalPos.Y))
	rec.AddAttribute("button", ev.Button.String())
	rec.AddAttribute("buttonState", ev.Buttons.String())

	// Menu entries move with fonts and translations, so remember which
	// action was under the pointer rather than relying on x/y alone.
	if ev.Buttons == 0 || obj == nil {
		return
	}
	switch obj.Kind() {
	case toolkit.KindMenuBar, toolkit.KindMenu:
		container, ok := obj.(toolkit.ActionContainer)
		if !ok {
			return
		}
		if action := container.ActionAt(ev.Pos); action != nil {
			recordAction(action, rec.AddTargetHints())
		}
	}
}

func recordKeyEvent(obj toolkit.Object, ev *toolkit.KeyEvent, rec *record.EventRecord) {
	recordObjectPath(obj, rec)
	rec.AddAttribute("keyboardModifiers", ev.Modifiers.String())
	rec.AddAttribute("key", ev.Key.String())
	rec.AddAttribute("text", ev.Text)
}

func recordAction(action *toolkit.ActionInfo, target *record.RecordNode) {
	node := target.AddChild("action")
	node.AddAttribute("text", toolkit.StripMnemonic(action.Text))
	node.AddAttribute("iconText", action.IconText)

	if action.Data != nil && action.Data.Value != "" {
		data := node.AddChildUnique("data")
		data.AddAttribute("type", action.Data.Type)
		data.AddAttribute("value", action.Data.Value)
	}
}
