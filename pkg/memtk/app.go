// Package memtk is a headless, in-memory implementation of the toolkit
// interfaces. It owns a widget tree, a posted-event queue and single-shot
// timers, all driven by a virtual clock so runs are deterministic.
//
// Like a real UI loop it is single threaded: every method must be called
// from the goroutine running the loop (or before it starts).
package memtk

import (
	"time"

	"Puppeteer/pkg/toolkit"
)

var epoch = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

type posted struct {
	receiver *Widget
	ev       toolkit.Event
}

// App is a headless application.
type App struct {
	now       time.Duration
	seq       int
	queue     []posted
	timers    []*Timer
	filters   []toolkit.EventFilter
	windows   []*Widget
	focus     *Widget
	quitHooks []func()

	exiting  bool
	quitDone bool
	exitCode int

	delivered int
}

var _ toolkit.Application = (*App)(nil)

// NewApp creates an empty application at virtual time zero.
func NewApp() *App {
	return &App{}
}

// Now returns the virtual wall clock.
func (a *App) Now() time.Time {
	return epoch.Add(a.now)
}

// Elapsed returns virtual time since the application was created.
func (a *App) Elapsed() time.Duration {
	return a.now
}

// Delivered returns the number of events delivered so far.
func (a *App) Delivered() int {
	return a.delivered
}

// TopLevelObjects implements toolkit.Application.
func (a *App) TopLevelObjects() []toolkit.Object {
	out := make([]toolkit.Object, 0, len(a.windows))
	for _, w := range a.windows {
		out = append(out, w.self)
	}
	return out
}

// FocusObject implements toolkit.Application.
func (a *App) FocusObject() toolkit.Object {
	if a.focus == nil {
		return nil
	}
	return a.focus.self
}

// SetFocus moves keyboard focus to obj when it accepts focus. FocusOut and
// FocusIn are posted to the old and new focus widgets.
func (a *App) SetFocus(obj toolkit.Object) {
	w := widgetOf(obj)
	if w == nil || !w.acceptsFocus() || a.focus == w {
		return
	}
	old := a.focus
	a.focus = w
	if old != nil {
		a.post(old, &toolkit.BasicEvent{Kind: toolkit.EventFocusOut})
	}
	a.post(w, &toolkit.BasicEvent{Kind: toolkit.EventFocusIn})
}

// PostEvent implements toolkit.Application. A nil receiver addresses the
// application itself: filters see the event, no widget handles it.
func (a *App) PostEvent(receiver toolkit.Object, ev toolkit.Event) {
	a.post(widgetOf(receiver), ev)
}

func (a *App) post(w *Widget, ev toolkit.Event) {
	a.queue = append(a.queue, posted{receiver: w, ev: ev})
}

// InstallEventFilter implements toolkit.Application.
func (a *App) InstallEventFilter(f toolkit.EventFilter) {
	a.filters = append(a.filters, f)
}

// RemoveEventFilter implements toolkit.Application. f must be comparable,
// i.e. not a bare EventFilterFunc.
func (a *App) RemoveEventFilter(f toolkit.EventFilter) {
	for i, existing := range a.filters {
		if existing == f {
			a.filters = append(a.filters[:i:i], a.filters[i+1:]...)
			return
		}
	}
}

// NewTimer implements toolkit.Application.
func (a *App) NewTimer(callback func()) toolkit.Timer {
	t := &Timer{app: a, callback: callback}
	a.timers = append(a.timers, t)
	return t
}

// OnAboutToQuit implements toolkit.Application.
func (a *App) OnAboutToQuit(callback func()) {
	a.quitHooks = append(a.quitHooks, callback)
}

// Exit asks the loop to stop with the given code.
func (a *App) Exit(code int) {
	if a.exiting {
		return
	}
	a.exiting = true
	a.exitCode = code
}

// Exited reports whether Exit has been called.
func (a *App) Exited() bool { return a.exiting }

// ExitCode returns the code passed to Exit.
func (a *App) ExitCode() int { return a.exitCode }

// Activate posts ApplicationActivate to the application.
func (a *App) Activate() {
	a.post(nil, &toolkit.BasicEvent{Kind: toolkit.EventApplicationActivate})
}

// Run processes events and timers until Exit is called or nothing is left to
// do, then returns the exit code. About-to-quit callbacks run once on exit.
func (a *App) Run() int {
	a.loop(0, false)
	return a.exitCode
}

// Advance runs the loop for d of virtual time, or until Exit.
func (a *App) Advance(d time.Duration) {
	a.loop(a.now+d, true)
}

// ProcessEvents delivers every posted event without advancing the clock.
func (a *App) ProcessEvents() {
	for !a.exiting && a.deliverPending() {
	}
	if a.exiting {
		a.quit()
	}
}

func (a *App) loop(deadline time.Duration, bounded bool) {
	for !a.exiting {
		if a.deliverPending() {
			continue
		}

		t := a.nextTimer()
		if t == nil || (bounded && t.deadline > deadline) {
			if bounded && a.now < deadline {
				a.now = deadline
			}
			return
		}

		a.now = t.deadline
		t.active = false
		t.callback()
	}
	a.quit()
}

func (a *App) quit() {
	if a.quitDone {
		return
	}
	a.quitDone = true
	for _, hook := range a.quitHooks {
		hook()
	}
}

// deliverPending delivers the events queued at call time and reports whether
// there were any.
func (a *App) deliverPending() bool {
	if len(a.queue) == 0 {
		return false
	}
	batch := a.queue
	a.queue = nil
	for _, p := range batch {
		if a.exiting {
			return true
		}
		a.deliver(p.receiver, p.ev)
	}
	return true
}

func (a *App) deliver(w *Widget, ev toolkit.Event) {
	a.delivered++

	var receiver toolkit.Object
	if w != nil {
		receiver = w.self
	}
	for _, f := range append([]toolkit.EventFilter(nil), a.filters...) {
		if f.FilterEvent(receiver, ev) {
			return
		}
	}
	if w != nil {
		w.handle(ev)
	}
}

func (a *App) nextTimer() *Timer {
	var next *Timer
	for _, t := range a.timers {
		if !t.active {
			continue
		}
		if next == nil || t.deadline < next.deadline || (t.deadline == next.deadline && t.seq < next.seq) {
			next = t
		}
	}
	return next
}

// ========================================
// Timer
// ========================================

// Timer is a single-shot virtual timer.
type Timer struct {
	app      *App
	callback func()
	interval time.Duration
	deadline time.Duration
	seq      int
	active   bool
}

// Start (re)arms the timer to fire once after interval.
func (t *Timer) Start(interval time.Duration) {
	t.app.seq++
	t.interval = interval
	t.deadline = t.app.now + interval
	t.seq = t.app.seq
	t.active = true
}

func (t *Timer) Stop() { t.active = false }

func (t *Timer) Active() bool { return t.active }

func (t *Timer) Interval() time.Duration { return t.interval }

// ========================================
// Simulated user input
// ========================================

// Click posts a left button press and release at p in obj's coordinates.
func (a *App) Click(obj toolkit.Object, p toolkit.Point) {
	w := widgetOf(obj)
	if w == nil {
		return
	}
	global := w.MapToGlobal(p)
	a.post(w, &toolkit.MouseEvent{
		Kind: toolkit.EventMouseButtonPress, Pos: p, GlobalPos: global,
		Button: toolkit.LeftButton, Buttons: toolkit.MouseButtons(toolkit.LeftButton),
	})
	a.post(w, &toolkit.MouseEvent{
		Kind: toolkit.EventMouseButtonRelease, Pos: p, GlobalPos: global,
		Button: toolkit.LeftButton, Buttons: toolkit.MouseButtons(toolkit.NoButton),
	})
}

// ClickCenter clicks the middle of obj.
func (a *App) ClickCenter(obj toolkit.Object) {
	s := obj.Size()
	a.Click(obj, toolkit.Point{X: s.Width / 2, Y: s.Height / 2})
}

// PressKey posts a key press and release to the focus widget.
func (a *App) PressKey(key toolkit.Key, text string) {
	if a.focus == nil {
		return
	}
	a.post(a.focus, &toolkit.KeyEvent{Kind: toolkit.EventKeyPress, Key: key, Text: text})
	a.post(a.focus, &toolkit.KeyEvent{Kind: toolkit.EventKeyRelease, Key: key, Text: text})
}

// TypeText types printable ASCII text into the focus widget.
func (a *App) TypeText(text string) {
	for _, r := range text {
		key := toolkit.Key(r)
		if r >= 'a' && r <= 'z' {
			key = toolkit.Key(r - 'a' + 'A')
		}
		a.PressKey(key, string(r))
	}
}
