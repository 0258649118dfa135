// Package playback replays a script of recorded actions against a running
// application.
//
// The engine is a state machine over the script's action queue. Wait steps
// advance when the live event stream produces a matching record; every other
// step runs when the engine's single-shot timer fires, which gives the UI
// time to settle first. Any failure ends playback for good: the script is
// dropped, the timer stopped and the error kept for Err.
//
// All methods must be called from the application's event loop.
package playback

import (
	"fmt"

	"Puppeteer/pkg/builder"
	"Puppeteer/pkg/logging"
	"Puppeteer/pkg/record"
	"Puppeteer/pkg/recorder"
	"Puppeteer/pkg/resolver"
	"Puppeteer/pkg/toolkit"
)

// State is the engine's lifecycle state.
type State int

const (
	Idle State = iota
	Running
	Finished
	Failed
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Finished:
		return "finished"
	case Failed:
		return "failed"
	default:
		return "idle"
	}
}

// Observer is told about playback progress. Index is the zero-based position
// of the action in the script passed to Start.
type Observer interface {
	ActionStarted(index int, a *Action)
	ActionCompleted(index int, a *Action)
	ActionFailed(index int, a *Action, err error)
	PlaybackFinished(err error)
}

// NopObserver ignores everything. Embed it to implement part of Observer.
type NopObserver struct{}

func (NopObserver) ActionStarted(int, *Action) {}

func (NopObserver) ActionCompleted(int, *Action) {}

func (NopObserver) ActionFailed(int, *Action, error) {}

func (NopObserver) PlaybackFinished(error) {}

// Options configures an Engine.
type Options struct {
	// Recorder turns live events into records for wait matching and logging.
	// A default recorder is created when nil.
	Recorder *recorder.Recorder
	Observer Observer
}

// Engine plays back one script at a time.
type Engine struct {
	app      toolkit.Application
	rec      *recorder.Recorder
	observer Observer
	timer    toolkit.Timer

	script *Script
	index  int
	state  State
	err    error
	hooked bool
}

// NewEngine creates an idle engine for app.
func NewEngine(app toolkit.Application, opts Options) *Engine {
	if opts.Recorder == nil {
		opts.Recorder = recorder.New(recorder.Options{})
	}
	if opts.Observer == nil {
		opts.Observer = NopObserver{}
	}
	e := &Engine{app: app, rec: opts.Recorder, observer: opts.Observer}
	e.timer = app.NewTimer(e.OnTimeout)
	return e
}

// State returns the current lifecycle state.
func (e *Engine) State() State { return e.state }

// Err returns the failure that ended playback, or nil.
func (e *Engine) Err() error { return e.err }

// Finished reports whether the whole script was played.
func (e *Engine) Finished() bool { return e.state == Finished }

// Failed reports whether playback ended with an error.
func (e *Engine) Failed() bool { return e.state == Failed }

// Remaining returns the number of actions not yet completed.
func (e *Engine) Remaining() int { return e.script.Len() }

// Timer returns the engine's step timer.
func (e *Engine) Timer() toolkit.Timer { return e.timer }

// Start begins playing s. The engine installs itself as an application event
// filter and quit hook on first use, and arms the timer for the first action.
func (e *Engine) Start(s *Script) {
	e.timer.Stop()
	if !e.hooked {
		e.app.InstallEventFilter(e)
		e.app.OnAboutToQuit(e.OnAboutToQuit)
		e.hooked = true
	}

	e.script = s
	e.index = 0
	e.err = nil
	e.state = Running

	if s.Done() {
		logging.LogWarn("playback").Msg("Empty playback script")
		e.finish()
		return
	}
	e.startCurrent()
}

// Close detaches the engine from the application. A running script is
// aborted.
func (e *Engine) Close() {
	if e.state == Running {
		e.fail(ErrAborted)
	}
	e.timer.Stop()
	if e.hooked {
		e.app.RemoveEventFilter(e)
	}
}

// FilterEvent implements toolkit.EventFilter. Events are only observed.
func (e *Engine) FilterEvent(receiver toolkit.Object, ev toolkit.Event) bool {
	e.HandleEvent(receiver, ev)
	return false
}

// HandleEvent matches a live event against the current WaitEvent action.
func (e *Engine) HandleEvent(receiver toolkit.Object, ev toolkit.Event) {
	if e.state != Running {
		return
	}
	a := e.script.Current()
	if a == nil || a.Type != WaitEvent {
		return
	}

	live := e.rec.Record(receiver, ev)
	if live == nil || !a.Matches(live) {
		return
	}
	logging.LogInfo("playback").
		Int("step", e.index+1).
		Str("event", live.String()).
		Msg("Matched event")
	e.next()
}

// OnTimeout runs when the step timer fires: it performs a send, focus or
// verify step, and fails a wait step.
func (e *Engine) OnTimeout() {
	if e.state != Running {
		return
	}
	a := e.script.Current()
	if a == nil {
		return
	}

	var err error
	switch a.Type {
	case WaitApplicationExit, WaitEvent:
		err = &TimeoutError{Action: a.Type, Timeout: a.Timeout()}
	case SendEvent:
		err = e.sendEvent(a.Event)
	case SetFocus:
		err = e.setFocus(a.Event)
	case VerifyProperties:
		err = e.verifyProperties(a.Event)
	}

	if err != nil {
		e.fail(err)
		return
	}
	e.next()
}

// OnAboutToQuit completes a WaitApplicationExit step. Quitting with steps
// still pending fails playback.
func (e *Engine) OnAboutToQuit() {
	if e.state == Running {
		if a := e.script.Current(); a != nil && a.Type == WaitApplicationExit {
			logging.LogInfo("playback").Msg("Application exiting")
			e.next()
		}
		if e.state == Running {
			e.fail(ErrEarlyExit)
			return
		}
	}
	if e.state == Finished {
		logging.LogInfo("playback").Msg("All is well. Script succeeded")
	}
}

// ========================================
// Transitions
// ========================================

func (e *Engine) startCurrent() {
	a := e.script.Current()
	e.describe(a)
	e.observer.ActionStarted(e.index, a)
	e.timer.Start(a.Timeout())
}

func (e *Engine) next() {
	e.timer.Stop()
	done := e.script.Current()
	e.script.Advance()
	e.observer.ActionCompleted(e.index, done)
	e.index++

	if e.script.Done() {
		e.finish()
		return
	}
	e.startCurrent()
}

func (e *Engine) finish() {
	e.timer.Stop()
	e.state = Finished
	logging.LogInfo("playback").
		Int("steps", e.index).
		Msg("Playback reached end of tape")
	e.observer.PlaybackFinished(nil)
}

func (e *Engine) fail(err error) {
	a := e.script.Current()
	if a != nil {
		err = &ActionError{Index: e.index, Action: a, Err: err}
	}

	e.timer.Stop()
	e.script = nil
	e.state = Failed
	e.err = err

	logging.LogError("playback").Err(err).Msg("Playback failed, tape completely garbled")
	if a != nil {
		e.observer.ActionFailed(e.index, a, err)
	}
	e.observer.PlaybackFinished(err)
}

func (e *Engine) describe(a *Action) {
	l := logging.LogInfo("playback").
		Int("step", e.index+1).
		Dur("timeout", a.Timeout())
	switch a.Type {
	case WaitApplicationExit:
		l.Msg("Waiting for application to exit")
	case WaitEvent:
		l.Str("event", a.Event.String()).Msg("Waiting for event")
	case SendEvent:
		l.Str("event", a.Event.String()).Msg("Preparing to send event")
	case SetFocus:
		l.Str("objectPath", a.Event.ObjectPath()).Msg("Preparing to set keyboard focus")
	case VerifyProperties:
		l.Str("objectPath", a.Event.ObjectPath()).Msg("Preparing to verify UI state")
	}
}

// ========================================
// Steps
// ========================================

func (e *Engine) resolve(rec *record.EventRecord, what string) (toolkit.Object, error) {
	obj, err := resolver.Resolve(e.app, rec)
	if err != nil {
		logging.LogWarn("playback").
			Str("record", rec.String()).
			Msgf("Cannot %s, receiver object not found", what)
		return nil, err
	}
	return obj, nil
}

func (e *Engine) sendEvent(rec *record.EventRecord) error {
	target, err := e.resolve(rec, "inject event")
	if err != nil {
		return err
	}

	receiver, ev, err := builder.Build(target, rec)
	if err != nil {
		logging.LogWarn("playback").
			Str("record", rec.String()).
			Msg("Cannot inject event, unable to build event from record")
		return err
	}

	if posted := e.rec.Record(receiver, ev); posted != nil {
		logging.LogInfo("playback").Str("event", posted.String()).Msg("Posting event")
	}
	e.app.PostEvent(receiver, ev)
	return nil
}

func (e *Engine) setFocus(rec *record.EventRecord) error {
	obj, err := e.resolve(rec, "set focus")
	if err != nil {
		return err
	}

	if e.app.FocusObject() == obj {
		logging.LogInfo("playback").Str("objectPath", rec.ObjectPath()).Msg("Object already has focus")
		return nil
	}

	// FocusIn is posted but not matched as an event; the focus object is
	// checked directly instead.
	e.app.SetFocus(obj)
	if e.app.FocusObject() != obj {
		return ErrFocusRefused
	}
	return nil
}

// verifyProperties compares every property child of the record's classdata
// element, and any property child placed directly under the record.
func (e *Engine) verifyProperties(rec *record.EventRecord) error {
	obj, err := e.resolve(rec, "verify properties")
	if err != nil {
		return err
	}

	var props []*record.RecordNode
	if data := rec.Child(record.ClassDataName); data != nil {
		props = append(props, data.ChildrenNamed(record.PropertyName)...)
	}
	props = append(props, rec.ChildrenNamed(record.PropertyName)...)
	if len(props) == 0 {
		return ErrNoClassData
	}

	for _, p := range props {
		name := p.Attribute("name")
		expected := p.Attribute("value")

		actual, ok := obj.Property(name)
		if !ok {
			return fmt.Errorf("%w %s", ErrUnknownProperty, name)
		}
		if expected != actual && expected != toolkit.StripMnemonic(actual) {
			return &VerificationMismatch{Property: name, Expected: expected, Actual: actual}
		}
		logging.LogInfo("playback").
			Str("property", name).
			Str("value", expected).
			Msg("Verify ok")
	}

	logging.LogInfo("playback").Int("properties", len(props)).Msg("Successfully verified properties")
	return nil
}
