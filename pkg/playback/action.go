package playback

import (
	"strconv"
	"time"

	"Puppeteer/pkg/record"
)

// ActionType is the kind of a script step.
type ActionType int

const (
	WaitApplicationExit ActionType = iota
	WaitEvent
	SendEvent
	SetFocus
	VerifyProperties
)

var actionElements = []string{
	WaitApplicationExit: "wait-application-exit",
	WaitEvent:           "wait-event",
	SendEvent:           "send-event",
	SetFocus:            "set-focus",
	VerifyProperties:    "verify",
}

// String returns the script element name of the action type.
func (t ActionType) String() string {
	if t < 0 || int(t) >= len(actionElements) {
		return "action(" + strconv.Itoa(int(t)) + ")"
	}
	return actionElements[t]
}

// ParseActionType maps a script element name to its action type.
func ParseActionType(element string) (ActionType, bool) {
	for i, name := range actionElements {
		if name == element {
			return ActionType(i), true
		}
	}
	return 0, false
}

// TimeoutAttribute overrides the default timeout of a script element, in
// milliseconds.
const TimeoutAttribute = "timeout"

// Action is one script step. Every type except WaitApplicationExit carries
// the event record describing the event, target or expected state.
type Action struct {
	Type  ActionType
	Event *record.EventRecord

	timeout time.Duration
}

// NewAction creates an action with the default timeout.
func NewAction(t ActionType, ev *record.EventRecord) *Action {
	return &Action{Type: t, Event: ev}
}

// Timeout returns the explicit timeout, or the default for the action type:
// 2s to wait for an event or exit, 0.5s to settle before sending an event or
// setting focus, 1s for everything else.
func (a *Action) Timeout() time.Duration {
	if a.timeout > 0 {
		return a.timeout
	}
	switch a.Type {
	case WaitEvent, WaitApplicationExit:
		return 2000 * time.Millisecond
	case SendEvent, SetFocus:
		return 500 * time.Millisecond
	default:
		return 1000 * time.Millisecond
	}
}

// SetTimeout overrides the default timeout. Zero restores the default.
func (a *Action) SetTimeout(d time.Duration) { a.timeout = d }

// HasCustomTimeout reports whether SetTimeout overrode the default.
func (a *Action) HasCustomTimeout() bool { return a.timeout > 0 }

// Matches reports whether live satisfies a WaitEvent action.
func (a *Action) Matches(live *record.EventRecord) bool {
	if a.Type != WaitEvent || a.Event == nil {
		return false
	}
	return a.Event.Matches(live)
}

// Node renders the action as a script element.
func (a *Action) Node() *record.RecordNode {
	n := record.NewNode(a.Type.String())
	if a.Event != nil {
		for _, attr := range a.Event.Attributes() {
			n.AddAttribute(attr.Name, attr.Value)
		}
	}
	if a.timeout > 0 {
		n.AddAttribute(TimeoutAttribute, strconv.FormatInt(a.timeout.Milliseconds(), 10))
	}
	if a.Event != nil {
		for _, child := range a.Event.Children() {
			n.AppendChild(child.Clone())
		}
	}
	return n
}

// Describe is a one-line summary for logs and listings.
func (a *Action) Describe() string {
	s := a.Type.String()
	if a.Event == nil {
		return s
	}
	if t := a.Event.Type(); t != "" {
		s += " " + t
	}
	if p := a.Event.ObjectPath(); p != "" {
		s += " " + p
	}
	return s
}
