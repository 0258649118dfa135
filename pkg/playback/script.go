package playback

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"Puppeteer/pkg/logging"
	"Puppeteer/pkg/record"
	"Puppeteer/pkg/stream"
)

// ScriptRootName is the root element written by Script.Write. Parse accepts
// any root element.
const ScriptRootName = "script"

// ScriptLoadError means a script could not be read or parsed. Playback never
// starts from such a script.
type ScriptLoadError struct {
	Path string
	Err  error
}

func (e *ScriptLoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("unable to parse playback script: %v", e.Err)
	}
	return fmt.Sprintf("unable to parse playback script %q: %v", e.Path, e.Err)
}

func (e *ScriptLoadError) Unwrap() error { return e.Err }

// Script is the FIFO queue of actions to play back.
type Script struct {
	actions []*Action
}

// NewScript builds a script from actions.
func NewScript(actions ...*Action) *Script {
	return &Script{actions: actions}
}

// Load reads a script file. Compressed files (.zst, .br, .gz, or zstd/gzip
// content) are decompressed transparently.
func Load(path string) (*Script, error) {
	r, err := stream.Open(path)
	if err != nil {
		return nil, &ScriptLoadError{Path: path, Err: err}
	}
	defer r.Close()

	s, err := Parse(r)
	if err != nil {
		var lerr *ScriptLoadError
		if errors.As(err, &lerr) {
			lerr.Path = path
		}
		return nil, err
	}
	logging.LogInfo("playback").Str("path", path).Int("actions", s.Len()).Msg("Loaded playback script")
	return s, nil
}

// Parse reads a script document: a root element whose children are
// wait-application-exit, wait-event, send-event, set-focus and verify
// elements. Other elements are logged and skipped.
func Parse(r io.Reader) (*Script, error) {
	root, err := record.Parse(r)
	if err != nil {
		return nil, &ScriptLoadError{Err: err}
	}

	s := &Script{}
	for _, elem := range root.Children() {
		t, ok := ParseActionType(elem.Name())
		if !ok {
			logging.LogWarn("playback").Str("element", elem.Name()).Msg("Unexpected element in script")
			continue
		}

		a := NewAction(t, nil)
		if v, ok := elem.LookupAttribute(TimeoutAttribute); ok {
			ms, err := strconv.Atoi(v)
			if err != nil || ms <= 0 {
				return nil, &ScriptLoadError{Err: fmt.Errorf("%s: invalid timeout %q", elem.Name(), v)}
			}
			a.SetTimeout(time.Duration(ms) * time.Millisecond)
		}

		if t != WaitApplicationExit {
			ev := record.EventRecordFromNode(elem)
			// The timeout is script metadata, not something a live event carries.
			ev.RemoveAttribute(TimeoutAttribute)
			a.Event = ev
		}
		s.actions = append(s.actions, a)
	}
	return s, nil
}

// Current returns the head action, or nil when the script is done.
func (s *Script) Current() *Action {
	if s == nil || len(s.actions) == 0 {
		return nil
	}
	return s.actions[0]
}

// Advance drops the head action.
func (s *Script) Advance() {
	if s != nil && len(s.actions) > 0 {
		s.actions = s.actions[1:]
	}
}

// Done reports whether no actions are left.
func (s *Script) Done() bool { return s.Len() == 0 }

// Len returns the number of remaining actions.
func (s *Script) Len() int {
	if s == nil {
		return 0
	}
	return len(s.actions)
}

// Actions returns the remaining actions in order.
func (s *Script) Actions() []*Action { return s.actions }

// Append adds an action to the end of the queue.
func (s *Script) Append(a *Action) { s.actions = append(s.actions, a) }

// Node renders the remaining actions as a script document.
func (s *Script) Node() *record.RecordNode {
	root := record.NewNode(ScriptRootName)
	for _, a := range s.actions {
		root.AppendChild(a.Node())
	}
	return root
}

// Write writes the remaining actions as a script document that Parse reads back.
func (s *Script) Write(w io.Writer) error {
	return s.Node().Write(w, 0)
}
