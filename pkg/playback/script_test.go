package playback

import (
	"bytes"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"Puppeteer/pkg/record"
	"Puppeteer/pkg/stream"
)

const fullScript = `<script>
  <send-event type="MouseButtonPress" button="left" objectPath="mainWindow.*">
    <classhints name="MenuBar"/>
    <target>
      <action text="File"/>
    </target>
  </send-event>
  <bogus-element/>
  <wait-event type="KeyPress" key="a"/>
  <set-focus objectPath="mainWindow.morningEdit"/>
  <verify objectPath="mainWindow.morningCombo">
    <classdata>
      <property name="text" value="beautiful"/>
    </classdata>
  </verify>
  <wait-application-exit/>
</script>
`

func TestParseScript(t *testing.T) {
	s, err := Parse(strings.NewReader(fullScript))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	want := []ActionType{SendEvent, WaitEvent, SetFocus, VerifyProperties, WaitApplicationExit}
	if s.Len() != len(want) {
		t.Fatalf("Len = %d, want %d (unknown elements are skipped)", s.Len(), len(want))
	}
	for i, a := range s.Actions() {
		if a.Type != want[i] {
			t.Errorf("action %d = %s, want %s", i, a.Type, want[i])
		}
	}

	send := s.Current()
	if send.Event.Name() != record.EventNodeName {
		t.Errorf("event node name = %q", send.Event.Name())
	}
	if send.Event.ClassHints().Attribute("name") != "MenuBar" {
		t.Error("classhints not carried over")
	}
	if send.Event.TargetHints().Child("action").Attribute("text") != "File" {
		t.Error("target hints not carried over")
	}
	if s.Actions()[4].Event != nil {
		t.Error("wait-application-exit should carry no event")
	}
}

func TestScriptQueue(t *testing.T) {
	s, _ := Parse(strings.NewReader(fullScript))
	for i := 0; i < 5; i++ {
		if s.Done() {
			t.Fatalf("done after %d actions", i)
		}
		s.Advance()
	}
	if !s.Done() || s.Current() != nil {
		t.Error("script should be done")
	}
	s.Advance()
	if s.Len() != 0 {
		t.Error("Advance on an empty script should be a no-op")
	}

	var nilScript *Script
	if !nilScript.Done() || nilScript.Current() != nil {
		t.Error("nil script should behave as empty")
	}
}

func TestDefaultTimeouts(t *testing.T) {
	tests := []struct {
		typ  ActionType
		want time.Duration
	}{
		{WaitApplicationExit, 2000 * time.Millisecond},
		{WaitEvent, 2000 * time.Millisecond},
		{SendEvent, 500 * time.Millisecond},
		{SetFocus, 500 * time.Millisecond},
		{VerifyProperties, 1000 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			a := NewAction(tt.typ, nil)
			if got := a.Timeout(); got != tt.want {
				t.Errorf("Timeout = %v, want %v", got, tt.want)
			}
			if a.HasCustomTimeout() {
				t.Error("default timeout reported as custom")
			}
		})
	}
}

func TestTimeoutAttribute(t *testing.T) {
	s, err := Parse(strings.NewReader(`<script><wait-event timeout="250" type="KeyPress" key="a"/><wait-application-exit timeout="5000"/></script>`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	wait := s.Actions()[0]
	if wait.Timeout() != 250*time.Millisecond {
		t.Errorf("Timeout = %v", wait.Timeout())
	}
	if _, ok := wait.Event.LookupAttribute(TimeoutAttribute); ok {
		t.Error("timeout attribute must not take part in matching")
	}
	if s.Actions()[1].Timeout() != 5*time.Second {
		t.Errorf("exit timeout = %v", s.Actions()[1].Timeout())
	}

	for _, bad := range []string{"soon", "0", "-5"} {
		_, err := Parse(strings.NewReader(`<script><send-event timeout="` + bad + `" type="KeyPress"/></script>`))
		var lerr *ScriptLoadError
		if !errors.As(err, &lerr) {
			t.Errorf("timeout %q: err = %v, want *ScriptLoadError", bad, err)
		}
	}
}

func TestParseErrors(t *testing.T) {
	for _, doc := range []string{"", "<script><send-event></script>", "not xml at all"} {
		_, err := Parse(strings.NewReader(doc))
		var lerr *ScriptLoadError
		if !errors.As(err, &lerr) {
			t.Errorf("Parse(%q) err = %v, want *ScriptLoadError", doc, err)
		}
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.xml"))
	var lerr *ScriptLoadError
	if !errors.As(err, &lerr) || lerr.Path == "" {
		t.Fatalf("missing file: err = %v", err)
	}

	for _, name := range []string{"script.xml", "script.xml.zst", "script.xml.br"} {
		path := filepath.Join(dir, name)
		w, err := stream.Create(path)
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		io.WriteString(w, fullScript)
		w.Close()

		s, err := Load(path)
		if err != nil {
			t.Fatalf("Load(%s): %v", name, err)
		}
		if s.Len() != 5 {
			t.Errorf("Load(%s) Len = %d", name, s.Len())
		}
	}

	bad := filepath.Join(dir, "bad.xml")
	w, _ := stream.Create(bad)
	io.WriteString(w, "<script><oops")
	w.Close()
	if _, err := Load(bad); !errors.As(err, &lerr) || lerr.Path != bad {
		t.Errorf("malformed file: err = %v", err)
	}
}

func TestScriptWriteRoundTrip(t *testing.T) {
	s, err := Parse(strings.NewReader(fullScript))
	if err != nil {
		t.Fatal(err)
	}
	s.Actions()[1].SetTimeout(300 * time.Millisecond)

	var buf bytes.Buffer
	if err := s.Write(&buf); err != nil {
		t.Fatalf("Write: %v", err)
	}
	again, err := Parse(&buf)
	if err != nil {
		t.Fatalf("re-Parse: %v\n%s", err, buf.String())
	}
	if !s.Node().Equal(again.Node()) {
		t.Errorf("round trip changed the script:\n%s\nvs\n%s", s.Node(), again.Node())
	}
	if again.Actions()[1].Timeout() != 300*time.Millisecond {
		t.Error("custom timeout lost")
	}
}

func TestWaitEventSubsetMatch(t *testing.T) {
	want := record.NewEventRecord("KeyPress", "")
	want.AddAttribute("key", "a")
	a := NewAction(WaitEvent, want)

	live := func(key string) *record.EventRecord {
		rec := record.NewEventRecord("KeyPress", "1.000000")
		rec.AddAttribute("objectPath", "mainWindow.morningEdit")
		rec.AddAttribute("keyboardModifiers", "none")
		rec.AddAttribute("key", key)
		rec.AddAttribute("text", key)
		return rec
	}

	if !a.Matches(live("a")) {
		t.Error("KeyPress a should match")
	}
	if a.Matches(live("b")) {
		t.Error("KeyPress b should not match")
	}
	if NewAction(SendEvent, want).Matches(live("a")) {
		t.Error("only wait-event actions match live events")
	}
}

func TestActionTypeNames(t *testing.T) {
	for _, typ := range []ActionType{WaitApplicationExit, WaitEvent, SendEvent, SetFocus, VerifyProperties} {
		got, ok := ParseActionType(typ.String())
		if !ok || got != typ {
			t.Errorf("ParseActionType(%q) = %v, %v", typ.String(), got, ok)
		}
	}
	if _, ok := ParseActionType("event"); ok {
		t.Error("unknown element parsed as an action")
	}
}
