package demo

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"Puppeteer/pkg/memtk"
	"Puppeteer/pkg/puppeteer"
	"Puppeteer/pkg/record"
	"Puppeteer/pkg/stream"
	"Puppeteer/pkg/tape"
	"Puppeteer/pkg/toolkit"
)

func TestHelloWorldBehaviour(t *testing.T) {
	app := memtk.NewApp()
	h := NewHelloWorld(app)
	h.Show()

	if got := h.MorningLabel.Text(); got != "Hello world. What a beautiful morning." {
		t.Errorf("label = %q", got)
	}

	h.MorningCombo.SetCurrentIndex(1)
	if h.MorningType() != "terrible" || h.MorningEdit.IsEnabled() {
		t.Errorf("morning = %q, edit enabled = %v", h.MorningType(), h.MorningEdit.IsEnabled())
	}

	// The last item carries data and hands over to the edit.
	h.MorningCombo.SetCurrentIndex(len(MorningItems) - 1)
	if !h.MorningEdit.IsEnabled() || h.MorningType() != "otherworldly" {
		t.Errorf("morning = %q, edit enabled = %v", h.MorningType(), h.MorningEdit.IsEnabled())
	}

	app.SetFocus(h.MorningEdit)
	app.TypeText("ish")
	app.PressKey(toolkit.KeyReturn, "")
	app.ProcessEvents()
	if got := h.MorningLabel.Text(); got != "Hello world. What a otherworldlyish morning." {
		t.Errorf("label = %q", got)
	}
}

func TestCannedSession(t *testing.T) {
	app := memtk.NewApp()
	h := NewHelloWorld(app)
	h.Show()

	pilot := NewAutopilot(h, CannedSession(), 0)
	pilot.Start()
	code := app.Run()

	if code != 0 || !app.Exited() {
		t.Fatalf("exit code %d, exited %v", code, app.Exited())
	}
	if pilot.Done() != len(CannedSession()) {
		t.Errorf("ran %d steps", pilot.Done())
	}
	if h.IrrelevantCount() != 1 {
		t.Errorf("Irrelevant triggered %d times", h.IrrelevantCount())
	}
	if h.MorningType() != "hung-over" {
		t.Errorf("morning = %q", h.MorningType())
	}
	if app.Elapsed() != 5*DefaultStepInterval {
		t.Errorf("elapsed = %v", app.Elapsed())
	}
}

// TestRecordExportReplay records the canned session, exports it from the tape
// store and plays it back against a fresh window.
func TestRecordExportReplay(t *testing.T) {
	dir := t.TempDir()
	store, err := tape.NewTapeStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	dumpPath := filepath.Join(dir, "dump.xml.zst")
	dump, err := stream.Create(dumpPath)
	if err != nil {
		t.Fatal(err)
	}
	rec, err := Run(puppeteer.Options{Output: dump, Store: store, SessionName: "canned"})
	if err != nil {
		t.Fatalf("record run: %v", err)
	}
	if err := dump.Close(); err != nil {
		t.Fatal(err)
	}
	if rec.ExitCode != 0 || rec.Steps != len(CannedSession()) {
		t.Fatalf("record run: exit %d after %d steps", rec.ExitCode, rec.Steps)
	}

	in, err := stream.Open(dumpPath)
	if err != nil {
		t.Fatal(err)
	}
	nodes, err := record.ParseAll(in)
	in.Close()
	if err != nil {
		t.Fatalf("compressed dump does not parse: %v", err)
	}
	if len(nodes) != rec.Puppeteer.Records() {
		t.Errorf("dump has %d records, recorded %d", len(nodes), rec.Puppeteer.Records())
	}

	script, err := store.ExportScript(rec.Puppeteer.Session().ID)
	if err != nil {
		t.Fatalf("ExportScript: %v", err)
	}
	// Five clicks, each a press and a release, then the exit.
	if script.Len() != 11 {
		t.Fatalf("exported %d actions:\n%s", script.Len(), script.Node())
	}

	var buf bytes.Buffer
	if err := script.Write(&buf); err != nil {
		t.Fatal(err)
	}
	scriptPath := filepath.Join(dir, "canned.xml")
	if err := os.WriteFile(scriptPath, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	play, err := Run(puppeteer.Options{Script: scriptPath, Store: store})
	if err != nil {
		t.Fatalf("playback run: %v", err)
	}
	if play.ExitCode != 0 || !play.Puppeteer.Succeeded() {
		t.Fatalf("playback failed: exit %d, %v", play.ExitCode, play.Puppeteer.Err())
	}
	if play.Window.MorningType() != "hung-over" || play.Window.IrrelevantCount() != 1 {
		t.Errorf("replayed window: morning %q, irrelevant %d", play.Window.MorningType(), play.Window.IrrelevantCount())
	}

	sessions, _ := store.ListSessions(0)
	if len(sessions) != 2 {
		t.Fatalf("sessions = %d", len(sessions))
	}
	for _, s := range sessions {
		if s.Status != tape.StatusCompleted {
			t.Errorf("session %s (%s) = %s", s.Name, s.Metadata["mode"], s.Status)
		}
	}
}

func TestPlaybackFailureExitCode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.xml")
	content := `<script>
  <verify objectPath="mainWindow.*.helloLabel">
    <classdata><property name="text" value="Hello world. What a dreadful morning."/></classdata>
  </verify>
</script>`
	os.WriteFile(path, []byte(content), 0o644)

	res, err := Run(puppeteer.Options{Script: path})
	if err != nil {
		t.Fatal(err)
	}
	if res.ExitCode != 1 {
		t.Errorf("exit code = %d, want 1", res.ExitCode)
	}
	if err := res.Puppeteer.Err(); err == nil || !strings.Contains(err.Error(), "dreadful") {
		t.Errorf("err = %v", err)
	}
}
