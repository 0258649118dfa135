package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type cliHarness struct {
	dir    string
	config string
	stdout bytes.Buffer
	stderr bytes.Buffer
}

func newCLIHarness(t *testing.T, configYAML string) *cliHarness {
	t.Helper()
	h := &cliHarness{dir: t.TempDir()}
	h.config = filepath.Join(h.dir, "puppeteer.yaml")
	if err := os.WriteFile(h.config, []byte(configYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	return h
}

// run executes one command line with fresh output buffers.
func (h *cliHarness) run(args ...string) error {
	h.stdout.Reset()
	h.stderr.Reset()

	rc := NewRootCommand()
	rc.stdout = &h.stdout
	rc.stderr = &h.stderr
	rc.lookup = func(string) (string, bool) { return "", false }

	full := append([]string{"-config", h.config, "-data-dir", h.dir, "-log-level", "error"}, args...)
	return rc.Execute(full)
}

func TestCLIVersionAndHelp(t *testing.T) {
	h := newCLIHarness(t, "")

	if err := h.run("version"); err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(h.stdout.String(), version+" (go") {
		t.Errorf("version output = %q", h.stdout.String())
	}

	if err := h.run(); err != nil {
		t.Fatalf("help: %v", err)
	}
	for _, name := range []string{"demo", "validate", "tapes", "tape", "find", "export", "delete", "mcp", "config", "version"} {
		if !strings.Contains(h.stdout.String(), "  "+name+" ") {
			t.Errorf("help does not list %q:\n%s", name, h.stdout.String())
		}
	}

	if err := h.run("rewind"); err == nil {
		t.Error("unknown command should fail")
	}
}

func TestCLIConfigCommand(t *testing.T) {
	h := newCLIHarness(t, "record:\n  session_name: nightly\n  burst: 4\n")

	if err := h.run("config"); err != nil {
		t.Fatalf("config: %v", err)
	}
	out := h.stdout.String()
	if !strings.Contains(out, "# source: "+h.config) || !strings.Contains(out, "session_name: nightly") || !strings.Contains(out, "burst: 4") {
		t.Errorf("config output:\n%s", out)
	}
	if !strings.Contains(out, "data_dir: "+h.dir) {
		t.Errorf("-data-dir should override the data directory:\n%s", out)
	}
}

func TestCLIBadConfig(t *testing.T) {
	h := newCLIHarness(t, "log:\n  level: chatty\n")
	h.config = filepath.Join(h.dir, "puppeteer.yaml")

	rc := NewRootCommand()
	rc.stdout, rc.stderr = &h.stdout, &h.stderr
	rc.lookup = func(string) (string, bool) { return "", false }
	if err := rc.Execute([]string{"-config", h.config, "tapes"}); err == nil {
		t.Error("an invalid log level should be rejected")
	}
}

func TestCLIRecordExportPlayback(t *testing.T) {
	h := newCLIHarness(t, "record:\n  session_name: cli\n")

	// Record: the dump goes to stdout.
	if err := h.run("demo"); err != nil {
		t.Fatalf("demo: %v\n%s", err, h.stderr.String())
	}
	if !strings.Contains(h.stdout.String(), "<quit/>") {
		t.Errorf("record dump missing from stdout:\n%s", h.stdout.String())
	}
	if !strings.Contains(h.stderr.String(), "morning is hung-over, exit code 0") {
		t.Errorf("demo summary = %q", h.stderr.String())
	}

	if err := h.run("tapes"); err != nil {
		t.Fatalf("tapes: %v", err)
	}
	fields := strings.Fields(h.stdout.String())
	if len(fields) < 5 || fields[1] != "record" || fields[2] != "completed" || fields[4] != "cli" {
		t.Fatalf("tapes output = %q", h.stdout.String())
	}
	id := fields[0]

	if err := h.run("find", "-type", "MouseButtonRelease", id); err != nil {
		t.Fatalf("find: %v", err)
	}
	if n := strings.Count(h.stdout.String(), `type="MouseButtonRelease"`); n != 5 {
		t.Errorf("find returned %d releases:\n%s", n, h.stdout.String())
	}

	script := filepath.Join(h.dir, "canned.xml")
	if err := h.run("export", "-o", script, id); err != nil {
		t.Fatalf("export: %v", err)
	}
	if strings.TrimSpace(h.stdout.String()) != script {
		t.Errorf("export printed %q", h.stdout.String())
	}

	if err := h.run("validate", script); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !strings.Contains(h.stdout.String(), "11 action(s)") {
		t.Errorf("validate output = %q", h.stdout.String())
	}

	if err := h.run("demo", "-script", script); err != nil {
		t.Fatalf("demo -script: %v\n%s", err, h.stderr.String())
	}
	if !strings.Contains(h.stderr.String(), "playback finished") {
		t.Errorf("playback summary = %q", h.stderr.String())
	}

	if err := h.run("delete", id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := h.run("tape", id); err == nil {
		t.Error("deleted tape should be gone")
	}
}

func TestCLIPlaybackFailureExitCode(t *testing.T) {
	h := newCLIHarness(t, "")
	script := filepath.Join(h.dir, "wrong.xml")
	os.WriteFile(script, []byte(`<script>
  <verify objectPath="mainWindow.*.yesButton">
    <classdata><property name="text" value="&amp;Nope"/></classdata>
  </verify>
</script>`), 0o644)

	err := h.run("demo", "-script", script)
	var exitErr *exitError
	if !errors.As(err, &exitErr) || exitErr.code != 1 {
		t.Fatalf("err = %v, want exit code 1", err)
	}
	if !strings.Contains(h.stderr.String(), "playback failed") {
		t.Errorf("summary = %q", h.stderr.String())
	}
}

func TestCLIUsageErrors(t *testing.T) {
	h := newCLIHarness(t, "")

	tests := []struct {
		name string
		args []string
	}{
		{"watch without script", []string{"demo", "-watch"}},
		{"validate without path", []string{"validate"}},
		{"export without output", []string{"export", "abc"}},
		{"tape without id", []string{"tape"}},
		{"find bad pattern", []string{"find", "-pattern", "<event", "abc"}},
		{"missing script", []string{"validate", filepath.Join(h.dir, "missing.xml")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := h.run(tt.args...); err == nil {
				t.Errorf("%v should fail", tt.args)
			}
		})
	}
}
