package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"Puppeteer/pkg/logging"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.PlaybackMode() {
		t.Error("default config should record")
	}
	if cfg.Record.Output != "-" || !cfg.Record.Store {
		t.Errorf("record defaults = %+v", cfg.Record)
	}
	if cfg.DataDir == "" || cfg.Source != "<defaults>" {
		t.Errorf("data dir %q source %q", cfg.DataDir, cfg.Source)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	dir := t.TempDir()
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	defer os.Chdir(cwd)
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("implicit config may be missing: %v", err)
	}
	if cfg.Source != "<defaults>" {
		t.Errorf("source = %q", cfg.Source)
	}

	if _, err := Load(filepath.Join(dir, "nope.yaml")); err == nil {
		t.Error("explicit missing config should fail")
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "puppeteer.yaml")
	content := "playback:\n  script: hello.xml\n  watch: true\nrecord:\n  output: dump.xml.zst\n  store: false\n  max_events_per_second: 50\n  burst: 5\nlog:\n  level: debug\n  file: true\n  max_size_mb: 2\ndata_dir: " + dir + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.PlaybackMode() || cfg.Playback.Script != "hello.xml" || !cfg.Playback.Watch {
		t.Errorf("playback = %+v", cfg.Playback)
	}
	if cfg.Record.Output != "dump.xml.zst" || cfg.Record.Store || cfg.Record.MaxEventsPerSecond != 50 || cfg.Record.Burst != 5 {
		t.Errorf("record = %+v", cfg.Record)
	}
	if cfg.Record.SessionName != "recording" {
		t.Error("unset keys should keep their defaults")
	}
	if cfg.Source != path || cfg.DataDir != dir {
		t.Errorf("source %q data dir %q", cfg.Source, cfg.DataDir)
	}

	lc := cfg.LoggerConfig()
	if lc.Level != logging.LogLevelDebug || !lc.File || lc.MaxSizeMB != 2 {
		t.Errorf("logger config = %+v", lc)
	}
	if lc.FilePath != filepath.Join(dir, "logs", "puppeteer.log") {
		t.Errorf("log file = %q", lc.FilePath)
	}
	if cfg.StorePath() != filepath.Join(dir, "tapes.db") {
		t.Errorf("store path = %q", cfg.StorePath())
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"bad level", "log:\n  level: loud\n", "log.level"},
		{"negative rate", "record:\n  max_events_per_second: -1\n", "max_events_per_second"},
		{"empty data dir", "data_dir: \"\"\n", "data_dir"},
		{"not yaml", "record: [unterminated\n", "unmarshal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "c.yaml")
			os.WriteFile(path, []byte(tt.content), 0o644)
			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvPlayback: " /tmp/script.xml ",
		EnvOutput:   "out.xml",
		EnvLogLevel: "warn",
		EnvDataDir:  "/var/lib/puppeteer",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	cfg.ApplyEnv(lookup)
	if cfg.Playback.Script != "/tmp/script.xml" || !cfg.PlaybackMode() {
		t.Errorf("script = %q", cfg.Playback.Script)
	}
	if cfg.Record.Output != "out.xml" || cfg.Log.Level != "warn" || cfg.DataDir != "/var/lib/puppeteer" {
		t.Errorf("cfg = %+v", cfg)
	}

	// An empty playback variable switches back to recording.
	env = map[string]string{EnvPlayback: ""}
	cfg.ApplyEnv(lookup)
	if cfg.PlaybackMode() {
		t.Error("empty PUPPETEER_PLAYBACK should select record mode")
	}
	if cfg.Record.Output != "out.xml" {
		t.Error("absent variables must not reset settings")
	}
}

func TestEnvLookupReadsDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	os.WriteFile(path, []byte("PUPPETEER_TEST_DOTENV_ONLY=from-file\nPUPPETEER_TEST_DOTENV_BOTH=from-file\n"), 0o644)
	t.Setenv("PUPPETEER_TEST_DOTENV_BOTH", "from-env")

	lookup := EnvLookup(path)
	if v, ok := lookup("PUPPETEER_TEST_DOTENV_ONLY"); !ok || v != "from-file" {
		t.Errorf("dotenv value = %q, %v", v, ok)
	}
	if v, _ := lookup("PUPPETEER_TEST_DOTENV_BOTH"); v != "from-env" {
		t.Errorf("process environment should win, got %q", v)
	}
	if _, ok := lookup("PUPPETEER_TEST_DOTENV_MISSING"); ok {
		t.Error("unset key should not be found")
	}

	missing := EnvLookup(filepath.Join(t.TempDir(), "none.env"))
	if _, ok := missing("PUPPETEER_TEST_DOTENV_ONLY"); ok {
		t.Error("missing dotenv file should contribute nothing")
	}
}
