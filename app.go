package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"Puppeteer/pkg/config"
	"Puppeteer/pkg/demo"
	"Puppeteer/pkg/logging"
	"Puppeteer/pkg/playback"
	"Puppeteer/pkg/plugin"
	"Puppeteer/pkg/puppeteer"
	"Puppeteer/pkg/record"
	"Puppeteer/pkg/recorder"
	"Puppeteer/pkg/stream"
	"Puppeteer/pkg/tape"
)

// App struct
type App struct {
	cfg     config.Config
	version string

	// stdout receives the record dump when record.output is "-".
	stdout io.Writer
	// In MCP mode stdout carries the protocol, so the dump is never written there.
	mcpMode bool

	mu      sync.Mutex
	store   *tape.TapeStore
	plugins *plugin.Manager
}

// NewApp creates a new App application struct
func NewApp(cfg config.Config, version string) *App {
	return &App{
		cfg:     cfg,
		version: version,
		stdout:  os.Stdout,
	}
}

// startup opens the tape store and loads record plugins. Plugins that fail to
// load are logged and skipped.
func (a *App) startup() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	store, err := tape.NewTapeStore(a.cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open tape store: %w", err)
	}
	a.store = store

	a.plugins = plugin.NewManager(0)
	if dir := a.cfg.Record.Plugins; dir != "" {
		if err := a.plugins.LoadDir(dir); err != nil {
			logging.LogWarn("app").Err(err).Str("dir", dir).Msg("Some plugins failed to load")
		}
	}

	logging.LogInfo("app").
		Str("store", store.Path()).
		Int("plugins", len(a.plugins.Plugins())).
		Msg("App started")
	return nil
}

// shutdown releases everything startup opened.
func (a *App) shutdown() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.plugins != nil {
		a.plugins.Close()
		a.plugins = nil
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			logging.LogWarn("app").Err(err).Msg("Failed to close tape store")
		}
		a.store = nil
	}
}

// GetAppVersion returns the build version.
func (a *App) GetAppVersion() string { return a.version }

// ========================================
// Tapes
// ========================================

func (a *App) ListTapes(limit int) ([]tape.Session, error) {
	return a.store.ListSessions(limit)
}

func (a *App) GetTape(id string) (*tape.Session, error) {
	return a.store.GetSession(id)
}

func (a *App) GetTapeRecords(id string) ([]tape.StoredRecord, error) {
	if _, err := a.store.GetSession(id); err != nil {
		return nil, err
	}
	return a.store.Records(id)
}

func (a *App) FindTapeEvents(id string, pattern *record.RecordNode) ([]tape.StoredRecord, error) {
	if _, err := a.store.GetSession(id); err != nil {
		return nil, err
	}
	return a.store.FindEvents(id, pattern)
}

func (a *App) DeleteTape(id string) error {
	return a.store.DeleteSession(id)
}

// ExportTapeScript writes a tape as a playback script to outputPath and
// returns the absolute path written. The suffix picks the compression.
func (a *App) ExportTapeScript(id, outputPath string) (string, error) {
	script, err := a.store.ExportScript(id)
	if err != nil {
		return "", err
	}

	absPath, err := filepath.Abs(outputPath)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return "", err
	}

	w, err := stream.Create(absPath)
	if err != nil {
		return "", err
	}
	if err := script.Write(w); err != nil {
		w.Close()
		return "", fmt.Errorf("write script: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("write script: %w", err)
	}

	logging.LogInfo("app").Str("tape", id).Str("path", absPath).Int("actions", script.Len()).Msg("Exported tape")
	return absPath, nil
}

// ========================================
// Scripts and demo runs
// ========================================

// ValidateScript loads a script without running it.
func (a *App) ValidateScript(path string) (*playback.Script, error) {
	return playback.Load(path)
}

// RunDemo drives the demo window: playback when scriptPath is set, otherwise
// a recording of the canned session into the configured sinks.
func (a *App) RunDemo(scriptPath string) (*demo.Result, error) {
	opts := puppeteer.Options{
		Script:      scriptPath,
		SessionName: a.cfg.Record.SessionName,
		Recorder: recorder.Options{
			MaxEventsPerSecond: a.cfg.Record.MaxEventsPerSecond,
			Burst:              a.cfg.Record.Burst,
		},
	}
	if a.cfg.Record.Store {
		opts.Store = a.store
	}

	if scriptPath == "" {
		opts.Plugins = a.plugins
		out, err := a.openDump()
		if err != nil {
			return nil, err
		}
		if out != nil {
			defer func() {
				if err := out.Close(); err != nil {
					logging.LogWarn("app").Err(err).Msg("Failed to close record dump")
				}
			}()
			opts.Output = out
		}
	}

	op := logging.StartOperation("app", "demo").AddDetail("script", scriptPath)
	res, err := demo.Run(opts)
	if err != nil {
		op.EndWithError(err)
		return nil, err
	}
	op.AddDetail("mode", res.Puppeteer.Mode().String()).AddDetail("exit_code", res.ExitCode)
	if err := res.Puppeteer.Err(); err != nil {
		op.EndWithError(err)
	} else {
		op.End()
	}
	return res, nil
}

// openDump opens record.output. It returns nil when the dump would go to
// stdout in MCP mode.
func (a *App) openDump() (io.WriteCloser, error) {
	path := a.cfg.Record.Output
	if path == "" || path == "-" {
		if a.mcpMode {
			return nil, nil
		}
		return nopCloser{a.stdout}, nil
	}
	w, err := stream.Create(path)
	if err != nil {
		return nil, fmt.Errorf("open record output: %w", err)
	}
	return w, nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
