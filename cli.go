package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"sort"
	"strings"

	"Puppeteer/mcp"
	"Puppeteer/pkg/config"
	"Puppeteer/pkg/demo"
	"Puppeteer/pkg/logging"
	"Puppeteer/pkg/puppeteer"
	"Puppeteer/pkg/record"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

type command struct {
	name        string
	usage       string
	description string
	configure   func(fs *flag.FlagSet)
	run         func(fs *flag.FlagSet, args []string, app *App, stdout, stderr io.Writer) error
	skipInit    bool
	mcpMode     bool
}

// exitError carries a process exit code other than 1.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }

// RootCommand parses global flags and dispatches to a subcommand.
type RootCommand struct {
	commands map[string]command
	stdout   io.Writer
	stderr   io.Writer
	lookup   func(string) (string, bool)

	configPath string
	logLevel   string
	dataDir    string
}

// NewRootCommand constructs the CLI dispatcher.
func NewRootCommand() *RootCommand {
	rc := &RootCommand{
		commands: make(map[string]command),
		stdout:   os.Stdout,
		stderr:   os.Stderr,
		lookup:   config.EnvLookup(config.DefaultEnvFile),
	}

	rc.register(newDemoCommand())
	rc.register(newValidateCommand())
	rc.register(newTapesCommand())
	rc.register(newTapeCommand())
	rc.register(newFindCommand())
	rc.register(newExportCommand())
	rc.register(newDeleteCommand())
	rc.register(newMCPCommand())
	rc.register(newConfigCommand())
	rc.register(newVersionCommand())

	return rc
}

func (rc *RootCommand) register(cmd command) {
	rc.commands[cmd.name] = cmd
}

// Execute evaluates the supplied arguments, parses global flags, and
// dispatches to a subcommand.
func (rc *RootCommand) Execute(args []string) error {
	rootFlags := flag.NewFlagSet("puppeteer", flag.ContinueOnError)
	rootFlags.SetOutput(rc.stderr)
	rootFlags.Usage = func() { rc.printHelp() }

	rootFlags.StringVar(&rc.configPath, "config", "", "Path to config file (default: ./puppeteer.yaml if present)")
	rootFlags.StringVar(&rc.logLevel, "log-level", "", "Override log level (debug, info, warn, error)")
	rootFlags.StringVar(&rc.dataDir, "data-dir", "", "Override the directory holding the tape store")

	if err := rootFlags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	remaining := rootFlags.Args()
	if len(remaining) == 0 {
		rc.printHelp()
		return nil
	}

	subcommand, ok := rc.commands[remaining[0]]
	if !ok {
		fmt.Fprintf(rc.stderr, "Unknown command %q\n\n", remaining[0])
		rc.printHelp()
		return fmt.Errorf("unknown command %q", remaining[0])
	}

	fs := flag.NewFlagSet(subcommand.name, flag.ContinueOnError)
	fs.SetOutput(rc.stderr)
	fs.Usage = func() {
		fmt.Fprintf(rc.stdout, "Usage: puppeteer %s\n", strings.TrimSpace(subcommand.name+" "+subcommand.usage))
		if subcommand.description != "" {
			fmt.Fprintln(rc.stdout, subcommand.description)
		}
		fs.PrintDefaults()
	}

	if subcommand.configure != nil {
		subcommand.configure(fs)
	}

	if err := fs.Parse(remaining[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	var app *App
	if !subcommand.skipInit {
		cfg, err := rc.loadConfig()
		if err != nil {
			return err
		}
		app = NewApp(cfg, version)
		app.stdout = rc.stdout
		app.mcpMode = subcommand.mcpMode
		if err := app.startup(); err != nil {
			return err
		}
		defer app.shutdown()
	}

	return subcommand.run(fs, fs.Args(), app, rc.stdout, rc.stderr)
}

// loadConfig resolves the configuration (file, environment, then flags) and
// initializes logging from it.
func (rc *RootCommand) loadConfig() (config.Config, error) {
	cfg, err := config.Load(rc.configPath)
	if err != nil {
		return cfg, err
	}
	cfg.ApplyEnv(rc.lookup)
	if rc.logLevel != "" {
		cfg.Log.Level = rc.logLevel
	}
	if rc.dataDir != "" {
		cfg.DataDir = rc.dataDir
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	lc := cfg.LoggerConfig()
	lc.ConsoleOut = rc.stderr
	if err := logging.InitLogger(lc); err != nil {
		return cfg, fmt.Errorf("init logger: %w", err)
	}

	logging.LogDebug("cli").Str("source", cfg.Source).Str("data_dir", cfg.DataDir).Msg("Configuration loaded")
	return cfg, nil
}

func (rc *RootCommand) printHelp() {
	fmt.Fprintf(rc.stdout, "puppeteer - UI record and playback harness\nVersion: %s\n\n", versionString())
	fmt.Fprintln(rc.stdout, "Usage: puppeteer [global flags] <command> [command flags]")
	fmt.Fprintln(rc.stdout, "Global flags:")
	fmt.Fprintln(rc.stdout, "  -config string      Path to config file (default: ./puppeteer.yaml if present)")
	fmt.Fprintln(rc.stdout, "  -log-level string   Override log level (debug, info, warn, error)")
	fmt.Fprintln(rc.stdout, "  -data-dir string    Override the directory holding the tape store")
	fmt.Fprintln(rc.stdout, "")
	fmt.Fprintln(rc.stdout, "Available commands:")

	names := make([]string, 0, len(rc.commands))
	for name := range rc.commands {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fmt.Fprintf(rc.stdout, "  %-10s %s\n", name, rc.commands[name].description)
	}
}

func versionString() string {
	return fmt.Sprintf("%s (%s/%s)", version, runtime.Version(), runtime.GOOS)
}

// ========================================
// Commands
// ========================================

func newDemoCommand() command {
	return command{
		name:        "demo",
		usage:       "[-script file] [-watch]",
		description: "Record the demo window's canned session, or play a script against it",
		configure: func(fs *flag.FlagSet) {
			fs.String("script", "", "Playback script (default: playback.script from the config)")
			fs.Bool("watch", false, "Replay the script every time it is saved")
		},
		run: runDemo,
	}
}

func runDemo(fs *flag.FlagSet, args []string, app *App, stdout, stderr io.Writer) error {
	script := stringFlag(fs, "script")
	if script == "" {
		script = app.cfg.Playback.Script
	}
	watch := boolFlag(fs, "watch") || app.cfg.Playback.Watch

	if watch && script == "" {
		return errors.New("-watch needs a playback script")
	}

	res, err := app.RunDemo(script)
	if err != nil {
		return err
	}
	printDemoResult(stderr, res)

	if watch {
		return watchScript(script, stderr, func(path string) {
			res, err := app.RunDemo(path)
			if err != nil {
				fmt.Fprintf(stderr, "%v\n", err)
				return
			}
			printDemoResult(stderr, res)
		})
	}

	if res.ExitCode != 0 {
		return &exitError{code: res.ExitCode, err: fmt.Errorf("demo exited with code %d", res.ExitCode)}
	}
	return nil
}

func printDemoResult(w io.Writer, res *demo.Result) {
	p := res.Puppeteer
	switch {
	case p.Mode() == puppeteer.ModeRecord:
		fmt.Fprintf(w, "recorded %d record(s), %d dropped", p.Records(), p.Dropped())
	case p.Succeeded():
		fmt.Fprint(w, "playback finished")
	default:
		fmt.Fprintf(w, "playback failed: %v", p.Err())
	}
	if s := p.Session(); s != nil {
		fmt.Fprintf(w, " (tape %s)", s.ID)
	}
	fmt.Fprintf(w, "; morning is %s, exit code %d\n", res.Window.MorningType(), res.ExitCode)
}

func newValidateCommand() command {
	return command{
		name:        "validate",
		usage:       "[-watch] <script>",
		description: "Load a playback script and report its actions",
		configure: func(fs *flag.FlagSet) {
			fs.Bool("watch", false, "Validate again every time the script is saved")
		},
		run: func(fs *flag.FlagSet, args []string, app *App, stdout, stderr io.Writer) error {
			if len(args) != 1 {
				return errors.New("validate needs exactly one script path")
			}
			bridge := NewMCPBridge(app)
			validate := func(path string) error {
				info, err := bridge.ValidateScript(path)
				if err != nil {
					fmt.Fprintf(stdout, "%v\n", err)
					return err
				}
				fmt.Fprintf(stdout, "%s: %d action(s)\n", info.Path, info.Actions)
				return nil
			}

			err := validate(args[0])
			if boolFlag(fs, "watch") {
				return watchScript(args[0], stderr, func(path string) { validate(path) })
			}
			return err
		},
	}
}

func newTapesCommand() command {
	return command{
		name:        "tapes",
		usage:       "[-limit n]",
		description: "List stored tapes, newest first",
		configure: func(fs *flag.FlagSet) {
			fs.Int("limit", 20, "Maximum number of tapes (0 for all)")
		},
		run: func(fs *flag.FlagSet, args []string, app *App, stdout, stderr io.Writer) error {
			tapes, err := app.ListTapes(intFlag(fs, "limit"))
			if err != nil {
				return err
			}
			if len(tapes) == 0 {
				fmt.Fprintln(stdout, "no tapes")
				return nil
			}
			for _, t := range tapes {
				mode := t.Metadata["mode"]
				if mode == "" {
					mode = "record"
				}
				fmt.Fprintf(stdout, "%s  %-8s %-9s %5d  %s\n", t.ID, mode, t.Status, t.EventCount, t.Name)
			}
			return nil
		},
	}
}

func newTapeCommand() command {
	return command{
		name:        "tape",
		usage:       "<id>",
		description: "Print the records of a tape",
		run: func(fs *flag.FlagSet, args []string, app *App, stdout, stderr io.Writer) error {
			if len(args) != 1 {
				return errors.New("tape needs a tape id")
			}
			records, err := app.GetTapeRecords(args[0])
			if err != nil {
				return err
			}
			for _, r := range records {
				if err := r.Node.Write(stdout, 0); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newFindCommand() command {
	return command{
		name:        "find",
		usage:       "[-type t] [-pattern xml] <id>",
		description: "Print the records of a tape that match an event pattern",
		configure: func(fs *flag.FlagSet) {
			fs.String("type", "", "Event type to match")
			fs.String("pattern", "", `Event XML pattern, e.g. <event objectPath="mainWindow.*.yesButton"/>`)
		},
		run: func(fs *flag.FlagSet, args []string, app *App, stdout, stderr io.Writer) error {
			if len(args) != 1 {
				return errors.New("find needs a tape id")
			}

			var pattern *record.RecordNode
			if p := stringFlag(fs, "pattern"); p != "" {
				node, err := record.ParseString(p)
				if err != nil {
					return fmt.Errorf("pattern: %w", err)
				}
				pattern = node
			} else if typ := stringFlag(fs, "type"); typ != "" {
				pattern = record.NewNode(record.EventNodeName)
				pattern.AddAttribute(record.AttrType, typ)
			}

			records, err := app.FindTapeEvents(args[0], pattern)
			if err != nil {
				return err
			}
			for _, r := range records {
				fmt.Fprintf(stdout, "#%d %s", r.Seq, r.Node)
			}
			return nil
		},
	}
}

func newExportCommand() command {
	return command{
		name:        "export",
		usage:       "-o file <id>",
		description: "Export a recorded tape as a playback script",
		configure: func(fs *flag.FlagSet) {
			fs.String("o", "", "Output script path (.xml, .xml.zst, .xml.br, .xml.gz)")
		},
		run: func(fs *flag.FlagSet, args []string, app *App, stdout, stderr io.Writer) error {
			if len(args) != 1 {
				return errors.New("export needs a tape id")
			}
			out := stringFlag(fs, "o")
			if out == "" {
				return errors.New("export needs -o")
			}
			path, err := app.ExportTapeScript(args[0], out)
			if err != nil {
				return err
			}
			fmt.Fprintln(stdout, path)
			return nil
		},
	}
}

func newDeleteCommand() command {
	return command{
		name:        "delete",
		usage:       "<id>",
		description: "Delete a tape",
		run: func(fs *flag.FlagSet, args []string, app *App, stdout, stderr io.Writer) error {
			if len(args) != 1 {
				return errors.New("delete needs a tape id")
			}
			return app.DeleteTape(args[0])
		},
	}
}

func newMCPCommand() command {
	return command{
		name:        "mcp",
		description: "Serve the tape store and script tools over MCP on stdio",
		mcpMode:     true,
		run: func(fs *flag.FlagSet, args []string, app *App, stdout, stderr io.Writer) error {
			return mcp.NewMCPServer(NewMCPBridge(app)).Start()
		},
	}
}

func newConfigCommand() command {
	return command{
		name:        "config",
		description: "Print the effective configuration",
		run: func(fs *flag.FlagSet, args []string, app *App, stdout, stderr io.Writer) error {
			fmt.Fprintf(stdout, "# source: %s\n%s", app.cfg.Source, app.cfg.String())
			return nil
		},
	}
}

func newVersionCommand() command {
	return command{
		name:        "version",
		description: "Print the version information",
		skipInit:    true,
		run: func(fs *flag.FlagSet, args []string, app *App, stdout, stderr io.Writer) error {
			_, err := fmt.Fprintln(stdout, versionString())
			return err
		},
	}
}

// watchScript runs onChange on every save of path until interrupted.
func watchScript(path string, stderr io.Writer, onChange func(path string)) error {
	w := NewScriptWatcher(path, onChange)
	if err := w.Start(); err != nil {
		return err
	}
	defer w.Stop()

	fmt.Fprintf(stderr, "watching %s, press Ctrl-C to stop\n", path)
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	defer signal.Stop(sig)
	<-sig
	return nil
}

func stringFlag(fs *flag.FlagSet, name string) string {
	if f := fs.Lookup(name); f != nil {
		return f.Value.String()
	}
	return ""
}

func boolFlag(fs *flag.FlagSet, name string) bool {
	if f := fs.Lookup(name); f != nil {
		if g, ok := f.Value.(flag.Getter); ok {
			v, _ := g.Get().(bool)
			return v
		}
	}
	return false
}

func intFlag(fs *flag.FlagSet, name string) int {
	if f := fs.Lookup(name); f != nil {
		if g, ok := f.Value.(flag.Getter); ok {
			v, _ := g.Get().(int)
			return v
		}
	}
	return 0
}
