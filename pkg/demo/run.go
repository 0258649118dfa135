package demo

import (
	"Puppeteer/pkg/memtk"
	"Puppeteer/pkg/puppeteer"
)

// Result is the outcome of a demo run.
type Result struct {
	ExitCode  int
	Window    *HelloWorld
	Puppeteer *puppeteer.Puppeteer
	// Steps is how many autopilot steps ran while recording.
	Steps int
}

// Run starts Puppeteer the way an instrumented application would, shows the
// window and runs the loop until the application exits or goes idle. When
// recording, the canned session stands in for the user. A playback that did
// not finish yields exit code 1.
func Run(opts puppeteer.Options) (*Result, error) {
	app := memtk.NewApp()
	if opts.Recorder.Now == nil {
		opts.Recorder.Now = app.Now
	}

	p, err := puppeteer.Start(app, opts)
	if err != nil {
		return nil, err
	}
	defer p.Close()

	h := NewHelloWorld(app)
	h.Show()
	app.Activate()

	var pilot *Autopilot
	if p.Mode() == puppeteer.ModeRecord {
		pilot = NewAutopilot(h, CannedSession(), DefaultStepInterval)
		pilot.Start()
	}

	res := &Result{ExitCode: app.Run(), Window: h, Puppeteer: p}
	if pilot != nil {
		res.Steps = pilot.Done()
	}
	if p.Mode() == puppeteer.ModePlayback && !p.Succeeded() && res.ExitCode == 0 {
		res.ExitCode = 1
	}
	return res, nil
}
