package demo

import (
	"time"

	"Puppeteer/pkg/logging"
	"Puppeteer/pkg/toolkit"
)

// DefaultStepInterval is the pause between two simulated user steps.
const DefaultStepInterval = 300 * time.Millisecond

// Step is one simulated user gesture.
type Step struct {
	Name string
	Do   func(h *HelloWorld)
}

// CannedSession is the scripted user that drives the demo while recording:
// it pokes the File menu, picks a worse morning and says yeah, which quits.
func CannedSession() []Step {
	return []Step{
		{"open File menu", func(h *HelloWorld) {
			h.App.Click(h.MenuBar, h.MenuBar.Actions()[0].Rect().Center())
		}},
		{"choose Irrelevant", func(h *HelloWorld) {
			h.App.Click(h.FileMenu, h.Irrelevant.Rect().Center())
		}},
		{"open morning combo", func(h *HelloWorld) {
			h.App.ClickCenter(h.MorningCombo)
		}},
		{"pick hung-over", func(h *HelloWorld) {
			list := h.MorningCombo.List()
			h.App.Click(list.Viewport(), list.VisualRect(h.MorningCombo.FindText("hung-over")).Center())
		}},
		{"say yeah", func(h *HelloWorld) {
			h.App.ClickCenter(h.YesButton)
		}},
	}
}

// Autopilot plays steps one per interval on the application's loop.
type Autopilot struct {
	h        *HelloWorld
	steps    []Step
	interval time.Duration
	timer    toolkit.Timer
	done     int
}

// NewAutopilot creates an autopilot; Start arms it.
func NewAutopilot(h *HelloWorld, steps []Step, interval time.Duration) *Autopilot {
	if interval <= 0 {
		interval = DefaultStepInterval
	}
	a := &Autopilot{h: h, steps: steps, interval: interval}
	a.timer = h.App.NewTimer(a.step)
	return a
}

// Start schedules the first step.
func (a *Autopilot) Start() {
	if len(a.steps) > 0 {
		a.timer.Start(a.interval)
	}
}

// Done returns how many steps have run.
func (a *Autopilot) Done() int { return a.done }

func (a *Autopilot) step() {
	s := a.steps[a.done]
	logging.LogDebug("demo").Str("step", s.Name).Msg("Autopilot")
	s.Do(a.h)
	a.done++
	if a.done < len(a.steps) {
		a.timer.Start(a.interval)
	}
}
