// Package puppeteer attaches record or playback to a running application.
//
// With a script configured it plays the script back; otherwise it records
// every interesting event to the configured sinks and writes a quit record
// when the application exits.
package puppeteer

import (
	"fmt"
	"io"

	"Puppeteer/pkg/logging"
	"Puppeteer/pkg/playback"
	"Puppeteer/pkg/plugin"
	"Puppeteer/pkg/record"
	"Puppeteer/pkg/recorder"
	"Puppeteer/pkg/tape"
	"Puppeteer/pkg/toolkit"
)

// Mode is what an attached Puppeteer does.
type Mode int

const (
	ModeRecord Mode = iota
	ModePlayback
)

func (m Mode) String() string {
	if m == ModePlayback {
		return "playback"
	}
	return "record"
}

// Options configures Start.
type Options struct {
	// Script selects playback mode when non-empty.
	Script string

	// Output receives the text dump of every record. Nil disables the dump.
	Output io.Writer
	// Store, when set, keeps the run as a tape session.
	Store       *tape.TapeStore
	SessionName string

	Recorder recorder.Options
	// Plugins rewrite or drop records before they reach the sinks.
	Plugins *plugin.Manager
	// Observer is told about playback progress in addition to the tape store.
	Observer playback.Observer
}

// Puppeteer is one attachment to an application.
type Puppeteer struct {
	app     toolkit.Application
	mode    Mode
	rec     *recorder.Recorder
	engine  *playback.Engine
	out     io.Writer
	store   *tape.TapeStore
	session *tape.Session
	plugins *plugin.Manager

	records  int
	sinkErr  error
	attached bool
}

// Start attaches to app. A script that cannot be loaded is an error and
// leaves the application untouched.
func Start(app toolkit.Application, opts Options) (*Puppeteer, error) {
	p := &Puppeteer{
		app:     app,
		rec:     recorder.New(opts.Recorder),
		out:     opts.Output,
		store:   opts.Store,
		plugins: opts.Plugins,
	}

	if opts.Script != "" {
		return p, p.startPlayback(opts)
	}
	p.startRecording(opts.SessionName)
	return p, nil
}

func (p *Puppeteer) startPlayback(opts Options) error {
	p.mode = ModePlayback

	script, err := playback.Load(opts.Script)
	if err != nil {
		logging.LogError("puppeteer").Err(err).Str("script", opts.Script).Msg("Unable to parse playback script")
		return err
	}

	observers := multiObserver{}
	if opts.Observer != nil {
		observers = append(observers, opts.Observer)
	}
	if p.store != nil {
		name := opts.SessionName
		if name == "" {
			name = "playback"
		}
		session, err := p.store.CreateSession(name, map[string]string{
			"mode":   ModePlayback.String(),
			"script": opts.Script,
		})
		if err != nil {
			logging.LogWarn("puppeteer").Err(err).Msg("Tape store unavailable, playback not kept")
		} else {
			p.session = session
			observers = append(observers, &tapeObserver{store: p.store, session: session})
		}
	}

	p.engine = playback.NewEngine(p.app, playback.Options{Recorder: p.rec, Observer: observers})
	p.engine.Start(script)
	return nil
}

func (p *Puppeteer) startRecording(sessionName string) {
	p.mode = ModeRecord

	if p.store != nil {
		if sessionName == "" {
			sessionName = "recording"
		}
		session, err := p.store.CreateSession(sessionName, map[string]string{"mode": ModeRecord.String()})
		if err != nil {
			logging.LogWarn("puppeteer").Err(err).Msg("Tape store unavailable, recording to dump only")
		} else {
			p.session = session
		}
	}

	p.app.InstallEventFilter(p)
	p.app.OnAboutToQuit(p.onAboutToQuit)
	p.attached = true
	logging.LogInfo("puppeteer").Msg("Recording started")
}

// Mode returns record or playback.
func (p *Puppeteer) Mode() Mode { return p.mode }

// Engine returns the playback engine, or nil while recording.
func (p *Puppeteer) Engine() *playback.Engine { return p.engine }

// Session returns the tape session of this run, or nil without a store.
func (p *Puppeteer) Session() *tape.Session { return p.session }

// Records returns how many records reached the sinks while recording.
func (p *Puppeteer) Records() int { return p.records }

// Dropped returns how many records the throttle refused.
func (p *Puppeteer) Dropped() int { return p.rec.Dropped() }

// Err returns the playback failure, or else the first sink error.
func (p *Puppeteer) Err() error {
	if p.engine != nil && p.engine.Err() != nil {
		return p.engine.Err()
	}
	return p.sinkErr
}

// Succeeded reports whether a playback ran to the end. A recording succeeds
// when every record reached its sinks.
func (p *Puppeteer) Succeeded() bool {
	if p.mode == ModePlayback {
		return p.engine != nil && p.engine.Finished()
	}
	return p.sinkErr == nil
}

// FilterEvent implements toolkit.EventFilter for recording. Events are only
// observed, never consumed.
func (p *Puppeteer) FilterEvent(receiver toolkit.Object, ev toolkit.Event) bool {
	rec := p.rec.Record(receiver, ev)
	if rec == nil || !p.rec.Allow() {
		return false
	}
	p.emit(rec.RecordNode)
	return false
}

// Close detaches from the application. An open tape session is ended.
func (p *Puppeteer) Close() {
	if p.engine != nil {
		p.engine.Close()
	}
	if p.attached {
		p.app.RemoveEventFilter(p)
		p.attached = false
	}
	if p.mode == ModeRecord {
		p.endSession(tape.StatusCompleted)
	}
}

func (p *Puppeteer) onAboutToQuit() {
	if !p.attached {
		return
	}
	p.emit(recorder.QuitRecord())
	logging.LogInfo("puppeteer").
		Int("records", p.records).
		Int("dropped", p.rec.Dropped()).
		Msg("Recording finished")
	p.endSession(tape.StatusCompleted)
}

// emit sends one record through the plugins to every sink.
func (p *Puppeteer) emit(node *record.RecordNode) {
	if p.plugins != nil {
		if node = p.plugins.Process(node); node == nil {
			return
		}
	}
	p.records++

	if p.out != nil {
		if err := node.Write(p.out, 0); err != nil {
			p.sinkFailed(fmt.Errorf("write record dump: %w", err))
		}
	}
	if p.store != nil && p.session != nil {
		if _, err := p.store.AppendRecord(p.session.ID, node); err != nil {
			p.sinkFailed(err)
		}
	}
}

// sinkFailed keeps the first sink error; later ones are only counted in the log.
func (p *Puppeteer) sinkFailed(err error) {
	if p.sinkErr != nil {
		logging.LogDebug("puppeteer").Err(err).Msg("Record sink failed again")
		return
	}
	logging.LogError("puppeteer").Err(err).Msg("Record sink failed")
	p.sinkErr = err
}

func (p *Puppeteer) endSession(status string) {
	if p.store == nil || p.session == nil || p.session.Status != tape.StatusActive {
		return
	}
	if err := p.store.EndSession(p.session.ID, status); err != nil {
		logging.LogWarn("puppeteer").Err(err).Msg("Failed to end tape session")
		return
	}
	p.session.Status = status
}
