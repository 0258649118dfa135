package puppeteer

import (
	"Puppeteer/pkg/logging"
	"Puppeteer/pkg/playback"
	"Puppeteer/pkg/record"
	"Puppeteer/pkg/tape"
)

// multiObserver fans playback progress out to several observers.
type multiObserver []playback.Observer

func (m multiObserver) ActionStarted(i int, a *playback.Action) {
	for _, o := range m {
		o.ActionStarted(i, a)
	}
}

func (m multiObserver) ActionCompleted(i int, a *playback.Action) {
	for _, o := range m {
		o.ActionCompleted(i, a)
	}
}

func (m multiObserver) ActionFailed(i int, a *playback.Action, err error) {
	for _, o := range m {
		o.ActionFailed(i, a, err)
	}
}

func (m multiObserver) PlaybackFinished(err error) {
	for _, o := range m {
		o.PlaybackFinished(err)
	}
}

// tapeObserver keeps every played step in a tape session, marked with its
// result, and ends the session when playback stops.
type tapeObserver struct {
	playback.NopObserver
	store   *tape.TapeStore
	session *tape.Session
}

func (t *tapeObserver) ActionCompleted(_ int, a *playback.Action) {
	node := a.Node()
	node.AddAttribute("result", "ok")
	t.append(node)
}

func (t *tapeObserver) ActionFailed(_ int, a *playback.Action, err error) {
	node := a.Node()
	node.AddAttribute("result", "failed")
	node.AddAttribute("error", err.Error())
	t.append(node)
}

func (t *tapeObserver) PlaybackFinished(err error) {
	status := tape.StatusCompleted
	if err != nil {
		status = tape.StatusFailed
	}
	if e := t.store.EndSession(t.session.ID, status); e != nil {
		logging.LogWarn("puppeteer").Err(e).Msg("Failed to end playback session")
		return
	}
	t.session.Status = status
}

func (t *tapeObserver) append(node *record.RecordNode) {
	if _, err := t.store.AppendRecord(t.session.ID, node); err != nil {
		logging.LogWarn("puppeteer").Err(err).Msg("Failed to keep playback step")
	}
}
