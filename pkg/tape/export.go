package tape

import (
	"fmt"

	"Puppeteer/pkg/logging"
	"Puppeteer/pkg/playback"
	"Puppeteer/pkg/record"
	"Puppeteer/pkg/toolkit"
)

// replayable lists the recorded event types that become send-event steps.
var replayable = map[string]bool{
	toolkit.EventMouseButtonPress.String():   true,
	toolkit.EventMouseButtonRelease.String(): true,
	toolkit.EventKeyPress.String():           true,
	toolkit.EventKeyRelease.String():         true,
}

// ScriptFromRecords turns a recording into a playback script. Input events
// become send-event steps without their timestamps and a quit record becomes
// wait-application-exit. Everything else is left out.
func ScriptFromRecords(nodes []*record.RecordNode) *playback.Script {
	script := playback.NewScript()
	for _, n := range nodes {
		switch n.Name() {
		case record.QuitNodeName:
			script.Append(playback.NewAction(playback.WaitApplicationExit, nil))
		case record.EventNodeName:
			if !replayable[n.Attribute(record.AttrType)] || n.Attribute(record.AttrObjectPath) == "" {
				continue
			}
			ev := record.EventRecordFromNode(n.Clone())
			ev.RemoveAttribute(record.AttrTimestamp)
			script.Append(playback.NewAction(playback.SendEvent, ev))
		}
	}
	return script
}

// ExportScript converts a stored session into a playback script.
func (s *TapeStore) ExportScript(sessionID string) (*playback.Script, error) {
	if _, err := s.GetSession(sessionID); err != nil {
		return nil, err
	}
	recs, err := s.Records(sessionID)
	if err != nil {
		return nil, fmt.Errorf("export session %s: %w", sessionID, err)
	}

	nodes := make([]*record.RecordNode, 0, len(recs))
	for _, r := range recs {
		nodes = append(nodes, r.Node)
	}
	script := ScriptFromRecords(nodes)

	logging.LogInfo("tape").
		Str("session", sessionID).
		Int("records", len(recs)).
		Int("actions", script.Len()).
		Msg("Exported session as script")
	return script, nil
}
