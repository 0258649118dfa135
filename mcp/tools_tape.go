package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"Puppeteer/pkg/record"
)

// registerTapeTools registers tape store tools
func (s *MCPServer) registerTapeTools() {
	// tape_list - List stored tapes
	s.server.AddTool(
		mcp.NewTool("tape_list",
			mcp.WithDescription("List recording and playback tapes, newest first"),
			mcp.WithNumber("limit",
				mcp.Description("Maximum number of tapes to return (default: 20, use 0 or -1 for all)"),
			),
		),
		s.handleTapeList,
	)

	// tape_show - Show one tape with its records
	s.server.AddTool(
		mcp.NewTool("tape_show",
			mcp.WithDescription("Show a tape's metadata and its records as event XML"),
			mcp.WithString("tape_id",
				mcp.Required(),
				mcp.Description("Tape ID"),
			),
			mcp.WithNumber("limit",
				mcp.Description("Maximum number of records to print (default: 50)"),
			),
		),
		s.handleTapeShow,
	)

	// tape_events - Find records matching an event pattern
	s.server.AddTool(
		mcp.NewTool("tape_events",
			mcp.WithDescription(`Find the records of a tape that match an event pattern.

A record matches when it has the same element name as the pattern and carries
every attribute of the pattern with the same value. Children of the pattern are
ignored.

EXAMPLES:
  All presses on the yes button:
    pattern: <event type="MouseButtonPress" objectPath="mainWindow.*.yesButton"/>

  Every quit record:
    pattern: <quit/>`),
			mcp.WithString("tape_id",
				mcp.Required(),
				mcp.Description("Tape ID"),
			),
			mcp.WithString("pattern",
				mcp.Description("Event XML pattern (optional, matches everything if omitted)"),
			),
			mcp.WithString("type",
				mcp.Description("Shortcut for <event type=\"...\"/> when no pattern is given"),
			),
		),
		s.handleTapeEvents,
	)

	// tape_export - Turn a recording into a playback script
	s.server.AddTool(
		mcp.NewTool("tape_export",
			mcp.WithDescription(`Export a recorded tape as a playback script.

Mouse and key presses and releases become send-event actions and the final
quit becomes wait-application-exit. Compressed output is chosen by suffix
(.zst, .br, .gz).

NOTE: output_path must be an absolute path on the host machine.`),
			mcp.WithString("tape_id",
				mcp.Required(),
				mcp.Description("Tape ID to export"),
			),
			mcp.WithString("output_path",
				mcp.Required(),
				mcp.Description("Absolute file path for the script"),
			),
		),
		s.handleTapeExport,
	)

	// tape_delete - Delete a tape
	s.server.AddTool(
		mcp.NewTool("tape_delete",
			mcp.WithDescription("Delete a tape and all its records"),
			mcp.WithString("tape_id",
				mcp.Required(),
				mcp.Description("Tape ID to delete"),
			),
		),
		s.handleTapeDelete,
	)
}

func (s *MCPServer) handleTapeList(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	// Default limit is 20, use 0 or negative for all records
	limit := 20
	limitSpecified := false
	if l, ok := args["limit"].(float64); ok {
		limit = int(l)
		limitSpecified = true
	}

	tapes, err := s.app.ListTapes(limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list tapes: %w", err)
	}

	if len(tapes) == 0 {
		return textResult("No tapes found"), nil
	}

	var b strings.Builder
	switch {
	case limitSpecified && limit <= 0:
		fmt.Fprintf(&b, "Found %d tape(s) (all):\n\n", len(tapes))
	case limit > 0 && len(tapes) >= limit:
		fmt.Fprintf(&b, "Found %d tape(s) (limit: %d, may have more):\n\n", len(tapes), limit)
	default:
		fmt.Fprintf(&b, "Found %d tape(s):\n\n", len(tapes))
	}

	for i, t := range tapes {
		fmt.Fprintf(&b, "%d. %s\n   ID: %s\n   Mode: %s, Status: %s, Records: %d\n",
			i+1, t.Name, t.ID, modeOf(t), t.Status, t.EventCount)
		if script := t.Metadata["script"]; script != "" {
			fmt.Fprintf(&b, "   Script: %s\n", script)
		}
	}

	return textResult(b.String()), nil
}

func (s *MCPServer) handleTapeShow(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	tapeID, ok := args["tape_id"].(string)
	if !ok || tapeID == "" {
		return nil, fmt.Errorf("tape_id is required")
	}

	limit := 50
	if l, ok := args["limit"].(float64); ok && l > 0 {
		limit = int(l)
	}

	t, err := s.app.GetTape(tapeID)
	if err != nil {
		return errorResult("Failed to get tape: %v", err), nil
	}
	records, err := s.app.GetTapeRecords(tapeID)
	if err != nil {
		return errorResult("Failed to read tape records: %v", err), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Tape %s (%s)\nMode: %s, Status: %s, Records: %d\n\n", t.Name, t.ID, modeOf(*t), t.Status, t.EventCount)
	for i, rec := range records {
		if i == limit {
			fmt.Fprintf(&b, "... %d more record(s)\n", len(records)-limit)
			break
		}
		fmt.Fprintf(&b, "#%d %s", rec.Seq, rec.Node.String())
	}

	return textResult(b.String()), nil
}

func (s *MCPServer) handleTapeEvents(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	tapeID, ok := args["tape_id"].(string)
	if !ok || tapeID == "" {
		return nil, fmt.Errorf("tape_id is required")
	}

	var pattern *record.RecordNode
	if p, ok := args["pattern"].(string); ok && strings.TrimSpace(p) != "" {
		node, err := record.ParseString(p)
		if err != nil {
			return errorResult("Invalid pattern: %v", err), nil
		}
		pattern = node
	} else if typ, ok := args["type"].(string); ok && typ != "" {
		pattern = record.NewNode(record.EventNodeName)
		pattern.AddAttribute(record.AttrType, typ)
	}

	records, err := s.app.FindTapeEvents(tapeID, pattern)
	if err != nil {
		return errorResult("Search failed: %v", err), nil
	}

	jsonData, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize records: %w", err)
	}

	return textResult(fmt.Sprintf("Found %d matching record(s):\n%s", len(records), string(jsonData))), nil
}

func (s *MCPServer) handleTapeExport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	tapeID, ok := args["tape_id"].(string)
	if !ok || tapeID == "" {
		return nil, fmt.Errorf("tape_id is required")
	}
	outputPath, ok := args["output_path"].(string)
	if !ok || outputPath == "" {
		return nil, fmt.Errorf("output_path is required")
	}

	resultPath, err := s.app.ExportTapeScript(tapeID, outputPath)
	if err != nil {
		return errorResult("Export failed: %v", err), nil
	}

	return textResult(fmt.Sprintf("Tape %s exported successfully to:\n%s", tapeID, resultPath)), nil
}

func (s *MCPServer) handleTapeDelete(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	tapeID, ok := args["tape_id"].(string)
	if !ok || tapeID == "" {
		return nil, fmt.Errorf("tape_id is required")
	}

	if err := s.app.DeleteTape(tapeID); err != nil {
		return errorResult("Delete failed: %v", err), nil
	}

	return textResult(fmt.Sprintf("Tape %s deleted", tapeID)), nil
}

func modeOf(t Tape) string {
	if m := t.Metadata["mode"]; m != "" {
		return m
	}
	return "record"
}
