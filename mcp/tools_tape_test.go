package mcp

import (
	"context"
	"errors"
	"strings"
	"testing"

	"Puppeteer/pkg/record"
)

// ==================== tape_list ====================

func TestHandleTapeList(t *testing.T) {
	playback := SampleTape("p1")
	playback.Metadata = map[string]string{"mode": "playback", "script": "/tmp/yes.xml"}

	tests := []struct {
		name      string
		args      map[string]interface{}
		tapes     []Tape
		wantLimit int
		contains  []string
	}{
		{
			name:      "default limit",
			args:      map[string]interface{}{},
			tapes:     []Tape{SampleTape("t1")},
			wantLimit: 20,
			contains:  []string{"Found 1 tape(s):", "ID: t1", "Mode: record"},
		},
		{
			name:      "all",
			args:      map[string]interface{}{"limit": float64(0)},
			tapes:     []Tape{SampleTape("t1"), playback},
			wantLimit: 0,
			contains:  []string{"(all)", "Mode: playback", "Script: /tmp/yes.xml"},
		},
		{
			name:      "limit reached",
			args:      map[string]interface{}{"limit": float64(1)},
			tapes:     []Tape{SampleTape("t1")},
			wantLimit: 1,
			contains:  []string{"may have more"},
		},
		{
			name:      "empty",
			args:      map[string]interface{}{},
			tapes:     nil,
			wantLimit: 20,
			contains:  []string{"No tapes found"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := NewMockPuppeteerApp()
			mock.ListTapesResult = tt.tapes
			server := NewMCPServer(mock)

			result, err := server.handleTapeList(context.Background(), makeToolRequest(tt.args))
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			text := getTextContent(result)
			for _, want := range tt.contains {
				if !strings.Contains(text, want) {
					t.Errorf("Result should contain %q, got:\n%s", want, text)
				}
			}
			if call := mock.GetLastCallByMethod("ListTapes"); call.Args[0] != tt.wantLimit {
				t.Errorf("ListTapes limit = %v, want %d", call.Args[0], tt.wantLimit)
			}
		})
	}
}

func TestHandleTapeList_Error(t *testing.T) {
	mock := NewMockPuppeteerApp()
	mock.ListTapesError = errors.New("database locked")
	server := NewMCPServer(mock)

	if _, err := server.handleTapeList(context.Background(), makeToolRequest(nil)); err == nil {
		t.Error("Expected error")
	}
}

// ==================== tape_show ====================

func TestHandleTapeShow(t *testing.T) {
	mock := NewMockPuppeteerApp()
	sample := SampleTape("t1")
	mock.GetTapeResult = &sample
	mock.GetTapeRecordsResult = SampleRecords("t1")
	server := NewMCPServer(mock)

	result, err := server.handleTapeShow(context.Background(), makeToolRequest(map[string]interface{}{
		"tape_id": "t1",
		"limit":   float64(2),
	}))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	text := getTextContent(result)
	if !strings.Contains(text, `#1 <event timestamp="100" type="MouseButtonPress"`) {
		t.Errorf("Expected first record as XML, got:\n%s", text)
	}
	if !strings.Contains(text, "... 1 more record(s)") {
		t.Errorf("Expected truncation note, got:\n%s", text)
	}
	if strings.Contains(text, "<quit") {
		t.Error("Quit record is past the limit")
	}
}

func TestHandleTapeShow_Errors(t *testing.T) {
	server := NewMCPServer(NewMockPuppeteerApp())

	if _, err := server.handleTapeShow(context.Background(), makeToolRequest(map[string]interface{}{})); err == nil {
		t.Error("Expected error for missing tape_id")
	}

	result, err := server.handleTapeShow(context.Background(), makeToolRequest(map[string]interface{}{"tape_id": "missing"}))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !result.IsError || !strings.Contains(getTextContent(result), "not found") {
		t.Errorf("Expected not-found error result, got %q", getTextContent(result))
	}
}

// ==================== tape_events ====================

func TestHandleTapeEvents(t *testing.T) {
	tests := []struct {
		name    string
		args    map[string]interface{}
		check   func(t *testing.T, pattern *record.RecordNode)
		isError bool
	}{
		{
			name: "no pattern",
			args: map[string]interface{}{"tape_id": "t1"},
			check: func(t *testing.T, pattern *record.RecordNode) {
				if pattern != nil {
					t.Errorf("pattern = %s, want nil", pattern)
				}
			},
		},
		{
			name: "xml pattern",
			args: map[string]interface{}{"tape_id": "t1", "pattern": `<event type="MouseButtonPress" objectPath="mainWindow.*.yesButton"/>`},
			check: func(t *testing.T, pattern *record.RecordNode) {
				if pattern.Name() != "event" || pattern.Attribute("objectPath") != "mainWindow.*.yesButton" {
					t.Errorf("pattern = %s", pattern)
				}
			},
		},
		{
			name: "type shortcut",
			args: map[string]interface{}{"tape_id": "t1", "type": "KeyPress"},
			check: func(t *testing.T, pattern *record.RecordNode) {
				if pattern.Name() != "event" || pattern.Attribute("type") != "KeyPress" {
					t.Errorf("pattern = %s", pattern)
				}
			},
		},
		{
			name:    "malformed pattern",
			args:    map[string]interface{}{"tape_id": "t1", "pattern": `<event type="x"`},
			isError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := NewMockPuppeteerApp()
			mock.FindTapeEventsResult = SampleRecords("t1")[:1]
			server := NewMCPServer(mock)

			result, err := server.handleTapeEvents(context.Background(), makeToolRequest(tt.args))
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if result.IsError != tt.isError {
				t.Fatalf("IsError = %v, text %q", result.IsError, getTextContent(result))
			}
			if tt.isError {
				if mock.WasMethodCalled("FindTapeEvents") {
					t.Error("FindTapeEvents should not run for a bad pattern")
				}
				return
			}
			if !strings.Contains(getTextContent(result), "Found 1 matching record(s)") {
				t.Errorf("Unexpected result: %s", getTextContent(result))
			}
			call := mock.GetLastCallByMethod("FindTapeEvents")
			pattern, _ := call.Args[1].(*record.RecordNode)
			tt.check(t, pattern)
		})
	}
}

// ==================== tape_export ====================

func TestHandleTapeExport(t *testing.T) {
	mock := NewMockPuppeteerApp()
	mock.ExportTapeScriptResult = "/tmp/out.xml"
	server := NewMCPServer(mock)

	result, err := server.handleTapeExport(context.Background(), makeToolRequest(map[string]interface{}{
		"tape_id":     "t1",
		"output_path": "/tmp/out.xml",
	}))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result.IsError || !strings.Contains(getTextContent(result), "exported successfully") {
		t.Errorf("Unexpected result: %s", getTextContent(result))
	}
	call := mock.GetLastCallByMethod("ExportTapeScript")
	if call.Args[0] != "t1" || call.Args[1] != "/tmp/out.xml" {
		t.Errorf("Unexpected call: %+v", call)
	}
}

func TestHandleTapeExport_Errors(t *testing.T) {
	mock := NewMockPuppeteerApp()
	mock.ExportTapeScriptError = errors.New("permission denied")
	server := NewMCPServer(mock)

	if _, err := server.handleTapeExport(context.Background(), makeToolRequest(map[string]interface{}{"tape_id": "t1"})); err == nil {
		t.Error("Expected error for missing output_path")
	}

	result, err := server.handleTapeExport(context.Background(), makeToolRequest(map[string]interface{}{
		"tape_id":     "t1",
		"output_path": "/root/out.xml",
	}))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !result.IsError || !strings.Contains(getTextContent(result), "permission denied") {
		t.Errorf("Expected export failure, got %q", getTextContent(result))
	}
}

// ==================== tape_delete ====================

func TestHandleTapeDelete(t *testing.T) {
	mock := NewMockPuppeteerApp()
	server := NewMCPServer(mock)

	result, err := server.handleTapeDelete(context.Background(), makeToolRequest(map[string]interface{}{"tape_id": "t1"}))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result.IsError || getTextContent(result) != "Tape t1 deleted" {
		t.Errorf("Unexpected result: %s", getTextContent(result))
	}

	mock.DeleteTapeError = errors.New("tape session not found")
	result, _ = server.handleTapeDelete(context.Background(), makeToolRequest(map[string]interface{}{"tape_id": "t2"}))
	if !result.IsError {
		t.Error("Expected error result")
	}
}
