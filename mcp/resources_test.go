package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
)

// Helper to create a ReadResourceRequest
func makeResourceRequest(uri string) mcp.ReadResourceRequest {
	return mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

// Helper to get text from resource contents
func getResourceText(contents []mcp.ResourceContents) string {
	if len(contents) == 0 {
		return ""
	}
	if tc, ok := contents[0].(mcp.TextResourceContents); ok {
		return tc.Text
	}
	return ""
}

// ==================== puppeteer://tapes ====================

func TestHandleTapesResource_Success(t *testing.T) {
	mock := NewMockPuppeteerApp()
	mock.ListTapesResult = []Tape{SampleTape("t1"), SampleTape("t2")}
	server := NewMCPServer(mock)

	contents, err := server.handleTapesResource(context.Background(), makeResourceRequest("puppeteer://tapes"))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	var tapes []Tape
	if err := json.Unmarshal([]byte(getResourceText(contents)), &tapes); err != nil {
		t.Fatalf("Result should be valid JSON: %v", err)
	}
	if len(tapes) != 2 || tapes[1].ID != "t2" {
		t.Errorf("Unexpected tapes: %+v", tapes)
	}
	if call := mock.GetLastCallByMethod("ListTapes"); call == nil || call.Args[0] != 50 {
		t.Errorf("Expected ListTapes(50), got %+v", call)
	}
}

func TestHandleTapesResource_Error(t *testing.T) {
	mock := NewMockPuppeteerApp()
	mock.ListTapesError = errors.New("database locked")
	server := NewMCPServer(mock)

	if _, err := server.handleTapesResource(context.Background(), makeResourceRequest("puppeteer://tapes")); err == nil {
		t.Error("Expected error")
	}
}

// ==================== puppeteer://tapes/{tapeId} ====================

func TestHandleTapeResource_Success(t *testing.T) {
	mock := NewMockPuppeteerApp()
	sample := SampleTape("abc")
	mock.GetTapeResult = &sample
	mock.GetTapeRecordsResult = SampleRecords("abc")
	server := NewMCPServer(mock)

	contents, err := server.handleTapeResource(context.Background(), makeResourceRequest("puppeteer://tapes/abc"))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	var payload struct {
		Tape    Tape         `json:"tape"`
		Records []TapeRecord `json:"records"`
	}
	if err := json.Unmarshal([]byte(getResourceText(contents)), &payload); err != nil {
		t.Fatalf("Result should be valid JSON: %v", err)
	}
	if payload.Tape.ID != "abc" || len(payload.Records) != 3 {
		t.Errorf("Unexpected payload: %+v", payload)
	}
	if payload.Records[0].Node.Attribute("objectPath") != "mainWindow.*.yesButton" {
		t.Errorf("Record did not survive JSON: %s", payload.Records[0].Node)
	}
	if call := mock.GetLastCallByMethod("GetTape"); call == nil || call.Args[0] != "abc" {
		t.Errorf("Expected GetTape(abc), got %+v", call)
	}
}

func TestHandleTapeResource_InvalidURI(t *testing.T) {
	server := NewMCPServer(NewMockPuppeteerApp())

	if _, err := server.handleTapeResource(context.Background(), makeResourceRequest("puppeteer://tapes")); err == nil {
		t.Error("Expected error for URI without a tape ID")
	}
}

func TestHandleTapeResource_NotFound(t *testing.T) {
	server := NewMCPServer(NewMockPuppeteerApp())

	if _, err := server.handleTapeResource(context.Background(), makeResourceRequest("puppeteer://tapes/missing")); err == nil {
		t.Error("Expected error for unknown tape")
	}
}

// ==================== puppeteer://plugins ====================

func TestHandlePluginsResource(t *testing.T) {
	mock := NewMockPuppeteerApp()
	mock.ListPluginsResult = []PluginInfo{{Name: "redact", File: "redact.js", Types: []string{"KeyPress"}}}
	server := NewMCPServer(mock)

	contents, err := server.handlePluginsResource(context.Background(), makeResourceRequest("puppeteer://plugins"))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	var plugins []PluginInfo
	if err := json.Unmarshal([]byte(getResourceText(contents)), &plugins); err != nil {
		t.Fatalf("Result should be valid JSON: %v", err)
	}
	if len(plugins) != 1 || plugins[0].Name != "redact" {
		t.Errorf("Unexpected plugins: %+v", plugins)
	}
}
