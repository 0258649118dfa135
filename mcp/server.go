// Package mcp exposes the Puppeteer tape store and script tooling over the
// Model Context Protocol, so external AI clients can inspect recordings,
// turn them into playback scripts and validate or replay scripts.
package mcp

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"Puppeteer/pkg/logging"
	"Puppeteer/pkg/record"
	"Puppeteer/pkg/tape"
)

// Type aliases for the tape store types handed out by PuppeteerApp.
type (
	Tape       = tape.Session
	TapeRecord = tape.StoredRecord
)

// ScriptInfo summarises a validated playback script.
type ScriptInfo struct {
	Path    string         `json:"path"`
	Actions int            `json:"actions"`
	Types   map[string]int `json:"types"`
}

// PluginInfo describes a loaded record plugin.
type PluginInfo struct {
	Name      string   `json:"name"`
	File      string   `json:"file"`
	Types     []string `json:"types,omitempty"`
	PathMatch string   `json:"pathMatch,omitempty"`
}

// DemoRunResult is the outcome of running the demo window under Puppeteer.
type DemoRunResult struct {
	Mode      string `json:"mode"`
	ExitCode  int    `json:"exitCode"`
	Succeeded bool   `json:"succeeded"`
	Error     string `json:"error,omitempty"`
	TapeID    string `json:"tapeId,omitempty"`
	Records   int    `json:"records"`
	Dropped   int    `json:"dropped"`
	Morning   string `json:"morning"`
}

// PuppeteerApp is what the MCP server needs from the application.
type PuppeteerApp interface {
	GetAppVersion() string

	// Tapes
	ListTapes(limit int) ([]Tape, error)
	GetTape(tapeID string) (*Tape, error)
	GetTapeRecords(tapeID string) ([]TapeRecord, error)
	FindTapeEvents(tapeID string, pattern *record.RecordNode) ([]TapeRecord, error)
	ExportTapeScript(tapeID, outputPath string) (string, error)
	DeleteTape(tapeID string) error

	// Scripts
	ValidateScript(path string) (*ScriptInfo, error)
	RunDemo(scriptPath string) (*DemoRunResult, error)

	// Plugins
	ListPlugins() []PluginInfo
}

// MCPServer wraps the MCP server and routes tool calls to a PuppeteerApp.
type MCPServer struct {
	app       PuppeteerApp
	server    *server.MCPServer
	stdio     *server.StdioServer
	mu        sync.Mutex
	isRunning bool
}

// NewMCPServer creates a new MCP server for Puppeteer
func NewMCPServer(app PuppeteerApp) *MCPServer {
	mcpServer := server.NewMCPServer(
		"puppeteer",
		app.GetAppVersion(),
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, true),
		server.WithLogging(),
	)

	s := &MCPServer{
		app:    app,
		server: mcpServer,
	}

	s.registerTools()
	s.registerResources()

	return s
}

// registerTools registers all MCP tools
func (s *MCPServer) registerTools() {
	// Tape store tools
	s.registerTapeTools()

	// Script and demo tools
	s.registerScriptTools()
}

// registerResources registers all MCP resources
func (s *MCPServer) registerResources() {
	s.server.AddResource(
		mcp.NewResource(
			"puppeteer://tapes",
			"Recent recording and playback tapes",
			mcp.WithMIMEType("application/json"),
		),
		s.handleTapesResource,
	)

	s.server.AddResourceTemplate(
		mcp.NewResourceTemplate(
			"puppeteer://tapes/{tapeId}",
			"Tape details with its records",
		),
		s.handleTapeResource,
	)

	s.server.AddResource(
		mcp.NewResource(
			"puppeteer://plugins",
			"Loaded record plugins",
			mcp.WithMIMEType("application/json"),
		),
		s.handlePluginsResource,
	)
}

// Start starts the MCP server (blocking - for CLI mode)
// This method blocks until the server shuts down
func (s *MCPServer) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("MCP server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	return s.run()
}

// StartAsync starts the MCP server in a goroutine (non-blocking)
func (s *MCPServer) StartAsync() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("MCP server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	go s.run()
	return nil
}

// run runs the MCP server (blocking)
func (s *MCPServer) run() error {
	s.stdio = server.NewStdioServer(s.server)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	logging.LogInfo("mcp").Msg("Puppeteer MCP server started")
	err := s.stdio.Listen(ctx, os.Stdin, os.Stdout)
	if err != nil {
		logging.LogError("mcp").Err(err).Msg("Server error")
	}

	s.mu.Lock()
	s.isRunning = false
	s.mu.Unlock()

	return err
}

// Stop stops the MCP server
func (s *MCPServer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	// The server will stop when stdin is closed or context is cancelled
	s.isRunning = false
}

// IsRunning returns whether the MCP server is running
func (s *MCPServer) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

func errorResult(format string, args ...interface{}) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(fmt.Sprintf(format, args...)),
		},
		IsError: true,
	}
}
