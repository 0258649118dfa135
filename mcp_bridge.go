package main

import (
	"Puppeteer/mcp"
	"Puppeteer/pkg/record"
)

// MCPBridge bridges the main App to the MCP server
type MCPBridge struct {
	app *App
}

// NewMCPBridge creates a new MCP bridge
func NewMCPBridge(app *App) *MCPBridge {
	return &MCPBridge{app: app}
}

// Implement mcp.PuppeteerApp interface

func (b *MCPBridge) GetAppVersion() string {
	return b.app.GetAppVersion()
}

func (b *MCPBridge) ListTapes(limit int) ([]mcp.Tape, error) {
	return b.app.ListTapes(limit)
}

func (b *MCPBridge) GetTape(tapeID string) (*mcp.Tape, error) {
	return b.app.GetTape(tapeID)
}

func (b *MCPBridge) GetTapeRecords(tapeID string) ([]mcp.TapeRecord, error) {
	return b.app.GetTapeRecords(tapeID)
}

func (b *MCPBridge) FindTapeEvents(tapeID string, pattern *record.RecordNode) ([]mcp.TapeRecord, error) {
	return b.app.FindTapeEvents(tapeID, pattern)
}

func (b *MCPBridge) ExportTapeScript(tapeID, outputPath string) (string, error) {
	return b.app.ExportTapeScript(tapeID, outputPath)
}

func (b *MCPBridge) DeleteTape(tapeID string) error {
	return b.app.DeleteTape(tapeID)
}

func (b *MCPBridge) ValidateScript(path string) (*mcp.ScriptInfo, error) {
	script, err := b.app.ValidateScript(path)
	if err != nil {
		return nil, err
	}
	info := &mcp.ScriptInfo{
		Path:    path,
		Actions: script.Len(),
		Types:   make(map[string]int),
	}
	for _, a := range script.Actions() {
		info.Types[a.Type.String()]++
	}
	return info, nil
}

func (b *MCPBridge) RunDemo(scriptPath string) (*mcp.DemoRunResult, error) {
	res, err := b.app.RunDemo(scriptPath)
	if err != nil {
		return nil, err
	}

	p := res.Puppeteer
	out := &mcp.DemoRunResult{
		Mode:      p.Mode().String(),
		ExitCode:  res.ExitCode,
		Succeeded: p.Succeeded(),
		Records:   p.Records(),
		Dropped:   p.Dropped(),
		Morning:   res.Window.MorningType(),
	}
	if err := p.Err(); err != nil {
		out.Error = err.Error()
	}
	if s := p.Session(); s != nil {
		out.TapeID = s.ID
	}
	return out, nil
}

func (b *MCPBridge) ListPlugins() []mcp.PluginInfo {
	b.app.mu.Lock()
	defer b.app.mu.Unlock()
	if b.app.plugins == nil {
		return nil
	}

	plugins := b.app.plugins.Plugins()
	result := make([]mcp.PluginInfo, len(plugins))
	for i, p := range plugins {
		result[i] = mcp.PluginInfo{
			Name:      p.Name,
			File:      p.File,
			Types:     p.Filters.Types,
			PathMatch: p.Filters.PathMatch,
		}
	}
	return result
}
