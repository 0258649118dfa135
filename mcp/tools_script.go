package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// registerScriptTools registers playback script and demo tools
func (s *MCPServer) registerScriptTools() {
	// script_validate - Parse a script without running it
	s.server.AddTool(
		mcp.NewTool("script_validate",
			mcp.WithDescription(`Load a playback script and report its actions without running it.

Fails with the loader's message when the file is missing, is not well-formed
XML or an action has a bad timeout. Unknown elements are skipped.`),
			mcp.WithString("path",
				mcp.Required(),
				mcp.Description("Absolute path of the script (.xml, optionally .zst/.br/.gz)"),
			),
		),
		s.handleScriptValidate,
	)

	// demo_run - Drive the demo window
	s.server.AddTool(
		mcp.NewTool("demo_run",
			mcp.WithDescription(`Run the hello-world demo window under Puppeteer.

Without script_path the canned user session is recorded into a new tape.
With script_path the script is played back against the demo and the outcome
is stored as a playback tape.`),
			mcp.WithString("script_path",
				mcp.Description("Playback script path (optional, records when omitted)"),
			),
		),
		s.handleDemoRun,
	)

	// plugin_list - List loaded record plugins
	s.server.AddTool(
		mcp.NewTool("plugin_list",
			mcp.WithDescription("List the record plugins loaded from the plugin directory"),
		),
		s.handlePluginList,
	)
}

func (s *MCPServer) handleScriptValidate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, fmt.Errorf("path is required")
	}

	info, err := s.app.ValidateScript(path)
	if err != nil {
		return errorResult("Invalid script: %v", err), nil
	}

	names := make([]string, 0, len(info.Types))
	for name := range info.Types {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	fmt.Fprintf(&b, "Script %s is valid: %d action(s)\n", info.Path, info.Actions)
	for _, name := range names {
		fmt.Fprintf(&b, "  %s: %d\n", name, info.Types[name])
	}
	return textResult(b.String()), nil
}

func (s *MCPServer) handleDemoRun(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	scriptPath, _ := args["script_path"].(string)

	res, err := s.app.RunDemo(scriptPath)
	if err != nil {
		return errorResult("Demo run failed: %v", err), nil
	}

	jsonData, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize result: %w", err)
	}

	result := textResult(string(jsonData))
	if res.Mode == "playback" && !res.Succeeded {
		result.IsError = true
	}
	return result, nil
}

func (s *MCPServer) handlePluginList(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	plugins := s.app.ListPlugins()
	if len(plugins) == 0 {
		return textResult("No plugins loaded"), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d plugin(s):\n", len(plugins))
	for _, p := range plugins {
		fmt.Fprintf(&b, "- %s (%s)", p.Name, p.File)
		if len(p.Types) > 0 {
			fmt.Fprintf(&b, " types=%s", strings.Join(p.Types, ","))
		}
		if p.PathMatch != "" {
			fmt.Fprintf(&b, " pathMatch=%s", p.PathMatch)
		}
		b.WriteString("\n")
	}
	return textResult(b.String()), nil
}
