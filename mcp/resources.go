package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// handleTapesResource handles the puppeteer://tapes resource
func (s *MCPServer) handleTapesResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	tapes, err := s.app.ListTapes(50)
	if err != nil {
		return nil, fmt.Errorf("failed to get tapes: %w", err)
	}
	return jsonResource(request.Params.URI, tapes)
}

// handleTapeResource handles the puppeteer://tapes/{tapeId} resource template
func (s *MCPServer) handleTapeResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	// Extract tape ID from URI: puppeteer://tapes/{tapeId}
	uri := request.Params.URI
	parts := strings.Split(uri, "/")
	if len(parts) < 4 || parts[3] == "" {
		return nil, fmt.Errorf("invalid URI format: %s", uri)
	}
	tapeID := parts[3]

	t, err := s.app.GetTape(tapeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tape: %w", err)
	}
	records, err := s.app.GetTapeRecords(tapeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tape records: %w", err)
	}

	return jsonResource(uri, map[string]interface{}{
		"tape":    t,
		"records": records,
	})
}

// handlePluginsResource handles the puppeteer://plugins resource
func (s *MCPServer) handlePluginsResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return jsonResource(request.Params.URI, s.app.ListPlugins())
}

func jsonResource(uri string, v interface{}) ([]mcp.ResourceContents, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize %s: %w", uri, err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}
