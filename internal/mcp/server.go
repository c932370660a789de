package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/vadimtrunov/CriticsPicks/internal/picks"
)

// Server wraps an MCP SDK server with Critics' Picks tool handlers.
// All tools share one pagination session.
type Server struct {
	server *mcpsdk.Server
	ctrl   *picks.Controller
	logger *slog.Logger
}

// NewServer creates an MCP server with all picks tools registered.
func NewServer(ctrl *picks.Controller, version string, logger *slog.Logger) *Server {
	if ctrl == nil {
		panic("mcp.NewServer: controller must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    "criticspicks",
			Version: version,
		},
		&mcpsdk.ServerOptions{Logger: logger},
	)

	srv := &Server{server: s, ctrl: ctrl, logger: logger}
	srv.registerTools()
	return srv
}

// ServeStdio runs the MCP server over stdin/stdout.
func (s *Server) ServeStdio(ctx context.Context) error {
	return s.server.Run(ctx, &mcpsdk.StdioTransport{})
}

// MCPServer returns the underlying MCP SDK server (for testing).
func (s *Server) MCPServer() *mcpsdk.Server {
	return s.server
}

func (s *Server) registerTools() {
	s.server.AddTool(currentPicksTool(), s.handleCurrentPicks)
	s.server.AddTool(nextPicksTool(), s.handleNextPicks)
	s.server.AddTool(previousPicksTool(), s.handlePreviousPicks)
}

func currentPicksTool() *mcpsdk.Tool {
	return &mcpsdk.Tool{
		Name: "current_picks",
		Description: "Show the current page of New York Times critics' picks: titles, summaries, " +
			"how long ago each review was published, MPAA ratings, image URLs and IMDb search links.",
		InputSchema: pageSchema(),
	}
}

func nextPicksTool() *mcpsdk.Tool {
	return &mcpsdk.Tool{
		Name:        "next_picks",
		Description: "Move to the next page of critics' picks and show it. Does nothing on the last page.",
		InputSchema: pageSchema(),
	}
}

func previousPicksTool() *mcpsdk.Tool {
	return &mcpsdk.Tool{
		Name:        "previous_picks",
		Description: "Move to the previous page of critics' picks and show it. Does nothing on the first page.",
		InputSchema: pageSchema(),
	}
}

func pageSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"images_only": map[string]any{
				"type":        "boolean",
				"description": "Only return picks that have an image",
			},
		},
	}
}

// Tool handlers.

func (s *Server) handleCurrentPicks(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
	return s.page(ctx, req, nil)
}

func (s *Server) handleNextPicks(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
	// The page must be resolved first so HasMore reflects the upstream answer.
	if _, err := s.ctrl.CurrentPage(ctx); err != nil {
		return toolError(fmt.Sprintf("fetch picks failed: %v", err)), nil
	}
	moved := s.ctrl.Advance()
	return s.page(ctx, req, &moved)
}

func (s *Server) handlePreviousPicks(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
	moved := s.ctrl.Retreat()
	return s.page(ctx, req, &moved)
}

// pickResult is the JSON form of one pick.
type pickResult struct {
	Title           string `json:"title"`
	Summary         string `json:"summary,omitempty"`
	PublicationDate string `json:"publication_date,omitempty"`
	RelativeTime    string `json:"relative_time,omitempty"`
	MPAARating      string `json:"mpaa_rating,omitempty"`
	Byline          string `json:"byline,omitempty"`
	Image           string `json:"image,omitempty"`
	IMDbURL         string `json:"imdb_url"`
	ReviewURL       string `json:"review_url,omitempty"`
}

// pageResult is the JSON body returned by every tool.
type pageResult struct {
	Offset     int          `json:"offset"`
	Moved      *bool        `json:"moved,omitempty"`
	CanAdvance bool         `json:"can_advance"`
	CanRetreat bool         `json:"can_retreat"`
	Copyright  string       `json:"copyright,omitempty"`
	Picks      []pickResult `json:"picks"`
}

func (s *Server) page(ctx context.Context, req *mcpsdk.CallToolRequest, moved *bool) (*mcpsdk.CallToolResult, error) {
	imagesOnly, err := extractBoolFromArgs(req.Params.Arguments, "images_only")
	if err != nil {
		return toolError(err.Error()), nil
	}

	view := s.ctrl.Snapshot(ctx)
	if view.Err != nil {
		s.logger.Error("fetch picks failed", slog.String("error", view.Err.Error()))
		return toolError(fmt.Sprintf("fetch picks failed: %v", view.Err)), nil
	}

	res := pageResult{
		Offset:     view.Offset,
		Moved:      moved,
		CanAdvance: view.CanAdvance,
		CanRetreat: view.CanRetreat,
		Copyright:  view.Page.Copyright,
		Picks:      []pickResult{},
	}
	for _, p := range view.Page.Picks {
		pr := pickResult{
			Title:           p.DisplayTitle,
			Summary:         p.SummaryShort,
			PublicationDate: p.PublicationDate,
			MPAARating:      p.MPAARating,
			Byline:          p.Byline,
			IMDbURL:         picks.IMDbSearchURL(p.DisplayTitle),
			ReviewURL:       p.LinkURL,
		}
		if src, ok := s.ctrl.ImageSourceFor(p); ok {
			pr.Image = src
		} else if imagesOnly {
			continue
		}
		if ago, err := s.ctrl.RelativeTime(p); err == nil {
			pr.RelativeTime = ago
		}
		res.Picks = append(res.Picks, pr)
	}
	return toolJSON(res)
}

// Helper functions.

// toolJSON marshals v to JSON and returns it as text content.
func toolJSON(v any) (*mcpsdk.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return toolError(fmt.Sprintf("marshal result: %v", err)), nil
	}
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: string(data)}},
	}, nil
}

// toolError returns a tool result indicating an error.
func toolError(msg string) *mcpsdk.CallToolResult {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: msg}},
		IsError: true,
	}
}

// extractBoolFromArgs extracts an optional boolean argument from raw JSON
// arguments. Missing or empty arguments read as false.
func extractBoolFromArgs(raw json.RawMessage, key string) (bool, error) {
	if len(raw) == 0 {
		return false, nil
	}
	var args map[string]any
	if err := json.Unmarshal(raw, &args); err != nil {
		return false, fmt.Errorf("invalid arguments: %w", err)
	}

	val, ok := args[key]
	if !ok || val == nil {
		return false, nil
	}
	b, ok := val.(bool)
	if !ok {
		return false, fmt.Errorf("%s must be a boolean, got %T", key, val)
	}
	return b, nil
}
