package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/mcp-training/battleship/game/engine"
	"github.com/wricardo/mcp-training/battleship/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Battleship",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Battleship - MCP Interface

This is a read-only spectator client that proxies all requests to the REST API server.
Games are played by WebSocket clients; ship positions are never revealed here.

AVAILABLE TOOLS:
- list_sessions: List live games (optionally filtered by status)
- get_session: Summary of one game (players, turn, ships left)
- session_state: Both boards of a game with ships hidden
- queue_status: Players waiting for a match
- game_rules: Board size, fleet composition and cell symbols`),
	)

	c.registerTools()
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all live games",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"status": map[string]interface{}{
					"type":        "string",
					"enum":        []string{string(engine.StatusWaiting), string(engine.StatusInProgress), string(engine.StatusFinished)},
					"description": "Only list games with this status (optional)",
				},
			},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get the summary of a specific game",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session ID to retrieve",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleGetSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "session_state",
		Description: "Render both boards of a game as a spectator sees them",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session ID",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleSessionState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "queue_status",
		Description: "Show the matchmaking queue",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleQueueStatus)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_rules",
		Description: "Explain the board, the fleet and the turn rules",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameRules)
}

// GetMCPServer returns the underlying MCP server
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// apiCall makes an HTTP request to the REST API
func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	url := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func stringArg(request mcp.CallToolRequest, name string) string {
	args, _ := request.Params.Arguments.(map[string]interface{})
	v, _ := args[name].(string)
	return v
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int              `json:"count"`
		Sessions []engine.Summary `json:"sessions"`
	}

	path := "/api/sessions"
	if status := stringArg(request, "status"); status != "" {
		path += "?status=" + status
	}

	if err := c.apiCall(ctx, "GET", path, nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Live Games (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		result += fmt.Sprintf("- %s [%s] players: %s\n", s.ID, s.Status, strings.Join(s.Players, " vs "))
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := stringArg(request, "session_id")
	if sessionID == "" {
		return mcp.NewToolResultError("session_id is required"), nil
	}

	var summary engine.Summary
	if err := c.apiCall(ctx, "GET", fmt.Sprintf("/api/sessions/%s", sessionID), nil, &summary); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSummary(&summary)), nil
}

func (c *Client) handleSessionState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := stringArg(request, "session_id")
	if sessionID == "" {
		return mcp.NewToolResultError("session_id is required"), nil
	}

	var view engine.View
	if err := c.apiCall(ctx, "GET", fmt.Sprintf("/api/sessions/%s/state", sessionID), nil, &view); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatView(sessionID, &view)), nil
}

func (c *Client) handleQueueStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var status service.QueueStatus
	if err := c.apiCall(ctx, "GET", "/api/queue", nil, &status); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if status.Waiting == 0 {
		return mcp.NewToolResultText("Nobody is waiting for a match."), nil
	}

	result := fmt.Sprintf("Waiting for a match (%d):\n", status.Waiting)
	for _, p := range status.Players {
		result += fmt.Sprintf("%d. %s (since %s)\n", p.Position, p.PlayerID, p.EnqueuedAt.Format("15:04:05"))
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleGameRules(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var rules engine.Rules
	if err := c.apiCall(ctx, "GET", "/api/rules", nil, &rules); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatRules(&rules)), nil
}

func formatSummary(s *engine.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session: %s\nStatus: %s\n", s.ID, s.Status)
	for i, p := range s.Players {
		left := "?"
		if i < len(s.ShipsLeft) {
			left = fmt.Sprint(s.ShipsLeft[i])
		}
		fmt.Fprintf(&b, "Player %d: %s (ships left: %s)\n", i+1, p, left)
	}
	if s.Turn != "" && s.Status == engine.StatusInProgress {
		fmt.Fprintf(&b, "Turn: %s\n", s.Turn)
	}
	if s.Winner != "" {
		fmt.Fprintf(&b, "Winner: %s\n", s.Winner)
	}
	return b.String()
}

func formatView(sessionID string, v *engine.View) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session: %s\nStatus: %s\n", sessionID, v.Status)
	if v.Turn != "" && v.Status == engine.StatusInProgress {
		fmt.Fprintf(&b, "Turn: %s\n", v.Turn)
	}
	if v.Winner != "" {
		fmt.Fprintf(&b, "Winner: %s\n", v.Winner)
	}

	for _, g := range v.Grids {
		fmt.Fprintf(&b, "\n%s (ships left: %d)\n", g.Name, g.ShipsLeft)
		b.WriteString("  0123456789\n")
		for y, row := range g.Rows {
			fmt.Fprintf(&b, "%d %s\n", y, strings.Join(row, ""))
		}
	}

	if len(v.Grids) > 0 {
		fmt.Fprintf(&b, "\nLegend: %s empty, %s miss, %s hit\n", engine.SymbolEmpty, engine.SymbolMiss, engine.SymbolHit)
	}
	return b.String()
}

func formatRules(r *engine.Rules) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Board: %dx%d\n\nFleet (%d cells):\n", r.BoardSize, r.BoardSize, r.FleetCells)
	for _, f := range r.Fleet {
		fmt.Fprintf(&b, "- %d x size %d\n", f.Count, f.Size)
	}
	b.WriteString("\nSymbols:\n")
	for _, sym := range []string{engine.SymbolEmpty, engine.SymbolShip, engine.SymbolMiss, engine.SymbolHit} {
		fmt.Fprintf(&b, "  %s %s\n", sym, r.Symbols[sym])
	}
	b.WriteString("\nTurns:\n")
	for _, t := range r.Turns {
		fmt.Fprintf(&b, "- %s\n", t)
	}
	return b.String()
}
