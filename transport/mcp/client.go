package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/racelobby/game/config"
	"github.com/wricardo/racelobby/game/gameplay"
	"github.com/wricardo/racelobby/game/service"
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
		baseURL: strings.TrimRight(baseURL, "/"),
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
		"Race Lobby Server",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Race Lobby Server - MCP Operator Interface

This is a thin client that proxies all requests to the REST API server.

Players connect over WebSocket and are grouped into lobbies. Every lobby cycles
WAITING_FOR_PLAYERS -> MAP_SELECTION -> RACING -> POST_RACE -> WAITING_FOR_PLAYERS.

AVAILABLE TOOLS:
- list_lobbies: List lobbies, optionally filtered by state
- get_lobby: Roster, points and state of one lobby
- create_lobby: Create an empty lobby
- delete_lobby: Delete an empty lobby
- send_lobby_message: Send a PLAINTEXT or ACTION message into a lobby
- force_map_pick: Make a lobby pick its map now
- kick_session: Remove a session from its lobby
- list_resources: Loaded maps, their owners and running rounds
- report_round: Report the finishing order of the round on a map
- list_levels: Levels the server picks maps from
- set_level_override: Force every lobby onto one level (empty clears it)
- dashboard: Server overview`),
	)

	// Register all tools
	c.registerTools()
}

func stringProp(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": description,
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Lobbies
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_lobbies",
		Description: "List all live lobbies",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"state": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"WAITING_FOR_PLAYERS", "MAP_SELECTION", "RACING", "POST_RACE"},
					"description": "Only list lobbies in this state (optional)",
				},
			},
		},
	}, c.handleListLobbies)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_lobby",
		Description: "Get roster, points and state of a lobby",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"lobby_id": stringProp("Lobby ID"),
			},
			Required: []string{"lobby_id"},
		},
	}, c.handleGetLobby)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_lobby",
		Description: "Create an empty lobby",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleCreateLobby)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "delete_lobby",
		Description: "Delete a lobby that has no players",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"lobby_id": stringProp("Lobby ID"),
			},
			Required: []string{"lobby_id"},
		},
	}, c.handleDeleteLobby)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "send_lobby_message",
		Description: "Send a message to every session of a lobby, or to chosen sessions",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"lobby_id": stringProp("Lobby ID"),
				"text":     stringProp("Message text. ACTION messages starting with #LOBBY_COMMAND# are commands"),
				"kind": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"PLAINTEXT", "ACTION"},
					"description": "Message kind (default PLAINTEXT)",
				},
				"sender": stringProp("Sender shown to players (optional)"),
				"recipients": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "Session IDs to send to instead of the whole lobby (optional)",
				},
			},
			Required: []string{"lobby_id", "text"},
		},
	}, c.handleSendLobbyMessage)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "force_map_pick",
		Description: "Make a lobby stop waiting for players and pick its map",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"lobby_id": stringProp("Lobby ID"),
			},
			Required: []string{"lobby_id"},
		},
	}, c.handleForceMapPick)

	// Sessions
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "kick_session",
		Description: "Remove a session from its lobby",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": stringProp("Session ID"),
				"reason":     stringProp("Reason shown to the session (optional)"),
			},
			Required: []string{"session_id"},
		},
	}, c.handleKickSession)

	// Resources and rounds
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_resources",
		Description: "List loaded maps, the lobby owning each and the round running on it",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListResources)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "report_round",
		Description: "Report the finishing order of the round running on a map",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"resource": stringProp("Map resource ID, e.g. Map_01"),
				"results": map[string]interface{}{
					"type": "array",
					"items": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"player": map[string]interface{}{"type": "string"},
							"place":  map[string]interface{}{"type": "integer"},
							"points": map[string]interface{}{"type": "integer"},
						},
						"required": []string{"player", "place"},
					},
					"description": "One entry per racer. Points default to the place based award",
				},
			},
			Required: []string{"resource", "results"},
		},
	}, c.handleReportRound)

	// Levels
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_levels",
		Description: "List the levels lobbies pick their maps from",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListLevels)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "set_level_override",
		Description: "Force every lobby onto one level. An empty level restores random picks",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"level": stringProp("Level ID from list_levels"),
			},
		},
	}, c.handleSetLevelOverride)

	// Server
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "dashboard",
		Description: "Server overview: clients, pending joins, lobbies and rosters",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleDashboard)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(method, path string, body interface{}, result interface{}) error {
	endpoint := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, endpoint, reqBody)
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

	if result != nil && resp.StatusCode != http.StatusNoContent {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		return map[string]interface{}{}
	}
	return args
}

func requiredString(args map[string]interface{}, key string) (string, error) {
	v, _ := args[key].(string)
	if strings.TrimSpace(v) == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return v, nil
}

// Tool handlers

func (c *Client) handleListLobbies(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path := "/api/lobbies"
	if state, _ := args["state"].(string); state != "" {
		path += "?state=" + url.QueryEscape(state)
	}

	var response struct {
		Count   int                  `json:"count"`
		Lobbies []*service.LobbyInfo `json:"lobbies"`
	}
	if err := c.apiCall("GET", path, nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Lobbies (%d):\n\n", response.Count)
	for _, l := range response.Lobbies {
		result += fmt.Sprintf("- %s [%s] %d/%d players", l.ID, l.State, len(l.Players), l.Capacity)
		if l.Resource != "" {
			result += fmt.Sprintf(" on %s", l.Resource)
		}
		result += "\n"
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleGetLobby(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	lobbyID, err := requiredString(arguments(request), "lobby_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var info service.LobbyInfo
	if err := c.apiCall("GET", "/api/lobbies/"+url.PathEscape(lobbyID), nil, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatLobby(&info)), nil
}

func (c *Client) handleCreateLobby(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var info service.LobbyInfo
	if err := c.apiCall("POST", "/api/lobbies", nil, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Created lobby: %s\nState: %s\nCapacity: %d\n", info.ID, info.State, info.Capacity)), nil
}

func (c *Client) handleDeleteLobby(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	lobbyID, err := requiredString(arguments(request), "lobby_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := c.apiCall("DELETE", "/api/lobbies/"+url.PathEscape(lobbyID), nil, nil); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Deleted lobby %s", lobbyID)), nil
}

func (c *Client) handleSendLobbyMessage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	lobbyID, err := requiredString(args, "lobby_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	req := map[string]interface{}{"text": args["text"]}
	for _, key := range []string{"kind", "sender", "recipients"} {
		if v, ok := args[key]; ok {
			req[key] = v
		}
	}

	if err := c.apiCall("POST", "/api/lobbies/"+url.PathEscape(lobbyID)+"/messages", req, nil); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Message sent to lobby %s", lobbyID)), nil
}

func (c *Client) handleForceMapPick(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	lobbyID, err := requiredString(arguments(request), "lobby_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := c.apiCall("POST", "/api/lobbies/"+url.PathEscape(lobbyID)+"/force-map-pick", nil, nil); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Lobby %s will pick its map on the next tick", lobbyID)), nil
}

func (c *Client) handleKickSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, err := requiredString(args, "session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	path := "/api/sessions/" + url.PathEscape(sessionID) + "/lobby"
	if reason, _ := args["reason"].(string); reason != "" {
		path += "?reason=" + url.QueryEscape(reason)
	}
	if err := c.apiCall("DELETE", path, nil, nil); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Session %s removed from its lobby", sessionID)), nil
}

func (c *Client) handleListResources(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count     int                     `json:"count"`
		Resources []*service.ResourceInfo `json:"resources"`
	}
	if err := c.apiCall("GET", "/api/resources", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatResources(response.Resources)), nil
}

func (c *Client) handleReportRound(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	res, err := requiredString(args, "resource")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	// Round-trip through JSON so numbers and objects land in the right types
	raw, err := json.Marshal(map[string]interface{}{"results": args["results"]})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var body service.ResultsRequest
	if err := json.Unmarshal(raw, &body); err != nil {
		return mcp.NewToolResultError("invalid results: " + err.Error()), nil
	}

	var round gameplay.Round
	if err := c.apiCall("POST", "/api/resources/"+url.PathEscape(res)+"/results", body, &round); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatRound(&round)), nil
}

func (c *Client) handleListLevels(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count  int                 `json:"count"`
		Levels []*config.LevelInfo `json:"levels"`
	}
	if err := c.apiCall("GET", "/api/levels", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Levels (%d):\n\n", response.Count)
	for _, l := range response.Levels {
		result += fmt.Sprintf("- %s: %s on %s", l.LevelID, l.Name, l.Resource)
		if l.Description != "" {
			result += " - " + l.Description
		}
		result += "\n"
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleSetLevelOverride(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	level, _ := arguments(request)["level"].(string)

	if err := c.apiCall("PUT", "/api/levels/override", service.OverrideRequest{Level: level}, nil); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if level == "" {
		return mcp.NewToolResultText("Level override cleared, lobbies pick maps at random"), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Every lobby will race on level %s", level)), nil
}

func (c *Client) handleDashboard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var dash service.DashboardInfo
	if err := c.apiCall("GET", "/api/dashboard", nil, &dash); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := dash.Text
	if len(dash.Pending) > 0 {
		result += "\nPending joins:\n"
		for _, p := range dash.Pending {
			result += fmt.Sprintf("- %s (waiting %s)\n", p.Session, p.Waiting.Round(time.Second))
		}
	}
	if dash.Override != "" {
		result += fmt.Sprintf("\nLevel override: %s\n", dash.Override)
	}
	return mcp.NewToolResultText(result), nil
}

// Formatting helpers

func formatLobby(info *service.LobbyInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Lobby: %s\n", info.ID)
	fmt.Fprintf(&b, "State: %s (%.0fs)\n", info.State, info.TimeInState)
	if info.Resource != "" {
		fmt.Fprintf(&b, "Map: %s\n", info.Resource)
	}
	fmt.Fprintf(&b, "Players (%d/%d):\n", len(info.Players), info.Capacity)
	for _, p := range info.Players {
		fmt.Fprintf(&b, "  - %s (%d pts)\n", p, info.Points[p])
	}
	if len(info.Standings) > 0 {
		b.WriteString("Last round:\n")
		for _, s := range info.Standings {
			fmt.Fprintf(&b, "  %d. %s +%d\n", s.Place, s.Player, s.Points)
		}
	}
	if len(info.Sessions) > 0 {
		fmt.Fprintf(&b, "Sessions: %s\n", strings.Join(info.Sessions, ", "))
	}
	return b.String()
}

func formatResources(resources []*service.ResourceInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Resources (%d):\n\n", len(resources))
	for _, r := range resources {
		status := "unloaded"
		if r.Loaded {
			status = "loaded"
		}
		fmt.Fprintf(&b, "- %s [%s]", r.Resource, status)
		if r.Owner != "" {
			fmt.Fprintf(&b, " owned by %s", r.Owner)
		}
		fmt.Fprintf(&b, ", %d clients", len(r.Clients))
		if r.Round != nil {
			if r.Round.FinishedAt == nil {
				fmt.Fprintf(&b, ", round running with %d racers", len(r.Round.Players))
			} else {
				b.WriteString(", round finished")
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

func formatRound(round *gameplay.Round) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Round on %s finished\n", round.Resource)

	players := make([]string, 0, len(round.Placements))
	for p := range round.Placements {
		players = append(players, p)
	}
	sort.Slice(players, func(i, j int) bool {
		return round.Placements[players[i]].Place < round.Placements[players[j]].Place
	})
	for _, p := range players {
		placement := round.Placements[p]
		fmt.Fprintf(&b, "  %d. %s +%d\n", placement.Place, p, placement.Points)
	}
	return b.String()
}
