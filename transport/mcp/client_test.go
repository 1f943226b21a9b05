package mcp

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/wricardo/racelobby/game/gameplay"
	"github.com/wricardo/racelobby/game/lobby"
	"github.com/wricardo/racelobby/game/service"
	"github.com/wricardo/racelobby/game/session"
)

func callTool(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil {
		t.Fatal("Expected result, got nil")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatal("Expected text content in result")
	}
	return text.Text
}

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Body   string
}

// apiStub answers every request with status and response, recording what it saw
func apiStub(t *testing.T, status int, response interface{}) (*httptest.Server, *[]recordedRequest) {
	t.Helper()
	var seen []recordedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		seen = append(seen, recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Body:   string(body),
		})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if response != nil {
			json.NewEncoder(w).Encode(response)
		}
	}))
	t.Cleanup(server.Close)
	return server, &seen
}

func TestNewClient(t *testing.T) {
	baseURL := "http://localhost:8080/"
	client := NewClient(baseURL)

	if client == nil {
		t.Fatal("Expected client to be created")
	}

	if client.baseURL != "http://localhost:8080" {
		t.Errorf("Expected trailing slash trimmed, got %s", client.baseURL)
	}

	if client.httpClient == nil {
		t.Error("Expected HTTP client to be initialized")
	}

	if client.GetMCPServer() == nil {
		t.Error("Expected MCP server to be initialized")
	}
}

func TestClient_apiCall(t *testing.T) {
	t.Run("decodes result", func(t *testing.T) {
		server, _ := apiStub(t, http.StatusOK, map[string]interface{}{"id": "Alpha", "capacity": 8})
		client := NewClient(server.URL)

		var info service.LobbyInfo
		if err := client.apiCall("GET", "/api/lobbies/Alpha", nil, &info); err != nil {
			t.Fatalf("apiCall failed: %v", err)
		}
		if info.ID != "Alpha" || info.Capacity != 8 {
			t.Errorf("Unexpected result: %+v", info)
		}
	})

	t.Run("error body", func(t *testing.T) {
		server, _ := apiStub(t, http.StatusNotFound, map[string]string{"error": "lobby not found"})
		client := NewClient(server.URL)

		err := client.apiCall("GET", "/api/lobbies/Nope", nil, nil)
		if err == nil || err.Error() != "lobby not found" {
			t.Errorf("Expected API error message, got %v", err)
		}
	})

	t.Run("error without body", func(t *testing.T) {
		server, _ := apiStub(t, http.StatusInternalServerError, nil)
		client := NewClient(server.URL)

		err := client.apiCall("GET", "/api/lobbies", nil, nil)
		if err == nil || !strings.Contains(err.Error(), "500") {
			t.Errorf("Expected status in error, got %v", err)
		}
	})

	t.Run("no content", func(t *testing.T) {
		server, _ := apiStub(t, http.StatusNoContent, nil)
		client := NewClient(server.URL)

		var out map[string]interface{}
		if err := client.apiCall("DELETE", "/api/lobbies/Alpha", nil, &out); err != nil {
			t.Errorf("204 should not be decoded, got %v", err)
		}
	})
}

func TestClient_handleListLobbies(t *testing.T) {
	server, seen := apiStub(t, http.StatusOK, map[string]interface{}{
		"count": 1,
		"lobbies": []service.LobbyInfo{{
			Data: lobby.Data{
				ID:       "Alpha",
				Players:  []string{"p1", "p2"},
				State:    lobby.StateRacing,
				Resource: "Map_01",
				Capacity: 8,
			},
		}},
	})
	client := NewClient(server.URL)

	result, err := client.handleListLobbies(context.Background(), callTool("list_lobbies", map[string]interface{}{
		"state": "RACING",
	}))
	if err != nil {
		t.Fatalf("handleListLobbies failed: %v", err)
	}

	text := resultText(t, result)
	if !strings.Contains(text, "Alpha [RACING] 2/8 players on Map_01") {
		t.Errorf("Unexpected listing: %s", text)
	}
	if (*seen)[0].Query != "state=RACING" {
		t.Errorf("Expected state filter forwarded, got %q", (*seen)[0].Query)
	}
}

func TestClient_handleGetLobby(t *testing.T) {
	server, seen := apiStub(t, http.StatusOK, service.LobbyInfo{
		Data: lobby.Data{
			ID:        "Alpha",
			Players:   []string{"p1"},
			Points:    map[string]int{"p1": 8},
			State:     lobby.StatePostRace,
			Standings: []lobby.Standing{{Player: "p1", Place: 1, Points: 2}},
			Capacity:  8,
		},
		Sessions: []string{"s1"},
	})
	client := NewClient(server.URL)

	result, err := client.handleGetLobby(context.Background(), callTool("get_lobby", map[string]interface{}{
		"lobby_id": "Alpha",
	}))
	if err != nil {
		t.Fatalf("handleGetLobby failed: %v", err)
	}

	text := resultText(t, result)
	for _, want := range []string{"Lobby: Alpha", "p1 (8 pts)", "1. p1 +2", "Sessions: s1"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in: %s", want, text)
		}
	}
	if (*seen)[0].Path != "/api/lobbies/Alpha" {
		t.Errorf("Unexpected path %s", (*seen)[0].Path)
	}

	result, _ = client.handleGetLobby(context.Background(), callTool("get_lobby", map[string]interface{}{}))
	if !result.IsError {
		t.Error("Missing lobby_id should be a tool error")
	}
}

func TestClient_handleCreateAndDeleteLobby(t *testing.T) {
	server, seen := apiStub(t, http.StatusCreated, service.LobbyInfo{
		Data: lobby.Data{ID: "Bravo", State: lobby.StateWaitingForPlayers, Capacity: 8},
	})
	client := NewClient(server.URL)

	result, err := client.handleCreateLobby(context.Background(), callTool("create_lobby", nil))
	if err != nil {
		t.Fatalf("handleCreateLobby failed: %v", err)
	}
	if !strings.Contains(resultText(t, result), "Created lobby: Bravo") {
		t.Errorf("Unexpected result: %s", resultText(t, result))
	}

	result, err = client.handleDeleteLobby(context.Background(), callTool("delete_lobby", map[string]interface{}{
		"lobby_id": "Bravo",
	}))
	if err != nil {
		t.Fatalf("handleDeleteLobby failed: %v", err)
	}
	if result.IsError {
		t.Errorf("Unexpected tool error: %s", resultText(t, result))
	}
	if last := (*seen)[len(*seen)-1]; last.Method != "DELETE" || last.Path != "/api/lobbies/Bravo" {
		t.Errorf("Unexpected request %+v", last)
	}
}

func TestClient_handleDeleteLobby_Conflict(t *testing.T) {
	server, _ := apiStub(t, http.StatusConflict, map[string]string{"error": "lobby still has players"})
	client := NewClient(server.URL)

	result, err := client.handleDeleteLobby(context.Background(), callTool("delete_lobby", map[string]interface{}{
		"lobby_id": "Alpha",
	}))
	if err != nil {
		t.Fatalf("handler should report errors in the result, got %v", err)
	}
	if !result.IsError || !strings.Contains(resultText(t, result), "still has players") {
		t.Errorf("Expected conflict surfaced as tool error")
	}
}

func TestClient_handleSendLobbyMessage(t *testing.T) {
	server, seen := apiStub(t, http.StatusAccepted, map[string]string{"status": "sent"})
	client := NewClient(server.URL)

	result, err := client.handleSendLobbyMessage(context.Background(), callTool("send_lobby_message", map[string]interface{}{
		"lobby_id":   "Alpha",
		"text":       session.CommandRequestForceMapPick,
		"kind":       "ACTION",
		"recipients": []interface{}{"s1"},
	}))
	if err != nil {
		t.Fatalf("handleSendLobbyMessage failed: %v", err)
	}
	if result.IsError {
		t.Fatalf("Unexpected tool error: %s", resultText(t, result))
	}

	req := (*seen)[0]
	if req.Method != "POST" || req.Path != "/api/lobbies/Alpha/messages" {
		t.Errorf("Unexpected request %+v", req)
	}
	var body service.MessageRequest
	if err := json.Unmarshal([]byte(req.Body), &body); err != nil {
		t.Fatalf("Invalid body: %v", err)
	}
	if body.Kind != session.MessageAction || len(body.Recipients) != 1 || body.Recipients[0] != "s1" {
		t.Errorf("Unexpected body: %+v", body)
	}
}

func TestClient_handleKickSession(t *testing.T) {
	server, seen := apiStub(t, http.StatusNoContent, nil)
	client := NewClient(server.URL)

	result, err := client.handleKickSession(context.Background(), callTool("kick_session", map[string]interface{}{
		"session_id": "s1",
		"reason":     "afk",
	}))
	if err != nil {
		t.Fatalf("handleKickSession failed: %v", err)
	}
	if result.IsError {
		t.Fatalf("Unexpected tool error: %s", resultText(t, result))
	}

	req := (*seen)[0]
	if req.Method != "DELETE" || req.Path != "/api/sessions/s1/lobby" || req.Query != "reason=afk" {
		t.Errorf("Unexpected request %+v", req)
	}
}

func TestClient_handleListResources(t *testing.T) {
	server, _ := apiStub(t, http.StatusOK, map[string]interface{}{
		"count": 2,
		"resources": []service.ResourceInfo{
			{Resource: "MenuLobby", Loaded: true, Clients: []string{"s1"}},
			{Resource: "Map_01", Loaded: true, Owner: "Alpha", Clients: []string{"s2", "s3"},
				Round: &gameplay.Round{Resource: "Map_01", Players: []string{"p2", "p3"}}},
		},
	})
	client := NewClient(server.URL)

	result, err := client.handleListResources(context.Background(), callTool("list_resources", nil))
	if err != nil {
		t.Fatalf("handleListResources failed: %v", err)
	}

	text := resultText(t, result)
	if !strings.Contains(text, "Map_01 [loaded] owned by Alpha, 2 clients, round running with 2 racers") {
		t.Errorf("Unexpected listing: %s", text)
	}
	if !strings.Contains(text, "MenuLobby [loaded], 1 clients") {
		t.Errorf("Unexpected listing: %s", text)
	}
}

func TestClient_handleReportRound(t *testing.T) {
	finished := time.Now()
	server, seen := apiStub(t, http.StatusOK, gameplay.Round{
		Resource:   "Map_01",
		Players:    []string{"p1", "p2"},
		FinishedAt: &finished,
		Placements: map[string]lobby.Placement{
			"p2": {Place: 1, Points: 4},
			"p1": {Place: 2, Points: 2},
		},
	})
	client := NewClient(server.URL)

	result, err := client.handleReportRound(context.Background(), callTool("report_round", map[string]interface{}{
		"resource": "Map_01",
		"results": []interface{}{
			map[string]interface{}{"player": "p2", "place": float64(1)},
			map[string]interface{}{"player": "p1", "place": float64(2)},
		},
	}))
	if err != nil {
		t.Fatalf("handleReportRound failed: %v", err)
	}

	text := resultText(t, result)
	if strings.Index(text, "1. p2 +4") > strings.Index(text, "2. p1 +2") || !strings.Contains(text, "1. p2 +4") {
		t.Errorf("Expected placements in order, got: %s", text)
	}

	var body service.ResultsRequest
	if err := json.Unmarshal([]byte((*seen)[0].Body), &body); err != nil {
		t.Fatalf("Invalid body: %v", err)
	}
	if len(body.Results) != 2 || body.Results[0].Player != "p2" || body.Results[0].Place != 1 {
		t.Errorf("Unexpected results forwarded: %+v", body.Results)
	}
}

func TestClient_handleSetLevelOverride(t *testing.T) {
	server, seen := apiStub(t, http.StatusOK, map[string]string{"override": "canyon"})
	client := NewClient(server.URL)

	result, err := client.handleSetLevelOverride(context.Background(), callTool("set_level_override", map[string]interface{}{
		"level": "canyon",
	}))
	if err != nil {
		t.Fatalf("handleSetLevelOverride failed: %v", err)
	}
	if !strings.Contains(resultText(t, result), "canyon") {
		t.Errorf("Unexpected result: %s", resultText(t, result))
	}
	if req := (*seen)[0]; req.Method != "PUT" || req.Path != "/api/levels/override" {
		t.Errorf("Unexpected request %+v", req)
	}

	result, _ = client.handleSetLevelOverride(context.Background(), callTool("set_level_override", map[string]interface{}{}))
	if !strings.Contains(resultText(t, result), "cleared") {
		t.Errorf("Expected override cleared, got: %s", resultText(t, result))
	}
}

func TestClient_handleDashboard(t *testing.T) {
	server, _ := apiStub(t, http.StatusOK, service.DashboardInfo{
		Text:     "Clients: 1\n",
		Override: "canyon",
	})
	client := NewClient(server.URL)

	result, err := client.handleDashboard(context.Background(), callTool("dashboard", nil))
	if err != nil {
		t.Fatalf("handleDashboard failed: %v", err)
	}
	text := resultText(t, result)
	if !strings.Contains(text, "Clients: 1") || !strings.Contains(text, "Level override: canyon") {
		t.Errorf("Unexpected dashboard: %s", text)
	}
}
