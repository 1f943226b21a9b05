// Package mcp provides the Model Context Protocol operator interface for the race lobby server.
//
// The mcp package implements:
//   - A thin MCP client that proxies every tool call to the REST API
//   - Tool definitions for lobby, session, resource and level operations
//   - Plain text formatting of lobbies, resources and rounds for agents
//
// MCP Tools:
//
// The package exposes the following tools:
//   - list_lobbies, get_lobby, create_lobby, delete_lobby
//   - send_lobby_message: PLAINTEXT or ACTION messages, optionally to chosen sessions
//   - force_map_pick: Skip the player wait of a lobby
//   - kick_session: Remove a session from its lobby
//   - list_resources: Loaded maps with owner, clients and round
//   - report_round: Report the finishing order of a race
//   - list_levels, set_level_override
//   - dashboard: Server overview
//
// Transport Modes:
//
// The client owns no state. The same tool set is served over stdio
// (server.ServeStdio) and over the /mcp HTTP endpoint of the main server.
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
