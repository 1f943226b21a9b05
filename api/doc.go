// Package api provides HTTP REST API handlers for the race lobby server.
//
// The api package implements:
//   - Operator endpoints for lobbies, sessions, resources and levels
//   - Manual race result reporting
//   - A server dashboard in JSON or plain text
//   - WebSocket upgrade handling for game clients
//
// Endpoints:
//
// Lobbies:
//   - GET /api/lobbies - List lobbies (optional ?state=RACING filter)
//   - POST /api/lobbies - Create an empty lobby
//   - GET /api/lobbies/{id} - Get one lobby
//   - DELETE /api/lobbies/{id} - Delete an empty lobby
//   - POST /api/lobbies/{id}/messages - Send a message into a lobby
//   - POST /api/lobbies/{id}/force-map-pick - Pick a map without waiting
//
// Sessions:
//   - GET /api/sessions/{id}/lobby - Lobby of a session
//   - DELETE /api/sessions/{id}/lobby?reason=... - Remove a session from its lobby
//
// Resources:
//   - GET /api/resources - Loaded and owned resources with their rounds
//   - POST /api/resources/{id}/results - Report the finishing order of a round
//
// Levels:
//   - GET /api/levels - List levels
//   - GET /api/levels/{name} - Get one level
//   - PUT /api/levels/{name} - Save a level
//   - PUT /api/levels/override - Force every lobby onto one level
//
// Server:
//   - GET /api/dashboard - Counters, pending joins and dashboard text
//   - GET /health - Health check
//   - GET /ws - Game client WebSocket
//
// Usage:
//
//	server := api.NewServer(lobbyService, hub)
//	http.ListenAndServe(":8080", server)
//
// Error Handling:
//
// Errors are returned as JSON with a status code derived from the sentinel
// error the service wrapped:
//
//	{
//	  "error": "lobby \"Apex\": lobby not found"
//	}
package api
