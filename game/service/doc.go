// Package service provides the business logic layer for the race lobby
// server.
//
// The service package implements:
//   - Operator operations on lobbies, sessions, resources and levels
//   - Manual race result reporting for the in-process scoreboard
//   - The websocket client handler (connect, hello, message, disconnect)
//
// Core Interfaces:
//
// LobbyService is the operator interface shared by the HTTP API and the MCP
// tools. LobbyRegistry, ResourceView, RoundReporter and LevelCatalog are the
// collaborators it wraps; session.Registry, resource.MemoryLoader,
// gameplay.Scoreboard and config.Manager satisfy them.
//
// Architecture:
//
// The service layer sits between the transports (HTTP, WebSocket, MCP) and
// the session registry. It converts registry snapshots into DTOs and wraps
// registry sentinels so transports can map them with errors.Is.
//
// Usage:
//
//	lobbyService := service.NewLobbyService(registry, loader, scoreboard, levels)
//	hub := websocket.NewHub(service.NewClientHandler(registry, directory))
//
//	lobbies, err := lobbyService.ListLobbies(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//
// Client Protocol:
//
// A client connects, receives its session handle, then sends a "hello" frame
// naming its players. The registry places the session into a lobby on the
// next tick where every player has an identity.
package service
