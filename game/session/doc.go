// Package session provides the lobby registry for the race lobby server.
//
// The session package implements:
//   - Thread-safe ownership of every live lobby and the session to lobby map
//   - First-fit matchmaking with a pluggable Matchmaker
//   - Exclusive resource ownership on behalf of lobbies
//   - The join tracker that stages connecting sessions until their players resolve
//   - The update protocol: lobby snapshots, free-form messages and relocations
//
// Core Types:
//
// Registry is the orchestrator. It is constructed explicitly with NewRegistry
// and any number of independent registries can live in one process. Its
// collaborators (Publisher, resource.Loader, PlayerRegistry, lobby.Gameplay,
// lobby.ResourceSelector) are injected as options.
//
// Membership:
//
// A player belongs to at most one lobby. The lobby roster and the session
// maps are only changed together inside AddToLobby and RemoveFromLobby, under
// the registry lock, so no caller can observe one without the other. A
// lobby is deleted when a removal empties its roster.
//
// Ticking:
//
// Tick runs, in order, the join sweep, the pending resource events and every
// lobby in creation order. Timeouts are elapsed-time checks against the
// registry clock (see WithClock), so tests can drive a registry without
// sleeping.
//
// Update Protocol:
//
// Every snapshot change is pushed as an Update to each session of the lobby
// through the Publisher with event name "lobby_update". Free-form messages
// use "lobby_message" and resource moves use "relocate". Action messages
// beginning with "#LOBBY_COMMAND#" are commands; the registry acts on
// REQUEST_FORCE_MAP_PICK and REQUEST_LOBBY_MOVE and clients act on
// FORCE_DISCONNECT.
//
// Errors:
//
// Precondition failures (double join, removing an unknown session, deleting
// a non-empty lobby) return sentinel errors and leave state untouched.
// Invalid call sequences wrap ErrFault.
//
// Usage:
//
//	registry := session.NewRegistry(session.DefaultConfig(),
//		session.WithPublisher(hub),
//		session.WithPlayers(directory),
//		session.WithGameplay(scoreboard),
//		session.WithSelector(levels),
//	)
//	defer registry.Close()
//
//	registry.Connect(sessionID)
//	directory.Register(sessionID, player.Identity{ID: "p1"})
//
//	// once per server tick
//	registry.Tick()
package session
