// Package lobby implements a single race lobby and the state machine that
// drives it through a round.
//
// The lobby package implements:
//   - Lobby, a bounded roster of player identifiers with per-player points
//   - The State contract and the four canonical states
//   - Scenes, the per-lobby delegate that loads, claims and releases resources
//   - Data, the read-only snapshot pushed to clients on every update
//   - NamePool, the human-readable lobby identifier pool
//
// State Graph:
//
//	WAITING_FOR_PLAYERS -> MAP_SELECTION -> RACING -> POST_RACE -> WAITING_FOR_PLAYERS
//
// WAITING_FOR_PLAYERS advances when an operator forces a map pick, when the
// roster is full, when the player wait elapses, or immediately in local
// deployments. MAP_SELECTION asks the ResourceSelector for a level, loads it
// and moves on to RACING once the map is registered and owned by the lobby.
// RACING ends when the Gameplay collaborator reports the round finished, at
// which point placements are turned into points exactly once. POST_RACE falls
// back to WAITING_FOR_PLAYERS when the map goes away, when nobody is left on
// it, or when the round-end timer elapses, relocating players to the
// antechamber.
//
// Ticking:
//
// Tick runs the current state's Update and then CheckForStateChange. When a
// new state is returned the lobby swaps it in, resets its time in state and
// notifies the host with STATE_CHANGE before the new state's Enter hook
// runs. The new state is not checked again until the next tick, so a lobby
// escalates at most once per tick.
//
// Ownership:
//
// A Lobby never mutates session membership or the ownership table directly.
// Everything that crosses the lobby boundary goes through the Host it was
// created with, which the session registry implements while holding its lock.
//
// Usage:
//
//	l := lobby.New("Apex", lobby.DefaultPolicy(), lobby.Deps{
//		Host:     host,
//		Loader:   loader,
//		Gameplay: scoreboard,
//		Selector: catalog,
//	}, lobby.NewWaitingForPlayers(), time.Now())
//
//	if err := l.AddAll([]string{"p1", "p2"}); err != nil {
//		log.Printf("join failed: %v", err)
//	}
//
//	// once per server tick
//	l.Tick(time.Now())
package lobby
