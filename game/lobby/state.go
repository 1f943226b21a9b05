package lobby

import (
	"time"

	"github.com/wricardo/racelobby/game/resource"
)

// StateName identifies a lobby state on the wire
type StateName string

const (
	StateWaitingForPlayers StateName = "WAITING_FOR_PLAYERS"
	StateMapSelection      StateName = "MAP_SELECTION"
	StateRacing            StateName = "RACING"
	StatePostRace          StateName = "POST_RACE"
)

// UpdateReason explains why a lobby update was pushed
type UpdateReason string

const (
	ReasonNone        UpdateReason = "NONE"
	ReasonStateChange UpdateReason = "STATE_CHANGE"
	ReasonPlayerJoin  UpdateReason = "PLAYER_JOIN"
	ReasonPlayerLeave UpdateReason = "PLAYER_LEAVE"
)

// State is one node of a lobby's state graph. A state holds only the fields
// it needs and receives its lobby on every call.
type State interface {
	Name() StateName
	// Update runs once per tick and must not block.
	Update(l *Lobby, now time.Time)
	// CheckForStateChange runs right after Update. It returns nil to stay in
	// the current state or a fresh state to move to.
	CheckForStateChange(l *Lobby, now time.Time) State
}

// Enterer is implemented by states that act when they become current.
// Enter runs after the STATE_CHANGE notification for the new state.
type Enterer interface {
	Enter(l *Lobby, prev State)
}

// StateFactory builds the initial state of a new lobby
type StateFactory func() State

// Placement is one player's final result for a round
type Placement struct {
	Place  int `json:"place"`
	Points int `json:"points"`
}

// Host is the lobby's non-owning view of the registry that holds it. Every
// call is made while the registry lock is held.
type Host interface {
	// Sessions returns the sessions currently mapped to the lobby.
	Sessions(lobbyID string) []string
	Claim(lobbyID string, id resource.ID) bool
	Release(lobbyID string, id resource.ID) bool
	CanClaim(lobbyID string, id resource.ID) bool
	OwnerOf(id resource.ID) (string, bool)
	Owned(lobbyID string) []resource.ID
	// Requester returns the lobby still waiting on a load of id, if any.
	Requester(id resource.ID) (string, bool)
	// Notify pushes the lobby's snapshot to its sessions.
	Notify(lobbyID string, reason UpdateReason)
	// Relocate tells sessions that they have been moved into a resource.
	Relocate(lobbyID string, sessions []string, id resource.ID)
}

// Gameplay is the race collaborator that owns round progress and scoring
type Gameplay interface {
	BeginRound(id resource.ID, players []string)
	RoundFinished(id resource.ID) bool
	Placements(id resource.ID) map[string]Placement
}

// ResourceSelector picks the level a lobby races on next
type ResourceSelector interface {
	SelectResource() (resource.ID, error)
}
