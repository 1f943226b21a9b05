package lobby

import (
	"time"

	"github.com/wricardo/racelobby/game/resource"
)

const (
	DefaultCapacity    = 8
	DefaultPlayerWait  = 20 * time.Second
	DefaultMapPickTime = 3 * time.Second
	DefaultRoundEnd    = 15 * time.Second

	DefaultAntechamber resource.ID = "MenuLobby"
)

// Policy holds the timers and limits a lobby runs with
type Policy struct {
	// Capacity is the maximum number of players in the roster.
	Capacity int
	// PlayerWait is how long WAITING_FOR_PLAYERS waits before picking a map.
	PlayerWait time.Duration
	// MapPickTime is how long MAP_SELECTION waits before choosing a level.
	MapPickTime time.Duration
	// RoundEnd is how long POST_RACE lingers before returning to the lobby.
	RoundEnd time.Duration
	// Multiplayer is false for local deployments, which skip the wait.
	Multiplayer bool
	// ManualWait disables the automatic wait and map pick timers so that
	// only an operator can advance the lobby.
	ManualWait bool
	// Antechamber is the resource players wait in between rounds.
	Antechamber resource.ID
}

// DefaultPolicy returns the reference multiplayer policy
func DefaultPolicy() Policy {
	return Policy{
		Capacity:    DefaultCapacity,
		PlayerWait:  DefaultPlayerWait,
		MapPickTime: DefaultMapPickTime,
		RoundEnd:    DefaultRoundEnd,
		Multiplayer: true,
		Antechamber: DefaultAntechamber,
	}
}

// autoAdvance reports whether timers and a full roster may advance the lobby
// without an operator.
func (p Policy) autoAdvance() bool {
	return p.Multiplayer && !p.ManualWait
}
