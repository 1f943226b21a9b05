package session

import (
	"github.com/wricardo/racelobby/game/lobby"
)

// Matchmaker chooses which live lobby a joining group enters. Candidates are
// offered in creation order. Returning nil makes the registry create a new
// lobby.
type Matchmaker interface {
	Pick(candidates []*lobby.Lobby, players int) *lobby.Lobby
}

// FirstFit selects the first lobby with enough open slots. It is a
// placeholder for a ranking strategy.
type FirstFit struct {
	// RequireAccepting only considers lobbies still waiting for players.
	RequireAccepting bool
}

func (f FirstFit) Pick(candidates []*lobby.Lobby, players int) *lobby.Lobby {
	for _, l := range candidates {
		if l.OpenSlots() < players {
			continue
		}
		if f.RequireAccepting && l.StateName() != lobby.StateWaitingForPlayers {
			continue
		}
		return l
	}
	return nil
}
