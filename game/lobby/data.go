package lobby

import (
	"time"

	"github.com/wricardo/racelobby/game/resource"
)

// Data is the replicated, read-only view of a lobby
type Data struct {
	ID          string         `json:"id"`
	Players     []string       `json:"players"`
	Points      map[string]int `json:"points"`
	State       StateName      `json:"state"`
	TimeInState float64        `json:"time_in_state"`
	Resource    resource.ID    `json:"resource,omitempty"`
	Standings   []Standing     `json:"standings,omitempty"`
	Capacity    int            `json:"capacity"`
}

// Data builds a snapshot of the lobby as of now
func (l *Lobby) Data(now time.Time) Data {
	points := make(map[string]int, len(l.points))
	for id, p := range l.points {
		points[id] = p
	}

	var standings []Standing
	if len(l.standings) > 0 {
		standings = l.Standings()
	}

	return Data{
		ID:          l.id,
		Players:     l.Roster(),
		Points:      points,
		State:       l.StateName(),
		TimeInState: l.TimeInState(now).Seconds(),
		Resource:    l.scenes.Level(),
		Standings:   standings,
		Capacity:    l.policy.Capacity,
	}
}
