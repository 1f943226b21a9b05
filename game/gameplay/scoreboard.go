// Package gameplay is the in-process race collaborator. It tracks which map
// instances have a round in progress, accepts reported results and hands the
// final placements back to the lobby that owns the map.
package gameplay

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/wricardo/racelobby/game/lobby"
	"github.com/wricardo/racelobby/game/resource"
)

var (
	ErrNoRound       = errors.New("no round in progress on resource")
	ErrRoundFinished = errors.New("round already finished")
	ErrUnknownRacer  = errors.New("result for a player not in the round")
	ErrBadPlace      = errors.New("place must be positive")
)

// Result is one reported finishing position. Points of zero are derived from
// the place and the size of the field.
type Result struct {
	Player string `json:"player"`
	Place  int    `json:"place"`
	Points int    `json:"points,omitempty"`
}

// Round is the record of one race on a map instance
type Round struct {
	Resource   resource.ID                `json:"resource"`
	Players    []string                   `json:"players"`
	StartedAt  time.Time                  `json:"started_at"`
	FinishedAt *time.Time                 `json:"finished_at,omitempty"`
	Placements map[string]lobby.Placement `json:"placements,omitempty"`
}

// Scoreboard implements lobby.Gameplay
type Scoreboard struct {
	rounds   map[resource.ID]*Round
	finished int
	now      func() time.Time
	mu       sync.RWMutex
}

// NewScoreboard creates an empty scoreboard
func NewScoreboard() *Scoreboard {
	return &Scoreboard{
		rounds: make(map[resource.ID]*Round),
		now:    time.Now,
	}
}

// PointsFor awards two points per racer beaten plus two for finishing
func PointsFor(place, racers int) int {
	if place <= 0 || place > racers {
		return 0
	}
	return (racers - place + 1) * 2
}

// BeginRound starts a fresh round on id, replacing any previous one
func (s *Scoreboard) BeginRound(id resource.ID, players []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	roster := make([]string, len(players))
	copy(roster, players)
	s.rounds[id] = &Round{
		Resource:  id,
		Players:   roster,
		StartedAt: s.now(),
	}
}

// Finish records the results of the round on id
func (s *Scoreboard) Finish(id resource.ID, results []Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	round, ok := s.rounds[id]
	if !ok {
		return ErrNoRound
	}
	if round.FinishedAt != nil {
		return ErrRoundFinished
	}

	inRound := make(map[string]bool, len(round.Players))
	for _, p := range round.Players {
		inRound[p] = true
	}

	placements := make(map[string]lobby.Placement, len(results))
	for _, r := range results {
		if !inRound[r.Player] {
			return ErrUnknownRacer
		}
		if r.Place <= 0 {
			return ErrBadPlace
		}
		points := r.Points
		if points == 0 {
			points = PointsFor(r.Place, len(round.Players))
		}
		placements[r.Player] = lobby.Placement{Place: r.Place, Points: points}
	}

	finishedAt := s.now()
	round.FinishedAt = &finishedAt
	round.Placements = placements
	s.finished++
	return nil
}

// RoundFinished reports whether the round on id has results
func (s *Scoreboard) RoundFinished(id resource.ID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	round, ok := s.rounds[id]
	return ok && round.FinishedAt != nil
}

// Placements returns the final placements of the round on id
func (s *Scoreboard) Placements(id resource.ID) map[string]lobby.Placement {
	s.mu.RLock()
	defer s.mu.RUnlock()

	round, ok := s.rounds[id]
	if !ok {
		return nil
	}
	out := make(map[string]lobby.Placement, len(round.Placements))
	for p, placement := range round.Placements {
		out[p] = placement
	}
	return out
}

// Round returns a copy of the round on id
func (s *Scoreboard) Round(id resource.ID) (Round, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	round, ok := s.rounds[id]
	if !ok {
		return Round{}, false
	}
	return *round, true
}

// Active returns the resources with a round in progress, sorted
func (s *Scoreboard) Active() []resource.ID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var active []resource.ID
	for id, round := range s.rounds {
		if round.FinishedAt == nil {
			active = append(active, id)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i] < active[j] })
	return active
}

// Rounds returns the number of rounds finished so far
func (s *Scoreboard) Rounds() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.finished
}
