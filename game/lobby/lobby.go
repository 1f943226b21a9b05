package lobby

import (
	"errors"
	"io"
	"log"
	"sort"
	"time"

	"github.com/wricardo/racelobby/game/resource"
)

var (
	ErrFull           = errors.New("lobby is full")
	ErrNoPlayers      = errors.New("no players given")
	ErrAlreadyPresent = errors.New("player already in lobby")
)

// Deps are the collaborators a lobby is built with
type Deps struct {
	Host     Host
	Loader   resource.Loader
	Gameplay Gameplay
	Selector ResourceSelector
	Logger   *log.Logger
}

// Standing is one line of the last round's results
type Standing struct {
	Player string `json:"player"`
	Place  int    `json:"place"`
	Points int    `json:"points"`
}

// Lobby is a bounded group of players moving through a round lifecycle
type Lobby struct {
	id        string
	policy    Policy
	roster    []string
	points    map[string]int
	standings []Standing
	rounds    int

	state     State
	enteredAt time.Time
	forcePick bool

	scenes   *Scenes
	host     Host
	gameplay Gameplay
	selector ResourceSelector
	logger   *log.Logger
}

// New creates a lobby in the given initial state
func New(id string, policy Policy, deps Deps, initial State, now time.Time) *Lobby {
	if policy.Capacity <= 0 {
		policy.Capacity = DefaultCapacity
	}
	if policy.Antechamber == "" {
		policy.Antechamber = DefaultAntechamber
	}
	if initial == nil {
		initial = NewWaitingForPlayers()
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	l := &Lobby{
		id:        id,
		policy:    policy,
		points:    make(map[string]int),
		state:     initial,
		enteredAt: now,
		host:      deps.Host,
		gameplay:  deps.Gameplay,
		selector:  deps.Selector,
		logger:    logger,
	}
	l.scenes = newScenes(l, deps.Loader)
	return l
}

// ID returns the lobby identifier
func (l *Lobby) ID() string {
	return l.id
}

// Policy returns the policy the lobby runs with
func (l *Lobby) Policy() Policy {
	return l.policy
}

// AddAll appends every id to the roster, or none of them
func (l *Lobby) AddAll(ids []string) error {
	if len(ids) == 0 {
		return ErrNoPlayers
	}
	if len(ids) > l.OpenSlots() {
		return ErrFull
	}

	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] || l.Has(id) {
			return ErrAlreadyPresent
		}
		seen[id] = true
	}

	for _, id := range ids {
		l.roster = append(l.roster, id)
		if _, ok := l.points[id]; !ok {
			l.points[id] = 0
		}
	}
	return nil
}

// Remove drops id from the roster. It reports whether id was present.
func (l *Lobby) Remove(id string) bool {
	for i, p := range l.roster {
		if p == id {
			l.roster = append(l.roster[:i], l.roster[i+1:]...)
			delete(l.points, id)
			return true
		}
	}
	return false
}

// Roster returns the players in join order
func (l *Lobby) Roster() []string {
	out := make([]string, len(l.roster))
	copy(out, l.roster)
	return out
}

// PlayerCount returns the roster size
func (l *Lobby) PlayerCount() int {
	return len(l.roster)
}

// OpenSlots returns how many more players fit
func (l *Lobby) OpenSlots() int {
	open := l.policy.Capacity - len(l.roster)
	if open < 0 {
		return 0
	}
	return open
}

// Has reports whether id is in the roster
func (l *Lobby) Has(id string) bool {
	for _, p := range l.roster {
		if p == id {
			return true
		}
	}
	return false
}

// State returns the current state
func (l *Lobby) State() State {
	return l.state
}

// StateName returns the name of the current state
func (l *Lobby) StateName() StateName {
	return l.state.Name()
}

// TimeInState returns how long the lobby has been in its current state
func (l *Lobby) TimeInState(now time.Time) time.Duration {
	d := now.Sub(l.enteredAt)
	if d < 0 {
		return 0
	}
	return d
}

// Tick runs one Update and CheckForStateChange pass. It reports whether the
// state changed.
func (l *Lobby) Tick(now time.Time) bool {
	current := l.state
	current.Update(l, now)

	next := current.CheckForStateChange(l, now)
	if next == nil {
		return false
	}
	l.SetState(next, now)
	return true
}

// SetState swaps in next, resets the time in state, notifies the host and
// then runs next's Enter hook.
func (l *Lobby) SetState(next State, now time.Time) {
	prev := l.state
	l.state = next
	l.enteredAt = now

	l.logf("%s -> %s", prev.Name(), next.Name())

	if l.host != nil {
		l.host.Notify(l.id, ReasonStateChange)
	}
	if enterer, ok := next.(Enterer); ok {
		enterer.Enter(l, prev)
	}
}

// RequestMapPick asks the lobby to pick a map as soon as possible
func (l *Lobby) RequestMapPick() {
	l.forcePick = true
}

// MapPickRequested reports whether a forced pick is pending
func (l *Lobby) MapPickRequested() bool {
	return l.forcePick
}

func (l *Lobby) takeMapPick() bool {
	forced := l.forcePick
	l.forcePick = false
	return forced
}

// Scenes returns the lobby's resource delegate
func (l *Lobby) Scenes() *Scenes {
	return l.scenes
}

// Level returns the map resource currently selected, if any
func (l *Lobby) Level() resource.ID {
	return l.scenes.Level()
}

// Points returns id's accumulated points
func (l *Lobby) Points(id string) int {
	return l.points[id]
}

// Standings returns the results of the last finished round
func (l *Lobby) Standings() []Standing {
	out := make([]Standing, len(l.standings))
	copy(out, l.standings)
	return out
}

// Rounds returns how many rounds the lobby has finished
func (l *Lobby) Rounds() int {
	return l.rounds
}

// award turns placements into points for the current roster
func (l *Lobby) award(placements map[string]Placement) {
	l.standings = nil
	for _, id := range l.roster {
		placement, ok := placements[id]
		if !ok {
			l.logf("no placement for %s, skipping points", id)
			continue
		}
		l.points[id] += placement.Points
		l.standings = append(l.standings, Standing{
			Player: id,
			Place:  placement.Place,
			Points: placement.Points,
		})
	}
	sort.SliceStable(l.standings, func(i, j int) bool {
		return l.standings[i].Place < l.standings[j].Place
	})
	l.rounds++
}

// Teardown releases and unloads everything the lobby owns
func (l *Lobby) Teardown() {
	l.scenes.Teardown()
}

func (l *Lobby) logf(format string, args ...interface{}) {
	l.logger.Printf("[LOBBY] (%s) "+format, append([]interface{}{l.id}, args...)...)
}
