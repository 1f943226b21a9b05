package lobby

import (
	"time"
)

// WaitingForPlayers collects players until the lobby is ready to pick a map
type WaitingForPlayers struct{}

// NewWaitingForPlayers returns the initial state of the canonical graph
func NewWaitingForPlayers() State {
	return &WaitingForPlayers{}
}

func (s *WaitingForPlayers) Name() StateName { return StateWaitingForPlayers }

// Enter brings players back to the antechamber after a round
func (s *WaitingForPlayers) Enter(l *Lobby, prev State) {
	if prev == nil {
		return
	}
	switch prev.Name() {
	case StateRacing, StatePostRace:
		l.scenes.MovePlayersToAntechamber()
		l.scenes.ReleaseLevel()
	}
}

func (s *WaitingForPlayers) Update(l *Lobby, now time.Time) {}

func (s *WaitingForPlayers) CheckForStateChange(l *Lobby, now time.Time) State {
	if l.PlayerCount() == 0 {
		return nil
	}

	p := l.policy
	forced := l.MapPickRequested()
	full := p.autoAdvance() && l.OpenSlots() == 0
	timedOut := p.autoAdvance() && l.TimeInState(now) >= p.PlayerWait
	local := !p.Multiplayer

	if forced || full || timedOut || local {
		l.logf("advancing to map selection (forced: %v, full: %v, timed out: %v, local: %v)",
			forced, full, timedOut, local)
		return &MapSelection{}
	}
	return nil
}

// MapSelection picks a level, loads it and waits until the lobby owns it
type MapSelection struct{}

func (s *MapSelection) Name() StateName { return StateMapSelection }

func (s *MapSelection) Enter(l *Lobby, prev State) {
	if level := l.scenes.Level(); level != "" {
		l.logf("entering map selection while still on level %q", level)
	}
}

func (s *MapSelection) Update(l *Lobby, now time.Time) {
	if l.scenes.Level() != "" {
		return
	}

	timedOut := !l.policy.ManualWait && l.TimeInState(now) >= l.policy.MapPickTime
	if !timedOut && !l.MapPickRequested() {
		return
	}
	l.takeMapPick()

	if l.selector == nil {
		l.logf("no resource selector configured, cannot pick a level")
		return
	}
	level, err := l.selector.SelectResource()
	if err != nil {
		l.logf("level selection failed: %v", err)
		return
	}

	l.logf("picked level %s, requesting map", level)
	if err := l.scenes.Request(level); err != nil {
		l.logf("map request for %s failed: %v", level, err)
	}
}

func (s *MapSelection) CheckForStateChange(l *Lobby, now time.Time) State {
	if l.scenes.MapReady() {
		return &Racing{}
	}
	return nil
}

// Racing runs while the gameplay collaborator plays out the round
type Racing struct{}

func (s *Racing) Name() StateName { return StateRacing }

func (s *Racing) Enter(l *Lobby, prev State) {
	l.scenes.MovePlayersToMap()
	if l.gameplay != nil {
		l.gameplay.BeginRound(l.scenes.Level(), l.Roster())
	}
}

func (s *Racing) Update(l *Lobby, now time.Time) {}

func (s *Racing) CheckForStateChange(l *Lobby, now time.Time) State {
	if !l.scenes.MapReady() {
		l.logf("map %q went away mid-round, returning to waiting", l.scenes.Level())
		return &WaitingForPlayers{}
	}
	if l.gameplay == nil {
		return nil
	}
	if l.gameplay.RoundFinished(l.scenes.Level()) {
		return &PostRace{}
	}
	return nil
}

// PostRace shows results until the players are sent back to the antechamber
type PostRace struct{}

func (s *PostRace) Name() StateName { return StatePostRace }

// Enter awards points for the round that just finished
func (s *PostRace) Enter(l *Lobby, prev State) {
	if l.gameplay == nil {
		l.logf("cannot award points, no gameplay collaborator")
		return
	}
	l.award(l.gameplay.Placements(l.scenes.Level()))
	if l.host != nil {
		l.host.Notify(l.id, ReasonNone)
	}
}

func (s *PostRace) Update(l *Lobby, now time.Time) {}

func (s *PostRace) CheckForStateChange(l *Lobby, now time.Time) State {
	switch {
	case !l.scenes.MapReady():
		return &WaitingForPlayers{}
	case len(l.scenes.MapClients()) == 0:
		return &WaitingForPlayers{}
	case l.policy.Multiplayer && l.TimeInState(now) >= l.policy.RoundEnd:
		return &WaitingForPlayers{}
	}
	return nil
}
