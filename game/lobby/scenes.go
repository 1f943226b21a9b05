package lobby

import (
	"errors"
	"fmt"

	"github.com/wricardo/racelobby/game/resource"
)

var ErrResourceOwned = errors.New("resource owned by another lobby")

// Scenes loads, claims and releases the resources a lobby plays on. It keeps
// the lobby's selected level and the loads it is still waiting for; the
// ownership table itself lives with the host.
type Scenes struct {
	lobby     *Lobby
	loader    resource.Loader
	level     resource.ID
	requested map[resource.ID]bool
}

func newScenes(l *Lobby, loader resource.Loader) *Scenes {
	return &Scenes{
		lobby:     l,
		loader:    loader,
		requested: make(map[resource.ID]bool),
	}
}

// Level returns the selected map resource, empty when none is selected
func (s *Scenes) Level() resource.ID {
	return s.level
}

// Pending reports whether a load for id is still outstanding
func (s *Scenes) Pending(id resource.ID) bool {
	return s.requested[id]
}

// Request selects id as the lobby's level and asks the loader for it. A
// resource that is already loaded and unowned is claimed straight away,
// unless another lobby is still waiting on its own load of it.
func (s *Scenes) Request(id resource.ID) error {
	l := s.lobby
	if s.level != "" {
		return fmt.Errorf("level %q already selected", s.level)
	}
	if s.loader == nil {
		return errors.New("no resource loader configured")
	}
	if l.host != nil {
		if !l.host.CanClaim(l.id, id) {
			return ErrResourceOwned
		}
		if requester, ok := l.host.Requester(id); ok && requester != l.id {
			return fmt.Errorf("%w: load of %s pending for %s", ErrResourceOwned, id, requester)
		}
	}

	s.level = id
	s.requested[id] = true

	err := s.loader.Load(id, resource.LoadOptions{UnloadWhenEmpty: true})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, resource.ErrAlreadyLoaded):
		delete(s.requested, id)
		if !s.claim(id) {
			return ErrResourceOwned
		}
		return nil
	default:
		s.level = ""
		delete(s.requested, id)
		return fmt.Errorf("failed to load %s: %w", id, err)
	}
}

// Registered handles a loader Registered event. It reports whether this lobby
// had requested id.
func (s *Scenes) Registered(id resource.ID) bool {
	if !s.requested[id] {
		return false
	}
	delete(s.requested, id)
	s.claim(id)
	return true
}

// claim takes ownership of id. On failure the selection is dropped so map
// selection picks again instead of waiting on a level it will never own.
func (s *Scenes) claim(id resource.ID) bool {
	l := s.lobby
	if l.host == nil {
		return true
	}
	if owner, ok := l.host.OwnerOf(id); ok && owner != l.id {
		l.logf("cannot claim newly registered resource %s, already owned by %s", id, owner)
		s.drop(id)
		return false
	}
	if !l.host.Claim(l.id, id) {
		l.logf("claim of resource %s refused", id)
		s.drop(id)
		return false
	}
	l.logf("claimed resource %s", id)
	return true
}

func (s *Scenes) drop(id resource.ID) {
	delete(s.requested, id)
	if s.level == id {
		s.level = ""
	}
}

// Deregistered handles a loader Deregistered event for a resource the lobby
// owned or was waiting for.
func (s *Scenes) Deregistered(id resource.ID) {
	delete(s.requested, id)
	if id == s.level {
		s.lobby.logf("level %s deregistered", id)
		s.level = ""
	}
}

// MapReady reports whether the level is loaded and owned by the lobby
func (s *Scenes) MapReady() bool {
	l := s.lobby
	if s.level == "" || s.loader == nil || l.host == nil {
		return false
	}
	if !s.loader.IsRegistered(s.level) {
		return false
	}
	owner, ok := l.host.OwnerOf(s.level)
	return ok && owner == l.id
}

// MapClients returns the sessions currently inside the level
func (s *Scenes) MapClients() []string {
	if s.level == "" || s.loader == nil {
		return nil
	}
	return s.loader.Clients(s.level)
}

// MovePlayersToMap moves every session of the lobby from the antechamber onto
// the level.
func (s *Scenes) MovePlayersToMap() {
	s.move(s.lobby.policy.Antechamber, s.level)
}

// MovePlayersToAntechamber moves every session of the lobby off the level and
// back into the antechamber.
func (s *Scenes) MovePlayersToAntechamber() {
	s.move(s.level, s.lobby.policy.Antechamber)
}

func (s *Scenes) move(from, to resource.ID) {
	l := s.lobby
	if l.host == nil || s.loader == nil || to == "" {
		return
	}

	sessions := l.host.Sessions(l.id)
	moved := make([]string, 0, len(sessions))
	for _, session := range sessions {
		if from != "" {
			s.loader.RemoveClient(from, session)
		}
		if err := s.loader.AddClient(to, session); err != nil {
			l.logf("cannot move %s into %s: %v", session, to, err)
			continue
		}
		moved = append(moved, session)
	}

	if len(moved) > 0 {
		l.host.Relocate(l.id, moved, to)
	}
}

// ReleaseLevel gives up the level and unloads it if it is still loaded
func (s *Scenes) ReleaseLevel() {
	if s.level == "" {
		return
	}
	s.release(s.level)
	s.level = ""
}

// Teardown releases and unloads every resource the lobby owns and forgets
// outstanding loads.
func (s *Scenes) Teardown() {
	l := s.lobby
	if l.host != nil {
		for _, id := range l.host.Owned(l.id) {
			s.release(id)
		}
	}
	if s.level != "" {
		s.release(s.level)
	}
	s.level = ""
	s.requested = make(map[resource.ID]bool)
}

func (s *Scenes) release(id resource.ID) {
	l := s.lobby
	if id == l.policy.Antechamber {
		return
	}
	if l.host != nil {
		if owner, ok := l.host.OwnerOf(id); ok && owner != l.id {
			return
		}
		l.host.Release(l.id, id)
	}
	if s.loader != nil && s.loader.IsRegistered(id) {
		if err := s.loader.Unload(id); err != nil {
			l.logf("failed to unload %s: %v", id, err)
		}
	}
}
