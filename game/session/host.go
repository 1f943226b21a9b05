package session

import (
	"github.com/wricardo/racelobby/game/lobby"
	"github.com/wricardo/racelobby/game/resource"
)

// host is the view of the registry handed to lobbies. Lobbies only call it
// from inside Tick or other registry methods, so the registry lock is
// already held and host must not take it again.
type host struct {
	r *Registry
}

var _ lobby.Host = (*host)(nil)

func (h *host) Sessions(lobbyID string) []string {
	return copyStrings(h.r.lobbySessions[lobbyID])
}

func (h *host) Claim(lobbyID string, id resource.ID) bool {
	if _, exists := h.r.lobbies[lobbyID]; !exists {
		h.r.logf("claim of %s for unregistered lobby %q ignored", id, lobbyID)
		return false
	}
	return h.r.resources.Claim(lobbyID, id)
}

func (h *host) Release(lobbyID string, id resource.ID) bool {
	return h.r.resources.Release(lobbyID, id)
}

func (h *host) CanClaim(lobbyID string, id resource.ID) bool {
	return h.r.resources.CanClaim(lobbyID, id)
}

func (h *host) OwnerOf(id resource.ID) (string, bool) {
	return h.r.resources.OwnerOf(id)
}

func (h *host) Owned(lobbyID string) []resource.ID {
	return h.r.resources.Owned(lobbyID)
}

func (h *host) Requester(id resource.ID) (string, bool) {
	for _, lobbyID := range h.r.order {
		if h.r.lobbies[lobbyID].Scenes().Pending(id) {
			return lobbyID, true
		}
	}
	return "", false
}

func (h *host) Notify(lobbyID string, reason lobby.UpdateReason) {
	h.r.pushUpdateLocked(lobbyID, reason, "", nil)
}

func (h *host) Relocate(lobbyID string, sessions []string, id resource.ID) {
	relocation := Relocation{LobbyID: lobbyID, Resource: id}
	for _, session := range sessions {
		h.r.publisher.Publish(session, EventRelocate, relocation)
	}
}
