package session

import (
	"strings"
)

// SendLobbyMessage delivers a message to recipients, or to every session of
// lobbyID when recipients is empty. The lobby is only required when no
// recipients are given.
func (r *Registry) SendLobbyMessage(lobbyID string, kind MessageKind, text, sender string, recipients []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.sendLocked(lobbyID, kind, text, sender, recipients)
}

func (r *Registry) sendLocked(lobbyID string, kind MessageKind, text, sender string, recipients []string) error {
	if len(recipients) == 0 {
		if _, exists := r.lobbies[lobbyID]; !exists {
			return ErrLobbyNotFound
		}
		recipients = copyStrings(r.lobbySessions[lobbyID])
	}
	if len(recipients) == 0 {
		return ErrNoRecipients
	}

	msg := newMessage(lobbyID, kind, text, sender, r.now())
	for _, session := range recipients {
		r.publisher.Publish(session, EventLobbyMessage, msg)
	}
	return nil
}

// HandleClientMessage relays a message sent by session to its lobby and acts
// on the lobby commands it carries. Commands are not permission checked.
func (r *Registry) HandleClientMessage(session string, kind MessageKind, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	lobbyID, mapped := r.sessionLobby[session]
	if !mapped {
		return ErrNotInLobby
	}

	if err := r.sendLocked(lobbyID, kind, text, session, nil); err != nil {
		return err
	}
	if kind != MessageAction {
		return nil
	}

	switch {
	case strings.HasPrefix(text, CommandRequestForceMapPick):
		if l, exists := r.lobbies[lobbyID]; exists {
			l.RequestMapPick()
			r.logf("session %s forced a map pick in lobby %q", session, lobbyID)
		}
	case strings.HasPrefix(text, CommandRequestLobbyMove):
		if err := r.removeLocked(session, "lobby move requested"); err != nil {
			return err
		}
		r.restageLocked(session, map[string]bool{lobbyID: true})
		r.logf("session %s moving away from lobby %q", session, lobbyID)
	}
	return nil
}
