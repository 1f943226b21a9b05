package session

import (
	"errors"
	"time"
)

type stagedSession struct {
	session string
	since   time.Time
	warned  bool
	// exclude lists lobbies the session asked to move away from
	exclude map[string]bool
}

// PendingSession describes a session waiting for its identities to resolve
type PendingSession struct {
	Session string        `json:"session"`
	Since   time.Time     `json:"since"`
	Waiting time.Duration `json:"waiting"`
}

// Connect stages a newly connected session. It joins a lobby on the first
// tick where all of its player identities resolve.
func (r *Registry) Connect(session string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stagedIndex(session) >= 0 {
		return ErrAlreadyConnected
	}
	if _, mapped := r.sessionLobby[session]; mapped {
		return ErrAlreadyConnected
	}

	now := r.now()
	r.staged = append(r.staged, &stagedSession{session: session, since: now})
	r.connected[session] = now
	r.logf("session %s connected, waiting for player identities", session)
	return nil
}

// Disconnect forgets session. It is safe to call for sessions that never
// finished joining.
func (r *Registry) Disconnect(session, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.unstageLocked(session)
	delete(r.connected, session)

	if _, mapped := r.sessionLobby[session]; mapped {
		if err := r.removeLocked(session, reason); err != nil {
			r.logf("failed to remove disconnected session %s: %v", session, err)
		}
	}
	r.players.Forget(session)
	r.logf("session %s disconnected: %s", session, reason)
}

// Pending returns the staged sessions in connect order
func (r *Registry) Pending() []PendingSession {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	out := make([]PendingSession, 0, len(r.staged))
	for _, s := range r.staged {
		out = append(out, PendingSession{
			Session: s.session,
			Since:   s.since,
			Waiting: now.Sub(s.since),
		})
	}
	return out
}

func (r *Registry) sweepLocked(now time.Time) {
	if len(r.staged) == 0 {
		return
	}

	remaining := make([]*stagedSession, 0, len(r.staged))
	for _, s := range r.staged {
		players := r.players.PlayersFor(s.session)
		if !r.resolvedLocked(players) {
			if !s.warned && now.Sub(s.since) >= r.cfg.JoinWarn {
				r.logf("session %s has been joining for %s, identities still unresolved",
					s.session, now.Sub(s.since).Round(time.Second))
				s.warned = true
			}
			remaining = append(remaining, s)
			continue
		}

		_, err := r.addLocked(s.session, players, s.exclude)
		switch {
		case err == nil:
		case errors.Is(err, ErrAlreadyInLobby):
			r.logf("session %s already in a lobby, unstaging", s.session)
		default:
			r.abortJoinLocked(s.session, err.Error())
		}
	}
	r.staged = remaining
}

func (r *Registry) resolvedLocked(players []string) bool {
	if len(players) == 0 {
		return false
	}
	for _, id := range players {
		if !r.players.HasIdentity(id) {
			return false
		}
	}
	return true
}

// abortJoinLocked tells the client to drop its connection
func (r *Registry) abortJoinLocked(session, reason string) {
	r.logf("aborting join for session %s: %s", session, reason)
	msg := newMessage("", MessageAction, CommandForceDisconnect+reason, "", r.now())
	r.publisher.Publish(session, EventLobbyMessage, msg)
}

func (r *Registry) restageLocked(session string, exclude map[string]bool) {
	r.unstageLocked(session)
	r.staged = append(r.staged, &stagedSession{
		session: session,
		since:   r.now(),
		exclude: exclude,
	})
}

func (r *Registry) unstageLocked(session string) {
	if i := r.stagedIndex(session); i >= 0 {
		r.staged = append(r.staged[:i], r.staged[i+1:]...)
	}
}

func (r *Registry) stagedIndex(session string) int {
	for i, s := range r.staged {
		if s.session == session {
			return i
		}
	}
	return -1
}
