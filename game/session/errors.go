package session

import (
	"errors"

	"github.com/wricardo/racelobby/game/lobby"
)

// Precondition failures. The registry reports them and leaves its state
// untouched.
var (
	ErrAlreadyInLobby     = errors.New("session already in a lobby")
	ErrNotInLobby         = errors.New("session not in a lobby")
	ErrLobbyNotFound      = errors.New("lobby not found")
	ErrLobbyNotEmpty      = errors.New("lobby not empty")
	ErrNoPlayers          = lobby.ErrNoPlayers
	ErrIdentityUnresolved = errors.New("player identity not resolved")
	ErrPlayerInLobby      = errors.New("player already in a lobby")
	ErrLobbyFull          = lobby.ErrFull
	ErrAlreadyConnected   = errors.New("session already connected")
	ErrNoRecipients       = errors.New("no message recipients")
	ErrNameCollision      = errors.New("lobby name pool exhausted and fallback name in use")
)

// ErrFault marks an invalid call sequence, such as claiming a resource for a
// lobby that does not exist. Faults are wrapped with context; test for them
// with errors.Is(err, ErrFault).
var ErrFault = errors.New("registry fault")
