package session

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wricardo/racelobby/game/lobby"
	"github.com/wricardo/racelobby/game/resource"
)

// Event names used on the Publisher
const (
	EventLobbyUpdate  = "lobby_update"
	EventLobbyMessage = "lobby_message"
	EventRelocate     = "relocate"
)

// MessageKind is the kind of a free-form lobby message
type MessageKind string

const (
	MessagePlaintext MessageKind = "PLAINTEXT"
	MessageAction    MessageKind = "ACTION"
)

// Action command strings understood by clients and by the registry
const (
	CommandPrefix              = "#LOBBY_COMMAND#"
	CommandForceDisconnect     = "#LOBBY_COMMAND#FORCE_DISCONNECT#"
	CommandRequestForceMapPick = "#LOBBY_COMMAND#REQUEST_FORCE_MAP_PICK#"
	CommandRequestLobbyMove    = "#LOBBY_COMMAND#REQUEST_LOBBY_MOVE"
)

// Publisher delivers a payload to one session. Delivery is fire and forget
// but must preserve order per session.
type Publisher interface {
	Publish(session, event string, payload any)
}

// PublisherFunc adapts a function to Publisher
type PublisherFunc func(session, event string, payload any)

func (f PublisherFunc) Publish(session, event string, payload any) {
	f(session, event, payload)
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, string, any) {}

// Update is pushed to every session of a lobby when its snapshot changes
type Update struct {
	LobbyID string             `json:"lobby_id"`
	Data    lobby.Data         `json:"data"`
	Reason  lobby.UpdateReason `json:"reason"`
	// Detail carries the leave reason on the PLAYER_LEAVE update sent to the
	// session that left.
	Detail string `json:"detail,omitempty"`
}

// Message is a free-form lobby message
type Message struct {
	ID      string      `json:"id"`
	LobbyID string      `json:"lobby_id,omitempty"`
	Kind    MessageKind `json:"kind"`
	Text    string      `json:"text"`
	Sender  string      `json:"sender,omitempty"`
	SentAt  time.Time   `json:"sent_at"`
}

// IsCommand reports whether the message carries a lobby command
func (m Message) IsCommand() bool {
	return m.Kind == MessageAction && strings.HasPrefix(m.Text, CommandPrefix)
}

// Relocation tells a session it has been moved into a resource
type Relocation struct {
	LobbyID  string      `json:"lobby_id"`
	Resource resource.ID `json:"resource"`
}

func newMessage(lobbyID string, kind MessageKind, text, sender string, now time.Time) Message {
	return Message{
		ID:      uuid.NewString(),
		LobbyID: lobbyID,
		Kind:    kind,
		Text:    text,
		Sender:  sender,
		SentAt:  now,
	}
}
