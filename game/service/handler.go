package service

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/wricardo/racelobby/game/player"
	"github.com/wricardo/racelobby/game/session"
	"github.com/wricardo/racelobby/transport/websocket"
)

// ClientRegistry is the part of session.Registry driven by connected clients
type ClientRegistry interface {
	Connect(session string) error
	Disconnect(session, reason string)
	HandleClientMessage(session string, kind session.MessageKind, text string) error
}

// IdentityRegistry records the players announced by a session
type IdentityRegistry interface {
	Register(session string, identities ...player.Identity) error
}

// clientHandler implements websocket.Handler
type clientHandler struct {
	registry ClientRegistry
	players  IdentityRegistry
}

// NewClientHandler creates the handler the websocket hub reports to
func NewClientHandler(registry ClientRegistry, players IdentityRegistry) websocket.Handler {
	return &clientHandler{registry: registry, players: players}
}

// Connect stages the session until its players say hello
func (h *clientHandler) Connect(sessionID string) error {
	return h.registry.Connect(sessionID)
}

// Disconnect removes the session from its lobby, if any
func (h *clientHandler) Disconnect(sessionID, reason string) {
	h.registry.Disconnect(sessionID, reason)
}

// HandleFrame routes one client frame
func (h *clientHandler) HandleFrame(sessionID string, frame websocket.Frame) error {
	switch frame.Type {
	case FrameHello:
		var hello HelloFrame
		if err := decodeFrame(frame, &hello); err != nil {
			return err
		}
		if len(hello.Players) == 0 {
			return fmt.Errorf("%w: hello needs at least one player", ErrInvalidRequest)
		}
		if err := h.players.Register(sessionID, hello.Players...); err != nil {
			return fmt.Errorf("failed to register players: %w", err)
		}
		return nil

	case FrameMessage:
		var msg MessageFrame
		if err := decodeFrame(frame, &msg); err != nil {
			return err
		}
		if strings.TrimSpace(msg.Text) == "" {
			return fmt.Errorf("%w: text is required", ErrInvalidRequest)
		}
		kind := msg.Kind
		if kind == "" {
			kind = session.MessagePlaintext
		}
		if kind != session.MessagePlaintext && kind != session.MessageAction {
			return fmt.Errorf("%w: unknown message kind %q", ErrInvalidRequest, kind)
		}
		return h.registry.HandleClientMessage(sessionID, kind, msg.Text)

	default:
		return fmt.Errorf("%w: %q", ErrUnknownFrame, frame.Type)
	}
}

func decodeFrame(frame websocket.Frame, v interface{}) error {
	if len(frame.Data) == 0 {
		return fmt.Errorf("%w: %s frame has no data", ErrInvalidRequest, frame.Type)
	}
	if err := json.Unmarshal(frame.Data, v); err != nil {
		return fmt.Errorf("%w: %s frame: %v", ErrInvalidRequest, frame.Type, err)
	}
	return nil
}
