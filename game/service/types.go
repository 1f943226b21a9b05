package service

import (
	"errors"

	"github.com/wricardo/racelobby/game/gameplay"
	"github.com/wricardo/racelobby/game/lobby"
	"github.com/wricardo/racelobby/game/player"
	"github.com/wricardo/racelobby/game/resource"
	"github.com/wricardo/racelobby/game/session"
)

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrUnknownFrame   = errors.New("unknown frame type")
)

// LobbyInfo provides information about a live lobby
type LobbyInfo struct {
	lobby.Data
	Sessions []string `json:"sessions"`
}

// MessageRequest is an operator message sent into a lobby
type MessageRequest struct {
	Kind       session.MessageKind `json:"kind,omitempty"` // PLAINTEXT (default) or ACTION
	Text       string              `json:"text"`
	Sender     string              `json:"sender,omitempty"`
	Recipients []string            `json:"recipients,omitempty"` // Defaults to every session of the lobby
}

// ResultsRequest reports the finishing order of a round
type ResultsRequest struct {
	Results []gameplay.Result `json:"results"`
}

// ResourceInfo describes one world-partition resource
type ResourceInfo struct {
	Resource resource.ID     `json:"resource"`
	Loaded   bool            `json:"loaded"`
	Owner    string          `json:"owner,omitempty"`
	Clients  []string        `json:"clients"`
	Round    *gameplay.Round `json:"round,omitempty"`
}

// DashboardInfo is the server overview
type DashboardInfo struct {
	Stats    session.Stats            `json:"stats"`
	Pending  []session.PendingSession `json:"pending"`
	Override string                   `json:"override,omitempty"`
	Text     string                   `json:"text"`
}

// OverrideRequest forces every lobby onto one level. An empty level clears it.
type OverrideRequest struct {
	Level string `json:"level"`
}

// Client frame types
const (
	FrameHello   = "hello"
	FrameMessage = "message"
)

// HelloFrame announces the players behind a session
type HelloFrame struct {
	Players []player.Identity `json:"players"`
}

// MessageFrame is a lobby message sent by a client
type MessageFrame struct {
	Kind session.MessageKind `json:"kind,omitempty"`
	Text string              `json:"text"`
}
