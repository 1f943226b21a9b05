package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wricardo/racelobby/game/lobby"
	"github.com/wricardo/racelobby/game/player"
	"github.com/wricardo/racelobby/game/service"
	"github.com/wricardo/racelobby/game/session"
	hub "github.com/wricardo/racelobby/transport/websocket"
)

// incoming is a server envelope with its payload left raw
type incoming struct {
	Session string          `json:"session"`
	Event   string          `json:"event"`
	Data    json.RawMessage `json:"data"`
}

// Bot is one simulated client holding a single player
type Bot struct {
	PlayerID string
	Session  string
	// ForcePick makes the bot ask every lobby it waits in to pick its map
	ForcePick bool

	conn      *websocket.Conn
	requested string // lobby the last map pick was requested for
}

// wsURL turns a server base URL into its websocket endpoint
func wsURL(baseURL string) (string, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path += "/ws"
	return u.String(), nil
}

// DialBot connects, waits for the welcome envelope and announces the player
func DialBot(ctx context.Context, endpoint, playerID string) (*Bot, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", endpoint, err)
	}

	conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	var welcome incoming
	if err := conn.ReadJSON(&welcome); err != nil {
		conn.Close()
		return nil, fmt.Errorf("read welcome: %w", err)
	}
	if welcome.Event != hub.EventWelcome {
		conn.Close()
		return nil, fmt.Errorf("expected %s, got %s", hub.EventWelcome, welcome.Event)
	}
	conn.SetReadDeadline(time.Time{})

	hello, err := json.Marshal(service.HelloFrame{
		Players: []player.Identity{{ID: playerID, Name: playerID}},
	})
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := conn.WriteJSON(hub.Frame{Type: service.FrameHello, Data: hello}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("send hello: %w", err)
	}

	return &Bot{PlayerID: playerID, Session: welcome.Session, conn: conn}, nil
}

// Run forwards lobby updates to updates until ctx is done, the server
// closes the connection or the bot is told to disconnect.
func (b *Bot) Run(ctx context.Context, updates chan<- session.Update) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			b.conn.Close()
		case <-done:
		}
	}()
	defer b.conn.Close()

	for {
		var env incoming
		if err := b.conn.ReadJSON(&env); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("bot %s: %w", b.PlayerID, err)
		}

		switch env.Event {
		case session.EventLobbyUpdate:
			var u session.Update
			if err := json.Unmarshal(env.Data, &u); err != nil {
				continue
			}
			if b.ForcePick {
				if err := b.maybeRequestPick(u); err != nil {
					return fmt.Errorf("bot %s: %w", b.PlayerID, err)
				}
			}
			select {
			case updates <- u:
			case <-ctx.Done():
				return nil
			}
		case session.EventLobbyMessage:
			var m session.Message
			if err := json.Unmarshal(env.Data, &m); err != nil {
				continue
			}
			if m.Kind == session.MessageAction && m.Text == session.CommandForceDisconnect {
				return nil
			}
		}
	}
}

// maybeRequestPick requests one map pick per wait of a lobby
func (b *Bot) maybeRequestPick(u session.Update) error {
	if u.Data.State != lobby.StateWaitingForPlayers {
		b.requested = ""
		return nil
	}
	if b.requested == u.LobbyID {
		return nil
	}
	b.requested = u.LobbyID
	return b.RequestMapPick()
}

// RequestMapPick asks the bot's lobby to pick its map now. Only the goroutine
// running the bot may call it once Run has started.
func (b *Bot) RequestMapPick() error {
	data, err := json.Marshal(service.MessageFrame{
		Kind: session.MessageAction,
		Text: session.CommandRequestForceMapPick,
	})
	if err != nil {
		return err
	}
	return b.conn.WriteJSON(hub.Frame{Type: service.FrameMessage, Data: data})
}
