package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/wricardo/racelobby/game/lobby"
	"github.com/wricardo/racelobby/game/resource"
)

// Settings is the lobby policy read from the environment
type Settings struct {
	Capacity          int           `env:"LOBBY_CAPACITY" envDefault:"8"`
	PlayerWait        time.Duration `env:"LOBBY_PLAYER_WAIT" envDefault:"20s"`
	MapPickTime       time.Duration `env:"LOBBY_MAP_PICK_TIME" envDefault:"3s"`
	RoundEnd          time.Duration `env:"LOBBY_ROUND_END" envDefault:"15s"`
	Multiplayer       bool          `env:"LOBBY_MULTIPLAYER" envDefault:"true"`
	ManualWait        bool          `env:"LOBBY_MANUAL_WAIT" envDefault:"false"`
	StrictMatchmaking bool          `env:"LOBBY_STRICT_MATCHMAKING" envDefault:"false"`
	Antechamber       string        `env:"LOBBY_ANTECHAMBER" envDefault:"MenuLobby"`
	OverrideLevel     string        `env:"LOBBY_OVERRIDE_LEVEL"`
	TickInterval      time.Duration `env:"LOBBY_TICK_INTERVAL" envDefault:"100ms"`
	JoinWarn          time.Duration `env:"LOBBY_JOIN_WARN" envDefault:"10s"`
	MessageRate       float64       `env:"LOBBY_MESSAGE_RATE" envDefault:"5"`
	MessageBurst      int           `env:"LOBBY_MESSAGE_BURST" envDefault:"10"`
}

// LoadSettings reads Settings from the process environment
func LoadSettings() (Settings, error) {
	var s Settings
	if err := env.Parse(&s); err != nil {
		return Settings{}, fmt.Errorf("parse env: %w", err)
	}
	return s, s.Validate()
}

// LoadSettingsFrom reads Settings from the given variables only
func LoadSettingsFrom(vars map[string]string) (Settings, error) {
	var s Settings
	if err := env.ParseWithOptions(&s, env.Options{Environment: vars}); err != nil {
		return Settings{}, fmt.Errorf("parse env: %w", err)
	}
	return s, s.Validate()
}

// Validate rejects settings a lobby cannot run with
func (s Settings) Validate() error {
	if s.Capacity <= 0 {
		return fmt.Errorf("LOBBY_CAPACITY must be positive, got %d", s.Capacity)
	}
	if s.TickInterval <= 0 {
		return fmt.Errorf("LOBBY_TICK_INTERVAL must be positive, got %s", s.TickInterval)
	}
	if s.MessageRate <= 0 || s.MessageBurst <= 0 {
		return fmt.Errorf("LOBBY_MESSAGE_RATE and LOBBY_MESSAGE_BURST must be positive")
	}
	if s.Antechamber == "" {
		return fmt.Errorf("LOBBY_ANTECHAMBER must not be empty")
	}
	return nil
}

// Policy converts the settings into a lobby policy
func (s Settings) Policy() lobby.Policy {
	return lobby.Policy{
		Capacity:    s.Capacity,
		PlayerWait:  s.PlayerWait,
		MapPickTime: s.MapPickTime,
		RoundEnd:    s.RoundEnd,
		Multiplayer: s.Multiplayer,
		ManualWait:  s.ManualWait,
		Antechamber: resource.ID(s.Antechamber),
	}
}
