package config

import (
	"testing"
	"time"

	"github.com/wricardo/racelobby/game/lobby"
)

func TestLoadSettingsFrom_Defaults(t *testing.T) {
	s, err := LoadSettingsFrom(map[string]string{})
	if err != nil {
		t.Fatalf("LoadSettingsFrom failed: %v", err)
	}

	policy := s.Policy()
	want := lobby.DefaultPolicy()
	if policy != want {
		t.Errorf("Default policy = %+v, want %+v", policy, want)
	}
	if s.TickInterval != 100*time.Millisecond {
		t.Errorf("TickInterval = %s", s.TickInterval)
	}
	if s.JoinWarn != 10*time.Second {
		t.Errorf("JoinWarn = %s", s.JoinWarn)
	}
	if s.StrictMatchmaking {
		t.Error("Strict matchmaking should be off by default")
	}
}

func TestLoadSettingsFrom_Overrides(t *testing.T) {
	s, err := LoadSettingsFrom(map[string]string{
		"LOBBY_CAPACITY":           "4",
		"LOBBY_PLAYER_WAIT":        "5s",
		"LOBBY_MULTIPLAYER":        "false",
		"LOBBY_MANUAL_WAIT":        "true",
		"LOBBY_STRICT_MATCHMAKING": "true",
		"LOBBY_ANTECHAMBER":        "Garage",
		"LOBBY_OVERRIDE_LEVEL":     "canyon",
	})
	if err != nil {
		t.Fatalf("LoadSettingsFrom failed: %v", err)
	}

	policy := s.Policy()
	if policy.Capacity != 4 || policy.PlayerWait != 5*time.Second {
		t.Errorf("Unexpected policy %+v", policy)
	}
	if policy.Multiplayer || !policy.ManualWait {
		t.Errorf("Mode flags not applied: %+v", policy)
	}
	if policy.Antechamber != "Garage" {
		t.Errorf("Antechamber = %s", policy.Antechamber)
	}
	if !s.StrictMatchmaking || s.OverrideLevel != "canyon" {
		t.Errorf("Unexpected settings %+v", s)
	}
}

func TestLoadSettingsFrom_Invalid(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
	}{
		{"not a number", map[string]string{"LOBBY_CAPACITY": "many"}},
		{"zero capacity", map[string]string{"LOBBY_CAPACITY": "0"}},
		{"bad duration", map[string]string{"LOBBY_ROUND_END": "soon"}},
		{"zero tick", map[string]string{"LOBBY_TICK_INTERVAL": "0s"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadSettingsFrom(tt.vars); err == nil {
				t.Error("Expected error")
			}
		})
	}
}
