package service

import (
	"context"

	"github.com/wricardo/racelobby/game/config"
	"github.com/wricardo/racelobby/game/gameplay"
	"github.com/wricardo/racelobby/game/lobby"
	"github.com/wricardo/racelobby/game/resource"
	"github.com/wricardo/racelobby/game/session"
)

// LobbyService defines all operator-facing lobby operations
type LobbyService interface {
	// Lobbies
	ListLobbies(ctx context.Context) ([]*LobbyInfo, error)
	GetLobby(ctx context.Context, lobbyID string) (*LobbyInfo, error)
	CreateLobby(ctx context.Context) (*LobbyInfo, error)
	DeleteLobby(ctx context.Context, lobbyID string) error
	ForceMapPick(ctx context.Context, lobbyID string) error
	SendMessage(ctx context.Context, lobbyID string, req *MessageRequest) error

	// Sessions
	GetSessionLobby(ctx context.Context, sessionID string) (*LobbyInfo, error)
	KickSession(ctx context.Context, sessionID, reason string) error

	// Resources and rounds
	ListResources(ctx context.Context) ([]*ResourceInfo, error)
	ReportResults(ctx context.Context, id resource.ID, results []gameplay.Result) (*gameplay.Round, error)

	// Levels
	ListLevels(ctx context.Context) ([]*config.LevelInfo, error)
	GetLevel(ctx context.Context, name string) (*config.Level, error)
	SaveLevel(ctx context.Context, name string, level *config.Level) error
	SetLevelOverride(ctx context.Context, name string) error

	// Server
	GetDashboard(ctx context.Context) (*DashboardInfo, error)
}

// LobbyRegistry is the part of session.Registry the service drives
type LobbyRegistry interface {
	CreateLobby() (lobby.Data, error)
	DeleteLobby(id string) error
	GetLobby(id string) (lobby.Data, bool)
	GetSessionLobby(session string) (lobby.Data, bool)
	Lobbies() []lobby.Data
	Sessions(id string) []string
	RemoveFromLobby(session, reason string) error
	SendLobbyMessage(lobbyID string, kind session.MessageKind, text, sender string, recipients []string) error
	ForceMapPick(id string) error
	Resources() map[resource.ID]string
	Stats() session.Stats
	Pending() []session.PendingSession
	Dashboard() string
}

// ResourceView exposes what the loader knows about loaded resources
type ResourceView interface {
	Loaded() []resource.ID
	Clients(id resource.ID) []string
}

// RoundReporter accepts race results for a map instance
type RoundReporter interface {
	Finish(id resource.ID, results []gameplay.Result) error
	Round(id resource.ID) (gameplay.Round, bool)
}

// LevelCatalog handles level loading and map selection overrides
type LevelCatalog interface {
	ListLevels() ([]*config.LevelInfo, error)
	LoadLevel(name string) (*config.Level, error)
	SaveLevel(name string, level *config.Level) error
	Override() string
	SetOverride(name string) error
}
