package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/wricardo/racelobby/game/config"
	"github.com/wricardo/racelobby/game/gameplay"
	"github.com/wricardo/racelobby/game/lobby"
	"github.com/wricardo/racelobby/game/resource"
	"github.com/wricardo/racelobby/game/session"
)

// lobbyServiceImpl implements the LobbyService interface
type lobbyServiceImpl struct {
	registry  LobbyRegistry
	resources ResourceView
	rounds    RoundReporter
	levels    LevelCatalog
}

// NewLobbyService creates a new lobby service instance
func NewLobbyService(registry LobbyRegistry, resources ResourceView, rounds RoundReporter, levels LevelCatalog) LobbyService {
	return &lobbyServiceImpl{
		registry:  registry,
		resources: resources,
		rounds:    rounds,
		levels:    levels,
	}
}

func (s *lobbyServiceImpl) info(data lobby.Data) *LobbyInfo {
	sessions := s.registry.Sessions(data.ID)
	if sessions == nil {
		sessions = []string{}
	}
	return &LobbyInfo{Data: data, Sessions: sessions}
}

// ListLobbies returns every live lobby in creation order
func (s *lobbyServiceImpl) ListLobbies(ctx context.Context) ([]*LobbyInfo, error) {
	lobbies := s.registry.Lobbies()
	result := make([]*LobbyInfo, 0, len(lobbies))
	for _, data := range lobbies {
		result = append(result, s.info(data))
	}
	return result, nil
}

// GetLobby retrieves one lobby
func (s *lobbyServiceImpl) GetLobby(ctx context.Context, lobbyID string) (*LobbyInfo, error) {
	data, ok := s.registry.GetLobby(lobbyID)
	if !ok {
		return nil, fmt.Errorf("lobby %q: %w", lobbyID, session.ErrLobbyNotFound)
	}
	return s.info(data), nil
}

// CreateLobby creates an empty lobby
func (s *lobbyServiceImpl) CreateLobby(ctx context.Context) (*LobbyInfo, error) {
	data, err := s.registry.CreateLobby()
	if err != nil {
		return nil, fmt.Errorf("failed to create lobby: %w", err)
	}
	return s.info(data), nil
}

// DeleteLobby deletes an empty lobby
func (s *lobbyServiceImpl) DeleteLobby(ctx context.Context, lobbyID string) error {
	if err := s.registry.DeleteLobby(lobbyID); err != nil {
		return fmt.Errorf("failed to delete lobby %q: %w", lobbyID, err)
	}
	return nil
}

// ForceMapPick makes a lobby pick its map without waiting
func (s *lobbyServiceImpl) ForceMapPick(ctx context.Context, lobbyID string) error {
	if err := s.registry.ForceMapPick(lobbyID); err != nil {
		return fmt.Errorf("lobby %q: %w", lobbyID, err)
	}
	return nil
}

// SendMessage sends an operator message into a lobby
func (s *lobbyServiceImpl) SendMessage(ctx context.Context, lobbyID string, req *MessageRequest) error {
	if req == nil || strings.TrimSpace(req.Text) == "" {
		return fmt.Errorf("%w: text is required", ErrInvalidRequest)
	}

	kind := req.Kind
	switch kind {
	case "":
		kind = session.MessagePlaintext
	case session.MessagePlaintext, session.MessageAction:
	default:
		return fmt.Errorf("%w: unknown message kind %q (use %s or %s)",
			ErrInvalidRequest, kind, session.MessagePlaintext, session.MessageAction)
	}

	if err := s.registry.SendLobbyMessage(lobbyID, kind, req.Text, req.Sender, req.Recipients); err != nil {
		return fmt.Errorf("failed to send message to lobby %q: %w", lobbyID, err)
	}
	return nil
}

// GetSessionLobby returns the lobby a session belongs to
func (s *lobbyServiceImpl) GetSessionLobby(ctx context.Context, sessionID string) (*LobbyInfo, error) {
	data, ok := s.registry.GetSessionLobby(sessionID)
	if !ok {
		return nil, fmt.Errorf("session %s: %w", sessionID, session.ErrNotInLobby)
	}
	return s.info(data), nil
}

// KickSession removes a session from its lobby. The session stays connected.
func (s *lobbyServiceImpl) KickSession(ctx context.Context, sessionID, reason string) error {
	if reason == "" {
		reason = "removed by operator"
	}
	if err := s.registry.RemoveFromLobby(sessionID, reason); err != nil {
		return fmt.Errorf("failed to remove session %s: %w", sessionID, err)
	}
	return nil
}

// ListResources returns every loaded or owned resource, sorted by id
func (s *lobbyServiceImpl) ListResources(ctx context.Context) ([]*ResourceInfo, error) {
	owners := s.registry.Resources()
	byID := make(map[resource.ID]*ResourceInfo)

	get := func(id resource.ID) *ResourceInfo {
		if info, ok := byID[id]; ok {
			return info
		}
		info := &ResourceInfo{Resource: id, Clients: []string{}}
		byID[id] = info
		return info
	}

	for _, id := range s.resources.Loaded() {
		info := get(id)
		info.Loaded = true
		if clients := s.resources.Clients(id); clients != nil {
			info.Clients = clients
		}
	}
	for id, owner := range owners {
		get(id).Owner = owner
	}

	result := make([]*ResourceInfo, 0, len(byID))
	for id, info := range byID {
		if round, ok := s.rounds.Round(id); ok {
			info.Round = &round
		}
		result = append(result, info)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Resource < result[j].Resource })
	return result, nil
}

// ReportResults finishes the round running on a resource
func (s *lobbyServiceImpl) ReportResults(ctx context.Context, id resource.ID, results []gameplay.Result) (*gameplay.Round, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: resource is required", ErrInvalidRequest)
	}
	if err := s.rounds.Finish(id, results); err != nil {
		return nil, fmt.Errorf("failed to report results for %s: %w", id, err)
	}

	round, ok := s.rounds.Round(id)
	if !ok {
		return nil, fmt.Errorf("round on %s vanished after reporting: %w", id, gameplay.ErrNoRound)
	}
	return &round, nil
}

// ListLevels returns all available levels
func (s *lobbyServiceImpl) ListLevels(ctx context.Context) ([]*config.LevelInfo, error) {
	return s.levels.ListLevels()
}

// GetLevel loads one level
func (s *lobbyServiceImpl) GetLevel(ctx context.Context, name string) (*config.Level, error) {
	level, err := s.levels.LoadLevel(name)
	if err != nil {
		return nil, fmt.Errorf("failed to load level %s: %w", name, err)
	}
	return level, nil
}

// SaveLevel stores a level in the catalog
func (s *lobbyServiceImpl) SaveLevel(ctx context.Context, name string, level *config.Level) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: level name is required", ErrInvalidRequest)
	}
	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: level name must not contain path separators", ErrInvalidRequest)
	}
	return s.levels.SaveLevel(name, level)
}

// SetLevelOverride forces every lobby onto one level, or clears the override
func (s *lobbyServiceImpl) SetLevelOverride(ctx context.Context, name string) error {
	if err := s.levels.SetOverride(name); err != nil {
		return fmt.Errorf("failed to set level override %q: %w", name, err)
	}
	return nil
}

// GetDashboard returns the server overview
func (s *lobbyServiceImpl) GetDashboard(ctx context.Context) (*DashboardInfo, error) {
	pending := s.registry.Pending()
	if pending == nil {
		pending = []session.PendingSession{}
	}
	return &DashboardInfo{
		Stats:    s.registry.Stats(),
		Pending:  pending,
		Override: s.levels.Override(),
		Text:     s.registry.Dashboard(),
	}, nil
}
