package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/wricardo/racelobby/game/resource"
)

var (
	ErrLevelNotFound = errors.New("level not found")
	ErrInvalidLevel  = errors.New("invalid level")
)

// Level describes a raceable map and the world-partition resource it loads
type Level struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Resource    resource.ID `json:"resource"`
	Laps        int         `json:"laps,omitempty"`
	MaxRacers   int         `json:"max_racers,omitempty"`
}

// LevelInfo provides information about a level file
type LevelInfo struct {
	Filename    string      `json:"filename"`
	LevelID     string      `json:"level_id"` // The identifier to use with LoadLevel
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Resource    resource.ID `json:"resource"`
	Laps        int         `json:"laps,omitempty"`
}

// ValidateLevel checks that a level can be loaded
func ValidateLevel(level *Level) error {
	if level == nil {
		return errors.New("level is nil")
	}
	if strings.TrimSpace(string(level.Resource)) == "" {
		return errors.New("resource is required")
	}
	if level.Laps < 0 {
		return errors.New("laps must not be negative")
	}
	if level.MaxRacers < 0 {
		return errors.New("max_racers must not be negative")
	}
	return nil
}

// Manager handles level catalog loading and caching
type Manager struct {
	configDir string
	fallback  *Level
	levels    map[string]*Level
	override  string
	rnd       *rand.Rand
	mu        sync.RWMutex
}

// NewManager creates a new level catalog over configDir
func NewManager(configDir string) (*Manager, error) {
	// Ensure config directory exists
	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("config directory does not exist: %s", configDir)
	}

	return &Manager{
		configDir: configDir,
		fallback:  createMinimalLevel(),
		levels:    make(map[string]*Level),
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// LoadLevel loads a level by name
func (m *Manager) LoadLevel(name string) (*Level, error) {
	m.mu.RLock()
	// Check cache first
	if level, exists := m.levels[name]; exists {
		m.mu.RUnlock()
		return level, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if level, exists := m.levels[name]; exists {
		return level, nil
	}

	data, err := os.ReadFile(m.levelPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrLevelNotFound
		}
		return nil, fmt.Errorf("failed to read level file: %w", err)
	}

	var level Level
	if err := json.Unmarshal(data, &level); err != nil {
		return nil, fmt.Errorf("failed to parse level: %w", err)
	}
	if err := ValidateLevel(&level); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLevel, err)
	}

	m.levels[name] = &level
	return &level, nil
}

// ListLevels returns information about all valid level files, sorted by id
func (m *Manager) ListLevels() ([]*LevelInfo, error) {
	entries, err := os.ReadDir(m.configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	var levels []*LevelInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		name := strings.TrimSuffix(entry.Name(), ".json")
		level, err := m.LoadLevel(name)
		if err != nil {
			// Skip invalid levels
			continue
		}

		levels = append(levels, &LevelInfo{
			Filename:    entry.Name(),
			LevelID:     name,
			Name:        level.Name,
			Description: level.Description,
			Resource:    level.Resource,
			Laps:        level.Laps,
		})
	}

	sort.Slice(levels, func(i, j int) bool { return levels[i].LevelID < levels[j].LevelID })
	return levels, nil
}

// SaveLevel writes a level to disk and caches it
func (m *Manager) SaveLevel(name string, level *Level) error {
	if err := ValidateLevel(level); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidLevel, err)
	}

	data, err := json.MarshalIndent(level, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal level: %w", err)
	}

	if err := os.WriteFile(m.levelPath(name), data, 0644); err != nil {
		return fmt.Errorf("failed to write level file: %w", err)
	}

	m.mu.Lock()
	m.levels[strings.TrimSuffix(name, ".json")] = level
	m.mu.Unlock()

	return nil
}

// SetOverride makes every lobby race on the named level. An empty name
// restores random selection.
func (m *Manager) SetOverride(name string) error {
	if name != "" {
		if _, err := m.LoadLevel(name); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.override = name
	return nil
}

// Override returns the level every lobby is forced onto, if any
func (m *Manager) Override() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.override
}

// SelectResource picks the resource for a lobby's next round. The override
// level wins; otherwise a random valid level is used, falling back to a
// built-in map when the catalog is empty.
func (m *Manager) SelectResource() (resource.ID, error) {
	if override := m.Override(); override != "" {
		level, err := m.LoadLevel(override)
		if err != nil {
			return "", fmt.Errorf("override level %s: %w", override, err)
		}
		return level.Resource, nil
	}

	levels, err := m.ListLevels()
	if err != nil {
		return "", err
	}
	if len(levels) == 0 {
		return m.fallback.Resource, nil
	}

	m.mu.Lock()
	pick := levels[m.rnd.Intn(len(levels))]
	m.mu.Unlock()
	return pick.Resource, nil
}

// Fallback returns the built-in level used when the catalog is empty
func (m *Manager) Fallback() *Level {
	return m.fallback
}

// RefreshCache drops every cached level so the next load reads from disk
func (m *Manager) RefreshCache() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.levels = make(map[string]*Level)
}

func (m *Manager) levelPath(name string) string {
	filename := name
	if !strings.HasSuffix(filename, ".json") {
		filename = name + ".json"
	}
	return filepath.Join(m.configDir, filename)
}

// createMinimalLevel creates the built-in level
func createMinimalLevel() *Level {
	return &Level{
		Name:        "default",
		Description: "Built-in circuit used when no level files are present",
		Resource:    "Map_01",
		Laps:        3,
	}
}
