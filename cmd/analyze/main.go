// Command analyze prints quick, human-readable heuristics about the level
// catalog under the lobby settings read from the environment. It summarizes
// how many levels race on each resource, compares lobby capacity with the
// racers each map seats, and checks the configured level override.
package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/wricardo/racelobby/game/config"
	"github.com/wricardo/racelobby/game/resource"
)

// Analysis is the outcome of checking a catalog against lobby settings
type Analysis struct {
	Levels      int
	ByResource  map[resource.ID][]string
	Crowded     []string // levels seating fewer racers than a full lobby
	Fallback    resource.ID
	OverrideSet bool
	OverrideOK  bool
}

func main() {
	configDir := "configs"
	if len(os.Args) > 1 {
		configDir = os.Args[1]
	}

	settings, err := config.LoadSettings()
	if err != nil {
		fmt.Printf("Error reading lobby settings: %v\n", err)
		os.Exit(1)
	}

	manager, err := config.NewManager(configDir)
	if err != nil {
		fmt.Printf("Error opening level directory: %v\n", err)
		os.Exit(1)
	}

	levels, err := manager.ListLevels()
	if err != nil {
		fmt.Printf("Error listing levels: %v\n", err)
		os.Exit(1)
	}

	a := analyze(levels, settings, manager)
	printAnalysis(a, settings)
}

// analyze checks levels against the lobby settings
func analyze(levels []*config.LevelInfo, settings config.Settings, manager *config.Manager) Analysis {
	a := Analysis{
		Levels:     len(levels),
		ByResource: make(map[resource.ID][]string),
		Fallback:   manager.Fallback().Resource,
	}

	for _, info := range levels {
		a.ByResource[info.Resource] = append(a.ByResource[info.Resource], info.LevelID)

		level, err := manager.LoadLevel(info.LevelID)
		if err != nil {
			continue
		}
		if level.MaxRacers > 0 && level.MaxRacers < settings.Capacity {
			a.Crowded = append(a.Crowded, fmt.Sprintf("%s seats %d racers", info.LevelID, level.MaxRacers))
		}
	}

	if settings.OverrideLevel != "" {
		a.OverrideSet = true
		_, err := manager.LoadLevel(settings.OverrideLevel)
		a.OverrideOK = err == nil
	}
	return a
}

func printAnalysis(a Analysis, settings config.Settings) {
	fmt.Printf("\n=== Lobby settings ===\n")
	fmt.Printf("Capacity: %d\n", settings.Capacity)
	fmt.Printf("Player wait: %s, map pick: %s, round end: %s\n", settings.PlayerWait, settings.MapPickTime, settings.RoundEnd)
	fmt.Printf("Multiplayer: %t, antechamber: %s\n", settings.Multiplayer, settings.Antechamber)

	fmt.Printf("\n=== Level catalog ===\n")
	fmt.Printf("Levels: %d\n", a.Levels)
	if a.Levels == 0 {
		fmt.Printf("⚠️  WARNING: empty catalog, every lobby will race on %s\n", a.Fallback)
	}

	resources := make([]resource.ID, 0, len(a.ByResource))
	for id := range a.ByResource {
		resources = append(resources, id)
	}
	sort.Slice(resources, func(i, j int) bool { return resources[i] < resources[j] })
	for _, id := range resources {
		fmt.Printf("  %s: %v\n", id, a.ByResource[id])
	}

	if len(a.Crowded) > 0 {
		fmt.Printf("⚠️  WARNING: %d levels seat fewer racers than a full lobby of %d\n", len(a.Crowded), settings.Capacity)
		for _, c := range a.Crowded {
			fmt.Printf("   %s\n", c)
		}
	} else {
		fmt.Printf("✅ Every level seats a full lobby\n")
	}

	if a.OverrideSet {
		if a.OverrideOK {
			fmt.Printf("✅ Override level %s found\n", settings.OverrideLevel)
		} else {
			fmt.Printf("⚠️  CRITICAL: override level %s does not exist, the server will refuse to start\n", settings.OverrideLevel)
		}
	}
}
