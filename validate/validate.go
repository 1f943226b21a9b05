// Command validate provides a small CLI that validates level JSON files in a
// level directory (../configs by default). It checks:
//   - JSON structure and required fields
//   - Resource naming: a level may not race on the antechamber resource
//   - Lap and racer counts
//   - Catalog consistency: no two levels with the same display name
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/wricardo/racelobby/game/config"
	"github.com/wricardo/racelobby/game/lobby"
)

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
	Level  *config.Level
}

// validateLevel loads and validates a single level JSON file
func validateLevel(filePath, antechamber string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Failed to read file: %v", err))
		return result
	}

	var level config.Level
	if err := json.Unmarshal(data, &level); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Invalid JSON: %v", err))
		return result
	}

	if err := config.ValidateLevel(&level); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
	}

	if strings.TrimSpace(level.Name) == "" {
		result.Valid = false
		result.Errors = append(result.Errors, "name is required")
	}

	if string(level.Resource) == antechamber {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("resource %s is the antechamber and cannot host a race", antechamber))
	}

	if level.MaxRacers == 1 {
		result.Valid = false
		result.Errors = append(result.Errors, "max_racers of 1 leaves no one to race against")
	}

	// Add informational data
	if result.Valid {
		result.Level = &level
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Name: %s", level.Name))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Resource: %s", level.Resource))
		if level.Laps > 0 {
			result.Errors = append(result.Errors, fmt.Sprintf("✓ Laps: %d", level.Laps))
		}
		if level.MaxRacers > 0 {
			result.Errors = append(result.Errors, fmt.Sprintf("✓ Max racers: %d", level.MaxRacers))
		}
	}

	return result
}

// validateCatalog reports display names used by more than one level.
// Sharing a resource is fine, two levels may describe the same map.
func validateCatalog(results []ValidationResult) []string {
	byName := make(map[string][]string)
	for _, r := range results {
		if r.Level == nil {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(r.Level.Name))
		byName[name] = append(byName[name], r.File)
	}

	var problems []string
	for name, files := range byName {
		if len(files) > 1 {
			sort.Strings(files)
			problems = append(problems, fmt.Sprintf("Duplicate level name %q in %s", name, strings.Join(files, ", ")))
		}
	}
	sort.Strings(problems)
	return problems
}

// resolveAntechamber returns the antechamber configured through the lobby
// settings, falling back to the built-in default when they do not load.
func resolveAntechamber(load func() (config.Settings, error)) string {
	settings, err := load()
	if err != nil {
		fmt.Printf("Using default antechamber %s: %v\n", lobby.DefaultAntechamber, err)
		return string(lobby.DefaultAntechamber)
	}
	return settings.Antechamber
}

// main scans the level directory for *.json files and validates each one,
// printing a concise report and exiting with non-zero status if any are invalid.
func main() {
	configDir := "../configs"
	if len(os.Args) > 1 {
		configDir = os.Args[1]
	}

	files, err := filepath.Glob(filepath.Join(configDir, "*.json"))
	if err != nil {
		fmt.Printf("Error finding level files: %v\n", err)
		os.Exit(1)
	}

	antechamber := resolveAntechamber(config.LoadSettings)

	allValid := true
	var results []ValidationResult
	for _, file := range files {
		result := validateLevel(file, antechamber)
		results = append(results, result)

		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, info := range result.Errors {
				fmt.Println("  " + info)
			}
		} else {
			fmt.Println("❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				fmt.Println("  ❌ " + err)
			}
		}
	}

	if problems := validateCatalog(results); len(problems) > 0 {
		allValid = false
		fmt.Printf("\n%s catalog\n", strings.Repeat("=", 20))
		for _, p := range problems {
			fmt.Println("  ❌ " + p)
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("✅ All levels are valid!")
	} else {
		fmt.Println("❌ Some levels have errors")
		os.Exit(1)
	}
}
