// Package config provides level catalog and settings management for the
// race lobby server.
//
// The config package handles:
//   - Loading race levels from JSON files
//   - Level validation and discovery
//   - Map selection for lobbies, random or forced by an override level
//   - Reading the lobby policy from LOBBY_* environment variables
//
// Level Format:
//
// Each level is a JSON file in the levels directory naming the world
// partition resource the race is held on:
//
//	{
//	  "name": "Canyon Run",
//	  "description": "Tight switchbacks",
//	  "resource": "Map_02",
//	  "laps": 3
//	}
//
// When the directory holds no valid level, a built-in level on Map_01 is
// used so lobbies can always race.
//
// Usage:
//
//	settings, err := config.LoadSettings()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	levels, err := config.NewManager("levels")
//	if err != nil {
//		log.Fatal(err)
//	}
//	levels.SetOverride(settings.OverrideLevel)
//
//	// levels implements lobby.ResourceSelector
//	id, err := levels.SelectResource()
package config
