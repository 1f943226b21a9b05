package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/wricardo/racelobby/api"
	"github.com/wricardo/racelobby/game/config"
	"github.com/wricardo/racelobby/transport/mcp"
)

func TestConstants(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}
	if AppName == "" {
		t.Error("AppName should not be empty")
	}

	expectedAppName := "Race Lobby Server"
	if AppName != expectedAppName {
		t.Errorf("Expected app name %s, got %s", expectedAppName, AppName)
	}
}

func TestNewApp(t *testing.T) {
	app := newApp()

	if app.Version != Version {
		t.Errorf("Expected version %s, got %s", Version, app.Version)
	}
	if app.Action == nil {
		t.Error("Root command should default to the server mode")
	}

	commands := map[string]bool{}
	for _, cmd := range app.Commands {
		commands[cmd.Name] = true
		for _, alias := range cmd.Aliases {
			commands[alias] = true
		}
	}
	for _, name := range []string{"server", "http", "stdio-mcp", "mcp-stdio", "mcp"} {
		if !commands[name] {
			t.Errorf("Expected command %q", name)
		}
	}

	flags := map[string]bool{}
	for _, f := range app.Flags {
		for _, name := range f.Names() {
			flags[name] = true
		}
	}
	for _, name := range []string{"host", "port", "config-dir", "debug", "ngrok", "ngrok-auth", "ngrok-domain"} {
		if !flags[name] {
			t.Errorf("Expected flag %q", name)
		}
	}
}

func testSettings(t *testing.T) config.Settings {
	t.Helper()
	settings, err := config.LoadSettingsFrom(map[string]string{})
	if err != nil {
		t.Fatalf("Failed to load default settings: %v", err)
	}
	return settings
}

func TestBuildStack(t *testing.T) {
	if _, err := os.Stat("configs"); os.IsNotExist(err) {
		t.Skip("Skipping test - configs directory not found")
	}

	s, err := buildStack("configs", testSettings(t))
	if err != nil {
		t.Fatalf("Failed to build stack: %v", err)
	}

	if s.registry == nil || s.hub == nil || s.service == nil {
		t.Fatal("Expected registry, hub and service to be initialized")
	}

	levels, err := s.service.ListLevels(context.Background())
	if err != nil {
		t.Fatalf("ListLevels failed: %v", err)
	}
	if len(levels) == 0 {
		t.Error("Expected bundled levels to be listed")
	}
}

func TestBuildStack_InvalidConfigDir(t *testing.T) {
	_, err := buildStack("/non/existent/path", testSettings(t))
	if err == nil {
		t.Error("Expected error for non-existent config directory")
	}
}

func TestBuildStack_UnknownOverride(t *testing.T) {
	settings := testSettings(t)
	settings.OverrideLevel = "nowhere"

	_, err := buildStack(t.TempDir(), settings)
	if err == nil {
		t.Error("Expected error for an override level that does not exist")
	}
}

func TestStack_StartAndStop(t *testing.T) {
	settings := testSettings(t)
	settings.TickInterval = time.Millisecond

	s, err := buildStack(t.TempDir(), settings)
	if err != nil {
		t.Fatalf("Failed to build stack: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	s.start(ctx, &wg)

	deadline := time.Now().Add(2 * time.Second)
	for s.registry.Stats().Ticks < 3 {
		if time.Now().After(deadline) {
			t.Fatal("Registry was not ticked")
		}
		time.Sleep(time.Millisecond)
	}

	cancel()
	wg.Wait()
}

type countingTicker struct {
	ticks atomic.Int32
}

func (c *countingTicker) Tick() { c.ticks.Add(1) }

func TestRunTicker(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ct := &countingTicker{}

	done := make(chan struct{})
	go func() {
		runTicker(ctx, ct, time.Millisecond)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for ct.ticks.Load() < 2 {
		if time.Now().After(deadline) {
			t.Fatal("Ticker did not tick")
		}
		time.Sleep(time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("runTicker did not return after cancel")
	}
}

func TestNewRouter(t *testing.T) {
	s, err := buildStack(t.TempDir(), testSettings(t))
	if err != nil {
		t.Fatalf("Failed to build stack: %v", err)
	}
	router := newRouter(api.NewServer(s.service, s.hub), mcp.NewClient("http://127.0.0.1:0"))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("Expected /health to be served by the API, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/mcp", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected GET /mcp to be rejected, got %d", w.Code)
	}
}

func TestBundledLevels(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("configs", "*.json"))
	if err != nil {
		t.Fatal(err)
	}
	if len(files) == 0 {
		t.Skip("Skipping test - no bundled levels")
	}

	manager, err := config.NewManager("configs")
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	levels, err := manager.ListLevels()
	if err != nil {
		t.Fatalf("ListLevels failed: %v", err)
	}
	if len(levels) != len(files) {
		t.Errorf("Expected every bundled level to be valid, got %d of %d", len(levels), len(files))
	}
}
