package resource

import (
	"errors"
	"reflect"
	"testing"
)

func TestMemoryLoader_LoadEmitsRegistered(t *testing.T) {
	loader := NewMemoryLoader()
	sub := loader.Subscribe()
	defer sub.Close()

	if err := loader.Load("Map_01", LoadOptions{}); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if !loader.IsRegistered("Map_01") {
		t.Error("Map_01 should be registered")
	}

	events := sub.Drain()
	want := []Event{{Kind: Registered, Resource: "Map_01"}}
	if !reflect.DeepEqual(events, want) {
		t.Errorf("Drain() = %v, want %v", events, want)
	}

	if sub.Pending() != 0 {
		t.Error("Drain should empty the queue")
	}
}

func TestMemoryLoader_LoadErrors(t *testing.T) {
	loader := NewMemoryLoader()

	if err := loader.Load("", LoadOptions{}); !errors.Is(err, ErrEmptyResource) {
		t.Errorf("Expected ErrEmptyResource, got %v", err)
	}

	loader.Load("Map_01", LoadOptions{})
	if err := loader.Load("Map_01", LoadOptions{}); !errors.Is(err, ErrAlreadyLoaded) {
		t.Errorf("Expected ErrAlreadyLoaded, got %v", err)
	}

	if err := loader.Unload("Map_02"); !errors.Is(err, ErrNotRegistered) {
		t.Errorf("Expected ErrNotRegistered, got %v", err)
	}

	if err := loader.AddClient("Map_02", "s1"); !errors.Is(err, ErrNotRegistered) {
		t.Errorf("Expected ErrNotRegistered, got %v", err)
	}
}

func TestMemoryLoader_UnloadWhenEmpty(t *testing.T) {
	loader := NewMemoryLoader()
	sub := loader.Subscribe()
	defer sub.Close()

	loader.Load("Map_01", LoadOptions{UnloadWhenEmpty: true})
	loader.AddClient("Map_01", "s1")
	loader.AddClient("Map_01", "s2")
	loader.AddClient("Map_01", "s1")

	if got := loader.Clients("Map_01"); !reflect.DeepEqual(got, []string{"s1", "s2"}) {
		t.Errorf("Clients() = %v", got)
	}

	loader.RemoveClient("Map_01", "s1")
	if !loader.IsRegistered("Map_01") {
		t.Fatal("Map_01 should stay loaded while s2 is inside")
	}

	loader.RemoveClient("Map_01", "s2")
	if loader.IsRegistered("Map_01") {
		t.Error("Map_01 should unload after its last client leaves")
	}

	events := sub.Drain()
	want := []Event{
		{Kind: Registered, Resource: "Map_01"},
		{Kind: Deregistered, Resource: "Map_01"},
	}
	if !reflect.DeepEqual(events, want) {
		t.Errorf("Drain() = %v, want %v", events, want)
	}
}

func TestMemoryLoader_PersistentResourceStaysLoaded(t *testing.T) {
	loader := NewMemoryLoader()
	loader.Load("MenuLobby", LoadOptions{})
	loader.AddClient("MenuLobby", "s1")
	loader.RemoveClient("MenuLobby", "s1")

	if !loader.IsRegistered("MenuLobby") {
		t.Error("Resources loaded without UnloadWhenEmpty should stay loaded")
	}
	if len(loader.Clients("MenuLobby")) != 0 {
		t.Error("Expected no clients")
	}
}

func TestSubscription_CloseDetaches(t *testing.T) {
	loader := NewMemoryLoader()
	first := loader.Subscribe()
	second := loader.Subscribe()

	if loader.Subscribers() != 2 {
		t.Fatalf("Expected 2 subscribers, got %d", loader.Subscribers())
	}

	first.Close()
	first.Close()

	if loader.Subscribers() != 1 {
		t.Errorf("Expected 1 subscriber after close, got %d", loader.Subscribers())
	}

	loader.Load("Map_01", LoadOptions{})

	if len(first.Drain()) != 0 {
		t.Error("Closed subscription should not receive events")
	}
	if len(second.Drain()) != 1 {
		t.Error("Open subscription should receive the event")
	}
}

func TestEventKind_String(t *testing.T) {
	if Registered.String() != "registered" || Deregistered.String() != "deregistered" {
		t.Error("Unexpected EventKind strings")
	}
	if EventKind(42).String() != "unknown" {
		t.Error("Unknown kinds should print as unknown")
	}
}
