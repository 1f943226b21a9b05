package session

import (
	"fmt"
	"strings"
)

// Stats summarises the registry
type Stats struct {
	Clients   int    `json:"clients"`
	Staged    int    `json:"staged"`
	Sessions  int    `json:"sessions"`
	Lobbies   int    `json:"lobbies"`
	Players   int    `json:"players"`
	Resources int    `json:"resources"`
	Ticks     uint64 `json:"ticks"`
}

// Stats returns current counters
func (r *Registry) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	players := 0
	for _, l := range r.lobbies {
		players += l.PlayerCount()
	}
	return Stats{
		Clients:   len(r.connected),
		Staged:    len(r.staged),
		Sessions:  len(r.sessionLobby),
		Lobbies:   len(r.lobbies),
		Players:   players,
		Resources: r.resources.Len(),
		Ticks:     r.ticks,
	}
}

// Dashboard renders a plain text overview of clients, lobbies and rosters
func (r *Registry) Dashboard() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	var b strings.Builder

	fmt.Fprintf(&b, "Clients: %d\n", len(r.connected))
	if len(r.staged) > 0 {
		fmt.Fprintf(&b, "Joining: %d\n", len(r.staged))
		for _, s := range r.staged {
			fmt.Fprintf(&b, "  %s (%.0fs)\n", s.session, now.Sub(s.since).Seconds())
		}
	}
	fmt.Fprintf(&b, "Lobbies: %d\n", len(r.lobbies))
	for _, id := range r.order {
		l := r.lobbies[id]
		fmt.Fprintf(&b, "Lobby %q [%s %.0fs]", id, l.StateName(), l.TimeInState(now).Seconds())
		if level := l.Level(); level != "" {
			fmt.Fprintf(&b, " on %s", level)
		}
		b.WriteString("\n")
		fmt.Fprintf(&b, "  Players: %d/%d\n", l.PlayerCount(), l.Policy().Capacity)
		for _, p := range l.Roster() {
			fmt.Fprintf(&b, "    %s (%d pts)\n", p, l.Points(p))
		}
	}
	return b.String()
}
