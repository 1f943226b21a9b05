// Package player keeps the in-process mapping between client sessions and
// the player identities they host.
//
// A session may host several players (split screen). Identities arrive
// asynchronously after the session connects, so the directory answers
// "does this player have identity data yet" for the lifecycle tracker.
package player

import (
	"errors"
	"sync"
)

var (
	ErrEmptyPlayerID = errors.New("player id is empty")
	ErrPlayerTaken   = errors.New("player id registered by another session")
)

// Identity is the resolvable profile data of one player
type Identity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Directory maps sessions to their player identities
type Directory struct {
	bySession map[string][]string
	byPlayer  map[string]Identity
	owner     map[string]string
	mu        sync.RWMutex
}

// NewDirectory creates an empty directory
func NewDirectory() *Directory {
	return &Directory{
		bySession: make(map[string][]string),
		byPlayer:  make(map[string]Identity),
		owner:     make(map[string]string),
	}
}

// Register records identities for session. Re-registering an identity the
// session already hosts updates its data.
func (d *Directory) Register(session string, identities ...Identity) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, ident := range identities {
		if ident.ID == "" {
			return ErrEmptyPlayerID
		}
		if owner, ok := d.owner[ident.ID]; ok && owner != session {
			return ErrPlayerTaken
		}
	}

	for _, ident := range identities {
		if _, ok := d.owner[ident.ID]; !ok {
			d.bySession[session] = append(d.bySession[session], ident.ID)
			d.owner[ident.ID] = session
		}
		d.byPlayer[ident.ID] = ident
	}
	return nil
}

// PlayersFor returns the player ids hosted by session in registration order
func (d *Directory) PlayersFor(session string) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ids := d.bySession[session]
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

// SessionOf returns the session hosting id
func (d *Directory) SessionOf(id string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	session, ok := d.owner[id]
	return session, ok
}

// HasIdentity reports whether id has resolvable identity data
func (d *Directory) HasIdentity(id string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.byPlayer[id]
	return ok
}

// Identity returns the identity data for id
func (d *Directory) Identity(id string) (Identity, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ident, ok := d.byPlayer[id]
	return ident, ok
}

// Forget drops session and every identity it hosted
func (d *Directory) Forget(session string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, id := range d.bySession[session] {
		delete(d.byPlayer, id)
		delete(d.owner, id)
	}
	delete(d.bySession, session)
}

// Count returns the number of known players
func (d *Directory) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.byPlayer)
}
