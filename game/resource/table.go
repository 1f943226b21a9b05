package resource

import (
	"sort"
	"sync"
)

// ID identifies a loadable world-partition resource, e.g. "Map_01".
type ID string

// Table records which lobby owns each resource.
type Table struct {
	owners map[ID]string
	mu     sync.RWMutex
}

// NewTable creates an empty ownership table
func NewTable() *Table {
	return &Table{
		owners: make(map[ID]string),
	}
}

// Claim gives ownership of id to owner. It returns true when owner holds the
// resource afterwards, false when another owner already has it.
func (t *Table) Claim(owner string, id ID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if current, ok := t.owners[id]; ok {
		return current == owner
	}
	t.owners[id] = owner
	return true
}

// Release drops owner's claim on id. It returns false when owner did not hold it.
func (t *Table) Release(owner string, id ID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if current, ok := t.owners[id]; !ok || current != owner {
		return false
	}
	delete(t.owners, id)
	return true
}

// Forget removes id regardless of owner and returns the previous owner.
func (t *Table) Forget(id ID) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	owner, ok := t.owners[id]
	if ok {
		delete(t.owners, id)
	}
	return owner, ok
}

// ReleaseAll drops every resource held by owner and returns them sorted
func (t *Table) ReleaseAll(owner string) []ID {
	t.mu.Lock()
	defer t.mu.Unlock()

	var released []ID
	for id, current := range t.owners {
		if current == owner {
			delete(t.owners, id)
			released = append(released, id)
		}
	}
	sortIDs(released)
	return released
}

// CanClaim reports whether owner could claim id right now
func (t *Table) CanClaim(owner string, id ID) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	current, ok := t.owners[id]
	return !ok || current == owner
}

// OwnerOf returns the owner of id, if any
func (t *Table) OwnerOf(id ID) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	owner, ok := t.owners[id]
	return owner, ok
}

// Owned returns the resources held by owner, sorted
func (t *Table) Owned(owner string) []ID {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var owned []ID
	for id, current := range t.owners {
		if current == owner {
			owned = append(owned, id)
		}
	}
	sortIDs(owned)
	return owned
}

// Snapshot returns a copy of the whole table
func (t *Table) Snapshot() map[ID]string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[ID]string, len(t.owners))
	for id, owner := range t.owners {
		out[id] = owner
	}
	return out
}

// Len returns the number of owned resources
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.owners)
}

func sortIDs(ids []ID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
