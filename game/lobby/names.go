package lobby

import (
	"math/rand"
	"time"
)

// FallbackName is handed out once the pool fails to produce a free name
const FallbackName = "Lobby"

var defaultNames = []string{
	"Apex", "Burnout", "Chicane", "Drift", "Esses", "Flatout", "Gravel",
	"Hairpin", "Ignition", "Jumpstart", "Kerb", "Launch", "Mirage", "Nitro",
	"Overtake", "Paddock", "Quickshift", "Redline", "Slipstream", "Turbo",
	"Underdog", "Vortex", "Wheelspin", "Xenon", "Yaw", "Zenith",
}

// NamePool draws human-readable lobby identifiers
type NamePool struct {
	names []string
	rnd   *rand.Rand
}

// NewNamePool creates a pool over names using src for randomness
func NewNamePool(names []string, src rand.Source) *NamePool {
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}
	pool := make([]string, len(names))
	copy(pool, names)
	return &NamePool{names: pool, rnd: rand.New(src)}
}

// DefaultNamePool returns a pool over the built-in racing names
func DefaultNamePool() *NamePool {
	return NewNamePool(defaultNames, nil)
}

// Size returns the number of names in the pool
func (p *NamePool) Size() int {
	return len(p.names)
}

// Next draws random names until one is not in use, giving up after as many
// draws as the pool has names. A free name missed by the draws is then found
// by scanning the pool in order. Only a fully used pool yields FallbackName,
// even if that name is already taken.
func (p *NamePool) Next(inUse func(string) bool) string {
	if inUse == nil {
		inUse = func(string) bool { return false }
	}
	for i := 0; i < len(p.names); i++ {
		name := p.names[p.rnd.Intn(len(p.names))]
		if !inUse(name) {
			return name
		}
	}
	for _, name := range p.names {
		if !inUse(name) {
			return name
		}
	}
	return FallbackName
}
