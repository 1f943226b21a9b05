package resource

import (
	"errors"
	"sync"
)

var (
	ErrNotRegistered = errors.New("resource not registered")
	ErrAlreadyLoaded = errors.New("resource already loaded")
	ErrEmptyResource = errors.New("resource id is empty")
)

// EventKind describes a resource lifecycle transition
type EventKind int

const (
	Registered EventKind = iota
	Deregistered
)

func (k EventKind) String() string {
	switch k {
	case Registered:
		return "registered"
	case Deregistered:
		return "deregistered"
	default:
		return "unknown"
	}
}

// Event is emitted by a Loader when a resource becomes available or goes away.
type Event struct {
	Kind     EventKind
	Resource ID
}

// LoadOptions controls how a loaded resource behaves
type LoadOptions struct {
	// UnloadWhenEmpty unloads the resource once its last client leaves.
	UnloadWhenEmpty bool
}

// Loader loads and unloads world-partition resources and tracks which sessions
// are inside each of them.
type Loader interface {
	Load(id ID, opts LoadOptions) error
	Unload(id ID) error
	IsRegistered(id ID) bool
	AddClient(id ID, session string) error
	RemoveClient(id ID, session string)
	Clients(id ID) []string
	Subscribe() *Subscription
}

// Subscription queues lifecycle events for one consumer.
type Subscription struct {
	mu     sync.Mutex
	queue  []Event
	closed bool
	detach func(*Subscription)
}

func newSubscription(detach func(*Subscription)) *Subscription {
	return &Subscription{detach: detach}
}

func (s *Subscription) publish(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.queue = append(s.queue, ev)
}

// Drain returns and clears every queued event, oldest first.
func (s *Subscription) Drain() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	events := s.queue
	s.queue = nil
	return events
}

// Pending returns the number of queued events
func (s *Subscription) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Close detaches the subscription from its loader. Further events are dropped.
func (s *Subscription) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.queue = nil
	detach := s.detach
	s.mu.Unlock()

	if detach != nil {
		detach(s)
	}
}

type instance struct {
	opts    LoadOptions
	clients []string
}

// MemoryLoader is an in-process Loader. Resources register immediately and the
// Registered event is queued for subscribers to pick up on their next drain.
type MemoryLoader struct {
	loaded map[ID]*instance
	subs   []*Subscription
	mu     sync.Mutex
}

// NewMemoryLoader creates an empty in-process loader
func NewMemoryLoader() *MemoryLoader {
	return &MemoryLoader{
		loaded: make(map[ID]*instance),
	}
}

// Load registers id
func (m *MemoryLoader) Load(id ID, opts LoadOptions) error {
	if id == "" {
		return ErrEmptyResource
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.loaded[id]; exists {
		return ErrAlreadyLoaded
	}
	m.loaded[id] = &instance{opts: opts}
	m.emit(Event{Kind: Registered, Resource: id})
	return nil
}

// Unload deregisters id and drops its clients
func (m *MemoryLoader) Unload(id ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.loaded[id]; !exists {
		return ErrNotRegistered
	}
	delete(m.loaded, id)
	m.emit(Event{Kind: Deregistered, Resource: id})
	return nil
}

// IsRegistered reports whether id is currently loaded
func (m *MemoryLoader) IsRegistered(id ID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, exists := m.loaded[id]
	return exists
}

// AddClient places session inside id
func (m *MemoryLoader) AddClient(id ID, session string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	inst, exists := m.loaded[id]
	if !exists {
		return ErrNotRegistered
	}
	for _, c := range inst.clients {
		if c == session {
			return nil
		}
	}
	inst.clients = append(inst.clients, session)
	return nil
}

// RemoveClient takes session out of id. Resources loaded with UnloadWhenEmpty
// are unloaded when their last client leaves.
func (m *MemoryLoader) RemoveClient(id ID, session string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	inst, exists := m.loaded[id]
	if !exists {
		return
	}

	removed := false
	for i, c := range inst.clients {
		if c == session {
			inst.clients = append(inst.clients[:i], inst.clients[i+1:]...)
			removed = true
			break
		}
	}

	if removed && len(inst.clients) == 0 && inst.opts.UnloadWhenEmpty {
		delete(m.loaded, id)
		m.emit(Event{Kind: Deregistered, Resource: id})
	}
}

// Clients returns the sessions inside id in arrival order
func (m *MemoryLoader) Clients(id ID) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	inst, exists := m.loaded[id]
	if !exists {
		return nil
	}
	out := make([]string, len(inst.clients))
	copy(out, inst.clients)
	return out
}

// Loaded returns the ids of all loaded resources
func (m *MemoryLoader) Loaded() []ID {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]ID, 0, len(m.loaded))
	for id := range m.loaded {
		ids = append(ids, id)
	}
	sortIDs(ids)
	return ids
}

// Subscribe registers a new event consumer
func (m *MemoryLoader) Subscribe() *Subscription {
	sub := newSubscription(m.unsubscribe)

	m.mu.Lock()
	m.subs = append(m.subs, sub)
	m.mu.Unlock()

	return sub
}

// Subscribers returns the number of attached subscriptions
func (m *MemoryLoader) Subscribers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}

func (m *MemoryLoader) unsubscribe(sub *Subscription) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, s := range m.subs {
		if s == sub {
			m.subs = append(m.subs[:i], m.subs[i+1:]...)
			return
		}
	}
}

// emit must be called with m.mu held
func (m *MemoryLoader) emit(ev Event) {
	for _, sub := range m.subs {
		sub.publish(ev)
	}
}
