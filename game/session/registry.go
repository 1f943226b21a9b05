package session

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/wricardo/racelobby/game/lobby"
	"github.com/wricardo/racelobby/game/player"
	"github.com/wricardo/racelobby/game/resource"
)

const DefaultJoinWarn = 10 * time.Second

// Config holds the registry's policy
type Config struct {
	Policy lobby.Policy
	// StrictMatchmaking only places players into lobbies that are still
	// waiting for players.
	StrictMatchmaking bool
	// JoinWarn is how long a staged session may wait for its identities
	// before a warning is logged.
	JoinWarn time.Duration
}

// DefaultConfig returns the reference configuration
func DefaultConfig() Config {
	return Config{
		Policy:   lobby.DefaultPolicy(),
		JoinWarn: DefaultJoinWarn,
	}
}

// PlayerRegistry resolves sessions to the player identities they host
type PlayerRegistry interface {
	PlayersFor(session string) []string
	HasIdentity(id string) bool
	Forget(session string)
}

// Option configures a Registry
type Option func(*Registry)

// WithPublisher sets where lobby updates and messages are delivered
func WithPublisher(p Publisher) Option {
	return func(r *Registry) { r.publisher = p }
}

// WithLoader sets the resource loader
func WithLoader(l resource.Loader) Option {
	return func(r *Registry) { r.loader = l }
}

// WithPlayers sets the player identity registry
func WithPlayers(p PlayerRegistry) Option {
	return func(r *Registry) { r.players = p }
}

// WithGameplay sets the race collaborator handed to every lobby
func WithGameplay(g lobby.Gameplay) Option {
	return func(r *Registry) { r.gameplay = g }
}

// WithSelector sets the level selector handed to every lobby
func WithSelector(s lobby.ResourceSelector) Option {
	return func(r *Registry) { r.selector = s }
}

// WithMatchmaker replaces the first-fit matchmaker
func WithMatchmaker(m Matchmaker) Option {
	return func(r *Registry) { r.matchmaker = m }
}

// WithClock sets the time source used for ticks and snapshots
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// WithLogger sets the registry logger
func WithLogger(l *log.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// WithStateFactory sets how the initial state of a new lobby is built
func WithStateFactory(f lobby.StateFactory) Option {
	return func(r *Registry) { r.newState = f }
}

// WithNamePool sets the pool lobby identifiers are drawn from
func WithNamePool(p *lobby.NamePool) Option {
	return func(r *Registry) { r.names = p }
}

// Registry owns every live lobby, the session to lobby mapping and the
// resource ownership table. A single mutex serialises all mutations.
type Registry struct {
	cfg Config

	lobbies        map[string]*lobby.Lobby
	order          []string
	lobbySessions  map[string][]string
	sessionLobby   map[string]string
	sessionPlayers map[string][]string
	resources      *resource.Table

	staged    []*stagedSession
	connected map[string]time.Time

	publisher  Publisher
	loader     resource.Loader
	sub        *resource.Subscription
	players    PlayerRegistry
	gameplay   lobby.Gameplay
	selector   lobby.ResourceSelector
	matchmaker Matchmaker
	newState   lobby.StateFactory
	names      *lobby.NamePool
	logger     *log.Logger
	now        func() time.Time

	ticks uint64
	mu    sync.Mutex
}

// NewRegistry creates a registry and loads the antechamber resource
func NewRegistry(cfg Config, opts ...Option) *Registry {
	if cfg.Policy.Capacity <= 0 {
		cfg.Policy.Capacity = lobby.DefaultCapacity
	}
	if cfg.Policy.Antechamber == "" {
		cfg.Policy.Antechamber = lobby.DefaultAntechamber
	}
	if cfg.JoinWarn <= 0 {
		cfg.JoinWarn = DefaultJoinWarn
	}

	r := &Registry{
		cfg:            cfg,
		lobbies:        make(map[string]*lobby.Lobby),
		lobbySessions:  make(map[string][]string),
		sessionLobby:   make(map[string]string),
		sessionPlayers: make(map[string][]string),
		resources:      resource.NewTable(),
		connected:      make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.publisher == nil {
		r.publisher = nopPublisher{}
	}
	if r.loader == nil {
		r.loader = resource.NewMemoryLoader()
	}
	if r.players == nil {
		r.players = player.NewDirectory()
	}
	if r.matchmaker == nil {
		r.matchmaker = FirstFit{RequireAccepting: cfg.StrictMatchmaking}
	}
	if r.newState == nil {
		r.newState = lobby.NewWaitingForPlayers
	}
	if r.names == nil {
		r.names = lobby.DefaultNamePool()
	}
	if r.logger == nil {
		r.logger = log.Default()
	}
	if r.now == nil {
		r.now = time.Now
	}

	r.sub = r.loader.Subscribe()
	err := r.loader.Load(cfg.Policy.Antechamber, resource.LoadOptions{})
	if err != nil && !errors.Is(err, resource.ErrAlreadyLoaded) {
		r.logf("failed to load antechamber %s: %v", cfg.Policy.Antechamber, err)
	}

	return r
}

// Config returns the registry configuration
func (r *Registry) Config() Config {
	return r.cfg
}

// CreateLobby creates an empty lobby
func (r *Registry) CreateLobby() (lobby.Data, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, err := r.createLocked()
	if err != nil {
		return lobby.Data{}, err
	}
	return l.Data(r.now()), nil
}

func (r *Registry) createLocked() (*lobby.Lobby, error) {
	name := r.names.Next(func(n string) bool {
		_, exists := r.lobbies[n]
		return exists
	})
	if _, exists := r.lobbies[name]; exists {
		r.logf("name pool exhausted and fallback %q already in use", name)
		return nil, ErrNameCollision
	}
	if name == lobby.FallbackName {
		r.logf("name pool exhausted, using fallback name %q", name)
	}

	l := lobby.New(name, r.cfg.Policy, lobby.Deps{
		Host:     &host{r: r},
		Loader:   r.loader,
		Gameplay: r.gameplay,
		Selector: r.selector,
		Logger:   r.logger,
	}, r.newState(), r.now())

	r.lobbies[name] = l
	r.order = append(r.order, name)
	r.logf("created lobby %q", name)
	return l, nil
}

// DeleteLobby removes an empty lobby and releases its resources
func (r *Registry) DeleteLobby(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, exists := r.lobbies[id]
	if !exists {
		r.logf("can't delete lobby %q, it doesn't exist", id)
		return ErrLobbyNotFound
	}
	if l.PlayerCount() > 0 {
		r.logf("can't delete lobby %q, it still has %d players", id, l.PlayerCount())
		return ErrLobbyNotEmpty
	}

	r.deleteLocked(id)
	return nil
}

func (r *Registry) deleteLocked(id string) {
	l, exists := r.lobbies[id]
	if !exists {
		return
	}

	delete(r.lobbies, id)
	delete(r.lobbySessions, id)
	for i, name := range r.order {
		if name == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	l.Teardown()
	r.resources.ReleaseAll(id)
	r.logf("lobby %q deleted", id)
}

// AddToLobby matches the session's players to a lobby and joins them. It
// returns the id of the lobby they joined.
func (r *Registry) AddToLobby(session string, players []string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, err := r.addLocked(session, players, nil)
	if err != nil {
		return "", err
	}
	return l.ID(), nil
}

func (r *Registry) addLocked(session string, players []string, exclude map[string]bool) (*lobby.Lobby, error) {
	if _, mapped := r.sessionLobby[session]; mapped {
		return nil, ErrAlreadyInLobby
	}
	if len(players) == 0 {
		return nil, ErrNoPlayers
	}
	for _, id := range players {
		if !r.players.HasIdentity(id) {
			return nil, fmt.Errorf("%w: %s", ErrIdentityUnresolved, id)
		}
		for _, lobbyID := range r.order {
			if r.lobbies[lobbyID].Has(id) {
				return nil, fmt.Errorf("%w: %s is in %q", ErrPlayerInLobby, id, lobbyID)
			}
		}
	}

	target, created, err := r.bestFitLocked(len(players), exclude)
	if err != nil {
		return nil, err
	}

	if err := target.AddAll(players); err != nil {
		if created {
			r.deleteLocked(target.ID())
		}
		return nil, fmt.Errorf("failed to join %q: %w", target.ID(), err)
	}

	joined := make([]string, len(players))
	copy(joined, players)
	r.sessionLobby[session] = target.ID()
	r.sessionPlayers[session] = joined
	r.lobbySessions[target.ID()] = append(r.lobbySessions[target.ID()], session)

	if err := r.loader.AddClient(r.cfg.Policy.Antechamber, session); err != nil {
		r.logf("can't place %s in antechamber: %v", session, err)
	}

	r.pushUpdateLocked(target.ID(), lobby.ReasonPlayerJoin, "", nil)
	r.logf("added session %s %v to lobby %q", session, players, target.ID())
	return target, nil
}

// RemoveFromLobby takes every player of session out of its lobby. The lobby
// is deleted when the removal empties it.
func (r *Registry) RemoveFromLobby(session, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.removeLocked(session, reason)
}

func (r *Registry) removeLocked(session, reason string) error {
	lobbyID, mapped := r.sessionLobby[session]
	if !mapped {
		return ErrNotInLobby
	}

	players := r.sessionPlayers[session]
	delete(r.sessionLobby, session)
	delete(r.sessionPlayers, session)
	r.lobbySessions[lobbyID] = without(r.lobbySessions[lobbyID], session)

	l, exists := r.lobbies[lobbyID]
	if !exists {
		r.logf("session %s was mapped to missing lobby %q", session, lobbyID)
		return nil
	}

	hadPlayers := l.PlayerCount() > 0
	for _, id := range players {
		l.Remove(id)
	}

	if level := l.Level(); level != "" {
		r.loader.RemoveClient(level, session)
	}
	r.loader.RemoveClient(r.cfg.Policy.Antechamber, session)

	r.pushUpdateLocked(lobbyID, lobby.ReasonPlayerLeave, reason, []string{session})
	r.logf("removed session %s from lobby %q for reason %q", session, lobbyID, reason)

	if hadPlayers && l.PlayerCount() == 0 {
		r.deleteLocked(lobbyID)
	}
	return nil
}

// GetBestFitLobby returns the lobby a group of the given size would join,
// creating one when none qualifies.
func (r *Registry) GetBestFitLobby(players int) (lobby.Data, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, _, err := r.bestFitLocked(players, nil)
	if err != nil {
		return lobby.Data{}, err
	}
	return l.Data(r.now()), nil
}

// bestFitLocked asks the matchmaker for a lobby among those not excluded, in
// creation order, and creates one on a miss.
func (r *Registry) bestFitLocked(size int, exclude map[string]bool) (*lobby.Lobby, bool, error) {
	candidates := make([]*lobby.Lobby, 0, len(r.order))
	for _, id := range r.order {
		if exclude[id] {
			continue
		}
		candidates = append(candidates, r.lobbies[id])
	}

	if l := r.matchmaker.Pick(candidates, size); l != nil {
		return l, false, nil
	}
	l, err := r.createLocked()
	if err != nil {
		return nil, false, err
	}
	return l, true, nil
}

// GetLobby returns a snapshot of lobby id
func (r *Registry) GetLobby(id string) (lobby.Data, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, exists := r.lobbies[id]
	if !exists {
		return lobby.Data{}, false
	}
	return l.Data(r.now()), true
}

// GetSessionLobby returns a snapshot of the lobby session is in
func (r *Registry) GetSessionLobby(session string) (lobby.Data, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	lobbyID, mapped := r.sessionLobby[session]
	if !mapped {
		return lobby.Data{}, false
	}
	l, exists := r.lobbies[lobbyID]
	if !exists {
		return lobby.Data{}, false
	}
	return l.Data(r.now()), true
}

// HasLobby reports whether lobby id is live
func (r *Registry) HasLobby(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, exists := r.lobbies[id]
	return exists
}

// Lobbies returns snapshots of every live lobby in creation order
func (r *Registry) Lobbies() []lobby.Data {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	out := make([]lobby.Data, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.lobbies[id].Data(now))
	}
	return out
}

// Sessions returns the sessions mapped to lobby id in join order
func (r *Registry) Sessions(id string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return copyStrings(r.lobbySessions[id])
}

// ClaimResource gives lobbyID ownership of id. It returns false when another
// lobby owns it. Claiming for an unknown lobby is a fault.
func (r *Registry) ClaimResource(lobbyID string, id resource.ID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.lobbies[lobbyID]; !exists {
		return false, fmt.Errorf("%w: claim of %s for unknown lobby %q", ErrFault, id, lobbyID)
	}
	ok := r.resources.Claim(lobbyID, id)
	if !ok {
		owner, _ := r.resources.OwnerOf(id)
		r.logf("lobby %q can't claim %s, owned by %q", lobbyID, id, owner)
	}
	return ok, nil
}

// ReleaseResource drops lobbyID's claim on id
func (r *Registry) ReleaseResource(lobbyID string, id resource.ID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.lobbies[lobbyID]; !exists {
		return false, fmt.Errorf("%w: release of %s for unknown lobby %q", ErrFault, id, lobbyID)
	}
	return r.resources.Release(lobbyID, id), nil
}

// CanClaim reports whether lobbyID is live and could claim id
func (r *Registry) CanClaim(lobbyID string, id resource.ID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.lobbies[lobbyID]; !exists {
		return false
	}
	return r.resources.CanClaim(lobbyID, id)
}

// OwnerOf returns the lobby owning id
func (r *Registry) OwnerOf(id resource.ID) (string, bool) {
	return r.resources.OwnerOf(id)
}

// OwnedResources returns the resources lobbyID owns
func (r *Registry) OwnedResources(lobbyID string) []resource.ID {
	return r.resources.Owned(lobbyID)
}

// Resources returns a copy of the ownership table
func (r *Registry) Resources() map[resource.ID]string {
	return r.resources.Snapshot()
}

// ForceMapPick makes lobby id pick a map on its next ticks
func (r *Registry) ForceMapPick(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, exists := r.lobbies[id]
	if !exists {
		return ErrLobbyNotFound
	}
	l.RequestMapPick()
	r.logf("forced map pick for lobby %q", id)
	return nil
}

// Tick advances the registry by one server tick: the join sweep, then the
// resource events, then every lobby in creation order.
func (r *Registry) Tick() {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.ticks++

	r.sweepLocked(now)
	r.drainLocked()

	ids := copyStrings(r.order)
	for _, id := range ids {
		if l, exists := r.lobbies[id]; exists {
			l.Tick(now)
		}
	}
}

// Close detaches the registry from its loader
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sub != nil {
		r.sub.Close()
		r.sub = nil
	}
}

func (r *Registry) drainLocked() {
	if r.sub == nil {
		return
	}

	for _, ev := range r.sub.Drain() {
		switch ev.Kind {
		case resource.Registered:
			r.resourceRegisteredLocked(ev.Resource)
		case resource.Deregistered:
			r.resourceDeregisteredLocked(ev.Resource)
		}
	}
}

func (r *Registry) resourceRegisteredLocked(id resource.ID) {
	for _, lobbyID := range r.order {
		if r.lobbies[lobbyID].Scenes().Registered(id) {
			return
		}
	}

	if id == r.cfg.Policy.Antechamber {
		return
	}
	if _, owned := r.resources.OwnerOf(id); owned {
		return
	}

	r.logf("resource %s registered without a requesting lobby, unloading", id)
	if err := r.loader.Unload(id); err != nil && !errors.Is(err, resource.ErrNotRegistered) {
		r.logf("failed to unload orphaned resource %s: %v", id, err)
	}
}

func (r *Registry) resourceDeregisteredLocked(id resource.ID) {
	if owner, owned := r.resources.Forget(id); owned {
		r.logf("resource %s owned by %q deregistered", id, owner)
	}
	for _, lobbyID := range r.order {
		r.lobbies[lobbyID].Scenes().Deregistered(id)
	}
}

func (r *Registry) pushUpdateLocked(lobbyID string, reason lobby.UpdateReason, detail string, extra []string) {
	l, exists := r.lobbies[lobbyID]
	if !exists {
		r.logf("can't update lobby %q, it isn't registered", lobbyID)
		return
	}

	update := Update{
		LobbyID: lobbyID,
		Data:    l.Data(r.now()),
		Reason:  reason,
	}
	for _, session := range extra {
		leaving := update
		leaving.Detail = detail
		r.publisher.Publish(session, EventLobbyUpdate, leaving)
	}
	for _, session := range r.lobbySessions[lobbyID] {
		r.publisher.Publish(session, EventLobbyUpdate, update)
	}
}

func (r *Registry) logf(format string, args ...interface{}) {
	r.logger.Printf("[REGISTRY] "+format, args...)
}

func without(list []string, item string) []string {
	out := list[:0]
	for _, s := range list {
		if s != item {
			out = append(out, s)
		}
	}
	return out
}

func copyStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
