package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/AntonioRosa312/312-SuperSeniors/internal/dependencies/clock"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/model"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/storage"
)

// RegistryInterface defines the operations other components use to read and
// request changes to player session state
type RegistryInterface interface {
	Register(ctx context.Context, connID model.ConnectionID, player *model.Player) (model.PlayerSessionState, error)
	Unregister(ctx context.Context, connID model.ConnectionID) (model.PlayerSessionState, error)
	Mutate(ctx context.Context, playerID model.PlayerID, fn MutateFunc) (model.PlayerSessionState, error)
	Ensure(ctx context.Context, player *model.Player) (model.PlayerSessionState, error)
	Get(playerID model.PlayerID) (model.PlayerSessionState, bool)
	ConnectionCount() int
	SnapshotAll(filter Filter) []model.PlayerSessionState
}

// MutateFunc applies a state transition. Returning an error discards the change.
type MutateFunc func(state *model.PlayerSessionState) error

// Filter selects states for SnapshotAll. A nil filter selects everything.
type Filter func(state model.PlayerSessionState) bool

// ConnectedOnly selects players with at least one live connection
func ConnectedOnly(state model.PlayerSessionState) bool {
	return state.Connected
}

// WithBestScore selects players that have completed a round
func WithBestScore(state model.PlayerSessionState) bool {
	return state.BestScore > 0
}

// entry holds one player's state and live connections.
// Mutations on one player serialize on its own mutex.
type entry struct {
	mu    sync.Mutex
	state model.PlayerSessionState
	conns map[model.ConnectionID]struct{}
	seq   uint64
}

// Registry owns every PlayerSessionState and connection binding in the process
type Registry struct {
	store  storage.Storage
	clock  clock.Clock
	logger *slog.Logger

	mu      sync.RWMutex
	entries map[model.PlayerID]*entry
	conns   map[model.ConnectionID]model.PlayerID
	nextSeq uint64
}

// Ensure Registry implements the interface
var _ RegistryInterface = (*Registry)(nil)

// New creates an empty Registry backed by store
func New(store storage.Storage, clock clock.Clock, logger *slog.Logger) *Registry {
	return &Registry{
		store:   store,
		clock:   clock,
		logger:  logger.With(slog.String("component", "registry")),
		entries: make(map[model.PlayerID]*entry),
		conns:   make(map[model.ConnectionID]model.PlayerID),
	}
}

// Load warms the registry with every persisted state. Loaded players are
// marked disconnected until they open a connection.
func (r *Registry) Load(ctx context.Context) error {
	states, err := r.store.ListSessionStates(ctx)
	if err != nil {
		return fmt.Errorf("list session states: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	loaded := 0
	for _, s := range states {
		if _, ok := r.entries[s.PlayerID]; ok {
			continue
		}
		state := s.Clone()
		state.Connected = false
		r.entries[s.PlayerID] = r.newEntryLocked(state)
		loaded++
	}

	r.logger.Info("session states loaded", slog.Int("count", loaded))
	return nil
}

// Register binds a connection to a player and marks the player connected.
// The first time a player is seen its state is loaded from the store, or
// created with defaults if none was ever saved.
func (r *Registry) Register(ctx context.Context, connID model.ConnectionID, player *model.Player) (model.PlayerSessionState, error) {
	e, err := r.entryFor(ctx, player.ID, player)
	if err != nil {
		return model.PlayerSessionState{}, err
	}

	r.mu.Lock()
	r.conns[connID] = player.ID
	r.mu.Unlock()

	e.mu.Lock()
	e.conns[connID] = struct{}{}
	e.state.Connected = true
	if player.Username != "" {
		e.state.Username = player.Username
	}
	e.state.UpdatedAt = r.clock.Now()
	snapshot := e.state.Clone()
	connCount := len(e.conns)
	r.save(ctx, &snapshot)
	e.mu.Unlock()

	r.logger.Info("connection registered",
		slog.String("connection_id", string(connID)),
		slog.String("player_id", string(player.ID)),
		slog.Int("player_connections", connCount))

	return snapshot, nil
}

// Unregister removes a connection binding. The player stays connected while
// any other connection remains. State is never deleted.
func (r *Registry) Unregister(ctx context.Context, connID model.ConnectionID) (model.PlayerSessionState, error) {
	r.mu.Lock()
	playerID, ok := r.conns[connID]
	if ok {
		delete(r.conns, connID)
	}
	e := r.entries[playerID]
	r.mu.Unlock()

	if !ok || e == nil {
		return model.PlayerSessionState{}, fmt.Errorf("%w: %s", model.ErrNotFound, connID)
	}

	e.mu.Lock()
	delete(e.conns, connID)
	e.state.Connected = len(e.conns) > 0
	e.state.UpdatedAt = r.clock.Now()
	snapshot := e.state.Clone()
	r.save(ctx, &snapshot)
	e.mu.Unlock()

	r.logger.Info("connection unregistered",
		slog.String("connection_id", string(connID)),
		slog.String("player_id", string(playerID)),
		slog.Bool("still_connected", snapshot.Connected))

	return snapshot, nil
}

// Mutate applies fn to the player's state atomically with respect to other
// mutations of the same player, then persists the result. The connected flag
// is owned by the registry and cannot be changed by fn.
func (r *Registry) Mutate(ctx context.Context, playerID model.PlayerID, fn MutateFunc) (model.PlayerSessionState, error) {
	e, err := r.entryFor(ctx, playerID, nil)
	if err != nil {
		return model.PlayerSessionState{}, err
	}

	e.mu.Lock()
	next := e.state.Clone()
	if err := fn(&next); err != nil {
		e.mu.Unlock()
		return model.PlayerSessionState{}, err
	}
	if !model.ValidHole(next.CurrentHole) {
		e.mu.Unlock()
		return model.PlayerSessionState{}, fmt.Errorf("%w: %d", model.ErrInvalidHole, next.CurrentHole)
	}
	next.PlayerID = e.state.PlayerID
	next.Connected = len(e.conns) > 0
	next.UpdatedAt = r.clock.Now()
	e.state = next
	snapshot := e.state.Clone()
	r.save(ctx, &snapshot)
	e.mu.Unlock()

	return snapshot, nil
}

// Ensure returns the player's state, creating and persisting defaults if the
// player has never been seen. No connection is bound.
func (r *Registry) Ensure(ctx context.Context, player *model.Player) (model.PlayerSessionState, error) {
	e, err := r.entryFor(ctx, player.ID, player)
	if err != nil {
		return model.PlayerSessionState{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone(), nil
}

// Get returns a copy of the player's in-memory state
func (r *Registry) Get(playerID model.PlayerID) (model.PlayerSessionState, bool) {
	r.mu.RLock()
	e, ok := r.entries[playerID]
	r.mu.RUnlock()
	if !ok {
		return model.PlayerSessionState{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone(), true
}

// ConnectionCount returns the number of bound connections
func (r *Registry) ConnectionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// SnapshotAll returns copies of every matching state ordered by the time
// each player was first seen. Each state is read under its own lock, so
// the result may interleave concurrent updates of different players.
func (r *Registry) SnapshotAll(filter Filter) []model.PlayerSessionState {
	r.mu.RLock()
	entries := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })

	states := make([]model.PlayerSessionState, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		state := e.state.Clone()
		e.mu.Unlock()

		if filter == nil || filter(state) {
			states = append(states, state)
		}
	}
	return states
}

// entryFor returns the in-memory entry for a player, loading it from the
// store on first sight. When player is nil an unknown player is an error;
// otherwise defaults are created for it.
func (r *Registry) entryFor(ctx context.Context, playerID model.PlayerID, player *model.Player) (*entry, error) {
	r.mu.RLock()
	e, ok := r.entries[playerID]
	r.mu.RUnlock()
	if ok {
		return e, nil
	}

	// Store I/O happens outside the registry lock
	state, err := r.store.GetSessionState(ctx, playerID)
	created := false
	switch {
	case err == nil:
		state.Connected = false
	case errors.Is(err, model.ErrSessionStateNotFound):
		if player == nil {
			return nil, fmt.Errorf("%w: %s", model.ErrPlayerNotFound, playerID)
		}
		state = model.NewPlayerSessionState(player, r.clock.Now())
		created = true
	default:
		return nil, fmt.Errorf("load session state %s: %w", playerID, err)
	}

	r.mu.Lock()
	if existing, ok := r.entries[playerID]; ok {
		// Lost a race with another first sight of the same player
		r.mu.Unlock()
		return existing, nil
	}
	e = r.newEntryLocked(state.Clone())
	if !created {
		r.entries[playerID] = e
		r.mu.Unlock()
		return e, nil
	}

	// Hold the new entry until its defaults are persisted so a concurrent
	// Register cannot have its save overwritten
	e.mu.Lock()
	r.entries[playerID] = e
	r.mu.Unlock()
	r.save(ctx, state)
	e.mu.Unlock()

	r.logger.Info("session state created", slog.String("player_id", string(playerID)))
	return e, nil
}

// newEntryLocked allocates an entry; r.mu must be held for writing
func (r *Registry) newEntryLocked(state model.PlayerSessionState) *entry {
	r.nextSeq++
	return &entry{
		state: state,
		conns: make(map[model.ConnectionID]struct{}),
		seq:   r.nextSeq,
	}
}

// save persists a state while the entry lock is held so the store sees
// writes of one player in order. Failures are logged and in-memory state
// stays authoritative for the life of the process.
func (r *Registry) save(ctx context.Context, state *model.PlayerSessionState) {
	if err := r.store.SaveSessionState(ctx, state); err != nil {
		r.logger.Error("failed to save session state",
			slog.String("player_id", string(state.PlayerID)),
			slog.String("error", err.Error()))
	}
}
