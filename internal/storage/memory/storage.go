package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/AntonioRosa312/312-SuperSeniors/internal/model"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	players           map[model.PlayerID]*model.Player
	registeredPlayers map[model.PlayerID]*model.RegisteredPlayer
	usernameIndex     map[string]model.PlayerID
	claimed           map[string]model.PlayerID
	sessionStates     map[model.PlayerID]model.PlayerSessionState
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		players:           make(map[model.PlayerID]*model.Player),
		registeredPlayers: make(map[model.PlayerID]*model.RegisteredPlayer),
		usernameIndex:     make(map[string]model.PlayerID),
		claimed:           make(map[string]model.PlayerID),
		sessionStates:     make(map[model.PlayerID]model.PlayerSessionState),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Player operations

func (s *Storage) SavePlayer(ctx context.Context, player *model.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.players[player.ID] = player
	return nil
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	player, ok := s.players[id]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	return player, nil
}

func (s *Storage) DeletePlayer(ctx context.Context, id model.PlayerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.players, id)
	return nil
}

func (s *Storage) ClaimUsername(ctx context.Context, player *model.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.claimed[player.Username]; ok {
		return model.ErrUsernameTaken
	}
	s.claimed[player.Username] = player.ID
	return nil
}

func (s *Storage) ReleaseUsername(ctx context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.claimed, username)
	return nil
}

// Registered player operations

func (s *Storage) SaveRegisteredPlayer(ctx context.Context, rp *model.RegisteredPlayer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registeredPlayers[rp.PlayerID] = rp
	s.usernameIndex[rp.Username] = rp.PlayerID
	return nil
}

func (s *Storage) GetRegisteredPlayer(ctx context.Context, playerID model.PlayerID) (*model.RegisteredPlayer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rp, ok := s.registeredPlayers[playerID]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	return rp, nil
}

func (s *Storage) GetRegisteredPlayerByUsername(ctx context.Context, username string) (*model.RegisteredPlayer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	playerID, ok := s.usernameIndex[username]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	rp, ok := s.registeredPlayers[playerID]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	return rp, nil
}

// Session state operations
// States are copied on the way in and out so callers never share maps.

func (s *Storage) SaveSessionState(ctx context.Context, state *model.PlayerSessionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionStates[state.PlayerID] = state.Clone()
	return nil
}

func (s *Storage) GetSessionState(ctx context.Context, playerID model.PlayerID) (*model.PlayerSessionState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.sessionStates[playerID]
	if !ok {
		return nil, model.ErrSessionStateNotFound
	}
	c := state.Clone()
	return &c, nil
}

func (s *Storage) ListSessionStates(ctx context.Context) ([]*model.PlayerSessionState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	states := make([]*model.PlayerSessionState, 0, len(s.sessionStates))
	for _, state := range s.sessionStates {
		c := state.Clone()
		states = append(states, &c)
	}
	sort.Slice(states, func(i, j int) bool {
		return states[i].PlayerID < states[j].PlayerID
	})
	return states, nil
}
