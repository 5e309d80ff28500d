package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AntonioRosa312/312-SuperSeniors/internal/model"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Player operations

func (s *Storage) SavePlayer(ctx context.Context, player *model.Player) error {
	data, err := json.Marshal(player)
	if err != nil {
		return err
	}

	// Apply TTL only for guest players
	var ttl time.Duration
	if player.IsGuest {
		ttl = s.cfg.GuestPlayerTTL
	}

	return s.client.Set(ctx, playerKey(player.ID), data, ttl).Err()
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	data, err := s.client.Get(ctx, playerKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, err
	}

	var player model.Player
	if err := json.Unmarshal(data, &player); err != nil {
		return nil, err
	}
	return &player, nil
}

func (s *Storage) DeletePlayer(ctx context.Context, id model.PlayerID) error {
	return s.client.Del(ctx, playerKey(id)).Err()
}

// ClaimUsername reserves player.Username with SETNX. Guest claims expire
// with the guest player.
func (s *Storage) ClaimUsername(ctx context.Context, player *model.Player) error {
	var ttl time.Duration
	if player.IsGuest {
		ttl = s.cfg.GuestPlayerTTL
	}

	ok, err := s.client.SetNX(ctx, usernameClaimKey(player.Username), string(player.ID), ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return model.ErrUsernameTaken
	}
	return nil
}

func (s *Storage) ReleaseUsername(ctx context.Context, username string) error {
	return s.client.Del(ctx, usernameClaimKey(username)).Err()
}

// Registered player operations

func (s *Storage) SaveRegisteredPlayer(ctx context.Context, rp *model.RegisteredPlayer) error {
	data, err := json.Marshal(rp)
	if err != nil {
		return err
	}

	// Use pipeline for atomic save + index update
	pipe := s.client.Pipeline()
	pipe.Set(ctx, registeredPlayerKey(rp.PlayerID), data, 0) // No TTL
	pipe.Set(ctx, usernameIndexKey(rp.Username), string(rp.PlayerID), 0)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetRegisteredPlayer(ctx context.Context, playerID model.PlayerID) (*model.RegisteredPlayer, error) {
	data, err := s.client.Get(ctx, registeredPlayerKey(playerID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, err
	}

	var rp model.RegisteredPlayer
	if err := json.Unmarshal(data, &rp); err != nil {
		return nil, err
	}
	return &rp, nil
}

func (s *Storage) GetRegisteredPlayerByUsername(ctx context.Context, username string) (*model.RegisteredPlayer, error) {
	playerIDStr, err := s.client.Get(ctx, usernameIndexKey(username)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, err
	}

	return s.GetRegisteredPlayer(ctx, model.PlayerID(playerIDStr))
}

// Session state operations

func (s *Storage) SaveSessionState(ctx context.Context, state *model.PlayerSessionState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, sessionStateKey(state.PlayerID), data, 0)
	pipe.SAdd(ctx, sessionStatesIndexKey(), string(state.PlayerID))
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetSessionState(ctx context.Context, playerID model.PlayerID) (*model.PlayerSessionState, error) {
	data, err := s.client.Get(ctx, sessionStateKey(playerID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrSessionStateNotFound
		}
		return nil, err
	}

	return decodeSessionState(data)
}

func (s *Storage) ListSessionStates(ctx context.Context) ([]*model.PlayerSessionState, error) {
	ids, err := s.client.SMembers(ctx, sessionStatesIndexKey()).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*model.PlayerSessionState{}, nil
	}
	sort.Strings(ids)

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = sessionStateKey(model.PlayerID(id))
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	states := make([]*model.PlayerSessionState, 0, len(values))
	for i, v := range values {
		// Index entries can outlive their value if a key was removed by hand
		str, ok := v.(string)
		if !ok {
			continue
		}
		state, err := decodeSessionState([]byte(str))
		if err != nil {
			return nil, fmt.Errorf("decode session state %s: %w", ids[i], err)
		}
		states = append(states, state)
	}
	return states, nil
}

func decodeSessionState(data []byte) (*model.PlayerSessionState, error) {
	var state model.PlayerSessionState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	if state.ScoreByHole == nil {
		state.ScoreByHole = make(map[int]int)
	}
	return &state, nil
}
