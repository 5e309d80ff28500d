package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/AntonioRosa312/312-SuperSeniors/internal/broadcast"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/dependencies/clock"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/model"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/services/auth"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/services/hole"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/services/leaderboard"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/services/lobby"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/services/registry"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/services/scores"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/storage"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/storage/memory"
	redisstorage "github.com/AntonioRosa312/312-SuperSeniors/internal/storage/redis"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/web/ws"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock clock.Clock

	// Coordination core
	Registry    *registry.Registry
	Broadcaster *broadcast.Broadcaster

	// Services
	AuthService  *auth.Service
	Lobby        *lobby.Coordinator
	Game         *hole.Channel
	Leaderboard  *leaderboard.Notifier
	ScoreService *scores.Service
	Lifecycle    *ws.Lifecycle
}

// Config holds configuration for the application factory
type Config struct {
	// AuthConfig holds configuration for the auth service (optional)
	// If zero value, defaults to auth.DefaultConfig()
	AuthConfig auth.Config
	// WebsocketConfig tunes the websocket transport (optional)
	WebsocketConfig ws.Config
	// Room names the shared gameplay room; defaults to model.DefaultRoom
	Room string
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
}

// New creates a new application with all dependencies wired. Persisted
// session states are loaded into the registry before it returns.
func New(ctx context.Context, cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	// Create storage based on type
	var store storage.Storage
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store = redisStore
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}

	// Use default auth config if not provided
	authCfg := cfg.AuthConfig
	if authCfg.SessionDuration == 0 {
		authCfg = auth.DefaultConfig()
	}

	app := newWithDependencies(store, clock.New(), authCfg, cfg.WebsocketConfig, cfg.Room, logger)

	if err := app.Registry.Load(ctx); err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("load session states: %w", err)
	}

	return app, nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(store storage.Storage, clk clock.Clock, authCfg auth.Config, wsCfg ws.Config, room string, logger *slog.Logger) *App {
	if room == "" {
		room = model.DefaultRoom
	}

	reg := registry.New(store, clk, logger)
	broadcaster := broadcast.New(logger)
	authService := auth.New(store, clk, authCfg, logger)
	notifier := leaderboard.New(reg, broadcaster, logger)

	return &App{
		Storage:      store,
		Clock:        clk,
		Registry:     reg,
		Broadcaster:  broadcaster,
		AuthService:  authService,
		Lobby:        lobby.New(reg, broadcaster, logger),
		Game:         hole.New(reg, broadcaster, room, logger),
		Leaderboard:  notifier,
		ScoreService: scores.New(reg, notifier, logger),
		Lifecycle:    ws.NewLifecycle(reg, broadcaster, authService, wsCfg, logger),
	}
}

// Close releases the storage backend
func (a *App) Close() error {
	if c, ok := a.Storage.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
