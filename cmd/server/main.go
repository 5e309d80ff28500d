package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/AntonioRosa312/312-SuperSeniors/internal/api"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/config"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/factory"
)

func main() {
	configPath := flag.String("config", os.Getenv("GOLF_CONFIG"), "path to a YAML config file")
	flag.Parse()

	// A missing .env is fine; real deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Set up logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(cfg.Log.Level),
	}))
	slog.SetDefault(logger)

	// Build factory config
	factoryCfg := factory.Config{
		AuthConfig:      cfg.AuthConfig(),
		WebsocketConfig: cfg.WebsocketConfig(),
		Room:            cfg.Game.Room,
		Logger:          logger,
		StorageType:     cfg.Storage.Type,
	}
	if cfg.Storage.Type == factory.StorageTypeRedis {
		redisCfg := cfg.RedisConfig()
		factoryCfg.RedisConfig = &redisCfg
	}

	// Handle graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Create application factory
	app, err := factory.New(ctx, factoryCfg)
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer app.Close()

	router := api.NewRouter(api.RouterConfig{
		Logger:         logger,
		AuthService:    app.AuthService,
		ScoreService:   app.ScoreService,
		Leaderboard:    app.Leaderboard,
		Lobby:          app.Lobby,
		Game:           app.Game,
		Lifecycle:      app.Lifecycle,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	serverConfig := cfg.ServerConfig()
	server := api.NewServer(router, serverConfig, logger)

	go cleanSessions(ctx, app, cfg.Auth.CleanupInterval)

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("server started",
		slog.String("addr", server.Addr()),
		slog.String("storage", cfg.Storage.Type),
		slog.String("room", cfg.Game.Room))

	// Wait for shutdown or error
	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		if err := shutdown(server, app, serverConfig.ShutdownTimeout, logger); err != nil {
			logger.Error("shutdown error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	logger.Info("server stopped")
}

// shutdown stops accepting requests, then closes websocket connections and
// waits for their teardown. http.Server does not track hijacked connections,
// so the websocket teardown must finish here before app.Close releases storage.
func shutdown(server *api.Server, app *factory.App, timeout time.Duration, logger *slog.Logger) error {
	if err := server.Shutdown(context.Background()); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := app.Lifecycle.Shutdown(ctx); err != nil {
		logger.Warn("websocket shutdown incomplete", slog.String("error", err.Error()))
	}
	return nil
}

// cleanSessions drops expired auth sessions until ctx is cancelled
func cleanSessions(ctx context.Context, app *factory.App, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			app.AuthService.CleanExpiredSessions()
		}
	}
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
