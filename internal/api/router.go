package api

import (
	"log/slog"
	"net/http"
	"slices"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/AntonioRosa312/312-SuperSeniors/internal/api/handler"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/api/middleware"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/api/response"
	basemw "github.com/AntonioRosa312/312-SuperSeniors/internal/middleware"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/model"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/services/auth"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/services/hole"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/services/leaderboard"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/services/lobby"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/services/scores"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/web/ws"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger         *slog.Logger
	AuthService    *auth.Service
	ScoreService   *scores.Service
	Leaderboard    *leaderboard.Notifier
	Lobby          *lobby.Coordinator
	Game           *hole.Channel
	Lifecycle      *ws.Lifecycle
	AllowedOrigins []string
}

// NewRouter creates the HTTP handler serving the REST API and the websocket
// channels
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	playerHandler := handler.NewPlayerHandler(cfg.AuthService)
	scoreHandler := handler.NewScoreHandler(cfg.ScoreService, cfg.Leaderboard)

	// Create middleware
	authMiddleware := middleware.Auth(cfg.AuthService)
	loggingMiddleware := basemw.Logging(cfg.Logger)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.Recovery(cfg.Logger))
	api.Use(loggingMiddleware)

	// Player routes (no auth required for creating players/logging in)
	api.HandleFunc("/players/guest", playerHandler.CreateGuest).Methods(http.MethodPost)
	api.HandleFunc("/players/register", playerHandler.Register).Methods(http.MethodPost)
	api.HandleFunc("/players/login", playerHandler.Login).Methods(http.MethodPost)
	api.HandleFunc("/players/{username}/stats", scoreHandler.Stats).Methods(http.MethodGet)
	api.HandleFunc("/leaderboard", scoreHandler.Leaderboard).Methods(http.MethodGet)

	// Protected routes
	protected := func(h http.HandlerFunc) http.Handler { return authMiddleware(h) }
	api.Handle("/players/me", protected(playerHandler.GetMe)).Methods(http.MethodGet)
	api.Handle("/players/logout", protected(playerHandler.Logout)).Methods(http.MethodPost)
	api.Handle("/scores", protected(scoreHandler.Submit)).Methods(http.MethodPost)

	// Health check endpoint (no auth)
	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	// Websocket channels authenticate during the handshake themselves
	sockets := r.PathPrefix("/ws").Subrouter()
	sockets.Use(basemw.Recovery(cfg.Logger, basemw.DefaultPanicHandler))
	sockets.Use(loggingMiddleware)
	sockets.HandleFunc("/stats", statsHandler(cfg.Lifecycle, cfg.Game)).Methods(http.MethodGet)
	sockets.Handle("/lobby/", cfg.Lifecycle.Handler(cfg.Lobby, 0))
	// No hole in the path: the player resumes their stored hole
	sockets.Handle("/game/", cfg.Lifecycle.Handler(cfg.Game, 0))
	sockets.Handle("/game/hole/{hole}/", cfg.Lifecycle.Handler(cfg.Game, model.FirstHole))
	sockets.Handle("/leaderboard/", cfg.Lifecycle.Handler(cfg.Leaderboard, 0))

	return corsHandler(cfg.AllowedOrigins).Handler(r)
}

func corsHandler(origins []string) *cors.Cors {
	// Credentials are only allowed for an explicit origin list
	wildcard := len(origins) == 0 || slices.Contains(origins, "*")
	if wildcard {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodOptions,
		},
		AllowedOrigins:   origins,
		AllowedHeaders:   []string{"Authorization", "Content-Type", basemw.RequestIDHeader},
		ExposedHeaders:   []string{basemw.RequestIDHeader},
		AllowCredentials: !wildcard,
	})
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, response.Health{Status: "ok"})
}

// socketStats is the /ws/stats body
type socketStats struct {
	ws.Stats
	GamePlayers int `json:"game_players"`
}

func statsHandler(l *ws.Lifecycle, game *hole.Channel) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, http.StatusOK, socketStats{
			Stats:       l.Stats(),
			GamePlayers: game.Players(),
		})
	}
}
