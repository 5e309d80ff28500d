package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/AntonioRosa312/312-SuperSeniors/internal/dependencies/clock"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/model"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/storage"
)

// Errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidSession     = errors.New("invalid or expired session")
	ErrUsernameExists     = errors.New("username already exists")
)

// Session represents an authenticated session
type Session struct {
	Token     string
	PlayerID  model.PlayerID
	Player    model.Player
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Service handles authentication and session management.
// Sessions are indexed by a SHA-256 hash of the token.
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	logger  *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
	byPlayer map[model.PlayerID]map[string]struct{}

	sessionDuration time.Duration
}

// Config holds configuration for the auth service
type Config struct {
	SessionDuration time.Duration
}

// DefaultConfig returns default auth configuration
func DefaultConfig() Config {
	return Config{
		SessionDuration: 24 * time.Hour,
	}
}

// New creates a new AuthService
func New(storage storage.Storage, clock clock.Clock, cfg Config, logger *slog.Logger) *Service {
	if cfg.SessionDuration == 0 {
		cfg.SessionDuration = DefaultConfig().SessionDuration
	}
	return &Service{
		storage:         storage,
		clock:           clock,
		logger:          logger.With(slog.String("component", "auth")),
		sessions:        make(map[string]*Session),
		byPlayer:        make(map[model.PlayerID]map[string]struct{}),
		sessionDuration: cfg.SessionDuration,
	}
}

// CreateGuestPlayer creates a player without a password and a session for it.
// The username must not be held by any other guest or registered player.
func (s *Service) CreateGuestPlayer(ctx context.Context, username string) (*Session, error) {
	player := &model.Player{
		ID:        model.PlayerID(s.generateID("p_")),
		Username:  username,
		IsGuest:   true,
		CreatedAt: s.clock.Now(),
	}

	if err := s.claimUsername(ctx, player); err != nil {
		return nil, err
	}

	if err := s.storage.SavePlayer(ctx, player); err != nil {
		s.releaseUsername(ctx, username)
		return nil, err
	}

	s.logger.Info("guest player created",
		slog.String("player_id", string(player.ID)),
		slog.String("username", username))

	return s.createSession(player)
}

// RegisterPlayer creates a registered player account and session
func (s *Service) RegisterPlayer(ctx context.Context, username, password string) (*Session, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	playerID := model.PlayerID(s.generateID("p_"))
	now := s.clock.Now()

	player := &model.Player{
		ID:        playerID,
		Username:  username,
		IsGuest:   false,
		CreatedAt: now,
	}

	registeredPlayer := &model.RegisteredPlayer{
		PlayerID:     playerID,
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.claimUsername(ctx, player); err != nil {
		return nil, err
	}

	if err := s.storage.SavePlayer(ctx, player); err != nil {
		s.releaseUsername(ctx, username)
		return nil, err
	}

	if err := s.storage.SaveRegisteredPlayer(ctx, registeredPlayer); err != nil {
		s.releaseUsername(ctx, username)
		return nil, err
	}

	s.logger.Info("player registered",
		slog.String("player_id", string(playerID)),
		slog.String("username", username))

	return s.createSession(player)
}

// Login authenticates a registered player and creates a session.
// Any earlier session of the same player is invalidated.
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	rp, err := s.storage.GetRegisteredPlayerByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, model.ErrPlayerNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(rp.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	player, err := s.storage.GetPlayer(ctx, rp.PlayerID)
	if err != nil {
		return nil, err
	}

	if n := s.invalidatePlayerSessions(player.ID); n > 0 {
		s.logger.Info("previous sessions invalidated by login",
			slog.String("player_id", string(player.ID)),
			slog.Int("count", n))
	}

	return s.createSession(player)
}

// ValidateSession checks if a session token is valid and returns the session
func (s *Service) ValidateSession(token string) (*Session, error) {
	key := hashToken(token)

	s.mu.RLock()
	session, ok := s.sessions[key]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrInvalidSession
	}

	if s.clock.Now().After(session.ExpiresAt) {
		s.mu.Lock()
		s.removeLocked(key, session.PlayerID)
		s.mu.Unlock()
		return nil, ErrInvalidSession
	}

	return session, nil
}

// InvalidateSession removes a session
func (s *Service) InvalidateSession(token string) {
	key := hashToken(token)

	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[key]; ok {
		s.removeLocked(key, session.PlayerID)
	}
}

// GetPlayer returns the player for a session token
func (s *Service) GetPlayer(token string) (*model.Player, error) {
	session, err := s.ValidateSession(token)
	if err != nil {
		return nil, err
	}
	return &session.Player, nil
}

// Resolve maps a session credential to a player identity for websocket
// handshakes. Any failure is reported as model.ErrUnauthenticated.
func (s *Service) Resolve(ctx context.Context, token string) (*model.Player, error) {
	if token == "" {
		return nil, model.ErrUnauthenticated
	}
	player, err := s.GetPlayer(token)
	if err != nil {
		return nil, errors.Join(model.ErrUnauthenticated, err)
	}
	return player, nil
}

// CleanExpiredSessions removes expired sessions (call periodically)
func (s *Service) CleanExpiredSessions() {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, session := range s.sessions {
		if now.After(session.ExpiresAt) {
			s.removeLocked(key, session.PlayerID)
		}
	}
}

// createSession creates a new session for a player
func (s *Service) createSession(player *model.Player) (*Session, error) {
	token := s.generateID("sess_")
	now := s.clock.Now()

	session := &Session{
		Token:     token,
		PlayerID:  player.ID,
		Player:    *player,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionDuration),
	}

	key := hashToken(token)

	s.mu.Lock()
	s.sessions[key] = session
	if s.byPlayer[player.ID] == nil {
		s.byPlayer[player.ID] = make(map[string]struct{})
	}
	s.byPlayer[player.ID][key] = struct{}{}
	s.mu.Unlock()

	return session, nil
}

func (s *Service) invalidatePlayerSessions(playerID model.PlayerID) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := s.byPlayer[playerID]
	n := len(keys)
	for key := range keys {
		delete(s.sessions, key)
	}
	delete(s.byPlayer, playerID)
	return n
}

// removeLocked deletes one session; s.mu must be held for writing
func (s *Service) removeLocked(key string, playerID model.PlayerID) {
	delete(s.sessions, key)
	if keys, ok := s.byPlayer[playerID]; ok {
		delete(keys, key)
		if len(keys) == 0 {
			delete(s.byPlayer, playerID)
		}
	}
}

// claimUsername reserves player.Username. Accounts registered before claims
// existed only appear in the registered index, so that is checked too.
func (s *Service) claimUsername(ctx context.Context, player *model.Player) error {
	_, err := s.storage.GetRegisteredPlayerByUsername(ctx, player.Username)
	if err == nil {
		return ErrUsernameExists
	}
	if !errors.Is(err, model.ErrPlayerNotFound) {
		return err
	}

	if err := s.storage.ClaimUsername(ctx, player); err != nil {
		if errors.Is(err, model.ErrUsernameTaken) {
			return ErrUsernameExists
		}
		return err
	}
	return nil
}

func (s *Service) releaseUsername(ctx context.Context, username string) {
	if err := s.storage.ReleaseUsername(ctx, username); err != nil {
		s.logger.Error("failed to release username",
			slog.String("username", username),
			slog.String("error", err.Error()))
	}
}

// generateID generates a random ID with a prefix
func (s *Service) generateID(prefix string) string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return prefix + base64.RawURLEncoding.EncodeToString(b)
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
