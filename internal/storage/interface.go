package storage

import (
	"context"

	"github.com/AntonioRosa312/312-SuperSeniors/internal/model"
)

// Storage defines the interface for data persistence
type Storage interface {
	// Player operations
	SavePlayer(ctx context.Context, player *model.Player) error
	GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error)
	DeletePlayer(ctx context.Context, id model.PlayerID) error

	// Usernames are unique across guests and registered players.
	// ClaimUsername fails with model.ErrUsernameTaken when already held.
	ClaimUsername(ctx context.Context, player *model.Player) error
	ReleaseUsername(ctx context.Context, username string) error

	// Registered player operations
	SaveRegisteredPlayer(ctx context.Context, rp *model.RegisteredPlayer) error
	GetRegisteredPlayer(ctx context.Context, playerID model.PlayerID) (*model.RegisteredPlayer, error)
	GetRegisteredPlayerByUsername(ctx context.Context, username string) (*model.RegisteredPlayer, error)

	// Session state operations
	SaveSessionState(ctx context.Context, state *model.PlayerSessionState) error
	GetSessionState(ctx context.Context, playerID model.PlayerID) (*model.PlayerSessionState, error)
	ListSessionStates(ctx context.Context) ([]*model.PlayerSessionState, error)
}
