package redis

import (
	"fmt"

	"github.com/AntonioRosa312/312-SuperSeniors/internal/model"
)

// Key prefix for all golf data
const keyPrefix = "golf"

// playerKey returns the Redis key for a Player
func playerKey(id model.PlayerID) string {
	return fmt.Sprintf("%s:player:%s", keyPrefix, id)
}

// registeredPlayerKey returns the Redis key for a RegisteredPlayer
func registeredPlayerKey(playerID model.PlayerID) string {
	return fmt.Sprintf("%s:registered_player:%s", keyPrefix, playerID)
}

// usernameIndexKey returns the Redis key for the username -> player_id index
func usernameIndexKey(username string) string {
	return fmt.Sprintf("%s:idx:username:%s", keyPrefix, username)
}

// usernameClaimKey returns the Redis key holding the owner of a username,
// guest or registered
func usernameClaimKey(username string) string {
	return fmt.Sprintf("%s:claim:username:%s", keyPrefix, username)
}

// sessionStateKey returns the Redis key for a PlayerSessionState
func sessionStateKey(playerID model.PlayerID) string {
	return fmt.Sprintf("%s:session_state:%s", keyPrefix, playerID)
}

// sessionStatesIndexKey returns the Redis key for the SET of players with saved state
func sessionStatesIndexKey() string {
	return fmt.Sprintf("%s:idx:session_states", keyPrefix)
}
