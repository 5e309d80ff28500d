package model

import "time"

// PlayerID uniquely identifies a player across the system
type PlayerID string

// Player represents an authenticated golfer
type Player struct {
	ID        PlayerID
	Username  string
	IsGuest   bool // true for players without a password
	CreatedAt time.Time
}

// RegisteredPlayer extends Player with authentication data
// Stored separately so the password hash never travels with a session
type RegisteredPlayer struct {
	PlayerID     PlayerID
	Username     string // login username (immutable)
	PasswordHash string // bcrypt hash
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
