package model

import (
	"encoding/json"
	"fmt"
)

// MessageType is the "type" discriminator carried by every websocket frame
type MessageType string

// Message kinds sent by clients
const (
	MsgSetColor           MessageType = "set_color"
	MsgToggleReady        MessageType = "toggle_ready"
	MsgRequestPlayers     MessageType = "request_players"
	MsgMove               MessageType = "move"
	MsgPutt               MessageType = "putt"
	MsgChat               MessageType = "chat"
	MsgStartGame          MessageType = "start_game"
	MsgRequestLeaderboard MessageType = "request_leaderboard"
)

// Message kinds sent by the server
const (
	MsgUsername    MessageType = "username"
	MsgPlayersList MessageType = "players_list"
	MsgPlayerMoved MessageType = "player_moved"
	MsgPlayerPutt  MessageType = "player_putt"
	MsgPlayerLeft  MessageType = "player_left"
	MsgGameStart   MessageType = "game_start"
	MsgLeaderboard MessageType = "leaderboard"
)

// Inbound is a client frame with its discriminator already read
type Inbound struct {
	Type MessageType
	Raw  json.RawMessage
}

// ParseInbound reads the type discriminator of a raw frame
func ParseInbound(data []byte) (Inbound, error) {
	var head struct {
		Type MessageType `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return Inbound{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if head.Type == "" {
		return Inbound{}, fmt.Errorf("%w: missing type", ErrMalformedMessage)
	}
	return Inbound{Type: head.Type, Raw: data}, nil
}

// Decode unmarshals the frame body into v
func (m Inbound) Decode(v any) error {
	if err := json.Unmarshal(m.Raw, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedMessage, m.Type, err)
	}
	return nil
}

// SetColorMessage is the body of set_color
type SetColorMessage struct {
	Color string `json:"color"`
}

// MoveMessage is the body of move. Pointers distinguish a zero coordinate
// from a missing one.
type MoveMessage struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
}

// Validate checks that both coordinates are present
func (m MoveMessage) Validate() error {
	if m.X == nil || m.Y == nil {
		return fmt.Errorf("%w: move requires x and y", ErrMalformedMessage)
	}
	return nil
}

// PuttMessage is the body of putt
type PuttMessage struct {
	Angle *float64 `json:"angle"`
	Power *float64 `json:"power"`
}

// Validate checks that angle and power are present
func (m PuttMessage) Validate() error {
	if m.Angle == nil || m.Power == nil {
		return fmt.Errorf("%w: putt requires angle and power", ErrMalformedMessage)
	}
	return nil
}

// ChatMessage is the body of chat
type ChatMessage struct {
	Message string `json:"message"`
}

// StartGameMessage is the body of start_game
type StartGameMessage struct {
	Hole int `json:"hole"`
}

// UsernameEvent acknowledges a connection with the resolved identity
type UsernameEvent struct {
	Type     MessageType `json:"type"`
	Username string      `json:"username"`
}

// RosterEntry is one player in a players_list snapshot
type RosterEntry struct {
	Username    string `json:"username"`
	Color       Color  `json:"color"`
	Ready       bool   `json:"ready"`
	CurrentHole int    `json:"current_hole"`
	Score       int    `json:"score"`
	Connected   bool   `json:"connected"`
}

// PlayersListEvent carries the full lobby roster
type PlayersListEvent struct {
	Type    MessageType   `json:"type"`
	Players []RosterEntry `json:"players"`
}

// NewPlayersListEvent builds a roster snapshot in the given order
func NewPlayersListEvent(states []PlayerSessionState) PlayersListEvent {
	players := make([]RosterEntry, len(states))
	for i, s := range states {
		players[i] = RosterEntry{
			Username:    s.Username,
			Color:       s.Color,
			Ready:       s.Ready,
			CurrentHole: s.CurrentHole,
			Score:       s.Score,
			Connected:   s.Connected,
		}
	}
	return PlayersListEvent{Type: MsgPlayersList, Players: players}
}

// PlayerMovedEvent relays a ball position to players on the same hole
type PlayerMovedEvent struct {
	Type     MessageType `json:"type"`
	Username string      `json:"username"`
	X        float64     `json:"x"`
	Y        float64     `json:"y"`
}

// PlayerPuttEvent relays a shot to players on the same hole
type PlayerPuttEvent struct {
	Type     MessageType `json:"type"`
	Username string      `json:"username"`
	Angle    float64     `json:"angle"`
	Power    float64     `json:"power"`
}

// ChatEvent relays a chat line to the whole room
type ChatEvent struct {
	Type     MessageType `json:"type"`
	Username string      `json:"username"`
	Message  string      `json:"message"`
}

// PlayerLeftEvent tells a hole that a player disconnected
type PlayerLeftEvent struct {
	Type     MessageType `json:"type"`
	Username string      `json:"username"`
}

// GameStartEvent confirms a start_game request
type GameStartEvent struct {
	Type MessageType `json:"type"`
	Hole int         `json:"hole"`
}

// LeaderboardEvent carries the ranked leaderboard
type LeaderboardEvent struct {
	Type    MessageType        `json:"type"`
	Leaders []LeaderboardEntry `json:"leaders"`
}
