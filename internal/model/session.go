package model

import (
	"fmt"
	"maps"
	"regexp"
	"strings"
	"time"
)

// Color is a golf ball color chosen in the lobby
type Color string

const (
	ColorRed    Color = "red"
	ColorBlue   Color = "blue"
	ColorGreen  Color = "green"
	ColorYellow Color = "yellow"
	ColorOrange Color = "orange"
	ColorPink   Color = "pink"
	ColorPurple Color = "purple"
	ColorWhite  Color = "white"
)

// DefaultColor is assigned to players on first registration
const DefaultColor = ColorBlue

var namedColors = map[Color]bool{
	ColorRed:    true,
	ColorBlue:   true,
	ColorGreen:  true,
	ColorYellow: true,
	ColorOrange: true,
	ColorPink:   true,
	ColorPurple: true,
	ColorWhite:  true,
}

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// ParseColor accepts a palette name or a #RRGGBB hex string
func ParseColor(s string) (Color, error) {
	s = strings.TrimSpace(s)
	if hexColor.MatchString(s) {
		return Color(strings.ToUpper(s)), nil
	}
	c := Color(strings.ToLower(s))
	if namedColors[c] {
		return c, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidColor, s)
}

// FirstHole is the hole every new player starts on
const FirstHole = 1

// PlayerSessionState is the per-player state shared with other players.
// It outlives any single connection and is keyed by player identity.
type PlayerSessionState struct {
	PlayerID    PlayerID    `json:"player_id"`
	Username    string      `json:"username"`
	Ready       bool        `json:"ready"`
	Color       Color       `json:"color"`
	CurrentHole int         `json:"current_hole"`
	Connected   bool        `json:"connected"`
	Score       int         `json:"score"`
	BestScore   int         `json:"best_score"`
	ScoreByHole map[int]int `json:"score_by_hole,omitempty"`

	// Cumulative stats across all submitted rounds
	HolesPlayed int `json:"holes_played"`
	ShotsTaken  int `json:"shots_taken"`

	UpdatedAt time.Time `json:"updated_at"`
}

// NewPlayerSessionState returns the defaults for a player seen for the first time
func NewPlayerSessionState(player *Player, now time.Time) *PlayerSessionState {
	return &PlayerSessionState{
		PlayerID:    player.ID,
		Username:    player.Username,
		Ready:       false,
		Color:       DefaultColor,
		CurrentHole: FirstHole,
		Connected:   false,
		ScoreByHole: make(map[int]int),
		UpdatedAt:   now,
	}
}

// Clone returns a deep copy safe to hand out of a lock
func (s *PlayerSessionState) Clone() PlayerSessionState {
	c := *s
	c.ScoreByHole = maps.Clone(s.ScoreByHole)
	if c.ScoreByHole == nil {
		c.ScoreByHole = make(map[int]int)
	}
	return c
}

// RecordRound folds a submitted round into the cumulative stats and reports
// whether it set a new personal best. A best of zero means no round yet.
func (s *PlayerSessionState) RecordRound(totalShots, totalHoles int, byHole map[int]int) bool {
	s.HolesPlayed += totalHoles
	s.ShotsTaken += totalShots
	s.Score = totalShots
	if s.ScoreByHole == nil {
		s.ScoreByHole = make(map[int]int)
	}
	for hole, strokes := range byHole {
		s.ScoreByHole[hole] = strokes
	}

	if s.BestScore == 0 || totalShots < s.BestScore {
		s.BestScore = totalShots
		return true
	}
	return false
}

// ValidHole reports whether n is a usable hole number
func ValidHole(n int) bool {
	return n >= FirstHole
}
