package response

import (
	"github.com/AntonioRosa312/312-SuperSeniors/internal/model"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/services/auth"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/services/scores"
)

// Player represents a player in API responses
type Player struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	IsGuest  bool   `json:"is_guest"`
}

// PlayerFromModel converts a model.Player to a response Player
func PlayerFromModel(p *model.Player) Player {
	return Player{
		ID:       string(p.ID),
		Username: p.Username,
		IsGuest:  p.IsGuest,
	}
}

// AuthResponse is the response for authentication endpoints
type AuthResponse struct {
	Player       Player `json:"player"`
	SessionToken string `json:"session_token"`
}

// AuthResponseFromSession creates an AuthResponse from a session
func AuthResponseFromSession(s *auth.Session) AuthResponse {
	return AuthResponse{
		Player:       PlayerFromModel(&s.Player),
		SessionToken: s.Token,
	}
}

// ScoreResponse is the response after submitting a round
type ScoreResponse struct {
	BestScore        int  `json:"best_score"`
	BestScoreUpdated bool `json:"best_score_updated"`
	HolesPlayed      int  `json:"holes_played"`
	ShotsTaken       int  `json:"shots_taken"`
}

// ScoreResponseFromResult converts a scores.Result
func ScoreResponseFromResult(r *scores.Result) ScoreResponse {
	return ScoreResponse{
		BestScore:        r.BestScore,
		BestScoreUpdated: r.BestScoreUpdated,
		HolesPlayed:      r.State.HolesPlayed,
		ShotsTaken:       r.State.ShotsTaken,
	}
}

// Leaderboard is the HTTP view of the live leaderboard
type Leaderboard struct {
	Leaders []model.LeaderboardEntry `json:"leaders"`
}

// Health is the response for the health check
type Health struct {
	Status string `json:"status"`
}
