package cli

import (
	"encoding/json"
	"fmt"
	"os"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
}

// NewOutput creates a new Output formatter
func NewOutput(format string) *Output {
	return &Output{format: format}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Println(string(data))
	} else {
		fmt.Println(msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case Player:
		o.printPlayer(v)
	case AuthResult:
		o.printAuthResult(v)
	case ScoreResult:
		o.printScoreResult(v)
	case LeaderboardResult:
		o.printLeaderboard(v)
	case StatsResult:
		o.printStats(v)
	case HealthResult:
		o.printHealthResult(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// Player response type (matches API)
type Player struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	IsGuest  bool   `json:"is_guest"`
}

// AuthResult combines player and token
type AuthResult struct {
	Player       Player `json:"player"`
	SessionToken string `json:"session_token"`
}

// ScoreResult is the outcome of a round submission
type ScoreResult struct {
	BestScore        int  `json:"best_score"`
	BestScoreUpdated bool `json:"best_score_updated"`
	HolesPlayed      int  `json:"holes_played"`
	ShotsTaken       int  `json:"shots_taken"`
}

// LeaderboardEntry is one ranked row
type LeaderboardEntry struct {
	Player string `json:"player"`
	Score  int    `json:"score"`
}

// LeaderboardResult response type
type LeaderboardResult struct {
	Leaders []LeaderboardEntry `json:"leaders"`
}

// StatsResult response type
type StatsResult struct {
	Username          string  `json:"username"`
	HolesPlayed       int     `json:"holes_played"`
	ShotsTaken        int     `json:"shots_taken"`
	BestScore         int     `json:"best_score"`
	AvgStrokesPerHole float64 `json:"avg_strokes_per_hole"`
	Handicap          float64 `json:"handicap"`
}

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
}

func (o *Output) printPlayer(p Player) {
	guestStr := "no"
	if p.IsGuest {
		guestStr = "yes"
	}
	fmt.Printf("Player: %s (%s)\n", p.Username, p.ID)
	fmt.Printf("Guest: %s\n", guestStr)
}

func (o *Output) printAuthResult(a AuthResult) {
	o.printPlayer(a.Player)
	fmt.Printf("Token: %s\n", a.SessionToken)
}

func (o *Output) printScoreResult(s ScoreResult) {
	if s.BestScoreUpdated {
		fmt.Printf("New personal best: %d\n", s.BestScore)
	} else {
		fmt.Printf("Round recorded. Personal best: %d\n", s.BestScore)
	}
	fmt.Printf("Career: %d shots over %d holes\n", s.ShotsTaken, s.HolesPlayed)
}

func (o *Output) printLeaderboard(l LeaderboardResult) {
	if len(l.Leaders) == 0 {
		fmt.Println("No scores yet")
		return
	}
	for i, e := range l.Leaders {
		fmt.Printf("%3d. %-20s %d\n", i+1, e.Player, e.Score)
	}
}

func (o *Output) printStats(s StatsResult) {
	fmt.Printf("Player: %s\n", s.Username)
	fmt.Printf("Holes played: %d\n", s.HolesPlayed)
	fmt.Printf("Shots taken: %d\n", s.ShotsTaken)
	if s.BestScore > 0 {
		fmt.Printf("Best score: %d\n", s.BestScore)
	}
	fmt.Printf("Avg strokes/hole: %.1f\n", s.AvgStrokesPerHole)
	fmt.Printf("Handicap: %.1f\n", s.Handicap)
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Printf("Status: %s\n", h.Status)
}
