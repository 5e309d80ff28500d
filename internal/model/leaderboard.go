package model

import (
	"math"
	"sort"
)

// LeaderboardEntry is one ranked row of the live leaderboard
type LeaderboardEntry struct {
	Player string `json:"player"`
	Score  int    `json:"score"`
}

// BuildLeaderboard projects session states onto ranked entries.
// Players without a recorded round are excluded; lower scores rank first and
// equal scores keep the input order.
func BuildLeaderboard(states []PlayerSessionState) []LeaderboardEntry {
	entries := make([]LeaderboardEntry, 0, len(states))
	for _, s := range states {
		if s.BestScore <= 0 {
			continue
		}
		entries = append(entries, LeaderboardEntry{Player: s.Username, Score: s.BestScore})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score < entries[j].Score
	})
	return entries
}

// Par is the assumed par for every hole when computing a handicap
const Par = 4

// PlayerStats summarizes a player's cumulative play
type PlayerStats struct {
	Username          string  `json:"username"`
	HolesPlayed       int     `json:"holes_played"`
	ShotsTaken        int     `json:"shots_taken"`
	BestScore         int     `json:"best_score"`
	AvgStrokesPerHole float64 `json:"avg_strokes_per_hole"`
	Handicap          float64 `json:"handicap"`
}

// StatsFromState derives the stats view of a session state
func StatsFromState(s PlayerSessionState) PlayerStats {
	stats := PlayerStats{
		Username:    s.Username,
		HolesPlayed: s.HolesPlayed,
		ShotsTaken:  s.ShotsTaken,
		BestScore:   s.BestScore,
	}
	if s.HolesPlayed > 0 {
		avg := float64(s.ShotsTaken) / float64(s.HolesPlayed)
		stats.AvgStrokesPerHole = round1(avg)
		stats.Handicap = round1((avg - Par) * 113 / 120)
	}
	return stats
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
