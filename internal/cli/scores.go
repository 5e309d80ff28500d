package cli

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func newScoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Round submission commands",
	}

	cmd.AddCommand(newScoreSubmitCmd())

	return cmd
}

func newScoreSubmitCmd() *cobra.Command {
	var shots, holes int
	var perHole []string

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a completed round",
		Example: `  golfcli score submit --shots 54 --holes 18
  golfcli score submit --shots 12 --holes 3 --hole 1=4 --hole 2=3 --hole 3=5`,
		RunE: func(cmd *cobra.Command, args []string) error {
			byHole, err := parseHoleScores(perHole)
			if err != nil {
				return err
			}

			req := map[string]any{
				"total_shots": shots,
				"total_holes": holes,
			}
			if len(byHole) > 0 {
				req["score_by_hole"] = byHole
			}

			var result ScoreResult
			if err := client.Post("/api/v1/scores", req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().IntVar(&shots, "shots", 0, "Total shots for the round (required)")
	cmd.Flags().IntVar(&holes, "holes", 0, "Holes played in the round (required)")
	cmd.Flags().StringArrayVar(&perHole, "hole", nil, "Per-hole score as HOLE=SHOTS, repeatable")
	_ = cmd.MarkFlagRequired("shots")
	_ = cmd.MarkFlagRequired("holes")

	return cmd
}

// parseHoleScores turns HOLE=SHOTS pairs into a map keyed by hole
func parseHoleScores(pairs []string) (map[string]int, error) {
	byHole := make(map[string]int, len(pairs))
	for _, p := range pairs {
		hole, shots, ok := strings.Cut(p, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --hole %q: want HOLE=SHOTS", p)
		}
		if _, err := strconv.Atoi(hole); err != nil {
			return nil, fmt.Errorf("invalid hole number in %q", p)
		}
		n, err := strconv.Atoi(shots)
		if err != nil {
			return nil, fmt.Errorf("invalid shot count in %q", p)
		}
		byHole[hole] = n
	}
	return byHole, nil
}

func newLeaderboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "leaderboard",
		Short: "Show best scores, lowest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result LeaderboardResult

			if err := client.Get("/api/v1/leaderboard", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <username>",
		Short: "Show a player's cumulative stats",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result StatsResult

			if err := client.Get("/api/v1/players/"+url.PathEscape(args[0])+"/stats", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}
