package scores

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AntonioRosa312/312-SuperSeniors/internal/model"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/services/registry"
)

// BestScoreListener is told when a submitted round sets a personal best
type BestScoreListener interface {
	OnBestScoreUpdated(ctx context.Context, playerID model.PlayerID)
}

// Submission is one completed round
type Submission struct {
	TotalShots  int
	TotalHoles  int
	ScoreByHole map[int]int
}

// Validate checks the round is plausible
func (s Submission) Validate() error {
	if s.TotalShots <= 0 {
		return fmt.Errorf("%w: total_shots must be positive", model.ErrInvalidScore)
	}
	if s.TotalHoles <= 0 {
		return fmt.Errorf("%w: total_holes must be positive", model.ErrInvalidScore)
	}
	for hole, strokes := range s.ScoreByHole {
		if !model.ValidHole(hole) {
			return fmt.Errorf("%w: hole %d", model.ErrInvalidScore, hole)
		}
		if strokes <= 0 {
			return fmt.Errorf("%w: hole %d strokes must be positive", model.ErrInvalidScore, hole)
		}
	}
	return nil
}

// Result reports the outcome of a submission
type Result struct {
	BestScore        int
	BestScoreUpdated bool
	State            model.PlayerSessionState
}

// Service records completed rounds and serves per-player stats
type Service struct {
	registry registry.RegistryInterface
	listener BestScoreListener
	logger   *slog.Logger
}

// New creates a score Service. listener may be nil.
func New(reg registry.RegistryInterface, listener BestScoreListener, logger *slog.Logger) *Service {
	return &Service{
		registry: reg,
		listener: listener,
		logger:   logger.With(slog.String("component", "scores")),
	}
}

// Submit folds a round into the player's stats. A new personal best is
// announced to the listener after the state is saved.
func (s *Service) Submit(ctx context.Context, player *model.Player, sub Submission) (*Result, error) {
	if err := sub.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.registry.Ensure(ctx, player); err != nil {
		return nil, fmt.Errorf("submit score: %w", err)
	}

	var improved bool
	state, err := s.registry.Mutate(ctx, player.ID, func(st *model.PlayerSessionState) error {
		improved = st.RecordRound(sub.TotalShots, sub.TotalHoles, sub.ScoreByHole)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("submit score: %w", err)
	}

	s.logger.Info("score submitted",
		slog.String("player_id", string(player.ID)),
		slog.Int("total_shots", sub.TotalShots),
		slog.Int("total_holes", sub.TotalHoles),
		slog.Int("best_score", state.BestScore),
		slog.Bool("best_score_updated", improved))

	if improved && s.listener != nil {
		s.listener.OnBestScoreUpdated(ctx, player.ID)
	}

	return &Result{
		BestScore:        state.BestScore,
		BestScoreUpdated: improved,
		State:            state,
	}, nil
}

// Stats returns the cumulative stats of the player with username
func (s *Service) Stats(ctx context.Context, username string) (*model.PlayerStats, error) {
	for _, state := range s.registry.SnapshotAll(nil) {
		if state.Username == username {
			stats := model.StatsFromState(state)
			return &stats, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", model.ErrPlayerNotFound, username)
}
