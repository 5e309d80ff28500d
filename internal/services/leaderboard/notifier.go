package leaderboard

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AntonioRosa312/312-SuperSeniors/internal/broadcast"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/channel"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/model"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/services/registry"
)

// Notifier pushes the live leaderboard. It is recomputed from the registry
// on every call and never cached.
type Notifier struct {
	registry    registry.RegistryInterface
	broadcaster *broadcast.Broadcaster
	logger      *slog.Logger
}

// Ensure Notifier implements channel.Handler
var _ channel.Handler = (*Notifier)(nil)

// New creates a leaderboard Notifier
func New(reg registry.RegistryInterface, broadcaster *broadcast.Broadcaster, logger *slog.Logger) *Notifier {
	return &Notifier{
		registry:    reg,
		broadcaster: broadcaster,
		logger:      logger.With(slog.String("component", "leaderboard")),
	}
}

// Leaders returns the current ranking, best score ascending
func (n *Notifier) Leaders() []model.LeaderboardEntry {
	return model.BuildLeaderboard(n.registry.SnapshotAll(registry.WithBestScore))
}

// Event wraps the current ranking as a leaderboard frame
func (n *Notifier) Event() model.LeaderboardEvent {
	return model.LeaderboardEvent{Type: model.MsgLeaderboard, Leaders: n.Leaders()}
}

// OnBestScoreUpdated is called by score submission whenever a player sets a
// new personal best
func (n *Notifier) OnBestScoreUpdated(ctx context.Context, playerID model.PlayerID) {
	event := n.Event()
	recipients, err := n.broadcaster.PublishJSON(model.TopicLeaderboard, 0, event)
	if err != nil {
		n.logger.Error("failed to encode leaderboard", slog.String("error", err.Error()))
		return
	}

	n.logger.Info("leaderboard published",
		slog.String("player_id", string(playerID)),
		slog.Int("leaders", len(event.Leaders)),
		slog.Int("recipients", recipients))
}

// Name returns the channel name
func (n *Notifier) Name() string {
	return "leaderboard"
}

// Open subscribes the connection to leaderboard pushes
func (n *Notifier) Open(ctx context.Context, conn *channel.Conn) error {
	n.broadcaster.Subscribe(conn.Sink, model.TopicLeaderboard)
	return nil
}

// Handle answers request_leaderboard with a reply to the requester only
func (n *Notifier) Handle(ctx context.Context, conn *channel.Conn, msg model.Inbound) error {
	if msg.Type != model.MsgRequestLeaderboard {
		return fmt.Errorf("%w: %s on leaderboard", model.ErrUnknownMessage, msg.Type)
	}
	return channel.Reply(conn, n.Event())
}

// Close has nothing to announce; leaving the topic is enough
func (n *Notifier) Close(ctx context.Context, conn *channel.Conn) {}
