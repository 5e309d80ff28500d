package lobby

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AntonioRosa312/312-SuperSeniors/internal/broadcast"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/channel"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/model"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/services/registry"
)

// Coordinator owns the pre-game lobby: readiness, colors and the roster.
// Every state change is followed by a full roster broadcast.
type Coordinator struct {
	registry    registry.RegistryInterface
	broadcaster *broadcast.Broadcaster
	logger      *slog.Logger
}

// Ensure Coordinator implements channel.Handler
var _ channel.Handler = (*Coordinator)(nil)

// New creates a lobby Coordinator
func New(reg registry.RegistryInterface, broadcaster *broadcast.Broadcaster, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		registry:    reg,
		broadcaster: broadcaster,
		logger:      logger.With(slog.String("component", "lobby")),
	}
}

// Name returns the channel name
func (c *Coordinator) Name() string {
	return "lobby"
}

// Open subscribes the connection to the lobby and broadcasts the roster
func (c *Coordinator) Open(ctx context.Context, conn *channel.Conn) error {
	c.broadcaster.Subscribe(conn.Sink, model.TopicLobby)
	c.BroadcastRoster()
	return nil
}

// Handle applies one lobby message
func (c *Coordinator) Handle(ctx context.Context, conn *channel.Conn, msg model.Inbound) error {
	switch msg.Type {
	case model.MsgSetColor:
		var body model.SetColorMessage
		if err := msg.Decode(&body); err != nil {
			return err
		}
		return c.SetColor(ctx, conn.Player.ID, body.Color)

	case model.MsgToggleReady:
		return c.ToggleReady(ctx, conn.Player.ID)

	case model.MsgRequestPlayers:
		return channel.Reply(conn, c.Roster())

	default:
		return fmt.Errorf("%w: %s on lobby", model.ErrUnknownMessage, msg.Type)
	}
}

// Close re-broadcasts the roster once the connection has been unregistered
func (c *Coordinator) Close(ctx context.Context, conn *channel.Conn) {
	c.BroadcastRoster()
}

// SetColor validates and applies a color change
func (c *Coordinator) SetColor(ctx context.Context, playerID model.PlayerID, raw string) error {
	color, err := model.ParseColor(raw)
	if err != nil {
		return err
	}

	_, err = c.registry.Mutate(ctx, playerID, func(s *model.PlayerSessionState) error {
		s.Color = color
		return nil
	})
	if err != nil {
		return fmt.Errorf("set color: %w", err)
	}

	c.logger.Info("color changed",
		slog.String("player_id", string(playerID)),
		slog.String("color", string(color)))

	c.BroadcastRoster()
	return nil
}

// ToggleReady flips the player's ready flag
func (c *Coordinator) ToggleReady(ctx context.Context, playerID model.PlayerID) error {
	state, err := c.registry.Mutate(ctx, playerID, func(s *model.PlayerSessionState) error {
		s.Ready = !s.Ready
		return nil
	})
	if err != nil {
		return fmt.Errorf("toggle ready: %w", err)
	}

	c.logger.Info("readiness toggled",
		slog.String("player_id", string(playerID)),
		slog.Bool("ready", state.Ready))

	c.BroadcastRoster()
	return nil
}

// Roster returns the connected players in registration order
func (c *Coordinator) Roster() model.PlayersListEvent {
	return model.NewPlayersListEvent(c.registry.SnapshotAll(registry.ConnectedOnly))
}

// BroadcastRoster publishes the full roster to the lobby topic
func (c *Coordinator) BroadcastRoster() {
	roster := c.Roster()
	n, err := c.broadcaster.PublishJSON(model.TopicLobby, 0, roster)
	if err != nil {
		c.logger.Error("failed to encode roster", slog.String("error", err.Error()))
		return
	}
	c.logger.Debug("roster broadcast",
		slog.Int("players", len(roster.Players)),
		slog.Int("recipients", n))
}
