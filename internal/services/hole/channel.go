package hole

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/AntonioRosa312/312-SuperSeniors/internal/broadcast"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/channel"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/model"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/services/registry"
)

// MaxChatLength bounds a single chat line
const MaxChatLength = 500

// Channel relays gameplay events between players on the same hole and chat
// across the whole room. Ball positions are never stored. Each gameplay
// connection is subscribed through a sink that applies the hole filter.
type Channel struct {
	registry    registry.RegistryInterface
	broadcaster *broadcast.Broadcaster
	room        string
	logger      *slog.Logger

	mu    sync.Mutex
	sinks map[model.PlayerID]map[model.ConnectionID]broadcast.Sink
}

// Ensure Channel implements channel.Handler
var _ channel.Handler = (*Channel)(nil)

// New creates a gameplay Channel for a room
func New(reg registry.RegistryInterface, broadcaster *broadcast.Broadcaster, room string, logger *slog.Logger) *Channel {
	if room == "" {
		room = model.DefaultRoom
	}
	return &Channel{
		registry:    reg,
		broadcaster: broadcaster,
		room:        room,
		logger:      logger.With(slog.String("component", "hole"), slog.String("room", room)),
		sinks:       make(map[model.PlayerID]map[model.ConnectionID]broadcast.Sink),
	}
}

// Name returns the channel name
func (c *Channel) Name() string {
	return "game"
}

// Open joins the room topic and the requested hole. A connection that names
// no hole resumes the player's current one.
func (c *Channel) Open(ctx context.Context, conn *channel.Conn) error {
	sink := broadcast.Filtered(conn.Sink, func(msg broadcast.Message) bool {
		return c.Accepts(conn, msg)
	})

	c.mu.Lock()
	conns, ok := c.sinks[conn.Player.ID]
	if !ok {
		conns = make(map[model.ConnectionID]broadcast.Sink)
		c.sinks[conn.Player.ID] = conns
	}
	conns[conn.ID] = sink
	c.mu.Unlock()

	c.broadcaster.Subscribe(sink, model.GameTopic(c.room))

	hole := conn.Hole
	if hole == 0 {
		state, ok := c.registry.Get(conn.Player.ID)
		if !ok {
			return fmt.Errorf("%w: %s", model.ErrPlayerNotFound, conn.Player.ID)
		}
		hole = state.CurrentHole
	}
	return c.Join(ctx, conn, hole)
}

// Join puts the player on hole. Every hole-channel connection of the player
// leaves the old hole topic and joins the new one while the player's state
// is locked, so membership always matches CurrentHole.
func (c *Channel) Join(ctx context.Context, conn *channel.Conn, hole int) error {
	if !model.ValidHole(hole) {
		return fmt.Errorf("%w: %d", model.ErrInvalidHole, hole)
	}

	var from int
	_, err := c.registry.Mutate(ctx, conn.Player.ID, func(s *model.PlayerSessionState) error {
		from = s.CurrentHole
		s.CurrentHole = hole

		for _, sink := range c.playerSinks(conn.Player.ID) {
			c.broadcaster.Move(sink, model.HoleTopic(from), model.HoleTopic(hole))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("join hole %d: %w", hole, err)
	}

	c.logger.Info("player joined hole",
		slog.String("player_id", string(conn.Player.ID)),
		slog.String("connection_id", string(conn.ID)),
		slog.Int("from", from),
		slog.Int("hole", hole))
	return nil
}

// Handle dispatches one gameplay message
func (c *Channel) Handle(ctx context.Context, conn *channel.Conn, msg model.Inbound) error {
	switch msg.Type {
	case model.MsgMove, model.MsgPutt:
		return c.Relay(ctx, conn, msg)

	case model.MsgChat:
		var body model.ChatMessage
		if err := msg.Decode(&body); err != nil {
			return err
		}
		return c.Chat(conn, body.Message)

	case model.MsgStartGame:
		var body model.StartGameMessage
		if err := msg.Decode(&body); err != nil {
			return err
		}
		hole := body.Hole
		if hole == 0 {
			hole = model.FirstHole
		}
		if err := c.Join(ctx, conn, hole); err != nil {
			return err
		}
		return channel.Reply(conn, model.GameStartEvent{Type: model.MsgGameStart, Hole: hole})

	default:
		return fmt.Errorf("%w: %s on game", model.ErrUnknownMessage, msg.Type)
	}
}

// Relay validates a move or putt and publishes it to the sender's current
// hole, tagged with that hole
func (c *Channel) Relay(ctx context.Context, conn *channel.Conn, msg model.Inbound) error {
	state, ok := c.registry.Get(conn.Player.ID)
	if !ok {
		return fmt.Errorf("%w: %s", model.ErrPlayerNotFound, conn.Player.ID)
	}
	hole := state.CurrentHole

	var event any
	switch msg.Type {
	case model.MsgMove:
		var body model.MoveMessage
		if err := msg.Decode(&body); err != nil {
			return err
		}
		if err := body.Validate(); err != nil {
			return err
		}
		event = model.PlayerMovedEvent{
			Type:     model.MsgPlayerMoved,
			Username: conn.Player.Username,
			X:        *body.X,
			Y:        *body.Y,
		}

	case model.MsgPutt:
		var body model.PuttMessage
		if err := msg.Decode(&body); err != nil {
			return err
		}
		if err := body.Validate(); err != nil {
			return err
		}
		event = model.PlayerPuttEvent{
			Type:     model.MsgPlayerPutt,
			Username: conn.Player.Username,
			Angle:    *body.Angle,
			Power:    *body.Power,
		}

	default:
		return fmt.Errorf("%w: cannot relay %s", model.ErrUnknownMessage, msg.Type)
	}

	_, err := c.broadcaster.PublishJSON(model.HoleTopic(hole), hole, event)
	return err
}

// Chat relays a chat line to the whole room regardless of hole
func (c *Channel) Chat(conn *channel.Conn, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("%w: empty chat message", model.ErrMalformedMessage)
	}
	if len(text) > MaxChatLength {
		return fmt.Errorf("%w: chat message too long", model.ErrMalformedMessage)
	}

	_, err := c.broadcaster.PublishJSON(model.GameTopic(c.room), 0, model.ChatEvent{
		Type:     model.MsgChat,
		Username: conn.Player.Username,
		Message:  text,
	})
	return err
}

// Accepts reports whether conn should receive msg. Hole-tagged events are
// only delivered to connections whose player is on that hole right now.
func (c *Channel) Accepts(conn *channel.Conn, msg broadcast.Message) bool {
	if msg.Hole == 0 {
		return true
	}
	state, ok := c.registry.Get(conn.Player.ID)
	if !ok {
		return false
	}
	return state.CurrentHole == msg.Hole
}

// Close forgets the connection and, when it was the player's last gameplay
// connection, tells the hole the player left
func (c *Channel) Close(ctx context.Context, conn *channel.Conn) {
	c.mu.Lock()
	remaining := 0
	if conns, ok := c.sinks[conn.Player.ID]; ok {
		delete(conns, conn.ID)
		remaining = len(conns)
		if remaining == 0 {
			delete(c.sinks, conn.Player.ID)
		}
	}
	c.mu.Unlock()

	// A concurrent Join may have moved the sink after the lifecycle
	// unsubscribed it
	c.broadcaster.UnsubscribeAll(conn.ID)

	if remaining > 0 {
		return
	}

	state, ok := c.registry.Get(conn.Player.ID)
	if !ok {
		return
	}
	_, err := c.broadcaster.PublishJSON(model.HoleTopic(state.CurrentHole), state.CurrentHole, model.PlayerLeftEvent{
		Type:     model.MsgPlayerLeft,
		Username: conn.Player.Username,
	})
	if err != nil {
		c.logger.Error("failed to publish player_left", slog.String("error", err.Error()))
	}
}

// Players returns the number of players with an open gameplay connection
func (c *Channel) Players() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sinks)
}

func (c *Channel) playerSinks(playerID model.PlayerID) []broadcast.Sink {
	c.mu.Lock()
	defer c.mu.Unlock()
	sinks := make([]broadcast.Sink, 0, len(c.sinks[playerID]))
	for _, sink := range c.sinks[playerID] {
		sinks = append(sinks, sink)
	}
	return sinks
}
