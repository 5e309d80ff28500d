package ws

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AntonioRosa312/312-SuperSeniors/internal/broadcast"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/model"
)

// Session is one live websocket connection. It is the broadcast.Sink for
// that connection: Send enqueues onto a bounded FIFO drained by the write
// pump, so messages reach the client in the order they were sent.
type Session struct {
	id          model.ConnectionID
	player      model.Player
	conn        *websocket.Conn
	config      Config
	logger      *slog.Logger
	connectedAt time.Time

	send chan broadcast.Message

	mu       sync.Mutex
	closed   bool
	done     chan struct{}
	stopOnce sync.Once
}

// Ensure Session implements broadcast.Sink
var _ broadcast.Sink = (*Session)(nil)

func newSession(id model.ConnectionID, player model.Player, conn *websocket.Conn, config Config, logger *slog.Logger) *Session {
	return &Session{
		id:          id,
		player:      player,
		conn:        conn,
		config:      config,
		logger:      logger.With(slog.String("connection_id", string(id)), slog.String("player_id", string(player.ID))),
		connectedAt: time.Now(),
		send:        make(chan broadcast.Message, config.SendBufferSize),
		done:        make(chan struct{}),
	}
}

// ID returns the connection id
func (s *Session) ID() model.ConnectionID {
	return s.id
}

// Player returns the identity resolved at handshake
func (s *Session) Player() model.Player {
	return s.player
}

// Send enqueues msg without blocking. A full queue means the client cannot
// keep up; the session is stopped and the send reported as failed.
func (s *Session) Send(msg broadcast.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("%w: connection closed", model.ErrDeliveryFailure)
	}

	select {
	case s.send <- msg:
		return nil
	default:
		s.logger.Warn("send buffer full, closing connection")
		s.closed = true
		s.stop()
		return fmt.Errorf("%w: send buffer full", model.ErrDeliveryFailure)
	}
}

// Close stops the session. Safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.stop()
}

// Done is closed once the session has been stopped
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) stop() {
	s.stopOnce.Do(func() { close(s.done) })
}

// writePump drains the send queue onto the socket and keeps the
// connection alive with pings. It owns all writes to conn.
func (s *Session) writePump() {
	ticker := time.NewTicker(s.config.PingInterval)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case msg := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, msg.Payload); err != nil {
				s.logger.Warn("failed to write message", slog.String("error", err.Error()))
				s.Close()
				return
			}

		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.logger.Warn("failed to send ping", slog.String("error", err.Error()))
				s.Close()
				return
			}

		case <-s.done:
			_ = s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
				time.Now().Add(s.config.WriteTimeout))
			return
		}
	}
}

// readPump reads frames until the socket fails and hands each to dispatch
// in arrival order
func (s *Session) readPump(dispatch func(data []byte)) {
	s.conn.SetReadLimit(s.config.MaxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				s.logger.Warn("unexpected websocket close", slog.String("error", err.Error()))
			} else if !errors.Is(err, websocket.ErrCloseSent) {
				s.logger.Debug("websocket read ended", slog.String("error", err.Error()))
			}
			return
		}

		dispatch(data)
		_ = s.conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
	}
}
