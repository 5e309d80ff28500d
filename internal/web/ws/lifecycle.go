package ws

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/AntonioRosa312/312-SuperSeniors/internal/api/apierr"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/broadcast"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/channel"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/model"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/services/auth"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/services/registry"
)

// Resolver maps a session credential to a player identity
type Resolver interface {
	Resolve(ctx context.Context, token string) (*model.Player, error)
}

// Stats summarizes live websocket state
type Stats struct {
	Connections      int         `json:"connections"`
	ConnectedPlayers int         `json:"connected_players"`
	Topics           int         `json:"topics"`
	Holes            map[int]int `json:"holes"` // connections per hole
}

// Lifecycle runs the connect, dispatch and teardown sequence shared by every
// websocket channel
type Lifecycle struct {
	registry    registry.RegistryInterface
	broadcaster *broadcast.Broadcaster
	resolver    Resolver
	config      Config
	logger      *slog.Logger
	upgrader    websocket.Upgrader

	// ctx outlives individual requests and is cancelled on Shutdown
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	sessions map[model.ConnectionID]*Session
	closing  bool
	wg       sync.WaitGroup
}

// NewLifecycle creates a Lifecycle
func NewLifecycle(reg registry.RegistryInterface, broadcaster *broadcast.Broadcaster, resolver Resolver, config Config, logger *slog.Logger) *Lifecycle {
	config = config.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &Lifecycle{
		registry:    reg,
		broadcaster: broadcaster,
		resolver:    resolver,
		config:      config,
		logger:      logger.With(slog.String("component", "ws")),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.checkOrigin,
		},
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[model.ConnectionID]*Session),
	}
}

// Handler returns the websocket endpoint for a channel. The hole comes from
// the "hole" route variable when present, otherwise defaultHole is used. A
// defaultHole of 0 leaves the choice to the channel.
func (l *Lifecycle) Handler(h channel.Handler, defaultHole int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l.serve(w, r, h, defaultHole)
	}
}

func (l *Lifecycle) serve(w http.ResponseWriter, r *http.Request, h channel.Handler, defaultHole int) {
	logger := l.logger.With(slog.String("channel", h.Name()))

	hole := defaultHole
	if raw, ok := mux.Vars(r)["hole"]; ok {
		n, err := strconv.Atoi(raw)
		if err != nil || !model.ValidHole(n) {
			apierr.WriteError(w, fmt.Errorf("%w: %q", model.ErrInvalidHole, raw))
			return
		}
		hole = n
	}

	// Identity is resolved before the upgrade so a bad credential is a
	// plain 401 and no socket is ever opened
	player, err := l.resolver.Resolve(r.Context(), auth.TokenFromRequest(r))
	if err != nil {
		logger.Info("websocket rejected",
			slog.String("remote_addr", r.RemoteAddr),
			slog.String("error", err.Error()))
		apierr.WriteError(w, errors.Join(model.ErrUnauthenticated, err))
		return
	}

	l.mu.Lock()
	if l.closing {
		l.mu.Unlock()
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}
	l.wg.Add(1)
	l.mu.Unlock()
	defer l.wg.Done()

	conn, err := l.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response
		logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	session := newSession(model.ConnectionID(uuid.NewString()), *player, conn, l.config, logger)

	// Shutdown closes only tracked sessions, so the closing check and the
	// tracking happen under one lock
	l.mu.Lock()
	if l.closing {
		l.mu.Unlock()
		logger.Info("websocket closed during shutdown")
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		_ = conn.Close()
		return
	}
	l.sessions[session.ID()] = session
	l.mu.Unlock()

	l.run(session, h, hole)
}

// run drives one connection from registration to teardown
func (l *Lifecycle) run(session *Session, h channel.Handler, hole int) {
	ctx := l.ctx
	player := session.Player()
	cc := &channel.Conn{ID: session.ID(), Player: player, Hole: hole, Sink: session}

	go session.writePump()

	// The only exit path, so teardown runs exactly once however the
	// connection ends
	registered := false
	reason := "connection closed"
	defer func() {
		l.teardown(ctx, session, h, cc, registered, reason)
	}()

	if _, err := l.registry.Register(ctx, session.ID(), &player); err != nil {
		reason = "register failed"
		session.logger.Error("register failed", slog.String("error", err.Error()))
		return
	}
	registered = true

	if err := h.Open(ctx, cc); err != nil {
		reason = "channel open failed"
		session.logger.Warn("channel open failed", slog.String("error", err.Error()))
		return
	}

	if err := channel.Reply(cc, model.UsernameEvent{Type: model.MsgUsername, Username: player.Username}); err != nil {
		reason = "acknowledge failed"
		session.logger.Warn("failed to acknowledge connection", slog.String("error", err.Error()))
		return
	}

	session.logger.Info("websocket connected", slog.Int("hole", hole))

	session.readPump(func(data []byte) {
		l.dispatch(ctx, session, h, cc, data)
	})
}

// dispatch handles one inbound frame. Bad frames and handler failures are
// logged and dropped; the connection stays open.
func (l *Lifecycle) dispatch(ctx context.Context, session *Session, h channel.Handler, cc *channel.Conn, data []byte) {
	defer func() {
		if rec := recover(); rec != nil {
			session.logger.Error("panic handling message",
				slog.Any("panic", rec),
				slog.String("stack", string(debug.Stack())))
		}
	}()

	msg, err := model.ParseInbound(data)
	if err != nil {
		session.logger.Debug("dropping frame", slog.String("error", err.Error()))
		return
	}

	if err := h.Handle(ctx, cc, msg); err != nil {
		session.logger.Info("message dropped",
			slog.String("type", string(msg.Type)),
			slog.String("error", err.Error()))
	}
}

// teardown unsubscribes, unregisters and lets the channel announce the
// departure. A panicking channel cannot skip the earlier steps.
func (l *Lifecycle) teardown(ctx context.Context, session *Session, h channel.Handler, cc *channel.Conn, registered bool, reason string) {
	defer func() {
		if rec := recover(); rec != nil {
			session.logger.Error("panic during teardown", slog.Any("panic", rec))
		}
	}()

	session.Close()
	l.broadcaster.UnsubscribeAll(session.ID())

	l.mu.Lock()
	delete(l.sessions, session.ID())
	l.mu.Unlock()

	if registered {
		if _, err := l.registry.Unregister(ctx, session.ID()); err != nil {
			session.logger.Warn("unregister failed", slog.String("error", err.Error()))
		}
		h.Close(ctx, cc)
	}

	session.logger.Info("websocket disconnected",
		slog.String("reason", reason),
		slog.Duration("connection_duration", time.Since(session.connectedAt)))
}

// Stats returns live connection counts
func (l *Lifecycle) Stats() Stats {
	topics := l.broadcaster.Snapshot()
	holes := make(map[int]int)
	for topic, members := range topics {
		if n, ok := topic.Hole(); ok {
			holes[n] = len(members)
		}
	}

	return Stats{
		Connections:      l.registry.ConnectionCount(),
		ConnectedPlayers: len(l.registry.SnapshotAll(registry.ConnectedOnly)),
		Topics:           len(topics),
		Holes:            holes,
	}
}

// Shutdown closes every connection and waits for their teardown to finish
func (l *Lifecycle) Shutdown(ctx context.Context) error {
	l.mu.Lock()
	l.closing = true
	sessions := make([]*Session, 0, len(l.sessions))
	for _, s := range l.sessions {
		sessions = append(sessions, s)
	}
	l.mu.Unlock()

	l.logger.Info("closing websocket connections", slog.Int("count", len(sessions)))
	for _, s := range sessions {
		s.Close()
	}

	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		l.cancel()
		return nil
	case <-ctx.Done():
		l.cancel()
		return ctx.Err()
	}
}
