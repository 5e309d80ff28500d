package channel

import (
	"context"

	"github.com/AntonioRosa312/312-SuperSeniors/internal/broadcast"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/model"
)

// Conn is the view a channel handler has of one authenticated connection
type Conn struct {
	ID     model.ConnectionID
	Player model.Player
	Hole   int // requested by the route, 0 when it names none
	Sink   broadcast.Sink
}

// Handler is one logical websocket channel. The lifecycle calls Open once
// after registration, Handle once per inbound frame in arrival order, and
// Close exactly once during teardown.
type Handler interface {
	Name() string
	Open(ctx context.Context, conn *Conn) error
	Handle(ctx context.Context, conn *Conn, msg model.Inbound) error
	Close(ctx context.Context, conn *Conn)
}

// Reply encodes v and sends it to conn only
func Reply(conn *Conn, v any) error {
	msg, err := broadcast.NewMessage(0, v)
	if err != nil {
		return err
	}
	return conn.Sink.Send(msg)
}
