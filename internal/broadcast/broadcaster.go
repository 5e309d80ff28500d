package broadcast

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/AntonioRosa312/312-SuperSeniors/internal/model"
)

// Message is one outbound frame. Hole tags gameplay events with the hole
// they were published on; zero means untagged.
type Message struct {
	Hole    int
	Payload []byte
}

// NewMessage encodes v as a JSON frame
func NewMessage(hole int, v any) (Message, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return Message{}, fmt.Errorf("encode message: %w", err)
	}
	return Message{Hole: hole, Payload: payload}, nil
}

// Sink receives messages for one connection. Send must not block: it
// enqueues and reports model.ErrDeliveryFailure when it cannot.
type Sink interface {
	ID() model.ConnectionID
	Send(msg Message) error
}

// Broadcaster fans messages out to the connections subscribed to a topic
type Broadcaster struct {
	logger *slog.Logger

	mu     sync.RWMutex
	topics map[model.Topic]map[model.ConnectionID]Sink
	byConn map[model.ConnectionID]map[model.Topic]struct{}
}

// New creates an empty Broadcaster
func New(logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		logger: logger.With(slog.String("component", "broadcaster")),
		topics: make(map[model.Topic]map[model.ConnectionID]Sink),
		byConn: make(map[model.ConnectionID]map[model.Topic]struct{}),
	}
}

// Subscribe adds sink to topic. Subscribing twice has no further effect.
func (b *Broadcaster) Subscribe(sink Sink, topic model.Topic) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribeLocked(sink, topic)
}

// Unsubscribe removes a connection from topic
func (b *Broadcaster) Unsubscribe(connID model.ConnectionID, topic model.Topic) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.unsubscribeLocked(connID, topic)
}

// UnsubscribeAll removes a connection from every topic and returns the
// topics it was in
func (b *Broadcaster) UnsubscribeAll(connID model.ConnectionID) []model.Topic {
	b.mu.Lock()
	defer b.mu.Unlock()

	left := sortedTopics(b.byConn[connID])
	for _, topic := range left {
		b.unsubscribeLocked(connID, topic)
	}
	return left
}

// Move leaves from and joins to in a single step, so no publish observes
// the connection in both or neither. An empty from only joins.
func (b *Broadcaster) Move(sink Sink, from, to model.Topic) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if from != "" && from != to {
		b.unsubscribeLocked(sink.ID(), from)
	}
	b.subscribeLocked(sink, to)
}

// Publish delivers msg to every member of topic at the time of the call and
// returns how many accepted it. Members whose Send fails are logged and
// dropped from the topic; the rest still receive the message.
func (b *Broadcaster) Publish(topic model.Topic, msg Message) int {
	b.mu.RLock()
	members := make([]Sink, 0, len(b.topics[topic]))
	for _, sink := range b.topics[topic] {
		members = append(members, sink)
	}
	b.mu.RUnlock()

	delivered := 0
	var failed []model.ConnectionID
	for _, sink := range members {
		if err := sink.Send(msg); err != nil {
			failed = append(failed, sink.ID())
			b.logger.Warn("delivery failed",
				slog.String("topic", string(topic)),
				slog.String("connection_id", string(sink.ID())),
				slog.String("error", err.Error()))
			continue
		}
		delivered++
	}

	if len(failed) > 0 {
		b.mu.Lock()
		for _, id := range failed {
			b.unsubscribeLocked(id, topic)
		}
		b.mu.Unlock()
	}

	return delivered
}

// PublishJSON encodes v and publishes it
func (b *Broadcaster) PublishJSON(topic model.Topic, hole int, v any) (int, error) {
	msg, err := NewMessage(hole, v)
	if err != nil {
		return 0, err
	}
	return b.Publish(topic, msg), nil
}

// Snapshot returns the members of every non-empty topic
func (b *Broadcaster) Snapshot() map[model.Topic][]model.ConnectionID {
	b.mu.RLock()
	defer b.mu.RUnlock()

	snap := make(map[model.Topic][]model.ConnectionID, len(b.topics))
	for topic, members := range b.topics {
		ids := make([]model.ConnectionID, 0, len(members))
		for id := range members {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		snap[topic] = ids
	}
	return snap
}

func (b *Broadcaster) subscribeLocked(sink Sink, topic model.Topic) {
	id := sink.ID()
	members, ok := b.topics[topic]
	if !ok {
		members = make(map[model.ConnectionID]Sink)
		b.topics[topic] = members
	}
	members[id] = sink

	topics, ok := b.byConn[id]
	if !ok {
		topics = make(map[model.Topic]struct{})
		b.byConn[id] = topics
	}
	topics[topic] = struct{}{}
}

func (b *Broadcaster) unsubscribeLocked(connID model.ConnectionID, topic model.Topic) {
	if members, ok := b.topics[topic]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(b.topics, topic)
		}
	}
	if topics, ok := b.byConn[connID]; ok {
		delete(topics, topic)
		if len(topics) == 0 {
			delete(b.byConn, connID)
		}
	}
}

func sortedTopics(set map[model.Topic]struct{}) []model.Topic {
	topics := make([]model.Topic, 0, len(set))
	for t := range set {
		topics = append(topics, t)
	}
	sort.Slice(topics, func(i, j int) bool { return topics[i] < topics[j] })
	return topics
}
