package mocks

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/AntonioRosa312/312-SuperSeniors/internal/broadcast"
	"github.com/AntonioRosa312/312-SuperSeniors/internal/model"
)

// Sink is a broadcast.Sink that records every accepted message
type Sink struct {
	id model.ConnectionID

	mu       sync.Mutex
	messages []broadcast.Message
	fail     bool
}

// Ensure Sink implements broadcast.Sink
var _ broadcast.Sink = (*Sink)(nil)

// NewSink creates a recording sink for a connection id
func NewSink(id model.ConnectionID) *Sink {
	return &Sink{id: id}
}

// ID returns the connection id
func (s *Sink) ID() model.ConnectionID {
	return s.id
}

// Send records msg, or fails if SetFailing(true) was called
func (s *Sink) Send(msg broadcast.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return fmt.Errorf("%w: sink %s closed", model.ErrDeliveryFailure, s.id)
	}
	s.messages = append(s.messages, msg)
	return nil
}

// SetFailing makes subsequent sends fail
func (s *Sink) SetFailing(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = fail
}

// Messages returns a copy of the recorded messages
func (s *Sink) Messages() []broadcast.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]broadcast.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Count returns the number of recorded messages
func (s *Sink) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// Reset drops the recorded messages
func (s *Sink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
}

// Frames decodes every recorded payload as a JSON object
func (s *Sink) Frames() []map[string]any {
	msgs := s.Messages()
	frames := make([]map[string]any, 0, len(msgs))
	for _, m := range msgs {
		var f map[string]any
		if err := json.Unmarshal(m.Payload, &f); err != nil {
			continue
		}
		frames = append(frames, f)
	}
	return frames
}

// FramesOfType returns the recorded frames whose type matches t
func (s *Sink) FramesOfType(t model.MessageType) []map[string]any {
	var out []map[string]any
	for _, f := range s.Frames() {
		if f["type"] == string(t) {
			out = append(out, f)
		}
	}
	return out
}

// Last decodes the most recent message of type t into v and reports
// whether one was found
func (s *Sink) Last(t model.MessageType, v any) bool {
	msgs := s.Messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		var head struct {
			Type model.MessageType `json:"type"`
		}
		if err := json.Unmarshal(msgs[i].Payload, &head); err != nil || head.Type != t {
			continue
		}
		return json.Unmarshal(msgs[i].Payload, v) == nil
	}
	return false
}
