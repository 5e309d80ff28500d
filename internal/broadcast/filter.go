package broadcast

import "github.com/AntonioRosa312/312-SuperSeniors/internal/model"

// AcceptFunc decides at delivery time whether a connection wants a message
type AcceptFunc func(msg Message) bool

type filteredSink struct {
	Sink
	accept AcceptFunc
}

// Filtered wraps sink so messages rejected by accept are silently dropped.
// A dropped message counts as delivered.
func Filtered(sink Sink, accept AcceptFunc) Sink {
	return &filteredSink{Sink: sink, accept: accept}
}

func (f *filteredSink) ID() model.ConnectionID {
	return f.Sink.ID()
}

func (f *filteredSink) Send(msg Message) error {
	if !f.accept(msg) {
		return nil
	}
	return f.Sink.Send(msg)
}
