package events

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/coretrade/engine/pkg/types"
)

// EnginePublisher is the capability NatsSink needs to mirror a dispatched
// event onto a message bus. Satisfied by *nats.Client.
type EnginePublisher interface {
	PublishEngineEvent(kind string, data interface{}) error
}

// NatsSink mirrors every event the live Dispatcher drains onto
// JetStream so an external subscriber can follow a live run, grounded
// on the teacher's pkg/nats.Client publish-by-subject style. A publish
// failure is logged, not retried or surfaced to the dispatcher: a
// dropped mirror message must never stall the live event loop.
type NatsSink struct {
	publisher EnginePublisher
	logger    *logrus.Entry
}

func NewNatsSink(publisher EnginePublisher) *NatsSink {
	return &NatsSink{
		publisher: publisher,
		logger:    logrus.WithField("component", "events.nats_sink"),
	}
}

func (s *NatsSink) Record(e types.Event) {
	kind := strings.ToLower(e.Kind.String())
	if err := s.publisher.PublishEngineEvent(kind, e); err != nil {
		s.logger.WithError(err).WithField("kind", kind).Warn("failed to mirror event")
	}
}

// MultiSink fans one event out to every Sink in order, so the live path
// can run an EventStore, a NatsSink, and a notification sink side by
// side (Dispatcher only holds one Sink).
type MultiSink struct {
	sinks []Sink
}

func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

func (m *MultiSink) Record(e types.Event) {
	for _, s := range m.sinks {
		s.Record(e)
	}
}
