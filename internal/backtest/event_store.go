// Package backtest implements Engine, a strictly single-threaded
// cooperative backtest driver, its EventStore recording, and its
// PerformanceAnalyzer.
package backtest

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/coretrade/engine/pkg/types"
)

// EventStore persists every event the dispatcher drains to a JSONL file
// so an external reporter can consume the run afterward. Adapted from
// the teacher's internal/backtest/event_store.go
// RecordEvent/flush shape, simplified from a multi-file sharded
// exchange/symbol layout (this engine has no exchange-scoped market-data
// stream to shard by) down to one append-only file per run, and
// generalized from the teacher's map[string]interface{} payload to this
// engine's typed Event.
type EventStore struct {
	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
	count  int
}

// NewEventStore creates (or truncates) path and returns a store that
// appends dispatched events to it.
func NewEventStore(path string) (*EventStore, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("backtest: creating event store %s: %w", path, err)
	}
	return &EventStore{
		file:   f,
		writer: bufio.NewWriterSize(f, 64*1024),
	}, nil
}

// Record implements events.Sink: it marshals e to JSON and appends it,
// flushing every 1000 events (mirrors the teacher's periodic-flush cadence).
func (es *EventStore) Record(e types.Event) {
	es.mu.Lock()
	defer es.mu.Unlock()

	data, err := json.Marshal(e)
	if err != nil {
		return
	}
	es.writer.Write(data)
	es.writer.WriteByte('\n')
	es.count++
	if es.count%1000 == 0 {
		es.writer.Flush()
	}
}

// Close flushes any buffered events and closes the underlying file.
func (es *EventStore) Close() error {
	es.mu.Lock()
	defer es.mu.Unlock()
	if err := es.writer.Flush(); err != nil {
		return fmt.Errorf("backtest: flushing event store: %w", err)
	}
	return es.file.Close()
}
