package events

import (
	"container/heap"
	"sync"
	"time"

	"github.com/coretrade/engine/pkg/types"
)

// pollInterval bounds how long PopWait can block past a Push or a stop
// signal; it exists only as a fallback wakeup, not a processing cadence.
const pollInterval = 20 * time.Millisecond

// Queue is the engine's global event queue: a thread-safe priority
// queue that always pops the lowest-ranked event first, preserving FIFO
// order among events of equal rank.
type Queue struct {
	mu      sync.Mutex
	heap    eventHeap
	seq     uint64
	pushSig chan struct{}
}

type queuedEvent struct {
	event types.Event
	seq   uint64
}

type eventHeap []queuedEvent

func (h eventHeap) Len() int { return len(h) }
func (h eventHeap) Less(i, j int) bool {
	if h[i].event.Kind.Rank() != h[j].event.Kind.Rank() {
		return h[i].event.Kind.Rank() < h[j].event.Kind.Rank()
	}
	return h[i].seq < h[j].seq
}
func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *eventHeap) Push(x interface{}) {
	*h = append(*h, x.(queuedEvent))
}
func (h *eventHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// NewQueue returns an empty Queue.
func NewQueue() *Queue {
	return &Queue{pushSig: make(chan struct{}, 1)}
}

// Push enqueues an event. Safe to call from feed/notifier threads in the
// live path while the dispatcher's goroutine concurrently pops.
func (q *Queue) Push(e types.Event) {
	q.mu.Lock()
	heap.Push(&q.heap, queuedEvent{event: e, seq: q.seq})
	q.seq++
	q.mu.Unlock()

	select {
	case q.pushSig <- struct{}{}:
	default:
	}
}

// Pop removes and returns the lowest-ranked event, or ok=false if empty.
func (q *Queue) Pop() (types.Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.heap.Len() == 0 {
		return types.Event{}, false
	}
	item := heap.Pop(&q.heap).(queuedEvent)
	return item.event, true
}

// PopWait blocks until an event is available or stop is closed, in which
// case it returns ok=false. This is the live worker loop's only
// suspension point — implemented as a poll/signal loop rather than a
// single blocking receive, since Push can race a pop that finds nothing
// and must not miss the wakeup.
func (q *Queue) PopWait(stop <-chan struct{}) (types.Event, bool) {
	for {
		if e, ok := q.Pop(); ok {
			return e, true
		}
		select {
		case <-stop:
			return types.Event{}, false
		case <-q.pushSig:
		case <-time.After(pollInterval):
		}
	}
}

// Len returns the number of events currently queued.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.heap.Len()
}
