package queue

import (
	"github.com/Watchlog-monitoring/watchlog-rum-go/pkg/event"
)

// Queue is an ordered buffer of accepted events awaiting transport.
type Queue struct {
	maxBytes int
	batchMax int

	events []*event.Event
	bytes  int
}

// New returns a queue with the given batch-size and byte-cap thresholds.
func New(batchMax, maxBytes int) *Queue {
	return &Queue{batchMax: batchMax, maxBytes: maxBytes}
}

// WouldExceed reports whether adding size bytes would break the byte cap.
func (q *Queue) WouldExceed(size int) bool {
	return q.maxBytes > 0 && q.bytes+size > q.maxBytes
}

// Push appends an event whose serialized size is size. Ordering follows call
// order; the caller has already assigned sequence numbers in that order.
func (q *Queue) Push(ev *event.Event, size int) {
	q.events = append(q.events, ev)
	q.bytes += size
}

// Full reports whether the batch-size threshold has been reached.
func (q *Queue) Full() bool {
	return q.batchMax > 0 && len(q.events) >= q.batchMax
}

// Len returns the number of queued events.
func (q *Queue) Len() int { return len(q.events) }

// Bytes returns the running serialized byte total.
func (q *Queue) Bytes() int { return q.bytes }

// Drain atomically takes the entire queue contents and resets the buffer and
// byte counter to empty. Events enqueued after Drain returns start a fresh
// queue; a slow or failing send can never re-queue a drained event.
func (q *Queue) Drain() []*event.Event {
	if len(q.events) == 0 {
		return nil
	}
	out := q.events
	q.events = nil
	q.bytes = 0
	return out
}
