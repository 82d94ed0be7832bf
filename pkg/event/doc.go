// Package event defines the telemetry event model shared by the pipeline,
// collectors, and the public SDK surface.
//
// An Event is immutable once dispatched: the envelope (ids, timestamp,
// sequence number) is stamped exactly once, and the Context is a snapshot
// captured synchronously at construction time, so later mutation of
// caller-held state never changes an already-queued event. Sequence numbers
// are the only ordering guarantee; wall-clock timestamps are informational.
package event
