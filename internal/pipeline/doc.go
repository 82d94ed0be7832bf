// Package pipeline implements the agent's event pipeline: envelope stamping
// and dispatch, the transform/drop hook chain, the bounded queue with its
// flush triggers, the periodic/teardown flush scheduler, collector
// lifecycle, and the initial-view race.
//
// One pipeline instance owns the session, the queue, and the resolved
// configuration. All state mutation happens under a single lock, the Go
// rendition of the original single-threaded event loop; network sends
// operate on already-drained batches and never touch pipeline state.
//
// The pipeline absorbs every internal fault. Storage problems fail open,
// transport problems lose at most one drained batch, hook panics drop at
// most one event. Nothing here ever propagates an error into host code.
package pipeline
