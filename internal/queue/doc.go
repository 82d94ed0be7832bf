// Package queue buffers accepted events between dispatch and flush.
//
// The queue is an ordered slice plus a running byte total that always equals
// the sum of the serialized sizes of the queued events. It enforces nothing
// itself beyond accounting; the pipeline asks WouldExceed/Full and decides
// when to flush or drop, keeping the byte cap a hard ceiling and the batch
// threshold an immediate trigger.
//
// The queue is not safe for concurrent use; the owning pipeline serializes
// all access under its own lock.
package queue
