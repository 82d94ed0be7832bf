// Package transport assembles outbound payloads and ships them to the
// collector.
//
// Two senders exist. The keep-alive sender is the normal path: JSON POST
// with the api key both in the X-Watchlog-Key header and in the body. The
// beacon sender is the teardown path: a single best-effort attempt with a
// short hard timeout and no custom headers, so the body copy of the api key
// is the only authentication. A failed beacon is never retried on another
// channel; the batch was already drained and a second transport would risk
// double delivery.
//
// Delivery is best-effort throughout: callers fire sends and never observe
// the outcome beyond a debug log line.
package transport
