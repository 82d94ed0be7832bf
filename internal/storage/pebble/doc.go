// Package pebblestore wraps a Pebble database for the agent's durable
// identity state (device id and current session record).
//
// The wrapper is intentionally narrow: Get/Set/Delete on small keys, with a
// configurable fsync policy. Identity writes are rare (session creation,
// activity refresh) so the default policy syncs the WAL on every commit; the
// interval mode exists for hosts that refresh activity at high frequency.
//
// All values returned by Get are copies and safe to retain.
package pebblestore
