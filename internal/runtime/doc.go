// Package runtime wires the agent's durable resources for one process: the
// Pebble identity store and the identity manager built over it.
//
// The pipeline owns a single Runtime; opening it twice against the same data
// directory from the same process is a caller bug (Pebble will refuse the
// second open), which matches the one-pipeline-per-process ownership rule.
package runtime
