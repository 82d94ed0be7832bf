// Package id generates the time-ordered identifiers stamped on sessions.
//
// An ID is 128 bits, encoded big-endian as [8 bytes ms_timestamp][8 bytes
// sequence], so ids sort lexicographically in creation order both as raw
// bytes and as hex strings. Collector-side storage can therefore range-scan
// sessions by time without parsing anything.
//
// The Generator is safe for concurrent use and tolerates wall-clock
// regression: ids never go backwards within one process.
package id
