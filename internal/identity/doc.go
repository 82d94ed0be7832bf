// Package identity owns the agent's durable visitor identity: the device id
// and the current session.
//
// The device id is created once per device profile and never mutated or
// expired. A session is a bounded-lifetime identity with an immutable
// sampling decision: the Bernoulli draw happens exactly once at creation and
// survives any number of activity renewals, so sampling-derived metrics are
// not biased by session length.
//
// Every storage or parse fault fails open: a corrupt or unreadable record is
// treated as absent and a fresh (possibly unpersisted) value is returned.
// Identity never surfaces an error to the host application.
package identity
