// Package log provides the structured logging facade used across the
// watchlog-rum agent.
//
// # Overview
//
// The package exposes a small Logger interface with leveled methods and a
// simple Field type for structured context. Internally it is backed by Go's
// standard library slog via a custom handler that routes records through the
// configured formatter and outputs, so the agent keeps one consistent log
// shape whether it runs embedded in a host application or as the CLI tool.
//
// Quick start
//
//	l := log.NewLogger(
//	    log.WithLevel(log.InfoLevel),
//	    log.WithFormatter(&log.TextFormatter{}),
//	    log.WithOutput(log.NewConsoleOutput()),
//	)
//	l = l.With(log.Component("pipeline"), log.Str("session", sid))
//	l.Info("flush complete", log.Int("events", n))
//
// # Configuration
//
// Use ApplyConfig to build a logger from a declarative Config supporting JSON
// or text formatting. ParseLevel converts the usual level names.
//
// # Interop
//
// RedirectStdLog points the standard library logger (used by Pebble among
// others) at a Logger so third-party output lands in the same stream.
package log
