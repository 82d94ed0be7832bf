package log

import (
	"fmt"
	stdlog "log"
)

// Config declaratively describes a logger for ApplyConfig.
type Config struct {
	// Level is one of debug|info|warn|error. Empty means info.
	Level string `json:"level"`
	// Format is one of text|json. Empty means text.
	Format string `json:"format"`
}

// ApplyConfig builds a Logger from a declarative Config.
func ApplyConfig(cfg *Config) (Logger, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	level := InfoLevel
	if cfg.Level != "" {
		parsed, err := ParseLevel(cfg.Level)
		if err != nil {
			return nil, err
		}
		level = parsed
	}
	var formatter Formatter
	switch cfg.Format {
	case "", "text":
		formatter = &TextFormatter{}
	case "json":
		formatter = &JSONFormatter{}
	default:
		return nil, fmt.Errorf("log: unknown format %q", cfg.Format)
	}
	return NewLogger(WithLevel(level), WithFormatter(formatter), WithOutput(NewConsoleOutput())), nil
}

// stdWriter adapts a Logger to io.Writer for stdlib log redirection.
type stdWriter struct{ l Logger }

func (w stdWriter) Write(p []byte) (int, error) {
	msg := string(p)
	if n := len(msg); n > 0 && msg[n-1] == '\n' {
		msg = msg[:n-1]
	}
	w.l.Info(msg, Component("stdlog"))
	return len(p), nil
}

// RedirectStdLog points the standard library's default logger at l so output
// from dependencies lands in the same stream.
func RedirectStdLog(l Logger) {
	stdlog.SetFlags(0)
	stdlog.SetOutput(stdWriter{l: l})
}
