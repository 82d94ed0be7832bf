package log

import (
	"io"
	"os"
	"sync"
)

// ConsoleOutput writes formatted entries to stderr.
type ConsoleOutput struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsoleOutput returns an output writing to stderr.
func NewConsoleOutput() *ConsoleOutput {
	return &ConsoleOutput{w: os.Stderr}
}

// NewWriterOutput returns an output writing to an arbitrary writer.
// Used by tests to capture log lines.
func NewWriterOutput(w io.Writer) *ConsoleOutput {
	return &ConsoleOutput{w: w}
}

// Write writes a formatted entry.
func (o *ConsoleOutput) Write(_ *Entry, formatted []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, err := o.w.Write(formatted)
	return err
}

// Close is a no-op for console outputs.
func (o *ConsoleOutput) Close() error { return nil }

// NullOutput discards all entries.
type NullOutput struct{}

// NewNullOutput returns an output that discards everything.
func NewNullOutput() *NullOutput { return &NullOutput{} }

// Write discards the entry.
func (o *NullOutput) Write(*Entry, []byte) error { return nil }

// Close is a no-op.
func (o *NullOutput) Close() error { return nil }
