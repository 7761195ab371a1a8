package log

import (
	"io"
	"os"
)

// ConsoleOutput writes formatted entries to stdout, or to stderr for
// Warn level and above.
type ConsoleOutput struct {
	stdout io.Writer
	stderr io.Writer
}

// NewConsoleOutput returns a ConsoleOutput writing to the process's
// standard streams.
func NewConsoleOutput() *ConsoleOutput {
	return &ConsoleOutput{stdout: os.Stdout, stderr: os.Stderr}
}

// Write implements Output.
func (c *ConsoleOutput) Write(entry *Entry, formatted []byte) error {
	w := c.stdout
	if entry.Level >= WarnLevel {
		w = c.stderr
	}
	_, err := w.Write(formatted)
	return err
}

// Close implements Output.
func (c *ConsoleOutput) Close() error { return nil }

// NullOutput discards every entry; useful in tests that only assert on
// return values, not log side effects.
type NullOutput struct{}

// Write implements Output.
func (NullOutput) Write(*Entry, []byte) error { return nil }

// Close implements Output.
func (NullOutput) Close() error { return nil }
