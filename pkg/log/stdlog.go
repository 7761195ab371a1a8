package log

import (
	stdlog "log"
	"strings"
)

// stdWriter adapts a Logger to io.Writer so the standard library's *log.Logger
// can write through it.
type stdWriter struct {
	logger Logger
}

func (w stdWriter) Write(p []byte) (int, error) {
	w.logger.Info(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

// RedirectStdLog points the standard library's package-level logger at l,
// so third-party code that only knows log.Printf still lands in the
// structured pipeline.
func RedirectStdLog(l Logger) {
	stdlog.SetFlags(0)
	stdlog.SetOutput(stdWriter{logger: l})
}

// ToStdLogger returns a *log.Logger backed by l, for APIs that require the
// standard library type directly.
func ToStdLogger(l Logger) *stdlog.Logger {
	return stdlog.New(stdWriter{logger: l}, "", 0)
}
