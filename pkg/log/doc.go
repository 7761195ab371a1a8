// Package log provides the dispatcher runtime's structured logging facade.
//
// # Overview
//
// The package exposes a small Logger interface with leveled methods and a
// simple Field type for structured context. Internally it is backed by Go's
// standard library slog via a custom handler that preserves our own
// formatter/output pipeline, so callers get slog's ecosystem without giving
// up consistent, project-specific output formatting.
//
// Quick start
//
//	l := log.NewLogger(
//	    log.WithLevel(log.InfoLevel),
//	    log.WithFormatter(&log.TextFormatter{}),
//	    log.WithOutput(log.NewConsoleOutput()),
//	)
//	l = l.With(log.Component("dispatcher"), log.Str("mode", "independent"))
//	l.Info("dispatcher started", log.Int("subscriptions", 2))
//
// # Interop
//
// To integrate with libraries expecting *log.Logger (the standard library
// type), use ToStdLogger or RedirectStdLog.
package log
