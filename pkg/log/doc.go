// Package log provides the platform's structured logging facade.
//
// # Overview
//
// The package exposes a small Logger interface with leveled methods and a
// simple Field type for structured context. Formatting (text or JSON) and
// outputs are pluggable; components derive tagged loggers with With.
//
// Quick start
//
//	l := log.NewLogger(
//	    log.WithLevel(log.InfoLevel),
//	    log.WithFormatter(&log.TextFormatter{}),
//	    log.WithOutput(log.NewConsoleOutput()),
//	)
//	l = l.With(log.Component("grading"))
//	l.Info("worker started", log.Str("consumer", "worker-1"))
//
// # Configuration
//
// Use ApplyConfig to build a logger from a declarative Config, supporting
// JSON or text formatting. To capture standard library logs (Pebble logs
// through stdlib log), use RedirectStdLog.
package log
