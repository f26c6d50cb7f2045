// Package rblog provides structured logging for the tree engine using
// zerolog. It mirrors the shape of a typical component-scoped logging
// package: a global Logger, an Init entry point, and small helpers that
// attach a component name to every record a subsystem emits.
package rblog

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the package-level logger every component logger is derived
// from. It is safe for concurrent use once Init has returned.
var Logger zerolog.Logger

// Level names accepted by Config.
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Config controls how Init sets up the global Logger.
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer
}

// Init sets up the global Logger. Calling it more than once replaces the
// previous configuration.
func Init(cfg Config) {
	var level zerolog.Level
	switch cfg.Level {
	case DebugLevel:
		level = zerolog.DebugLevel
	case InfoLevel:
		level = zerolog.InfoLevel
	case WarnLevel:
		level = zerolog.WarnLevel
	case ErrorLevel:
		level = zerolog.ErrorLevel
	default:
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	output := cfg.Output
	if output == nil {
		output = io.Discard
	}

	if cfg.JSONOutput {
		Logger = zerolog.New(output).With().Timestamp().Logger()
	} else {
		Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger()
	}
}

func init() {
	// A usable default so packages that never call Init still get sane
	// behavior (quiet, since nobody asked for output) rather than a
	// zero-value Logger that panics on first use.
	Init(Config{Level: InfoLevel, JSONOutput: false, Output: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.Disabled)
}

// WithComponent returns a child logger tagged with a component field, e.g.
// "tree", "lifecycle", or "commit".
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// WithTxnID returns a child logger tagged with the transaction that
// produced the events it will emit.
func WithTxnID(txnID string) zerolog.Logger {
	return Logger.With().Str("txn_id", txnID).Logger()
}
