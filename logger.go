package onstomp

import (
	"fmt"

	"github.com/rs/zerolog"
)

var (
	// NilLogger is an empty or no-op logger.
	NilLogger = Logger((*nilLogger)(nil))

	// StdoutLogger logs to standard output.
	StdoutLogger = Logger(stdoutLogger{})
)

// Logger is the interface require for logging.
type Logger interface {
	// Infof logs an informational message using a fmt.Sprintf syntax.
	Infof(fmt string, args ...interface{})
}

type nilLogger struct{}

func (l *nilLogger) Infof(f string, args ...interface{}) {}

type stdoutLogger struct{}

func (l stdoutLogger) Infof(f string, args ...interface{}) {
	fmt.Printf(f+"\n", args...)
}

// ZeroLogger adapts a zerolog.Logger to the Logger interface.
func ZeroLogger(log zerolog.Logger) Logger {
	return zeroLogger{log: log}
}

type zeroLogger struct {
	log zerolog.Logger
}

func (l zeroLogger) Infof(f string, args ...interface{}) {
	l.log.Info().Msgf(f, args...)
}
