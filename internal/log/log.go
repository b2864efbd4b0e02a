// Package log provides the default implementation of the plugin.Logger
// port, wrapping github.com/charmbracelet/log.
package log

import (
	"io"
	"os"

	charmlog "github.com/charmbracelet/log"

	"github.com/forgeci/plugincore/internal/plugin"
)

// Logger adapts a charmbracelet/log.Logger to the plugin.Logger port. It
// carries no package-level mutable state; callers construct one and inject
// it wherever a plugin.Logger is required.
type Logger struct {
	base *charmlog.Logger
}

var _ plugin.Logger = (*Logger)(nil)

// New returns a Logger writing to w at info level.
func New(w io.Writer) *Logger {
	l := charmlog.New(w)
	l.SetLevel(charmlog.InfoLevel)
	l.SetReportTimestamp(true)
	return &Logger{base: l}
}

// NewDefault returns a Logger writing to stderr, suitable as the process
// default.
func NewDefault() *Logger {
	return New(os.Stderr)
}

// NewSilent returns a Logger that discards all output, for use in tests.
func NewSilent() *Logger {
	l := New(io.Discard)
	l.base.SetLevel(charmlog.FatalLevel + 1)
	return l
}

// WithPrefix returns a derived Logger that tags every record with prefix
// (e.g. a plugin id), mirroring charmbracelet/log's sub-logger idiom.
func (l *Logger) WithPrefix(prefix string) *Logger {
	return &Logger{base: l.base.WithPrefix(prefix)}
}

// SetLevel adjusts the minimum level the logger emits.
func (l *Logger) SetLevel(level charmlog.Level) {
	l.base.SetLevel(level)
}

func (l *Logger) Debug(msg string, keyvals ...any) {
	l.base.Debug(msg, keyvals...)
}

func (l *Logger) Info(msg string, keyvals ...any) {
	l.base.Info(msg, keyvals...)
}

func (l *Logger) Warn(msg string, keyvals ...any) {
	l.base.Warn(msg, keyvals...)
}

func (l *Logger) Error(msg string, keyvals ...any) {
	l.base.Error(msg, keyvals...)
}
