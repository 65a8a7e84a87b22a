// Package nlog renders nest's user-facing output: plain progress lines on
// one stream, prefixed warnings and errors on another, so a CLI can keep
// stdout clean while diagnostics go to stderr.
package nlog

import (
	"fmt"
	"io"
)

// Logger splits normal output from diagnostics.
type Logger struct {
	out  io.Writer
	errs io.Writer
}

// New returns a Logger printing normal output to out and warnings/errors
// to errs.
func New(out, errs io.Writer) *Logger {
	return &Logger{out: out, errs: errs}
}

// Printf prints a formatted progress line.
func (l *Logger) Printf(format string, args ...interface{}) {
	fmt.Fprintf(l.out, format+"\n", args...)
}

// Println prints its arguments as one progress line.
func (l *Logger) Println(args ...interface{}) {
	fmt.Fprintln(l.out, args...)
}

// Warnf prints a "warning: "-prefixed line to the diagnostic stream.
func (l *Logger) Warnf(format string, args ...interface{}) {
	fmt.Fprintf(l.errs, "warning: "+format+"\n", args...)
}

// Errf prints an "error: "-prefixed line to the diagnostic stream.
func (l *Logger) Errf(format string, args ...interface{}) {
	fmt.Fprintf(l.errs, "error: "+format+"\n", args...)
}
