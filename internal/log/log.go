// Package log provides the leveled stdlib logger pair used throughout
// dlnaproxy: every component logs through a *Logger built here rather than
// the bare "log" package, keeping level filtering in one place.
package log

import (
	"fmt"
	"io"
	"log"
	"os"
)

// Level mirrors the repeatable -v flag: each occurrence raises the level
// by one step starting from Warn.
type Level int

const (
	Warn Level = iota
	Info
	Debug
	Trace
)

// ParseLevel maps the -v flag's occurrence count to a Level, clamped at Trace.
func ParseLevel(count int) Level {
	switch {
	case count <= 0:
		return Warn
	case count == 1:
		return Info
	case count == 2:
		return Debug
	default:
		return Trace
	}
}

// Logger is the component-facing logging handle: four *log.Logger writers
// (warn, info, debug, trace) gated by Level, generalizing the InfoLog/ErrorLog
// pair the teacher wires through its server and conf packages.
type Logger struct {
	level Level
	warn  *log.Logger
	info  *log.Logger
	debug *log.Logger
	trace *log.Logger
}

// New builds a Logger writing to w at the given level. All diagnostic
// output goes to stderr per the external-interfaces contract; w is
// normally os.Stderr but tests may substitute a buffer.
func New(w io.Writer, level Level) *Logger {
	flags := log.LstdFlags
	return &Logger{
		level: level,
		warn:  log.New(w, "dlnaproxy [warn] ", flags),
		info:  log.New(w, "dlnaproxy [info] ", flags),
		debug: log.New(w, "dlnaproxy [debug] ", flags),
		trace: log.New(w, "dlnaproxy [trace] ", flags),
	}
}

// Default builds a Logger at Warn level writing to stderr.
func Default() *Logger {
	return New(os.Stderr, Warn)
}

func (l *Logger) Warnf(format string, args ...any) {
	l.warn.Output(2, fmt.Sprintf(format, args...))
}

func (l *Logger) Infof(format string, args ...any) {
	if l.level >= Info {
		l.info.Output(2, fmt.Sprintf(format, args...))
	}
}

func (l *Logger) Debugf(format string, args ...any) {
	if l.level >= Debug {
		l.debug.Output(2, fmt.Sprintf(format, args...))
	}
}

func (l *Logger) Tracef(format string, args ...any) {
	if l.level >= Trace {
		l.trace.Output(2, fmt.Sprintf(format, args...))
	}
}
