// Package logger wraps logrus with component-scoped entries and optional
// rotating file output.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Fields is an alias kept so callers do not import logrus directly.
type Fields = logrus.Fields

// Log wraps logrus.Logger.
type Log struct {
	*logrus.Logger
}

// Entry wraps logrus.Entry.
type Entry struct {
	*logrus.Entry
}

// Options controls level, format and destination.
type Options struct {
	Level  string // debug, info, warn, error
	Format string // text or json
	Output string // stdout, stderr or a file path
	MaxAge int    // days to keep rotated files; 0 disables rotation
}

var global = New(Options{})

// New builds a logger from opts. Unknown levels fall back to info.
func New(opts Options) *Log {
	l := logrus.New()
	l.SetReportCaller(true)

	level := opts.Level
	if v := os.Getenv("LOG_LEVEL"); v != "" && level == "" {
		level = v
	}
	if lvl, err := logrus.ParseLevel(strings.ToLower(level)); err == nil && level != "" {
		l.SetLevel(lvl)
	} else {
		l.SetLevel(logrus.InfoLevel)
	}

	callerPrettyfier := func(f *runtime.Frame) (string, string) {
		return "", fmt.Sprintf("%s:%d", filepath.Base(f.File), f.Line)
	}
	switch strings.ToLower(opts.Format) {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat:  time.RFC3339,
			CallerPrettyfier: callerPrettyfier,
		})
	default:
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:    true,
			TimestampFormat:  "2006-01-02 15:04:05",
			CallerPrettyfier: callerPrettyfier,
		})
	}

	l.SetOutput(output(opts))
	return &Log{Logger: l}
}

func output(opts Options) io.Writer {
	switch opts.Output {
	case "", "stdout":
		return os.Stdout
	case "stderr":
		return os.Stderr
	}
	if opts.MaxAge > 0 {
		return &lumberjack.Logger{
			Filename: opts.Output,
			MaxAge:   opts.MaxAge,
			MaxSize:  100,
			Compress: true,
		}
	}
	f, err := os.OpenFile(opts.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open log file %s: %v, using stdout\n", opts.Output, err)
		return os.Stdout
	}
	return f
}

// Configure replaces the process logger. Call once from main.
func Configure(opts Options) *Log {
	global = New(opts)
	return global
}

// Get returns the process logger.
func Get() *Log {
	return global
}

// Discard returns a logger that drops everything; used by tests.
func Discard() *Log {
	l := New(Options{})
	l.SetOutput(io.Discard)
	return l
}

func (l *Log) WithComponent(component string) *Entry {
	return &Entry{Entry: l.Logger.WithField("component", component)}
}

func (e *Entry) WithFields(fields Fields) *Entry {
	return &Entry{Entry: e.Entry.WithFields(fields)}
}

func (e *Entry) WithField(key string, value interface{}) *Entry {
	return &Entry{Entry: e.Entry.WithField(key, value)}
}

func (e *Entry) WithError(err error) *Entry {
	return &Entry{Entry: e.Entry.WithError(err)}
}
