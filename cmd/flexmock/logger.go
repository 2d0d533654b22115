package main

import (
	"io"
	"log"
	"strings"

	"github.com/doudou/flexmock/mockbus"
)

const (
	levelDebug = iota
	levelInfo
	levelWarn
	levelError
)

// stdLogger implements mockbus.Logger using standard library log.
type stdLogger struct {
	out   *log.Logger
	level int
}

var _ mockbus.Logger = (*stdLogger)(nil)

func newStdLogger(w io.Writer, level string) *stdLogger {
	return &stdLogger{out: log.New(w, "", log.LstdFlags), level: parseLevel(level)}
}

func parseLevel(level string) int {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return levelDebug
	case "WARN", "WARNING":
		return levelWarn
	case "ERROR":
		return levelError
	default:
		return levelInfo
	}
}

func (l *stdLogger) Debug(msg string, keysAndValues ...any) {
	if l.level <= levelDebug {
		l.out.Printf("[DEBUG] %s %v", msg, keysAndValues)
	}
}

func (l *stdLogger) Info(msg string, keysAndValues ...any) {
	if l.level <= levelInfo {
		l.out.Printf("[INFO] %s %v", msg, keysAndValues)
	}
}

func (l *stdLogger) Warn(msg string, keysAndValues ...any) {
	if l.level <= levelWarn {
		l.out.Printf("[WARN] %s %v", msg, keysAndValues)
	}
}

func (l *stdLogger) Error(msg string, keysAndValues ...any) {
	l.out.Printf("[ERROR] %s %v", msg, keysAndValues)
}
