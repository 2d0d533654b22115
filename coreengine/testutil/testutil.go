// Package testutil provides shared helpers for engine tests: a capturing
// logger, recording blocks and assertion helpers over engine failures.
package testutil

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/doudou/flexmock/coreengine/calls"
	"github.com/doudou/flexmock/coreengine/failure"
)

// =============================================================================
// RECORDING LOGGER
// =============================================================================

// RecordingLogger captures log entries. It satisfies the Logger interfaces of
// the expectation and mockbus packages.
type RecordingLogger struct {
	entries []LogEntry
	mu      sync.Mutex
}

// LogEntry is one captured log call.
type LogEntry struct {
	Level   string
	Message string
	Fields  map[string]any
}

// NewRecordingLogger creates an empty RecordingLogger.
func NewRecordingLogger() *RecordingLogger {
	return &RecordingLogger{}
}

func (l *RecordingLogger) Debug(msg string, keysAndValues ...any) {
	l.log("debug", msg, keysAndValues...)
}

func (l *RecordingLogger) Info(msg string, keysAndValues ...any) {
	l.log("info", msg, keysAndValues...)
}

func (l *RecordingLogger) Warn(msg string, keysAndValues ...any) {
	l.log("warn", msg, keysAndValues...)
}

func (l *RecordingLogger) Error(msg string, keysAndValues ...any) {
	l.log("error", msg, keysAndValues...)
}

func (l *RecordingLogger) log(level, msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	fields := make(map[string]any, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if key, ok := keysAndValues[i].(string); ok {
			fields[key] = keysAndValues[i+1]
		}
	}
	l.entries = append(l.entries, LogEntry{Level: level, Message: msg, Fields: fields})
}

// Entries returns a copy of the captured entries.
func (l *RecordingLogger) Entries() []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]LogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Find returns the first entry with the given level and message.
func (l *RecordingLogger) Find(level, message string) (LogEntry, bool) {
	for _, e := range l.Entries() {
		if e.Level == level && e.Message == message {
			return e, true
		}
	}
	return LogEntry{}, false
}

// Has reports whether an entry with the given level and message exists.
func (l *RecordingLogger) Has(level, message string) bool {
	_, ok := l.Find(level, message)
	return ok
}

// Count returns the number of entries with the given message.
func (l *RecordingLogger) Count(message string) int {
	n := 0
	for _, e := range l.Entries() {
		if e.Message == message {
			n++
		}
	}
	return n
}

// Clear drops every captured entry.
func (l *RecordingLogger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
}

// =============================================================================
// RECORDING BLOCK
// =============================================================================

// BlockRecorder builds a calls.Block that records what it was yielded.
type BlockRecorder struct {
	mu     sync.Mutex
	yields [][]any
	result func(args ...any) any
}

// NewBlockRecorder creates a block that returns the value of result, or nil
// when result is nil.
func NewBlockRecorder(result func(args ...any) any) *BlockRecorder {
	return &BlockRecorder{result: result}
}

// Block returns the recording block.
func (b *BlockRecorder) Block() calls.Block {
	return func(args ...any) any {
		b.mu.Lock()
		b.yields = append(b.yields, append([]any(nil), args...))
		b.mu.Unlock()
		if b.result == nil {
			return nil
		}
		return b.result(args...)
	}
}

// Yields returns the argument lists the block received, in order.
func (b *BlockRecorder) Yields() [][]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([][]any, len(b.yields))
	copy(out, b.yields)
	return out
}

// Calls returns how many times the block ran.
func (b *BlockRecorder) Calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.yields)
}

// =============================================================================
// INVOCATION HELPERS
// =============================================================================

// Call builds an invocation of method with positional arguments only.
func Call(method string, args ...any) calls.Invocation {
	return calls.Invocation{Method: method, Args: args, Kwargs: map[string]any{}}
}

// CallKw builds an invocation of method with positional and keyword
// arguments.
func CallKw(method string, kwargs map[string]any, args ...any) calls.Invocation {
	return calls.Invocation{Method: method, Args: args, Kwargs: kwargs}
}

// =============================================================================
// ASSERTION HELPERS
// =============================================================================

// AssertCheckFailed checks that err is a check failure of the given kind
// whose message contains every fragment.
func AssertCheckFailed(err error, kind failure.CheckKind, fragments ...string) error {
	var cf *failure.CheckFailedError
	if !errors.As(err, &cf) {
		return fmt.Errorf("expected check failure '%s', got %v", kind, err)
	}
	if cf.Kind != kind {
		return fmt.Errorf("expected check failure '%s', got '%s': %s", kind, cf.Kind, cf.Message)
	}
	for _, f := range fragments {
		if !strings.Contains(cf.Message, f) {
			return fmt.Errorf("expected message to contain %q, got %q", f, cf.Message)
		}
	}
	return nil
}

// AssertVerificationFailures checks that err carries exactly n verification
// failures.
func AssertVerificationFailures(err error, n int) error {
	got := failure.Collect(err)
	if len(got) != n {
		return fmt.Errorf("expected %d verification failures, got %d: %v", n, len(got), err)
	}
	return nil
}

// AssertConfigurationError checks that err is a configuration error.
func AssertConfigurationError(err error) error {
	var ce *failure.ConfigurationError
	if !errors.As(err, &ce) {
		return fmt.Errorf("expected configuration error, got %v", err)
	}
	return nil
}
