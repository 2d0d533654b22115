package testutil

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doudou/flexmock/coreengine/failure"
)

// =============================================================================
// LOGGER TESTS
// =============================================================================

func TestRecordingLogger(t *testing.T) {
	logger := NewRecordingLogger()

	logger.Info("dispatch_selected", "mock", "dog", "call", "bark()")
	logger.Warn("verification_failed", "failures", 2)
	logger.Debug("odd", "dangling")

	entries := logger.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "info", entries[0].Level)
	assert.Equal(t, "dog", entries[0].Fields["mock"])
	assert.Empty(t, entries[2].Fields)

	assert.True(t, logger.Has("warn", "verification_failed"))
	assert.False(t, logger.Has("error", "verification_failed"))
	assert.Equal(t, 1, logger.Count("odd"))

	logger.Clear()
	assert.Empty(t, logger.Entries())
}

// =============================================================================
// BLOCK TESTS
// =============================================================================

func TestBlockRecorder(t *testing.T) {
	rec := NewBlockRecorder(func(args ...any) any { return len(args) })
	block := rec.Block()

	assert.Equal(t, 2, block(1, 2))
	assert.Equal(t, 0, block())

	assert.Equal(t, 2, rec.Calls())
	assert.Equal(t, [][]any{{1, 2}, nil}, rec.Yields())
}

func TestBlockRecorderNilResult(t *testing.T) {
	rec := NewBlockRecorder(nil)
	assert.Nil(t, rec.Block()("x"))
}

// =============================================================================
// ASSERTION TESTS
// =============================================================================

func TestAssertCheckFailed(t *testing.T) {
	err := failure.NewCheckFailedError(failure.CheckOrder, "dog", "method 'bark' called out of order")

	assert.NoError(t, AssertCheckFailed(err, failure.CheckOrder, "out of order", "bark"))
	assert.Error(t, AssertCheckFailed(err, failure.CheckCount))
	assert.Error(t, AssertCheckFailed(err, failure.CheckOrder, "missing fragment"))
	assert.Error(t, AssertCheckFailed(errors.New("plain"), failure.CheckOrder))
}

func TestAssertVerificationFailures(t *testing.T) {
	err := failure.VerificationErrors{
		failure.NewVerificationFailedError("m", "a()", "once", 0, "a"),
		failure.NewVerificationFailedError("m", "b()", "once", 0, "b"),
	}
	assert.NoError(t, AssertVerificationFailures(err, 2))
	assert.Error(t, AssertVerificationFailures(err, 1))
	assert.NoError(t, AssertVerificationFailures(nil, 0))
}

func TestAssertConfigurationError(t *testing.T) {
	assert.NoError(t, AssertConfigurationError(failure.NewConfigurationError("bad %s", "pattern")))
	assert.Error(t, AssertConfigurationError(errors.New("plain")))
}

func TestCallHelpers(t *testing.T) {
	inv := Call("bark", 1, 2)
	assert.Equal(t, "bark", inv.Method)
	assert.Equal(t, []any{1, 2}, inv.Args)
	assert.NotNil(t, inv.Kwargs)

	inv = CallKw("fetch", map[string]any{"timeout": 3}, "url")
	assert.Equal(t, 3, inv.Kwargs["timeout"])
}
