package failure

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckFailedErrorPrefixesMockName(t *testing.T) {
	err := NewCheckFailedError(CheckNoMatch, "greeter", "no matching handler found for hi(1)")
	assert.Equal(t, "in mock 'greeter': no matching handler found for hi(1)", err.Error())
	assert.Equal(t, "no matching handler found for hi(1)", err.Message)

	anon := NewCheckFailedError(CheckCount, "", "boom")
	assert.Equal(t, "boom", anon.Error())
}

func TestIsCheckFailed(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NewCheckFailedError(CheckOrder, "m", "out of order"))

	assert.True(t, IsCheckFailed(err, ""))
	assert.True(t, IsCheckFailed(err, CheckOrder))
	assert.False(t, IsCheckFailed(err, CheckCount))
	assert.False(t, IsCheckFailed(errors.New("plain"), ""))
}

func TestConfigurationErrorUnwrap(t *testing.T) {
	cause := errors.New("bad regexp")
	err := &ConfigurationError{Message: "cannot compile pattern", Cause: cause}

	assert.Equal(t, "cannot compile pattern: bad regexp", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "cannot interpret parameter type weird", NewConfigurationError("cannot interpret parameter type %s", "weird").Error())
}

func TestVerificationErrorsAggregate(t *testing.T) {
	a := NewVerificationFailedError("m", "a().once", "once", 0, "method 'a()' called incorrect number of times")
	b := NewVerificationFailedError("m", "b().twice", "twice", 1, "method 'b()' called incorrect number of times")
	var err error = VerificationErrors{a, b}

	assert.Contains(t, err.Error(), "a()")
	assert.Contains(t, err.Error(), "b()")

	var vf *VerificationFailedError
	require.True(t, errors.As(err, &vf))
	assert.Equal(t, "a().once", vf.Expectation)
}

func TestCollect(t *testing.T) {
	a := NewVerificationFailedError("m", "a()", "once", 0, "a")
	b := NewVerificationFailedError("n", "b()", "once", 0, "b")

	assert.Nil(t, Collect(nil))
	assert.Len(t, Collect(a), 1)
	assert.Len(t, Collect(VerificationErrors{a, b}), 2)
	assert.Len(t, Collect(errors.Join(a, VerificationErrors{b}, errors.New("other"))), 2)
	assert.Len(t, Collect(fmt.Errorf("ctx: %w", a)), 1)
	assert.Nil(t, Collect(errors.New("other")))
}
