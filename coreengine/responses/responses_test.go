package responses

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/doudou/flexmock/coreengine/calls"
)

func collectingBlock(seen *[][]any) calls.Block {
	return func(args ...any) any {
		*seen = append(*seen, args)
		return len(*seen)
	}
}

func TestEmptyQueueReturnsNil(t *testing.T) {
	var q Queue
	got, err := q.Next(calls.Invocation{Method: "f"})
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.True(t, q.Empty())
}

func TestReturnSequenceRepeatsLast(t *testing.T) {
	var q Queue
	q.AddReturn(Return(1))
	q.AddReturn(Return(2))
	q.AddReturn(Return(3))

	var got []any
	for i := 0; i < 5; i++ {
		v, err := q.Next(calls.Invocation{})
		require.NoError(t, err)
		got = append(got, v)
	}
	assert.Equal(t, []any{1, 2, 3, 3, 3}, got)
}

func TestReturnFuncSeesInvocation(t *testing.T) {
	var q Queue
	q.AddReturn(ReturnFunc(func(inv calls.Invocation) any { return inv.Args[0].(int) * 2 }))

	got, err := q.Next(calls.Invocation{Args: []any{21}})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
}

func TestRaiseAndThrow(t *testing.T) {
	boom := errors.New("boom")
	var q Queue
	q.AddReturn(Raise(boom))
	q.AddReturn(RaiseNew(func(msg string) error { return errors.New("custom: " + msg) }, "oops"))
	q.AddReturn(Throw("done", 5))

	_, err := q.Next(calls.Invocation{})
	assert.ErrorIs(t, err, boom)

	_, err = q.Next(calls.Invocation{})
	assert.EqualError(t, err, "custom: oops")

	_, err = q.Next(calls.Invocation{})
	var thrown *Thrown
	require.ErrorAs(t, err, &thrown)
	assert.Equal(t, "done", thrown.Tag)
	assert.Equal(t, 5, thrown.Value)
	assert.Equal(t, "uncaught throw :done", thrown.Error())
}

func TestPassThrough(t *testing.T) {
	var q Queue
	q.AddReturn(PassThrough(func(v any) any { return v.(string) + "!" }))

	inv := calls.Invocation{
		Method:   "greet",
		Original: func(calls.Invocation) (any, error) { return "hello", nil },
	}
	got, err := q.Next(inv)
	require.NoError(t, err)
	assert.Equal(t, "hello!", got)

	got, err = q.Next(calls.Invocation{Method: "greet"})
	require.NoError(t, err)
	assert.Equal(t, Undefined{}, got)
}

func TestPassThroughPropagatesOriginalError(t *testing.T) {
	var q Queue
	q.AddReturn(PassThrough(nil))
	failing := errors.New("real failure")

	_, err := q.Next(calls.Invocation{Original: func(calls.Invocation) (any, error) { return nil, failing }})
	assert.ErrorIs(t, err, failing)
}

func TestYieldWithoutBlock(t *testing.T) {
	var q Queue
	q.AddYield(1)

	_, err := q.Next(calls.Invocation{})
	assert.ErrorIs(t, err, ErrNoBlock)
}

func TestYieldPassesBlockResultThrough(t *testing.T) {
	var seen [][]any
	var q Queue
	q.AddYield(1, 2)
	q.AddYield(3)

	block := collectingBlock(&seen)
	got, err := q.Next(calls.Invocation{Block: block})
	require.NoError(t, err)
	assert.Equal(t, 1, got)

	got, err = q.Next(calls.Invocation{Block: block})
	require.NoError(t, err)
	assert.Equal(t, 2, got)

	_, err = q.Next(calls.Invocation{Block: block})
	require.NoError(t, err)
	assert.Equal(t, [][]any{{1, 2}, {3}, {3}}, seen)
}

func TestYieldAndReturnAdvanceIndependently(t *testing.T) {
	var seen [][]any
	var q Queue
	q.AddYield("a")
	q.AddYield("b")
	q.AddReturn(Return(10))
	q.AddReturn(Return(20))
	q.AddReturn(Return(30))

	block := collectingBlock(&seen)
	var got []any
	for i := 0; i < 4; i++ {
		v, err := q.Next(calls.Invocation{Block: block})
		require.NoError(t, err)
		got = append(got, v)
	}

	assert.Equal(t, []any{10, 20, 30, 30}, got)
	assert.Equal(t, [][]any{{"a"}, {"b"}, {"b"}, {"b"}}, seen)
}

func TestIterateCallsBlockPerValue(t *testing.T) {
	var seen [][]any
	var q Queue
	q.AddIterate(1, 2, 3)

	got, err := q.Next(calls.Invocation{Block: collectingBlock(&seen)})
	require.NoError(t, err)
	assert.Equal(t, 3, got)
	assert.Equal(t, [][]any{{1}, {2}, {3}}, seen)
	assert.Equal(t, "iterate(1, 2, 3)", q.String())
}

func TestQueueCursorNeverPassesLastEntry(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 8).Draw(rt, "entries")
		numCalls := rapid.IntRange(1, 20).Draw(rt, "calls")

		var q Queue
		for i := 0; i < n; i++ {
			q.AddReturn(Return(i))
		}
		for i := 0; i < numCalls; i++ {
			v, err := q.Next(calls.Invocation{})
			if err != nil {
				rt.Fatalf("unexpected error: %v", err)
			}
			want := i
			if want > n-1 {
				want = n - 1
			}
			if v != want {
				rt.Fatalf("call %d: got %v, want %d", i, v, want)
			}
		}
	})
}
