// Package responses produces the result of a served call from the return and
// yield schedules of an expectation.
package responses

import (
	"errors"
	"fmt"
	"strings"

	"github.com/doudou/flexmock/coreengine/calls"
	"github.com/doudou/flexmock/coreengine/matching"
)

// ErrNoBlock is returned when a yield is due but the call has no block.
var ErrNoBlock = errors.New("no block given to yield to")

// Undefined is the result of a pass-through on a pure mock and of an explicit
// "return undefined" action.
type Undefined struct{}

func (Undefined) String() string { return "undefined" }

// Thrown is the non-local exit produced by a throw action.
type Thrown struct {
	Tag   string
	Value any
}

func (t *Thrown) Error() string {
	return fmt.Sprintf("uncaught throw :%s", t.Tag)
}

// =============================================================================
// RETURN ACTIONS
// =============================================================================

// Action produces the result of one served call.
type Action interface {
	Apply(inv calls.Invocation) (any, error)
	String() string
}

type returnAction struct{ value any }

func (a returnAction) Apply(calls.Invocation) (any, error) { return a.value, nil }
func (a returnAction) String() string                     { return "return " + matching.Render(a.value) }

// Return always produces value.
func Return(value any) Action { return returnAction{value: value} }

type computedAction struct {
	fn func(inv calls.Invocation) any
}

func (a computedAction) Apply(inv calls.Invocation) (any, error) { return a.fn(inv), nil }
func (a computedAction) String() string                         { return "return {...}" }

// ReturnFunc computes the result from the call itself.
func ReturnFunc(fn func(inv calls.Invocation) any) Action { return computedAction{fn: fn} }

type raiseAction struct {
	err     error
	factory func(message string) error
	message string
}

func (a raiseAction) Apply(calls.Invocation) (any, error) {
	if a.factory != nil {
		return nil, a.factory(a.message)
	}
	return nil, a.err
}

func (a raiseAction) String() string {
	if a.factory != nil {
		return "raise " + a.message
	}
	return "raise " + a.err.Error()
}

// Raise makes the call fail with err.
func Raise(err error) Action { return raiseAction{err: err} }

// RaiseNew builds a fresh error from factory and message on every call.
func RaiseNew(factory func(message string) error, message string) Action {
	return raiseAction{factory: factory, message: message}
}

type throwAction struct {
	tag   string
	value any
}

func (a throwAction) Apply(calls.Invocation) (any, error) {
	return nil, &Thrown{Tag: a.tag, Value: a.value}
}

func (a throwAction) String() string { return "throw :" + a.tag }

// Throw makes the call exit with a *Thrown carrying tag and value.
func Throw(tag string, value any) Action { return throwAction{tag: tag, value: value} }

type passThroughAction struct {
	transform func(any) any
}

func (a passThroughAction) Apply(inv calls.Invocation) (any, error) {
	if inv.Original == nil {
		return Undefined{}, nil
	}
	result, err := inv.Original(inv)
	if err != nil {
		return result, err
	}
	if a.transform != nil {
		result = a.transform(result)
	}
	return result, nil
}

func (a passThroughAction) String() string { return "pass through" }

// PassThrough invokes the original implementation, optionally transforming
// its result. Pure mocks produce Undefined.
func PassThrough(transform func(any) any) Action { return passThroughAction{transform: transform} }

// =============================================================================
// YIELD ENTRIES
// =============================================================================

type yieldEntry struct {
	values  []any
	iterate bool
}

func (y yieldEntry) apply(block calls.Block) any {
	if !y.iterate {
		return block(y.values...)
	}
	var last any
	for _, v := range y.values {
		last = block(v)
	}
	return last
}

func (y yieldEntry) String() string {
	parts := make([]string, len(y.values))
	for i, v := range y.values {
		parts[i] = matching.Render(v)
	}
	if y.iterate {
		return "iterate(" + strings.Join(parts, ", ") + ")"
	}
	return "yield(" + strings.Join(parts, ", ") + ")"
}

// =============================================================================
// QUEUE
// =============================================================================

// Queue holds the return and yield schedules of one expectation. Each has its
// own cursor; once a cursor reaches the last entry that entry repeats.
type Queue struct {
	returns []Action
	ri      int
	yields  []yieldEntry
	yi      int
}

// AddReturn appends a return-queue entry.
func (q *Queue) AddReturn(a Action) {
	q.returns = append(q.returns, a)
}

// AddYield appends a yield-queue entry calling the block once with values.
func (q *Queue) AddYield(values ...any) {
	q.yields = append(q.yields, yieldEntry{values: append([]any(nil), values...)})
}

// AddIterate appends a yield-queue entry calling the block once per value.
func (q *Queue) AddIterate(values ...any) {
	q.yields = append(q.yields, yieldEntry{values: append([]any(nil), values...), iterate: true})
}

// Empty reports whether neither schedule holds anything.
func (q *Queue) Empty() bool {
	return len(q.returns) == 0 && len(q.yields) == 0
}

// Next produces the result of one served call.
//
// A due yield runs first and needs a block. The return schedule then decides
// the result; when it is empty the block's own result is passed through, and
// when no block ran either the result is nil.
func (q *Queue) Next(inv calls.Invocation) (any, error) {
	var blockResult any
	if len(q.yields) > 0 {
		entry := q.yields[q.yi]
		if q.yi < len(q.yields)-1 {
			q.yi++
		}
		if inv.Block == nil {
			return nil, ErrNoBlock
		}
		blockResult = entry.apply(inv.Block)
	}

	if len(q.returns) > 0 {
		action := q.returns[q.ri]
		if q.ri < len(q.returns)-1 {
			q.ri++
		}
		return action.Apply(inv)
	}
	return blockResult, nil
}

func (q *Queue) String() string {
	var parts []string
	for _, y := range q.yields {
		parts = append(parts, y.String())
	}
	for _, r := range q.returns {
		parts = append(parts, r.String())
	}
	return strings.Join(parts, ", ")
}
