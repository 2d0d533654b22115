// Package expectation holds the expectations registered for one method of a
// mock and routes each call to the expectation that serves it.
package expectation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/doudou/flexmock/coreengine/calls"
	"github.com/doudou/flexmock/coreengine/counts"
	"github.com/doudou/flexmock/coreengine/failure"
	"github.com/doudou/flexmock/coreengine/matching"
	"github.com/doudou/flexmock/coreengine/ordering"
	"github.com/doudou/flexmock/coreengine/responses"
	"github.com/doudou/flexmock/coreengine/signature"
)

// Expectation is one registered behavior clause of a method.
//
// Builder methods return the receiver so declarations can be chained. They
// must not be called once the mock is in use.
type Expectation struct {
	director *Director

	args      []any
	kwargs    map[string]any
	kwMatcher matching.Matcher
	block     calls.BlockRequirement

	count     counts.Constraint
	countMode counts.Mode

	globally bool
	orderCtx *ordering.Context
	orderSeq int

	isDefault   bool
	modifiers   []string
	responses   responses.Queue
	invocations int
	signature   *signature.Validator

	// err is the first declaration error; it fails every call and the
	// verification of the expectation.
	err error
}

var _ calls.Handler = (*Expectation)(nil)

func newExpectation(d *Director) *Expectation {
	return &Expectation{director: d, count: counts.Default()}
}

// =============================================================================
// ARGUMENT CONSTRAINTS
// =============================================================================

// With constrains the positional arguments. Unless the director was built
// with LooseKeywords, keyword arguments must then be absent unless WithKwargs
// or WithAnyKwargs is also used.
func (e *Expectation) With(args ...any) *Expectation {
	e.args = append([]any{}, args...)
	if !e.director.looseKw && e.kwargs == nil && e.kwMatcher == nil {
		e.kwargs = map[string]any{}
	}
	return e
}

// WithNoArgs accepts only calls without any argument.
func (e *Expectation) WithNoArgs() *Expectation {
	e.args = []any{}
	e.kwargs = map[string]any{}
	e.kwMatcher = nil
	return e
}

// WithAnyArgs removes every positional and keyword constraint.
func (e *Expectation) WithAnyArgs() *Expectation {
	e.args = nil
	e.kwargs = nil
	e.kwMatcher = nil
	return e
}

// WithKwargs constrains the keyword arguments to exactly the given keys,
// each value matched as a pattern.
func (e *Expectation) WithKwargs(kwargs map[string]any) *Expectation {
	e.kwargs = make(map[string]any, len(kwargs))
	for k, v := range kwargs {
		e.kwargs[k] = v
	}
	e.kwMatcher = nil
	return e
}

// WithKwargsMatching applies m to the whole keyword map, typically an Hsh.
func (e *Expectation) WithKwargsMatching(m matching.Matcher) *Expectation {
	e.kwargs = nil
	e.kwMatcher = m
	return e
}

// WithAnyKwargs removes the keyword constraint.
func (e *Expectation) WithAnyKwargs() *Expectation {
	e.kwargs = nil
	e.kwMatcher = nil
	return e
}

// WithBlock accepts only calls passing a block.
func (e *Expectation) WithBlock() *Expectation {
	e.block = calls.BlockRequired
	e.modifiers = append(e.modifiers, ".with_block")
	return e
}

// WithNoBlock accepts only calls without a block.
func (e *Expectation) WithNoBlock() *Expectation {
	e.block = calls.BlockForbidden
	e.modifiers = append(e.modifiers, ".with_no_block")
	return e
}

// WithOptionalBlock accepts calls with or without a block.
func (e *Expectation) WithOptionalBlock() *Expectation {
	e.block = calls.BlockOptional
	e.modifiers = append(e.modifiers, ".with_optional_block")
	return e
}

// WithSignature attaches a shape check run on every served call.
func (e *Expectation) WithSignature(v *signature.Validator) *Expectation {
	e.signature = v
	e.modifiers = append(e.modifiers, "."+v.String())
	return e
}

// =============================================================================
// COUNT CONSTRAINTS
// =============================================================================

// Times requires n matching calls (or bounds them after AtLeast/AtMost).
func (e *Expectation) Times(n int) *Expectation {
	return e.applyCount(n, fmt.Sprintf(".times(%d)", n))
}

// Once is Times(1).
func (e *Expectation) Once() *Expectation { return e.applyCount(1, ".once") }

// Twice is Times(2).
func (e *Expectation) Twice() *Expectation { return e.applyCount(2, ".twice") }

// Never is Times(0).
func (e *Expectation) Never() *Expectation { return e.applyCount(0, ".never") }

// ZeroOrMoreTimes removes every count constraint.
func (e *Expectation) ZeroOrMoreTimes() *Expectation {
	if n := len(e.modifiers); n > 0 && e.countMode != counts.Exact {
		e.modifiers = e.modifiers[:n-1]
	}
	e.count = counts.Default()
	e.countMode = counts.Exact
	e.modifiers = append(e.modifiers, ".zero_or_more_times")
	return e
}

// AtLeast makes the next count a minimum.
func (e *Expectation) AtLeast() *Expectation {
	e.countMode = counts.AtLeast
	e.modifiers = append(e.modifiers, ".at_least")
	return e
}

// AtMost makes the next count a maximum.
func (e *Expectation) AtMost() *Expectation {
	e.countMode = counts.AtMost
	e.modifiers = append(e.modifiers, ".at_most")
	return e
}

func (e *Expectation) applyCount(n int, modifier string) *Expectation {
	count, err := e.count.Apply(e.countMode, n)
	if err != nil {
		e.fail(err)
	} else {
		e.count = count
	}
	e.countMode = counts.Exact
	e.modifiers = append(e.modifiers, modifier)
	return e
}

func (e *Expectation) fail(err error) {
	if e.err == nil {
		e.err = err
		e.director.warn("expectation_invalid", "method", e.director.method, "error", err.Error())
	}
}

// =============================================================================
// ORDERING
// =============================================================================

// Globally makes a following Ordered or OrderedIn use the ordering domain
// shared by every mock of the scope.
func (e *Expectation) Globally() *Expectation {
	e.globally = true
	return e
}

// Ordered requires this expectation to be called after every ordered
// expectation defined before it.
func (e *Expectation) Ordered() *Expectation {
	return e.ordered("")
}

// OrderedIn is Ordered where every expectation of group shares one slot.
func (e *Expectation) OrderedIn(group string) *Expectation {
	return e.ordered(group)
}

func (e *Expectation) ordered(group string) *Expectation {
	ctx := e.director.local
	prefix := ""
	if e.globally {
		ctx = e.director.global
		prefix = ".globally"
	}
	e.orderCtx = ctx
	e.orderSeq = ctx.Allocate(group)
	if group == "" {
		e.modifiers = append(e.modifiers, prefix+".ordered")
	} else {
		e.modifiers = append(e.modifiers, fmt.Sprintf("%s.ordered(%s)", prefix, group))
	}
	return e
}

// OrderNumber returns the sequence slot of an ordered expectation, 0 when
// unordered.
func (e *Expectation) OrderNumber() int {
	return e.orderSeq
}

// =============================================================================
// RESPONSES
// =============================================================================

// AndReturn appends one return entry per value. Without values it appends a
// nil return.
func (e *Expectation) AndReturn(values ...any) *Expectation {
	if len(values) == 0 {
		e.responses.AddReturn(responses.Return(nil))
	}
	for _, v := range values {
		e.responses.AddReturn(responses.Return(v))
	}
	return e
}

// AndReturnFunc appends a return entry computed from the call.
func (e *Expectation) AndReturnFunc(fn func(inv calls.Invocation) any) *Expectation {
	e.responses.AddReturn(responses.ReturnFunc(fn))
	return e
}

// AndReturnUndefined appends a return of responses.Undefined.
func (e *Expectation) AndReturnUndefined() *Expectation {
	e.responses.AddReturn(responses.Return(responses.Undefined{}))
	return e
}

// AndRaise appends an entry failing the call with err.
func (e *Expectation) AndRaise(err error) *Expectation {
	e.responses.AddReturn(responses.Raise(err))
	return e
}

// AndRaiseNew appends an entry failing the call with a fresh error built by
// factory on each call.
func (e *Expectation) AndRaiseNew(factory func(message string) error, message string) *Expectation {
	e.responses.AddReturn(responses.RaiseNew(factory, message))
	return e
}

// AndThrow appends an entry exiting the call with a *responses.Thrown.
func (e *Expectation) AndThrow(tag string, value any) *Expectation {
	e.responses.AddReturn(responses.Throw(tag, value))
	return e
}

// PassThru appends an entry calling the original implementation. An optional
// transform rewrites its result.
func (e *Expectation) PassThru(transform ...func(any) any) *Expectation {
	var fn func(any) any
	if len(transform) > 0 {
		fn = transform[0]
	}
	e.responses.AddReturn(responses.PassThrough(fn))
	return e
}

// AndYield appends a yield entry calling the block once with values.
func (e *Expectation) AndYield(values ...any) *Expectation {
	e.responses.AddYield(values...)
	return e
}

// AndIterate appends a yield entry calling the block once per value.
func (e *Expectation) AndIterate(values ...any) *Expectation {
	e.responses.AddIterate(values...)
	return e
}

// ByDefault turns this expectation into a default of its method. It must be
// the last expectation registered for the method.
func (e *Expectation) ByDefault() (*Expectation, error) {
	return e, e.director.Defaultify(e)
}

// =============================================================================
// STATE
// =============================================================================

// Method returns the method name.
func (e *Expectation) Method() string { return e.director.method }

// Invocations returns how many calls were served so far.
func (e *Expectation) Invocations() int { return e.invocations }

// Count returns the count constraint.
func (e *Expectation) Count() counts.Constraint { return e.count }

// IsDefault reports whether the expectation is a default.
func (e *Expectation) IsDefault() bool { return e.isDefault }

// Err returns the first error met while declaring the expectation, a
// *failure.ConfigurationError, or nil.
func (e *Expectation) Err() error { return e.err }

// Signature returns the attached validator, or nil.
func (e *Expectation) Signature() *signature.Validator { return e.signature }

// String renders the call shape the expectation accepts, e.g. hi(1, *args).
func (e *Expectation) String() string {
	if e.kwMatcher == nil {
		return matching.FormatCall(e.director.method, e.args, e.kwargs)
	}
	parts := matching.FormatArgs(e.args, map[string]any{})
	parts = append(parts, e.kwMatcher.String())
	return e.director.method + "(" + strings.Join(parts, ", ") + ")"
}

// Description is String followed by every declared modifier.
func (e *Expectation) Description() string {
	return e.String() + strings.Join(e.modifiers, "")
}

// =============================================================================
// MATCHING AND SERVING
// =============================================================================

// MatchArgs reports whether the expectation accepts the call's arguments and
// block.
func (e *Expectation) MatchArgs(inv calls.Invocation) bool {
	if !matching.AllMatchArgs(e.args, inv.Args) {
		return false
	}
	if e.kwMatcher != nil {
		if !matching.Match(e.kwMatcher, inv.Kwargs) {
			return false
		}
	} else if !matching.AllMatchKwargs(e.kwargs, inv.Kwargs) {
		return false
	}
	return e.block.Accepts(inv.BlockPresent())
}

// Eligible reports whether one more call may still be served.
func (e *Expectation) Eligible() bool {
	return e.count.Eligible(e.invocations)
}

func (e *Expectation) serve(inv calls.Invocation) (any, error) {
	mock := e.director.mock
	if e.err != nil {
		return nil, e.err
	}
	if !e.Eligible() {
		msg := e.count.Violation(e.String(), e.Description(), e.invocations+1)
		return nil, failure.NewCheckFailedError(failure.CheckCount, mock, msg)
	}
	if e.signature != nil {
		if err := e.signature.Validate(e.String(), inv); err != nil {
			return nil, failure.NewCheckFailedError(failure.CheckSignature, mock, err.Error())
		}
	}
	if e.orderCtx != nil {
		if err := e.orderCtx.Validate(mock, e.String(), e.orderSeq); err != nil {
			return nil, err
		}
	}
	e.invocations++

	result, err := e.responses.Next(inv)
	if errors.Is(err, responses.ErrNoBlock) {
		msg := fmt.Sprintf("method '%s' wants to yield but no block was given\n%s", e.String(), inv)
		return nil, failure.NewCheckFailedError(failure.CheckNoBlock, mock, msg)
	}
	return result, err
}

// Verify checks the count constraint after the test.
func (e *Expectation) Verify() error {
	if e.err != nil {
		msg := fmt.Sprintf("invalid expectation '%s': %v", e.Description(), e.err)
		return failure.NewVerificationFailedError(e.director.mock, e.Description(), e.count.Phrase(), e.invocations, msg)
	}
	if e.count.Satisfied(e.invocations) {
		return nil
	}
	msg := e.count.Violation(e.String(), e.Description(), e.invocations)
	return failure.NewVerificationFailedError(e.director.mock, e.Description(), e.count.Phrase(), e.invocations, msg)
}
