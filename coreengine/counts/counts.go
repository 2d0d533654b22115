// Package counts implements the call-count constraints of an expectation.
package counts

import (
	"fmt"
	"strings"

	"github.com/doudou/flexmock/coreengine/failure"
)

// Unbounded is the maximum of a constraint without an upper limit.
const Unbounded = -1

// Mode selects which bound the next count sets.
type Mode int

const (
	// Exact sets both bounds.
	Exact Mode = iota
	// AtLeast sets the minimum only.
	AtLeast
	// AtMost sets the maximum only.
	AtMost
)

// Constraint is a {min, max} pair on the number of matching calls.
// The zero value is not meaningful; use Default.
type Constraint struct {
	Min int
	Max int
}

// Default accepts any number of calls.
func Default() Constraint {
	return Constraint{Min: 0, Max: Unbounded}
}

// Apply sets the bound(s) selected by mode to n. A negative n is a
// ConfigurationError and leaves c unchanged.
func (c Constraint) Apply(mode Mode, n int) (Constraint, error) {
	if n < 0 {
		return c, failure.NewConfigurationError("call count must not be negative, got %d", n)
	}
	switch mode {
	case AtLeast:
		c.Min = n
	case AtMost:
		c.Max = n
	default:
		c.Min, c.Max = n, n
	}
	return c, nil
}

// Bounded reports whether the constraint has a maximum.
func (c Constraint) Bounded() bool {
	return c.Max != Unbounded
}

// Eligible reports whether a further call may still be served after n calls.
func (c Constraint) Eligible(n int) bool {
	return !c.Bounded() || n < c.Max
}

// Satisfied reports whether n calls meet both bounds.
func (c Constraint) Satisfied(n int) bool {
	return n >= c.Min && (!c.Bounded() || n <= c.Max)
}

// Phrase renders the constraint in words.
func (c Constraint) Phrase() string {
	switch {
	case c.Bounded() && c.Min == c.Max:
		return times(c.Min)
	case !c.Bounded() && c.Min == 0:
		return "zero or more times"
	case !c.Bounded():
		return "at least " + times(c.Min)
	case c.Min == 0:
		return "at most " + times(c.Max)
	default:
		return fmt.Sprintf("between %d and %d times", c.Min, c.Max)
	}
}

// Bounds renders the numeric limits, e.g. "at most 1 matching call".
func (c Constraint) Bounds() string {
	switch {
	case c.Bounded() && c.Min == c.Max:
		return "exactly " + matchingCalls(c.Min)
	case !c.Bounded():
		return "at least " + matchingCalls(c.Min)
	case c.Min == 0:
		return "at most " + matchingCalls(c.Max)
	default:
		return fmt.Sprintf("at least %d and at most %s", c.Min, matchingCalls(c.Max))
	}
}

// Violation renders the diagnostic of a count failure for label after
// actual matching calls.
func (c Constraint) Violation(label, description string, actual int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "method '%s' called incorrect number of times\n", label)
	if description != "" && description != label {
		fmt.Fprintf(&b, "  expectation: %s\n", description)
	}
	fmt.Fprintf(&b, "  expected: %s (%s)\n", c.Phrase(), c.Bounds())
	fmt.Fprintf(&b, "  found: %s", matchingCalls(actual))
	return b.String()
}

func times(n int) string {
	switch n {
	case 0:
		return "never"
	case 1:
		return "once"
	case 2:
		return "twice"
	default:
		return fmt.Sprintf("%d times", n)
	}
}

func matchingCalls(n int) string {
	if n == 1 {
		return "1 matching call"
	}
	return fmt.Sprintf("%d matching calls", n)
}
