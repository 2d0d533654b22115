// Package failure defines the error taxonomy shared by every layer of the
// expectation engine.
//
// Three kinds of failure exist:
//   - ConfigurationError: invalid setup, reported by the registration step
//   - CheckFailedError: a call could not be satisfied, reported at the call
//   - VerificationFailedError: a count lower bound was missed, reported at
//     teardown
//
// None of them is ever swallowed by the engine.
package failure

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// CONFIGURATION ERRORS
// =============================================================================

// ConfigurationError is returned when an expectation is set up incorrectly.
type ConfigurationError struct {
	Message string
	Cause   error
}

func (e *ConfigurationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ConfigurationError) Unwrap() error {
	return e.Cause
}

// NewConfigurationError creates a new ConfigurationError.
func NewConfigurationError(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Message: fmt.Sprintf(format, args...)}
}

// =============================================================================
// CHECK FAILURES
// =============================================================================

// CheckKind tells which runtime check rejected a call.
type CheckKind string

const (
	// CheckNoMatch means no registered expectation accepted the call.
	CheckNoMatch CheckKind = "no_match"
	// CheckCount means the selected expectation had already reached its maximum.
	CheckCount CheckKind = "count"
	// CheckOrder means an ordered expectation was called too late.
	CheckOrder CheckKind = "order"
	// CheckSignature means the call shape did not fit the declared signature.
	CheckSignature CheckKind = "signature"
	// CheckNoBlock means a yield was due but the call carried no block.
	CheckNoBlock CheckKind = "no_block"
)

// CheckFailedError is returned from the call site when a call cannot be
// satisfied.
//
// Message holds the diagnostic text exactly; Error() prefixes it with the
// mock name when one is known.
type CheckFailedError struct {
	Kind    CheckKind
	Mock    string
	Message string
}

func (e *CheckFailedError) Error() string {
	if e.Mock != "" {
		return fmt.Sprintf("in mock '%s': %s", e.Mock, e.Message)
	}
	return e.Message
}

// NewCheckFailedError creates a new CheckFailedError.
func NewCheckFailedError(kind CheckKind, mock, message string) *CheckFailedError {
	return &CheckFailedError{Kind: kind, Mock: mock, Message: message}
}

// IsCheckFailed reports whether err carries a CheckFailedError of the given
// kind. An empty kind matches any check failure.
func IsCheckFailed(err error, kind CheckKind) bool {
	var cf *CheckFailedError
	if !errors.As(err, &cf) {
		return false
	}
	return kind == "" || cf.Kind == kind
}

// =============================================================================
// VERIFICATION FAILURES
// =============================================================================

// VerificationFailedError is returned at teardown when an expectation was
// called fewer (or more) times than its count constraint allows.
type VerificationFailedError struct {
	Mock        string
	Expectation string
	Expected    string
	Actual      int
	Message     string
}

func (e *VerificationFailedError) Error() string {
	if e.Mock != "" {
		return fmt.Sprintf("in mock '%s': %s", e.Mock, e.Message)
	}
	return e.Message
}

// NewVerificationFailedError creates a new VerificationFailedError.
func NewVerificationFailedError(mock, expectation, expected string, actual int, message string) *VerificationFailedError {
	return &VerificationFailedError{
		Mock:        mock,
		Expectation: expectation,
		Expected:    expected,
		Actual:      actual,
		Message:     message,
	}
}

// VerificationErrors aggregates every verification failure found during one
// teardown pass. It is never empty when returned as an error.
type VerificationErrors []*VerificationFailedError

func (v VerificationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, e := range v {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "\n")
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (v VerificationErrors) Unwrap() []error {
	errs := make([]error, len(v))
	for i, e := range v {
		errs[i] = e
	}
	return errs
}

// Collect flattens err into the verification failures it carries. Errors of
// any other type are ignored.
func Collect(err error) VerificationErrors {
	switch e := err.(type) {
	case nil:
		return nil
	case VerificationErrors:
		return append(VerificationErrors(nil), e...)
	case *VerificationFailedError:
		return VerificationErrors{e}
	case interface{ Unwrap() []error }:
		var out VerificationErrors
		for _, inner := range e.Unwrap() {
			out = append(out, Collect(inner)...)
		}
		return out
	case interface{ Unwrap() error }:
		return Collect(e.Unwrap())
	}
	return nil
}
