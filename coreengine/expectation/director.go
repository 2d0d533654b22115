package expectation

import (
	"strings"

	"github.com/doudou/flexmock/coreengine/calls"
	"github.com/doudou/flexmock/coreengine/failure"
	"github.com/doudou/flexmock/coreengine/ordering"
)

// Logger is the logging surface used by directors.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Recorder receives one record per dispatched call, matched or not.
type Recorder interface {
	Record(r calls.Record)
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(r calls.Record)

// Record calls f(r).
func (f RecorderFunc) Record(r calls.Record) { f(r) }

// Config wires a Director to its mock.
type Config struct {
	Mock   string
	Method string
	// Local is the per-mock ordering domain. A private one is created when
	// nil.
	Local *ordering.Context
	// Global is the ordering domain shared across mocks. Local is used when
	// nil.
	Global   *ordering.Context
	Recorder Recorder
	Logger   Logger
	// LooseKeywords lets With leave keyword arguments unconstrained.
	LooseKeywords bool
}

// Director routes the calls of one method of one mock. It is not safe for
// concurrent use; callers serialize dispatch.
type Director struct {
	mock     string
	method   string
	local    *ordering.Context
	global   *ordering.Context
	recorder Recorder
	logger   Logger
	looseKw  bool

	expectations []*Expectation
	defaults     []*Expectation
}

// NewDirector creates a Director with no expectation.
func NewDirector(cfg Config) *Director {
	local := cfg.Local
	if local == nil {
		local = ordering.NewContext(cfg.Mock, nil)
	}
	global := cfg.Global
	if global == nil {
		global = local
	}
	return &Director{
		mock:     cfg.Mock,
		method:   cfg.Method,
		local:    local,
		global:   global,
		recorder: cfg.Recorder,
		logger:   cfg.Logger,
		looseKw:  cfg.LooseKeywords,
	}
}

// Method returns the routed method name.
func (d *Director) Method() string { return d.method }

// Mock returns the owning mock name.
func (d *Director) Mock() string { return d.mock }

// Expect registers a new unconstrained expectation.
func (d *Director) Expect() *Expectation {
	e := newExpectation(d)
	d.Register(e)
	return e
}

// Register appends e to the non-default expectations.
func (d *Director) Register(e *Expectation) {
	e.director = d
	d.expectations = append(d.expectations, e)
	d.debug("expectation_registered", "method", d.method, "position", len(d.expectations))
}

// Defaultify moves e, which must be the most recently registered
// expectation, to the defaults.
func (d *Director) Defaultify(e *Expectation) error {
	n := len(d.expectations)
	if n == 0 || d.expectations[n-1] != e {
		return failure.NewConfigurationError("cannot make a previously defined expectation into a default")
	}
	d.expectations = d.expectations[:n-1]
	d.defaults = append(d.defaults, e)
	e.isDefault = true
	e.modifiers = append(e.modifiers, ".by_default")
	return nil
}

// DefaultifyAll turns every non-default expectation into a default, keeping
// registration order.
func (d *Director) DefaultifyAll() {
	for _, e := range d.expectations {
		e.isDefault = true
		e.modifiers = append(e.modifiers, ".by_default")
	}
	d.defaults = append(d.defaults, d.expectations...)
	d.expectations = nil
}

// Expectations returns the non-default expectations followed by the
// defaults, in registration order.
func (d *Director) Expectations() []*Expectation {
	out := make([]*Expectation, 0, len(d.expectations)+len(d.defaults))
	out = append(out, d.expectations...)
	return append(out, d.defaults...)
}

// pool returns the active candidates: defaults only apply when no
// non-default expectation exists.
func (d *Director) pool() []*Expectation {
	if len(d.expectations) == 0 {
		return d.defaults
	}
	return d.expectations
}

// Find returns the expectation that would serve inv: the first matching and
// eligible one, else the first matching one. It returns nil when nothing
// matches.
func (d *Director) Find(inv calls.Invocation) *Expectation {
	inv = inv.Normalized()
	var fallback *Expectation
	for _, e := range d.pool() {
		if !e.MatchArgs(inv) {
			continue
		}
		if e.Eligible() {
			return e
		}
		if fallback == nil {
			fallback = e
		}
	}
	return fallback
}

// Dispatch serves one call.
func (d *Director) Dispatch(inv calls.Invocation) (any, error) {
	return Dispatch(d.mock, d.recorder, []*Director{d}, inv)
}

// Verify checks every active expectation and aggregates the failures.
func (d *Director) Verify() error {
	var errs failure.VerificationErrors
	for _, e := range d.pool() {
		if err := e.Verify(); err != nil {
			errs = append(errs, failure.Collect(err)...)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	d.warn("verification_failed", "method", d.method, "failures", len(errs))
	return errs
}

// Dispatch serves inv through a chain of directors of the same method,
// innermost first. The first director holding a matching expectation serves
// the call; later directors are only consulted when earlier ones have no
// match at all. The call is recorded before any check runs.
func Dispatch(mock string, recorder Recorder, chain []*Director, inv calls.Invocation) (any, error) {
	inv = inv.Normalized()

	var selected *Expectation
	for _, d := range chain {
		if selected = d.Find(inv); selected != nil {
			break
		}
	}

	var servedBy calls.Handler
	if selected != nil {
		servedBy = selected
	}
	record := calls.NewRecord(mock, inv, servedBy)
	if recorder != nil {
		recorder.Record(record)
	}

	if selected == nil {
		var defined []string
		for _, d := range chain {
			for _, e := range d.Expectations() {
				defined = append(defined, e.Description())
			}
		}
		msg := "no matching handler found for " + inv.String() +
			"\nDefined expectations:\n  " + strings.Join(defined, "\n  ")
		if len(chain) > 0 {
			chain[0].debug("dispatch_no_match", "call", inv.String(), "record", record.ID)
		}
		return nil, failure.NewCheckFailedError(failure.CheckNoMatch, mock, msg)
	}

	selected.director.debug("dispatch_selected",
		"call", inv.String(),
		"record", record.ID,
		"expectation", selected.Description(),
	)
	return selected.serve(inv)
}

func (d *Director) debug(msg string, keysAndValues ...any) {
	if d.logger != nil {
		d.logger.Debug(msg, append([]any{"mock", d.mock}, keysAndValues...)...)
	}
}

func (d *Director) warn(msg string, keysAndValues ...any) {
	if d.logger != nil {
		d.logger.Warn(msg, append([]any{"mock", d.mock}, keysAndValues...)...)
	}
}
