// Package scenario runs scripted mock sessions described in YAML.
//
// A scenario declares mocks with their expectations, a script of calls with
// the answer each call should get, and the number of verification failures
// expected when the session closes.
package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario is the root structure of a scenario file.
type Scenario struct {
	Name   string         `yaml:"name"`
	Config map[string]any `yaml:"config"` // Overrides of the engine configuration
	Mocks  []MockDef      `yaml:"mocks"`
	Calls  []CallDef      `yaml:"calls"`
	Verify VerifyDef      `yaml:"verify"`
}

// MockDef declares one mock and its expectations.
type MockDef struct {
	Name         string           `yaml:"name"`
	Expectations []ExpectationDef `yaml:"expectations"`
}

// ExpectationDef declares one expectation. Argument and return patterns are
// plain values, or single-key maps naming a matcher (any, eq, regex, type,
// hsh, ducktype).
type ExpectationDef struct {
	Method   string         `yaml:"method"`
	With     []any          `yaml:"with"`
	WithKw   map[string]any `yaml:"with_kw"`
	AnyArgs  bool           `yaml:"any_args"`
	NoArgs   bool           `yaml:"no_args"`
	AnyKw    bool           `yaml:"any_kw"`
	Block    string         `yaml:"block"` // required, forbidden, optional
	Count    any            `yaml:"count"` // once, twice, never, zero_or_more_times, or a number
	AtLeast  *int           `yaml:"at_least"`
	AtMost   *int           `yaml:"at_most"`
	Ordered  bool           `yaml:"ordered"`
	Group    string         `yaml:"group"`
	Globally bool           `yaml:"globally"`

	Signature *SignatureDef `yaml:"signature"`

	Returns []any     `yaml:"returns"`
	Raise   string    `yaml:"raise"`
	Throw   *ThrowDef `yaml:"throw"`
	Yield   [][]any   `yaml:"yield"`
	Iterate []any     `yaml:"iterate"`
	Default bool      `yaml:"default"`
}

// SignatureDef declares the accepted call shape.
type SignatureDef struct {
	Required         int      `yaml:"required"`
	Optional         int      `yaml:"optional"`
	Splat            bool     `yaml:"splat"`
	RequiredKeywords []string `yaml:"required_keywords"`
	OptionalKeywords []string `yaml:"optional_keywords"`
	KeywordSplat     bool     `yaml:"keyword_splat"`
}

// ThrowDef declares a throw response.
type ThrowDef struct {
	Tag   string `yaml:"tag"`
	Value any    `yaml:"value"`
}

// CallDef is one scripted call.
type CallDef struct {
	Mock   string         `yaml:"mock"`
	Method string         `yaml:"method"`
	Args   []any          `yaml:"args"`
	Kwargs map[string]any `yaml:"kwargs"`
	Block  bool           `yaml:"block"` // Pass a block returning what it is yielded
	Expect ExpectDef      `yaml:"expect"`
}

// ExpectDef is the answer a scripted call should get. With Outcome unset
// the call must succeed.
type ExpectDef struct {
	Return  any    `yaml:"return"`
	Outcome string `yaml:"outcome"` // ok, no_match, count, order, signature, no_block, raised, thrown
	Message string `yaml:"message"` // Substring of the error message
}

// VerifyDef is the expected verification result.
type VerifyDef struct {
	Failures int `yaml:"failures"`
}

// Parse decodes a scenario. Unknown fields are rejected.
func Parse(content []byte) (*Scenario, error) {
	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)

	var sc Scenario
	if err := dec.Decode(&sc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse scenario: empty document")
		}
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if err := sc.validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Load reads and decodes a scenario.
func Load(r io.Reader) (*Scenario, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return Parse(content)
}

// LoadFile reads and decodes the scenario at path.
func LoadFile(path string) (*Scenario, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	sc, err := Parse(content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}

func (sc *Scenario) validate() error {
	names := make(map[string]struct{}, len(sc.Mocks))
	for i, m := range sc.Mocks {
		if m.Name == "" {
			return fmt.Errorf("mock %d: name is required", i+1)
		}
		if _, dup := names[m.Name]; dup {
			return fmt.Errorf("mock %s: declared twice", m.Name)
		}
		names[m.Name] = struct{}{}
		for j, e := range m.Expectations {
			if e.Method == "" {
				return fmt.Errorf("mock %s, expectation %d: method is required", m.Name, j+1)
			}
		}
	}
	for i, c := range sc.Calls {
		if _, ok := names[c.Mock]; !ok {
			return fmt.Errorf("call %d: unknown mock %q", i+1, c.Mock)
		}
		if c.Method == "" {
			return fmt.Errorf("call %d: method is required", i+1)
		}
	}
	return nil
}
