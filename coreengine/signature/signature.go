// Package signature checks the shape of a call (positional count and keyword
// names) against a declared signature.
package signature

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/doudou/flexmock/coreengine/calls"
	"github.com/doudou/flexmock/coreengine/failure"
	"github.com/doudou/flexmock/coreengine/typeutil"
)

// Spec declares a signature.
type Spec struct {
	RequiredArguments        int
	OptionalArguments        int
	Splat                    bool
	RequiredKeywordArguments []string
	OptionalKeywordArguments []string
	KeywordSplat             bool
}

// Validator checks calls against one signature.
type Validator struct {
	required int
	optional int
	splat    bool
	reqKw    []string
	optKw    []string
	kwSplat  bool
}

// New validates spec and builds a Validator from it.
func New(spec Spec) (*Validator, error) {
	if spec.RequiredArguments < 0 || spec.OptionalArguments < 0 {
		return nil, failure.NewConfigurationError("argument counts cannot be negative (required: %d, optional: %d)",
			spec.RequiredArguments, spec.OptionalArguments)
	}
	seen := make(map[string]string)
	for _, set := range []struct {
		kind  string
		names []string
	}{{"required", spec.RequiredKeywordArguments}, {"optional", spec.OptionalKeywordArguments}} {
		for _, name := range set.names {
			if name == "" {
				return nil, failure.NewConfigurationError("keyword argument names cannot be empty")
			}
			if prev, dup := seen[name]; dup {
				return nil, failure.NewConfigurationError("keyword argument %s declared both as %s and %s", name, prev, set.kind)
			}
			seen[name] = set.kind
		}
	}
	return &Validator{
		required: spec.RequiredArguments,
		optional: spec.OptionalArguments,
		splat:    spec.Splat,
		reqKw:    sortedCopy(spec.RequiredKeywordArguments),
		optKw:    sortedCopy(spec.OptionalKeywordArguments),
		kwSplat:  spec.KeywordSplat,
	}, nil
}

func sortedCopy(in []string) []string {
	out := append([]string{}, in...)
	sort.Strings(out)
	return out
}

// Spec returns the declaration the validator was built from.
func (v *Validator) Spec() Spec {
	return Spec{
		RequiredArguments:        v.required,
		OptionalArguments:        v.optional,
		Splat:                    v.splat,
		RequiredKeywordArguments: append([]string{}, v.reqKw...),
		OptionalKeywordArguments: append([]string{}, v.optKw...),
		KeywordSplat:             v.kwSplat,
	}
}

// ExpectsKeywordArguments reports whether some keyword is required.
func (v *Validator) ExpectsKeywordArguments() bool {
	return len(v.reqKw) > 0
}

// AcceptsKeywordArguments reports whether the signature declares keywords at
// all.
func (v *Validator) AcceptsKeywordArguments() bool {
	return len(v.reqKw) > 0 || len(v.optKw) > 0 || v.kwSplat
}

// Validate checks one call. label names the expectation in messages.
func (v *Validator) Validate(label string, inv calls.Invocation) error {
	args := inv.Args
	if n := len(args); n > 0 && isBlock(args[n-1]) {
		args = args[:n-1]
	}
	kwargs := inv.Kwargs
	if len(kwargs) == 0 && v.AcceptsKeywordArguments() && len(args) > 0 {
		if m, ok := typeutil.StringKeyedMap(args[len(args)-1]); ok {
			kwargs = m
			args = args[:len(args)-1]
		}
	}

	if v.ExpectsKeywordArguments() && len(kwargs) == 0 {
		return fmt.Errorf("%s expects keyword arguments but none were provided", label)
	}
	if len(args) < v.required {
		return fmt.Errorf("%s expects at least %d positional arguments but got only %d", label, v.required, len(args))
	}
	if !v.splat && len(args) > v.required+v.optional {
		return fmt.Errorf("%s expects at most %d positional arguments but got %d", label, v.required+v.optional, len(args))
	}

	var missing []string
	for _, name := range v.reqKw {
		if _, ok := kwargs[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s missing required keyword arguments %s", label, strings.Join(missing, ", "))
	}

	if !v.kwSplat {
		var unexpected []string
		for name := range kwargs {
			if !contains(v.reqKw, name) && !contains(v.optKw, name) {
				unexpected = append(unexpected, name)
			}
		}
		if len(unexpected) > 0 {
			sort.Strings(unexpected)
			return fmt.Errorf("%s given unexpected keyword argument %s", label, strings.Join(unexpected, ", "))
		}
	}
	return nil
}

func isBlock(v any) bool {
	switch v.(type) {
	case calls.Block, func(...any) any:
		return true
	}
	return false
}

func contains(list []string, name string) bool {
	i := sort.SearchStrings(list, name)
	return i < len(list) && list[i] == name
}

func (v *Validator) String() string {
	parts := []string{
		fmt.Sprintf("required_arguments: %d", v.required),
		fmt.Sprintf("optional_arguments: %d", v.optional),
		fmt.Sprintf("splat: %t", v.splat),
		fmt.Sprintf("required_keyword_arguments: [%s]", strings.Join(v.reqKw, ", ")),
		fmt.Sprintf("optional_keyword_arguments: [%s]", strings.Join(v.optKw, ", ")),
		fmt.Sprintf("keyword_splat: %t", v.kwSplat),
	}
	return "with_signature(" + strings.Join(parts, ", ") + ")"
}

// =============================================================================
// DERIVED SIGNATURES
// =============================================================================

// Kind classifies one declared parameter.
type Kind string

const (
	KindRequired    Kind = "req"
	KindOptional    Kind = "opt"
	KindRest        Kind = "rest"
	KindKeyRequired Kind = "keyreq"
	KindKey         Kind = "key"
	KindKeyRest     Kind = "keyrest"
	KindBlock       Kind = "block"
)

// Parameter is one entry of a parameter list.
type Parameter struct {
	Kind Kind
	Name string
}

// FromParameters derives a validator from a parameter list.
func FromParameters(params []Parameter) (*Validator, error) {
	var spec Spec
	for _, p := range params {
		switch p.Kind {
		case KindRequired:
			spec.RequiredArguments++
		case KindOptional:
			spec.OptionalArguments++
		case KindRest:
			spec.Splat = true
		case KindKeyRequired:
			spec.RequiredKeywordArguments = append(spec.RequiredKeywordArguments, p.Name)
		case KindKey:
			spec.OptionalKeywordArguments = append(spec.OptionalKeywordArguments, p.Name)
		case KindKeyRest:
			spec.KeywordSplat = true
		case KindBlock:
		default:
			return nil, failure.NewConfigurationError("cannot interpret parameter type %s", p.Kind)
		}
	}
	return New(spec)
}

var blockType = reflect.TypeFor[calls.Block]()

// FromFunc derives a validator from a Go function type. Every parameter is
// required; a variadic tail becomes a splat and a trailing Block parameter is
// ignored.
func FromFunc(t reflect.Type) (*Validator, error) {
	if t == nil || t.Kind() != reflect.Func {
		return nil, failure.NewConfigurationError("cannot derive a signature from %v", t)
	}
	params := make([]Parameter, 0, t.NumIn())
	for i := 0; i < t.NumIn(); i++ {
		in := t.In(i)
		switch {
		case t.IsVariadic() && i == t.NumIn()-1:
			params = append(params, Parameter{Kind: KindRest})
		case in == blockType && i == t.NumIn()-1:
			params = append(params, Parameter{Kind: KindBlock})
		default:
			params = append(params, Parameter{Kind: KindRequired})
		}
	}
	return FromParameters(params)
}

// FromMethod derives a validator from the named method of typ. For concrete
// types the receiver is not counted.
func FromMethod(typ reflect.Type, name string) (*Validator, error) {
	if typ == nil {
		return nil, failure.NewConfigurationError("cannot derive a signature from a nil type")
	}
	m, ok := typ.MethodByName(name)
	if !ok {
		return nil, failure.NewConfigurationError("%s has no method %s", typ, name)
	}
	ft := m.Type
	if typ.Kind() == reflect.Interface {
		return FromFunc(ft)
	}
	in := make([]reflect.Type, 0, ft.NumIn()-1)
	for i := 1; i < ft.NumIn(); i++ {
		in = append(in, ft.In(i))
	}
	out := make([]reflect.Type, ft.NumOut())
	for i := range out {
		out[i] = ft.Out(i)
	}
	return FromFunc(reflect.FuncOf(in, out, ft.IsVariadic()))
}
