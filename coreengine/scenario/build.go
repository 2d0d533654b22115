package scenario

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/doudou/flexmock/coreengine/expectation"
	"github.com/doudou/flexmock/coreengine/failure"
	"github.com/doudou/flexmock/coreengine/matching"
	"github.com/doudou/flexmock/coreengine/signature"
	"github.com/doudou/flexmock/coreengine/typeutil"
	"github.com/doudou/flexmock/mockbus"
)

// =============================================================================
// PATTERNS
// =============================================================================

var typeNames = map[string]reflect.Type{
	"string": reflect.TypeFor[string](),
	"int":    reflect.TypeFor[int](),
	"float":  reflect.TypeFor[float64](),
	"bool":   reflect.TypeFor[bool](),
	"map":    reflect.TypeFor[map[string]any](),
	"list":   reflect.TypeFor[[]any](),
}

// Pattern turns a decoded YAML value into a matching pattern. A single-key
// map naming a matcher builds that matcher; anything else is a literal.
func Pattern(spec any) (any, error) {
	spec = typeutil.NormalizeDecoded(spec)
	m, ok := spec.(map[string]any)
	if !ok || len(m) != 1 {
		return spec, nil
	}
	for key, arg := range m {
		switch key {
		case "any":
			return matching.Any(), nil
		case "eq":
			return matching.Eq(arg), nil
		case "regex":
			pattern, ok := typeutil.SafeString(arg)
			if !ok {
				return nil, failure.NewConfigurationError("regex pattern must be a string, got %s", matching.Render(arg))
			}
			return matching.Regex(pattern)
		case "type":
			name, _ := typeutil.SafeString(arg)
			t, ok := typeNames[name]
			if !ok {
				return nil, failure.NewConfigurationError("unknown type %s", matching.Render(arg))
			}
			return matching.Type(t), nil
		case "ducktype":
			methods, ok := typeutil.SafeStringSlice(arg)
			if !ok {
				return nil, failure.NewConfigurationError("ducktype expects a list of method names")
			}
			return matching.DuckType(methods...), nil
		case "hsh":
			pairs, ok := arg.(map[string]any)
			if !ok {
				return nil, failure.NewConfigurationError("hsh expects a map")
			}
			compiled := make(map[string]any, len(pairs))
			for k, v := range pairs {
				p, err := Pattern(v)
				if err != nil {
					return nil, err
				}
				compiled[k] = p
			}
			return matching.Hsh(compiled), nil
		}
	}
	return spec, nil
}

func patterns(specs []any) ([]any, error) {
	out := make([]any, len(specs))
	for i, s := range specs {
		p, err := Pattern(s)
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}

func keywordPatterns(specs map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(specs))
	for k, s := range specs {
		p, err := Pattern(s)
		if err != nil {
			return nil, err
		}
		out[k] = p
	}
	return out, nil
}

// =============================================================================
// EXPECTATIONS
// =============================================================================

// declare registers def on m.
func declare(m *mockbus.Mock, def ExpectationDef) (*expectation.Expectation, error) {
	e := m.ShouldReceive(def.Method)

	switch {
	case def.NoArgs:
		e.WithNoArgs()
	case def.AnyArgs:
		e.WithAnyArgs()
	case def.With != nil:
		args, err := patterns(def.With)
		if err != nil {
			return nil, err
		}
		e.With(args...)
	}
	if def.WithKw != nil {
		kw, err := keywordPatterns(def.WithKw)
		if err != nil {
			return nil, err
		}
		e.WithKwargs(kw)
	}
	if def.AnyKw {
		e.WithAnyKwargs()
	}

	switch def.Block {
	case "":
	case "required":
		e.WithBlock()
	case "forbidden":
		e.WithNoBlock()
	case "optional":
		e.WithOptionalBlock()
	default:
		return nil, failure.NewConfigurationError("unknown block requirement %q", def.Block)
	}

	if def.Signature != nil {
		v, err := signature.New(signature.Spec{
			RequiredArguments:        def.Signature.Required,
			OptionalArguments:        def.Signature.Optional,
			Splat:                    def.Signature.Splat,
			RequiredKeywordArguments: def.Signature.RequiredKeywords,
			OptionalKeywordArguments: def.Signature.OptionalKeywords,
			KeywordSplat:             def.Signature.KeywordSplat,
		})
		if err != nil {
			return nil, err
		}
		e.WithSignature(v)
	}

	if err := applyCount(e, def); err != nil {
		return nil, err
	}

	if def.Globally {
		e.Globally()
	}
	if def.Group != "" {
		e.OrderedIn(def.Group)
	} else if def.Ordered {
		e.Ordered()
	}

	for _, v := range def.Returns {
		e.AndReturn(typeutil.NormalizeDecoded(v))
	}
	if def.Raise != "" {
		e.AndRaise(errors.New(def.Raise))
	}
	if def.Throw != nil {
		e.AndThrow(def.Throw.Tag, typeutil.NormalizeDecoded(def.Throw.Value))
	}
	for _, values := range def.Yield {
		e.AndYield(normalizeAll(values)...)
	}
	if def.Iterate != nil {
		e.AndIterate(normalizeAll(def.Iterate)...)
	}

	if def.Default {
		if _, err := e.ByDefault(); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func applyCount(e *expectation.Expectation, def ExpectationDef) error {
	if def.AtLeast != nil && *def.AtLeast < 0 {
		return failure.NewConfigurationError("at_least must not be negative, got %d", *def.AtLeast)
	}
	if def.AtMost != nil && *def.AtMost < 0 {
		return failure.NewConfigurationError("at_most must not be negative, got %d", *def.AtMost)
	}
	if def.AtLeast != nil {
		e.AtLeast().Times(*def.AtLeast)
	}
	if def.AtMost != nil {
		e.AtMost().Times(*def.AtMost)
	}

	switch c := def.Count.(type) {
	case nil:
	case string:
		switch c {
		case "once":
			e.Once()
		case "twice":
			e.Twice()
		case "never":
			e.Never()
		case "zero_or_more_times":
			e.ZeroOrMoreTimes()
		default:
			return failure.NewConfigurationError("unknown count %q", c)
		}
	default:
		n, ok := typeutil.SafeInt(c)
		if !ok || n < 0 {
			return failure.NewConfigurationError("count must be a non-negative number, got %s", matching.Render(c))
		}
		e.Times(n)
	}
	return e.Err()
}

func normalizeAll(values []any) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = typeutil.NormalizeDecoded(v)
	}
	return out
}

// build declares every mock of sc in scope, in file order.
func build(scope *mockbus.Scope, sc *Scenario) (map[string]*mockbus.Mock, map[string][]*expectation.Expectation, error) {
	mocks := make(map[string]*mockbus.Mock, len(sc.Mocks))
	declared := make(map[string][]*expectation.Expectation, len(sc.Mocks))
	for _, md := range sc.Mocks {
		m := scope.Mock(md.Name)
		mocks[md.Name] = m
		for i, def := range md.Expectations {
			e, err := declare(m, def)
			if err != nil {
				return nil, nil, fmt.Errorf("mock %s, expectation %d (%s): %w", md.Name, i+1, def.Method, err)
			}
			declared[md.Name] = append(declared[md.Name], e)
		}
	}
	return mocks, declared, nil
}
