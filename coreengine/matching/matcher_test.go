package matching

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/doudou/flexmock/coreengine/failure"
)

type duck struct{}

func (duck) Quack() string { return "quack" }
func (duck) Walk()         {}

type namedThing struct{ name string }

func (n namedThing) String() string { return "thing:" + n.name }

// =============================================================================
// MATCH TESTS
// =============================================================================

func TestMatch(t *testing.T) {
	tests := []struct {
		name     string
		expected any
		actual   any
		want     bool
	}{
		{"equal ints", 1, 1, true},
		{"int vs float", 1, 1.0, true},
		{"different ints", 1, 2, false},
		{"large int64 neighbours", int64(9007199254740993), int64(9007199254740992), false},
		{"large int64 equal", int64(9007199254740993), int64(9007199254740993), true},
		{"large uint64 neighbours", uint64(1<<63 + 1), uint64(1 << 63), false},
		{"int64 vs uint64 same value", int64(1 << 62), uint64(1 << 62), true},
		{"negative int vs uint", -1, uint64(1<<64 - 1), false},
		{"large int vs rounded float", int64(9007199254740993), float64(9007199254740992), false},
		{"whole float vs int", 3.0, 3, true},
		{"fractional float vs int", 3.5, 3, false},
		{"float vs float", 0.5, float32(0.5), true},
		{"equal strings", "a", "a", true},
		{"nil vs nil", nil, nil, true},
		{"nil vs value", nil, 0, false},
		{"deep slices", []any{1, "x"}, []any{1, "x"}, true},
		{"deep maps", map[string]any{"a": 1}, map[string]any{"a": 1}, true},
		{"regexp matches string", regexp.MustCompile(`^a`), "abc", true},
		{"regexp rejects string", regexp.MustCompile(`^a`), "xyz", false},
		{"regexp matches stringer", regexp.MustCompile(`thing:b`), namedThing{"b"}, true},
		{"regexp matches number", regexp.MustCompile(`^4\d$`), 42, true},
		{"type matches instance", reflect.TypeFor[string](), "s", true},
		{"type rejects other", reflect.TypeFor[string](), 3, false},
		{"type matches itself", reflect.TypeFor[string](), reflect.TypeFor[string](), true},
		{"interface type", reflect.TypeFor[fmt.Stringer](), namedThing{}, true},
		{"interface type rejects", reflect.TypeFor[io.Reader](), namedThing{}, false},
		{"missing vs value", 1, Missing, false},
		{"missing vs missing", Missing, Missing, true},
		{"value vs missing", Missing, nil, false},
		{"any matches missing", Any(), Missing, true},
		{"any matches nil", Any(), nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Match(tt.expected, tt.actual))
		})
	}
}

func TestEqComparesPatternsAsValues(t *testing.T) {
	strType := reflect.TypeFor[string]()
	assert.True(t, Match(Eq(strType), strType))
	assert.False(t, Match(Eq(strType), "s"))

	re := regexp.MustCompile(`a`)
	assert.True(t, Match(Eq(re), re))
	assert.False(t, Match(Eq(re), "a"))
	assert.True(t, Match(re, re))
}

func TestPredicateMatcher(t *testing.T) {
	even := On(func(v any) bool { return v.(int)%2 == 0 })

	assert.True(t, Match(even, 2))
	assert.False(t, Match(even, 3))
	assert.False(t, Match(even, "not an int"), "panicking predicate is a non-match")
	assert.False(t, Match(even, Missing))
	assert.Equal(t, "on{even}", OnNamed("even", nil).String())
}

func TestDuckTypeMatcher(t *testing.T) {
	assert.True(t, Match(DuckType("Quack", "Walk"), duck{}))
	assert.False(t, Match(DuckType("Quack", "Fly"), duck{}))
	assert.False(t, Match(DuckType("Quack"), nil))
	assert.Equal(t, "ducktype(Quack, Walk)", DuckType("Quack", "Walk").String())
}

func TestHashSubsetMatcher(t *testing.T) {
	m := Hsh(map[string]any{"a": 1, "b": Any()})

	assert.True(t, Match(m, map[string]any{"a": 1, "b": "x", "c": 3}))
	assert.True(t, Match(m, map[string]int{"a": 1, "b": 2}))
	assert.False(t, Match(m, map[string]any{"a": 1}))
	assert.False(t, Match(m, map[string]any{"a": 2, "b": 2}))
	assert.False(t, Match(m, "not a map"))
	assert.Equal(t, "hsh(a: 1, b: ANY)", m.String())
}

func TestTypeOf(t *testing.T) {
	m := TypeOf[error]()
	assert.True(t, Match(m, errors.New("x")))
	assert.False(t, Match(m, "x"))
	assert.Equal(t, "error", m.String())
}

// =============================================================================
// ARGUMENT LIST TESTS
// =============================================================================

func TestAllMatchArgs(t *testing.T) {
	tests := []struct {
		name     string
		expected []any
		actual   []any
		want     bool
	}{
		{"unconstrained", nil, []any{1, 2, 3}, true},
		{"unconstrained empty", nil, []any{}, true},
		{"exact", []any{1, "a"}, []any{1, "a"}, true},
		{"mismatch", []any{1, "a"}, []any{1, "b"}, false},
		{"too many actual", []any{1}, []any{1, 2}, false},
		{"too few actual", []any{1, 2}, []any{1}, false},
		{"too few actual with any", []any{1, Any()}, []any{1}, true},
		{"empty vs empty", []any{}, []any{}, true},
		{"empty vs some", []any{}, []any{1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AllMatchArgs(tt.expected, tt.actual))
		})
	}
}

func TestAllMatchKwargs(t *testing.T) {
	assert.True(t, AllMatchKwargs(nil, map[string]any{"a": 1}))
	assert.True(t, AllMatchKwargs(map[string]any{}, nil))
	assert.True(t, AllMatchKwargs(map[string]any{"a": Any()}, map[string]any{"a": 10}))
	assert.False(t, AllMatchKwargs(map[string]any{}, map[string]any{"a": 1}))
	assert.False(t, AllMatchKwargs(map[string]any{"a": 1}, map[string]any{"a": 1, "b": 2}))
	assert.False(t, AllMatchKwargs(map[string]any{"a": 1, "b": 2}, map[string]any{"a": 1}))
}

func TestAllMatchArgsIsReflexive(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 6).Draw(rt, "n")
		args := make([]any, n)
		for i := range args {
			if rapid.Bool().Draw(rt, "kind") {
				args[i] = rapid.Int().Draw(rt, "int")
			} else {
				args[i] = rapid.String().Draw(rt, "str")
			}
		}
		assert.True(rt, AllMatchArgs(args, args))
		assert.True(rt, AllMatchArgs(nil, args))

		anys := make([]any, n)
		for i := range anys {
			anys[i] = Any()
		}
		assert.True(rt, AllMatchArgs(anys, args))
		assert.False(rt, AllMatchArgs(args, append(append([]any{}, args...), "extra")))
	})
}

// =============================================================================
// FORMAT TESTS
// =============================================================================

func TestFormatCall(t *testing.T) {
	assert.Equal(t, "foo(*args, **kwargs)", FormatCall("foo", nil, nil))
	assert.Equal(t, "foo()", FormatCall("foo", []any{}, map[string]any{}))
	assert.Equal(t, `foo(1, "a", b: 2, c: nil)`, FormatCall("foo", []any{1, "a"}, map[string]any{"c": nil, "b": 2}))
	assert.Equal(t, "foo(1, **kwargs)", FormatCall("foo", []any{1}, nil))
	assert.Equal(t, "foo(/x+/, string, ANY)", FormatCall("foo", []any{regexp.MustCompile("x+"), reflect.TypeFor[string](), Any()}, map[string]any{}))
	assert.Equal(t, `foo([1, "b"], {k: true})`, FormatCall("foo", []any{[]any{1, "b"}, map[string]any{"k": true}}, map[string]any{}))
}

// =============================================================================
// PATTERN CACHE TESTS
// =============================================================================

func TestRegexUsesCache(t *testing.T) {
	SetPatternCacheTTL(time.Minute)

	m1, err := Regex(`^cached-\d+$`)
	require.NoError(t, err)
	m2, err := Regex(`^cached-\d+$`)
	require.NoError(t, err)

	assert.Same(t, m1.(regexMatcher).re, m2.(regexMatcher).re)
	assert.Equal(t, 1, patternCache.ItemCount())
	assert.True(t, Match(m1, "cached-12"))
	assert.Equal(t, `/^cached-\d+$/`, m1.String())
}

func TestRegexInvalidPattern(t *testing.T) {
	_, err := Regex(`(`)
	require.Error(t, err)

	var cfg *failure.ConfigurationError
	require.True(t, errors.As(err, &cfg))
	assert.True(t, strings.HasPrefix(cfg.Message, "invalid pattern"))
	assert.Panics(t, func() { MustRegex(`(`) })
}
