// Package matching decides whether an expected argument pattern accepts an
// actual call value.
//
// Any value may serve as a pattern. Values implementing Matcher, compiled
// regular expressions and reflect.Type values carry pattern semantics; every
// other value is compared for equality.
package matching

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/doudou/flexmock/coreengine/typeutil"
)

// Matcher is a user-supplied or built-in argument pattern.
type Matcher interface {
	// Matches reports whether actual is accepted. A panic is treated as a
	// non-match.
	Matches(actual any) bool
	// String renders the pattern for diagnostics.
	String() string
}

// =============================================================================
// MISSING SENTINEL
// =============================================================================

type missing struct{}

func (missing) String() string { return "<missing>" }

// Missing stands for an argument position the caller did not supply. It only
// matches Any and itself.
var Missing any = missing{}

// IsMissing reports whether v is the Missing sentinel.
func IsMissing(v any) bool {
	_, ok := v.(missing)
	return ok
}

// =============================================================================
// MATCH
// =============================================================================

// Match applies expected to actual: first as a pattern, then by equality.
func Match(expected, actual any) bool {
	switch e := expected.(type) {
	case Matcher:
		return safeMatches(e, actual)
	case *regexp.Regexp:
		if re, ok := actual.(*regexp.Regexp); ok && re == e {
			return true
		}
		return safeMatches(regexMatcher{re: e}, actual)
	case reflect.Type:
		return safeMatches(typeMatcher{t: e}, actual)
	}
	if IsMissing(expected) || IsMissing(actual) {
		return IsMissing(expected) && IsMissing(actual)
	}
	return equal(expected, actual)
}

func safeMatches(m Matcher, actual any) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()
	return m.Matches(actual)
}

// equal is deep equality widened so that numbers of different Go kinds
// compare by value.
func equal(expected, actual any) bool {
	if reflect.DeepEqual(expected, actual) {
		return true
	}
	return typeutil.NumbersEqual(expected, actual)
}

// =============================================================================
// BUILT-IN MATCHERS
// =============================================================================

type anyMatcher struct{}

func (anyMatcher) Matches(any) bool { return true }
func (anyMatcher) String() string   { return "ANY" }

// Any accepts every value, including Missing.
func Any() Matcher { return anyMatcher{} }

type literalMatcher struct{ value any }

func (m literalMatcher) Matches(actual any) bool {
	if IsMissing(m.value) || IsMissing(actual) {
		return IsMissing(m.value) && IsMissing(actual)
	}
	return equal(m.value, actual)
}

func (m literalMatcher) String() string { return Render(m.value) }

// Eq matches by equality only, so that a regexp or a reflect.Type can be
// expected as a value instead of as a pattern.
func Eq(value any) Matcher { return literalMatcher{value: value} }

type typeMatcher struct{ t reflect.Type }

func (m typeMatcher) Matches(actual any) bool {
	if actual == nil || IsMissing(actual) {
		return false
	}
	if rt, ok := actual.(reflect.Type); ok && rt == m.t {
		return true
	}
	at := reflect.TypeOf(actual)
	if m.t.Kind() == reflect.Interface {
		return at.Implements(m.t)
	}
	return at.AssignableTo(m.t)
}

func (m typeMatcher) String() string { return m.t.String() }

// Type matches values whose dynamic type is t, or implements t when t is an
// interface type.
func Type(t reflect.Type) Matcher { return typeMatcher{t: t} }

// TypeOf is Type for a type parameter.
func TypeOf[T any]() Matcher { return typeMatcher{t: reflect.TypeFor[T]()} }

type regexMatcher struct{ re *regexp.Regexp }

func (m regexMatcher) Matches(actual any) bool {
	if actual == nil || IsMissing(actual) {
		return false
	}
	switch v := actual.(type) {
	case string:
		return m.re.MatchString(v)
	case []byte:
		return m.re.Match(v)
	case fmt.Stringer:
		return m.re.MatchString(v.String())
	default:
		return m.re.MatchString(fmt.Sprint(v))
	}
}

func (m regexMatcher) String() string { return "/" + m.re.String() + "/" }

// Pattern matches values whose string form matches re.
func Pattern(re *regexp.Regexp) Matcher { return regexMatcher{re: re} }

type predicateMatcher struct {
	fn   func(any) bool
	desc string
}

func (m predicateMatcher) Matches(actual any) bool {
	if IsMissing(actual) {
		return false
	}
	return m.fn(actual)
}

func (m predicateMatcher) String() string { return "on{" + m.desc + "}" }

// On accepts values for which fn returns true.
func On(fn func(any) bool) Matcher { return predicateMatcher{fn: fn, desc: "..."} }

// OnNamed is On with a label used in diagnostics.
func OnNamed(desc string, fn func(any) bool) Matcher {
	return predicateMatcher{fn: fn, desc: desc}
}

type duckTypeMatcher struct{ methods []string }

func (m duckTypeMatcher) Matches(actual any) bool {
	if actual == nil || IsMissing(actual) {
		return false
	}
	v := reflect.ValueOf(actual)
	for _, name := range m.methods {
		if !v.MethodByName(name).IsValid() {
			return false
		}
	}
	return true
}

func (m duckTypeMatcher) String() string {
	return "ducktype(" + strings.Join(m.methods, ", ") + ")"
}

// DuckType accepts values that expose every named exported method.
func DuckType(methods ...string) Matcher {
	return duckTypeMatcher{methods: append([]string(nil), methods...)}
}

type hashSubsetMatcher struct{ pairs map[string]any }

func (m hashSubsetMatcher) Matches(actual any) bool {
	got, ok := typeutil.StringKeyedMap(actual)
	if !ok {
		return false
	}
	for key, want := range m.pairs {
		value, present := got[key]
		if !present || !Match(want, value) {
			return false
		}
	}
	return true
}

func (m hashSubsetMatcher) String() string {
	return "hsh(" + strings.Join(renderPairs(m.pairs), ", ") + ")"
}

// Hsh accepts string-keyed maps that contain every pair in pairs. Values in
// pairs may themselves be patterns. As a keyword matcher it applies to the
// whole keyword map.
func Hsh(pairs map[string]any) Matcher {
	copied := make(map[string]any, len(pairs))
	for k, v := range pairs {
		copied[k] = v
	}
	return hashSubsetMatcher{pairs: copied}
}

func renderPairs(pairs map[string]any) []string {
	keys := make([]string, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k + ": " + Render(pairs[k])
	}
	return out
}
