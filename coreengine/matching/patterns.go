package matching

import (
	"regexp"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/doudou/flexmock/coreengine/failure"
)

const (
	// DefaultPatternTTL is how long a compiled pattern stays cached after its
	// last use.
	DefaultPatternTTL = 10 * time.Minute
	// DefaultPatternCleanup is the interval of expired pattern eviction.
	DefaultPatternCleanup = 30 * time.Minute
)

var (
	patternMu    sync.RWMutex
	patternTTL   = DefaultPatternTTL
	patternCache = gocache.New(DefaultPatternTTL, DefaultPatternCleanup)
)

// SetPatternCacheTTL changes how long compiled patterns stay cached and drops
// every cached entry. A non-positive ttl disables expiry.
func SetPatternCacheTTL(ttl time.Duration) {
	patternMu.Lock()
	defer patternMu.Unlock()
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	patternTTL = ttl
	patternCache.Flush()
}

// Regex returns a matcher for a textual regular expression. Compiled
// expressions are shared through a TTL cache since the same pattern tends to
// be declared by many expectations.
func Regex(pattern string) (Matcher, error) {
	re, err := compilePattern(pattern)
	if err != nil {
		return nil, err
	}
	return regexMatcher{re: re}, nil
}

// MustRegex is Regex that panics on an invalid pattern.
func MustRegex(pattern string) Matcher {
	m, err := Regex(pattern)
	if err != nil {
		panic(err)
	}
	return m
}

func compilePattern(pattern string) (*regexp.Regexp, error) {
	patternMu.RLock()
	cached, found := patternCache.Get(pattern)
	ttl := patternTTL
	patternMu.RUnlock()
	if found {
		if re, ok := cached.(*regexp.Regexp); ok {
			patternCache.Set(pattern, re, ttl)
			return re, nil
		}
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, &failure.ConfigurationError{Message: "invalid pattern /" + pattern + "/", Cause: err}
	}
	patternCache.Set(pattern, re, ttl)
	return re, nil
}
