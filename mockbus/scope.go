package mockbus

import (
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/doudou/flexmock/coreengine/calls"
	"github.com/doudou/flexmock/coreengine/config"
	"github.com/doudou/flexmock/coreengine/failure"
	"github.com/doudou/flexmock/coreengine/matching"
	"github.com/doudou/flexmock/coreengine/ordering"
)

// Scope owns the mocks of one test (or of one nested block of a test).
//
// Every scope of a tree shares one global ordering domain and one call
// history, so Globally().Ordered() expectations are checked across all of
// their mocks. Closing a scope verifies and removes the expectation layers
// it added.
type Scope struct {
	id     string
	parent *Scope
	opts   *options
	cfg    *config.EngineConfig
	global *ordering.Context
	shared *calls.History

	children []*Scope
	mocks    []*Mock
	closed   bool
	mu       sync.Mutex
}

// NewScope creates a root scope. The pattern cache TTL of the configuration
// is applied process-wide.
func NewScope(opts ...Option) *Scope {
	o := collectOptions(opts)
	cfg := o.config()
	matching.SetPatternCacheTTL(cfg.RegexCacheTTL())

	shared := calls.NewSharedHistory()
	s := &Scope{
		id:     uuid.NewString(),
		opts:   o,
		cfg:    cfg,
		global: ordering.NewContext("global", shared),
		shared: shared,
	}
	s.debug("scope_opened")
	return s
}

// ID returns the scope identifier.
func (s *Scope) ID() string { return s.id }

// Parent returns the enclosing scope, nil for a root scope.
func (s *Scope) Parent() *Scope { return s.parent }

// Config returns the configuration the scope was created with.
func (s *Scope) Config() *config.EngineConfig { return s.cfg }

// Nest creates a child scope sharing the global ordering domain.
func (s *Scope) Nest() *Scope {
	child := &Scope{
		id:     uuid.NewString(),
		parent: s,
		opts:   s.opts,
		cfg:    s.cfg,
		global: s.global,
		shared: s.shared,
	}

	s.mu.Lock()
	s.children = append(s.children, child)
	s.mu.Unlock()

	child.debug("scope_opened", "parent", s.id)
	return child
}

// =============================================================================
// MOCKS
// =============================================================================

// Mock returns the mock called name, creating it when no enclosing scope
// knows it. A mock of an enclosing scope is extended with a new layer. An
// empty name generates one from the configured prefix.
func (s *Scope) Mock(name string) *Mock {
	if name == "" {
		name = s.cfg.MockNamePrefix + "_" + uuid.NewString()[:8]
	}
	if m := s.lookup(name); m != nil {
		return s.Extend(m)
	}
	return s.Extend(newMock(name, s.opts, s.cfg, s.global, s.shared))
}

// Extend pushes a layer owned by this scope onto m. Expectations declared
// afterwards are verified and dropped when the scope closes.
func (s *Scope) Extend(m *Mock) *Mock {
	if !m.pushLayer(s) {
		return m
	}
	s.mu.Lock()
	if !slices.Contains(s.mocks, m) {
		s.mocks = append(s.mocks, m)
	}
	s.mu.Unlock()
	s.debug("mock_extended", "mock", m.name, "depth", m.Depth())
	return m
}

// Mocks returns the mocks this scope added a layer to, in order.
func (s *Scope) Mocks() []*Mock {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Mock(nil), s.mocks...)
}

func (s *Scope) lookup(name string) *Mock {
	for scope := s; scope != nil; scope = scope.parent {
		for _, m := range scope.Mocks() {
			if m.name == name {
				return m
			}
		}
	}
	return nil
}

// DescribeCalls renders every call received by the mocks of the scope tree,
// each prefixed with its mock name.
func (s *Scope) DescribeCalls() string {
	return s.shared.Describe()
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// Close closes the open child scopes (last opened first), verifies the
// layers this scope added when verify_on_close is set, and removes them.
// Verification failures of the whole subtree are aggregated. Closing twice
// is a no-op.
func (s *Scope) Close() error {
	return s.close(s.cfg.VerifyOnClose)
}

func (s *Scope) close(verify bool) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	children := s.children
	mocks := s.mocks
	s.children = nil
	s.mocks = nil
	s.mu.Unlock()

	var errs failure.VerificationErrors
	for i := len(children) - 1; i >= 0; i-- {
		errs = append(errs, failure.Collect(children[i].close(verify))...)
	}
	if verify {
		for _, m := range mocks {
			errs = append(errs, failure.Collect(m.verifyOwnedBy(s))...)
		}
	}
	for i := len(mocks) - 1; i >= 0; i-- {
		mocks[i].popLayer(s)
	}

	if s.parent != nil {
		s.parent.detach(s)
	}

	if len(errs) > 0 {
		s.warn("scope_closed", "failures", len(errs))
		return errs
	}
	s.debug("scope_closed", "mocks", len(mocks))
	return nil
}

func (s *Scope) detach(child *Scope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.children {
		if c == child {
			s.children = append(s.children[:i], s.children[i+1:]...)
			return
		}
	}
}

// Use runs fn in a new root scope and closes it. When fn fails the scope is
// closed without verification and fn's error is returned.
func Use(fn func(s *Scope) error, opts ...Option) error {
	return run(NewScope(opts...), fn)
}

// Use runs fn in a child scope and closes it, as the package level Use.
func (s *Scope) Use(fn func(s *Scope) error) error {
	return run(s.Nest(), fn)
}

func run(s *Scope, fn func(s *Scope) error) error {
	if err := fn(s); err != nil {
		_ = s.close(false)
		return err
	}
	return s.Close()
}

func (s *Scope) debug(msg string, keysAndValues ...any) {
	if s.opts.logger != nil {
		s.opts.logger.Debug(msg, append([]any{"scope", s.id}, keysAndValues...)...)
	}
}

func (s *Scope) warn(msg string, keysAndValues ...any) {
	if s.opts.logger != nil {
		s.opts.logger.Warn(msg, append([]any{"scope", s.id}, keysAndValues...)...)
	}
}
