package mockbus

import (
	"context"
	"sort"
	"sync"

	"github.com/doudou/flexmock/coreengine/calls"
	"github.com/doudou/flexmock/coreengine/config"
	"github.com/doudou/flexmock/coreengine/expectation"
	"github.com/doudou/flexmock/coreengine/failure"
	"github.com/doudou/flexmock/coreengine/observability"
	"github.com/doudou/flexmock/coreengine/ordering"
)

// Mock routes the calls received by one test double to the expectations
// declared on it.
//
// Expectations live in layers. A mock created by a scope gets one layer, and
// every nested scope extending it pushes another. New expectations go to the
// innermost layer; a call is served by the innermost layer holding a
// matching expectation for the method.
//
// Registration is safe for concurrent use. Dispatch takes no lock while an
// expectation answers, so responses may call back into the mock.
type Mock struct {
	name       string
	history    *calls.History
	shared     *calls.History
	local      *ordering.Context
	global     *ordering.Context
	logger     Logger
	looseKw    bool
	metrics    bool
	middleware []Middleware

	layers []*layer
	mu     sync.RWMutex
}

type layer struct {
	owner     *Scope
	directors map[string]*expectation.Director
}

func newLayer(owner *Scope) *layer {
	return &layer{owner: owner, directors: make(map[string]*expectation.Director)}
}

// New creates a standalone mock with its own ordering domain. Mocks created
// through a Scope share the scope's global ordering domain instead.
func New(name string, opts ...Option) *Mock {
	o := collectOptions(opts)
	m := newMock(name, o, o.config(), nil, nil)
	m.layers = append(m.layers, newLayer(nil))
	return m
}

func newMock(name string, o *options, cfg *config.EngineConfig, global *ordering.Context, shared *calls.History) *Mock {
	history := calls.NewHistory()
	local := ordering.NewContext(name, history)
	if global == nil {
		global = local
	}
	return &Mock{
		name:       name,
		history:    history,
		shared:     shared,
		local:      local,
		global:     global,
		logger:     o.logger,
		looseKw:    o.looseKeywords(cfg),
		metrics:    cfg.EnableMetrics,
		middleware: o.chain(cfg),
	}
}

// Name returns the mock name.
func (m *Mock) Name() string { return m.name }

// =============================================================================
// REGISTRATION
// =============================================================================

// ShouldReceive declares a new expectation for method on the innermost
// layer.
func (m *Mock) ShouldReceive(method string) *expectation.Expectation {
	m.mu.Lock()
	top := m.layers[len(m.layers)-1]
	d, exists := top.directors[method]
	if !exists {
		d = expectation.NewDirector(expectation.Config{
			Mock:          m.name,
			Method:        method,
			Local:         m.local,
			Global:        m.global,
			Recorder:      m,
			Logger:        m.logger,
			LooseKeywords: m.looseKw,
		})
		top.directors[method] = d
	}
	m.mu.Unlock()

	if m.metrics {
		observability.RecordExpectationRegistered(m.name)
	}
	return d.Expect()
}

// ShouldReceiveMany declares one expectation per method and returns them as
// a group sharing every following constraint.
func (m *Mock) ShouldReceiveMany(methods ...string) *Group {
	g := &Group{}
	for _, method := range methods {
		g.expectations = append(g.expectations, m.ShouldReceive(method))
	}
	return g
}

// ShouldReceiveMap declares one stub per entry, returning the mapped value.
// Methods are declared in name order.
func (m *Mock) ShouldReceiveMap(returns map[string]any) *Group {
	methods := make([]string, 0, len(returns))
	for method := range returns {
		methods = append(methods, method)
	}
	sort.Strings(methods)

	g := &Group{}
	for _, method := range methods {
		g.expectations = append(g.expectations, m.ShouldReceive(method).AndReturn(returns[method]))
	}
	return g
}

// ByDefault turns every expectation of the innermost layer into a default.
func (m *Mock) ByDefault() *Mock {
	m.mu.RLock()
	top := m.layers[len(m.layers)-1]
	directors := make([]*expectation.Director, 0, len(top.directors))
	for _, d := range top.directors {
		directors = append(directors, d)
	}
	m.mu.RUnlock()

	for _, d := range directors {
		d.DefaultifyAll()
	}
	return m
}

// AddMiddleware appends middleware to the dispatch chain.
func (m *Mock) AddMiddleware(middleware Middleware) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.middleware = append(m.middleware, middleware)
}

// =============================================================================
// DISPATCH
// =============================================================================

// Invoke dispatches one intercepted call through the middleware chain.
func (m *Mock) Invoke(ctx context.Context, inv calls.Invocation) (any, error) {
	ctx = withMockName(ctx, m.name)
	chain := m.middlewareSnapshot()

	for i, mw := range chain {
		next, err := mw.Before(ctx, inv)
		if err != nil {
			return runAfter(ctx, chain[:i], inv, nil, err)
		}
		if next != nil {
			ctx = next
		}
	}

	result, err := m.dispatch(inv)
	return runAfter(ctx, chain, inv, result, err)
}

// Call dispatches method with positional arguments and no block.
func (m *Mock) Call(method string, args ...any) (any, error) {
	return m.Invoke(context.Background(), calls.Invocation{Method: method, Args: args})
}

// CallWithBlock dispatches method with positional arguments and a block.
func (m *Mock) CallWithBlock(method string, block calls.Block, args ...any) (any, error) {
	return m.Invoke(context.Background(), calls.Invocation{Method: method, Args: args, Block: block})
}

func (m *Mock) dispatch(inv calls.Invocation) (any, error) {
	if inv.Method == "" {
		return nil, failure.NewConfigurationError("invocation of mock '%s' has no method name", m.name)
	}
	return expectation.Dispatch(m.name, m, m.directors(inv.Method), inv)
}

// Record appends r to the mock history and to the scope history.
func (m *Mock) Record(r calls.Record) {
	m.history.Append(r)
	if m.shared != nil {
		m.shared.Append(r)
	}
}

// directors returns the directors of method, innermost layer first.
func (m *Mock) directors(method string) []*expectation.Director {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var chain []*expectation.Director
	for i := len(m.layers) - 1; i >= 0; i-- {
		if d, ok := m.layers[i].directors[method]; ok {
			chain = append(chain, d)
		}
	}
	return chain
}

func (m *Mock) middlewareSnapshot() []Middleware {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Middleware(nil), m.middleware...)
}

// runAfter runs the After chain in reverse order.
func runAfter(ctx context.Context, chain []Middleware, inv calls.Invocation, result any, err error) (any, error) {
	current := result
	for i := len(chain) - 1; i >= 0; i-- {
		afterResult, afterErr := chain[i].After(ctx, inv, current, err)
		if afterErr != nil {
			err = afterErr
		}
		if afterResult != nil {
			current = afterResult
		}
	}
	return current, err
}

// =============================================================================
// VERIFICATION
// =============================================================================

// Verify checks the count constraints of every layer.
func (m *Mock) Verify() error {
	return m.verify(func(*layer) bool { return true })
}

func (m *Mock) verifyOwnedBy(owner *Scope) error {
	return m.verify(func(l *layer) bool { return l.owner == owner })
}

func (m *Mock) verify(include func(*layer) bool) error {
	m.mu.RLock()
	var directors []*expectation.Director
	for _, l := range m.layers {
		if !include(l) {
			continue
		}
		for _, method := range sortedKeys(l.directors) {
			directors = append(directors, l.directors[method])
		}
	}
	m.mu.RUnlock()

	var errs failure.VerificationErrors
	for _, d := range directors {
		if err := d.Verify(); err != nil {
			errs = append(errs, failure.Collect(err)...)
		}
	}
	if m.metrics {
		observability.RecordVerification(m.name, len(errs))
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// =============================================================================
// LAYERS
// =============================================================================

// pushLayer opens a layer owned by owner unless the innermost one already
// is. It reports whether a layer was pushed.
func (m *Mock) pushLayer(owner *Scope) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if n := len(m.layers); n > 0 && m.layers[n-1].owner == owner {
		return false
	}
	m.layers = append(m.layers, newLayer(owner))
	return true
}

// popLayer drops the layers owned by owner.
func (m *Mock) popLayer(owner *Scope) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.layers[:0]
	for _, l := range m.layers {
		if l.owner != owner {
			kept = append(kept, l)
		}
	}
	m.layers = kept
	if len(m.layers) == 0 {
		m.layers = append(m.layers, newLayer(nil))
	}
}

// Depth returns the number of expectation layers.
func (m *Mock) Depth() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.layers)
}

// =============================================================================
// INTROSPECTION
// =============================================================================

// HasHandler reports whether any layer declares an expectation for method.
func (m *Mock) HasHandler(method string) bool {
	for _, d := range m.directors(method) {
		if len(d.Expectations()) > 0 {
			return true
		}
	}
	return false
}

// RegisteredMethods returns every method with a director, sorted.
func (m *Mock) RegisteredMethods() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]*expectation.Director)
	for _, l := range m.layers {
		for method, d := range l.directors {
			seen[method] = d
		}
	}
	return sortedKeys(seen)
}

// Expectations returns the expectations of method, innermost layer first.
func (m *Mock) Expectations(method string) []*expectation.Expectation {
	var out []*expectation.Expectation
	for _, d := range m.directors(method) {
		out = append(out, d.Expectations()...)
	}
	return out
}

// Calls returns every received call, in arrival order.
func (m *Mock) Calls() []calls.Record {
	return m.history.Records()
}

// Received counts the received calls matching the given patterns. Nil args
// or kwargs leave that part unconstrained.
func (m *Mock) Received(method string, args []any, kwargs map[string]any, block calls.BlockRequirement) int {
	return m.history.Count(method, args, kwargs, block)
}

// DescribeCalls renders the received calls for diagnostics.
func (m *Mock) DescribeCalls() string {
	return m.history.Describe()
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// Clear drops every expectation, the call history and the per-mock ordering
// state. The layer stack is kept.
func (m *Mock) Clear() {
	m.mu.Lock()
	for _, l := range m.layers {
		l.directors = make(map[string]*expectation.Director)
	}
	m.mu.Unlock()

	m.history.Reset()
	m.local.Reset()
	if m.logger != nil {
		m.logger.Debug("mock_cleared", "mock", m.name)
	}
}

func sortedKeys(directors map[string]*expectation.Director) []string {
	keys := make([]string, 0, len(directors))
	for k := range directors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
