package mockbus

import (
	"go.opentelemetry.io/otel/trace"

	"github.com/doudou/flexmock/coreengine/config"
	"github.com/doudou/flexmock/coreengine/observability"
)

// Option configures a Mock or a Scope.
type Option func(*options)

type options struct {
	logger     Logger
	middleware []Middleware
	looseKw    *bool
	provider   config.ConfigProvider
	tracer     trace.Tracer
}

// WithLogger sets the logger handed to directors and logging middleware.
func WithLogger(logger Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMiddleware appends middleware after the ones derived from the
// configuration.
func WithMiddleware(middleware ...Middleware) Option {
	return func(o *options) { o.middleware = append(o.middleware, middleware...) }
}

// WithLooseKeywords overrides the strict_keyword_args setting. When loose,
// With(...) leaves keyword arguments unconstrained.
func WithLooseKeywords(loose bool) Option {
	return func(o *options) { o.looseKw = &loose }
}

// WithConfigProvider sets where the engine configuration comes from. The
// global configuration is used by default.
func WithConfigProvider(provider config.ConfigProvider) Option {
	return func(o *options) { o.provider = provider }
}

// WithTracer sets the tracer used when tracing is enabled. The global
// provider's tracer is used by default.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) { o.tracer = tracer }
}

func collectOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *options) config() *config.EngineConfig {
	provider := o.provider
	if provider == nil {
		provider = &config.DefaultConfigProvider{}
	}
	return provider.GetEngineConfig()
}

func (o *options) looseKeywords(cfg *config.EngineConfig) bool {
	if o.looseKw != nil {
		return *o.looseKw
	}
	return !cfg.StrictKeywordArgs
}

// chain builds the middleware of a mock: logging, tracing and metrics as
// enabled by cfg, then the explicit middleware.
func (o *options) chain(cfg *config.EngineConfig) []Middleware {
	var chain []Middleware
	if cfg.LogDispatch && o.logger != nil {
		chain = append(chain, NewLoggingMiddleware(o.logger))
	}
	if cfg.EnableTracing {
		tracer := o.tracer
		if tracer == nil {
			tracer = observability.Tracer()
		}
		chain = append(chain, NewTracingMiddleware(tracer))
	}
	if cfg.EnableMetrics {
		chain = append(chain, NewMetricsMiddleware())
	}
	return append(chain, o.middleware...)
}
