// Package config holds the engine configuration.
//
// Only behavior toggles live here. Loading (files, environment) is done by
// the command line front end, which hands a plain map to EngineConfigFromMap.
package config

import (
	"sync"
	"time"

	"github.com/doudou/flexmock/coreengine/typeutil"
)

// EngineConfig holds engine configuration.
type EngineConfig struct {
	// Naming
	MockNamePrefix string `json:"mock_name_prefix"` // Prefix of generated names for anonymous mocks

	// Logging
	LogLevel    string `json:"log_level"`
	LogDispatch bool   `json:"log_dispatch"` // Log every dispatched call

	// Observability
	EnableMetrics bool   `json:"enable_metrics"`
	EnableTracing bool   `json:"enable_tracing"`
	ServiceName   string `json:"service_name"`
	TraceEndpoint string `json:"trace_endpoint"` // OTLP gRPC collector address

	// Matching
	RegexCacheTTLSeconds int  `json:"regex_cache_ttl_seconds"` // 0 disables expiry
	StrictKeywordArgs    bool `json:"strict_keyword_args"`     // With(...) forbids keywords unless declared

	// Teardown
	VerifyOnClose bool `json:"verify_on_close"`
}

// DefaultEngineConfig returns an EngineConfig with default values.
func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		MockNamePrefix: "flexmock",

		LogLevel:    "INFO",
		LogDispatch: false,

		EnableMetrics: false,
		EnableTracing: false,
		ServiceName:   "flexmock",
		TraceEndpoint: "localhost:4317",

		RegexCacheTTLSeconds: 600,
		StrictKeywordArgs:    true,

		VerifyOnClose: true,
	}
}

// EngineConfigFromMap creates an EngineConfig from a map.
// Unknown keys are ignored; numbers may be int or float64.
func EngineConfigFromMap(config map[string]any) *EngineConfig {
	c := DefaultEngineConfig()

	c.MockNamePrefix = typeutil.SafeStringDefault(config["mock_name_prefix"], c.MockNamePrefix)
	c.LogLevel = typeutil.SafeStringDefault(config["log_level"], c.LogLevel)
	c.LogDispatch = typeutil.SafeBoolDefault(config["log_dispatch"], c.LogDispatch)
	c.EnableMetrics = typeutil.SafeBoolDefault(config["enable_metrics"], c.EnableMetrics)
	c.EnableTracing = typeutil.SafeBoolDefault(config["enable_tracing"], c.EnableTracing)
	c.ServiceName = typeutil.SafeStringDefault(config["service_name"], c.ServiceName)
	c.TraceEndpoint = typeutil.SafeStringDefault(config["trace_endpoint"], c.TraceEndpoint)
	c.RegexCacheTTLSeconds = typeutil.SafeIntDefault(config["regex_cache_ttl_seconds"], c.RegexCacheTTLSeconds)
	c.StrictKeywordArgs = typeutil.SafeBoolDefault(config["strict_keyword_args"], c.StrictKeywordArgs)
	c.VerifyOnClose = typeutil.SafeBoolDefault(config["verify_on_close"], c.VerifyOnClose)

	return c
}

// ToMap converts config to a map.
func (c *EngineConfig) ToMap() map[string]any {
	return map[string]any{
		"mock_name_prefix":        c.MockNamePrefix,
		"log_level":               c.LogLevel,
		"log_dispatch":            c.LogDispatch,
		"enable_metrics":          c.EnableMetrics,
		"enable_tracing":          c.EnableTracing,
		"service_name":            c.ServiceName,
		"trace_endpoint":          c.TraceEndpoint,
		"regex_cache_ttl_seconds": c.RegexCacheTTLSeconds,
		"strict_keyword_args":     c.StrictKeywordArgs,
		"verify_on_close":         c.VerifyOnClose,
	}
}

// RegexCacheTTL returns the pattern cache TTL as a duration.
func (c *EngineConfig) RegexCacheTTL() time.Duration {
	return time.Duration(c.RegexCacheTTLSeconds) * time.Second
}

// =============================================================================
// CONFIG PROVIDER
// =============================================================================

// ConfigProvider supplies the configuration to scopes and mocks.
type ConfigProvider interface {
	GetEngineConfig() *EngineConfig
}

// DefaultConfigProvider provides the global configuration.
type DefaultConfigProvider struct{}

// GetEngineConfig returns the global engine configuration.
func (p *DefaultConfigProvider) GetEngineConfig() *EngineConfig {
	return GetEngineConfig()
}

// StaticConfigProvider provides a fixed configuration.
type StaticConfigProvider struct {
	Config *EngineConfig
}

// GetEngineConfig returns the fixed configuration, or defaults when unset.
func (p *StaticConfigProvider) GetEngineConfig() *EngineConfig {
	if p.Config == nil {
		return DefaultEngineConfig()
	}
	return p.Config
}

// NewStaticConfigProvider creates a new StaticConfigProvider.
func NewStaticConfigProvider(config *EngineConfig) *StaticConfigProvider {
	return &StaticConfigProvider{Config: config}
}

// =============================================================================
// GLOBAL CONFIG (set by the command line bootstrap)
// =============================================================================

var (
	globalEngineConfig *EngineConfig
	configMu           sync.RWMutex
)

// GetEngineConfig returns the injected config or defaults.
func GetEngineConfig() *EngineConfig {
	configMu.RLock()
	defer configMu.RUnlock()

	if globalEngineConfig == nil {
		return DefaultEngineConfig()
	}
	return globalEngineConfig
}

// SetEngineConfig sets the engine configuration instance.
func SetEngineConfig(config *EngineConfig) {
	configMu.Lock()
	defer configMu.Unlock()

	globalEngineConfig = config
}

// ResetEngineConfig resets the engine config so GetEngineConfig returns
// defaults again.
func ResetEngineConfig() {
	configMu.Lock()
	defer configMu.Unlock()

	globalEngineConfig = nil
}
