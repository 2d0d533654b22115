package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// =============================================================================
// DEFAULT CONFIG TESTS
// =============================================================================

func TestDefaultEngineConfig(t *testing.T) {
	config := DefaultEngineConfig()

	assert.Equal(t, "flexmock", config.MockNamePrefix)
	assert.Equal(t, "INFO", config.LogLevel)
	assert.False(t, config.LogDispatch)
	assert.False(t, config.EnableMetrics)
	assert.False(t, config.EnableTracing)
	assert.Equal(t, "flexmock", config.ServiceName)
	assert.Equal(t, "localhost:4317", config.TraceEndpoint)
	assert.Equal(t, 600, config.RegexCacheTTLSeconds)
	assert.True(t, config.StrictKeywordArgs)
	assert.True(t, config.VerifyOnClose)
	assert.Equal(t, 10*time.Minute, config.RegexCacheTTL())
}

// =============================================================================
// FROM MAP TESTS
// =============================================================================

func TestEngineConfigFromMapPartial(t *testing.T) {
	config := EngineConfigFromMap(map[string]any{
		"mock_name_prefix": "double",
		"enable_metrics":   true,
	})

	assert.Equal(t, "double", config.MockNamePrefix)
	assert.True(t, config.EnableMetrics)

	// Defaults preserved
	assert.Equal(t, "INFO", config.LogLevel)
	assert.True(t, config.VerifyOnClose)
}

func TestEngineConfigFromMapNumbers(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  int
	}{
		{"int", 30, 30},
		{"float64 from JSON", 45.0, 45},
		{"int64", int64(12), 12},
		{"wrong type keeps default", "soon", 600},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := EngineConfigFromMap(map[string]any{"regex_cache_ttl_seconds": tt.value})
			assert.Equal(t, tt.want, config.RegexCacheTTLSeconds)
		})
	}
}

func TestEngineConfigFromMapIgnoresUnknownKeys(t *testing.T) {
	config := EngineConfigFromMap(map[string]any{"no_such_key": 1})
	assert.Equal(t, DefaultEngineConfig(), config)
}

func TestEngineConfigRoundTrip(t *testing.T) {
	original := DefaultEngineConfig()
	original.LogDispatch = true
	original.TraceEndpoint = "collector:4317"
	original.StrictKeywordArgs = false

	restored := EngineConfigFromMap(original.ToMap())
	assert.Equal(t, original, restored)
}

// =============================================================================
// GLOBAL CONFIG TESTS
// =============================================================================

func TestGlobalEngineConfig(t *testing.T) {
	defer ResetEngineConfig()

	assert.Equal(t, DefaultEngineConfig(), GetEngineConfig())

	custom := DefaultEngineConfig()
	custom.LogLevel = "DEBUG"
	SetEngineConfig(custom)
	assert.Same(t, custom, GetEngineConfig())

	ResetEngineConfig()
	assert.Equal(t, "INFO", GetEngineConfig().LogLevel)
}

func TestConfigProviders(t *testing.T) {
	defer ResetEngineConfig()

	custom := DefaultEngineConfig()
	custom.MockNamePrefix = "spy"
	SetEngineConfig(custom)

	var p ConfigProvider = &DefaultConfigProvider{}
	assert.Equal(t, "spy", p.GetEngineConfig().MockNamePrefix)

	p = NewStaticConfigProvider(nil)
	assert.Equal(t, "flexmock", p.GetEngineConfig().MockNamePrefix)

	fixed := DefaultEngineConfig()
	fixed.LogDispatch = true
	p = NewStaticConfigProvider(fixed)
	assert.Same(t, fixed, p.GetEngineConfig())
}
