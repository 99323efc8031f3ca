// =============================================================================
// webpilot default configuration
// =============================================================================
package config

import "time"

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Log:       DefaultLogConfig(),
		History:   DefaultHistoryConfig(),
		Selector:  DefaultSelectorConfig(),
		Engine:    DefaultEngineConfig(),
		Browser:   DefaultBrowserConfig(),
		Telemetry: DefaultTelemetryConfig(),
		Metrics:   DefaultMetricsConfig(),
	}
}

// DefaultLogConfig returns the default logging configuration.
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:       "info",
		Format:      "console",
		OutputPaths: []string{"stderr"},
	}
}

// DefaultHistoryConfig returns the default history store configuration.
func DefaultHistoryConfig() HistoryConfig {
	return HistoryConfig{
		Type:    "file",
		BaseDir: "./data/history",
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			PoolSize:  10,
			KeyPrefix: "webpilot:",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			Name:   "./data/history/history.db",
		},
		Mongo: MongoConfig{
			URI:        "mongodb://localhost:27017",
			Database:   "webpilot",
			Collection: "selector_history",
		},
	}
}

// DefaultSelectorConfig returns the default selection configuration.
func DefaultSelectorConfig() SelectorConfig {
	return SelectorConfig{
		Strategy:               "hybrid",
		MaxCandidates:          3,
		HistoryBoost:           0.2,
		HybridStructuralWeight: 0.6,
		NormDistance:           1500,
		ProximityWeight:        0.7,
		MatchThreshold:         0.6,
	}
}

// DefaultEngineConfig returns the default engine configuration.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		MaxCandidates:     3,
		ActionTimeout:     3 * time.Second,
		StepTimeout:       15 * time.Second,
		SettleDelay:       300 * time.Millisecond,
		WaitDelay:         1 * time.Second,
		ScrollAmount:      500,
		ContinueOnFailure: true,
	}
}

// DefaultBrowserConfig returns the default browser configuration.
func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{
		Headless:       true,
		ViewportWidth:  1280,
		ViewportHeight: 800,
		DiagnosticsDir: "diagnostics",
		ActionsPerSec:  5,
	}
}

// DefaultTelemetryConfig returns the default telemetry configuration.
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "webpilot",
		SampleRate:   1.0,
	}
}

// DefaultMetricsConfig returns the default metrics configuration.
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled: false,
		Addr:    ":9091",
	}
}
