// =============================================================================
// webpilot configuration loader
// =============================================================================
// Unified configuration loading: YAML file plus environment variable override.
//
// Usage:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("config.yaml").
//	    WithEnvPrefix("WEBPILOT").
//	    Load()
//
// Precedence: defaults -> YAML file -> environment variables.
// =============================================================================
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/BaSui01/webpilot/executor"
	"github.com/BaSui01/webpilot/history"
	"github.com/BaSui01/webpilot/selector"
)

// Config is the complete webpilot configuration.
type Config struct {
	// Log configures structured logging.
	Log LogConfig `yaml:"log" env:"LOG"`

	// History configures the cross-session selector history store.
	History HistoryConfig `yaml:"history" env:"HISTORY"`

	// Selector configures candidate scoring and ranking.
	Selector SelectorConfig `yaml:"selector" env:"SELECTOR"`

	// Engine configures the step execution engine.
	Engine EngineConfig `yaml:"engine" env:"ENGINE"`

	// Browser configures the chromedp driver.
	Browser BrowserConfig `yaml:"browser" env:"BROWSER"`

	// Progress configures external progress streaming.
	Progress ProgressConfig `yaml:"progress" env:"PROGRESS"`

	// Telemetry configures OpenTelemetry export.
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`

	// Metrics configures the Prometheus endpoint.
	Metrics MetricsConfig `yaml:"metrics" env:"METRICS"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	// Level: debug, info, warn, error.
	Level string `yaml:"level" env:"LEVEL"`
	// Format: json, console.
	Format string `yaml:"format" env:"FORMAT"`
	// Output paths, stdout/stderr or file paths.
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// EnableCaller annotates entries with the call site.
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
	// EnableStacktrace adds stack traces to error entries.
	EnableStacktrace bool `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// HistoryConfig selects and configures the history store backend.
type HistoryConfig struct {
	// Type: memory, file, redis, sql, mongo.
	Type string `yaml:"type" env:"TYPE"`
	// BaseDir is the directory of the file backend.
	BaseDir string `yaml:"base_dir" env:"BASE_DIR"`

	Redis    RedisConfig    `yaml:"redis" env:"REDIS"`
	Database DatabaseConfig `yaml:"database" env:"DATABASE"`
	Mongo    MongoConfig    `yaml:"mongo" env:"MONGO"`
}

// RedisConfig configures the Redis history backend.
type RedisConfig struct {
	Addr      string `yaml:"addr" env:"ADDR"`
	Password  string `yaml:"password" env:"PASSWORD"`
	DB        int    `yaml:"db" env:"DB"`
	PoolSize  int    `yaml:"pool_size" env:"POOL_SIZE"`
	KeyPrefix string `yaml:"key_prefix" env:"KEY_PREFIX"`
}

// DatabaseConfig configures the SQL history backend.
type DatabaseConfig struct {
	// Driver: sqlite, postgres, mysql.
	Driver   string `yaml:"driver" env:"DRIVER"`
	Host     string `yaml:"host" env:"HOST"`
	Port     int    `yaml:"port" env:"PORT"`
	User     string `yaml:"user" env:"USER"`
	Password string `yaml:"password" env:"PASSWORD"`
	Name     string `yaml:"name" env:"NAME"`
	SSLMode  string `yaml:"ssl_mode" env:"SSL_MODE"`
}

// DSN returns the driver-specific connection string.
func (d *DatabaseConfig) DSN() string {
	switch d.Driver {
	case "postgres":
		return fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
		)
	case "mysql":
		return fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?parseTime=true",
			d.User, d.Password, d.Host, d.Port, d.Name,
		)
	case "sqlite":
		return d.Name
	default:
		return ""
	}
}

// MongoConfig configures the MongoDB history backend.
type MongoConfig struct {
	URI        string `yaml:"uri" env:"URI"`
	Database   string `yaml:"database" env:"DATABASE"`
	Collection string `yaml:"collection" env:"COLLECTION"`
}

// SelectorConfig configures scoring and ranking.
type SelectorConfig struct {
	// Strategy: structural, spatial, hybrid.
	Strategy string `yaml:"strategy" env:"STRATEGY"`
	// MaxCandidates bounds the ranked list.
	MaxCandidates int `yaml:"max_candidates" env:"MAX_CANDIDATES"`
	// HistoryBoost is added to the structural score of the remembered selector.
	HistoryBoost float64 `yaml:"history_boost" env:"HISTORY_BOOST"`
	// HybridStructuralWeight is the structural share under the hybrid strategy.
	HybridStructuralWeight float64 `yaml:"hybrid_structural_weight" env:"HYBRID_STRUCTURAL_WEIGHT"`
	// NormDistance is the pixel distance that maps to zero proximity.
	NormDistance float64 `yaml:"norm_distance" env:"NORM_DISTANCE"`
	// ProximityWeight is the proximity share of the spatial score.
	ProximityWeight float64 `yaml:"proximity_weight" env:"PROXIMITY_WEIGHT"`
	// MatchThreshold is the minimum word overlap for element matching.
	MatchThreshold float64 `yaml:"match_threshold" env:"MATCH_THRESHOLD"`
}

// EngineConfig configures the execution engine.
type EngineConfig struct {
	MaxCandidates     int           `yaml:"max_candidates" env:"MAX_CANDIDATES"`
	ActionTimeout     time.Duration `yaml:"action_timeout" env:"ACTION_TIMEOUT"`
	StepTimeout       time.Duration `yaml:"step_timeout" env:"STEP_TIMEOUT"`
	SettleDelay       time.Duration `yaml:"settle_delay" env:"SETTLE_DELAY"`
	WaitDelay         time.Duration `yaml:"wait_delay" env:"WAIT_DELAY"`
	ScrollAmount      int           `yaml:"scroll_amount" env:"SCROLL_AMOUNT"`
	ContinueOnFailure bool          `yaml:"continue_on_failure" env:"CONTINUE_ON_FAILURE"`
}

// BrowserConfig configures the chromedp driver.
type BrowserConfig struct {
	Headless       bool    `yaml:"headless" env:"HEADLESS"`
	ViewportWidth  int     `yaml:"viewport_width" env:"VIEWPORT_WIDTH"`
	ViewportHeight int     `yaml:"viewport_height" env:"VIEWPORT_HEIGHT"`
	UserAgent      string  `yaml:"user_agent" env:"USER_AGENT"`
	ProxyURL       string  `yaml:"proxy_url" env:"PROXY_URL"`
	DiagnosticsDir string  `yaml:"diagnostics_dir" env:"DIAGNOSTICS_DIR"`
	ActionsPerSec  float64 `yaml:"actions_per_sec" env:"ACTIONS_PER_SEC"`
}

// ProgressConfig configures external progress streaming. An empty endpoint
// disables the WebSocket reporter; progress still goes to the log.
type ProgressConfig struct {
	// Endpoint is a ws:// or wss:// URL receiving progress events as JSON.
	Endpoint string `yaml:"endpoint" env:"ENDPOINT"`
}

// TelemetryConfig configures OpenTelemetry export.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled" env:"ENABLED"`
	OTLPEndpoint string  `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	ServiceName  string  `yaml:"service_name" env:"SERVICE_NAME"`
	SampleRate   float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// MetricsConfig configures the Prometheus scrape endpoint. An empty Addr
// keeps metrics in-process only.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" env:"ENABLED"`
	Addr    string `yaml:"addr" env:"ADDR"`
}

// =============================================================================
// Component config conversion
// =============================================================================

// StoreConfig maps the history section onto the store factory's config.
func (h *HistoryConfig) StoreConfig() history.StoreConfig {
	cfg := history.DefaultStoreConfig()
	if h.Type != "" {
		cfg.Type = history.StoreType(h.Type)
	}
	if h.BaseDir != "" {
		cfg.BaseDir = h.BaseDir
	}
	if h.Redis.Addr != "" {
		cfg.Redis = history.RedisConfig{
			Addr:      h.Redis.Addr,
			Password:  h.Redis.Password,
			DB:        h.Redis.DB,
			PoolSize:  h.Redis.PoolSize,
			KeyPrefix: h.Redis.KeyPrefix,
		}
	}
	if h.Database.Driver != "" {
		cfg.SQL = history.SQLConfig{Driver: h.Database.Driver, DSN: h.Database.DSN()}
	}
	if h.Mongo.URI != "" {
		cfg.Mongo = history.MongoConfig{
			URI:        h.Mongo.URI,
			Database:   h.Mongo.Database,
			Collection: h.Mongo.Collection,
		}
	}
	return cfg
}

// RankerConfig maps the selector section onto the ranker's config. Provenance
// priors keep their defaults; they are tuning constants, not deployment knobs.
func (s *SelectorConfig) RankerConfig() selector.Config {
	cfg := selector.DefaultConfig()
	if s.Strategy != "" {
		cfg.Strategy = selector.Strategy(s.Strategy)
	}
	if s.MaxCandidates > 0 {
		cfg.MaxCandidates = s.MaxCandidates
	}
	if s.HistoryBoost > 0 {
		cfg.HistoryBoost = s.HistoryBoost
	}
	if s.HybridStructuralWeight > 0 {
		cfg.HybridStructuralWeight = s.HybridStructuralWeight
	}
	if s.NormDistance > 0 {
		cfg.NormDistance = s.NormDistance
	}
	if s.ProximityWeight > 0 {
		cfg.ProximityWeight = s.ProximityWeight
	}
	if s.MatchThreshold > 0 {
		cfg.MatchThreshold = s.MatchThreshold
	}
	return cfg
}

// EngineConfig maps the engine section onto the executor's config.
func (e *EngineConfig) EngineConfig() executor.Config {
	cfg := executor.DefaultConfig()
	if e.MaxCandidates > 0 {
		cfg.MaxCandidates = e.MaxCandidates
	}
	if e.ActionTimeout > 0 {
		cfg.ActionTimeout = e.ActionTimeout
	}
	if e.StepTimeout > 0 {
		cfg.StepTimeout = e.StepTimeout
	}
	if e.SettleDelay > 0 {
		cfg.SettleDelay = e.SettleDelay
	}
	if e.WaitDelay > 0 {
		cfg.WaitDelay = e.WaitDelay
	}
	if e.ScrollAmount != 0 {
		cfg.ScrollAmount = e.ScrollAmount
	}
	cfg.ContinueOnFailure = e.ContinueOnFailure
	return cfg
}

// DriverConfig maps the browser section onto the chromedp driver's config.
func (b *BrowserConfig) DriverConfig() executor.DriverConfig {
	cfg := executor.DefaultDriverConfig()
	cfg.Headless = b.Headless
	if b.ViewportWidth > 0 {
		cfg.ViewportWidth = b.ViewportWidth
	}
	if b.ViewportHeight > 0 {
		cfg.ViewportHeight = b.ViewportHeight
	}
	if b.UserAgent != "" {
		cfg.UserAgent = b.UserAgent
	}
	if b.ProxyURL != "" {
		cfg.ProxyURL = b.ProxyURL
	}
	if b.DiagnosticsDir != "" {
		cfg.DiagnosticsDir = b.DiagnosticsDir
	}
	if b.ActionsPerSec > 0 {
		cfg.ActionsPerSec = b.ActionsPerSec
	}
	return cfg
}

// =============================================================================
// Loader
// =============================================================================

// Loader loads configuration with builder-style options.
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader creates a loader with the default env prefix.
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "WEBPILOT",
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath sets the YAML config file path.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix sets the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator adds a validation hook run after loading.
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load resolves the configuration.
// Precedence: defaults -> YAML file -> environment variables.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

// setFieldsFromEnv walks the struct recursively, overriding tagged fields
// from PREFIX_SECTION_FIELD environment variables.
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// MustLoad loads configuration or panics.
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// Validate checks cross-field consistency.
func (c *Config) Validate() error {
	var errs []string

	if s := selector.Strategy(orDefault(c.Selector.Strategy, string(selector.StrategyHybrid))); !s.Valid() {
		errs = append(errs, fmt.Sprintf("unknown selector strategy: %s", c.Selector.Strategy))
	}
	if c.Selector.MaxCandidates < 0 {
		errs = append(errs, "selector.max_candidates must not be negative")
	}
	if c.Selector.HybridStructuralWeight < 0 || c.Selector.HybridStructuralWeight > 1 {
		errs = append(errs, "selector.hybrid_structural_weight must be within [0, 1]")
	}
	if c.Engine.ActionTimeout < 0 || c.Engine.StepTimeout < 0 {
		errs = append(errs, "engine timeouts must not be negative")
	}
	if c.History.Type != "" {
		switch history.StoreType(c.History.Type) {
		case history.StoreTypeMemory, history.StoreTypeFile, history.StoreTypeRedis,
			history.StoreTypeSQL, history.StoreTypeMongo:
		default:
			errs = append(errs, fmt.Sprintf("unknown history store type: %s", c.History.Type))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

