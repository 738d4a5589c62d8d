package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the storefront service.
// Layers are applied lowest priority first:
//  1. Default values
//  2. A .env file (never overrides variables already in the environment)
//  3. STOREFRONT_* environment variables
//  4. An optional YAML or JSON file (WithConfigFile)
//  5. Functional options
//
// Example usage:
//
//	cfg, err := NewConfig(
//	    WithPort(9090),
//	    WithMockAI(true),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
type Config struct {
	Name    string `json:"name" yaml:"name"`
	Port    int    `json:"port" yaml:"port"`
	Address string `json:"address" yaml:"address"`

	HTTP      HTTPConfig      `json:"http" yaml:"http"`
	Store     StoreConfig     `json:"store" yaml:"store"`
	AI        AIConfig        `json:"ai" yaml:"ai"`
	Memory    MemoryConfig    `json:"memory" yaml:"memory"`
	Telemetry TelemetryConfig `json:"telemetry" yaml:"telemetry"`
	Logging   LoggingConfig   `json:"logging" yaml:"logging"`

	Development DevelopmentConfig `json:"development" yaml:"development"`

	// Set by DetectEnvironment
	InKubernetes bool `json:"-" yaml:"-"`
}

// HTTPConfig contains HTTP server timeouts and CORS settings.
type HTTPConfig struct {
	ReadTimeout     time.Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout" yaml:"write_timeout"`
	IdleTimeout     time.Duration `json:"idle_timeout" yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`
	CORS            CORSConfig    `json:"cors" yaml:"cors"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings for the HTTP API.
type CORSConfig struct {
	Enabled          bool     `json:"enabled" yaml:"enabled"`
	AllowedOrigins   []string `json:"allowed_origins" yaml:"allowed_origins"`
	AllowedMethods   []string `json:"allowed_methods" yaml:"allowed_methods"`
	AllowedHeaders   []string `json:"allowed_headers" yaml:"allowed_headers"`
	ExposedHeaders   []string `json:"exposed_headers" yaml:"exposed_headers"`
	AllowCredentials bool     `json:"allow_credentials" yaml:"allow_credentials"`
	MaxAge           int      `json:"max_age" yaml:"max_age"`
}

// StoreConfig holds shop-level settings.
type StoreConfig struct {
	// ContactPhone receives WhatsApp handoff messages (country code, no plus sign)
	ContactPhone string `json:"contact_phone" yaml:"contact_phone"`
	// AdminPhone logs in with the admin role
	AdminPhone string        `json:"admin_phone" yaml:"admin_phone"`
	BypassCode string        `json:"bypass_code" yaml:"bypass_code"`
	OTPTTL     time.Duration `json:"otp_ttl" yaml:"otp_ttl"`
	// SeedFile is an optional YAML catalog replacing the built-in products
	SeedFile string `json:"seed_file" yaml:"seed_file"`
}

// AIConfig configures the advice provider.
type AIConfig struct {
	Enabled        bool                 `json:"enabled" yaml:"enabled"`
	Provider       string               `json:"provider" yaml:"provider"`
	APIKey         string               `json:"-" yaml:"-"`
	Model          string               `json:"model" yaml:"model"`
	BaseURL        string               `json:"base_url" yaml:"base_url"`
	Temperature    float32              `json:"temperature" yaml:"temperature"`
	MaxTokens      int                  `json:"max_tokens" yaml:"max_tokens"`
	Timeout        time.Duration        `json:"timeout" yaml:"timeout"`
	RetryAttempts  int                  `json:"retry_attempts" yaml:"retry_attempts"`
	CircuitBreaker CircuitBreakerConfig `json:"circuit_breaker" yaml:"circuit_breaker"`
}

// CircuitBreakerConfig configures the breaker in front of the advice provider.
type CircuitBreakerConfig struct {
	Enabled   bool          `json:"enabled" yaml:"enabled"`
	Threshold int           `json:"threshold" yaml:"threshold"`
	Timeout   time.Duration `json:"timeout" yaml:"timeout"`
}

// MemoryConfig selects the short-lived state backend.
type MemoryConfig struct {
	Provider        string        `json:"provider" yaml:"provider"`
	RedisURL        string        `json:"redis_url" yaml:"redis_url"`
	CleanupInterval time.Duration `json:"cleanup_interval" yaml:"cleanup_interval"`
}

// TelemetryConfig configures OpenTelemetry tracing and metrics.
type TelemetryConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	Exporter string `json:"exporter" yaml:"exporter"`
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// MetricsEndpoint receives OTLP/HTTP metrics; empty keeps metrics in process
	MetricsEndpoint string  `json:"metrics_endpoint" yaml:"metrics_endpoint"`
	ServiceName     string  `json:"service_name" yaml:"service_name"`
	SamplingRate    float64 `json:"sampling_rate" yaml:"sampling_rate"`
	Insecure        bool    `json:"insecure" yaml:"insecure"`
}

// LoggingConfig configures the ProductionLogger.
type LoggingConfig struct {
	Level      string `json:"level" yaml:"level"`
	Format     string `json:"format" yaml:"format"`
	TimeFormat string `json:"time_format" yaml:"time_format"`
}

// DevelopmentConfig holds local development switches.
type DevelopmentConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
	MockAI  bool `json:"mock_ai" yaml:"mock_ai"`
}

// Option is a functional option for configuring the service
type Option func(*Config) error

// DefaultConfig returns a configuration with sensible defaults, adjusted
// for the detected environment.
func DefaultConfig() *Config {
	cfg := &Config{
		Name: "rk-storefront",
		Port: 8080,
		HTTP: HTTPConfig{
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			CORS: CORSConfig{
				Enabled:        false,
				AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
				AllowedHeaders: []string{"Content-Type", "Authorization", "X-Correlation-ID"},
				MaxAge:         86400,
			},
		},
		Store: StoreConfig{
			ContactPhone: "919730593982",
			AdminPhone:   "9730593982",
			BypassCode:   "1234",
			OTPTTL:       5 * time.Minute,
		},
		AI: AIConfig{
			Enabled:       false,
			Provider:      "gemini",
			Model:         "gemini-1.5-flash",
			Temperature:   0.7,
			MaxTokens:     1024,
			Timeout:       30 * time.Second,
			RetryAttempts: 0,
			CircuitBreaker: CircuitBreakerConfig{
				Enabled:   true,
				Threshold: 5,
				Timeout:   30 * time.Second,
			},
		},
		Memory: MemoryConfig{
			Provider:        "inmemory",
			CleanupInterval: 10 * time.Minute,
		},
		Telemetry: TelemetryConfig{
			Enabled:      false,
			Exporter:     "stdout",
			ServiceName:  "rk-storefront",
			SamplingRate: 1.0,
			Insecure:     true,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			TimeFormat: time.RFC3339Nano,
		},
	}

	cfg.DetectEnvironment()

	return cfg
}

// DetectEnvironment adjusts defaults for Kubernetes (KUBERNETES_SERVICE_HOST set)
// or for local development.
func (c *Config) DetectEnvironment() {
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		c.InKubernetes = true
		c.Address = "0.0.0.0"
		c.Logging.Format = "json"
		return
	}

	c.Address = "localhost"
	if os.Getenv("STOREFRONT_DEV_MODE") == "" {
		c.Development.Enabled = true
		c.Logging.Format = "text"
	}
}

// LoadDotEnv loads variables from a .env file without overriding the
// current environment. A missing file is not an error.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// LoadFromEnv loads configuration from environment variables.
//
// Variable naming convention:
//   - Service-specific: STOREFRONT_<SETTING>
//   - Standard variables: GEMINI_API_KEY / GOOGLE_API_KEY, REDIS_URL, OTEL_EXPORTER_OTLP_ENDPOINT
//
// Unparseable numbers and durations are reported as configuration errors.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("STOREFRONT_NAME"); v != "" {
		c.Name = v
	}
	if v := os.Getenv("STOREFRONT_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return envError("STOREFRONT_PORT", v)
		}
		c.Port = port
	}
	if v := os.Getenv("STOREFRONT_ADDRESS"); v != "" {
		c.Address = v
	}

	// HTTP
	if err := envDuration("STOREFRONT_HTTP_READ_TIMEOUT", &c.HTTP.ReadTimeout); err != nil {
		return err
	}
	if err := envDuration("STOREFRONT_HTTP_WRITE_TIMEOUT", &c.HTTP.WriteTimeout); err != nil {
		return err
	}
	if v := os.Getenv("STOREFRONT_CORS_ENABLED"); v != "" {
		c.HTTP.CORS.Enabled = parseBool(v)
	}
	if v := os.Getenv("STOREFRONT_CORS_ORIGINS"); v != "" {
		c.HTTP.CORS.AllowedOrigins = parseStringList(v)
	}
	if v := os.Getenv("STOREFRONT_CORS_CREDENTIALS"); v != "" {
		c.HTTP.CORS.AllowCredentials = parseBool(v)
	}

	// Store
	if v := os.Getenv("STOREFRONT_CONTACT_PHONE"); v != "" {
		c.Store.ContactPhone = v
	}
	if v := os.Getenv("STOREFRONT_ADMIN_PHONE"); v != "" {
		c.Store.AdminPhone = v
	}
	if v := os.Getenv("STOREFRONT_BYPASS_CODE"); v != "" {
		c.Store.BypassCode = v
	}
	if err := envDuration("STOREFRONT_OTP_TTL", &c.Store.OTPTTL); err != nil {
		return err
	}
	if v := os.Getenv("STOREFRONT_SEED_FILE"); v != "" {
		c.Store.SeedFile = v
	}

	// AI
	if v := os.Getenv("STOREFRONT_AI_PROVIDER"); v != "" {
		c.AI.Provider = v
	}
	if v := os.Getenv("STOREFRONT_AI_MODEL"); v != "" {
		c.AI.Model = v
	}
	if v := os.Getenv("STOREFRONT_AI_BASE_URL"); v != "" {
		c.AI.BaseURL = v
	}
	// A key in the environment switches AI on unless explicitly disabled below
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.AI.APIKey = v
		c.AI.Enabled = true
	} else if v := os.Getenv("GOOGLE_API_KEY"); v != "" {
		c.AI.APIKey = v
		c.AI.Enabled = true
	}
	if v := os.Getenv("STOREFRONT_AI_ENABLED"); v != "" {
		c.AI.Enabled = parseBool(v)
	}
	if err := envDuration("STOREFRONT_AI_TIMEOUT", &c.AI.Timeout); err != nil {
		return err
	}
	if v := os.Getenv("STOREFRONT_MOCK_AI"); v != "" && parseBool(v) {
		c.Development.MockAI = true
		c.AI.Enabled = true
		c.AI.Provider = "mock"
	}

	// Memory
	if v := os.Getenv("STOREFRONT_MEMORY_PROVIDER"); v != "" {
		c.Memory.Provider = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.Memory.RedisURL = v
	}
	if v := os.Getenv("STOREFRONT_REDIS_URL"); v != "" {
		c.Memory.RedisURL = v
	}

	// Telemetry
	if v := os.Getenv("STOREFRONT_TELEMETRY_ENABLED"); v != "" {
		c.Telemetry.Enabled = parseBool(v)
	}
	if v := os.Getenv("STOREFRONT_TELEMETRY_EXPORTER"); v != "" {
		c.Telemetry.Exporter = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		c.Telemetry.Endpoint = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT"); v != "" {
		c.Telemetry.MetricsEndpoint = v
	}
	if v := os.Getenv("OTEL_SERVICE_NAME"); v != "" {
		c.Telemetry.ServiceName = v
	}

	// Logging
	if v := os.Getenv("STOREFRONT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("STOREFRONT_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}

	return nil
}

// LoadFromFile loads configuration from a JSON or YAML file.
// Fields absent from the file keep their current values.
func (c *Config) LoadFromFile(path string) error {
	cleanPath := filepath.Clean(path)

	ext := filepath.Ext(cleanPath)
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config file extension %s: %w", ext, ErrInvalidConfiguration)
	}

	data, err := os.ReadFile(cleanPath) // nosec G304 -- operator-supplied path
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", cleanPath, err)
	}

	switch ext {
	case ".json":
		if err := json.Unmarshal(data, c); err != nil {
			return fmt.Errorf("failed to parse JSON config file: %v: %w", err, ErrInvalidConfiguration)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("failed to parse YAML config file: %v: %w", err, ErrInvalidConfiguration)
		}
	}

	return nil
}

// Validate checks if the configuration is valid and returns an error if not.
//
// Validation rules:
//   - Port must be between 1 and 65535
//   - Contact phone is required for the WhatsApp handoff
//   - Gemini API key is required when AI is enabled (unless using mock)
//   - Redis URL is required when the redis memory provider is selected
//   - OTLP endpoint is required when telemetry exports over OTLP
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return &StoreError{
			Op:      "Config.Validate",
			Kind:    "config",
			Message: fmt.Sprintf("invalid port: %d", c.Port),
			Err:     ErrInvalidConfiguration,
		}
	}

	if c.Store.ContactPhone == "" {
		return &StoreError{
			Op:      "Config.Validate",
			Kind:    "config",
			Message: "contact phone is required",
			Err:     ErrMissingConfiguration,
		}
	}

	if c.AI.Enabled && !c.Development.MockAI && c.AI.Provider != "mock" && c.AI.APIKey == "" {
		return &StoreError{
			Op:      "Config.Validate",
			Kind:    "config",
			Message: "AI API key is required when AI is enabled (set GEMINI_API_KEY or use mock AI)",
			Err:     ErrMissingConfiguration,
		}
	}

	switch c.Memory.Provider {
	case "inmemory":
	case "redis":
		if c.Memory.RedisURL == "" {
			return &StoreError{
				Op:      "Config.Validate",
				Kind:    "config",
				Message: "redis URL is required for the redis memory provider",
				Err:     ErrMissingConfiguration,
			}
		}
	default:
		return &StoreError{
			Op:      "Config.Validate",
			Kind:    "config",
			Message: fmt.Sprintf("unknown memory provider: %s", c.Memory.Provider),
			Err:     ErrInvalidConfiguration,
		}
	}

	if c.Telemetry.Enabled && c.Telemetry.Exporter == "otlp" && c.Telemetry.Endpoint == "" {
		return &StoreError{
			Op:      "Config.Validate",
			Kind:    "config",
			Message: "telemetry endpoint is required for the otlp exporter",
			Err:     ErrMissingConfiguration,
		}
	}

	return nil
}

// Helper functions

func envError(name, value string) error {
	return &StoreError{
		Op:      "Config.LoadFromEnv",
		Kind:    "config",
		Message: fmt.Sprintf("invalid value for %s: %q", name, value),
		Err:     ErrInvalidConfiguration,
	}
}

func envDuration(name string, dst *time.Duration) error {
	v := os.Getenv(name)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return envError(name, v)
	}
	*dst = d
	return nil
}

// parseStringList splits a comma-separated string into a slice of strings.
// Whitespace is trimmed from each element, and empty strings are filtered out.
func parseStringList(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// parseBool accepts "true", "1", "yes", "on" (case-insensitive) as true.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// Functional Options

// WithPort sets the HTTP server port.
func WithPort(port int) Option {
	return func(c *Config) error {
		if port < 1 || port > 65535 {
			return &StoreError{
				Op:      "WithPort",
				Kind:    "config",
				Message: fmt.Sprintf("invalid port: %d", port),
				Err:     ErrInvalidConfiguration,
			}
		}
		c.Port = port
		return nil
	}
}

// WithAddress sets the bind address.
func WithAddress(address string) Option {
	return func(c *Config) error {
		c.Address = address
		return nil
	}
}

// WithCORS enables CORS for the given origins.
// Supports exact origins, "*" and wildcard subdomains ("https://*.example.com").
func WithCORS(origins []string, credentials bool) Option {
	return func(c *Config) error {
		c.HTTP.CORS.Enabled = true
		c.HTTP.CORS.AllowedOrigins = origins
		c.HTTP.CORS.AllowCredentials = credentials
		return nil
	}
}

// WithContactPhone sets the WhatsApp number orders are handed off to.
func WithContactPhone(phone string) Option {
	return func(c *Config) error {
		c.Store.ContactPhone = phone
		return nil
	}
}

// WithAdminPhone sets the phone number that logs in as admin.
func WithAdminPhone(phone string) Option {
	return func(c *Config) error {
		c.Store.AdminPhone = phone
		return nil
	}
}

// WithSeedFile points the catalog at a YAML seed file.
func WithSeedFile(path string) Option {
	return func(c *Config) error {
		c.Store.SeedFile = path
		return nil
	}
}

// WithAIProvider enables advice with the named provider ("gemini" or "mock").
// The API key still comes from the environment.
func WithAIProvider(provider string) Option {
	return func(c *Config) error {
		c.AI.Enabled = true
		c.AI.Provider = provider
		return nil
	}
}

// WithAIModel overrides the model name.
func WithAIModel(model string) Option {
	return func(c *Config) error {
		c.AI.Model = model
		return nil
	}
}

// WithMockAI switches the advice provider to canned responses.
func WithMockAI(enabled bool) Option {
	return func(c *Config) error {
		c.Development.MockAI = enabled
		if enabled {
			c.AI.Enabled = true
			c.AI.Provider = "mock"
		}
		return nil
	}
}

// WithCircuitBreaker configures the breaker guarding the advice provider.
func WithCircuitBreaker(threshold int, timeout time.Duration) Option {
	return func(c *Config) error {
		c.AI.CircuitBreaker.Enabled = true
		c.AI.CircuitBreaker.Threshold = threshold
		c.AI.CircuitBreaker.Timeout = timeout
		return nil
	}
}

// WithRedisURL selects the redis memory provider.
func WithRedisURL(url string) Option {
	return func(c *Config) error {
		c.Memory.Provider = "redis"
		c.Memory.RedisURL = url
		return nil
	}
}

// WithTelemetry enables tracing and metrics with the given exporter ("stdout" or "otlp").
func WithTelemetry(enabled bool, exporter, endpoint string) Option {
	return func(c *Config) error {
		c.Telemetry.Enabled = enabled
		c.Telemetry.Exporter = exporter
		c.Telemetry.Endpoint = endpoint
		return nil
	}
}

// WithLogLevel sets the log level (debug, info, warn, error).
func WithLogLevel(level string) Option {
	return func(c *Config) error {
		c.Logging.Level = level
		return nil
	}
}

// WithLogFormat sets the log format ("json" or "text").
func WithLogFormat(format string) Option {
	return func(c *Config) error {
		c.Logging.Format = format
		return nil
	}
}

// WithConfigFile loads configuration from a JSON or YAML file.
// Options after it in the list still override the file.
func WithConfigFile(path string) Option {
	return func(c *Config) error {
		return c.LoadFromFile(path)
	}
}

// WithDevelopmentMode switches on text logs at debug level.
func WithDevelopmentMode(enabled bool) Option {
	return func(c *Config) error {
		c.Development.Enabled = enabled
		if enabled {
			c.Logging.Format = "text"
			c.Logging.Level = "debug"
		}
		return nil
	}
}

// NewConfig creates a configuration from defaults, the .env file, the
// environment and the given options, then validates it.
func NewConfig(opts ...Option) (*Config, error) {
	cfg := DefaultConfig()

	if err := LoadDotEnv(); err != nil {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := cfg.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load env config: %w", err)
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
