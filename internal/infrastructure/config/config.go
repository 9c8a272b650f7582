package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"

	"github.com/GriffinCanCode/AgentOS/reasoner/internal/domain/reasoning"
	"github.com/GriffinCanCode/AgentOS/reasoner/internal/domain/validation"
	"github.com/GriffinCanCode/AgentOS/reasoner/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/reasoner/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/AgentOS/reasoner/internal/llm"
	"github.com/GriffinCanCode/AgentOS/reasoner/internal/shared/utils"
)

// FileEnv names the environment variable pointing at an optional YAML file
const FileEnv = "REASONER_CONFIG_FILE"

// ErrInvalid is wrapped by every validation failure
var ErrInvalid = errors.New("invalid configuration")

// Config holds all application configuration.
//
// Values are resolved in order: Default, then the YAML file named by
// REASONER_CONFIG_FILE, then environment variables.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Logging    LogConfig        `yaml:"logging"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	LLM        LLMConfig        `yaml:"llm"`
	Breaker    BreakerConfig    `yaml:"breaker"`
	Retry      RetryConfig      `yaml:"retry"`
	Reasoning  ReasoningConfig  `yaml:"reasoning"`
	Validation ValidationConfig `yaml:"validation"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" yaml:"port"`
	Host            string        `envconfig:"HOST" yaml:"host"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" yaml:"shutdown_timeout"`
	AllowOrigins    []string      `envconfig:"CORS_ORIGINS" yaml:"allow_origins"`
}

// Addr returns the listen address
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" yaml:"level"`
	Development bool   `envconfig:"LOG_DEV" yaml:"development"`
}

// Logger converts to the logging package's configuration
func (l LogConfig) Logger() logging.Config {
	cfg := logging.DefaultConfig()
	if l.Development {
		cfg = logging.DevelopmentConfig()
	}
	if l.Level != "" {
		cfg.Level = l.Level
	}
	return cfg
}

// RateLimitConfig holds inbound per-IP rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" yaml:"requests_per_second"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" yaml:"burst"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" yaml:"enabled"`
}

// LLMConfig selects the generation backend and its outbound rate.
type LLMConfig struct {
	Provider          string        `envconfig:"LLM_PROVIDER" yaml:"provider"`
	BaseURL           string        `envconfig:"LLM_BASE_URL" yaml:"base_url"`
	APIKey            string        `envconfig:"LLM_API_KEY" yaml:"api_key"`
	Model             string        `envconfig:"LLM_MODEL" yaml:"model"`
	SystemPrompt      string        `envconfig:"LLM_SYSTEM_PROMPT" yaml:"system_prompt"`
	Timeout           time.Duration `envconfig:"LLM_TIMEOUT" yaml:"timeout"`
	RequestsPerSecond float64       `envconfig:"LLM_RPS" yaml:"requests_per_second"`
	Burst             int           `envconfig:"LLM_BURST" yaml:"burst"`
}

// ClientConfig converts to the llm package's configuration
func (l LLMConfig) ClientConfig() llm.Config {
	return llm.Config{
		Provider:     l.Provider,
		BaseURL:      l.BaseURL,
		APIKey:       l.APIKey,
		Model:        l.Model,
		SystemPrompt: l.SystemPrompt,
		Timeout:      l.Timeout,
	}
}

// BreakerConfig configures the circuit breaker guarding each dependency.
type BreakerConfig struct {
	FailureThreshold int           `envconfig:"BREAKER_FAILURE_THRESHOLD" yaml:"failure_threshold"`
	RecoveryTimeout  time.Duration `envconfig:"BREAKER_RECOVERY_TIMEOUT" yaml:"recovery_timeout"`
	SuccessThreshold int           `envconfig:"BREAKER_SUCCESS_THRESHOLD" yaml:"success_threshold"`
	CallTimeout      time.Duration `envconfig:"BREAKER_CALL_TIMEOUT" yaml:"call_timeout"`
}

// Settings converts to breaker settings
func (b BreakerConfig) Settings() resilience.Settings {
	return resilience.Settings{
		FailureThreshold: b.FailureThreshold,
		RecoveryTimeout:  b.RecoveryTimeout,
		SuccessThreshold: b.SuccessThreshold,
		CallTimeout:      b.CallTimeout,
	}
}

// RetryConfig configures the retry policy for outbound calls.
type RetryConfig struct {
	MaxAttempts     int           `envconfig:"RETRY_MAX_ATTEMPTS" yaml:"max_attempts"`
	InitialDelay    time.Duration `envconfig:"RETRY_INITIAL_DELAY" yaml:"initial_delay"`
	MaxDelay        time.Duration `envconfig:"RETRY_MAX_DELAY" yaml:"max_delay"`
	ExponentialBase float64       `envconfig:"RETRY_EXPONENTIAL_BASE" yaml:"exponential_base"`
	Jitter          bool          `envconfig:"RETRY_JITTER" yaml:"jitter"`
}

// Policy converts to a retry policy
func (r RetryConfig) Policy() resilience.Policy {
	return resilience.Policy{
		MaxAttempts:     r.MaxAttempts,
		InitialDelay:    r.InitialDelay,
		MaxDelay:        r.MaxDelay,
		ExponentialBase: r.ExponentialBase,
		Jitter:          r.Jitter,
	}
}

// ReasoningConfig tunes multi-path reasoning.
type ReasoningConfig struct {
	NumPaths          int     `envconfig:"REASONING_NUM_PATHS" yaml:"num_paths"`
	MaxConcurrent     int     `envconfig:"REASONING_MAX_CONCURRENT" yaml:"max_concurrent"`
	EvalWeight        float64 `envconfig:"REASONING_EVAL_WEIGHT" yaml:"eval_weight"`
	ConfWeight        float64 `envconfig:"REASONING_CONF_WEIGHT" yaml:"conf_weight"`
	BaseTemperature   float64 `envconfig:"REASONING_BASE_TEMPERATURE" yaml:"base_temperature"`
	TemperatureSpread float64 `envconfig:"REASONING_TEMPERATURE_SPREAD" yaml:"temperature_spread"`
	MaxTokens         int     `envconfig:"REASONING_MAX_TOKENS" yaml:"max_tokens"`
}

// Options converts to reasoning options
func (r ReasoningConfig) Options() reasoning.Options {
	def := reasoning.DefaultOptions()
	return reasoning.Options{
		NumPaths:          r.NumPaths,
		MaxConcurrent:     r.MaxConcurrent,
		EvalWeight:        r.EvalWeight,
		ConfWeight:        r.ConfWeight,
		BaseTemperature:   r.BaseTemperature,
		TemperatureSpread: r.TemperatureSpread,
		MaxTokens:         r.MaxTokens,
		EvalTemperature:   def.EvalTemperature,
		EvalMaxTokens:     def.EvalMaxTokens,
	}
}

// ValidationConfig tunes Monte Carlo validation.
type ValidationConfig struct {
	NumSimulations int     `envconfig:"VALIDATION_NUM_SIMULATIONS" yaml:"num_simulations"`
	MaxSimulations int     `envconfig:"VALIDATION_MAX_SIMULATIONS" yaml:"max_simulations"`
	MinConsistency float64 `envconfig:"VALIDATION_MIN_CONSISTENCY" yaml:"min_consistency"`
	MaxConcurrent  int     `envconfig:"VALIDATION_MAX_CONCURRENT" yaml:"max_concurrent"`
	Temperature    float64 `envconfig:"VALIDATION_TEMPERATURE" yaml:"temperature"`
	MaxTokens      int     `envconfig:"VALIDATION_MAX_TOKENS" yaml:"max_tokens"`
	SampleSize     int     `envconfig:"VALIDATION_SAMPLE_SIZE" yaml:"sample_size"`
}

// Options converts to validation options
func (v ValidationConfig) Options() validation.Options {
	return validation.Options{
		NumSimulations: v.NumSimulations,
		MaxSimulations: v.MaxSimulations,
		MinConsistency: v.MinConsistency,
		MaxConcurrent:  v.MaxConcurrent,
		Temperature:    v.Temperature,
		MaxTokens:      v.MaxTokens,
		SampleSize:     v.SampleSize,
	}
}

// Load resolves configuration from defaults, the optional YAML file and the
// environment, then validates it.
func Load() (*Config, error) {
	cfg := Default()
	if path := os.Getenv(FileEnv); path != "" {
		if err := cfg.readFile(path); err != nil {
			return nil, err
		}
	}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile resolves configuration from defaults and the YAML file at path,
// ignoring the environment.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.readFile(path); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads configuration or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Default returns default configuration.
func Default() *Config {
	breaker := resilience.DefaultSettings()
	retry := resilience.DefaultPolicy()
	reason := reasoning.DefaultOptions()
	validate := validation.DefaultOptions()

	return &Config{
		Server: ServerConfig{
			Port:            "8000",
			Host:            "0.0.0.0",
			ShutdownTimeout: 10 * time.Second,
			AllowOrigins:    []string{"*"},
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
		LLM: LLMConfig{
			Provider:          llm.ProviderOpenAI,
			Model:             "gpt-4o-mini",
			Timeout:           60 * time.Second,
			RequestsPerSecond: 10,
			Burst:             20,
		},
		Breaker: BreakerConfig{
			FailureThreshold: breaker.FailureThreshold,
			RecoveryTimeout:  breaker.RecoveryTimeout,
			SuccessThreshold: breaker.SuccessThreshold,
			CallTimeout:      breaker.CallTimeout,
		},
		Retry: RetryConfig{
			MaxAttempts:     retry.MaxAttempts,
			InitialDelay:    retry.InitialDelay,
			MaxDelay:        retry.MaxDelay,
			ExponentialBase: retry.ExponentialBase,
			Jitter:          retry.Jitter,
		},
		Reasoning: ReasoningConfig{
			NumPaths:          reason.NumPaths,
			MaxConcurrent:     reason.MaxConcurrent,
			EvalWeight:        reason.EvalWeight,
			ConfWeight:        reason.ConfWeight,
			BaseTemperature:   reason.BaseTemperature,
			TemperatureSpread: reason.TemperatureSpread,
			MaxTokens:         reason.MaxTokens,
		},
		Validation: ValidationConfig{
			NumSimulations: validate.NumSimulations,
			MaxSimulations: validate.MaxSimulations,
			MinConsistency: validate.MinConsistency,
			MaxConcurrent:  validate.MaxConcurrent,
			Temperature:    validate.Temperature,
			MaxTokens:      validate.MaxTokens,
			SampleSize:     validate.SampleSize,
		},
	}
}

// Validate reports the first inconsistent setting
func (c *Config) Validate() error {
	switch {
	case c.Server.Port == "":
		return fmt.Errorf("%w: server port is required", ErrInvalid)
	case c.LLM.Provider != llm.ProviderOpenAI && c.LLM.Provider != llm.ProviderOllama:
		return fmt.Errorf("%w: unknown llm provider %q", ErrInvalid, c.LLM.Provider)
	case c.LLM.RequestsPerSecond < 0:
		return fmt.Errorf("%w: llm requests per second must not be negative", ErrInvalid)
	case c.RateLimit.Enabled && c.RateLimit.RequestsPerSecond <= 0:
		return fmt.Errorf("%w: rate limit requires positive requests per second", ErrInvalid)
	case c.Breaker.FailureThreshold <= 0 || c.Breaker.SuccessThreshold <= 0:
		return fmt.Errorf("%w: breaker thresholds must be positive", ErrInvalid)
	case c.Breaker.RecoveryTimeout <= 0 || c.Breaker.CallTimeout <= 0:
		return fmt.Errorf("%w: breaker timeouts must be positive", ErrInvalid)
	case c.Retry.MaxAttempts < 0:
		return fmt.Errorf("%w: retry max attempts must not be negative", ErrInvalid)
	case c.Retry.ExponentialBase < 1:
		return fmt.Errorf("%w: retry exponential base must be at least 1", ErrInvalid)
	case c.Reasoning.NumPaths <= 0 || c.Reasoning.MaxConcurrent <= 0:
		return fmt.Errorf("%w: reasoning paths and concurrency must be positive", ErrInvalid)
	case c.Reasoning.EvalWeight < 0 || c.Reasoning.ConfWeight < 0:
		return fmt.Errorf("%w: reasoning weights must not be negative", ErrInvalid)
	case c.Validation.NumSimulations <= 0 || c.Validation.MaxConcurrent <= 0:
		return fmt.Errorf("%w: validation simulations and concurrency must be positive", ErrInvalid)
	case c.Validation.MaxSimulations <= 0 || c.Validation.MaxSimulations > utils.MaxSimulations:
		return fmt.Errorf("%w: validation max simulations must be within [1, %d]", ErrInvalid, utils.MaxSimulations)
	case c.Validation.NumSimulations > c.Validation.MaxSimulations:
		return fmt.Errorf("%w: validation simulations must not exceed max simulations", ErrInvalid)
	case c.Validation.MinConsistency < 0 || c.Validation.MinConsistency > 1:
		return fmt.Errorf("%w: validation min consistency must be within [0, 1]", ErrInvalid)
	}
	return nil
}
