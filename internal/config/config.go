// Package config provides configuration management using the Singleton pattern.
// It loads configuration from .env, environment variables and config.yaml using Viper.
package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hpn/hpn-chat-gateway/internal/domain"
)

// Configuration holds all application configuration values.
type Configuration struct {
	// Server configuration
	Server ServerConfig `json:"server" mapstructure:"server"`

	// Upstream completion provider
	Upstream domain.Upstream `json:"upstream" mapstructure:"upstream"`

	// Fallback credentials used when a caller sends no key
	Credentials CredentialsConfig `json:"credentials" mapstructure:"credentials"`

	// Token budget configuration
	Budget BudgetConfig `json:"budget" mapstructure:"budget"`

	// Tokenizer configuration
	Tokenizer TokenizerConfig `json:"tokenizer" mapstructure:"tokenizer"`

	// Request defaults applied when the caller omits a value
	Defaults DefaultsConfig `json:"defaults" mapstructure:"defaults"`

	// Models is the catalog served by GET /api/models.
	Models []domain.ModelSpec `json:"models" mapstructure:"models"`

	// Inbound authentication
	Auth AuthConfig `json:"auth" mapstructure:"auth"`

	// Inbound rate limiting
	RateLimit RateLimitConfig `json:"rate_limit" mapstructure:"rate_limit"`

	// Logging configuration
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
}

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	// Host is the server bind address.
	Host string `json:"host" mapstructure:"host"`

	// Port is the server port number.
	Port int `json:"port" mapstructure:"port"`

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeoutSeconds int `json:"read_timeout_seconds" mapstructure:"read_timeout_seconds"`

	// WriteTimeout is the maximum duration before timing out writes of the response.
	WriteTimeoutSeconds int `json:"write_timeout_seconds" mapstructure:"write_timeout_seconds"`

	// ShutdownTimeout is the maximum duration to wait for active connections to finish.
	ShutdownTimeoutSeconds int `json:"shutdown_timeout_seconds" mapstructure:"shutdown_timeout_seconds"`
}

// CredentialsConfig holds the fallback credential pool configuration.
type CredentialsConfig struct {
	// Keys are the fallback upstream credentials, rotated round-robin.
	Keys []string `json:"-" mapstructure:"keys"`

	// CooldownSeconds is how long a rejected credential stays out of rotation.
	CooldownSeconds int `json:"cooldown_seconds" mapstructure:"cooldown_seconds"`
}

// Cooldown returns the cooldown as a duration.
func (c CredentialsConfig) Cooldown() time.Duration {
	return time.Duration(c.CooldownSeconds) * time.Second
}

// BudgetConfig holds token budget configuration.
type BudgetConfig struct {
	// ReserveTokens is held back from the model's limit for the completion.
	ReserveTokens int `json:"reserve_tokens" mapstructure:"reserve_tokens"`
}

// TokenizerConfig holds tokenizer configuration.
type TokenizerConfig struct {
	// Encoding is a tiktoken encoding name, or "estimate" for the word heuristic.
	Encoding string `json:"encoding" mapstructure:"encoding"`
}

// DefaultsConfig holds per-request defaults.
type DefaultsConfig struct {
	SystemPrompt string  `json:"system_prompt" mapstructure:"system_prompt"`
	Temperature  float64 `json:"temperature" mapstructure:"temperature"`
}

// AuthConfig holds inbound authentication configuration.
type AuthConfig struct {
	// JWTSecret enables HS256 bearer verification on the chat routes when set.
	JWTSecret string `json:"-" mapstructure:"jwt_secret"`
}

// Enabled reports whether inbound JWT verification is on.
func (a AuthConfig) Enabled() bool {
	return a.JWTSecret != ""
}

// RateLimitConfig holds per-client rate limiting configuration.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per client IP. 0 disables limiting.
	RequestsPerSecond float64 `json:"requests_per_second" mapstructure:"requests_per_second"`

	// Burst is the bucket size.
	Burst int `json:"burst" mapstructure:"burst"`
}

// Enabled reports whether rate limiting is on.
func (r RateLimitConfig) Enabled() bool {
	return r.RequestsPerSecond > 0
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `json:"level" mapstructure:"level"`

	// Format is the log format (json, text).
	Format string `json:"format" mapstructure:"format"`

	// OutputPath is the file path for log output (empty for stdout).
	OutputPath string `json:"output_path" mapstructure:"output_path"`

	// Console enables the colored banner and per-request lines on stdout.
	Console bool `json:"console" mapstructure:"console"`
}

// configInstance holds the singleton configuration instance.
var (
	configInstance *Configuration
	configOnce     sync.Once
	configErr      error
)

// GetConfig returns the singleton Configuration instance.
// It initializes the configuration on first call using the default config path.
// Returns an error if configuration loading fails.
func GetConfig() (*Configuration, error) {
	configOnce.Do(func() {
		configInstance, configErr = loadConfig("")
	})
	return configInstance, configErr
}

// GetConfigWithPath returns the singleton Configuration instance with a custom config path.
// This should be used when you need to specify a non-default configuration file path.
// Returns an error if configuration loading fails.
func GetConfigWithPath(configPath string) (*Configuration, error) {
	configOnce.Do(func() {
		configInstance, configErr = loadConfig(configPath)
	})
	return configInstance, configErr
}

// ResetConfig resets the singleton instance.
// This is primarily used for testing purposes.
func ResetConfig() {
	configOnce = sync.Once{}
	configInstance = nil
	configErr = nil
}

// Validate validates the configuration and returns an error if any value is out of range.
// An empty credential pool is allowed: callers may always bring their own key.
func (c *Configuration) Validate() error {
	var validationErrors []string

	// Validate server configuration
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		validationErrors = append(validationErrors, "server.port must be between 1 and 65535")
	}

	// Validate upstream configuration
	if !c.Upstream.Variant.IsValid() {
		validationErrors = append(validationErrors, (&InvalidValueError{
			Key:           "upstream.variant",
			Value:         c.Upstream.Variant,
			AllowedValues: []string{string(domain.VariantOpenAI), string(domain.VariantAzure)},
		}).Error())
	}

	if c.Upstream.BaseURL == "" {
		validationErrors = append(validationErrors, "upstream.base_url is required")
	} else if !strings.HasPrefix(c.Upstream.BaseURL, "http://") && !strings.HasPrefix(c.Upstream.BaseURL, "https://") {
		validationErrors = append(validationErrors, fmt.Sprintf(
			"upstream.base_url '%s' must start with http:// or https://", c.Upstream.BaseURL))
	}

	if c.Upstream.Variant == domain.VariantAzure {
		if c.Upstream.DeploymentID == "" {
			validationErrors = append(validationErrors, "upstream.deployment_id is required for the azure variant")
		}
		if c.Upstream.APIVersion == "" {
			validationErrors = append(validationErrors, "upstream.api_version is required for the azure variant")
		}
	}

	if c.Upstream.MaxTokens <= 0 {
		validationErrors = append(validationErrors, "upstream.max_tokens must be positive")
	}

	if c.Upstream.TimeoutSeconds < 0 {
		validationErrors = append(validationErrors, "upstream.timeout_seconds cannot be negative")
	}

	// Validate budget and credentials
	if c.Budget.ReserveTokens < 0 {
		validationErrors = append(validationErrors, "budget.reserve_tokens cannot be negative")
	}

	if c.Credentials.CooldownSeconds < 0 {
		validationErrors = append(validationErrors, "credentials.cooldown_seconds cannot be negative")
	}

	if c.Defaults.Temperature < 0 || c.Defaults.Temperature > 2 {
		validationErrors = append(validationErrors, "defaults.temperature must be between 0 and 2")
	}

	// Validate model catalog
	for i, model := range c.Models {
		if model.ID == "" {
			validationErrors = append(validationErrors, fmt.Sprintf("models[%d].id is required", i))
		}
		if model.TokenLimit <= 0 {
			validationErrors = append(validationErrors, fmt.Sprintf("models[%d].token_limit must be positive", i))
		}
	}

	// Validate rate limit configuration
	if c.RateLimit.RequestsPerSecond < 0 {
		validationErrors = append(validationErrors, "rate_limit.requests_per_second cannot be negative")
	}
	if c.RateLimit.Enabled() && c.RateLimit.Burst <= 0 {
		validationErrors = append(validationErrors, "rate_limit.burst must be positive when rate limiting is enabled")
	}

	// Validate logging configuration
	if c.Logging.Level != "" && !isValidLogLevel(c.Logging.Level) {
		validationErrors = append(validationErrors, (&InvalidValueError{
			Key:           "logging.level",
			Value:         c.Logging.Level,
			AllowedValues: []string{"debug", "info", "warn", "error"},
		}).Error())
	}
	if c.Logging.Format != "" && c.Logging.Format != "json" && c.Logging.Format != "text" {
		validationErrors = append(validationErrors, (&InvalidValueError{
			Key:           "logging.format",
			Value:         c.Logging.Format,
			AllowedValues: []string{"json", "text"},
		}).Error())
	}

	if len(validationErrors) > 0 {
		return &ValidationError{Errors: validationErrors}
	}

	return nil
}

// isValidLogLevel checks if the log level is valid.
func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

// FindModel returns a catalog entry by id.
func (c *Configuration) FindModel(id string) (domain.ModelSpec, bool) {
	for _, model := range c.Models {
		if model.ID == id {
			return model, true
		}
	}
	return domain.ModelSpec{}, false
}
