// Package config provides configuration management using the Singleton pattern.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/hpn/hpn-chat-gateway/internal/adapter"
	"github.com/hpn/hpn-chat-gateway/internal/budget"
	"github.com/hpn/hpn-chat-gateway/internal/tokenizer"
)

const (
	defaultConfigName = "config"
	defaultConfigType = "yaml"
	envPrefix         = "HPN_GATEWAY"

	// EnvFile is the dotenv file loaded before the environment is read.
	// Variables already set in the process environment win.
	EnvFile = ".env"

	// EnvAPIKeys is the primary environment variable for fallback credentials (comma-separated).
	EnvAPIKeys = "HPN_GATEWAY_API_KEYS"

	// EnvOpenAIKey is the single fallback credential used when EnvAPIKeys is unset.
	EnvOpenAIKey = "OPENAI_API_KEY"

	// EnvAPIURL sets the upstream base URL when HPN_GATEWAY_UPSTREAM_BASE_URL is unset.
	EnvAPIURL = "API_URL"

	// DefaultSystemPrompt is used when a request carries no prompt.
	DefaultSystemPrompt = "You are ChatGPT, a large language model trained by OpenAI. " +
		"Follow the user's instructions carefully. Respond using markdown."

	// DefaultTemperature is used when a request carries no temperature.
	DefaultTemperature = 1.0
)

// loadConfig loads the configuration from environment variables and files.
// Priority order (highest to lowest):
// 1. HPN_GATEWAY_API_KEYS, then OPENAI_API_KEY, for fallback credentials
// 2. Environment variables (prefixed with HPN_GATEWAY_), including those from .env
// 3. config.yaml
// 4. Default values
func loadConfig(configPath string) (*Configuration, error) {
	if err := loadDotEnv(EnvFile); err != nil {
		return nil, &ConfigError{
			Op:  "dotenv",
			Err: err,
		}
	}

	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Configure Viper
	v.SetConfigName(defaultConfigName)
	v.SetConfigType(defaultConfigType)

	// Add config search paths
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/hpn-chat-gateway")
		v.AddConfigPath("$HOME/.hpn-chat-gateway")
	}

	// Enable environment variable override
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// Read configuration file (optional)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, &ConfigError{
				Op:  "read",
				Err: fmt.Errorf("failed to read config file: %w", err),
			}
		}
		fmt.Fprintf(os.Stderr, "[CONFIG] Config file not found, using environment and defaults\n")
	}

	// Unmarshal configuration
	var cfg Configuration
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &ConfigError{
			Op:  "unmarshal",
			Err: fmt.Errorf("failed to unmarshal config: %w", err),
		}
	}

	applyLegacyEnv(v, &cfg)

	if source := loadCredentialsFromEnv(&cfg); source != "" {
		fmt.Fprintf(os.Stderr, "[SECURITY] Using %s for fallback credentials (file config keys ignored)\n", source)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// loadDotEnv loads a dotenv file if it exists.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout_seconds", 30)
	v.SetDefault("server.write_timeout_seconds", 120)
	v.SetDefault("server.shutdown_timeout_seconds", 15)

	// Upstream defaults
	v.SetDefault("upstream.variant", "openai")
	v.SetDefault("upstream.base_url", "https://api.openai.com")
	v.SetDefault("upstream.completion_path", adapter.DefaultCompletionPath)
	v.SetDefault("upstream.completion_field", adapter.DefaultCompletionField)
	v.SetDefault("upstream.organization", "")
	v.SetDefault("upstream.deployment_id", "")
	v.SetDefault("upstream.api_version", "")
	v.SetDefault("upstream.max_tokens", adapter.DefaultMaxTokens)
	v.SetDefault("upstream.timeout_seconds", 0)

	// Credential defaults
	v.SetDefault("credentials.keys", []string{})
	v.SetDefault("credentials.cooldown_seconds", 60)

	// Budget and tokenizer defaults
	v.SetDefault("budget.reserve_tokens", budget.DefaultReserve)
	v.SetDefault("tokenizer.encoding", tokenizer.DefaultEncoding)

	// Request defaults
	v.SetDefault("defaults.system_prompt", DefaultSystemPrompt)
	v.SetDefault("defaults.temperature", DefaultTemperature)

	// Inbound defaults
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("rate_limit.requests_per_second", 0)
	v.SetDefault("rate_limit.burst", 10)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output_path", "")
	v.SetDefault("logging.console", true)
}

// applyLegacyEnv honors API_URL when the prefixed base URL was not set explicitly.
func applyLegacyEnv(v *viper.Viper, cfg *Configuration) {
	if _, set := os.LookupEnv(envPrefix + "_UPSTREAM_BASE_URL"); set {
		return
	}
	if v.InConfig("upstream.base_url") {
		return
	}
	if apiURL := strings.TrimSpace(os.Getenv(EnvAPIURL)); apiURL != "" {
		cfg.Upstream.BaseURL = strings.TrimSuffix(apiURL, "/")
	}
}

// loadCredentialsFromEnv replaces the file credentials with those from the
// environment. It returns the variable used, or "" when neither is set.
func loadCredentialsFromEnv(cfg *Configuration) string {
	if keys := splitKeys(os.Getenv(EnvAPIKeys)); len(keys) > 0 {
		cfg.Credentials.Keys = keys
		return EnvAPIKeys
	}
	if key := strings.TrimSpace(os.Getenv(EnvOpenAIKey)); key != "" {
		cfg.Credentials.Keys = []string{key}
		return EnvOpenAIKey
	}
	cfg.Credentials.Keys = splitKeys(strings.Join(cfg.Credentials.Keys, ","))
	return ""
}

// splitKeys parses a comma-separated credential list, dropping blanks.
func splitKeys(value string) []string {
	if value == "" {
		return nil
	}

	parts := strings.Split(value, ",")
	keys := make([]string, 0, len(parts))
	for _, part := range parts {
		if key := strings.TrimSpace(part); key != "" {
			keys = append(keys, key)
		}
	}
	return keys
}
