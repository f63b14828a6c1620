package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// viperConfigManager implements ConfigManager using Viper.
type viperConfigManager struct {
	configPath string
	config     *Config
	viper      *viper.Viper
	watchChan  chan Config
}

// Load loads configuration from all sources.
func (m *viperConfigManager) Load(ctx context.Context) error {
	// Initialize viper
	m.viper = viper.New()

	// Set config file path
	m.viper.SetConfigFile(m.configPath)
	m.viper.SetConfigType("yaml")

	// Set environment variable prefix
	m.viper.SetEnvPrefix("KUBEMEDIC")
	m.viper.AutomaticEnv()
	m.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set defaults
	m.setDefaults()

	// Try to read config file (optional)
	if err := m.viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// File not found via viper - OK, use defaults
		} else if os.IsNotExist(err) {
			// File not found via os - OK, use defaults
		} else {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Unmarshal into config struct
	if err := m.unmarshalConfig(); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Apply environment variable overrides for sensitive data
	m.applyEnvOverrides()

	return nil
}

// Get returns the current configuration.
func (m *viperConfigManager) Get(ctx context.Context) *Config {
	return m.config
}

// Validate validates configuration is correct and complete.
func (m *viperConfigManager) Validate(ctx context.Context) error {
	errs := m.config.Validate()
	if len(errs) > 0 {
		var errMsgs []string
		for _, err := range errs {
			errMsgs = append(errMsgs, err.Error())
		}
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errMsgs, "\n  - "))
	}
	return nil
}

// Watch watches for configuration changes and reloads.
func (m *viperConfigManager) Watch(ctx context.Context) <-chan Config {
	m.viper.WatchConfig()
	m.viper.OnConfigChange(func(e fsnotify.Event) {
		if err := m.unmarshalConfig(); err != nil {
			return
		}
		m.applyEnvOverrides()
		select {
		case m.watchChan <- *m.config:
		default:
			// Channel full, skip this update
		}
	})

	return m.watchChan
}

// Reload reloads configuration from sources.
func (m *viperConfigManager) Reload(ctx context.Context) error {
	if err := m.viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := m.unmarshalConfig(); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.applyEnvOverrides()

	return nil
}

// setDefaults sets default values in viper.
func (m *viperConfigManager) setDefaults() {
	defaults := DefaultConfig()

	// Server defaults
	m.viper.SetDefault("server.port", defaults.Server.Port)
	m.viper.SetDefault("server.allowed_origins", defaults.Server.AllowedOrigins)

	// LLM defaults
	m.viper.SetDefault("llm.azure_endpoint", defaults.LLM.AzureEndpoint)
	m.viper.SetDefault("llm.azure_deployment", defaults.LLM.AzureDeployment)
	m.viper.SetDefault("llm.azure_api_version", defaults.LLM.AzureAPIVersion)

	// Agent defaults
	m.viper.SetDefault("agent.recursion_limit", defaults.Agent.RecursionLimit)

	// Memory defaults
	m.viper.SetDefault("memory.max_size", defaults.Memory.MaxSize)
	m.viper.SetDefault("memory.ttl_seconds", defaults.Memory.TTLSeconds)

	// Webhook defaults
	m.viper.SetDefault("webhook.max_retries", defaults.Webhook.MaxRetries)
	m.viper.SetDefault("webhook.retry_min_wait_seconds", defaults.Webhook.RetryMinWaitSeconds)
	m.viper.SetDefault("webhook.retry_max_wait_seconds", defaults.Webhook.RetryMaxWaitSeconds)
	m.viper.SetDefault("webhook.dead_letter_capacity", defaults.Webhook.DeadLetterCapacity)

	// Rate limit defaults
	m.viper.SetDefault("ratelimit.webhook_per_minute", defaults.RateLimit.WebhookPerMinute)
	m.viper.SetDefault("ratelimit.query_per_minute", defaults.RateLimit.QueryPerMinute)

	// Logging defaults
	m.viper.SetDefault("logging.level", defaults.Logging.Level)
	m.viper.SetDefault("logging.file_path", defaults.Logging.FilePath)
	m.viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	m.viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
	m.viper.SetDefault("logging.max_age_days", defaults.Logging.MaxAgeDays)
	m.viper.SetDefault("logging.compress", defaults.Logging.Compress)
}

// unmarshalConfig unmarshals viper config into Config struct.
func (m *viperConfigManager) unmarshalConfig() error {
	cfg := &Config{}

	// Server
	cfg.Server.Port = m.viper.GetInt("server.port")
	cfg.Server.AllowedOrigins = m.viper.GetStringSlice("server.allowed_origins")

	// LLM
	cfg.LLM.AzureEndpoint = m.viper.GetString("llm.azure_endpoint")
	cfg.LLM.AzureDeployment = m.viper.GetString("llm.azure_deployment")
	cfg.LLM.AzureAPIVersion = m.viper.GetString("llm.azure_api_version")
	cfg.LLM.AzureAPIKey = m.viper.GetString("llm.azure_api_key")

	// Agent
	cfg.Agent.RecursionLimit = m.viper.GetInt("agent.recursion_limit")

	// Memory
	cfg.Memory.MaxSize = m.viper.GetInt("memory.max_size")
	cfg.Memory.TTLSeconds = m.viper.GetInt("memory.ttl_seconds")

	// Webhook
	cfg.Webhook.MaxRetries = m.viper.GetInt("webhook.max_retries")
	cfg.Webhook.RetryMinWaitSeconds = m.viper.GetInt("webhook.retry_min_wait_seconds")
	cfg.Webhook.RetryMaxWaitSeconds = m.viper.GetInt("webhook.retry_max_wait_seconds")
	cfg.Webhook.DeadLetterCapacity = m.viper.GetInt("webhook.dead_letter_capacity")

	// Rate limit
	cfg.RateLimit.WebhookPerMinute = m.viper.GetInt("ratelimit.webhook_per_minute")
	cfg.RateLimit.QueryPerMinute = m.viper.GetInt("ratelimit.query_per_minute")

	// Logging
	cfg.Logging.Level = m.viper.GetString("logging.level")
	cfg.Logging.FilePath = m.viper.GetString("logging.file_path")
	cfg.Logging.MaxSizeMB = m.viper.GetInt("logging.max_size_mb")
	cfg.Logging.MaxBackups = m.viper.GetInt("logging.max_backups")
	cfg.Logging.MaxAgeDays = m.viper.GetInt("logging.max_age_days")
	cfg.Logging.Compress = m.viper.GetBool("logging.compress")

	m.config = cfg
	return nil
}

// applyEnvOverrides applies environment variable overrides for sensitive data.
func (m *viperConfigManager) applyEnvOverrides() {
	// Azure OpenAI credentials from the conventional environment variables
	if apiKey := os.Getenv("AZURE_OPENAI_API_KEY"); apiKey != "" {
		m.config.LLM.AzureAPIKey = apiKey
	}
	if endpoint := os.Getenv("AZURE_OPENAI_ENDPOINT"); endpoint != "" {
		m.config.LLM.AzureEndpoint = endpoint
	}
	if deployment := os.Getenv("AZURE_OPENAI_DEPLOYMENT"); deployment != "" {
		m.config.LLM.AzureDeployment = deployment
	}

	// Port from environment - only override if explicitly set
	if portEnv := os.Getenv("KUBEMEDIC_PORT"); portEnv != "" {
		m.config.Server.Port = m.viper.GetInt("port")
	}
}
