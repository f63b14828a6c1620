package config

import "context"

// Package config provides configuration management for kubemedic.
//
// Responsibilities:
//   - Load configuration from YAML files and environment variables
//   - Validate configuration on startup
//   - Provide runtime access to all configuration
//   - Support configuration reloading (for some settings)
//   - Manage sensitive data (API keys)
//   - Establish reasonable defaults
//
// Configuration Sources (priority order, high to low):
//   1. Environment variables (KUBEMEDIC_* prefix)
//   2. YAML config files (default: /etc/kubemedic/config.yaml)
//   3. Built-in defaults (lowest priority)
//
// Main Configuration Sections:
//
//   1. Server
//      - port: Listen port (default 8000)
//      - allowed_origins: Origins permitted to open WebSocket connections
//
//   2. LLM Provider
//      - azure_endpoint: Azure OpenAI resource endpoint
//      - azure_deployment: Chat model deployment name
//      - azure_api_version: API version string
//      - azure_api_key: API key (prefer AZURE_OPENAI_API_KEY env var)
//
//   3. Agent
//      - recursion_limit: Maximum reasoning steps per investigation
//
//   4. Memory
//      - max_size: Maximum retained conversation threads
//      - ttl_seconds: Thread lifetime since last activity
//
//   5. Webhook
//      - max_retries: Total investigation attempts per webhook
//      - retry_min_wait_seconds / retry_max_wait_seconds: Backoff bounds
//      - dead_letter_capacity: Bound on the failed-webhook queue
//
//   6. RateLimit
//      - webhook_per_minute: Webhook ingestion budget per client
//      - query_per_minute: Direct query budget per client
//
//   7. Logging
//      - level: "debug" | "info" | "warn" | "error"
//      - file_path: Log file location (empty disables file output)
//
// Config struct contains all configuration fields
type Config struct {
	// Server configuration
	Server struct {
		Port int
		// AllowedOrigins is a list of origins permitted to open WebSocket
		// connections. Use ["*"] to allow any origin (development only).
		AllowedOrigins []string
	}

	// LLM provider configuration
	LLM struct {
		AzureEndpoint   string
		AzureDeployment string
		AzureAPIVersion string
		AzureAPIKey     string
	}

	// Agent configuration
	Agent struct {
		RecursionLimit int
	}

	// Memory configuration
	Memory struct {
		MaxSize    int
		TTLSeconds int
	}

	// Webhook configuration
	Webhook struct {
		MaxRetries          int
		RetryMinWaitSeconds int
		RetryMaxWaitSeconds int
		DeadLetterCapacity  int
	}

	// Rate limit configuration
	RateLimit struct {
		WebhookPerMinute int
		QueryPerMinute   int
	}

	// Logging configuration
	Logging struct {
		Level      string
		FilePath   string
		MaxSizeMB  int
		MaxBackups int
		MaxAgeDays int
		Compress   bool
	}
}

// ConfigManager defines the interface for configuration access.
type ConfigManager interface {
	// Load loads configuration from all sources.
	Load(ctx context.Context) error

	// Get returns the current configuration.
	Get(ctx context.Context) *Config

	// Validate validates configuration is correct and complete.
	Validate(ctx context.Context) error

	// Watch watches for configuration changes and reloads (if supported).
	Watch(ctx context.Context) <-chan Config

	// Reload reloads configuration from sources (selective settings).
	Reload(ctx context.Context) error
}

// NewConfigManager creates a new configuration manager.
func NewConfigManager(configPath string) (ConfigManager, error) {
	mgr := &viperConfigManager{
		configPath: configPath,
		config:     DefaultConfig(),
		watchChan:  make(chan Config, 1),
	}
	return mgr, nil
}

// NewConfigManagerWithDefaults creates a config manager with default config path.
func NewConfigManagerWithDefaults() (ConfigManager, error) {
	return NewConfigManager("/etc/kubemedic/config.yaml")
}
