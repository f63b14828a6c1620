package config

// DefaultConfig returns a configuration with all default values.
func DefaultConfig() *Config {
	cfg := &Config{}

	// Server defaults
	cfg.Server.Port = 8000
	cfg.Server.AllowedOrigins = []string{"*"}

	// LLM defaults
	cfg.LLM.AzureEndpoint = ""
	cfg.LLM.AzureDeployment = "gpt-4o"
	cfg.LLM.AzureAPIVersion = "2024-10-21"
	cfg.LLM.AzureAPIKey = ""

	// Agent defaults
	cfg.Agent.RecursionLimit = 50

	// Memory defaults
	cfg.Memory.MaxSize = 1000
	cfg.Memory.TTLSeconds = 3600 // 1 hour

	// Webhook defaults
	cfg.Webhook.MaxRetries = 3
	cfg.Webhook.RetryMinWaitSeconds = 2
	cfg.Webhook.RetryMaxWaitSeconds = 30
	cfg.Webhook.DeadLetterCapacity = 100

	// Rate limit defaults
	cfg.RateLimit.WebhookPerMinute = 30
	cfg.RateLimit.QueryPerMinute = 10

	// Logging defaults
	cfg.Logging.Level = "info"
	cfg.Logging.FilePath = "logs/kubemedic.log"
	cfg.Logging.MaxSizeMB = 100
	cfg.Logging.MaxBackups = 10
	cfg.Logging.MaxAgeDays = 30
	cfg.Logging.Compress = true

	return cfg
}
