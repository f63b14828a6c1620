package config

import (
	"fmt"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed for %s: %s", e.Field, e.Message)
}

// Validate validates the configuration and returns validation errors.
func (c *Config) Validate() []error {
	var errs []error

	// Validate server configuration
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, &ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", c.Server.Port),
		})
	}

	// Validate agent configuration
	if c.Agent.RecursionLimit < 1 {
		errs = append(errs, &ValidationError{
			Field:   "agent.recursion_limit",
			Message: fmt.Sprintf("recursion_limit must be at least 1, got %d", c.Agent.RecursionLimit),
		})
	}

	// Validate memory configuration
	if c.Memory.MaxSize < 1 {
		errs = append(errs, &ValidationError{
			Field:   "memory.max_size",
			Message: fmt.Sprintf("max_size must be at least 1, got %d", c.Memory.MaxSize),
		})
	}
	if c.Memory.TTLSeconds < 1 {
		errs = append(errs, &ValidationError{
			Field:   "memory.ttl_seconds",
			Message: fmt.Sprintf("ttl_seconds must be at least 1, got %d", c.Memory.TTLSeconds),
		})
	}

	// Validate webhook configuration
	if c.Webhook.MaxRetries < 1 {
		errs = append(errs, &ValidationError{
			Field:   "webhook.max_retries",
			Message: fmt.Sprintf("max_retries must be at least 1, got %d", c.Webhook.MaxRetries),
		})
	}
	if c.Webhook.RetryMinWaitSeconds < 1 {
		errs = append(errs, &ValidationError{
			Field:   "webhook.retry_min_wait_seconds",
			Message: fmt.Sprintf("retry_min_wait_seconds must be at least 1, got %d", c.Webhook.RetryMinWaitSeconds),
		})
	}
	if c.Webhook.RetryMaxWaitSeconds < c.Webhook.RetryMinWaitSeconds {
		errs = append(errs, &ValidationError{
			Field:   "webhook.retry_max_wait_seconds",
			Message: fmt.Sprintf("retry_max_wait_seconds (%d) must be >= retry_min_wait_seconds (%d)",
				c.Webhook.RetryMaxWaitSeconds, c.Webhook.RetryMinWaitSeconds),
		})
	}
	if c.Webhook.DeadLetterCapacity < 1 {
		errs = append(errs, &ValidationError{
			Field:   "webhook.dead_letter_capacity",
			Message: fmt.Sprintf("dead_letter_capacity must be at least 1, got %d", c.Webhook.DeadLetterCapacity),
		})
	}

	// Validate rate limit configuration
	if c.RateLimit.WebhookPerMinute < 1 {
		errs = append(errs, &ValidationError{
			Field:   "ratelimit.webhook_per_minute",
			Message: fmt.Sprintf("webhook_per_minute must be at least 1, got %d", c.RateLimit.WebhookPerMinute),
		})
	}
	if c.RateLimit.QueryPerMinute < 1 {
		errs = append(errs, &ValidationError{
			Field:   "ratelimit.query_per_minute",
			Message: fmt.Sprintf("query_per_minute must be at least 1, got %d", c.RateLimit.QueryPerMinute),
		})
	}

	// Validate logging configuration
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, &ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("level must be one of debug, info, warn, error, got %q", c.Logging.Level),
		})
	}

	return errs
}
