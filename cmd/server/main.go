package main

// Package main is the entry point for the kubemedic server application.
//
// Responsibilities:
//   - Load and validate configuration from YAML and environment variables
//   - Build the structured logger with file rotation
//   - Initialize the Azure OpenAI engine factory and the supervisor agent
//     with its specialists, conversation store, and recursion guard
//   - Start the webhook pipeline (retry + dead-letter queue)
//   - Start the REST API server with webhook, query, admin, WebSocket, and
//     metrics endpoints
//   - Implement graceful shutdown on SIGINT/SIGTERM
//
// Degraded start: when the reasoning engine cannot be initialized (missing
// credentials), the server still comes up so /health and the admin surface
// work; investigation endpoints answer 503 until the next restart.

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kubemedic/kubemedic/internal/config"
	"github.com/kubemedic/kubemedic/internal/llm/azure"
	"github.com/kubemedic/kubemedic/internal/logging"
	"github.com/kubemedic/kubemedic/internal/memory"
	"github.com/kubemedic/kubemedic/internal/reasoning/guard"
	"github.com/kubemedic/kubemedic/internal/reasoning/supervisor"
	"github.com/kubemedic/kubemedic/internal/server"
	"github.com/kubemedic/kubemedic/internal/webhook"
)

func main() {
	configPath := flag.String("config", "/etc/kubemedic/config.yaml", "path to config file")
	flag.Parse()

	ctx := context.Background()

	// Load configuration
	mgr, err := config.NewConfigManager(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create config manager: %v\n", err)
		os.Exit(1)
	}
	if err := mgr.Load(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := mgr.Validate(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	cfg := mgr.Get(ctx)

	// Build logger
	logger, err := logging.New(logging.Config{
		Level:      cfg.Logging.Level,
		FilePath:   cfg.Logging.FilePath,
		MaxSize:    cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting KubeMedic",
		zap.Int("port", cfg.Server.Port),
		zap.Int("recursion_limit", cfg.Agent.RecursionLimit),
	)

	// Initialize the supervisor agent. A failure here is survivable: the
	// server starts degraded and reports agent_ready=false.
	sup := buildSupervisor(cfg, logger)

	// Webhook pipeline
	var invoker webhook.Invoker
	if sup != nil {
		invoker = sup
	}
	pipeline := webhook.NewPipeline(invoker, webhook.Config{
		MaxRetries:         cfg.Webhook.MaxRetries,
		RetryMinWait:       time.Duration(cfg.Webhook.RetryMinWaitSeconds) * time.Second,
		RetryMaxWait:       time.Duration(cfg.Webhook.RetryMaxWaitSeconds) * time.Second,
		DeadLetterCapacity: cfg.Webhook.DeadLetterCapacity,
	}, logger)

	// Create and start the API server
	srv, err := server.NewServer(cfg, sup, pipeline, logger)
	if err != nil {
		logger.Fatal("failed to create server", zap.Error(err))
	}
	if err := srv.Start(); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}

	// Wait for shutdown signal (Ctrl+C or SIGTERM)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	if err := srv.Stop(); err != nil {
		logger.Error("error stopping server", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}

// buildSupervisor wires the reasoning stack: Azure OpenAI client, engine
// factory, conversation store, recursion guard, and the supervisor with its
// specialists. Returns nil when the engine cannot be initialized.
func buildSupervisor(cfg *config.Config, logger *zap.Logger) *supervisor.Supervisor {
	client, err := azure.NewClient(
		cfg.LLM.AzureEndpoint,
		cfg.LLM.AzureDeployment,
		cfg.LLM.AzureAPIVersion,
		cfg.LLM.AzureAPIKey,
	)
	if err != nil {
		logger.Warn("reasoning engine not initialized, starting degraded", zap.Error(err))
		return nil
	}

	store := memory.NewBoundedStore(
		cfg.Memory.MaxSize,
		time.Duration(cfg.Memory.TTLSeconds)*time.Second,
	)
	g := guard.New(cfg.Agent.RecursionLimit, logger)

	sup, err := supervisor.New(azure.NewFactory(client), store, g, logger)
	if err != nil {
		logger.Warn("supervisor not initialized, starting degraded", zap.Error(err))
		return nil
	}
	return sup
}
