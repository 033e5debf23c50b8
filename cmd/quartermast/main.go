package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/harborline/quartermast/internal/anthropic"
	"github.com/harborline/quartermast/internal/api"
	"github.com/harborline/quartermast/internal/bus"
	"github.com/harborline/quartermast/internal/classifier"
	"github.com/harborline/quartermast/internal/config"
	"github.com/harborline/quartermast/internal/decision"
	"github.com/harborline/quartermast/internal/forwarder"
	"github.com/harborline/quartermast/internal/orchestrator"
	"github.com/harborline/quartermast/internal/ports"
	"github.com/harborline/quartermast/internal/responder"
	"github.com/harborline/quartermast/internal/store"
	"github.com/harborline/quartermast/internal/validation"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("quartermast starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	if cfg.DatabaseURL == "" {
		slog.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	db, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database connected")

	// Anthropic client
	if cfg.AnthropicAPIKey == "" {
		slog.Error("ANTHROPIC_API_KEY is required")
		os.Exit(1)
	}
	llm := anthropic.NewClient(cfg.AnthropicAPIKey, cfg.AnthropicModel)
	slog.Info("anthropic client ready", "model", cfg.AnthropicModel)

	// NATS
	natsClient, err := bus.NewClient(cfg.NatsURL, cfg.NatsToken, slog.Default())
	if err != nil {
		slog.Error("failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer natsClient.Close()
	slog.Info("NATS connected", "url", cfg.NatsURL)

	// Forwarder directory (optional: without it confirmed bookings still
	// land, they just never go out for rates)
	var directory *forwarder.Directory
	if dir, err := forwarder.Load(cfg.ForwardersFile, slog.Default()); err != nil {
		slog.Warn("forwarder directory unavailable, running without rate requests",
			"file", cfg.ForwardersFile, "error", err)
	} else {
		directory = dir
	}

	resolver := ports.NewStaticResolver()

	// Orchestrator, the main pipeline
	orch := orchestrator.New(
		db,
		classifier.New(llm, slog.Default()),
		validation.NewEngine(resolver, slog.Default()),
		decision.NewDecider(cfg.ConfidenceThreshold, cfg.MaxClarifications),
		responder.New(natsClient, llm, slog.Default()),
		directory,
		resolver,
		natsClient,
		slog.Default(),
	)

	// Subscribe to inbound email events
	if err := natsClient.Subscribe(bus.SubjectInboundEmail, orch.HandleInboundEmail); err != nil {
		slog.Error("failed to subscribe to inbound email", "error", err)
		os.Exit(1)
	}

	// HTTP API
	srv := api.NewServer(cfg.Port, cfg.APIToken, db, orch)
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	slog.Info("quartermast ready", "port", cfg.Port)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")
	cancel()
	slog.Info("quartermast stopped")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
