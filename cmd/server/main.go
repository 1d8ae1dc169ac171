// Package main is the entrypoint for the AI Checker API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kiranshivaraju/aichecker/internal/api"
	"github.com/kiranshivaraju/aichecker/internal/api/handler"
	"github.com/kiranshivaraju/aichecker/internal/api/response"
	"github.com/kiranshivaraju/aichecker/internal/cache"
	"github.com/kiranshivaraju/aichecker/internal/config"
	"github.com/kiranshivaraju/aichecker/internal/finchat"
	"github.com/kiranshivaraju/aichecker/internal/jobs"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config — fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded",
		"protocol", cfg.FinChat.Protocol, "cot_slug", cfg.FinChat.COTSlug, "env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Cache: Redis when configured, noop otherwise
	var jobCache cache.Cache = cache.NewNoopCache()
	cacheEnabled := cfg.Redis.URL != ""
	if cacheEnabled {
		redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("create redis cache: %w", err)
		}
		defer redisCache.Close()

		if err := redisCache.Ping(ctx); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		jobCache = redisCache
		slog.Info("redis connected")
	} else {
		slog.Info("redis not configured, job cache disabled")
	}

	// 3. Job registry shared by both runners
	registry := jobs.NewRegistry()
	runnerOpts := jobs.RunnerOptions{
		MaxConcurrent:  cfg.Jobs.MaxConcurrent,
		StatusTTL:      cfg.Jobs.StatusTTL,
		PatternsPath:   cfg.FinChat.PatternsPath,
		DefaultPurpose: cfg.FinChat.Purpose,
	}

	// 4. Gateway client and runner for the configured protocol. Without a
	// base URL the analysis endpoints reject requests, so no client is
	// built.
	var runner handler.Submitter
	if cfg.FinChat.Configured() {
		client, err := finchat.New(finchat.Options{
			BaseURL:      cfg.FinChat.BaseURL,
			APIToken:     cfg.FinChat.APIToken,
			Protocol:     cfg.FinChat.Protocol,
			COTSlug:      cfg.FinChat.COTSlug,
			SessionID:    cfg.FinChat.SessionID,
			ParamName:    cfg.FinChat.ParamName,
			HTTPTimeout:  cfg.FinChat.HTTPTimeout,
			PollInterval: cfg.FinChat.PollInterval,
			MaxAttempts:  cfg.FinChat.MaxAttempts,
			PollTimeout:  cfg.FinChat.PollTimeout,
		})
		if err != nil {
			return fmt.Errorf("create gateway client: %w", err)
		}
		runner = jobs.NewRunner(registry, client, jobCache, runnerOpts)
	} else {
		slog.Warn("FINCHAT_BASE_URL not set, analysis endpoints disabled")
	}

	// 5. Explicit V2 runner for the -v2 endpoint; shares the registry.
	// Unavailable without a pre-existing session id.
	v2Configured := cfg.FinChat.Configured() && cfg.FinChat.SessionID != ""
	var runnerV2 handler.Submitter
	if v2Configured {
		clientV2, err := finchat.New(finchat.Options{
			BaseURL:      cfg.FinChat.BaseURL,
			APIToken:     cfg.FinChat.APIToken,
			Protocol:     "v2",
			SessionID:    cfg.FinChat.SessionID,
			ParamName:    cfg.FinChat.ParamName,
			HTTPTimeout:  cfg.FinChat.HTTPTimeout,
			PollInterval: cfg.FinChat.PollInterval,
			MaxAttempts:  cfg.FinChat.MaxAttempts,
			PollTimeout:  cfg.FinChat.PollTimeout,
		})
		if err != nil {
			return fmt.Errorf("create v2 gateway client: %w", err)
		}
		runnerV2 = jobs.NewRunner(registry, clientV2, jobCache, runnerOpts)
	}

	// 6. Build router with dependencies
	deps := api.Dependencies{
		AllowedOrigins: cfg.CORS.AllowedOrigins,

		HealthHandler:    healthHandler(cfg.FinChat.Configured(), jobCache, cacheEnabled),
		ConfigHandler:    configHandler(cfg),
		AnalyzeHandler:   handler.NewAnalyzeHandler(runner, cfg.FinChat.Configured()),
		AnalyzeV2Handler: handler.NewAnalyzeHandler(runnerV2, v2Configured),
		StatusHandler:    handler.NewStatusHandler(registry),
	}

	router := api.NewRouter(deps)

	// 7. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// healthHandler reports gateway configuration and cache connectivity.
// In-flight jobs are unaffected by a degraded cache, so this always
// answers 200.
func healthHandler(configured bool, c cache.Cache, cacheEnabled bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cacheStatus := "disabled"
		if cacheEnabled {
			cacheStatus = "ok"
			if err := c.Ping(r.Context()); err != nil {
				cacheStatus = "degraded"
			}
		}

		response.JSON(w, map[string]any{
			"status":             "ok",
			"finchat_configured": configured,
			"cache":              cacheStatus,
			"timestamp":          time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// configHandler exposes the current configuration without secrets.
func configHandler(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		baseURL := cfg.FinChat.BaseURL
		if !cfg.FinChat.Configured() {
			baseURL = "not configured"
		}

		response.JSON(w, map[string]any{
			"configured": cfg.FinChat.Configured(),
			"base_url":   baseURL,
			"cot_slug":   cfg.FinChat.COTSlug,
			"protocol":   cfg.FinChat.Protocol,
			"param_name": cfg.FinChat.ParamName,
			"v2_enabled": cfg.FinChat.SessionID != "",
		})
	}
}
