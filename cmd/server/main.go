// Package main is the HTTP API server for Codevia.
//
// It serves the same registration, skill, quiz, challenge and achievement
// operations as the console over JSON, authenticated with bearer tokens,
// plus health checks and Prometheus metrics.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/codevia/codevia/config"
	"github.com/codevia/codevia/internal/app"
	"github.com/codevia/codevia/internal/infrastructure/security"
	httpserver "github.com/codevia/codevia/internal/interface/http"
	"github.com/codevia/codevia/pkg/logger"
	"github.com/codevia/codevia/pkg/timeutil"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION & LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := app.NewLogger(cfg.Observability, os.Stdout)
	defer func() { _ = log.Sync() }()

	log.Info("starting Codevia API",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
		logger.Bool("debug", cfg.App.Debug),
		logger.StoreDriver(cfg.Store.Driver),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 2. TOKENS
	// ─────────────────────────────────────────────────────────────────────────
	secret := cfg.HTTP.JWTSecret
	if secret == "" {
		// Validate rejects this in production.
		secret = uuid.NewString() + uuid.NewString()
		log.Warn("JWT_SECRET not set, using an ephemeral secret; tokens will not survive a restart")
	}
	tokens, err := security.NewTokenIssuer(secret, cfg.HTTP.TokenTTL, timeutil.NewSystemClock(cfg.App.Location))
	if err != nil {
		return fmt.Errorf("failed to create token issuer: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 3. APPLICATION
	// ─────────────────────────────────────────────────────────────────────────
	a, err := app.New(ctx, cfg, log, app.Options{Tokens: tokens})
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	srvCfg := httpserver.DefaultConfig()
	srvCfg.Host = cfg.HTTP.Host
	srvCfg.Port = cfg.HTTP.Port
	srvCfg.Mode = cfg.HTTP.Mode
	if cfg.HTTP.ReadTimeout > 0 {
		srvCfg.ReadTimeout = cfg.HTTP.ReadTimeout
	}
	if cfg.HTTP.WriteTimeout > 0 {
		srvCfg.WriteTimeout = cfg.HTTP.WriteTimeout
	}
	if cfg.HTTP.IdleTimeout > 0 {
		srvCfg.IdleTimeout = cfg.HTTP.IdleTimeout
	}
	srvCfg.AllowedOrigins = cfg.HTTP.AllowedOrigins
	srvCfg.RateLimitPerMinute = cfg.HTTP.RateLimitPerMinute
	srvCfg.EnableMetrics = cfg.Features.MetricsEnabled()
	srvCfg.Version = cfg.App.Version

	server := httpserver.NewServer(srvCfg, httpserver.Dependencies{
		RegisterUser:         a.Commands.RegisterUser,
		Login:                a.Commands.Login,
		UnlockSkill:          a.Commands.UnlockSkill,
		SubmitQuiz:           a.Commands.SubmitQuiz,
		ChangePassword:       a.Commands.ChangePassword,
		DeleteAccount:        a.Commands.DeleteAccount,
		RequestPasswordReset: a.Commands.RequestPasswordReset,
		ListSkills:           a.Queries.ListSkills,
		QuizCatalog:          a.Queries.QuizCatalog,
		DailyChallenge:       a.Queries.DailyChallenge,
		ListAchievements:     a.Queries.ListAchievements,
		Account:              a.Queries.Account,
		DirectoryStats:       a.Queries.DirectoryStats,
		Tokens:               tokens,
		Metrics:              a.Metrics,
		HealthChecker:        a.Health,
		Logger:               log,
	})

	errCh := server.StartAsync()

	// ─────────────────────────────────────────────────────────────────────────
	// 5. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	var serveErr error
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case serveErr = <-errCh:
		if serveErr != nil {
			log.Error("HTTP server failed", logger.Err(serveErr))
		}
	}

	shutdownCtx, cancel := app.ShutdownContext(cfg)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", logger.Err(err))
	}
	if err := a.Close(shutdownCtx); err != nil {
		log.Warn("application shutdown incomplete", logger.Err(err))
	}

	log.Info("Codevia API stopped")
	return serveErr
}
