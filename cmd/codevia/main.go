// Package main is the interactive console for Codevia.
//
// Players register, log in, unlock skills, take quizzes and follow the daily
// challenge from a numbered terminal menu. Logs go to stderr so they do not
// interleave with the menus.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/codevia/codevia/config"
	"github.com/codevia/codevia/internal/app"
	"github.com/codevia/codevia/internal/interface/console"
	"github.com/codevia/codevia/pkg/logger"
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

	log := app.NewLogger(cfg.Observability, os.Stderr)
	defer func() { _ = log.Sync() }()

	log.Info("starting Codevia console",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
		logger.StoreDriver(cfg.Store.Driver),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 2. APPLICATION
	// ─────────────────────────────────────────────────────────────────────────
	a, err := app.New(ctx, cfg, log, app.Options{})
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := app.ShutdownContext(cfg)
		defer cancel()
		if err := a.Close(shutdownCtx); err != nil {
			log.Warn("shutdown incomplete", logger.Err(err))
		}
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 3. MENU LOOP
	// ─────────────────────────────────────────────────────────────────────────
	router := console.NewRouter(console.RouterConfig{In: os.Stdin, Out: os.Stdout}, console.Dependencies{
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
		Sessions:             a.Sessions,
		Notifications:        cfg.Features,
		Logger:               log,
	})

	return router.Run(ctx)
}
