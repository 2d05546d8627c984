// Package main is the entry point for the card generation Telegram bot.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cardgen/internal/apiclient"
	"cardgen/internal/bot"
	"cardgen/internal/config"
	"cardgen/internal/database"
	"cardgen/internal/logger"
	"cardgen/internal/payment"
	"cardgen/internal/quota"
	"cardgen/internal/repository"
	"cardgen/internal/yookassa"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "version" {
		fmt.Printf("cardgen-bot %s (commit: %s, built: %s)\n", version, commit, date)
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to load config")
	}
	if err := cfg.ValidateBot(); err != nil {
		logger.Log.Fatal().Err(err).Msg("Invalid configuration")
	}

	logger.SetLevel(cfg.LogLevel)

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()

	if err := database.RunMigrations(ctx, pool); err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	logger.Log.Info().Msg("Database initialized successfully")

	quotaSvc := quota.NewService(repository.NewSubscriptionRepository(pool))

	var gateway payment.Gateway
	if cfg.PaymentsConfigured() {
		gateway = yookassa.NewClient("", cfg.YooMoneyShopID, cfg.YooMoneySecretKey, 0)
		logger.Log.Info().Msg("Payments enabled")
	} else {
		logger.Log.Warn().Msg("YooKassa credentials missing, purchases disabled")
	}
	purchases := payment.NewService(pool, repository.NewPaymentRepository(pool), quotaSvc, gateway, cfg.YooMoneyReturnURL)

	api := apiclient.NewClient(cfg.APIBaseURL, time.Duration(cfg.APITimeoutSec)*time.Second)
	if err := api.Health(ctx); err != nil {
		logger.Log.Warn().Err(err).Str("url", cfg.APIBaseURL).Msg("Generation API is not reachable yet")
	}

	telegramBot, err := bot.New(cfg, pool, quotaSvc, purchases, api)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to create bot")
	}

	// Reconciliation runs alongside the bot so its payment outcomes reach
	// users through the notifier.
	purchases.SetNotifier(telegramBot.Notifier())
	if purchases.Enabled() {
		reconciler, err := purchases.StartReconciler(ctx)
		if err != nil {
			logger.Log.Fatal().Err(err).Msg("Failed to start payment reconciler")
		}
		defer reconciler.Stop()
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		logger.Log.Info().Msg("Shutting down...")
		cancel()
	}()

	telegramBot.Start(ctx)
}
