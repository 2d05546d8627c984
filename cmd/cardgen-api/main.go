// Package main is the entry point for the card generation API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cardgen/internal/api"
	"cardgen/internal/config"
	"cardgen/internal/database"
	"cardgen/internal/gencontent"
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
		fmt.Printf("cardgen-api %s (commit: %s, built: %s)\n", version, commit, date)
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to load config")
	}
	if err := cfg.ValidateAPI(); err != nil {
		logger.Log.Fatal().Err(err).Msg("Invalid configuration")
	}

	logger.SetLevel(cfg.LogLevel)
	if cfg.APIDebug {
		logger.SetLevel("debug")
	} else {
		logger.SetJSON()
	}

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()

	if err := database.RunMigrations(ctx, pool); err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	generator, err := gencontent.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to create content generator")
	}

	// The webhook endpoint needs the payment service, but in this process
	// it runs without a notifier: users learn the outcome from the bot.
	var processor api.PaymentProcessor
	if cfg.PaymentsConfigured() {
		gateway := yookassa.NewClient("", cfg.YooMoneyShopID, cfg.YooMoneySecretKey, 0)
		quotaSvc := quota.NewService(repository.NewSubscriptionRepository(pool))
		processor = payment.NewService(pool, repository.NewPaymentRepository(pool), quotaSvc, gateway, cfg.YooMoneyReturnURL)
		logger.Log.Info().Msg("Payment webhook enabled")
	} else {
		logger.Log.Warn().Msg("YooKassa credentials missing, webhook disabled")
	}

	server := api.NewServer(cfg, generator, processor, version)

	httpServer := &http.Server{
		Addr:              cfg.APIAddr(),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Duration(cfg.APITimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.APITimeoutSec) * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		logger.Log.Info().Msg("Shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Log.Error().Err(err).Msg("HTTP server shutdown failed")
		}
		cancel()
	}()

	logger.Log.Info().Str("addr", httpServer.Addr).Msg("API server listening")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Log.Fatal().Err(err).Msg("HTTP server failed")
	}
}
