package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"haushalt/internal/backend"
	"haushalt/internal/cli"
	"haushalt/internal/core"
	apphttp "haushalt/internal/http"
	"haushalt/internal/ocr"
	"haushalt/internal/scan"
	"haushalt/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	if err := backendCfg.Validate(); err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}

	factory := backend.NewFactory(logger.Logger)
	result, err := factory.CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to create backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup failed", "error", err)
			}
		}
	}()
	logger.Info("Initialized backend", "backend", cfg.DataBackend)

	ledger := services.NewLedgerService(result.Store, result.Store, result.Publisher)

	registry := scan.NewRegistry(ocr.NewClient(cfg.OCRBaseURL, cfg.OCRToken))
	submitter := services.NewAllocationSubmitter(
		ledger,
		core.PartyID(cfg.PartySelf),
		core.PartyID(cfg.PartyOther),
		cfg.HouseholdID,
	)

	srv := apphttp.NewServer(":"+cfg.Port, ledger, registry, submitter, apphttp.Options{
		HouseholdID: cfg.HouseholdID,
		PartySelf:   core.PartyID(cfg.PartySelf),
		PartyOther:  core.PartyID(cfg.PartyOther),
	})

	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 90 * time.Second // OCR extraction runs inside the process request
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting haushalt server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"household", cfg.HouseholdID)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
