package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin/binding"
	"github.com/makkenzo/machine-license-api/internal/clock"
	"github.com/makkenzo/machine-license-api/internal/config"
	"github.com/makkenzo/machine-license-api/internal/handler"
	"github.com/makkenzo/machine-license-api/internal/keygen"
	"github.com/makkenzo/machine-license-api/internal/service"
	"github.com/makkenzo/machine-license-api/internal/storage"
	"github.com/makkenzo/machine-license-api/internal/worker"
	"github.com/makkenzo/machine-license-api/pkg/logger"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", "./configs/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.NewZapLogger(cfg.Log.Level)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Sync()

	sugarLogger := appLogger.Sugar()

	sugarLogger.Info("Starting application...")
	sugarLogger.Infof("Log level set to: %s", cfg.Log.Level)

	if cfg.License.SecretKey == "" {
		sugarLogger.Warn("license.secretKey is empty; generated keys are only salted by time")
	}
	if cfg.Admin.APIKey == "" && cfg.Admin.APIKeyHash == "" {
		sugarLogger.Warn("No admin API key configured; all /api/admin requests will be rejected")
	}

	appCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// A store that fails to come up is not fatal: the API keeps serving and
	// answers 503 until it is restarted with a working backend.
	licenseRepo, closeStore, err := storage.Open(appCtx, cfg, appLogger)
	if err != nil {
		sugarLogger.Errorf("License store unavailable (driver %s): %v", cfg.Store.Driver, err)
	} else {
		sugarLogger.Infof("License store ready (driver %s)", cfg.Store.Driver)
	}
	defer closeStore()

	// Request bodies follow a fixed schema; unknown fields are a client error.
	binding.EnableDecoderDisallowUnknownFields = true

	clk := clock.Real{}
	licenseService := service.NewLicenseService(
		licenseRepo,
		keygen.NewGenerator(cfg.License.SecretKey, clk),
		clk,
		service.Options{
			StoreTimeout:      cfg.Store.Timeout,
			KeyGenMaxAttempts: cfg.License.KeyGenMaxAttempts,
		},
		appLogger,
	)

	router := handler.NewRouter(handler.RouterDeps{
		Service:   licenseService,
		Admin:     cfg.Admin,
		CORS:      cfg.CORS,
		RateLimit: cfg.RateLimit,
		Logger:    appLogger,
	})

	g, groupCtx := errgroup.WithContext(appCtx)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g.Go(func() error {
		sugarLogger.Infof("HTTP server listening on port %s", cfg.Server.Port)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugarLogger.Errorf("HTTP server ListenAndServe error: %v", err)
			return fmt.Errorf("http server failed: %w", err)
		}
		sugarLogger.Info("HTTP server stopped listening.")
		return nil
	})

	g.Go(func() error {
		<-groupCtx.Done()
		sugarLogger.Info("Shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownPeriod)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			sugarLogger.Errorf("HTTP server graceful shutdown failed: %v", err)
			return fmt.Errorf("http server shutdown error: %w", err)
		}
		sugarLogger.Info("HTTP server shutdown complete.")
		return nil
	})

	switch {
	case !cfg.Worker.Enabled:
		sugarLogger.Info("Background worker disabled.")
	case !licenseService.Available():
		sugarLogger.Warn("Background worker not started: license store unavailable.")
	case cfg.Redis.Addr == "":
		sugarLogger.Warn("Background worker not started: redis.addr is empty.")
	default:
		workerErrs, shutdownWorkers := worker.RunWorkers(cfg, licenseService, appLogger)
		g.Go(func() error {
			select {
			case err := <-workerErrs:
				shutdownWorkers(context.Background())
				return err
			case <-groupCtx.Done():
				shutdownWorkers(context.Background())
				return nil
			}
		})
	}

	sugarLogger.Info("Application started. Waiting for interrupt signal (Ctrl+C) or component error...")

	waitErr := g.Wait()

	sugarLogger.Info("Shutdown sequence finished.")

	if waitErr != nil {
		if errors.Is(waitErr, context.Canceled) {
			sugarLogger.Info("Shutdown reason: Context canceled (likely due to OS signal).")
		} else {
			sugarLogger.Errorf("Application shutdown finished with unexpected error: %v", waitErr)
		}
	} else {
		sugarLogger.Info("Application shutdown successfully (all components finished without errors).")
	}

	sugarLogger.Info("Application exiting now.")
}
