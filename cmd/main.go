/*
Package main is the entry point for the VibeCheck web server.

It is responsible for loading configuration, initializing the global logging system,
opening local storage, building the API gateway, the session service and the preference
synchronizers, setting up the HTTP server, and gracefully handling operating system
interrupt signals (SIGINT, SIGTERM) to ensure a smooth server shutdown.
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"vibecheck/internal/app/gateway"
	"vibecheck/internal/app/prefsync"
	"vibecheck/internal/app/session"
	"vibecheck/internal/app/storage"
	"vibecheck/internal/configs"
	"vibecheck/internal/handler"
	"vibecheck/internal/pkg/logx"
	"vibecheck/internal/pkg/metrics"
)

func main() {
	// Load configuration from environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	logx.InitGlobalLogger(cfg.IsDevelopment())
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Str("api_base_url", cfg.APIBaseURL).
		Bool("mock_mode", cfg.MockMode).
		Str("storage_driver", cfg.StorageDriver).
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	// Open local storage
	store, err := storage.NewLocalStorage(ctx, storage.ServiceConfig{
		Driver:      cfg.StorageDriver,
		RedisURL:    cfg.RedisURL,
		DatabaseDSN: cfg.DatabaseDSN,
		TTL:         cfg.IdentityCacheTTL,
	})
	if err != nil {
		logx.Fatal(err, "Failed to open local storage", "driver", cfg.StorageDriver)
	}

	// Build the API gateway; mock mode swaps the transport once here.
	gw, err := gateway.New(gateway.Config{
		BaseURL:        cfg.APIBaseURL,
		Timeout:        cfg.RequestTimeout,
		MockMode:       cfg.MockMode,
		MockLatency:    cfg.MockLatency,
		MockSigningKey: cfg.MockSigningKey,
	}, m)
	if err != nil {
		logx.Fatal(err, "Failed to build API gateway")
	}

	sessions := session.NewService(session.NewIdentityCache(store), gw, m, !cfg.IsDevelopment())

	// Initialize Preference Manager
	preferences := prefsync.NewManager(
		func(tokens gateway.TokenSource) prefsync.Remote {
			return prefsync.NewGatewayRemote(gw, tokens)
		},
		prefsync.Options{
			QuietPeriod: cfg.PreferenceQuietPeriod,
			SavedWindow: cfg.PreferenceSavedWindow,
			Metrics:     m,
		},
		cfg.PreferenceIdleTimeout,
	)

	// Setup HTTP server and routes
	router := handler.Router(&handler.AppDeps{
		Config:      cfg,
		Gateway:     gw,
		Sessions:    sessions,
		Preferences: preferences,
		Storage:     store,
		Metrics:     m,
		Gatherer:    registry,
	})

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("VibeCheck web server starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 5 seconds.
	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Fatal(err, "Server forced to shutdown")
	}

	// Pending preference edits are written before storage goes away.
	preferences.Shutdown()

	if err := store.Close(); err != nil {
		logx.Error(err, "Failed to close local storage")
	}

	logx.Info("Server gracefully stopped.")
}
