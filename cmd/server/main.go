package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"pulse/auth"
	"pulse/infrastructure/httpapi"
	"pulse/infrastructure/ws"
	"pulse/internal"
	"pulse/observability"
	"pulse/repositories"
	"pulse/runtime"
	"pulse/runtime/workers"
	"pulse/services"
)

// Exit codes to provide meaningful status to the operating system or
// service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	// The main function acts as a thin wrapper.
	// Its only responsibility is to call run() and handle the OS exit code.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting. Returning instead of exiting ensures
// defers run (database cleanup) and keeps the wiring testable.
func run() (int, error) {
	// 1. Configuration & logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	logger := internal.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Database (BadgerDB)
	options := badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING)
	db, err := badger.Open(options)
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		// Releases the lock and flushes buffers before the process exits.
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Shared core services
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	metrics := observability.NewMetrics(registry)

	store := repositories.NewMessageRepository(db, logger)
	presence := runtime.NewPresence(logger)
	relay := runtime.NewRelay(logger)
	lifecycle := services.NewLifecycleService(logger, store, relay, metrics)
	verifier := auth.NewVerifier(config.JWTSecret)

	// 4. Background workers under supervision
	supervisor := workers.NewSupervisor(logger)
	supervisor.Add(
		workers.NewBadgerGC(db, logger, config.GCInterval),
		observability.NewProcessTelemetry(logger, config.MetricInterval),
	)
	supervisorDone := make(chan struct{})
	go func() {
		defer close(supervisorDone)
		supervisor.Run(ctx)
	}()

	// 5. HTTP surface
	realtime := ws.NewHandler(logger, verifier, lifecycle, presence, relay,
		metrics, config.ConnectionBufferSize)
	router := httpapi.NewRouter(logger, verifier, lifecycle, realtime, registry)

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler: router,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Server listening", "addr", server.Addr)
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return exitRuntime, err
		}
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	}

	// 6. Graceful shutdown: stop accepting, drain connections, then
	// stop the workers.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", "error", err)
	}

	supervisor.Stop()
	<-supervisorDone

	logger.Info("Server stopped")
	return exitOK, nil
}
