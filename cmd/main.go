package main

//
//  @title           navledger API
//  @version         1.0
//  @description     Brokerage NAV ledger & reconciliation service.
//  @termsOfService  https://github.com/bearhedge/navledger
//  @contact.name    API Support
//  @contact.url     https://github.com/bearhedge/navledger
//  @contact.email   support@example.com
//  @license.name    MIT
//  @license.url     https://opensource.org/licenses/MIT
//  @host            localhost:8080
//  @BasePath        /
//  @schemes         http
//
//  @tag.name        ledger
//  @tag.description Daily NAV trajectories
//
//  @tag.name        reconciliation
//  @tag.description Expected-vs-official close comparison
//
//  @tag.name        positions
//  @tag.description Assignment positions and their lifecycle
//
//  @tag.name        ingestion
//  @tag.description Extract merge triggers
//
//  @tag.name        health
//  @tag.description Liveness and readiness probes

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bearhedge/navledger/config"
	_ "github.com/bearhedge/navledger/docs" // swagger docs
	"github.com/bearhedge/navledger/internal/app"
	"github.com/bearhedge/navledger/internal/logger"
)

// startServer initializes and starts the HTTP server in a separate goroutine.
func startServer(router http.Handler, port string) *http.Server {
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.L().Info().Str("port", port).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L().Fatal().Err(err).Msg("server failed to start")
		}
	}()

	return server
}

// gracefulShutdown gracefully terminates the HTTP server and cleans up
// resources when an OS interrupt signal (SIGINT, SIGTERM) is received.
func gracefulShutdown(ctx context.Context, server *http.Server, cleanup func()) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	logger.L().Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.L().Fatal().Err(err).Msg("server forced to shutdown")
	}

	cleanup()
	logger.L().Info().Msg("server exited gracefully")
}

// main is the entry point of the navledger application.
//
// Modes (selected via --mode flag):
//   - ingest:   Runs one merge cycle (fetch, classify, recompute) and exits.
//   - schedule: Runs merges daily at the configured reporting-timezone hour.
//   - api:      Starts the REST API exposing the ledger, reconciliation,
//     positions, and exception views.
//
// Flags:
//   - --mode: Execution mode ("ingest", "schedule", or "api"). Default: "ingest".
//   - --port: Port for the API server. Defaults to value from config (SERVER_PORT).
func main() {
	ctx := context.Background()

	config.LoadConfig()
	logger.Init()

	mode := flag.String("mode", "ingest", "Mode: ingest, schedule, or api")
	port := flag.String("port", config.AppConfig.Server.Port, "Port for API mode")
	flag.Parse()

	switch *mode {
	case "ingest":
		logger.L().Info().Msg("running merge")

		pipeline, _, cleanup, err := app.InitializeIngestion()
		if err != nil {
			logger.L().Fatal().Err(err).Msg("init error")
		}
		defer cleanup()

		if err := pipeline.Run(ctx); err != nil {
			logger.L().Fatal().Err(err).Msg("merge failed")
		}
		logger.L().Info().Msg("merge completed successfully")

	case "schedule":
		logger.L().Info().Msg("starting merge scheduler")

		_, scheduler, cleanup, err := app.InitializeIngestion()
		if err != nil {
			logger.L().Fatal().Err(err).Msg("init error")
		}
		defer cleanup()

		runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := scheduler.Start(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.L().Fatal().Err(err).Msg("scheduler failed")
		}
		logger.L().Info().Msg("scheduler stopped")

	case "api":
		logger.L().Info().Msg("starting API server")

		router, cleanup, err := app.InitializeApp()
		if err != nil {
			logger.L().Fatal().Err(err).Msg("app init error")
		}

		server := startServer(router, *port)
		gracefulShutdown(ctx, server, cleanup)

	default:
		logger.L().Fatal().Str("mode", *mode).Msg("unknown mode")
	}
}
