/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the ledger server that backs the POS frontend.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration from environment (.env supported)
  2. Apply command-line flag overrides
  3. Initialize SQLite store
  4. Load the product and employee catalog, if configured
  5. Create API handler, router and idle sweeper
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port     HTTP server port (env PORT, default: 8080)
  -db       SQLite database path (env DB_PATH, default: tillkit.db)
            Use ":memory:" for in-memory database
  -catalog  Catalog JSON file (env CATALOG_PATH)
  -policy   Validation policy: permissive or strict (env VALIDATION_POLICY)

ENVIRONMENT:
  LOG_LEVEL, LOG_FORMAT, CORS_ALLOWED_ORIGINS, SESSION_IDLE_TIMEOUT
  See config/config.go.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the idle sweeper
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection
  5. Exit

EXAMPLES:
  ./server -db="./data/tillkit.db" -catalog=./catalog.json
  ./server -db=":memory:" -policy=strict

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/tillkit/ledger-core/api"
	"github.com/tillkit/ledger-core/config"
	"github.com/tillkit/ledger-core/factory"
	"github.com/tillkit/ledger-core/generic"
	"github.com/tillkit/ledger-core/obs"
	"github.com/tillkit/ledger-core/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := obs.NewLogger("console", "info")
		bootLog.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Flags override environment
	port := flag.Int("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	catalogPath := flag.String("catalog", cfg.CatalogPath, "Catalog JSON file")
	policyName := flag.String("policy", string(cfg.ValidationPolicy), "Validation policy (permissive|strict)")
	flag.Parse()

	cfg.Port = *port
	cfg.DBPath = *dbPath
	cfg.CatalogPath = *catalogPath

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel)

	policy, err := generic.ParseValidationPolicy(*policyName)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid validation policy")
	}
	cfg.ValidationPolicy = policy

	// Initialize store
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		logger.Fatal().Err(err).Str("db", cfg.DBPath).Msg("failed to initialize database")
	}
	defer store.Close()

	catalog, err := loadCatalog(cfg.CatalogPath, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("catalog", cfg.CatalogPath).Msg("failed to load catalog")
	}

	handler := api.NewHandler(api.Options{
		Recorder: store,
		Slips:    store,
		Catalog:  catalog,
		Policy:   cfg.ValidationPolicy,
		Logger:   logger,
	})
	router := api.NewRouter(handler, api.RouterOptions{AllowedOrigins: cfg.CORSAllowedOrigins})

	sweeper := api.NewIdleSweeper(handler)
	sweeper.MaxIdle = cfg.SessionIdleTimeout
	sweeper.Start()

	server := &http.Server{
		Addr:         cfg.HTTPAddr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().
			Str("addr", cfg.HTTPAddr()).
			Str("db", cfg.DBPath).
			Str("policy", string(cfg.ValidationPolicy)).
			Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	sweeper.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
		return
	}

	logger.Info().Msg("server stopped")
}

// loadCatalog reads the catalog file. An empty path yields an empty catalog.
func loadCatalog(path string, logger zerolog.Logger) (*factory.Catalog, error) {
	if path == "" {
		logger.Warn().Msg("no catalog configured; starting with an empty catalog")
		return factory.Empty(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	catalog, err := factory.ParseCatalog(string(data))
	if err != nil {
		return nil, err
	}
	logger.Info().
		Int("products", len(catalog.Products())).
		Int("employees", len(catalog.Employees())).
		Msg("catalog loaded")
	return catalog, nil
}
