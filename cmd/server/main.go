/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the payroll engine HTTP server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags and load config (file + environment)
  2. Build the structured logger for the configured env
  3. Open the SQLite store (state blob + backup history)
  4. Load/migrate the saved state into the service
  5. Configure HTTP router and start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  YAML config path (default: $CONFIG_PATH, else env only)
  -port    HTTP server port, overrides http_server.address
  -db      SQLite database path, overrides storage.path
           Use ":memory:" for in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with defaults (./payroll.db, :8080)
  ./server

  # Run with a config file
  ./server -config=./config/local.yaml

  # Run in memory on a different port
  ./server -db=":memory:" -port=3000

SEE ALSO:
  - config/config.go: Config fields and environment variables
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/api"
	"github.com/warp/payroll-engine/config"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/logging"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/service"
	"github.com/warp/payroll-engine/store/sqlite"
)

func main() {
	// Flags
	configPath := flag.String("config", "", "YAML config path")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	flag.Parse()

	cfg := config.MustLoad(*configPath)
	if *port != 0 {
		cfg.Address = fmt.Sprintf(":%d", *port)
	}
	if *dbPath != "" {
		cfg.Path = *dbPath
	}

	log := logging.New(cfg.Env)
	log.Info("starting payroll engine", slog.String("env", cfg.Env), slog.String("db", cfg.Path))

	// Initialize store
	store, err := sqlite.New(cfg.Path)
	if err != nil {
		log.Error("failed to initialize database", logging.Err(err))
		os.Exit(1)
	}
	defer store.Close()

	defaults, err := defaultSettings(cfg.Defaults)
	if err != nil {
		log.Error("invalid default settings", logging.Err(err))
		os.Exit(1)
	}

	svc, err := service.New(context.Background(), store,
		service.WithLogger(log),
		service.WithBackups(store),
		service.WithDefaults(defaults),
	)
	if err != nil {
		log.Error("failed to load state", logging.Err(err))
		os.Exit(1)
	}

	router := api.NewRouter(api.NewHandler(svc, log), api.RouterOptions{
		AllowedOrigins: cfg.AllowedOrigins,
		RateLimitRPS:   cfg.RPS,
		RateLimitBurst: cfg.Burst,
	})

	server := &http.Server{
		Addr:         cfg.Address,
		Handler:      router,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", slog.String("address", cfg.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", logging.Err(err))
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", logging.Err(err))
	}

	log.Info("server stopped")
}

// defaultSettings turns the config defaults into fresh-install settings.
func defaultSettings(d config.Defaults) (payroll.Settings, error) {
	freq, err := generic.ParsePayFrequency(d.PayFrequency)
	if err != nil {
		return payroll.Settings{}, err
	}
	settings := payroll.DefaultSettings()
	settings.Currency = d.Currency
	settings.PayFrequency = freq
	settings.TaxRate = decimal.NewFromFloat(d.TaxRate)
	return settings, settings.Validate()
}
