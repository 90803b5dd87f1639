package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"aasx-facility-backend/config"
	"aasx-facility-backend/internal/api"
	"aasx-facility-backend/internal/converter"
	"aasx-facility-backend/internal/db"
	"aasx-facility-backend/internal/gateway"
	"aasx-facility-backend/internal/store"
	"aasx-facility-backend/internal/syncer"
)

func main() {
	// Setup logger
	logger := log.New(os.Stdout, "facilityd ", log.LstdFlags)

	var configPath string
	var cfg *config.Config

	rootCmd := &cobra.Command{
		Use:   "facilityd",
		Short: "Equipment hierarchy service: synchronization, cascading deletes and console API",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				configPath = os.Getenv("CONFIG_PATH")
			}
			if configPath == "" {
				configPath = "./config/config.yaml" // Default path for local development
			}

			loaded, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("failed to load configuration from %s: %w", configPath, err)
			}
			if err := config.ApplyEnv(loaded); err != nil {
				return err
			}
			cfg = loaded
			logger.Printf("configuration loaded successfully from %s", configPath)
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration (default $CONFIG_PATH or ./config/config.yaml)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API with scheduled synchronization and gateway monitoring",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(logger, cfg)
		},
	}

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one full synchronization and print its report",
		RunE: func(cmd *cobra.Command, args []string) error {
			gormDB, err := db.Init(&cfg.Database)
			if err != nil {
				return fmt.Errorf("failed to initialize database: %w", err)
			}
			svc := syncer.NewService(&cfg.Sync, store.NewGormStore(gormDB))
			report, err := svc.RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}

	rootCmd.AddCommand(serveCmd, syncCmd)

	if err := rootCmd.Execute(); err != nil {
		logger.Fatal(err)
	}
}

func serve(logger *log.Logger, cfg *config.Config) error {
	// Initialize database
	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	logger.Println("database initialized successfully")

	// Create a context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)
	logger.Println("data store initialized")

	syncSvc := syncer.NewService(&cfg.Sync, appStore)
	go func() {
		if err := syncSvc.Run(ctx); err != nil {
			logger.Printf("synchronization service stopped: %v", err)
		}
	}()

	monitor := gateway.NewMonitor(&cfg.Gateway, appStore)
	monitor.Start(ctx)
	go func() {
		if err := monitor.Run(ctx); err != nil {
			logger.Printf("gateway monitor stopped: %v", err)
		}
	}()

	handler := api.NewHandler(appStore, syncSvc, monitor, converter.NewClient(&cfg.Converter))
	router := api.NewRouter(&cfg.Server, handler)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start the server in a goroutine
	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// Block until a signal is received.
	<-stop
	logger.Println("Shutdown signal received, stopping services...")
	cancel()

	// Create a deadline to wait for.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server Shutdown: %w", err)
	}

	logger.Println("Server gracefully stopped")
	return nil
}
