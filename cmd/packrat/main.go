package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/marmos91/packrat/internal/logger"
	"github.com/marmos91/packrat/pkg/adapter/backup"
	"github.com/marmos91/packrat/pkg/config"
	"github.com/marmos91/packrat/pkg/metrics"
	"github.com/marmos91/packrat/pkg/metrics/prometheus"
	"github.com/marmos91/packrat/pkg/server"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: $XDG_CONFIG_HOME/packrat/config.yaml)")
	writeConfig := flag.String("write-config", "", "Write a default config file to the given path and exit")
	flag.Parse()

	if *writeConfig != "" {
		if err := config.WriteDefault(*writeConfig); err != nil {
			log.Fatalf("Failed to write config: %v", err)
		}
		fmt.Printf("Default configuration written to %s\n", *writeConfig)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger.SetLevel(cfg.Logging.Level)
	if err := logger.SetOutput(cfg.Logging.Output); err != nil {
		log.Fatalf("Failed to configure log output: %v", err)
	}

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fmt.Println("Packrat - Stateless Backup Server")
	logger.Info("Log level set to: %s", cfg.Logging.Level)
	logger.Info("Storage backend: %s", cfg.Storage.Type)

	backupMetrics := metrics.NewNoopBackupMetrics()
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		backupMetrics = prometheus.NewBackupMetrics()

		metricsServer := metrics.NewServer(metrics.ServerConfig{Port: cfg.Metrics.Port})
		go func() {
			if err := metricsServer.Serve(ctx); err != nil {
				logger.Error("Metrics server error: %v", err)
			}
		}()
		logger.Info("Metrics endpoint enabled on port %d", cfg.Metrics.Port)
	}

	st, err := config.CreateStore(ctx, &cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to create store: %v", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("Failed to close store: %v", err)
		}
	}()

	logger.Info("Server configuration:")
	logger.Info("  Backup port: %d", cfg.Adapters.Backup.Port)
	if cfg.Adapters.Backup.MaxConnections > 0 {
		logger.Info("  Max connections: %d", cfg.Adapters.Backup.MaxConnections)
	} else {
		logger.Info("  Max connections: unlimited")
	}
	logger.Info("  Shutdown timeout: %v", cfg.Server.ShutdownTimeout)

	srv := server.New(st)
	if err := srv.AddAdapter(backup.New(cfg.Adapters.Backup, backupMetrics)); err != nil {
		log.Fatalf("Failed to register backup adapter: %v", err)
	}

	// Start server in background
	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.Serve(ctx)
	}()

	// Wait for interrupt signal or server error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Server is running on port %d. Press Ctrl+C to stop.", cfg.Adapters.Backup.Port)

	select {
	case <-sigChan:
		logger.Info("Shutdown signal received, initiating graceful shutdown...")
		cancel()

		if err := <-serverDone; err != nil {
			logger.Error("Server shutdown error: %v", err)
			os.Exit(1)
		}
		logger.Info("Server stopped gracefully")

	case err := <-serverDone:
		if err != nil {
			logger.Error("Server error: %v", err)
			os.Exit(1)
		}
		logger.Info("Server stopped")
	}
}
