// Command omnifsd runs the OmniFS server daemon.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fileverse/omnifs/internal/logger"
	"github.com/fileverse/omnifs/internal/server"
	"github.com/fileverse/omnifs/internal/session"
	"github.com/fileverse/omnifs/pkg/config"
	"github.com/fileverse/omnifs/pkg/metrics"
	"github.com/fileverse/omnifs/pkg/protocol"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: "+config.GetDefaultConfigPath()+")")
	logLevel := flag.String("log-level", "", "Override the configured log level (DEBUG, INFO, WARN, ERROR)")
	initConfig := flag.Bool("init-config", false, "Write a default config file and exit")
	flag.Parse()

	if *initConfig {
		path := *configPath
		if path == "" {
			path = config.GetDefaultConfigPath()
		}
		if err := config.WriteDefaultConfig(path); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote default config to %s\n", path)
		fmt.Println("Set store.admin.password before starting the server.")
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Configure(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to configure logging: %v\n", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		logger.SetLevel(*logLevel)
	}

	framing, err := protocol.ParseFramingMode(cfg.Server.Framing)
	if err != nil {
		logger.Error("Invalid framing mode: %v", err)
		os.Exit(1)
	}

	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		go serveMetrics(cfg.Metrics.Listen)
	}

	st, err := config.CreateStore(cfg.Store)
	if err != nil {
		logger.Error("Failed to create store: %v", err)
		os.Exit(1)
	}
	defer st.Close()
	logger.Info("Store ready (type: %s)", cfg.Store.Type)

	sessions := session.NewManager(st, cfg.Sessions.IdleTimeout)
	defer sessions.Close()

	srv := server.New(server.Config{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		Framing:        framing,
		MaxMessageSize: cfg.Server.MaxMessageSize,
		MaxConnections: cfg.Server.MaxConnections,
		IdleTimeout:    cfg.Server.IdleTimeout,
		RequestRate:    cfg.Server.RequestRate,
		RequestBurst:   cfg.Server.RequestBurst,
	}, st, sessions)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.Serve(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info("Shutdown signal received, initiating graceful shutdown...")
		cancel()

		select {
		case err := <-serverDone:
			if err != nil {
				logger.Error("Server shutdown error: %v", err)
				os.Exit(1)
			}
			logger.Info("Server stopped gracefully")
		case <-time.After(cfg.Server.ShutdownTimeout):
			logger.Error("Graceful shutdown timed out after %v", cfg.Server.ShutdownTimeout)
			os.Exit(1)
		}

	case err := <-serverDone:
		// Serve returns on its own when a client issues shutdown_system.
		if err != nil {
			logger.Error("Server error: %v", err)
			os.Exit(1)
		}
		logger.Info("Server stopped")
	}
}

// serveMetrics exposes the Prometheus endpoint. Failures here are logged but
// never take the server down.
func serveMetrics(listen string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	logger.Info("Metrics endpoint listening on %s", listen)
	if err := http.ListenAndServe(listen, mux); err != nil {
		logger.Error("Metrics endpoint failed: %v", err)
	}
}
