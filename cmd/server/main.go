package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nickyhof/stressdb"
	"github.com/nickyhof/stressdb/internal/config"
	"github.com/nickyhof/stressdb/internal/logging"
	"github.com/nickyhof/stressdb/internal/metrics"
	"go.uber.org/zap"
)

// Version is set at build time via -ldflags
var Version = "dev"

func main() {
	configPath := flag.String("config", "", "Path to YAML configuration")
	port := flag.Int("port", 0, "TCP port to listen on (overrides config)")
	baseDir := flag.String("baseDir", "", "Base directory for the table store (memory if empty)")
	gitUrl := flag.String("gitUrl", "", "Git URL to clone the table store from")
	metricsAddr := flag.String("metrics", "", "Address to serve Prometheus metrics on, e.g. :9090")
	tlsCert := flag.String("tlsCert", "", "TLS certificate file")
	tlsKey := flag.String("tlsKey", "", "TLS key file")
	logLevel := flag.String("logLevel", "", "Log level (debug, info, warn, error)")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("stressdb lookup server v%s\n", Version)
		return
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *baseDir != "" {
		cfg.Store.BaseDir = *baseDir
	}
	if *gitUrl != "" {
		cfg.Store.GitURL = *gitUrl
	}
	if *metricsAddr != "" {
		cfg.Server.MetricsAddr = *metricsAddr
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logging: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if cfg.Store.BaseDir == "" {
		logger.Info("using memory persistence")
	} else {
		logger.Info("using file persistence", zap.String("baseDir", cfg.Store.BaseDir))
	}

	instance, err := stressdb.Open(cfg, logger)
	if err != nil {
		logger.Fatal("failed to open stressdb", zap.Error(err))
	}

	server := NewServerWithAuth(instance, &cfg.Server.Auth, logger.Named("server"))
	addr := fmt.Sprintf(":%d", cfg.Server.Port)

	if *tlsCert != "" && *tlsKey != "" {
		err = server.StartTLS(addr, *tlsCert, *tlsKey)
	} else {
		err = server.Start(addr)
	}
	if err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}

	var metricsServer *http.Server
	if cfg.Server.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		metricsServer = &http.Server{Addr: cfg.Server.MetricsAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", zap.Error(err))
			}
		}()
		logger.Info("serving metrics", zap.String("addr", cfg.Server.MetricsAddr))
	}

	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Printf("║   stressdb lookup server v%-11s ║\n", Version)
	fmt.Println("║   Allowable stress lookup engine      ║")
	fmt.Println("╚═══════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("Listening on port %d\n", cfg.Server.Port)
	fmt.Println("Send statements (one per line), 'quit' to disconnect")
	fmt.Println()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")
	if metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		metricsServer.Shutdown(ctx)
		cancel()
	}
	server.Stop()
	logger.Info("server stopped")
}
