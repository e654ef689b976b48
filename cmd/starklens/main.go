package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/starklens/starklens/api"
	"github.com/starklens/starklens/index"
	"github.com/starklens/starklens/internal/config"
	"github.com/starklens/starklens/internal/logger"
	"github.com/starklens/starklens/storage"
)

var (
	// Version information (injected at build time)
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

func main() {
	var (
		configFile  = flag.String("config", "", "Path to configuration file (YAML)")
		showVersion = flag.Bool("version", false, "Show version information and exit")
		storePath   = flag.String("store", "", "Primary store directory")
		indexPath   = flag.String("index", "", "Secondary index database file")
		noSync      = flag.Bool("no-sync", false, "Disable the background index syncer")
		logLevel    = flag.String("log-level", "", "Log level (debug, info, warn, error)")
		logFormat   = flag.String("log-format", "", "Log format (json, console)")

		apiHost = flag.String("api-host", "", "API server host")
		apiPort = flag.Int("api-port", 0, "API server port")
	)

	flag.Parse()

	if *showVersion {
		fmt.Printf("starklens version %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", buildTime)
		os.Exit(0)
	}

	cfg, err := loadConfig(*configFile, *storePath, *indexPath, *noSync, *logLevel, *logFormat, *apiHost, *apiPort)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := initLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting starklens",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("build_time", buildTime),
		zap.String("store_path", cfg.Store.Path),
		zap.String("index_path", cfg.Index.Path),
	)

	detection := storage.DetectStoreVersion(cfg.Store.Path)
	switch {
	case detection.Error != "":
		log.Warn("Store version detection failed", zap.String("error", detection.Error))
	case detection.Version == nil:
		log.Warn("No store version file found; proceeding without version check")
	case !*detection.Supported:
		log.Warn("Store version is not supported; reads may fail to decode",
			zap.Uint32("version", *detection.Version),
			zap.Uint32s("supported", detection.SupportedVersions),
		)
	default:
		log.Info("Store version detected", zap.Uint32("version", *detection.Version))
	}

	store, err := storage.Open(&storage.Config{
		Path:         cfg.Store.Path,
		Cache:        cfg.Store.Cache,
		MaxOpenFiles: cfg.Store.MaxOpenFiles,
	})
	if err != nil {
		log.Fatal("Failed to open store", zap.Error(err))
	}
	store.SetLogger(logger.WithComponent(log, "storage"))
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("Failed to close store", zap.Error(err))
		}
	}()

	if tip, err := store.TipNumber(); err == nil {
		log.Info("Store opened", zap.Uint64("tip", tip))
	} else if errors.Is(err, storage.ErrNotFound) {
		log.Info("Store opened (no blocks yet)")
	} else {
		log.Warn("Failed to read store tip", zap.Error(err))
	}

	idx, err := index.Open(cfg.Index.Path)
	if err != nil {
		log.Fatal("Failed to open index", zap.Error(err))
	}
	idx.SetLogger(logger.WithComponent(log, "index"))
	defer func() {
		if err := idx.Close(); err != nil {
			log.Error("Failed to close index", zap.Error(err))
		}
	}()

	syncer := index.NewSyncer(idx, store,
		index.WithInterval(cfg.Index.SyncInterval),
		index.WithLogger(logger.WithComponent(log, "syncer")),
		index.WithMetrics(index.NewMetrics("starklens")),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	if cfg.Index.AutoSync {
		go func() {
			if err := syncer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("Syncer stopped with error", zap.Error(err))
			}
		}()
	} else {
		log.Info("Background syncer disabled; use POST /api/index/sync to sync")
	}

	apiConfig := api.DefaultConfig()
	apiConfig.Host = cfg.API.Host
	apiConfig.Port = cfg.API.Port
	apiConfig.EnableCORS = cfg.API.EnableCORS
	apiConfig.AllowedOrigins = cfg.API.AllowedOrigins
	apiConfig.EnableRateLimit = cfg.API.EnableRateLimit
	apiConfig.RateLimitPerSecond = cfg.API.RateLimitPerSecond
	apiConfig.RateLimitBurst = cfg.API.RateLimitBurst

	apiServer, err := api.NewServer(apiConfig, logger.WithComponent(log, "api"), store, idx, syncer)
	if err != nil {
		log.Fatal("Failed to create API server", zap.Error(err))
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- apiServer.Start()
	}()

	log.Info("API server started", zap.String("address", apiConfig.Address()))

	select {
	case sig := <-sigChan:
		log.Info("Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	case err := <-errChan:
		if err != nil {
			log.Error("API server stopped with error", zap.Error(err))
		}
		cancel()
	}

	log.Info("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := apiServer.Stop(shutdownCtx); err != nil {
		log.Error("Failed to stop API server gracefully", zap.Error(err))
	}

	if state, err := syncer.Status(); err == nil {
		log.Info("Final index state",
			zap.Int64("watermark", state.Watermark),
			zap.Uint64("latest_block", state.LatestBlock),
			zap.Bool("synced", state.Synced),
		)
	}

	log.Info("starklens stopped")
}

// loadConfig loads configuration from file and environment variables, then
// applies command-line flag overrides.
func loadConfig(configFile, storePath, indexPath string, noSync bool, logLevel, logFormat, apiHost string, apiPort int) (*config.Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	cfg := config.NewConfig()
	cfg.Index.AutoSync = true

	if configFile != "" {
		if err := cfg.LoadFromFile(configFile); err != nil {
			return nil, err
		}
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}

	if storePath != "" {
		cfg.Store.Path = storePath
	}
	if indexPath != "" {
		cfg.Index.Path = indexPath
	}
	if noSync {
		cfg.Index.AutoSync = false
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	if apiHost != "" {
		cfg.API.Host = apiHost
	}
	if apiPort > 0 {
		cfg.API.Port = apiPort
	}

	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadDotEnv loads environment variables from a .env file if it exists.
func loadDotEnv() error {
	info, err := os.Stat(".env")
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to stat .env: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf(".env exists but is a directory")
	}
	if err := godotenv.Load(".env"); err != nil {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

// initLogger initializes the logger based on configuration
func initLogger(level, format string) (*zap.Logger, error) {
	if format == "json" {
		cfg := logger.Config{Level: level, Encoding: "json"}
		return logger.NewWithConfig(&cfg)
	}

	cfg := logger.Config{
		Level:       level,
		Encoding:    "console",
		Development: true,
	}
	return logger.NewWithConfig(&cfg)
}
