// Package main provides the API server entry point for the Tezos activity
// reporter service.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/tezos-reporter/internal/api"
	"github.com/tezos-reporter/internal/config"
	"github.com/tezos-reporter/internal/indexer"
	"github.com/tezos-reporter/internal/logging"
	"github.com/tezos-reporter/internal/report"
	"github.com/tezos-reporter/internal/storage"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logging.InitGlobalLogger(
		logging.ParseLogLevel(cfg.Logging.Level),
		logging.ParseLogFormat(cfg.Logging.Format),
	)
	logger := logging.GetGlobalLogger()
	logger.WithFields(map[string]interface{}{
		"level":  cfg.Logging.Level,
		"format": cfg.Logging.Format,
	}).Info("Structured logging initialized")

	// The export cache is optional: without Redis downloads refetch instead
	var cache report.RawCache
	var redisCache *storage.RedisCache
	if cfg.Redis.Enabled {
		redisCache, err = storage.NewRedisCache(&cfg.Redis)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to Redis")
		}
		defer redisCache.Close()
		cache = storage.NewReportCache(redisCache, cfg.Report.CacheTTL)
		logger.Info("Export cache enabled")
	} else {
		logger.Info("Export cache disabled - downloads refetch from the indexer")
	}

	tzkt := indexer.NewClient(&cfg.Indexer)
	engine := report.NewEngine(tzkt, cache, &cfg.Report)

	server := api.NewServer(&api.ServerConfig{
		Host:              cfg.Server.Host,
		Port:              cfg.Server.Port,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ShutdownTimeout:   cfg.Server.ShutdownTimeout,
		RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
		Burst:             cfg.RateLimit.Burst,
	}, engine)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		logger.WithError(err).Fatal("Server stopped unexpectedly")
	case sig := <-stop:
		logger.WithField("signal", sig.String()).Info("Shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Graceful shutdown failed")
	}
}
