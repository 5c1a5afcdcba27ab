// Package main provides the portfolio tracker API server entry point.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/portfolio-tracker/internal/api"
	"github.com/portfolio-tracker/internal/auth"
	"github.com/portfolio-tracker/internal/config"
	"github.com/portfolio-tracker/internal/logging"
	"github.com/portfolio-tracker/internal/quote"
	"github.com/portfolio-tracker/internal/service"
	"github.com/portfolio-tracker/internal/storage"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logging.New(logging.LevelError, logging.FormatText).WithError(err).Fatal("failed to load configuration")
	}

	logging.InitGlobal(logging.ParseLevel(cfg.Logging.Level), logging.ParseFormat(cfg.Logging.Format))
	logger := logging.Global()

	logger.WithFields(map[string]interface{}{
		"level":  cfg.Logging.Level,
		"format": cfg.Logging.Format,
	}).Info("portfolio tracker starting")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Mongo.Timeout)
	db, err := storage.NewMongoDB(ctx, &cfg.Mongo)
	cancel()
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to document store")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.Close(shutdownCtx); err != nil {
			logger.WithError(err).Warn("error closing document store")
		}
	}()

	indexCtx, cancel := context.WithTimeout(context.Background(), cfg.Mongo.Timeout)
	err = db.EnsureIndexes(indexCtx)
	cancel()
	if err != nil {
		logger.WithError(err).Fatal("failed to ensure indexes")
	}

	userRepo := storage.NewUserRepository(db)
	holdingRepo := storage.NewHoldingRepository(db)

	authService := auth.NewService(userRepo, auth.Config{
		Secret:     cfg.Auth.JWTSecret,
		TokenTTL:   cfg.Auth.TokenTTL,
		BcryptCost: cfg.Auth.BcryptCost,
	}, logger)

	finnhub := quote.NewFinnhubClient(quote.FinnhubConfig{
		BaseURL: cfg.Providers.FinnhubURL,
		APIKey:  cfg.Providers.FinnhubKey,
		Timeout: cfg.Providers.Timeout,
	})
	alphaVantage := quote.NewAlphaVantageClient(quote.AlphaVantageConfig{
		BaseURL: cfg.Providers.AlphaVantageURL,
		APIKey:  cfg.Providers.AlphaVantageKey,
		Timeout: cfg.Providers.Timeout,
	})
	chain := quote.NewFallbackChain(logger, finnhub, alphaVantage)

	// Price series are cached in Redis when configured, else in memory.
	var seriesCache quote.SeriesCache
	if cfg.Redis.Enabled {
		redisCache, err := storage.NewRedisCache(&cfg.Redis)
		if err != nil {
			logger.WithError(err).Fatal("failed to connect to redis")
		}
		defer redisCache.Close()
		seriesCache = quote.NewRedisSeriesCache(redisCache, cfg.Cache.TTL)
		logger.Info("using redis price-series cache")
	} else {
		seriesCache = quote.NewMemorySeriesCache(cfg.Cache.TTL, time.Now)
		logger.Info("using in-memory price-series cache")
	}

	chartService := quote.NewChartService(seriesCache, chain, logger, time.Now)
	portfolioService := service.NewPortfolioService(holdingRepo, chain, logger)

	server := api.NewServer(&api.ServerConfig{
		Host:              cfg.Server.Host,
		Port:              cfg.Server.Port,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		AllowedOrigins:    cfg.CORS.AllowedOrigins,
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:             cfg.RateLimit.Burst,
	}, authService, portfolioService, chartService, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			logger.WithError(err).Fatal("server error")
		}
	case sig := <-sigCh:
		logger.WithField("signal", sig.String()).Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("graceful shutdown failed")
	}

	logger.Info("portfolio tracker stopped")
}
