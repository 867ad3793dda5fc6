package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/neexbeast/tripfinder/internal/amadeus"
	"github.com/neexbeast/tripfinder/internal/api"
	"github.com/neexbeast/tripfinder/internal/breaker"
	"github.com/neexbeast/tripfinder/internal/cache"
	"github.com/neexbeast/tripfinder/internal/config"
	"github.com/neexbeast/tripfinder/internal/destination"
	"github.com/neexbeast/tripfinder/internal/discovery"
	"github.com/neexbeast/tripfinder/internal/geocode"
	"github.com/neexbeast/tripfinder/internal/search"
	"github.com/neexbeast/tripfinder/internal/storage"
	"github.com/neexbeast/tripfinder/internal/weather"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading configuration", "err", err)
		os.Exit(1)
	}

	log := newLogger(cfg.Logging)
	if err := run(cfg, log); err != nil {
		log.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx := context.Background()

	var (
		refRepo   discovery.ReferenceRepository
		apiRepo   api.ReferenceRepo
		dbPinger  api.Pinger
		sharedGeo *cache.RedisStore[destination.LocationRecord]
		redisPing api.Pinger
	)

	// PostgreSQL holds the reference fares used when live discovery is unavailable.
	if cfg.Database.Enabled() {
		pool, err := storage.Connect(ctx, cfg.Database.URL, cfg.Database.MaxConns)
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer pool.Close()

		if err := storage.RunMigrations(ctx, pool, cfg.Database.MigrationsDir); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		log.Info("migrations applied")

		repo := storage.NewRepository(pool)
		if err := repo.UpsertReferenceDestinations(ctx, discovery.ReferenceDestinations()); err != nil {
			return fmt.Errorf("seeding reference destinations: %w", err)
		}
		refRepo, apiRepo = repo, repo
		dbPinger = pool
	} else {
		log.Warn("DATABASE_URL not set; reference fares come from the embedded dataset")
	}

	// Redis is a second geocode tier shared between instances.
	if cfg.Redis.Enabled() {
		store, err := cache.OpenRedisStore[destination.LocationRecord](ctx, cfg.Redis.URL, cfg.Redis.KeyPrefix, cfg.Redis.TTL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer func() { _ = store.Close() }()

		sharedGeo, redisPing = store, store
	}

	cb := breaker.Config{
		MaxRequests:  cfg.Breaker.MaxRequests,
		Interval:     cfg.Breaker.Interval,
		Timeout:      cfg.Breaker.Timeout,
		MinRequests:  cfg.Breaker.MinRequests,
		FailureRatio: cfg.Breaker.FailureRatio,
	}

	// Wire dependencies.
	httpClient := destination.NewHTTPClient(cfg.Amadeus.Timeout)
	tokens := amadeus.NewTokenSource(cfg.Amadeus.BaseURL, cfg.Amadeus.ClientID, cfg.Amadeus.ClientSecret,
		amadeus.WithHTTPClient(httpClient))
	amadeusClient := amadeus.NewClient(cfg.Amadeus.BaseURL, tokens, httpClient, log)
	if !amadeusClient.Configured() {
		log.Warn("amadeus credentials not set; live discovery and geocoding are disabled")
	}

	geoOpts := []geocode.Option{
		geocode.WithStaticLocations(discovery.ReferenceLocations()),
		geocode.WithRequestInterval(cfg.Geocode.RequestInterval),
	}
	if sharedGeo != nil {
		geoOpts = append(geoOpts, geocode.WithSharedStore(sharedGeo))
	}
	resolver := geocode.NewResolver(amadeusClient,
		cache.NewLRU[destination.LocationRecord]("geocode", cache.Options{
			TTL:        cfg.Geocode.CacheTTL,
			MaxEntries: cfg.Geocode.CacheMaxEntries,
		}),
		log, geoOpts...)

	var synthetic *weather.Synthetic
	if cfg.Weather.SyntheticEnabled {
		synthetic = weather.NewSynthetic()
	}
	enricher := weather.NewEnricher(resolver,
		weather.NewClientWithURL(cfg.Weather.BaseURL, cfg.Weather.Timeout),
		cache.NewLRU[destination.ForecastDay]("weather", cache.Options{
			TTL:        cfg.Weather.CacheTTL,
			MaxEntries: cfg.Weather.CacheMaxEntries,
		}),
		synthetic, cb, log)

	var discoveryOpts []discovery.ServiceOption
	if refRepo != nil {
		discoveryOpts = append(discoveryOpts, discovery.WithRepository(refRepo))
	}
	discoverer := discovery.NewService(
		discovery.NewClient(amadeusClient, cfg.Amadeus.Currency, cb, log),
		log, discoveryOpts...)

	orchestrator := search.NewOrchestrator(discoverer, resolver, enricher, search.Config{
		Timeout:        cfg.Search.Timeout,
		MaxConcurrency: cfg.Search.MaxConcurrency,
		NonStop:        cfg.Search.NonStop,
	}, log)

	handlers := api.NewHandlers(orchestrator, apiRepo, map[string]api.StatsReporter{
		"geocode": resolver,
		"weather": enricher,
	}, log)
	router := api.NewRouter(handlers, cfg.Server.BearerToken, cfg.Server.RateLimit, dbPinger, redisPing, log)

	port := strconv.Itoa(cfg.Server.Port)
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Search.Timeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error("server goroutine panicked", "recover", r)
				errCh <- fmt.Errorf("server panicked: %v", r)
			}
		}()
		log.Info("server starting", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("listening: %w", err)
		}
	}()

	select {
	case sig := <-quit:
		log.Info("shutdown signal received", "signal", sig)
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	log.Info("server shut down cleanly")
	return nil
}
