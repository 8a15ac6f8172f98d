// deckgen generates brand-styled slide decks: scrape a company website,
// analyze the brand, generate slide content, render a .pptx.
//
// @title deckgen API
// @version 1.0
// @description Branded slide deck generation service
// @BasePath /
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"deckgen/internal/config"
	"deckgen/internal/llm"
	"deckgen/internal/metrics"
	"deckgen/internal/pipeline"
	"deckgen/internal/queue"
	"deckgen/internal/scheduler"
	"deckgen/internal/service"
	"deckgen/internal/stages"
	"deckgen/internal/store"
	"deckgen/internal/store/memory"
	"deckgen/internal/store/postgres"
	httptransport "deckgen/internal/transport/http"
)

func main() {
	if err := run(); err != nil {
		slog.Error("deckgen exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	sink := metrics.NewPrometheusSink(registry)

	var (
		jobStore store.Store
		jobQueue queue.Queue
	)
	if cfg.IsDev {
		logger.Info("dev mode: using in-memory store and queue")
		jobStore = memory.NewJobStore()
		jobQueue = queue.NewMemoryQueue(cfg.Worker.QueueBound)
	} else {
		pgPool, err := postgres.NewPool(ctx, cfg.Postgres.URL)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		defer pgPool.Close()
		if err := postgres.EnsureSchema(ctx, pgPool); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		jobStore = postgres.NewJobStore(pgPool)

		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer rdb.Close()
		jobQueue = queue.NewRedisQueue(rdb, cfg.Redis.QueueKey, cfg.Redis.ProcessingKey, int64(cfg.Worker.QueueBound))

		logger.Info("connected to backing services",
			"postgres", redactDSN(cfg.Postgres.URL),
			"redis", cfg.Redis.Addr)
	}

	adapters, err := buildAdapters(cfg, logger)
	if err != nil {
		return err
	}

	executor := pipeline.NewExecutor(jobStore, adapters, pipeline.RetryConfig{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseBackoff: cfg.Retry.BaseBackoff,
		MaxBackoff:  cfg.Retry.MaxBackoff,
	}, logger, sink)
	pool := scheduler.NewPool(jobQueue, executor, cfg.Worker.Concurrency, cfg.Worker.ClaimTimeout, logger, sink)

	if err := pool.Recover(ctx); err != nil {
		return fmt.Errorf("recover stale jobs: %w", err)
	}

	jobSvc := service.NewJobService(jobStore, jobQueue, cfg.Worker.QueueBound, sink, logger)
	handler := httptransport.NewHandler(jobSvc)

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      httptransport.Routes(handler, logger, registry),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("http server listening", "addr", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		pool.Run(ctx)
		return nil
	})

	g.Go(func() error {
		pool.RunDepthGauge(ctx, cfg.Worker.DepthGaugeInterval)
		return nil
	})

	err = g.Wait()
	logger.Info("deckgen stopped")
	return err
}

func buildAdapters(cfg *config.Config, logger *slog.Logger) (pipeline.Adapters, error) {
	llmClient, err := llm.New(llm.Config{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
	}, logger)
	if err != nil {
		return pipeline.Adapters{}, fmt.Errorf("llm client: %w", err)
	}

	return pipeline.Adapters{
		Scraper: stages.NewHTTPScraper(stages.ScraperConfig{
			MaxPages: cfg.Scraper.MaxPages,
			Timeout:  cfg.Scraper.Timeout,
		}, logger),
		Analyzer:  stages.NewLLMBrandAnalyzer(llmClient, logger),
		Generator: stages.NewLLMContentGenerator(llmClient, logger),
		Renderer:  stages.NewPPTXRenderer(),
	}, nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

// redactDSN masks the password in a postgres URL for logging.
func redactDSN(dsn string) string {
	re := regexp.MustCompile(`://([^:/?#]+):([^@/]+)@`)
	return re.ReplaceAllString(dsn, `://$1:****@`)
}
