// cmd/router-server/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"banking-router/internal/common/config"
	"banking-router/internal/common/database"
	"banking-router/internal/common/logger"
	"banking-router/internal/common/observability"
	"banking-router/internal/generator"
	"banking-router/internal/router/dispatcher"
	"banking-router/internal/router/evidence"
	"banking-router/internal/router/extract"
	"banking-router/internal/router/gate"
	"banking-router/internal/router/validate"
	"banking-router/internal/search"
	"banking-router/internal/server"
	"banking-router/internal/store"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting router server...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New("router-server")
	defer obs.Shutdown()

	tracing, err := observability.NewTracing("router-server", cfg.Tracing.CollectorEndpoint)
	if err != nil {
		zapLog.Fatal("tracing init failed", zap.Error(err))
	}
	defer tracing.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pgClient *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pgClient, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pgClient.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "PostgreSQL initialization")
	if err != nil {
		zapLog.Fatal("PostgreSQL unavailable", zap.Error(err))
	}
	defer pgClient.Close()

	// --- Init Elasticsearch with retry ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return esClient.Ping()
	}, 10, 2*time.Second, zapLog, "Elasticsearch initialization")
	if err != nil {
		zapLog.Fatal("Elasticsearch unavailable", zap.Error(err))
	}

	catalog := store.New(pgClient.GetDB(), log)
	faqIndex := search.NewFAQIndex(esClient.Client, cfg.Database.Elasticsearch.FAQIndex, log)

	gen := generator.New(generator.Options{
		APIKey:          cfg.APIs.OpenAI.APIKey,
		BaseURL:         cfg.APIs.OpenAI.BaseURL,
		Model:           cfg.APIs.OpenAI.Model,
		ClassifierModel: cfg.APIs.OpenAI.ClassifierModel,
		Timeout:         config.GetDuration(cfg.APIs.OpenAI.Timeout),
		MaxRetries:      3,
	}, log)

	gateCache, closeGateCache, err := buildGateCache(cfg, log)
	if err != nil {
		zapLog.Fatal("gate cache init failed", zap.Error(err))
	}
	defer closeGateCache()

	vocab := extract.NewVocabularyCache(
		catalog,
		config.GetDuration(cfg.Router.VocabularyTTL),
		nil, nil, log,
	)

	d := dispatcher.New(dispatcher.Options{
		Vocabulary: vocab,
		Catalog:    catalog,
		Gatherer:   evidence.NewGatherer(catalog, faqIndex, config.GetDuration(cfg.Router.ProbeTimeout), log),
		Gate:       gate.New(gen, gateCache, log),
		Generator:  gen,
		Thresholds: validate.Thresholds{
			FAQStrong:   cfg.Router.FAQStrongThreshold,
			FAQWeak:     cfg.Router.FAQWeakThreshold,
			FAQOverride: cfg.Router.FAQOverrideThreshold,
			ScopeStrong: cfg.Router.ScopeStrongThreshold,
		},
		HistoryLimit:  cfg.Router.HistoryLimit,
		Tracing:       tracing,
		Observability: obs,
		Logger:        log,
	})

	srv, err := server.New(cfg.Server, d, log)
	if err != nil {
		zapLog.Fatal("server init failed", zap.Error(err))
	}

	go func() {
		if err := srv.Start(); err != nil {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	zapLog.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("shutdown failed", zap.Error(err))
	}
	zapLog.Info("Shutdown complete")
}

// buildGateCache selects the verdict cache backend. The in-process LRU is
// the default; the Redis backend shares verdicts across instances.
func buildGateCache(cfg *config.Config, log logger.Logger) (gate.Cache, func(), error) {
	switch cfg.Router.GateCacheBackend {
	case "redis":
		redisClient, err := database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return nil, nil, err
		}
		cache := gate.NewRedisCache(
			redisClient.GetClient(),
			config.GetDuration(cfg.Router.GateCacheTTL),
			log,
		)
		return cache, func() { redisClient.Close() }, nil
	default:
		return gate.NewLRUCache(
			cfg.Router.GateCacheSize,
			config.GetDuration(cfg.Router.GateCacheTTL),
		), func() {}, nil
	}
}
