// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"place-discovery/internal/cache"
	"place-discovery/internal/common/camunda"
	"place-discovery/internal/common/config"
	"place-discovery/internal/common/database"
	"place-discovery/internal/common/logger"
	"place-discovery/internal/common/observability"
	"place-discovery/internal/discovery"
	"place-discovery/internal/scoring"
	"place-discovery/internal/transport"
	"place-discovery/internal/transport/esindex"
	"place-discovery/internal/transport/googleplaces"
	dp "place-discovery/internal/workers/discovery/discover-places"
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
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

// readinessCheck reports whether a dependency can serve traffic.
type readinessCheck func(ctx context.Context) error

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("info", "console", "stdout")
		bootLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...",
		zap.String("provider", cfg.Provider.Name),
		zap.String("cacheBackend", cfg.Cache.Backend),
		zap.String("weightsSource", cfg.Weights.Source),
	)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	traceOpts, err := observability.Tracing(ctx, cfg.Tracing)
	if err != nil {
		zapLog.Fatal("tracing setup failed", zap.Error(err))
	}
	if cfg.Tracing.Enabled {
		zapLog.Info("Tracing enabled",
			zap.String("exporter", cfg.Tracing.Exporter),
			zap.String("endpoint", cfg.Tracing.Endpoint),
			zap.Float64("samplingRate", cfg.Tracing.SamplingRate),
		)
	}
	obs := observability.New(cfg.App.Name, nil, log, traceOpts...)
	defer obs.Shutdown()

	checks := map[string]readinessCheck{}

	// --- Scoring weights ---
	weights, err := loadWeights(ctx, cfg, zapLog)
	if err != nil {
		zapLog.Fatal("weights load failed", zap.Error(err))
	}
	zapLog.Info("Scoring weights loaded",
		zap.String("hotel", weights.Hotel.Version()),
		zap.String("restaurant", weights.Restaurant.Version()),
	)

	// --- Upstream provider ---
	var provider transport.Transport
	switch cfg.Provider.Name {
	case config.ProviderElasticsearch:
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch, nil)
			if err != nil {
				return err
			}
			return esClient.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		zapLog.Info("Elasticsearch connected successfully")
		checks["elasticsearch"] = esClient.Ping
		provider = esindex.New(esClient.Client, cfg.Provider.Index, cfg.Provider.RadiusMeters, cfg.Provider.MaxResults, log)
	default:
		gp := googleplaces.New(googleplaces.ConfigFrom(cfg.Provider), log, nil)
		if err := gp.CheckCredentials(); err != nil {
			// Requests fail with MISCONFIGURED until a key is supplied.
			zapLog.Warn("Google Places API key not configured", zap.Error(err))
		}
		provider = gp
	}

	// --- Result cache ---
	var store cache.Store
	switch cfg.Cache.Backend {
	case config.CacheBackendRedis:
		var rc *database.RedisClient
		err = retryWithBackoff(func() error {
			var err error
			rc, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return rc.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer rc.Close()
		zapLog.Info("Redis connected successfully")
		checks["redis"] = rc.Ping
		store = cache.NewRedisStore(rc.Client, cfg.Cache.TTL, log)
	default:
		mem := cache.NewMemoryStore(cfg.Cache.TTL, log, cache.WithMaxEntries(cfg.Cache.MaxEntries))
		go mem.Run(ctx, cfg.Cache.SweepInterval)
		store = mem
	}

	svc := discovery.New(provider, store, weights, log,
		discovery.WithMaxResults(cfg.Discovery.MaxResults),
		discovery.WithPrecision(cfg.Cache.Precision),
		discovery.WithRadius(cfg.Provider.RadiusMeters),
		discovery.WithCoalescing(cfg.Discovery.CoalesceMisses),
		discovery.WithObservability(obs),
	)

	// --- Zeebe ---
	zeebe, err := camunda.Connect(ctx, camunda.ConfigFrom(cfg.Camunda), log)
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")
	checks["zeebe"] = zeebe.HealthCheck

	if wcfg := config.GetWorkerConfig(cfg, dp.TaskType); config.IsWorkerEnabled(cfg, dp.TaskType) {
		handler := dp.NewHandler(dp.LoadConfig(wcfg), svc, obs, log)
		zeebe.StartWorker(dp.TaskType, wcfg, handler.Handle)
	}

	// --- Health & Metrics Server ---
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.HealthPort),
		Handler:           healthMux(checks),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping health server", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

func loadWeights(ctx context.Context, cfg *config.Config, zapLog *zap.Logger) (scoring.WeightSet, error) {
	if cfg.Weights.Source != config.WeightsSourcePostgres {
		return scoring.LoadFile(cfg.Weights.Path)
	}

	var pg *database.PostgresClient
	err := retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		return scoring.WeightSet{}, err
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	return scoring.LoadFromDB(ctx, pg, cfg.Weights.Version)
}

func healthMux(checks map[string]readinessCheck) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, map[string]interface{}{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		status, code := "ready", http.StatusOK
		failures := map[string]string{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				failures[name] = err.Error()
			}
		}
		if len(failures) > 0 {
			status, code = "not ready", http.StatusServiceUnavailable
		}
		writeStatus(w, code, map[string]interface{}{
			"status":   status,
			"failures": failures,
			"time":     time.Now().Format(time.RFC3339),
		})
	})
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func writeStatus(w http.ResponseWriter, code int, body map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
