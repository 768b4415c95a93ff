package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	_ "modernc.org/sqlite"

	"github.com/hireloop/candex/internal/audit"
	"github.com/hireloop/candex/internal/breaker"
	"github.com/hireloop/candex/internal/config"
	dbRedis "github.com/hireloop/candex/internal/db/redis"
	logpkg "github.com/hireloop/candex/internal/logger"
	"github.com/hireloop/candex/internal/metrics"
	cacherepo "github.com/hireloop/candex/internal/repository/cache"
	candrepo "github.com/hireloop/candex/internal/repository/candidate"
	"github.com/hireloop/candex/internal/repository/vecindex"
	chiTransport "github.com/hireloop/candex/internal/transport/chi"
	openaiClient "github.com/hireloop/candex/internal/transport/openai"
	healthuc "github.com/hireloop/candex/internal/usecase/health"
	searchuc "github.com/hireloop/candex/internal/usecase/search"
	"github.com/hireloop/candex/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting candex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("cache_addrs", cfg.Cache.Addrs),
		zap.Strings("index_addrs", cfg.VectorIndex.Addrs),
	)

	ctx := context.Background()

	// Response cache store
	cacheStore, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Cache.Addrs,
		Password: cfg.Cache.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create cache store", zap.Error(err))
	}
	defer cacheStore.Close()

	if err := cacheStore.WaitForReady(ctx, time.Duration(cfg.Cache.ReadinessTimeoutSec)*time.Second); err != nil {
		logger.Fatal("Cache store not ready", zap.Error(err))
	}

	// Vector index store (separate connection so a slow FT.SEARCH cannot
	// starve cache traffic)
	indexStore, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.VectorIndex.Addrs,
		Password: cfg.VectorIndex.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create vector index store", zap.Error(err))
	}
	defer indexStore.Close()

	if err := indexStore.WaitForReady(ctx, time.Duration(cfg.VectorIndex.ReadinessTimeoutSec)*time.Second); err != nil {
		logger.Fatal("Vector index not ready", zap.Error(err))
	}
	logger.Info("Connected to cache and vector index")

	// Relational candidate store
	candDB, err := sqlx.Connect(cfg.CandidateStore.Driver, cfg.CandidateStore.DSN)
	if err != nil {
		logger.Fatal("Failed to open candidate store", zap.Error(err))
	}
	defer func() { _ = candDB.Close() }()

	candStore := candrepo.New(candDB, logger)
	if err := candStore.EnsureSchema(ctx); err != nil {
		logger.Fatal("Failed to ensure candidate schema", zap.Error(err))
	}
	logger.Info("Candidate store ready", zap.String("dsn", cfg.CandidateStore.DSN))

	// Register pipeline metrics explicitly (no init())
	metrics.RegisterPipelineMetrics()

	// External clients — one breaker per service, independently tuned
	interpreter := openaiClient.NewInterpreter(&openaiClient.InterpreterConfig{
		APIKey:  cfg.Interpreter.APIKey,
		BaseURL: cfg.Interpreter.BaseURL,
		Model:   cfg.Interpreter.Model,
		Breaker: breakerConfig("interpretation", cfg.Interpreter.Breaker),
		Logger:  logger,
	})
	embedder := openaiClient.NewEmbedder(&openaiClient.EmbedderConfig{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Breaker:    breakerConfig("embedding", cfg.Embedding.Breaker),
		Logger:     logger,
	})

	// Repositories
	indexRepo := vecindex.New(
		indexStore, cfg.VectorIndex.IndexName,
		breakerConfig("vector_index", cfg.VectorIndex.Breaker), logger,
	)
	cacheRepo := cacherepo.New(
		cacheStore, time.Duration(cfg.Cache.TTLSec)*time.Second,
		metrics.CacheResultsTotal, logger,
	)

	// Audit sink — fire-and-forget, bounded pool
	sink, err := audit.NewSink(&audit.LogWriter{Logger: logger}, cfg.Audit.Workers, logger)
	if err != nil {
		logger.Fatal("Failed to create audit sink", zap.Error(err))
	}
	defer sink.Close()

	// Use case services
	searchSvc := searchuc.New(searchuc.Config{
		Interpreter: interpreter,
		Embedder:    embedder,
		Index:       indexRepo,
		Store:       candStore,
		Cache:       cacheRepo,
		Auditor:     sink,
		Logger:      logger,
		Deadline:    time.Duration(cfg.Pipeline.DeadlineSec) * time.Second,
		TopK:        cfg.Pipeline.TopK,
	})
	healthSvc := healthuc.New(cacheStore, indexStore, candStore, embedder)

	// HTTP server
	server := chiTransport.NewServer(searchSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

func breakerConfig(name string, b config.BreakerConfig) breaker.Config {
	return breaker.Config{
		Name:         name,
		CallTimeout:  time.Duration(b.CallTimeoutSec) * time.Second,
		FailureRatio: b.FailureRatio,
		MinRequests:  uint32(b.MinRequests),
		Window:       time.Duration(b.WindowSec) * time.Second,
		Cooldown:     time.Duration(b.CooldownSec) * time.Second,
	}
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"error": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
