package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"codingclub/internal/api"
	"codingclub/internal/auth"
	"codingclub/internal/club"
	"codingclub/internal/config"
	"codingclub/internal/logging"
	"codingclub/internal/queue"
	"codingclub/internal/store"
	"codingclub/internal/summary"
)

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.Production(), cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg, logger); err != nil {
		logger.Fatal("http server failed", zap.Error(err))
	}
}

func runHTTP(cfg config.App, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	repo := club.NewRepository(db.Gorm)
	if cfg.AutoMigrate {
		if err := repo.Migrate(ctx); err != nil {
			return err
		}
		logger.Info("schema migrated")
	}

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer func() { _ = redisClient.Close() }()
	if redisClient != nil && !redisClient.Healthy(ctx) {
		logger.Warn("redis not reachable, summary cache disabled until it recovers", zap.String("addr", cfg.RedisAddr))
	}

	var cache summary.Cache
	if sc := store.NewSummaryCache(redisClient); sc != nil {
		cache = sc
	}
	summarizer := summary.New(summary.Config{
		APIKey:   cfg.OpenAIAPIKey,
		Model:    cfg.OpenAIModel,
		BaseURL:  cfg.OpenAIBaseURL,
		Timeout:  cfg.SummaryTimeout,
		CacheTTL: cfg.SummaryCacheTTL,
	}, cache, logger.Named("summary"))
	if cfg.OpenAIAPIKey == "" {
		logger.Warn("OPENAI_API_KEY not set, meetings get fallback summaries")
	}

	tokens := auth.Config{
		Issuer:     cfg.JWTIssuer,
		SigningKey: cfg.JWTSigningKey,
		AccessTTL:  cfg.AccessTTL,
		RefreshTTL: cfg.RefreshTTL,
	}
	svc := club.NewService(repo, summarizer, tokens, logger.Named("club"))

	if cfg.SummaryMode == config.SummaryQueue {
		q, closeQueue, err := queue.Open(cfg.QueueBackend, redisClient.Raw(), cfg.NATSURL, logger.Named("queue"))
		if err != nil {
			return err
		}
		defer closeQueue()
		svc.WithJobs(q)

		// an in-memory queue is private to this process, so consume it here
		if cfg.QueueBackend == queue.BackendMemory {
			msgs, err := q.Consume(ctx)
			if err != nil {
				return err
			}
			go svc.RunSummaryWorker(ctx, msgs)
		}
		logger.Info("summaries queued", zap.String("backend", cfg.QueueBackend))
	}

	r := api.NewRouter(ctx, api.Deps{
		Service:         svc,
		Tokens:          tokens,
		DB:              db,
		Redis:           redisClient,
		Log:             logger,
		CORSOrigins:     cfg.CORSOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
		AuthRatePerSec:  cfg.AuthRatePerSec,
		AuthRateBurst:   cfg.AuthRateBurst,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.SummaryTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down server")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server forced shutdown", zap.Error(err))
	}
	logger.Info("server exited")
	return nil
}
