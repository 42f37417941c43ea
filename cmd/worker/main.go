package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"codingclub/internal/auth"
	"codingclub/internal/club"
	"codingclub/internal/config"
	"codingclub/internal/logging"
	"codingclub/internal/queue"
	"codingclub/internal/store"
	"codingclub/internal/summary"
)

// Worker consumes summary jobs published by the API and stores the results.
func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.Production(), cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.QueueBackend == queue.BackendMemory {
		logger.Fatal("the memory queue lives inside the api process; set QUEUE_BACKEND=redis or nats to run a separate worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("db connect failed", zap.Error(err))
	}
	defer func() { _ = db.Close() }()

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer func() { _ = redisClient.Close() }()

	q, closeQueue, err := queue.Open(cfg.QueueBackend, redisClient.Raw(), cfg.NATSURL, logger.Named("queue"))
	if err != nil {
		logger.Fatal("queue init failed", zap.Error(err))
	}
	defer closeQueue()

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

	repo := club.NewRepository(db.Gorm)
	svc := club.NewService(repo, summarizer, auth.Config{}, logger.Named("club"))

	messages, err := q.Consume(ctx)
	if err != nil {
		logger.Fatal("queue consume init failed", zap.Error(err))
	}

	logger.Info("worker started, waiting for messages", zap.String("backend", cfg.QueueBackend))
	svc.RunSummaryWorker(ctx, messages)
	logger.Info("worker stopped")
}
