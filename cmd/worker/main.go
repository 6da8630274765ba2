package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"ecertify/internal/config"
	"ecertify/internal/database"
	"ecertify/internal/metrics"
	"ecertify/internal/pdf"
	"ecertify/internal/storage"
	"ecertify/internal/tasks"
	"ecertify/internal/worker"
)

func main() {
	cfg := config.MustLoad()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	log.Println("database connection ready for worker")

	storageClient, err := storage.NewClient(cfg.MinIO)
	if err != nil {
		log.Fatalf("init storage client: %v", err)
	}
	log.Printf("storage client ready, bucket=%s", cfg.MinIO.Bucket)

	redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
	redisClient := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()

	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("ping redis: %v", err)
	}

	engine := pdf.NewEngine(logger, cfg.Render.MaxConcurrent, cfg.Render.BrowserPath, cfg.Render.AllowDownload, cfg.Render.Timeout)

	redisOpt := asynq.RedisClientOpt{Addr: redisAddr}
	server := asynq.NewServer(redisOpt, asynq.Config{
		// 任务内部再受渲染信号量约束，这里只限制排队并发。
		Concurrency: cfg.Render.MaxConcurrent * 2,
	})

	exportHandler := worker.NewExportHandler(db, storageClient, redisClient, engine, logger)
	thumbnailHandler := worker.NewThumbnailHandler(db, storageClient, engine, logger)

	mux := asynq.NewServeMux()
	mux.Use(metrics.AsynqMetricsMiddleware())
	mux.Handle(tasks.TypeCertificateExport, exportHandler)
	mux.Handle(tasks.TypeThumbnailRefresh, thumbnailHandler)

	logger.Info("worker service started", slog.String("redis_addr", redisAddr))
	if err := server.Run(mux); err != nil {
		logger.Error("worker server stopped", slog.Any("error", err))
	}
}
