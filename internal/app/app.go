// Package app wires the service together and runs it.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kactica/og-image-generator/config"
	kafkactrl "github.com/kactica/og-image-generator/internal/controller/kafka"
	"github.com/kactica/og-image-generator/internal/controller/restapi"
	"github.com/kactica/og-image-generator/internal/controller/worker/outbox"
	"github.com/kactica/og-image-generator/internal/controller/worker/renderpool"
	infrakafka "github.com/kactica/og-image-generator/internal/infrastructure/kafka"
	"github.com/kactica/og-image-generator/internal/infrastructure/renderer"
	"github.com/kactica/og-image-generator/internal/repo/cache"
	"github.com/kactica/og-image-generator/internal/repo/persistent"
	"github.com/kactica/og-image-generator/internal/usecase/artifact"
	"github.com/kactica/og-image-generator/internal/usecase/pipeline"
	"github.com/kactica/og-image-generator/internal/usecase/tasks"
	"github.com/kactica/og-image-generator/pkg/httpserver"
	"github.com/kactica/og-image-generator/pkg/kafka/consumer"
	"github.com/kactica/og-image-generator/pkg/kafka/producer"
	"github.com/kactica/og-image-generator/pkg/logger"
	"github.com/kactica/og-image-generator/pkg/postgres"
	"github.com/kactica/og-image-generator/pkg/redisclient"
	"github.com/kactica/og-image-generator/pkg/s3client"
)

func Run(cfg *config.Config) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Logger
	l := logger.New(cfg.Log.Level)

	// Repository

	// s3
	s3Ctx, s3Cancel := context.WithTimeout(ctx, cfg.S3.CfgLoadTimeout)
	defer s3Cancel()
	s3c, err := s3client.New(s3Ctx, cfg.S3.Endpoint, cfg.S3.AccessKey, cfg.S3.SecretKey,
		s3client.Region(cfg.S3.Region),
		s3client.CDNBaseURL(cfg.S3.CDNBaseURL),
		s3client.UsePathStyle(cfg.S3.Endpoint != ""),
	)
	if err != nil {
		l.Fatal(fmt.Errorf("app - Run - s3client.New: %w", err))
	}

	// postgres
	pg, err := postgres.New(cfg.PG.URL, postgres.MaxPoolSize(cfg.PG.PoolMax))
	if err != nil {
		l.Fatal(fmt.Errorf("app - Run - postgres.New: %w", err))
	}
	defer pg.Close()

	// redis
	rc, err := redisclient.New(ctx, cfg.Redis.URL)
	if err != nil {
		l.Fatal(fmt.Errorf("app - Run - redisclient.New: %w", err))
	}
	defer rc.Close()

	screenshotRepo := persistent.NewScreenshotRepo(pg)
	artifactCache := cache.NewArtifactCacheRepo(rc)

	// Use-Case

	// artifact use-case
	artifactUseCase := artifact.New(
		persistent.NewImageRepo(s3c, cfg.S3.Bucket),
		persistent.NewArtifactMetadataRepo(pg),
		artifactCache,
		l,
	)

	// task use-case
	taskUseCase := tasks.New(
		screenshotRepo,
		persistent.NewOutboxRepo(pg),
		pg,
		l,
	)

	// pipeline use-case
	pipelineUseCase := pipeline.New(
		screenshotRepo,
		artifactUseCase,
		pipeline.NewWhitelist(cfg.Screenshot.AllowedDomains),
		pipeline.Defaults{
			TTL:    cfg.Screenshot.DefaultTTL,
			Width:  cfg.Screenshot.DefaultWidth,
			Height: cfg.Screenshot.DefaultHeight,
		},
		l,
	)

	// Render Pool Worker
	renderPoolWorker := renderpool.New(
		renderer.New(l),
		taskUseCase,
		artifactUseCase,
		l,
		cfg.RenderPool.Workers,
		cfg.RenderPool.PollInterval,
		cfg.RenderPool.ClaimBatchSize,
		cfg.RenderPool.RenderTimeout,
		cfg.RenderPool.CommitTimeout,
	)

	// Kafka Producer
	kafkaProducer, err := producer.New(ctx, cfg.Kafka.Brokers)
	if err != nil {
		l.Fatal(fmt.Errorf("app - Run - producer.New: %w", err))
	}

	// Outbox Relay Worker
	outboxRelayWorker := outbox.New(
		taskUseCase,
		infrakafka.NewEventProducer(kafkaProducer, cfg.Kafka.Topic),
		l,
		cfg.OutboxRelay.PollInterval,
		cfg.OutboxRelay.CleanupInterval,
		cfg.OutboxRelay.MarkFailedInterval,
		cfg.OutboxRelay.ProcessBatchTimeout,
		cfg.OutboxRelay.BatchSize,
		cfg.OutboxRelay.MaxRetries,
	)

	// Kafka Consumer
	kafkaConsumer, err := consumer.New(ctx, cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.Topic)
	if err != nil {
		l.Fatal(fmt.Errorf("app - Run - consumer.New: %w", err))
	}

	// Kafka as Controller, warms the artifact cache from lifecycle events
	kafkaController := kafkactrl.New(
		infrakafka.NewEventConsumer(kafkaConsumer),
		artifactCache,
		l,
		cfg.CacheWarmer.Workers,
	)

	// HTTP Server
	httpServer := httpserver.New(l, httpserver.Port(cfg.HTTP.Port), httpserver.Prefork(cfg.HTTP.UsePreforkMode))
	restapi.NewRouter(httpServer.App, cfg, pipelineUseCase, l)

	// Start Components
	err = renderPoolWorker.Start(ctx)
	if err != nil {
		l.Fatal(fmt.Errorf("app - Run - renderPoolWorker.Start: %w", err))
	}
	err = outboxRelayWorker.Start(ctx)
	if err != nil {
		l.Fatal(fmt.Errorf("app - Run - outboxRelayWorker.Start: %w", err))
	}
	err = kafkaController.Start(ctx)
	if err != nil {
		l.Fatal(fmt.Errorf("app - Run - kafkaController.Start: %w", err))
	}
	httpServer.Start()

	// Waiting Signal
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	select {
	case s := <-interrupt:
		l.Info("app - Run - signal: %s", s.String())
	case err = <-httpServer.Notify():
		l.Error(fmt.Errorf("app - Run - httpServer.Notify: %w", err))
	}

	// Shutdown
	err = httpServer.Shutdown()
	if err != nil {
		l.Error(fmt.Errorf("app - Run - httpServer.Shutdown: %w", err))
	}

	rpShutdownCtx, rpShutdownCancel := context.WithTimeout(ctx, cfg.RenderPool.ShutdownTimeout)
	defer rpShutdownCancel()
	err = renderPoolWorker.Shutdown(rpShutdownCtx)
	if err != nil {
		l.Error(fmt.Errorf("app - Run - renderPoolWorker.Shutdown: %w", err))
	}

	orlShutdownCtx, orlShutdownCancel := context.WithTimeout(ctx, cfg.OutboxRelay.ShutdownTimeout)
	defer orlShutdownCancel()
	err = outboxRelayWorker.Shutdown(orlShutdownCtx)
	if err != nil {
		l.Error(fmt.Errorf("app - Run - outboxRelayWorker.Shutdown: %w", err))
	}

	kcShutdownCtx, kcShutdownCancel := context.WithTimeout(ctx, cfg.CacheWarmer.ShutdownTimeout)
	defer kcShutdownCancel()
	err = kafkaController.Shutdown(kcShutdownCtx)
	if err != nil {
		l.Error(fmt.Errorf("app - Run - kafkaController.Shutdown: %w", err))
	}
}
