// Package kafka runs the cache warmer: it consumes task lifecycle events
// and pre-fills the redis artifact cache, so lookups on other instances
// hit redis instead of postgres.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	infrakafka "github.com/kactica/og-image-generator/internal/infrastructure/kafka"
	"github.com/kactica/og-image-generator/internal/repo"
	"github.com/kactica/og-image-generator/pkg/logger"
)

type KafkaController struct {
	consumer *infrakafka.EventConsumer
	cache    repo.ArtifactCache
	logger   logger.Interface

	workers int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	started atomic.Bool
}

func New(
	consumer *infrakafka.EventConsumer,
	cache repo.ArtifactCache,
	l logger.Interface,
	workers int,
) *KafkaController {
	return &KafkaController{
		consumer: consumer,
		cache:    cache,
		logger:   l,
		workers:  workers,
	}
}

func (kc *KafkaController) Start(ctx context.Context) error {
	if !kc.started.CompareAndSwap(false, true) {
		return fmt.Errorf("KafkaController - Start - consumer already started")
	}

	kc.ctx, kc.cancel = context.WithCancel(ctx)

	for i := 0; i < kc.workers; i++ {
		kc.wg.Add(1)
		go kc.worker()
	}

	return nil
}

func (kc *KafkaController) worker() {
	defer kc.wg.Done()

	for {
		select {
		case <-kc.ctx.Done():
			return
		default:
		}

		msg, err := kc.consumer.ReadEvent(kc.ctx)
		if err != nil {
			if kc.ctx.Err() != nil {
				return
			}
			kc.logger.Error(err, "KafkaController - worker - kc.consumer.ReadEvent")

			continue
		}

		kc.handleEvent(msg.Value)

		err = kc.consumer.CommitEvent(kc.ctx, msg)
		if err != nil && kc.ctx.Err() == nil {
			kc.logger.Error(err, "KafkaController - worker - kc.consumer.CommitEvent")
		}
	}
}

func (kc *KafkaController) handleEvent(value []byte) {
	var payload infrakafka.ScreenshotEventPayload

	err := json.Unmarshal(value, &payload)
	if err != nil {
		kc.logger.Warn("KafkaController - handleEvent - skipping malformed event: %v", err)

		return
	}

	if payload.Type != infrakafka.EventScreenshotCompleted {
		return
	}
	if payload.ImageURL == "" || payload.TTLSeconds <= 0 {
		return
	}

	ttl := time.Duration(payload.TTLSeconds) * time.Second

	err = kc.cache.SetURL(kc.ctx, payload.Fingerprint, payload.ImageURL, ttl)
	if err != nil {
		kc.logger.Warn("KafkaController - handleEvent - kc.cache.SetURL: %v", err)
	}
}

func (kc *KafkaController) Shutdown(ctx context.Context) error {
	if !kc.started.Load() {
		return nil
	}

	if kc.cancel != nil {
		kc.cancel()
	}

	done := make(chan struct{})

	go func() {
		kc.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}

	err := kc.consumer.Close()
	if err != nil {
		return fmt.Errorf("KafkaController - Shutdown - kc.consumer.Close: %w", err)
	}

	return nil
}
