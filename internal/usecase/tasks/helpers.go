package tasks

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kactica/og-image-generator/internal/entity"
	infrakafka "github.com/kactica/og-image-generator/internal/infrastructure/kafka"
)

func newCompletedEvent(task *entity.Screenshot, artifact *entity.Artifact) (*entity.OutboxEvent, error) {
	return newEvent(task, infrakafka.ScreenshotEventPayload{
		Type:        infrakafka.EventScreenshotCompleted,
		TaskID:      task.ID,
		Fingerprint: task.Fingerprint,
		URL:         task.URL,
		ImageURL:    artifact.URL,
		TTLSeconds:  int64(artifact.TTL / time.Second),
	})
}

func newFailedEvent(task *entity.Screenshot, reason string) (*entity.OutboxEvent, error) {
	return newEvent(task, infrakafka.ScreenshotEventPayload{
		Type:         infrakafka.EventScreenshotFailed,
		TaskID:       task.ID,
		Fingerprint:  task.Fingerprint,
		URL:          task.URL,
		ErrorMessage: reason,
	})
}

func newEvent(task *entity.Screenshot, payload infrakafka.ScreenshotEventPayload) (*entity.OutboxEvent, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("json.Marshal: %w", err)
	}

	return &entity.OutboxEvent{
		ID:          uuid.New(),
		AggregateID: task.ID,
		Payload:     b,
		Status:      entity.Pending,
		CreatedAt:   time.Now(),
		RetryCount:  0,
	}, nil
}
