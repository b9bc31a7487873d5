package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kactica/og-image-generator/internal/dto"
	"github.com/kactica/og-image-generator/internal/entity"
)

type (
	// PipelineUseCase is the single entry point for callers: request an
	// image, poll the resulting task. Neither call blocks on rendering.
	PipelineUseCase interface {
		RequestImage(ctx context.Context, req dto.RenderRequest) (*dto.PipelineResult, error)
		GetStatus(ctx context.Context, taskID uuid.UUID) (*dto.TaskStatus, error)
	}

	// ArtifactUseCase is the artifact store consumed by the facade and the
	// worker pool. Lookup only reports fresh artifacts.
	ArtifactUseCase interface {
		Lookup(ctx context.Context, fingerprint string) (*entity.Artifact, bool, error)
		Put(ctx context.Context, fingerprint string, data []byte, ttl time.Duration) (*entity.Artifact, error)
	}

	// TaskUseCase owns ledger transitions for the worker pool and feeds the
	// lifecycle-event relay. Terminal transitions and their outbox events
	// commit in one transaction.
	TaskUseCase interface {
		ClaimPending(ctx context.Context, limit int) ([]*entity.Screenshot, error)
		CompleteTask(ctx context.Context, task *entity.Screenshot, artifact *entity.Artifact) error
		FailTask(ctx context.Context, task *entity.Screenshot, reason string) error

		GetPendingEvents(ctx context.Context, maxRetries, limit int) ([]*entity.OutboxEvent, error)
		MarkAsProcessingBatch(ctx context.Context, events []*entity.OutboxEvent) error
		MarkAsCompletedBatch(ctx context.Context, events []*entity.OutboxEvent) error
		IncrementRetryCountBatch(ctx context.Context, events []*entity.OutboxEvent) error
		MarkMaxRetriesAsFailed(ctx context.Context, maxRetries int) error
		CleanupOutbox(ctx context.Context) error
	}
)
