package repo

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kactica/og-image-generator/internal/entity"
)

type (
	// ScreenshotRepo is the durable task ledger. It is the single source of
	// truth for dedup: CreateIfAbsent must be atomic with respect to the
	// "at most one active task per fingerprint" constraint.
	ScreenshotRepo interface {
		// CreateIfAbsent inserts a pending task. Returns errs.ErrTaskConflict
		// when another pending/processing task already holds the fingerprint.
		CreateIfAbsent(ctx context.Context, task *entity.Screenshot) error
		GetByID(ctx context.Context, id uuid.UUID) (*entity.Screenshot, error)
		FindActiveByFingerprint(ctx context.Context, fingerprint string) (*entity.Screenshot, error)
		// ClaimPending flips up to limit pending tasks to processing, oldest
		// first, and returns them. Claimed tasks belong to the caller.
		ClaimPending(ctx context.Context, limit int) ([]*entity.Screenshot, error)
		// MarkCompleted and MarkFailed apply the terminal transition; both
		// refuse to touch a task that is not currently processing.
		MarkCompleted(ctx context.Context, id uuid.UUID, s3Path string) error
		MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
	}

	// ArtifactMetadataRepo is the lookup side of the artifact store.
	ArtifactMetadataRepo interface {
		Lookup(ctx context.Context, fingerprint string) (*entity.Artifact, error)
		Upsert(ctx context.Context, artifact *entity.Artifact) error
	}

	// ImageRepo is the blob sink.
	ImageRepo interface {
		UploadBytes(ctx context.Context, key string, data []byte, contentType string, size int64) error
		Delete(ctx context.Context, key string) error
		PublicURL(key string) string
	}

	// ArtifactCache is the fast read path in front of ArtifactMetadataRepo.
	// Implementations must degrade gracefully: a broken cache is a miss,
	// never a request failure.
	ArtifactCache interface {
		GetURL(ctx context.Context, fingerprint string) (string, error)
		SetURL(ctx context.Context, fingerprint, url string, ttl time.Duration) error
	}

	OutboxRepo interface {
		Create(ctx context.Context, event *entity.OutboxEvent) error
		GetPendingEvents(ctx context.Context, limit, maxRetries int) ([]*entity.OutboxEvent, error)
		MarkAsProcessingBatch(ctx context.Context, IDs uuid.UUIDs) error
		MarkAsCompletedBatch(ctx context.Context, IDs uuid.UUIDs) error
		IncrementRetryCountBatch(ctx context.Context, IDs uuid.UUIDs) error
		MarkMaxRetriesAsFailed(ctx context.Context, maxRetries int) error
		DeleteOldCompletedAndFailed(ctx context.Context) (int64, error)
	}

	Transactor interface {
		WithinTransaction(ctx context.Context, f func(ctx context.Context) error) error
	}
)
