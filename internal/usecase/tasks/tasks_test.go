package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kactica/og-image-generator/internal/entity"
	infrakafka "github.com/kactica/og-image-generator/internal/infrastructure/kafka"
	"github.com/kactica/og-image-generator/pkg/logger"
)

type fakeTaskRepo struct {
	completed map[uuid.UUID]string
	failed    map[uuid.UUID]string
	markErr   error
	claimed   []*entity.Screenshot
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{
		completed: make(map[uuid.UUID]string),
		failed:    make(map[uuid.UUID]string),
	}
}

func (f *fakeTaskRepo) CreateIfAbsent(_ context.Context, _ *entity.Screenshot) error { return nil }

func (f *fakeTaskRepo) GetByID(_ context.Context, _ uuid.UUID) (*entity.Screenshot, error) {
	return nil, nil
}

func (f *fakeTaskRepo) FindActiveByFingerprint(_ context.Context, _ string) (*entity.Screenshot, error) {
	return nil, nil
}

func (f *fakeTaskRepo) ClaimPending(_ context.Context, _ int) ([]*entity.Screenshot, error) {
	return f.claimed, nil
}

func (f *fakeTaskRepo) MarkCompleted(_ context.Context, id uuid.UUID, s3Path string) error {
	if f.markErr != nil {
		return f.markErr
	}

	f.completed[id] = s3Path

	return nil
}

func (f *fakeTaskRepo) MarkFailed(_ context.Context, id uuid.UUID, reason string) error {
	if f.markErr != nil {
		return f.markErr
	}

	f.failed[id] = reason

	return nil
}

type fakeOutboxRepo struct {
	created   []*entity.OutboxEvent
	createErr error
}

func (f *fakeOutboxRepo) Create(_ context.Context, event *entity.OutboxEvent) error {
	if f.createErr != nil {
		return f.createErr
	}

	f.created = append(f.created, event)

	return nil
}

func (f *fakeOutboxRepo) GetPendingEvents(_ context.Context, _, _ int) ([]*entity.OutboxEvent, error) {
	return nil, nil
}
func (f *fakeOutboxRepo) MarkAsProcessingBatch(_ context.Context, _ uuid.UUIDs) error { return nil }
func (f *fakeOutboxRepo) MarkAsCompletedBatch(_ context.Context, _ uuid.UUIDs) error { return nil }
func (f *fakeOutboxRepo) IncrementRetryCountBatch(_ context.Context, _ uuid.UUIDs) error { return nil }
func (f *fakeOutboxRepo) MarkMaxRetriesAsFailed(_ context.Context, _ int) error { return nil }
func (f *fakeOutboxRepo) DeleteOldCompletedAndFailed(_ context.Context) (int64, error) { return 0, nil }

// fakeTransactor runs the function and reports whether the whole unit
// committed, mimicking rollback on error.
type fakeTransactor struct {
	committed  bool
	rolledBack bool
}

func (f *fakeTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	err := fn(ctx)
	if err != nil {
		f.rolledBack = true

		return err
	}

	f.committed = true

	return nil
}

func testScreenshot() *entity.Screenshot {
	now := time.Now()

	return &entity.Screenshot{
		ID:          uuid.New(),
		Fingerprint: "fp1",
		URL:         "https://example.com/page",
		Width:       1200,
		Height:      630,
		Status:      entity.Processing,
		CreatedAt:   now,
		UpdatedAt:   now,
		ExpiresAt:   now.Add(24 * time.Hour),
	}
}

func TestCompleteTaskWritesTransitionAndEventTogether(t *testing.T) {
	taskRepo := newFakeTaskRepo()
	outboxRepo := &fakeOutboxRepo{}
	tx := &fakeTransactor{}
	uc := New(taskRepo, outboxRepo, tx, logger.New("error"))

	task := testScreenshot()
	artifact := &entity.Artifact{
		Fingerprint: task.Fingerprint,
		URL:         "https://cdn.test/og_images/fp1.png",
		StoredAt:    time.Now(),
		TTL:         2 * time.Hour,
	}

	require.NoError(t, uc.CompleteTask(context.Background(), task, artifact))

	assert.True(t, tx.committed)
	assert.Equal(t, "https://cdn.test/og_images/fp1.png", taskRepo.completed[task.ID])

	require.Len(t, outboxRepo.created, 1)
	event := outboxRepo.created[0]
	assert.Equal(t, task.ID, event.AggregateID)
	assert.Equal(t, entity.Pending, event.Status)

	var payload infrakafka.ScreenshotEventPayload
	require.NoError(t, json.Unmarshal(event.Payload, &payload))
	assert.Equal(t, infrakafka.EventScreenshotCompleted, payload.Type)
	assert.Equal(t, task.ID, payload.TaskID)
	assert.Equal(t, "https://cdn.test/og_images/fp1.png", payload.ImageURL)
	assert.Equal(t, int64(7200), payload.TTLSeconds)
}

func TestFailTaskWritesTransitionAndEventTogether(t *testing.T) {
	taskRepo := newFakeTaskRepo()
	outboxRepo := &fakeOutboxRepo{}
	tx := &fakeTransactor{}
	uc := New(taskRepo, outboxRepo, tx, logger.New("error"))

	task := testScreenshot()

	require.NoError(t, uc.FailTask(context.Background(), task, "render timed out"))

	assert.True(t, tx.committed)
	assert.Equal(t, "render timed out", taskRepo.failed[task.ID])

	require.Len(t, outboxRepo.created, 1)

	var payload infrakafka.ScreenshotEventPayload
	require.NoError(t, json.Unmarshal(outboxRepo.created[0].Payload, &payload))
	assert.Equal(t, infrakafka.EventScreenshotFailed, payload.Type)
	assert.Equal(t, "render timed out", payload.ErrorMessage)
}

func TestCompleteTaskRollsBackWhenEventWriteFails(t *testing.T) {
	taskRepo := newFakeTaskRepo()
	outboxRepo := &fakeOutboxRepo{createErr: errors.New("pg down")}
	tx := &fakeTransactor{}
	uc := New(taskRepo, outboxRepo, tx, logger.New("error"))

	err := uc.CompleteTask(context.Background(), testScreenshot(), &entity.Artifact{URL: "u"})

	require.Error(t, err)
	assert.True(t, tx.rolledBack)
	assert.False(t, tx.committed)
}

func TestFailTaskPropagatesTransitionError(t *testing.T) {
	taskRepo := newFakeTaskRepo()
	taskRepo.markErr = errors.New("not processing")
	tx := &fakeTransactor{}
	uc := New(taskRepo, &fakeOutboxRepo{}, tx, logger.New("error"))

	err := uc.FailTask(context.Background(), testScreenshot(), "whatever")

	require.Error(t, err)
	assert.True(t, tx.rolledBack)
}

func TestClaimPendingPassesThrough(t *testing.T) {
	taskRepo := newFakeTaskRepo()
	taskRepo.claimed = []*entity.Screenshot{testScreenshot(), testScreenshot()}
	uc := New(taskRepo, &fakeOutboxRepo{}, &fakeTransactor{}, logger.New("error"))

	claimed, err := uc.ClaimPending(context.Background(), 10)

	require.NoError(t, err)
	assert.Len(t, claimed, 2)
}
