// Package tasks owns render-task state transitions on behalf of the worker
// pool and exposes the lifecycle-event outbox to the relay.
package tasks

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/kactica/og-image-generator/internal/entity"
	"github.com/kactica/og-image-generator/internal/repo"
	"github.com/kactica/og-image-generator/pkg/logger"
)

type TaskUseCase struct {
	taskRepo   repo.ScreenshotRepo
	outboxRepo repo.OutboxRepo
	transactor repo.Transactor

	logger logger.Interface
}

func New(
	taskRepo repo.ScreenshotRepo,
	outboxRepo repo.OutboxRepo,
	transactor repo.Transactor,
	l logger.Interface,
) *TaskUseCase {
	return &TaskUseCase{
		taskRepo:   taskRepo,
		outboxRepo: outboxRepo,
		transactor: transactor,
		logger:     l,
	}
}

func (uc *TaskUseCase) ClaimPending(ctx context.Context, limit int) ([]*entity.Screenshot, error) {
	claimed, err := uc.taskRepo.ClaimPending(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("TaskUseCase - ClaimPending - uc.taskRepo.ClaimPending: %w", err)
	}

	return claimed, nil
}

// CompleteTask applies the Processing -> Completed transition and writes the
// completed event in the same transaction, so the event exists iff the
// transition committed.
func (uc *TaskUseCase) CompleteTask(ctx context.Context, task *entity.Screenshot, artifact *entity.Artifact) error {
	err := uc.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := uc.taskRepo.MarkCompleted(ctx, task.ID, artifact.URL); err != nil {
			return fmt.Errorf("uc.taskRepo.MarkCompleted: %w", err)
		}

		event, err := newCompletedEvent(task, artifact)
		if err != nil {
			return fmt.Errorf("newCompletedEvent: %w", err)
		}

		if err := uc.outboxRepo.Create(ctx, event); err != nil {
			return fmt.Errorf("uc.outboxRepo.Create: %w", err)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("TaskUseCase - CompleteTask - uc.transactor.WithinTransaction: %w", err)
	}

	return nil
}

// FailTask applies the Processing -> Failed transition, same transactional
// shape as CompleteTask.
func (uc *TaskUseCase) FailTask(ctx context.Context, task *entity.Screenshot, reason string) error {
	err := uc.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := uc.taskRepo.MarkFailed(ctx, task.ID, reason); err != nil {
			return fmt.Errorf("uc.taskRepo.MarkFailed: %w", err)
		}

		event, err := newFailedEvent(task, reason)
		if err != nil {
			return fmt.Errorf("newFailedEvent: %w", err)
		}

		if err := uc.outboxRepo.Create(ctx, event); err != nil {
			return fmt.Errorf("uc.outboxRepo.Create: %w", err)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("TaskUseCase - FailTask - uc.transactor.WithinTransaction: %w", err)
	}

	return nil
}

func (uc *TaskUseCase) GetPendingEvents(ctx context.Context, maxRetries, limit int) ([]*entity.OutboxEvent, error) {
	events, err := uc.outboxRepo.GetPendingEvents(ctx, limit, maxRetries)
	if err != nil {
		return nil, fmt.Errorf("TaskUseCase - GetPendingEvents - uc.outboxRepo.GetPendingEvents: %w", err)
	}

	return events, nil
}

func (uc *TaskUseCase) MarkAsProcessingBatch(ctx context.Context, events []*entity.OutboxEvent) error {
	err := uc.outboxRepo.MarkAsProcessingBatch(ctx, eventIDs(events))
	if err != nil {
		return fmt.Errorf("TaskUseCase - MarkAsProcessingBatch - uc.outboxRepo.MarkAsProcessingBatch: %w", err)
	}

	return nil
}

func (uc *TaskUseCase) MarkAsCompletedBatch(ctx context.Context, events []*entity.OutboxEvent) error {
	err := uc.outboxRepo.MarkAsCompletedBatch(ctx, eventIDs(events))
	if err != nil {
		return fmt.Errorf("TaskUseCase - MarkAsCompletedBatch - uc.outboxRepo.MarkAsCompletedBatch: %w", err)
	}

	return nil
}

func (uc *TaskUseCase) IncrementRetryCountBatch(ctx context.Context, events []*entity.OutboxEvent) error {
	err := uc.outboxRepo.IncrementRetryCountBatch(ctx, eventIDs(events))
	if err != nil {
		return fmt.Errorf("TaskUseCase - IncrementRetryCountBatch - uc.outboxRepo.IncrementRetryCountBatch: %w", err)
	}

	return nil
}

func (uc *TaskUseCase) MarkMaxRetriesAsFailed(ctx context.Context, maxRetries int) error {
	err := uc.outboxRepo.MarkMaxRetriesAsFailed(ctx, maxRetries)
	if err != nil {
		return fmt.Errorf("TaskUseCase - MarkMaxRetriesAsFailed - uc.outboxRepo.MarkMaxRetriesAsFailed: %w", err)
	}

	return nil
}

func (uc *TaskUseCase) CleanupOutbox(ctx context.Context) error {
	count, err := uc.outboxRepo.DeleteOldCompletedAndFailed(ctx)
	if err != nil {
		return fmt.Errorf("TaskUseCase - CleanupOutbox - uc.outboxRepo.DeleteOldCompletedAndFailed: %w", err)
	}

	if count > 0 {
		uc.logger.Info("deleted old events, count = %d", count)
	}

	return nil
}

func eventIDs(events []*entity.OutboxEvent) uuid.UUIDs {
	var IDs uuid.UUIDs

	for _, event := range events {
		IDs = append(IDs, event.ID)
	}

	return IDs
}
