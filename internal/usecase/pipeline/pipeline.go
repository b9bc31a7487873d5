// Package pipeline implements the render-and-cache facade: cache-or-render
// decisions, request dedup and task status reads.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/kactica/og-image-generator/internal/dto"
	"github.com/kactica/og-image-generator/internal/entity"
	"github.com/kactica/og-image-generator/internal/fingerprint"
	"github.com/kactica/og-image-generator/internal/repo"
	"github.com/kactica/og-image-generator/internal/usecase"
	"github.com/kactica/og-image-generator/pkg/logger"
	"github.com/kactica/og-image-generator/pkg/types/errs"
)

// A lost creation race means someone else just created the task, so one
// re-read normally resolves it; the budget only guards against a pathological
// create/terminate loop.
const _acquireAttempts = 3

type Defaults struct {
	TTL    time.Duration
	Width  int
	Height int
}

type PipelineUseCase struct {
	tasks     repo.ScreenshotRepo
	artifacts usecase.ArtifactUseCase
	whitelist *Whitelist
	defaults  Defaults

	logger logger.Interface
}

func New(
	tasks repo.ScreenshotRepo,
	artifacts usecase.ArtifactUseCase,
	whitelist *Whitelist,
	defaults Defaults,
	l logger.Interface,
) *PipelineUseCase {
	return &PipelineUseCase{
		tasks:     tasks,
		artifacts: artifacts,
		whitelist: whitelist,
		defaults:  defaults,
		logger:    l,
	}
}

// RequestImage validates the request, short-circuits on a fresh artifact and
// otherwise acquires or joins the active render task for the fingerprint.
// It never blocks on rendering; callers poll GetStatus.
func (uc *PipelineUseCase) RequestImage(ctx context.Context, req dto.RenderRequest) (*dto.PipelineResult, error) {
	host, err := validateURL(req.URL)
	if err != nil {
		return nil, fmt.Errorf("PipelineUseCase - RequestImage: %w", err)
	}

	if !uc.whitelist.IsAllowed(host) {
		return nil, fmt.Errorf("PipelineUseCase - RequestImage - domain %q: %w", host, errs.ErrDomainNotAllowed)
	}

	if req.Width <= 0 {
		req.Width = uc.defaults.Width
	}
	if req.Height <= 0 {
		req.Height = uc.defaults.Height
	}
	if req.TTL <= 0 {
		req.TTL = uc.defaults.TTL
	}

	normalized := fingerprint.Normalize(req.URL)
	fp := fingerprint.Key(req.URL, req.Width, req.Height)

	if !req.ForceRefresh {
		artifact, found, err := uc.artifacts.Lookup(ctx, fp)
		if err != nil {
			return nil, fmt.Errorf("PipelineUseCase - RequestImage - uc.artifacts.Lookup: %w: %w", errs.ErrStorageUnavailable, err)
		}
		if found {
			return &dto.PipelineResult{
				Status:   dto.ResultCached,
				ImageURL: artifact.URL,
			}, nil
		}
	}

	task, err := uc.acquireOrJoin(ctx, fp, normalized, req.Width, req.Height, req.TTL)
	if err != nil {
		return nil, fmt.Errorf("PipelineUseCase - RequestImage: %w", err)
	}

	return &dto.PipelineResult{
		Status: dto.ResultProcessing,
		TaskID: task.ID,
	}, nil
}

// GetStatus is a pure read of the task ledger.
func (uc *PipelineUseCase) GetStatus(ctx context.Context, taskID uuid.UUID) (*dto.TaskStatus, error) {
	task, err := uc.tasks.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, errs.ErrRecordNotFound) {
			return nil, fmt.Errorf("PipelineUseCase - GetStatus: %w", errs.ErrRecordNotFound)
		}
		return nil, fmt.Errorf("PipelineUseCase - GetStatus - uc.tasks.GetByID: %w: %w", errs.ErrStorageUnavailable, err)
	}

	status := &dto.TaskStatus{Status: task.Status}

	switch task.Status {
	case entity.Completed:
		status.ImageURL = task.S3Path
	case entity.Failed:
		status.ErrorMessage = task.ErrorMessage
	}

	return status, nil
}

// acquireOrJoin guarantees at most one active task per fingerprint: join the
// active task if one exists, otherwise create one. The ledger's unique
// constraint decides creation races; the loser re-reads and joins the winner.
func (uc *PipelineUseCase) acquireOrJoin(ctx context.Context, fp, normalizedURL string, width, height int, ttl time.Duration) (*entity.Screenshot, error) {
	for attempt := 0; attempt < _acquireAttempts; attempt++ {
		existing, err := uc.tasks.FindActiveByFingerprint(ctx, fp)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, errs.ErrRecordNotFound) {
			return nil, fmt.Errorf("uc.tasks.FindActiveByFingerprint: %w: %w", errs.ErrStorageUnavailable, err)
		}

		now := time.Now()
		task := &entity.Screenshot{
			ID:          uuid.New(),
			Fingerprint: fp,
			URL:         normalizedURL,
			Width:       width,
			Height:      height,
			Status:      entity.Pending,
			CreatedAt:   now,
			UpdatedAt:   now,
			ExpiresAt:   now.Add(ttl),
		}

		err = uc.tasks.CreateIfAbsent(ctx, task)
		if err == nil {
			return task, nil
		}
		if errors.Is(err, errs.ErrTaskConflict) {
			// Lost the race, join the winner on the next read.
			continue
		}

		return nil, fmt.Errorf("uc.tasks.CreateIfAbsent: %w: %w", errs.ErrStorageUnavailable, err)
	}

	return nil, errs.ErrDedupFailed
}

func validateURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", errs.ErrInvalidURL
	}

	if (u.Scheme != "http" && u.Scheme != "https") || u.Hostname() == "" {
		return "", errs.ErrInvalidURL
	}

	return u.Hostname(), nil
}
