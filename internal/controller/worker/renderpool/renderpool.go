// Package renderpool runs the bounded pool of render workers. Pending tasks
// are claimed from the ledger oldest-first and fanned out to workers over a
// channel; saturation simply leaves tasks pending in the ledger.
package renderpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kactica/og-image-generator/internal/entity"
	"github.com/kactica/og-image-generator/internal/infrastructure"
	"github.com/kactica/og-image-generator/internal/usecase"
	"github.com/kactica/og-image-generator/pkg/logger"
	"github.com/kactica/og-image-generator/pkg/types/errs"
)

type RenderPool struct {
	renderer  infrastructure.Renderer
	tasks     usecase.TaskUseCase
	artifacts usecase.ArtifactUseCase
	logger    logger.Interface

	workers        int
	pollInterval   time.Duration
	claimBatchSize int
	renderTimeout  time.Duration
	commitTimeout  time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	started atomic.Bool
}

func New(
	renderer infrastructure.Renderer,
	tasks usecase.TaskUseCase,
	artifacts usecase.ArtifactUseCase,
	l logger.Interface,
	workers int,
	pollInterval time.Duration,
	claimBatchSize int,
	renderTimeout time.Duration,
	commitTimeout time.Duration,
) *RenderPool {
	return &RenderPool{
		renderer:       renderer,
		tasks:          tasks,
		artifacts:      artifacts,
		logger:         l,
		workers:        workers,
		pollInterval:   pollInterval,
		claimBatchSize: claimBatchSize,
		renderTimeout:  renderTimeout,
		commitTimeout:  commitTimeout,
	}
}

func (p *RenderPool) Start(ctx context.Context) error {
	if !p.started.CompareAndSwap(false, true) {
		return fmt.Errorf("RenderPool - Start - pool already started")
	}

	p.ctx, p.cancel = context.WithCancel(ctx)

	claimed := make(chan *entity.Screenshot, p.workers*2)

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(claimed)
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer close(claimed)

		ticker := time.NewTicker(p.pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-p.ctx.Done():
				return
			case <-ticker.C:
				tasks, err := p.tasks.ClaimPending(p.ctx, p.claimBatchSize)
				if err != nil {
					if !errors.Is(err, context.Canceled) {
						p.logger.Error(err, "RenderPool - Start - p.tasks.ClaimPending")
					}
					continue
				}

				for _, task := range tasks {
					select {
					case claimed <- task:
					case <-p.ctx.Done():
						return
					}
				}
			}
		}
	}()

	return nil
}

func (p *RenderPool) worker(claimed <-chan *entity.Screenshot) {
	defer p.wg.Done()

	for task := range claimed {
		func() {
			defer func() {
				if r := recover(); r != nil {
					p.logger.Error(fmt.Errorf("panic %v", r), "RenderPool - worker - panic")
					p.failTask(task, fmt.Sprintf("render panic: %v", r))
				}
			}()

			p.process(task)
		}()
	}
}

// process owns the claimed task from here to its terminal transition.
func (p *RenderPool) process(task *entity.Screenshot) {
	renderCtx, renderCancel := context.WithTimeout(p.ctx, p.renderTimeout)
	data, err := p.renderer.Render(renderCtx, task.URL, task.Width, task.Height)
	renderCancel()
	if err != nil {
		p.failTask(task, classifyRenderError(err))

		return
	}

	// The artifact keeps the freshness window promised at request time, not
	// a full TTL from completion.
	ttl := time.Until(task.ExpiresAt)

	commitCtx, commitCancel := context.WithTimeout(p.ctx, p.commitTimeout)
	defer commitCancel()

	artifact, err := p.artifacts.Put(commitCtx, task.Fingerprint, data, ttl)
	if err != nil {
		p.logger.Error(err, "RenderPool - process - p.artifacts.Put")
		p.failTask(task, fmt.Sprintf("storage: %s", err))

		return
	}

	err = p.tasks.CompleteTask(commitCtx, task, artifact)
	if err != nil {
		p.logger.Error(err, "RenderPool - process - p.tasks.CompleteTask")
		p.failTask(task, fmt.Sprintf("commit: %s", err))
	}
}

func (p *RenderPool) failTask(task *entity.Screenshot, reason string) {
	ctx, cancel := context.WithTimeout(p.ctx, p.commitTimeout)
	defer cancel()

	err := p.tasks.FailTask(ctx, task, reason)
	if err != nil {
		p.logger.Error(err, "RenderPool - failTask - p.tasks.FailTask")
	}
}

func classifyRenderError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return errs.ErrRenderTimeout.Error()
	}

	return err.Error()
}

func (p *RenderPool) Shutdown(ctx context.Context) error {
	if !p.started.Load() {
		return nil
	}

	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})

	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return nil
	}
}
