package infrastructure

import (
	"context"

	"github.com/kactica/og-image-generator/internal/entity"
)

type (
	// Renderer turns a URL into PNG bytes at the requested dimensions.
	// Implementations must honor ctx cancellation; the worker pool imposes
	// the hard render timeout through it.
	Renderer interface {
		Render(ctx context.Context, url string, width, height int) ([]byte, error)
	}

	EventsSender interface {
		SendEvents(ctx context.Context, events []*entity.OutboxEvent) error
		Close() error
	}
)
