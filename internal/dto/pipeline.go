package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/kactica/og-image-generator/internal/entity"
)

// RenderRequest is a validated generation request. Zero Width/Height/TTL
// mean "use configured defaults"; the facade resolves them before
// fingerprinting.
type RenderRequest struct {
	URL          string
	Width        int
	Height       int
	TTL          time.Duration
	ForceRefresh bool
}

const (
	ResultCached     = "cached"
	ResultProcessing = "processing"
)

// PipelineResult is the immediate answer to a generation request: either a
// fresh artifact URL or the task to poll.
type PipelineResult struct {
	Status   string
	ImageURL string
	TaskID   uuid.UUID
}

type TaskStatus struct {
	Status       entity.Status
	ImageURL     *string
	ErrorMessage *string
}
