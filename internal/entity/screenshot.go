package entity

import (
	"time"

	"github.com/google/uuid"
)

// Screenshot is one unit of rendering work. A row is created on a cache miss,
// mutated only by the worker that claimed it and never resurrected once
// terminal: a later request for the same page gets a fresh row.
type Screenshot struct {
	ID          uuid.UUID `json:"id"`
	Fingerprint string    `json:"fingerprint"`

	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`

	S3Path       *string `json:"s3_path,omitempty"`
	Status       Status  `json:"status"` // pending, processing, completed, failed
	ErrorMessage *string `json:"error_message,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
