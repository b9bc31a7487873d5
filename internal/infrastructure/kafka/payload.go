package kafka

import "github.com/google/uuid"

// Event types published for task lifecycle transitions.
const (
	EventScreenshotCompleted = "screenshot.completed"
	EventScreenshotFailed    = "screenshot.failed"
)

type ScreenshotEventPayload struct {
	Type         string    `json:"type"`
	TaskID       uuid.UUID `json:"task_id"`
	Fingerprint  string    `json:"fingerprint"`
	URL          string    `json:"url"`
	ImageURL     string    `json:"image_url,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	TTLSeconds   int64     `json:"ttl_seconds,omitempty"`
}
