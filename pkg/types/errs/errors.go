package errs

import "errors"

var (
	ErrRecordNotFound = errors.New("record not found")

	// Request validation.
	ErrInvalidURL       = errors.New("invalid or unsupported url")
	ErrDomainNotAllowed = errors.New("domain is not allowed")

	// Dedup coordination.
	ErrTaskConflict = errors.New("active task already exists for fingerprint")
	ErrDedupFailed  = errors.New("failed to acquire or join render task")

	// Render failures, recorded on the task.
	ErrRenderTimeout = errors.New("render timed out")

	ErrStorageUnavailable = errors.New("storage unavailable")
)
