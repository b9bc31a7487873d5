package entity

type Status string

const (
	Pending    Status = "pending"
	Processing Status = "processing"
	Completed  Status = "completed"
	Failed     Status = "failed"
)

// Terminal reports whether no further transition may leave the status.
func (s Status) Terminal() bool {
	return s == Completed || s == Failed
}

// Active reports whether a task in this status still blocks creation of a
// new task for the same fingerprint.
func (s Status) Active() bool {
	return s == Pending || s == Processing
}
