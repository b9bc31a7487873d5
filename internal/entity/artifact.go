package entity

import "time"

// Artifact is a stored rendered image plus the metadata needed to decide
// freshness. The blob itself lives in S3; this record is the lookup side.
type Artifact struct {
	Fingerprint string        `json:"fingerprint"`
	URL         string        `json:"url"`
	StoredAt    time.Time     `json:"stored_at"`
	TTL         time.Duration `json:"ttl"`
}

// Fresh reports whether the artifact is still usable at the given instant.
// The boundary itself counts as expired.
func (a Artifact) Fresh(now time.Time) bool {
	return now.Before(a.StoredAt.Add(a.TTL))
}
