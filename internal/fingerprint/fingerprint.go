// Package fingerprint derives the deterministic cache key a render request
// is deduplicated and cached under.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
)

const (
	DefaultWidth  = 1200
	DefaultHeight = 630
)

// Key returns the fingerprint for a normalized (url, width, height) triple.
// It is pure: equal inputs always produce equal keys, across restarts.
// Zero or negative dimensions collapse to the defaults so that an explicit
// 1200x630 request and an all-defaults request share one artifact.
func Key(rawURL string, width, height int) string {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}

	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%d", Normalize(rawURL), width, height)))

	return hex.EncodeToString(sum[:])
}

// Normalize lower-cases the scheme and host and strips a trailing slash from
// the path, so that trivially different spellings of the same page do not
// fan out into separate renders. Unparseable input is passed through as-is;
// the facade rejects it before fingerprinting anyway.
func Normalize(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return rawURL
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Path = strings.TrimRight(u.Path, "/")

	return u.String()
}
