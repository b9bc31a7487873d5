package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyDeterministic(t *testing.T) {
	a := Key("https://example.com/page", 1200, 630)
	b := Key("https://example.com/page", 1200, 630)

	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestKeyEquivalentURLsCollapse(t *testing.T) {
	base := Key("https://example.com/page", 1200, 630)

	tests := []struct {
		name string
		url  string
	}{
		{"trailing slash", "https://example.com/page/"},
		{"upper-case host", "https://EXAMPLE.COM/page"},
		{"upper-case scheme", "HTTPS://example.com/page"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, base, Key(tt.url, 1200, 630))
		})
	}
}

func TestKeyDistinguishes(t *testing.T) {
	base := Key("https://example.com/page", 1200, 630)

	assert.NotEqual(t, base, Key("https://example.com/other", 1200, 630))
	assert.NotEqual(t, base, Key("https://example.com/page", 800, 630))
	assert.NotEqual(t, base, Key("https://example.com/page", 1200, 400))

	// path case is significant, only scheme and host fold
	assert.NotEqual(t, base, Key("https://example.com/PAGE", 1200, 630))
}

func TestKeyZeroDimensionsUseDefaults(t *testing.T) {
	assert.Equal(t,
		Key("https://example.com", 1200, 630),
		Key("https://example.com", 0, 0),
	)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lower-cases scheme and host", "HTTPS://Example.COM/Path", "https://example.com/Path"},
		{"strips trailing slash", "https://example.com/page/", "https://example.com/page"},
		{"keeps query", "https://example.com/page?a=1", "https://example.com/page?a=1"},
		{"bare host unchanged", "https://example.com", "https://example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}
