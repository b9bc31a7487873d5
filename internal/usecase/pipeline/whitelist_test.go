package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWhitelistEmptyAllowsAll(t *testing.T) {
	wl := NewWhitelist(nil)

	assert.True(t, wl.IsAllowed("example.com"))
	assert.True(t, wl.IsAllowed("anything.at.all"))
}

func TestWhitelist(t *testing.T) {
	wl := NewWhitelist([]string{"example.com", "Kactica.COM"})

	tests := []struct {
		name string
		host string
		want bool
	}{
		{"exact match", "example.com", true},
		{"subdomain", "blog.example.com", true},
		{"nested subdomain", "a.b.example.com", true},
		{"case-insensitive host", "EXAMPLE.com", true},
		{"case-insensitive entry", "kactica.com", true},
		{"other domain", "evil.com", false},
		{"suffix but not subdomain", "notexample.com", false},
		{"empty host", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, wl.IsAllowed(tt.host))
		})
	}
}
