package canonical

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain link", "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC", "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC"},
		{"share suffix", "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC?si=abc123", "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC"},
		{"localized path", "https://open.spotify.com/intl-de/track/4uLU6hMCjMI75M1A2tKUQC?si=x", "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC"},
		{"uri", "spotify:track:4uLU6hMCjMI75M1A2tKUQC", "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC"},
		{"no scheme", "open.spotify.com/track/abc", "https://open.spotify.com/track/abc"},
		{"opaque text", "Never Gonna Give You Up", "Never Gonna Give You Up"},
		{"album link", "https://open.spotify.com/album/1234", "https://open.spotify.com/album/1234"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Canonicalize(tt.input)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, Canonicalize(got), "must be idempotent")
		})
	}
}

func TestTrackID(t *testing.T) {
	id, ok := TrackID("https://open.spotify.com/track/abcDEF123?si=1")
	assert.True(t, ok)
	assert.Equal(t, "abcDEF123", id)

	_, ok = TrackID("just a search query")
	assert.False(t, ok)
}

func TestKey(t *testing.T) {
	a := Key("https://open.spotify.com/track/abc")
	b := Key(Canonicalize("https://open.spotify.com/track/abc?si=zzz"))
	assert.Equal(t, a, b)
	assert.NotContains(t, a, "=")
	assert.NotContains(t, a, "/")
	assert.NotEqual(t, a, Key("https://open.spotify.com/track/abd"))
}
