package infrastructure

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuoteArg(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", "''"},
		{"plain flag", "--no-playlist", "--no-playlist"},
		{"plain path", "/tmp/music/job.%(ext)s", "'/tmp/music/job.%(ext)s'"},
		{"spaces", "/tmp/My Music", "'/tmp/My Music'"},
		{"single quote", "Don't Stop", `'Don'"'"'t Stop'`},
		{"double quotes", `ytsearch1:"Song Artist official audio"`, `'ytsearch1:"Song Artist official audio"'`},
		{"dollar", "$HOME", "'$HOME'"},
		{"unicode", "Beyoncé", "Beyoncé"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, QuoteArg(tt.input))
		})
	}
}

func TestCommandLine(t *testing.T) {
	line := CommandLine("yt-dlp", "--newline", "-o", "/tmp/a b/%(ext)s", `ytsearch1:"x y"`)

	assert.Equal(t, `yt-dlp --newline -o '/tmp/a b/%(ext)s' 'ytsearch1:"x y"'`, line)
}
