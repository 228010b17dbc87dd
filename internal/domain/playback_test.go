package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyPlayback(t *testing.T) {
	tests := []struct {
		code     int
		expected PlaybackCategory
	}{
		{MediaErrAborted, PlaybackUserCancelled},
		{MediaErrNetwork, PlaybackNetwork},
		{MediaErrDecode, PlaybackUnsupportedFormat},
		{MediaErrSrcNotSupported, PlaybackBrowserIncompatible},
		{0, PlaybackUnknown},
		{5, PlaybackUnknown},
		{-1, PlaybackUnknown},
	}

	for _, tt := range tests {
		t.Run(string(tt.expected), func(t *testing.T) {
			assert.Equal(t, tt.expected, ClassifyPlayback(tt.code))
		})
	}
}

func TestPlaybackError_Message(t *testing.T) {
	err := NewPlaybackError(MediaErrNetwork)

	assert.Equal(t, PlaybackNetwork, err.Category)
	assert.Equal(t, "Network error. Check your connection.", err.Error())
	assert.Equal(t, "Unknown error while playing the audio.", NewPlaybackError(42).Error())
}
