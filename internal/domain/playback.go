package domain

// Media error codes reported by a playback engine
const (
	MediaErrAborted         = 1
	MediaErrNetwork         = 2
	MediaErrDecode          = 3
	MediaErrSrcNotSupported = 4
)

// PlaybackCategory is the user-facing class of a playback failure
type PlaybackCategory string

const (
	PlaybackUserCancelled       PlaybackCategory = "user-cancelled"
	PlaybackNetwork             PlaybackCategory = "network"
	PlaybackUnsupportedFormat   PlaybackCategory = "unsupported-format"
	PlaybackBrowserIncompatible PlaybackCategory = "browser-incompatible"
	PlaybackUnknown             PlaybackCategory = "unknown"
)

var playbackMessages = map[PlaybackCategory]string{
	PlaybackUserCancelled:       "Playback cancelled by the user.",
	PlaybackNetwork:             "Network error. Check your connection.",
	PlaybackUnsupportedFormat:   "Audio format not supported.",
	PlaybackBrowserIncompatible: "The file is not compatible with your player.",
	PlaybackUnknown:             "Unknown error while playing the audio.",
}

// ClassifyPlayback maps a media error code to its category
func ClassifyPlayback(code int) PlaybackCategory {
	switch code {
	case MediaErrAborted:
		return PlaybackUserCancelled
	case MediaErrNetwork:
		return PlaybackNetwork
	case MediaErrDecode:
		return PlaybackUnsupportedFormat
	case MediaErrSrcNotSupported:
		return PlaybackBrowserIncompatible
	default:
		return PlaybackUnknown
	}
}

// PlaybackError is surfaced to the user and never affects job state
type PlaybackError struct {
	Code     int
	Category PlaybackCategory
}

// NewPlaybackError classifies a media error code
func NewPlaybackError(code int) *PlaybackError {
	return &PlaybackError{Code: code, Category: ClassifyPlayback(code)}
}

func (e *PlaybackError) Error() string {
	return playbackMessages[e.Category]
}
