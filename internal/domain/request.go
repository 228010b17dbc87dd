package domain

import (
	"regexp"
	"strings"
)

// trackURLPattern accepts Spotify track links with an optional locale segment and query suffix
var trackURLPattern = regexp.MustCompile(`^(https://(open|www)\.spotify\.com/(intl-\w+/)?track/[a-zA-Z0-9]{22})(\?.*)?$`)

// SourceRequest is a validated submission
type SourceRequest struct {
	URL         string `json:"url"`
	Destination string `json:"folder"`
}

// Validate normalizes and checks a submission before any network call.
// Checks run in order: empty link, link format, empty destination.
func Validate(url, destination string) (*SourceRequest, error) {
	url = strings.TrimSpace(url)
	destination = strings.TrimSpace(destination)

	if url == "" {
		return nil, ErrEmptyURL
	}
	if !trackURLPattern.MatchString(url) {
		return nil, ErrInvalidURLFormat
	}
	if destination == "" {
		return nil, ErrEmptyDestination
	}

	return &SourceRequest{URL: url, Destination: destination}, nil
}

// IsSupportedSource is the looser check the server applies to incoming job requests
func IsSupportedSource(url string) bool {
	return url != "" && strings.Contains(url, "open.spotify.com")
}

// TrackID extracts the track identifier: the last path segment without its query
func TrackID(url string) string {
	segment := url
	if i := strings.LastIndex(segment, "/"); i >= 0 {
		segment = segment[i+1:]
	}
	if i := strings.Index(segment, "?"); i >= 0 {
		segment = segment[:i]
	}
	return segment
}
