package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// TitleLabel prefixes the title in the preview and is stripped when naming the file
const TitleLabel = "Title: "

// MediaExtension is appended to every downloaded artifact
const MediaExtension = ".mp3"

// TrackMetadata describes a track for the preview
type TrackMetadata struct {
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	Duration   string `json:"duration"`
	CoverURL   string `json:"cover,omitempty"`
	PreviewURL string `json:"preview_url,omitempty"`
}

// DisplayTitle is the labelled title shown in the preview
func (m *TrackMetadata) DisplayTitle() string {
	return TitleLabel + m.Title
}

// DownloadFileName derives the saved file name from a (possibly labelled) title
func DownloadFileName(title string) string {
	return strings.Replace(title, TitleLabel, "", 1) + MediaExtension
}

var unsafeFileChars = regexp.MustCompile(`[<>:"/\\|?*]`)

// SanitizeFileName drops characters that are not allowed in file names
func SanitizeFileName(name string) string {
	return strings.TrimSpace(unsafeFileChars.ReplaceAllString(name, ""))
}

// DestinationFolder sanitizes a folder name and rejects names that would not
// name a directory below the download root
func DestinationFolder(folder string) (string, error) {
	name := SanitizeFileName(folder)
	switch name {
	case "", ".", "..":
		return "", ErrInvalidFolder
	}
	return name, nil
}

// ExpectedFileName is the name the server stores a finished track under
func ExpectedFileName(title, artist string) string {
	return SanitizeFileName(fmt.Sprintf("%s - %s%s", title, artist, MediaExtension))
}

// FormatDuration renders milliseconds as m:ss
func FormatDuration(ms int) string {
	return fmt.Sprintf("%d:%02d", ms/60000, (ms/1000)%60)
}
