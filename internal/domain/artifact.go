package domain

import "strings"

// ResolveArtifact joins the application base path and a server-reported file URL.
// A leading slash on fileURL is not doubled, so "downloads/a.mp3" and
// "/downloads/a.mp3" both resolve to "/downloads/a.mp3" under base "/".
func ResolveArtifact(basePath, fileURL string) string {
	if basePath == "" {
		basePath = "/"
	}
	if !strings.HasSuffix(basePath, "/") {
		basePath += "/"
	}
	return basePath + strings.TrimLeft(fileURL, "/")
}
