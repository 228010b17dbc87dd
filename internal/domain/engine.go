package domain

import "context"

// TrackCatalog looks up track metadata by link
type TrackCatalog interface {
	// Lookup returns the metadata for a track link
	Lookup(ctx context.Context, url string) (*TrackMetadata, error)
}

// ProgressFunc receives the fraction (0..1) of the media transfer completed
type ProgressFunc func(fraction float64)

// MediaEngine retrieves and encodes audio for a track
type MediaEngine interface {
	// Fetch downloads the best audio match for query into outputPath
	Fetch(ctx context.Context, jobID, query, outputPath string, progress ProgressFunc) error
}

// TrackTagger writes descriptive tags into a finished media file
type TrackTagger interface {
	Tag(ctx context.Context, path string, meta *TrackMetadata) error
}
