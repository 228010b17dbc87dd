package infrastructure

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bogem/id3v2"
	"github.com/yourusername/trackfetch-go/internal/domain"
	"go.uber.org/zap"
)

// maxCoverBytes caps the album art embedded in a file
const maxCoverBytes = 5 << 20

// ID3Tagger implements domain.TrackTagger by writing ID3v2 frames
type ID3Tagger struct {
	client *http.Client
	logger *zap.Logger
}

// NewID3Tagger creates a tagger; cover art is fetched with a short timeout
func NewID3Tagger(logger *zap.Logger) *ID3Tagger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ID3Tagger{
		client: &http.Client{Timeout: 15 * time.Second},
		logger: logger,
	}
}

// Tag writes title, artist and front cover into the mp3 at path.
// A cover that cannot be fetched is skipped.
func (t *ID3Tagger) Tag(ctx context.Context, path string, meta *domain.TrackMetadata) error {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("failed to open %s for tagging: %w", path, err)
	}
	defer tag.Close()

	tag.SetDefaultEncoding(id3v2.EncodingUTF8)
	tag.SetTitle(meta.Title)
	tag.SetArtist(meta.Artist)

	if meta.CoverURL != "" {
		cover, mime, err := t.fetchCover(ctx, meta.CoverURL)
		if err != nil {
			t.logger.Warn("Cover art skipped", zap.String("cover", meta.CoverURL), zap.Error(err))
		} else {
			tag.DeleteFrames(tag.CommonID("Attached picture"))
			tag.AddAttachedPicture(id3v2.PictureFrame{
				Encoding:    id3v2.EncodingUTF8,
				MimeType:    mime,
				PictureType: id3v2.PTFrontCover,
				Description: "Front cover",
				Picture:     cover,
			})
		}
	}

	if err := tag.Save(); err != nil {
		return fmt.Errorf("failed to save tags: %w", err)
	}
	return nil
}

func (t *ID3Tagger) fetchCover(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("cover request failed: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxCoverBytes))
	if err != nil {
		return nil, "", err
	}

	mime := resp.Header.Get("Content-Type")
	if mime == "" {
		mime = http.DetectContentType(data)
	}
	return data, mime, nil
}
