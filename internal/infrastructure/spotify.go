package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/yourusername/trackfetch-go/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/oauth2/clientcredentials"
)

// ErrMissingCredentials is returned when no Spotify client credentials are configured
var ErrMissingCredentials = errors.New("spotify client credentials not configured")

// SpotifyCatalog implements domain.TrackCatalog with the Spotify Web API
type SpotifyCatalog struct {
	config *domain.SpotifyConfig
	client *http.Client
	logger *zap.Logger
}

// NewSpotifyCatalog creates a catalog authenticated with the client credentials flow
func NewSpotifyCatalog(ctx context.Context, config *domain.SpotifyConfig, logger *zap.Logger) *SpotifyCatalog {
	if logger == nil {
		logger = zap.NewNop()
	}

	creds := &clientcredentials.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		TokenURL:     config.TokenURL,
	}

	return &SpotifyCatalog{
		config: config,
		client: creds.Client(ctx),
		logger: logger,
	}
}

type spotifyTrack struct {
	Name       string `json:"name"`
	DurationMS int    `json:"duration_ms"`
	PreviewURL string `json:"preview_url"`
	Artists    []struct {
		Name string `json:"name"`
	} `json:"artists"`
	Album struct {
		Images []struct {
			URL string `json:"url"`
		} `json:"images"`
	} `json:"album"`
}

type spotifyError struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// Lookup fetches track metadata for a Spotify track link
func (s *SpotifyCatalog) Lookup(ctx context.Context, url string) (*domain.TrackMetadata, error) {
	if s.config.ClientID == "" || s.config.ClientSecret == "" {
		return nil, ErrMissingCredentials
	}

	id := domain.TrackID(url)
	if id == "" {
		return nil, fmt.Errorf("no track id in %q", url)
	}

	endpoint := strings.TrimRight(s.config.APIBaseURL, "/") + "/tracks/" + id
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("spotify request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr spotifyError
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error.Message != "" {
			return nil, fmt.Errorf("spotify: %s", apiErr.Error.Message)
		}
		return nil, fmt.Errorf("spotify: unexpected status %d", resp.StatusCode)
	}

	var track spotifyTrack
	if err := json.NewDecoder(resp.Body).Decode(&track); err != nil {
		return nil, fmt.Errorf("spotify: invalid response: %w", err)
	}

	s.logger.Debug("Track looked up", zap.String("track_id", id), zap.String("title", track.Name))
	return track.metadata(), nil
}

func (t *spotifyTrack) metadata() *domain.TrackMetadata {
	artists := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		artists = append(artists, a.Name)
	}

	meta := &domain.TrackMetadata{
		Title:      t.Name,
		Artist:     strings.Join(artists, ", "),
		Duration:   domain.FormatDuration(t.DurationMS),
		PreviewURL: t.PreviewURL,
	}
	if len(t.Album.Images) > 0 {
		meta.CoverURL = t.Album.Images[0].URL
	}
	return meta
}
