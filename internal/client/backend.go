package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yourusername/trackfetch-go/internal/domain"
	"go.uber.org/zap"
)

// Backend talks to the job server's HTTP contract
type Backend struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *zap.Logger
}

// NewBackend creates a client for the server at serverURL
func NewBackend(serverURL string, timeout time.Duration, logger *zap.Logger) (*Backend, error) {
	base, err := url.Parse(strings.TrimRight(serverURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("invalid server url: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Backend{
		baseURL:    base,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

type metadataResponse struct {
	domain.TrackMetadata
	Error string `json:"error"`
}

// FetchMetadata looks up the preview metadata for a track link
func (b *Backend) FetchMetadata(ctx context.Context, link string) (*domain.TrackMetadata, error) {
	// A double-encoded link is decoded once; the query builder re-encodes it.
	decoded, err := url.QueryUnescape(link)
	if err != nil {
		decoded = link
	}

	endpoint := b.endpoint("get_metadata", url.Values{"url": {decoded}})

	var body metadataResponse
	status, err := b.getJSON(ctx, endpoint, &body)
	if err != nil {
		return nil, &domain.FetchError{Message: err.Error()}
	}
	if body.Error != "" {
		return nil, &domain.FetchError{Message: body.Error}
	}
	if status != http.StatusOK {
		return nil, &domain.FetchError{Message: fmt.Sprintf("unexpected status %d", status)}
	}

	b.logger.Debug("Metadata received",
		zap.String("title", body.Title),
		zap.String("artist", body.Artist))

	meta := body.TrackMetadata
	return &meta, nil
}

type startJobResponse struct {
	Success    bool   `json:"success"`
	DownloadID string `json:"download_id"`
	Error      string `json:"error"`
}

// StartJob submits a download and returns the job handle
func (b *Backend) StartJob(ctx context.Context, req *domain.SourceRequest) (*domain.JobHandle, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, &domain.JobError{Reason: err.Error()}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint("download", nil), bytes.NewReader(data))
	if err != nil {
		return nil, &domain.JobError{Reason: err.Error()}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(httpReq)
	if err != nil {
		return nil, &domain.JobError{Reason: err.Error()}
	}
	defer resp.Body.Close()

	var body startJobResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &domain.JobError{Reason: fmt.Sprintf("invalid response: %v", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 || body.DownloadID == "" {
		reason := body.Error
		if reason == "" {
			reason = domain.DefaultJobErrorReason
		}
		return nil, &domain.JobError{Reason: reason}
	}

	b.logger.Info("Download job started", zap.String("download_id", body.DownloadID))
	return &domain.JobHandle{JobID: body.DownloadID}, nil
}

// JobStatus queries the current progress of a job. A server-reported error is
// returned inside the snapshot; transport and decode failures are returned as errors.
func (b *Backend) JobStatus(ctx context.Context, jobID string) (*domain.ProgressSnapshot, error) {
	endpoint := b.endpoint("progress", url.Values{"download_id": {jobID}})

	var snap domain.ProgressSnapshot
	status, err := b.getJSON(ctx, endpoint, &snap)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK && snap.Error == "" {
		return nil, fmt.Errorf("unexpected status %d", status)
	}

	return &snap, nil
}

// Healthy reports whether the server answers its health check
func (b *Backend) Healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.endpoint("health", nil), nil)
	if err != nil {
		return false
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// ArtifactURL resolves an artifact href against the server address
func (b *Backend) ArtifactURL(href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return b.baseURL.String() + strings.TrimLeft(href, "/")
	}
	return b.baseURL.ResolveReference(ref).String()
}

// OpenArtifact starts retrieving an artifact; the caller closes the body
func (b *Backend) OpenArtifact(ctx context.Context, href string) (io.ReadCloser, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.ArtifactURL(href), nil)
	if err != nil {
		return nil, 0, err
	}

	// Artifacts can be large; the per-request timeout does not apply.
	resp, err := (&http.Client{Transport: b.httpClient.Transport}).Do(req)
	if err != nil {
		return nil, 0, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, 0, fmt.Errorf("artifact request failed: HTTP %d", resp.StatusCode)
	}

	return resp.Body, resp.ContentLength, nil
}

func (b *Backend) endpoint(path string, query url.Values) string {
	u := *b.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + "/" + path
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// getJSON performs a GET and decodes the body regardless of status code
func (b *Backend) getJSON(ctx context.Context, endpoint string, out interface{}) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, err
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("invalid response: %w", err)
	}

	return resp.StatusCode, nil
}
