package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/trackfetch-go/internal/domain"
	"go.uber.org/zap"
)

type fakeQueue struct {
	jobs    map[string]*domain.Job
	addErr  error
	running bool
}

func (f *fakeQueue) AddJob(url, folder string) (*domain.Job, error) {
	if !domain.IsSupportedSource(url) {
		return nil, domain.ErrUnsupportedSource
	}
	if _, err := domain.DestinationFolder(folder); err != nil {
		return nil, err
	}
	if f.addErr != nil {
		return nil, f.addErr
	}
	job := domain.NewJob(url, folder)
	f.jobs[job.ID] = job
	return job, nil
}

func (f *fakeQueue) GetJob(id string) (*domain.Job, error) {
	if job, ok := f.jobs[id]; ok {
		return job, nil
	}
	return nil, domain.ErrJobNotFound
}

func (f *fakeQueue) ListJobs(filters map[string]interface{}) ([]*domain.Job, error) {
	var jobs []*domain.Job
	for _, job := range f.jobs {
		if status, ok := filters["status"]; ok && string(job.Status) != status {
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (f *fakeQueue) GetStats() (*domain.JobStats, error) {
	return &domain.JobStats{Total: int64(len(f.jobs))}, nil
}

func (f *fakeQueue) IsRunning() bool { return f.running }

type fakeTracks struct {
	baseDir string
	meta    *domain.TrackMetadata
	err     error
}

func (f *fakeTracks) Lookup(ctx context.Context, url string) (*domain.TrackMetadata, error) {
	return f.meta, f.err
}

func (f *fakeTracks) ArtifactPath(ref string) (string, error) {
	ref = strings.TrimLeft(ref, "/")
	if ref == "" || strings.Contains(ref, "..") {
		return "", domain.ErrInvalidArtifactPath
	}
	return filepath.Join(f.baseDir, filepath.FromSlash(ref)), nil
}

func newTestRouter(queue *fakeQueue, tracks *fakeTracks) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewJobHandler(queue, tracks, zap.NewNop())

	r := gin.New()
	r.GET("/get_metadata", h.GetMetadata)
	r.POST("/download", h.StartJob)
	r.GET("/progress", h.Progress)
	r.GET("/download/*file", h.ServeArtifact)
	r.GET("/jobs", h.ListJobs)
	r.GET("/jobs/stats", h.GetStats)
	return r
}

func perform(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

const track = "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC"

func TestGetMetadata(t *testing.T) {
	meta := &domain.TrackMetadata{Title: "Mr. Brightside", Artist: "The Killers", Duration: "3:42"}

	t.Run("missing url", func(t *testing.T) {
		w := perform(newTestRouter(&fakeQueue{}, &fakeTracks{meta: meta}), http.MethodGet, "/get_metadata", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.NotEmpty(t, decode(t, w)["error"])
	})

	t.Run("lookup error", func(t *testing.T) {
		w := perform(newTestRouter(&fakeQueue{}, &fakeTracks{err: errors.New("invalid id")}), http.MethodGet, "/get_metadata?url=x", "")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "invalid id", decode(t, w)["error"])
	})

	t.Run("ok", func(t *testing.T) {
		w := perform(newTestRouter(&fakeQueue{}, &fakeTracks{meta: meta}), http.MethodGet, "/get_metadata?url="+track, "")
		assert.Equal(t, http.StatusOK, w.Code)
		body := decode(t, w)
		assert.Equal(t, "Mr. Brightside", body["title"])
		assert.Equal(t, "The Killers", body["artist"])
		assert.Equal(t, "3:42", body["duration"])
	})
}

func TestStartJob(t *testing.T) {
	queue := &fakeQueue{jobs: map[string]*domain.Job{}}
	r := newTestRouter(queue, &fakeTracks{})

	w := perform(r, http.MethodPost, "/download", `{"url":"https://example.com/song","folder":"Music"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, domain.ErrUnsupportedSource.Error(), decode(t, w)["error"])

	for _, folder := range []string{"..", " .. ", "."} {
		w = perform(r, http.MethodPost, "/download", `{"url":"`+track+`","folder":"`+folder+`"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code, folder)
		assert.Equal(t, domain.ErrInvalidFolder.Error(), decode(t, w)["error"])
	}
	assert.Empty(t, queue.jobs)

	w = perform(r, http.MethodPost, "/download", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = perform(r, http.MethodPost, "/download", `{"url":"`+track+`","folder":"Music"}`)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	id, _ := body["download_id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, "Music", queue.jobs[id].Folder)

	queue.addErr = errors.New("disk full")
	w = perform(r, http.MethodPost, "/download", `{"url":"`+track+`","folder":"Music"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestProgress(t *testing.T) {
	job := domain.NewJob(track, "Music")
	job.MarkCompleted("/tmp/x.mp3", "download/Music/x.mp3", "Download complete!")
	failed := domain.NewJob(track, "Music")
	failed.MarkFailed(errors.New("yt-dlp failed"))

	r := newTestRouter(&fakeQueue{jobs: map[string]*domain.Job{job.ID: job, failed.ID: failed}}, &fakeTracks{})

	w := perform(r, http.MethodGet, "/progress", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = perform(r, http.MethodGet, "/progress?download_id=unknown", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = perform(r, http.MethodGet, "/progress?download_id="+job.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(100), body["progress"])
	assert.Equal(t, true, body["completed"])
	assert.Equal(t, "download/Music/x.mp3", body["fileUrl"])
	assert.NotContains(t, body, "error")

	w = perform(r, http.MethodGet, "/progress?download_id="+failed.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Equal(t, false, body["completed"])
	assert.Equal(t, "yt-dlp failed", body["error"])
}

func TestServeArtifact(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "Music"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Music", "song.mp3"), []byte("ID3data"), 0644))

	r := newTestRouter(&fakeQueue{}, &fakeTracks{baseDir: dir})

	w := perform(r, http.MethodGet, "/download/Music/song.mp3", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "audio/mpeg", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "song.mp3")
	assert.Equal(t, "ID3data", w.Body.String())

	for _, target := range []string{"/download/Music/missing.mp3", "/download/Music", "/download/..%2Fsecret"} {
		w = perform(r, http.MethodGet, target, "")
		assert.Equal(t, http.StatusNotFound, w.Code, target)
	}
}

func TestListJobsAndStats(t *testing.T) {
	queued := domain.NewJob(track, "A")
	done := domain.NewJob(track, "B")
	done.MarkCompleted("", "", "")
	r := newTestRouter(&fakeQueue{jobs: map[string]*domain.Job{queued.ID: queued, done.ID: done}}, &fakeTracks{})

	w := perform(r, http.MethodGet, "/jobs?status=completed", "")
	require.Equal(t, http.StatusOK, w.Code)
	var jobs []domain.Job
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &jobs))
	require.Len(t, jobs, 1)
	assert.Equal(t, done.ID, jobs[0].ID)

	w = perform(r, http.MethodGet, "/jobs/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), decode(t, w)["total"])
}
