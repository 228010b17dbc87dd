package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/yourusername/trackfetch-go/internal/domain"
	"go.uber.org/zap"
)

var (
	// ErrSessionReset is returned to waiters whose job was replaced, reset or closed
	ErrSessionReset = errors.New("download session was reset")

	// ErrNoActiveJob is returned by Wait when nothing has been submitted
	ErrNoActiveJob = errors.New("no active download")
)

// Backend is the job server contract used by the controller
type Backend interface {
	FetchMetadata(ctx context.Context, link string) (*domain.TrackMetadata, error)
	StartJob(ctx context.Context, req *domain.SourceRequest) (*domain.JobHandle, error)
	StatusSource
}

// View renders the controller's progress to the user
type View interface {
	RenderPreview(meta *domain.TrackMetadata)
	SetProgress(percent float64)
	ShowDownload(href, fileName string)
	Reset()
}

// SessionState is the controller's record of the active download
type SessionState struct {
	JobHandle *domain.JobHandle
	FileRef   string
	Href      string
}

// Outcome describes a completed download
type Outcome struct {
	JobID    string
	FileRef  string
	Href     string
	FileName string
	Metadata *domain.TrackMetadata
}

type jobRun struct {
	handle domain.JobHandle
	meta   *domain.TrackMetadata

	once    sync.Once
	done    chan struct{}
	outcome *Outcome
	err     error
}

func newJobRun(handle domain.JobHandle, meta *domain.TrackMetadata) *jobRun {
	return &jobRun{
		handle: handle,
		meta:   meta,
		done:   make(chan struct{}),
	}
}

func (r *jobRun) finish(outcome *Outcome, err error) {
	r.once.Do(func() {
		r.outcome = outcome
		r.err = err
		close(r.done)
	})
}

// Controller drives one download session from submission to acknowledgement
type Controller struct {
	backend  Backend
	view     View
	notifier Notifier
	poller   *Poller
	player   *Player
	basePath string
	logger   *zap.Logger

	mu      sync.Mutex
	state   SessionState
	current *jobRun

	closeOnce sync.Once
	closing   chan struct{}
}

// ControllerOptions configures a Controller
type ControllerOptions struct {
	Backend  Backend
	View     View
	Notifier Notifier
	Media    MediaElement
	Poll     domain.PollConfig
	BasePath string
	Logger   *zap.Logger
}

// NewController creates a controller with its own poller and player
func NewController(opts ControllerOptions) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	basePath := opts.BasePath
	if basePath == "" {
		basePath = "/"
	}

	return &Controller{
		backend:  opts.Backend,
		view:     opts.View,
		notifier: opts.Notifier,
		poller:   NewPoller(opts.Backend, opts.Poll, logger),
		player:   NewPlayer(opts.Media, opts.Notifier, logger),
		basePath: basePath,
		logger:   logger,
		closing:  make(chan struct{}),
	}
}

// Submit validates the input, previews the track, starts the job and begins
// polling. It returns once polling has started; use Wait for the result.
// Cancelling ctx stops polling, clears the job handle and releases Wait
// with the context's error.
func (c *Controller) Submit(ctx context.Context, link, destination string) error {
	req, err := domain.Validate(link, destination)
	if err != nil {
		c.logger.Debug("Submission rejected", zap.Error(err))
		c.notifyError("Invalid input", err)
		return err
	}

	meta, err := c.backend.FetchMetadata(ctx, req.URL)
	if err != nil {
		c.logger.Warn("Metadata lookup failed", zap.String("url", req.URL), zap.Error(err))
		c.notifyError("Could not load track", err)
		return fmt.Errorf("failed to fetch metadata: %w", err)
	}

	c.view.RenderPreview(meta)

	handle, err := c.backend.StartJob(ctx, req)
	if err != nil {
		c.logger.Warn("Job start failed", zap.String("url", req.URL), zap.Error(err))
		c.notifyError("Download failed", err)
		return err
	}

	// The previous poll stops before the new handle becomes current.
	c.poller.Cancel()

	run := newJobRun(*handle, meta)
	c.mu.Lock()
	prev := c.current
	c.current = run
	c.state = SessionState{JobHandle: handle}
	c.mu.Unlock()

	if prev != nil {
		prev.finish(nil, ErrSessionReset)
	}

	if err := c.poller.Start(ctx, *handle, &runHandler{controller: c, run: run}); err != nil {
		c.mu.Lock()
		if c.current == run {
			c.state.JobHandle = nil
		}
		c.mu.Unlock()
		c.notifyError("Download failed", err)
		run.finish(nil, err)
		return err
	}

	c.logger.Info("Download started",
		zap.String("download_id", handle.JobID),
		zap.String("title", meta.Title),
		zap.String("folder", req.Destination))

	c.notifier.Notify(Notification{
		Kind:    NotifyInfo,
		Title:   "Download started",
		Message: "Your download has started. Please wait...",
	})
	return nil
}

// Wait blocks until the current job completes, fails or is replaced
func (c *Controller) Wait(ctx context.Context) (*Outcome, error) {
	c.mu.Lock()
	run := c.current
	c.mu.Unlock()

	if run == nil {
		return nil, ErrNoActiveJob
	}

	select {
	case <-run.done:
		return run.outcome, run.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// State returns a copy of the session state
func (c *Controller) State() SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()

	state := c.state
	if state.JobHandle != nil {
		handle := *state.JobHandle
		state.JobHandle = &handle
	}
	return state
}

// PollState reports the state of the controller's poller
func (c *Controller) PollState() PollState {
	return c.poller.State()
}

// Player returns the player armed with completed downloads
func (c *Controller) Player() *Player {
	return c.player
}

// Reset stops polling and clears the session, player and form
func (c *Controller) Reset() {
	c.poller.Cancel()

	c.mu.Lock()
	run := c.current
	c.current = nil
	c.state = SessionState{}
	c.mu.Unlock()

	c.player.Clear()
	c.view.Reset()

	if run != nil {
		run.finish(nil, ErrSessionReset)
	}
}

// Close cancels polling and drops the job handle; pending acknowledgements
// no longer reset the session
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		close(c.closing)
	})
	c.poller.Cancel()

	c.mu.Lock()
	run := c.current
	c.state.JobHandle = nil
	c.mu.Unlock()

	if run != nil {
		run.finish(nil, ErrSessionReset)
	}
}

func (c *Controller) isCurrent(run *jobRun) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current == run
}

func (c *Controller) complete(run *jobRun, snapshot *domain.ProgressSnapshot) {
	fileName := domain.DownloadFileName(run.meta.Title)
	href := domain.ResolveArtifact(c.basePath, snapshot.FileRef)

	c.mu.Lock()
	if c.current != run {
		c.mu.Unlock()
		return
	}
	c.state.JobHandle = nil
	c.state.FileRef = snapshot.FileRef
	c.state.Href = href
	c.mu.Unlock()

	c.view.ShowDownload(href, fileName)
	c.player.Arm(href)

	ack := c.notifier.Notify(Notification{
		Kind:    NotifySuccess,
		Title:   "Download complete",
		Message: fmt.Sprintf("%s is ready to play or download", fileName),
	})

	run.finish(&Outcome{
		JobID:    run.handle.JobID,
		FileRef:  snapshot.FileRef,
		Href:     href,
		FileName: fileName,
		Metadata: run.meta,
	}, nil)

	go c.resetOnAcknowledge(run, ack)
}

func (c *Controller) resetOnAcknowledge(run *jobRun, ack <-chan struct{}) {
	select {
	case <-ack:
	case <-c.closing:
		return
	}

	c.mu.Lock()
	if c.current != run {
		c.mu.Unlock()
		return
	}
	c.current = nil
	c.state = SessionState{}
	c.mu.Unlock()

	c.player.Clear()
	c.view.Reset()
	c.logger.Debug("Session reset after acknowledgement", zap.String("download_id", run.handle.JobID))
}

func (c *Controller) fail(run *jobRun, err error) {
	c.mu.Lock()
	if c.current != run {
		c.mu.Unlock()
		return
	}
	c.state.JobHandle = nil
	c.mu.Unlock()

	c.notifyError("Download failed", err)
	run.finish(nil, err)
}

// abandon releases a job whose polling was cut short by the submit context
func (c *Controller) abandon(run *jobRun, err error) {
	c.mu.Lock()
	if c.current != run {
		c.mu.Unlock()
		return
	}
	c.state.JobHandle = nil
	c.mu.Unlock()

	c.logger.Info("Download abandoned",
		zap.String("download_id", run.handle.JobID),
		zap.Error(err))
	run.finish(nil, err)
}

func (c *Controller) notifyError(title string, err error) {
	c.notifier.Notify(Notification{
		Kind:    NotifyError,
		Title:   title,
		Message: err.Error(),
	})
}

// runHandler routes poll events for one job; events from a replaced job are dropped
type runHandler struct {
	controller *Controller
	run        *jobRun
}

func (h *runHandler) OnProgress(percent float64) {
	if h.controller.isCurrent(h.run) {
		h.controller.view.SetProgress(percent)
	}
}

func (h *runHandler) OnCompleted(snapshot *domain.ProgressSnapshot) {
	h.controller.complete(h.run, snapshot)
}

func (h *runHandler) OnFailed(err error) {
	h.controller.fail(h.run, err)
}

func (h *runHandler) OnCancelled(err error) {
	h.controller.abandon(h.run, err)
}
