package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/trackfetch-go/internal/domain"
)

const validTrack = "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC"

// mockBackend implements Backend for controller tests
type mockBackend struct {
	*scriptedSource

	mu        sync.Mutex
	meta      *domain.TrackMetadata
	metaErr   error
	startErr  error
	jobIDs    []string
	metaCalls int
	jobCalls  int
}

func newMockBackend(snapshots ...*domain.ProgressSnapshot) *mockBackend {
	return &mockBackend{
		scriptedSource: &scriptedSource{snapshots: snapshots},
		meta:           &domain.TrackMetadata{Title: "Title: Mr. Brightside", Artist: "The Killers", Duration: "3:42"},
		jobIDs:         []string{"job-1", "job-2", "job-3"},
	}
}

func (m *mockBackend) FetchMetadata(ctx context.Context, link string) (*domain.TrackMetadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metaCalls++
	if m.metaErr != nil {
		return nil, m.metaErr
	}
	meta := *m.meta
	return &meta, nil
}

func (m *mockBackend) StartJob(ctx context.Context, req *domain.SourceRequest) (*domain.JobHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.startErr != nil {
		m.jobCalls++
		return nil, m.startErr
	}
	id := m.jobIDs[m.jobCalls%len(m.jobIDs)]
	m.jobCalls++
	return &domain.JobHandle{JobID: id}, nil
}

func (m *mockBackend) counts() (int, int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.metaCalls, m.jobCalls, m.scriptedSource.Calls()
}

// recordingView captures rendered output
type recordingView struct {
	mu        sync.Mutex
	previews  []*domain.TrackMetadata
	progress  []float64
	downloads []string
	fileNames []string
	resets    int
}

func (v *recordingView) RenderPreview(meta *domain.TrackMetadata) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.previews = append(v.previews, meta)
}

func (v *recordingView) SetProgress(percent float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.progress = append(v.progress, percent)
}

func (v *recordingView) ShowDownload(href, fileName string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.downloads = append(v.downloads, href)
	v.fileNames = append(v.fileNames, fileName)
}

func (v *recordingView) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.resets++
}

func (v *recordingView) resetCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.resets
}

// recordingNotifier holds success notices until ack is called
type recordingNotifier struct {
	mu      sync.Mutex
	notices []Notification
	pending []chan struct{}
}

func (n *recordingNotifier) Notify(notice Notification) <-chan struct{} {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)
	if notice.Kind != NotifySuccess {
		return Acknowledged()
	}
	ch := make(chan struct{})
	n.pending = append(n.pending, ch)
	return ch
}

func (n *recordingNotifier) ack() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, ch := range n.pending {
		close(ch)
	}
	n.pending = nil
}

func (n *recordingNotifier) kinds() []NotificationKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	kinds := make([]NotificationKind, 0, len(n.notices))
	for _, notice := range n.notices {
		kinds = append(kinds, notice.Kind)
	}
	return kinds
}

func (n *recordingNotifier) last() Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.notices[len(n.notices)-1]
}

type controllerFixture struct {
	backend    *mockBackend
	view       *recordingView
	notifier   *recordingNotifier
	media      *fakeMedia
	controller *Controller
}

func newControllerFixture(t *testing.T, backend *mockBackend) *controllerFixture {
	t.Helper()
	f := &controllerFixture{
		backend:  backend,
		view:     &recordingView{},
		notifier: &recordingNotifier{},
		media:    &fakeMedia{},
	}
	f.controller = NewController(ControllerOptions{
		Backend:  backend,
		View:     f.view,
		Notifier: f.notifier,
		Media:    f.media,
		Poll:     domain.PollConfig{Interval: testInterval},
	})
	t.Cleanup(f.controller.Close)
	return f
}

func waitOutcome(t *testing.T, c *Controller) (*Outcome, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return c.Wait(ctx)
}

func TestController_CompletedDownload(t *testing.T) {
	f := newControllerFixture(t, newMockBackend(
		&domain.ProgressSnapshot{Percent: 45},
		&domain.ProgressSnapshot{Percent: 45},
		&domain.ProgressSnapshot{Percent: 100, Completed: true, FileRef: "downloads/song.mp3"},
	))

	require.NoError(t, f.controller.Submit(context.Background(), validTrack, "Music"))
	assert.Equal(t, "job-1", f.controller.State().JobHandle.JobID)

	outcome, err := waitOutcome(t, f.controller)
	require.NoError(t, err)

	assert.Equal(t, "/downloads/song.mp3", outcome.Href)
	assert.Equal(t, "Mr. Brightside.mp3", outcome.FileName)
	assert.Equal(t, "job-1", outcome.JobID)

	f.view.mu.Lock()
	assert.Len(t, f.view.previews, 1)
	assert.Equal(t, []float64{45, 45, 100}, f.view.progress)
	assert.Equal(t, []string{"/downloads/song.mp3"}, f.view.downloads)
	assert.Equal(t, []string{"Mr. Brightside.mp3"}, f.view.fileNames)
	f.view.mu.Unlock()

	assert.Equal(t, []NotificationKind{NotifyInfo, NotifySuccess}, f.notifier.kinds())
	assert.Equal(t, PollCompleted, f.controller.PollState())

	state := f.controller.State()
	assert.Nil(t, state.JobHandle, "handle cleared at the terminal state")
	assert.Equal(t, "downloads/song.mp3", state.FileRef)
	assert.Equal(t, "/downloads/song.mp3", state.Href)
	assert.Equal(t, "/downloads/song.mp3", f.controller.Player().Armed())
	assert.Equal(t, 0, f.view.resetCount(), "no reset before acknowledgement")
}

func TestController_ResetsAfterAcknowledgement(t *testing.T) {
	f := newControllerFixture(t, newMockBackend(
		&domain.ProgressSnapshot{Percent: 100, Completed: true, FileRef: "downloads/song.mp3"},
	))

	require.NoError(t, f.controller.Submit(context.Background(), validTrack, "Music"))
	_, err := waitOutcome(t, f.controller)
	require.NoError(t, err)
	require.NoError(t, f.controller.Player().OnPlay())

	f.notifier.ack()

	require.Eventually(t, func() bool { return f.view.resetCount() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, SessionState{}, f.controller.State())
	assert.Empty(t, f.controller.Player().Armed())
	assert.Empty(t, f.media.Source())
}

func TestController_ValidationMakesNoNetworkCalls(t *testing.T) {
	tests := []struct {
		name        string
		url         string
		destination string
		expected    error
	}{
		{"empty url", "", "Music", domain.ErrEmptyURL},
		{"album link", "https://open.spotify.com/album/4uLU6hMCjMI75M1A2tKUQC", "Music", domain.ErrInvalidURLFormat},
		{"missing destination", validTrack, "  ", domain.ErrEmptyDestination},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newControllerFixture(t, newMockBackend())

			err := f.controller.Submit(context.Background(), tt.url, tt.destination)

			assert.ErrorIs(t, err, tt.expected)
			metaCalls, jobCalls, statusCalls := f.backend.counts()
			assert.Zero(t, metaCalls)
			assert.Zero(t, jobCalls)
			assert.Zero(t, statusCalls)
			assert.Equal(t, NotifyError, f.notifier.last().Kind)
			assert.Equal(t, PollIdle, f.controller.PollState())
		})
	}
}

func TestController_MetadataFailureStops(t *testing.T) {
	backend := newMockBackend()
	backend.metaErr = &domain.FetchError{Message: "invalid id"}
	f := newControllerFixture(t, backend)

	err := f.controller.Submit(context.Background(), validTrack, "Music")

	var fetchErr *domain.FetchError
	require.ErrorAs(t, err, &fetchErr)
	_, jobCalls, _ := backend.counts()
	assert.Zero(t, jobCalls)
	assert.Equal(t, "invalid id", f.notifier.last().Message)
	assert.Empty(t, f.view.previews)
}

func TestController_JobStartFailureStops(t *testing.T) {
	backend := newMockBackend()
	backend.startErr = &domain.JobError{Reason: domain.DefaultJobErrorReason}
	f := newControllerFixture(t, backend)

	err := f.controller.Submit(context.Background(), validTrack, "Music")

	var jobErr *domain.JobError
	require.ErrorAs(t, err, &jobErr)
	assert.Len(t, f.view.previews, 1, "preview rendered before the job start")
	assert.Nil(t, f.controller.State().JobHandle)
	assert.Equal(t, PollIdle, f.controller.PollState())

	_, err = f.controller.Wait(context.Background())
	assert.ErrorIs(t, err, ErrNoActiveJob)
}

func TestController_PollFailureKeepsForm(t *testing.T) {
	f := newControllerFixture(t, newMockBackend(
		&domain.ProgressSnapshot{Percent: 20},
		&domain.ProgressSnapshot{Error: "not found"},
	))

	require.NoError(t, f.controller.Submit(context.Background(), validTrack, "Music"))
	_, err := waitOutcome(t, f.controller)

	var pollErr *domain.PollError
	require.ErrorAs(t, err, &pollErr)
	assert.Equal(t, "not found", pollErr.Message)
	assert.Nil(t, f.controller.State().JobHandle)
	assert.Equal(t, NotifyError, f.notifier.last().Kind)
	assert.Equal(t, 0, f.view.resetCount(), "form left intact")

	calls := f.backend.scriptedSource.Calls()
	time.Sleep(5 * testInterval)
	assert.Equal(t, calls, f.backend.scriptedSource.Calls())
}

func TestController_SecondSubmitCancelsFirst(t *testing.T) {
	f := newControllerFixture(t, newMockBackend(&domain.ProgressSnapshot{Percent: 10}))

	require.NoError(t, f.controller.Submit(context.Background(), validTrack, "Music"))
	require.Eventually(t, func() bool { return f.backend.scriptedSource.Calls() >= 1 }, time.Second, time.Millisecond)

	f.controller.mu.Lock()
	first := f.controller.current
	f.controller.mu.Unlock()

	require.NoError(t, f.controller.Submit(context.Background(), validTrack, "Music"))

	select {
	case <-first.done:
	case <-time.After(time.Second):
		t.Fatal("first job was not released")
	}
	assert.ErrorIs(t, first.err, ErrSessionReset)
	assert.Equal(t, "job-2", f.controller.State().JobHandle.JobID)

	// late events from the first job are ignored
	(&runHandler{controller: f.controller, run: first}).OnCompleted(&domain.ProgressSnapshot{Completed: true, FileRef: "stale.mp3"})
	assert.Empty(t, f.controller.State().FileRef)
	assert.Equal(t, "job-2", f.controller.State().JobHandle.JobID)

	require.Eventually(t, func() bool {
		f.backend.scriptedSource.mu.Lock()
		defer f.backend.scriptedSource.mu.Unlock()
		ids := f.backend.scriptedSource.jobIDs
		return len(ids) > 0 && ids[len(ids)-1] == "job-2"
	}, time.Second, time.Millisecond)
}

func TestController_AcknowledgingReplacedJobKeepsNewSession(t *testing.T) {
	backend := newMockBackend(&domain.ProgressSnapshot{Percent: 100, Completed: true, FileRef: "downloads/song.mp3"})
	f := newControllerFixture(t, backend)

	require.NoError(t, f.controller.Submit(context.Background(), validTrack, "Music"))
	_, err := waitOutcome(t, f.controller)
	require.NoError(t, err)

	backend.scriptedSource.mu.Lock()
	backend.scriptedSource.snapshots = []*domain.ProgressSnapshot{{Percent: 5}}
	backend.scriptedSource.calls = 0
	backend.scriptedSource.mu.Unlock()

	f.notifier.mu.Lock()
	stale := f.notifier.pending
	f.notifier.pending = nil
	f.notifier.mu.Unlock()

	require.NoError(t, f.controller.Submit(context.Background(), validTrack, "Music"))
	for _, ch := range stale {
		close(ch)
	}

	time.Sleep(5 * testInterval)
	assert.Equal(t, 0, f.view.resetCount())
	require.NotNil(t, f.controller.State().JobHandle)
	assert.Equal(t, "job-2", f.controller.State().JobHandle.JobID)
}

func TestController_Reset(t *testing.T) {
	f := newControllerFixture(t, newMockBackend(&domain.ProgressSnapshot{Percent: 10}))

	require.NoError(t, f.controller.Submit(context.Background(), validTrack, "Music"))
	f.controller.Reset()

	_, err := waitOutcome(t, f.controller)
	assert.ErrorIs(t, err, ErrNoActiveJob)
	assert.Equal(t, SessionState{}, f.controller.State())
	assert.Equal(t, PollCancelled, f.controller.PollState())
	assert.Equal(t, 1, f.view.resetCount())
}

func TestController_CloseReleasesWaiters(t *testing.T) {
	f := newControllerFixture(t, newMockBackend(&domain.ProgressSnapshot{Percent: 10}))

	require.NoError(t, f.controller.Submit(context.Background(), validTrack, "Music"))

	go func() {
		time.Sleep(3 * testInterval)
		f.controller.Close()
	}()

	_, err := waitOutcome(t, f.controller)
	assert.ErrorIs(t, err, ErrSessionReset)

	require.Eventually(t, func() bool { return f.controller.PollState() == PollCancelled }, time.Second, time.Millisecond)
	calls := f.backend.scriptedSource.Calls()
	time.Sleep(5 * testInterval)
	assert.Equal(t, calls, f.backend.scriptedSource.Calls())
}

func TestController_CloseClearsJobHandle(t *testing.T) {
	f := newControllerFixture(t, newMockBackend(&domain.ProgressSnapshot{Percent: 10}))

	require.NoError(t, f.controller.Submit(context.Background(), validTrack, "Music"))
	require.NotNil(t, f.controller.State().JobHandle)

	f.controller.Close()

	assert.Nil(t, f.controller.State().JobHandle)
	_, err := waitOutcome(t, f.controller)
	assert.ErrorIs(t, err, ErrSessionReset)
}

func TestController_SubmitContextCancelled(t *testing.T) {
	f := newControllerFixture(t, newMockBackend(&domain.ProgressSnapshot{Percent: 10}))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, f.controller.Submit(ctx, validTrack, "Music"))
	require.Equal(t, "job-1", f.controller.State().JobHandle.JobID)
	cancel()

	wctx, wcancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer wcancel()
	_, err := f.controller.Wait(wctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, context.DeadlineExceeded)
	assert.Nil(t, f.controller.State().JobHandle)
	assert.Equal(t, PollCancelled, f.controller.PollState())

	calls := f.backend.scriptedSource.Calls()
	time.Sleep(5 * testInterval)
	assert.Equal(t, calls, f.backend.scriptedSource.Calls())
}

func TestController_WaitHonoursContext(t *testing.T) {
	f := newControllerFixture(t, newMockBackend(&domain.ProgressSnapshot{Percent: 10}))

	require.NoError(t, f.controller.Submit(context.Background(), validTrack, "Music"))

	ctx, cancel := context.WithTimeout(context.Background(), 3*testInterval)
	defer cancel()
	_, err := f.controller.Wait(ctx)

	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
