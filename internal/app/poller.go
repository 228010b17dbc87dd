package app

import (
	"context"
	"sync"
	"time"

	"github.com/yourusername/trackfetch-go/internal/domain"
	"go.uber.org/zap"
)

// PollState is the lifecycle state of one polling run
type PollState int

const (
	PollIdle PollState = iota
	PollPolling
	PollCompleted
	PollFailed
	PollCancelled
)

func (s PollState) String() string {
	switch s {
	case PollIdle:
		return "idle"
	case PollPolling:
		return "polling"
	case PollCompleted:
		return "completed"
	case PollFailed:
		return "failed"
	case PollCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether no further ticks follow this state
func (s PollState) IsTerminal() bool {
	return s == PollCompleted || s == PollFailed || s == PollCancelled
}

// StatusSource answers job status queries
type StatusSource interface {
	JobStatus(ctx context.Context, jobID string) (*domain.ProgressSnapshot, error)
}

// PollHandler receives the events of a polling run. OnCompleted, OnFailed and
// OnCancelled are terminal and at most one of them is called per run.
// OnCancelled fires when the context passed to Start ends the run; nothing is
// called after Cancel.
type PollHandler interface {
	OnProgress(percent float64)
	OnCompleted(snapshot *domain.ProgressSnapshot)
	OnFailed(err error)
	OnCancelled(err error)
}

type pollRun struct {
	jobID    string
	state    PollState
	attempts int
	cancel   context.CancelFunc
	done     chan struct{}
}

// Poller queries job status on a fixed interval until a terminal snapshot.
// Ticks are serialized: a tick that fires while a query is outstanding is dropped.
type Poller struct {
	source StatusSource
	config domain.PollConfig
	logger *zap.Logger

	mu  sync.Mutex
	run *pollRun
}

// NewPoller creates a poller for the given status source
func NewPoller(source StatusSource, config domain.PollConfig, logger *zap.Logger) *Poller {
	if config.Interval <= 0 {
		config.Interval = time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		source: source,
		config: config,
		logger: logger,
	}
}

// Start begins polling for a job, cancelling any run already in progress.
// An empty job id leaves the poller cancelled and returns a PollError.
func (p *Poller) Start(ctx context.Context, handle domain.JobHandle, handler PollHandler) error {
	runCtx, cancel := context.WithCancel(ctx)
	run := &pollRun{
		jobID:  handle.JobID,
		state:  PollPolling,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	p.mu.Lock()
	if prev := p.run; prev != nil {
		p.cancelLocked(prev)
	}
	p.run = run

	if handle.JobID == "" {
		run.state = PollCancelled
		cancel()
		close(run.done)
		p.mu.Unlock()
		return &domain.PollError{Err: domain.ErrMissingJobID}
	}
	p.mu.Unlock()

	p.logger.Debug("Polling started",
		zap.String("download_id", handle.JobID),
		zap.Duration("interval", p.config.Interval))

	go p.loop(runCtx, run, handler)
	return nil
}

// Cancel stops the current run; no further ticks fire afterwards
func (p *Poller) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.run != nil {
		p.cancelLocked(p.run)
	}
}

func (p *Poller) cancelLocked(run *pollRun) {
	if run.state == PollPolling {
		run.state = PollCancelled
		p.logger.Debug("Polling cancelled", zap.String("download_id", run.jobID))
	}
	run.cancel()
}

// State returns the state of the most recent run
func (p *Poller) State() PollState {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.run == nil {
		return PollIdle
	}
	return p.run.state
}

// Attempts returns the number of status queries issued by the most recent run
func (p *Poller) Attempts() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.run == nil {
		return 0
	}
	return p.run.attempts
}

// Done is closed when the most recent run's goroutine has exited
func (p *Poller) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.run == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return p.run.done
}

func (p *Poller) loop(ctx context.Context, run *pollRun, handler PollHandler) {
	defer close(run.done)

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	started := time.Now()

	for {
		select {
		case <-ctx.Done():
			p.abandon(ctx, run, handler)
			return
		case <-ticker.C:
		}

		if err := p.checkCeiling(run, started); err != nil {
			if p.transition(run, PollFailed) {
				p.logger.Warn("Polling gave up",
					zap.String("download_id", run.jobID),
					zap.Int("attempts", run.attempts),
					zap.Duration("elapsed", time.Since(started)))
				handler.OnFailed(&domain.PollError{JobID: run.jobID, Err: err})
			}
			return
		}

		p.mu.Lock()
		run.attempts++
		p.mu.Unlock()

		snapshot, err := p.source.JobStatus(ctx, run.jobID)
		if ctx.Err() != nil {
			p.abandon(ctx, run, handler)
			return
		}

		switch {
		case err != nil:
			if p.transition(run, PollFailed) {
				p.logger.Error("Progress check failed", zap.String("download_id", run.jobID), zap.Error(err))
				handler.OnFailed(&domain.PollError{JobID: run.jobID, Err: err})
			}
			return

		case snapshot.Failed():
			if p.transition(run, PollFailed) {
				p.logger.Warn("Job reported an error",
					zap.String("download_id", run.jobID),
					zap.String("error", snapshot.Error))
				handler.OnFailed(&domain.PollError{JobID: run.jobID, Message: snapshot.Error})
			}
			return

		case snapshot.Completed:
			if p.transition(run, PollCompleted) {
				p.logger.Info("Job completed",
					zap.String("download_id", run.jobID),
					zap.String("file_url", snapshot.FileRef))
				handler.OnProgress(snapshot.Percent)
				handler.OnCompleted(snapshot)
			}
			return

		default:
			if !p.isPolling(run) {
				return
			}
			p.logger.Debug("Progress received",
				zap.String("download_id", run.jobID),
				zap.Float64("progress", snapshot.Percent),
				zap.String("debug", snapshot.Debug))
			handler.OnProgress(snapshot.Percent)
		}
	}
}

// abandon ends a run whose context was cancelled. A run stopped by Cancel has
// already left Polling, so only the caller's context reaches the handler.
func (p *Poller) abandon(ctx context.Context, run *pollRun, handler PollHandler) {
	if !p.transition(run, PollCancelled) {
		return
	}
	p.logger.Debug("Polling context ended",
		zap.String("download_id", run.jobID),
		zap.Error(ctx.Err()))
	handler.OnCancelled(ctx.Err())
}

func (p *Poller) checkCeiling(run *pollRun, started time.Time) error {
	p.mu.Lock()
	attempts := run.attempts
	p.mu.Unlock()

	if p.config.MaxAttempts > 0 && attempts >= p.config.MaxAttempts {
		return domain.ErrPollTimeout
	}
	if p.config.MaxDuration > 0 && time.Since(started) >= p.config.MaxDuration {
		return domain.ErrPollTimeout
	}
	return nil
}

// transition moves a polling run to a terminal state; false when it already left Polling
func (p *Poller) transition(run *pollRun, state PollState) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if run.state != PollPolling {
		return false
	}
	run.state = state
	return true
}

func (p *Poller) isPolling(run *pollRun) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return run.state == PollPolling
}
