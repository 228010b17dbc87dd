package app

import (
	"errors"
	"sync"

	"github.com/yourusername/trackfetch-go/internal/domain"
	"go.uber.org/zap"
)

// ErrNothingToPlay is returned by OnPlay before an artifact has been armed
var ErrNothingToPlay = errors.New("no downloaded file to play")

// MediaElement is the playback engine. Load may return a *domain.PlaybackError
// carrying the engine's error code.
type MediaElement interface {
	Source() string
	SetSource(src string)
	Load() error
}

// Player lazily assigns the finished artifact to a media element on first play
type Player struct {
	media    MediaElement
	notifier Notifier
	logger   *zap.Logger

	mu    sync.Mutex
	armed string
}

// NewPlayer creates a player around a media element
func NewPlayer(media MediaElement, notifier Notifier, logger *zap.Logger) *Player {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Player{
		media:    media,
		notifier: notifier,
		logger:   logger,
	}
}

// Arm records the artifact to play without loading it
func (p *Player) Arm(href string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.armed = href
}

// Armed returns the artifact href waiting for playback
func (p *Player) Armed() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.armed
}

// Clear forgets the armed artifact and detaches the media source
func (p *Player) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.armed = ""
	if p.media != nil {
		p.media.SetSource("")
	}
}

// OnPlay assigns and loads the armed artifact. Once the source is assigned,
// further calls do not load it again.
func (p *Player) OnPlay() error {
	p.mu.Lock()
	href := p.armed
	if href == "" || p.media == nil {
		p.mu.Unlock()
		return ErrNothingToPlay
	}
	if p.media.Source() == href {
		p.mu.Unlock()
		return nil
	}
	p.media.SetSource(href)
	p.mu.Unlock()

	p.logger.Debug("Loading audio", zap.String("href", href))

	if err := p.media.Load(); err != nil {
		var playErr *domain.PlaybackError
		if errors.As(err, &playErr) {
			return p.OnError(playErr.Code)
		}
		return p.OnError(0)
	}
	return nil
}

// OnError reports a playback failure. Errors raised while no source is
// assigned are ignored. Session state is never touched.
func (p *Player) OnError(code int) error {
	p.mu.Lock()
	hasSource := p.media != nil && p.media.Source() != ""
	p.mu.Unlock()

	if !hasSource {
		return nil
	}

	playErr := domain.NewPlaybackError(code)
	p.logger.Warn("Playback failed",
		zap.Int("code", code),
		zap.String("category", string(playErr.Category)))

	if p.notifier != nil {
		p.notifier.Notify(Notification{
			Kind:    NotifyError,
			Title:   "Playback error",
			Message: playErr.Error(),
		})
	}
	return playErr
}
