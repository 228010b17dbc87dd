package main

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/yourusername/trackfetch-go/internal/domain"
	"github.com/yourusername/trackfetch-go/internal/infrastructure"
)

// commandMedia plays artifacts with an external player such as ffplay
type commandMedia struct {
	ctx     context.Context
	binary  string
	args    []string
	resolve func(href string) string
	logger  *zap.Logger

	mu     sync.Mutex
	source string
}

func newCommandMedia(ctx context.Context, binary string, args []string, resolve func(string) string, logger *zap.Logger) *commandMedia {
	return &commandMedia{
		ctx:     ctx,
		binary:  binary,
		args:    args,
		resolve: resolve,
		logger:  logger,
	}
}

func (m *commandMedia) Source() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.source
}

func (m *commandMedia) SetSource(src string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.source = src
}

// Load plays the current source to the end
func (m *commandMedia) Load() error {
	src := m.Source()
	if src == "" {
		return domain.NewPlaybackError(domain.MediaErrSrcNotSupported)
	}

	args := append(append([]string{}, m.args...), m.resolve(src))
	m.logger.Debug("Starting player", zap.String("command", infrastructure.CommandLine(m.binary, args...)))

	var stderr bytes.Buffer
	cmd := exec.CommandContext(m.ctx, m.binary, args...)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		code := playbackCode(m.ctx, err, stderr.String())
		m.logger.Debug("Player exited", zap.Error(err), zap.Int("code", code), zap.String("stderr", stderr.String()))
		return domain.NewPlaybackError(code)
	}
	return nil
}

// playbackCode maps a player failure to a media error code
func playbackCode(ctx context.Context, err error, stderr string) int {
	if ctx.Err() != nil {
		return domain.MediaErrAborted
	}
	if errors.Is(err, exec.ErrNotFound) {
		return domain.MediaErrSrcNotSupported
	}

	out := strings.ToLower(stderr)
	switch {
	case strings.Contains(out, "connection refused"),
		strings.Contains(out, "server returned"),
		strings.Contains(out, "timed out"):
		return domain.MediaErrNetwork
	case strings.Contains(out, "invalid data"),
		strings.Contains(out, "could not find codec"):
		return domain.MediaErrDecode
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return domain.MediaErrDecode
	}
	return 0
}
