package main

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/trackfetch-go/internal/app"
	"github.com/yourusername/trackfetch-go/internal/domain"
	"go.uber.org/zap"
)

func TestTerminalNotifier_SuccessWaitsForAcknowledge(t *testing.T) {
	var out bytes.Buffer
	n := newTerminalNotifier(&out, strings.NewReader("\n"), true, nil)

	info := n.Notify(app.Notification{Kind: app.NotifyInfo, Title: "Download started", Message: "wait"})
	select {
	case <-info:
	default:
		t.Fatal("info notices should not wait")
	}

	ack := n.Notify(app.Notification{Kind: app.NotifySuccess, Title: "Download complete", Message: "song.mp3"})
	select {
	case <-ack:
		t.Fatal("success notice acknowledged before Acknowledge")
	default:
	}

	n.Acknowledge()
	<-ack

	assert.Contains(t, out.String(), "[success] Download complete: song.mp3")
	assert.Contains(t, out.String(), "Press Enter")
}

func TestTerminalNotifier_NoPrompt(t *testing.T) {
	var out bytes.Buffer
	n := newTerminalNotifier(&out, strings.NewReader(""), false, nil)

	ack := n.Notify(app.Notification{Kind: app.NotifySuccess, Title: "Download complete"})
	n.Acknowledge()
	<-ack
	assert.NotContains(t, out.String(), "Press Enter")

	// nothing pending is a no-op
	n.Acknowledge()
}

func TestPlaybackCode(t *testing.T) {
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	exitErr := exec.Command("false").Run()
	require.Error(t, exitErr)

	tests := []struct {
		name   string
		ctx    context.Context
		err    error
		stderr string
		want   int
	}{
		{"aborted", cancelled, errors.New("signal: killed"), "", domain.MediaErrAborted},
		{"missing player", context.Background(), exec.ErrNotFound, "", domain.MediaErrSrcNotSupported},
		{"network", context.Background(), exitErr, "http://x: Connection refused", domain.MediaErrNetwork},
		{"decode", context.Background(), exitErr, "Invalid data found when processing input", domain.MediaErrDecode},
		{"other exit", context.Background(), exitErr, "", domain.MediaErrDecode},
		{"unknown", context.Background(), errors.New("boom"), "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, playbackCode(tt.ctx, tt.err, tt.stderr))
		})
	}
}

func TestCommandMedia_MissingBinary(t *testing.T) {
	media := newCommandMedia(context.Background(), "trackfetch-no-such-player", nil,
		func(href string) string { return "http://localhost:5000" + href }, zap.NewNop())

	media.SetSource("/download/Music/song.mp3")
	err := media.Load()

	var playErr *domain.PlaybackError
	require.ErrorAs(t, err, &playErr)
	assert.Equal(t, domain.PlaybackBrowserIncompatible, playErr.Category)
}

func TestTerminalView(t *testing.T) {
	var out bytes.Buffer
	v := newTerminalView(&out)

	v.SetProgress(10) // before a preview there is no bar
	v.RenderPreview(&domain.TrackMetadata{Title: "Mr. Brightside", Artist: "The Killers", Duration: "3:42"})
	v.SetProgress(45)
	v.ShowDownload("/download/Music/Mr. Brightside.mp3", "Mr. Brightside.mp3")
	v.Reset()

	assert.Contains(t, out.String(), domain.TitleLabel+"Mr. Brightside")
	assert.Contains(t, out.String(), "Ready: Mr. Brightside.mp3")
}
