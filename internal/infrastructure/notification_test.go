package infrastructure

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/trackfetch-go/internal/domain"
)

type recordedCommand struct {
	name string
	args []string
}

func recordingRunner(calls *[]recordedCommand, err error) CommandRunner {
	return func(name string, args ...string) error {
		*calls = append(*calls, recordedCommand{name: name, args: args})
		return err
	}
}

func TestNotificationService_Disabled(t *testing.T) {
	var calls []recordedCommand
	svc := NewNotificationService(&domain.NotificationConfig{Enabled: false, Method: "notify-send"}, nil).
		WithRunner(recordingRunner(&calls, nil))

	require.NoError(t, svc.Send("title", "message"))
	assert.Empty(t, calls)
}

func TestNotificationService_NotifySend(t *testing.T) {
	var calls []recordedCommand
	svc := NewNotificationService(&domain.NotificationConfig{Enabled: true, Method: "notify-send"}, nil).
		WithRunner(recordingRunner(&calls, nil))

	svc.NotifyJobCompleted(&domain.Job{Title: "Mr. Brightside", Artist: "The Killers"})

	require.Len(t, calls, 1)
	assert.Equal(t, "notify-send", calls[0].name)
	assert.Equal(t, []string{"--app-name=trackfetch", "Download Completed", "Mr. Brightside - The Killers"}, calls[0].args)
}

func TestNotificationService_OSAScriptEscapes(t *testing.T) {
	var calls []recordedCommand
	svc := NewNotificationService(&domain.NotificationConfig{Enabled: true, Method: "osascript", Sound: true}, nil).
		WithRunner(recordingRunner(&calls, nil))

	svc.NotifyJobFailed(&domain.Job{URL: "https://open.spotify.com/track/x"}, errors.New(`bad "quote"`))

	require.Len(t, calls, 1)
	assert.Equal(t, "osascript", calls[0].name)
	assert.Contains(t, calls[0].args[1], `bad \"quote\"`)
	assert.Contains(t, calls[0].args[1], `sound name "Glass"`)
}

func TestNotificationService_RunnerError(t *testing.T) {
	var calls []recordedCommand
	svc := NewNotificationService(&domain.NotificationConfig{Enabled: true, Method: "notify-send"}, nil).
		WithRunner(recordingRunner(&calls, errors.New("not installed")))

	assert.Error(t, svc.Send("t", "m"))
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", truncateString("short", 10))
	assert.Equal(t, "abc...", truncateString("abcdef", 3))
	assert.Equal(t, "Beyo...", truncateString("Beyoncé", 4))
}
