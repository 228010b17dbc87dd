package main

import (
	"bufio"
	"fmt"
	"io"
	"sync"

	"github.com/yourusername/trackfetch-go/internal/app"
	"github.com/yourusername/trackfetch-go/internal/infrastructure"
)

// terminalNotifier prints notices. Success notices stay pending until
// Acknowledge is called, which is when the controller resets the session.
type terminalNotifier struct {
	out     io.Writer
	in      io.Reader
	prompt  bool
	desktop *infrastructure.NotificationService

	mu      sync.Mutex
	pending []chan struct{}
}

func newTerminalNotifier(out io.Writer, in io.Reader, prompt bool, desktop *infrastructure.NotificationService) *terminalNotifier {
	return &terminalNotifier{
		out:     out,
		in:      in,
		prompt:  prompt,
		desktop: desktop,
	}
}

func (n *terminalNotifier) Notify(note app.Notification) <-chan struct{} {
	fmt.Fprintf(n.out, "[%s] %s: %s\n", note.Kind, note.Title, note.Message)

	if note.Kind != app.NotifyInfo {
		// desktop delivery is best effort; Send logs its own failures
		_ = n.desktop.Send(note.Title, note.Message)
	}

	if note.Kind != app.NotifySuccess {
		return app.Acknowledged()
	}

	ack := make(chan struct{})
	n.mu.Lock()
	n.pending = append(n.pending, ack)
	n.mu.Unlock()
	return ack
}

// Acknowledge dismisses every pending success notice, waiting for Enter when prompting
func (n *terminalNotifier) Acknowledge() {
	n.mu.Lock()
	pending := n.pending
	n.pending = nil
	n.mu.Unlock()

	if len(pending) == 0 {
		return
	}

	if n.prompt {
		fmt.Fprint(n.out, "Press Enter to finish... ")
		_, _ = bufio.NewReader(n.in).ReadString('\n')
	}

	for _, ack := range pending {
		close(ack)
	}
}
