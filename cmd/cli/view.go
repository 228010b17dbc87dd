package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/schollz/progressbar/v3"

	"github.com/yourusername/trackfetch-go/internal/domain"
)

// terminalView renders the controller's preview and progress on a terminal
type terminalView struct {
	out io.Writer

	mu  sync.Mutex
	bar *progressbar.ProgressBar
}

func newTerminalView(out io.Writer) *terminalView {
	return &terminalView{out: out}
}

func (v *terminalView) RenderPreview(meta *domain.TrackMetadata) {
	v.mu.Lock()
	defer v.mu.Unlock()

	fmt.Fprintln(v.out, meta.DisplayTitle())
	fmt.Fprintf(v.out, "  Artist:   %s\n", meta.Artist)
	fmt.Fprintf(v.out, "  Duration: %s\n", meta.Duration)
	if meta.CoverURL != "" {
		fmt.Fprintf(v.out, "  Cover:    %s\n", meta.CoverURL)
	}
	if meta.PreviewURL != "" {
		fmt.Fprintf(v.out, "  Preview:  %s\n", meta.PreviewURL)
	}

	v.bar = progressbar.NewOptions(100,
		progressbar.OptionSetWriter(v.out),
		progressbar.OptionSetDescription("Downloading"),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

func (v *terminalView) SetProgress(percent float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.bar != nil {
		_ = v.bar.Set(int(percent))
	}
}

func (v *terminalView) ShowDownload(href, fileName string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.bar != nil {
		_ = v.bar.Finish()
		fmt.Fprintln(v.out)
	}
	fmt.Fprintf(v.out, "Ready: %s (%s)\n", fileName, href)
}

func (v *terminalView) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.bar != nil {
		_ = v.bar.Clear()
		v.bar = nil
	}
}
