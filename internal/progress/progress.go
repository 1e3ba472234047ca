// Package progress turns byte counters into human-readable transfer status
// and renders it for the terminal.
package progress

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"github.com/rescale/courier/internal/constants"
)

// Phase names the leg of a transfer being reported.
type Phase string

const (
	PhaseDownloading Phase = "downloading"
	PhaseStaged      Phase = "staged" // download finished, upload not started
	PhaseUploading   Phase = "uploading"
)

// Update is one progress report for a running transfer.
type Update struct {
	Phase       Phase
	FileName    string
	Destination string // "Telegram" or the remote name
	Snapshot    Snapshot
	ETA         string // external tool estimate, empty when not available
}

// Reporter receives progress updates. Report is called synchronously from the
// transfer, so updates are delivered in order.
type Reporter interface {
	Report(ctx context.Context, u Update) error
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(ctx context.Context, u Update) error

// Report calls f.
func (f ReporterFunc) Report(ctx context.Context, u Update) error {
	return f(ctx, u)
}

// CLIProgress implements Reporter for terminal output using progress bars.
// One bar is drawn per phase.
type CLIProgress struct {
	mu     sync.Mutex
	out    io.Writer
	bar    *progressbar.ProgressBar
	phase  Phase
	isTerm bool
}

// NewCLIProgress creates a terminal reporter writing to stderr.
func NewCLIProgress() *CLIProgress {
	return NewCLIProgressTo(os.Stderr, term.IsTerminal(int(os.Stderr.Fd())))
}

// NewCLIProgressTo creates a reporter on an arbitrary writer. When isTerm is
// false, bars are replaced with one line per update.
func NewCLIProgressTo(out io.Writer, isTerm bool) *CLIProgress {
	return &CLIProgress{out: out, isTerm: isTerm}
}

// Report draws the update.
func (p *CLIProgress) Report(_ context.Context, u Update) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.isTerm {
		_, err := fmt.Fprintln(p.out, Line(u))
		return err
	}

	if p.bar == nil || p.phase != u.Phase {
		p.finishLocked()
		p.phase = u.Phase
		p.bar = p.newBar(u)
	}
	return p.bar.Set64(u.Snapshot.Current)
}

func (p *CLIProgress) newBar(u Update) *progressbar.ProgressBar {
	total := u.Snapshot.TotalBytes
	if total <= 0 {
		total = -1 // spinner
	}
	return progressbar.NewOptions64(total,
		progressbar.OptionSetDescription(fmt.Sprintf("%s %s", u.Phase, TruncateName(u.FileName, constants.DisplayNameLen))),
		progressbar.OptionSetWriter(p.out),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(100),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(p.out, "\n")
		}),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetRenderBlankState(true),
	)
}

// Finish completes the current bar.
func (p *CLIProgress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.finishLocked()
}

func (p *CLIProgress) finishLocked() {
	if p.bar != nil {
		_ = p.bar.Finish()
		p.bar = nil
	}
}

// Error displays an error message below the bar.
func (p *CLIProgress) Error(err error) {
	if err != nil {
		fmt.Fprintf(p.out, "\nError: %v\n", err)
	}
}

// Line renders an update as a single plain-text line.
func Line(u Update) string {
	s := u.Snapshot
	line := fmt.Sprintf("%s %s: %s", u.Phase, u.FileName, s.Done)
	if s.Known {
		line += fmt.Sprintf(" / %s (%.1f%%)", s.Total, s.Percent)
	}
	line += " " + s.Speed
	if u.ETA != "" {
		line += " ETA " + u.ETA
	}
	return line
}

// NoOpProgress is a reporter that does nothing.
type NoOpProgress struct{}

// Report does nothing.
func (NoOpProgress) Report(context.Context, Update) error { return nil }

// ProgressReader wraps an io.Reader and calls onRead with the running byte
// count after every read.
type ProgressReader struct {
	reader  io.Reader
	onRead  func(current int64)
	current int64
}

// NewProgressReader creates a counting reader.
func NewProgressReader(reader io.Reader, onRead func(current int64)) *ProgressReader {
	return &ProgressReader{reader: reader, onRead: onRead}
}

// Read implements io.Reader with progress reporting.
func (pr *ProgressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	if n > 0 {
		pr.current += int64(n)
		if pr.onRead != nil {
			pr.onRead(pr.current)
		}
	}
	return n, err
}

// Current returns the number of bytes read so far.
func (pr *ProgressReader) Current() int64 {
	return pr.current
}
