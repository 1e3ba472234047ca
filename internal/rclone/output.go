package rclone

import (
	"bytes"
	"sync"

	"github.com/rescale/courier/internal/constants"
)

// lineWriter splits a byte stream into lines on either '\n' or '\r' and hands
// each non-empty line to fn. rclone --progress redraws its block with '\r'.
type lineWriter struct {
	buf []byte
	fn  func(line string)
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexAny(w.buf, "\r\n")
		if i < 0 {
			break
		}
		w.emit(w.buf[:i])
		w.buf = w.buf[i+1:]
	}
	// guard against a producer that never terminates a line
	if len(w.buf) > 64*1024 {
		w.emit(w.buf)
		w.buf = w.buf[:0]
	}
	return len(p), nil
}

// Flush emits any trailing partial line.
func (w *lineWriter) Flush() {
	if len(w.buf) > 0 {
		w.emit(w.buf)
		w.buf = nil
	}
}

func (w *lineWriter) emit(b []byte) {
	if len(bytes.TrimSpace(b)) == 0 {
		return
	}
	w.fn(string(b))
}

// tailBuffer keeps the last n lines written to it, each cut to max bytes.
type tailBuffer struct {
	mu    sync.Mutex
	n     int
	max   int
	lines []string
	w     *lineWriter
}

func newTailBuffer() *tailBuffer {
	t := &tailBuffer{n: constants.StderrTailLines, max: constants.StderrLineMax}
	t.w = &lineWriter{fn: t.add}
	return t
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.w.Write(p)
}

func (t *tailBuffer) add(line string) {
	line = StripANSI(line)
	if len(line) > t.max {
		line = line[:t.max]
	}
	t.lines = append(t.lines, line)
	if len(t.lines) > t.n {
		t.lines = t.lines[len(t.lines)-t.n:]
	}
}

// Lines returns the retained tail, including a trailing partial line.
func (t *tailBuffer) Lines() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.w.Flush()
	out := make([]string, len(t.lines))
	copy(out, t.lines)
	return out
}
