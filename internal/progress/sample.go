package progress

import (
	"time"

	"github.com/rescale/courier/internal/constants"
)

// Sample is one (bytes, time) observation of a transfer.
type Sample struct {
	Bytes int64
	At    time.Time
}

// Snapshot is a rendered view of a transfer at one point in time.
type Snapshot struct {
	Current    int64
	TotalBytes int64   // <= 0 when unknown
	Known      bool    // false: percentage and bar must be omitted
	Percent    float64 // clamped to [0,100]
	Bar        string
	Done       string // human-readable Current
	Total      string // human-readable TotalBytes, empty when unknown
	Rate       float64
	Speed      string
}

// Compute derives a Snapshot from the current byte count, the previous
// rendered sample and the total size (<= 0 if unknown). It is a pure function.
func Compute(current int64, prev Sample, now time.Time, total int64) Snapshot {
	snap := Snapshot{
		Current:    current,
		TotalBytes: total,
		Done:       FormatSize(current),
	}

	elapsed := now.Sub(prev.At).Seconds()
	if elapsed > 0 && current > prev.Bytes {
		snap.Rate = float64(current-prev.Bytes) / elapsed
	}
	snap.Speed = FormatSpeed(snap.Rate)

	if total > 0 {
		snap.Known = true
		snap.Percent = Clamp(float64(current) * 100 / float64(total))
		snap.Bar = Bar(snap.Percent, constants.ProgressBarWidth)
		snap.Total = FormatSize(total)
	}

	return snap
}

// Throttle suppresses renders closer together than Interval. The zero Last
// lets the first sample through immediately.
type Throttle struct {
	Interval time.Duration
	Last     time.Time
}

// Allow reports whether a render at now is permitted and, if so, records it.
func (t *Throttle) Allow(now time.Time) bool {
	if !t.Last.IsZero() && now.Sub(t.Last) < t.Interval {
		return false
	}
	t.Last = now
	return true
}

// Sampler pairs a Throttle with the previous rendered sample. Create one per
// transfer; it is not safe for concurrent use.
type Sampler struct {
	throttle Throttle
	prev     Sample
	total    int64
}

// NewSampler starts a sampler at start. The first render is allowed once
// interval has elapsed from start.
func NewSampler(total int64, interval time.Duration, start time.Time) *Sampler {
	return &Sampler{
		throttle: Throttle{Interval: interval, Last: start},
		prev:     Sample{At: start},
		total:    total,
	}
}

// Observe records current bytes at now and returns a snapshot when a render
// is due.
func (s *Sampler) Observe(current int64, now time.Time) (Snapshot, bool) {
	if !s.throttle.Allow(now) {
		return Snapshot{}, false
	}
	snap := Compute(current, s.prev, now, s.total)
	s.prev = Sample{Bytes: current, At: now}
	return snap, true
}
