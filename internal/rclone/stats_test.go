package rclone

import (
	"strings"
	"testing"
)

func TestParseStats(t *testing.T) {
	tests := []struct {
		name        string
		line        string
		wantOK      bool
		transferred int64
		total       int64
		eta         string
	}{
		{
			name:        "mebibytes",
			line:        "Transferred:   \t    1.500 MiB / 10 MiB, 15%, 1.500 MiB/s, ETA 5s",
			wantOK:      true,
			transferred: 1572864,
			total:       10 << 20,
			eta:         "5s",
		},
		{
			name:        "plain bytes",
			line:        "Transferred:            0 B / 2.000 KiB, 0%, 0 B/s, ETA -",
			wantOK:      true,
			transferred: 0,
			total:       2048,
			eta:         "-",
		},
		{
			name:        "legacy units",
			line:        "Transferred:        2 GBytes / 4 GBytes, 50%, 10 MBytes/s, ETA 3m20s",
			wantOK:      true,
			transferred: 2 << 30,
			total:       4 << 30,
			eta:         "3m20s",
		},
		{
			name:        "no eta",
			line:        "Transferred:   \t  10 MiB / 10 MiB, 100%, 2 MiB/s",
			wantOK:      true,
			transferred: 10 << 20,
			total:       10 << 20,
		},
		{
			name:        "ansi wrapped",
			line:        "\x1b[2KTransferred:   \t  3 KiB / 6 KiB, 50%, 1 KiB/s, ETA 3s\x1b[0m",
			wantOK:      true,
			transferred: 3072,
			total:       6144,
			eta:         "3s",
		},
		{name: "file count line", line: "Transferred:            1 / 1, 100%", wantOK: false},
		{name: "info line", line: "INFO  : file.bin: Copied (new)", wantOK: false},
		{name: "empty", line: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, ok := ParseStats(tt.line)
			if ok != tt.wantOK {
				t.Fatalf("ParseStats ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if s.Transferred != tt.transferred {
				t.Errorf("Transferred = %d, want %d", s.Transferred, tt.transferred)
			}
			if s.Total != tt.total {
				t.Errorf("Total = %d, want %d", s.Total, tt.total)
			}
			if s.ETA != tt.eta {
				t.Errorf("ETA = %q, want %q", s.ETA, tt.eta)
			}
		})
	}
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		text string
		want int64
		ok   bool
	}{
		{"512 B", 512, true},
		{"1 KiB", 1024, true},
		{"1.5 MiB", 1572864, true},
		{"1 GB", 1 << 30, true},
		{"2 TiB", 2 << 40, true},
		{"0", 0, true},
		{"MiB", 0, false},
	}

	for _, tt := range tests {
		got, ok := ParseSize(tt.text)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseSize(%q) = %d, %v; want %d, %v", tt.text, got, ok, tt.want, tt.ok)
		}
	}
}

func TestReconcilerIsMonotonic(t *testing.T) {
	rec := Reconciler{Total: 100}
	inputs := []int64{10, 40, 30, 0, 80, 75, 100}
	var last int64
	for _, n := range inputs {
		got := rec.Observe(Stats{Transferred: n})
		if got < last {
			t.Fatalf("confirmed went backwards: %d after %d", got, last)
		}
		last = got
	}
	if rec.Confirmed() != 100 {
		t.Errorf("Confirmed = %d", rec.Confirmed())
	}
}

func TestReconcilerClampsToLocalSize(t *testing.T) {
	tests := []struct {
		name    string
		total   int64
		seen    []int64
		want    int64
		percent float64
	}{
		{"partial", 200, []int64{50}, 50, 25},
		{"tool overshoots", 200, []int64{150, 260}, 200, 100},
		{"unknown size", 0, []int64{300}, 300, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := Reconciler{Total: tt.total}
			for _, n := range tt.seen {
				rec.Observe(Stats{Transferred: n})
			}
			if rec.Confirmed() != tt.want {
				t.Errorf("Confirmed = %d, want %d", rec.Confirmed(), tt.want)
			}
			if rec.Percent() != tt.percent {
				t.Errorf("Percent = %v, want %v", rec.Percent(), tt.percent)
			}
		})
	}
}

func TestLineWriterSplitsOnCarriageReturn(t *testing.T) {
	var lines []string
	w := &lineWriter{fn: func(l string) { lines = append(lines, l) }}

	w.Write([]byte("first\rsec"))
	w.Write([]byte("ond\r\nthird"))
	w.Flush()

	if got := strings.Join(lines, "|"); got != "first|second|third" {
		t.Errorf("lines = %q", got)
	}
}

func TestTailBuffer(t *testing.T) {
	tb := newTailBuffer()
	for i := 0; i < 8; i++ {
		tb.Write([]byte(strings.Repeat("x", i) + "\n"))
	}
	tb.Write([]byte(strings.Repeat("y", 1000)))

	lines := tb.Lines()
	if len(lines) != 5 {
		t.Fatalf("kept %d lines, want 5", len(lines))
	}
	last := lines[len(lines)-1]
	if len(last) != 300 || !strings.HasPrefix(last, "y") {
		t.Errorf("trailing partial line not bounded: len %d", len(last))
	}
}
