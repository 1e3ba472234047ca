package rclone

import (
	"regexp"
	"strconv"
	"strings"
)

// Stats is one parsed "Transferred:" line from rclone's --stats output.
type Stats struct {
	Transferred     int64
	Total           int64
	TransferredText string // as printed, e.g. "1.500 MiB"
	TotalText       string
	Percent         string // as printed, may be "-"
	Speed           string
	ETA             string // empty when rclone omits it
}

const sizePattern = `[\d.]+\s*[KMGTPE]?i?B(?:ytes)?`

// Byte progress line, for example
//
//	Transferred:   	    1.500 MiB / 10 MiB, 15%, 1.500 MiB/s, ETA 5s
//
// The file-count line ("Transferred: 1 / 1, 100%") carries no units and does
// not match.
var statsPattern = regexp.MustCompile(
	`Transferred:\s+(` + sizePattern + `)\s*/\s*(` + sizePattern + `),\s*([\d.]+%|-)\s*,\s*(` + sizePattern + `/s)(?:,\s*ETA\s*([^,]*))?`,
)

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;?]*[A-Za-z]`)

// StripANSI removes terminal escape sequences from a line.
func StripANSI(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

// ParseStats extracts byte progress from a line of rclone output.
func ParseStats(line string) (Stats, bool) {
	m := statsPattern.FindStringSubmatch(StripANSI(line))
	if m == nil {
		return Stats{}, false
	}

	transferred, ok := ParseSize(m[1])
	if !ok {
		return Stats{}, false
	}
	total, _ := ParseSize(m[2])

	return Stats{
		Transferred:     transferred,
		Total:           total,
		TransferredText: strings.TrimSpace(m[1]),
		TotalText:       strings.TrimSpace(m[2]),
		Percent:         m[3],
		Speed:           strings.TrimSpace(m[4]),
		ETA:             strings.TrimSpace(m[5]),
	}, true
}

var unitMultipliers = map[byte]float64{
	'K': 1 << 10,
	'M': 1 << 20,
	'G': 1 << 30,
	'T': 1 << 40,
	'P': 1 << 50,
	'E': 1 << 60,
}

// ParseSize converts "1.5 MiB", "10 KB" or "512 B" to bytes. Prefixes are
// powers of 1024 regardless of the "i".
func ParseSize(text string) (int64, bool) {
	text = strings.TrimSpace(text)
	end := 0
	for end < len(text) && (text[end] == '.' || (text[end] >= '0' && text[end] <= '9')) {
		end++
	}
	value, err := strconv.ParseFloat(text[:end], 64)
	if err != nil {
		return 0, false
	}

	unit := strings.TrimSpace(text[end:])
	if unit != "" {
		if mult, ok := unitMultipliers[unit[0]]; ok {
			value *= mult
		}
	}
	return int64(value), true
}

// Reconciler merges tool-reported progress with the locally known size. The
// confirmed count never decreases and never exceeds Total when Total is set.
type Reconciler struct {
	Total     int64 // local file size, <= 0 when unknown
	confirmed int64
}

// Observe folds in a parsed line and returns the confirmed byte count.
func (r *Reconciler) Observe(s Stats) int64 {
	n := s.Transferred
	if r.Total > 0 && n > r.Total {
		n = r.Total
	}
	if n > r.confirmed {
		r.confirmed = n
	}
	return r.confirmed
}

// Percent returns the confirmed share of Total, 0 when Total is unknown.
func (r *Reconciler) Percent() float64 {
	if r.Total <= 0 {
		return 0
	}
	return float64(r.confirmed) * 100 / float64(r.Total)
}

// Confirmed returns the highest byte count seen so far.
func (r *Reconciler) Confirmed() int64 {
	return r.confirmed
}
