package progress

import (
	"fmt"
	"strings"
)

var sizeUnits = []string{"B", "KB", "MB", "GB", "TB"}

// FormatSize renders a byte count in binary units with one decimal place,
// dividing by 1024 until the magnitude drops below 1024 (e.g. "10.0 MB").
func FormatSize(bytes int64) string {
	return formatUnits(float64(bytes), "")
}

// FormatSpeed renders a bytes-per-second rate the same way as FormatSize ("1.5 MB/s").
func FormatSpeed(bytesPerSecond float64) string {
	return formatUnits(bytesPerSecond, "/s")
}

func formatUnits(value float64, suffix string) string {
	if value < 0 {
		value = 0
	}
	for i, unit := range sizeUnits {
		if value < 1024 || i == len(sizeUnits)-1 {
			return fmt.Sprintf("%.1f %s%s", value, unit, suffix)
		}
		value /= 1024
	}
	return "" // unreachable
}

// Bar renders a fixed-width glyph bar for a percentage in [0,100].
func Bar(percent float64, width int) string {
	percent = Clamp(percent)
	filled := int(float64(width) * percent / 100)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// Clamp limits a percentage to [0,100].
func Clamp(percent float64) float64 {
	if percent < 0 {
		return 0
	}
	if percent > 100 {
		return 100
	}
	return percent
}

// TruncateName shortens a file name for display, appending "..." when cut.
func TruncateName(name string, max int) string {
	r := []rune(name)
	if len(r) <= max {
		return name
	}
	return string(r[:max]) + "..."
}
