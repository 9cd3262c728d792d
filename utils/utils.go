package utils

import (
	"fmt"
	"math"
	"time"
)

// FormatTime formats a duration for the run summary: milliseconds below a
// second, seconds with two decimals below a minute, then m:s and h:m:s.
func FormatTime(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%.1fms", float64(d)/float64(time.Millisecond))
	case d < time.Minute:
		return fmt.Sprintf("%.2fs", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%dm:%ds", int64(d.Minutes()), int64(math.Mod(d.Seconds(), 60)))
	}
	return fmt.Sprintf("%dh:%dm:%ds",
		int64(d.Hours()), int64(math.Mod(d.Minutes(), 60)), int64(math.Mod(d.Seconds(), 60)))
}

// Rate returns n per second over d, or 0 for an empty duration.
func Rate(n int, d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(n) / d.Seconds()
}
