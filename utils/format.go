package utils

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// FormatDuration renders scan timings: sub-second values in ms, then seconds,
// then minutes.
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%.1fμs", float64(d.Nanoseconds())/1e3)
	case d < time.Second:
		return fmt.Sprintf("%.1fms", float64(d.Nanoseconds())/1e6)
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
}

// FormatBytes and FormatAge are used for backup listings.
func FormatBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}

func FormatAge(t time.Time) string {
	return humanize.Time(t)
}

func Plural(n int, singular string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, singular)
	}
	return fmt.Sprintf("%s %ss", humanize.Comma(int64(n)), singular)
}

// Cycle steps an enum-like value by direction, wrapping within [0, max].
func Cycle[T ~int](current T, direction int, max T) T {
	return (current + T(direction) + max + 1) % (max + 1)
}
