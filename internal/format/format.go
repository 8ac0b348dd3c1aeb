package format

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

var byteUnits = []string{"Bytes", "KB", "MB", "GB", "TB", "PB", "EB", "ZB", "YB"}

// FormatBytes formats a byte count with 2 decimal places using the largest
// 1024-based unit that does not exceed the value.
// Example: 1536 → "1.50 KB". Zero and negative counts return "0 Bytes".
func FormatBytes(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}
	v := float64(bytes)
	i := 0
	for v >= 1024 && i < len(byteUnits)-1 {
		v /= 1024
		i++
	}
	return fmt.Sprintf("%.2f %s", v, byteUnits[i])
}

type uptimeUnit struct {
	name    string
	seconds int64
}

var uptimeUnits = []uptimeUnit{
	{"year", 31536000},
	{"day", 86400},
	{"hour", 3600},
	{"minute", 60},
}

// FormatUptime renders a duration in seconds as at most three of its
// largest non-zero components among years, days, hours and minutes.
// Example: 3700 → "1 hour, 1 minute", 45 → "45 seconds", 0 → "N/A or Fresh Start".
func FormatUptime(seconds int64) string {
	if seconds <= 0 {
		return "N/A or Fresh Start"
	}
	if seconds < 60 {
		return fmt.Sprintf("%d seconds", seconds)
	}

	parts := make([]string, 0, 3)
	rest := seconds
	for _, u := range uptimeUnits {
		n := rest / u.seconds
		if n == 0 {
			continue
		}
		rest -= n * u.seconds
		if len(parts) == 3 {
			continue
		}
		if n > 1 {
			parts = append(parts, fmt.Sprintf("%d %ss", n, u.name))
		} else {
			parts = append(parts, fmt.Sprintf("%d %s", n, u.name))
		}
	}
	return strings.Join(parts, ", ")
}

// FormatNumber formats an integer with comma separators.
// Example: 12345678 → "12,345,678".
func FormatNumber(n int64) string {
	return humanize.Comma(n)
}

// FormatPercent formats a percentage with two decimal places.
// Example: 98.456 → "98.46%".
func FormatPercent(p float64) string {
	return fmt.Sprintf("%.2f%%", p)
}

// FormatLoad formats a load average with two decimal places.
func FormatLoad(l float64) string {
	return fmt.Sprintf("%.2f", l)
}
