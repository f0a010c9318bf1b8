package main

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"hyprwall/internal/encoding"
	"hyprwall/internal/optcache"
)

var titleCaser = cases.Title(language.English)

// displayName turns an identifier such as eco_strict into "Eco Strict".
func displayName(value string) string {
	value = strings.TrimSpace(strings.ReplaceAll(value, "_", " "))
	if value == "" {
		return "-"
	}
	return titleCaser.String(value)
}

func profileLabel(name encoding.ProfileName) string {
	return displayName(string(name))
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func formatPercent(p *int) string {
	if p == nil {
		return "unknown"
	}
	return fmt.Sprintf("%d%%", *p)
}

func formatFloat(v *float64, format string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf(format, *v)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}
	return d.Round(time.Second).String()
}

// cacheLabel summarizes an optimization result for a table cell.
func cacheLabel(result *optcache.Result) string {
	if result == nil {
		return "direct"
	}
	if result.CacheHit {
		return "hit"
	}
	return "encoded"
}

func encoderLabel(result *optcache.Result) string {
	if result == nil {
		return "-"
	}
	return string(result.Used)
}

func orDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
