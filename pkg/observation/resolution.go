package observation

import (
	"fmt"
	"strings"
	"time"
)

// Resolution is the granularity fill timestamps are truncated to before
// observations are keyed. Two fills inside the same period merge.
type Resolution string

const (
	ResolutionDay    Resolution = "day"
	ResolutionHour   Resolution = "hour"
	ResolutionMinute Resolution = "minute"
	ResolutionSecond Resolution = "second"
)

var resolutionLayouts = map[Resolution]string{
	ResolutionDay:    "2006-01-02",
	ResolutionHour:   "2006-01-02 15",
	ResolutionMinute: "2006-01-02 15:04",
	ResolutionSecond: "2006-01-02 15:04:05",
}

var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
}

// ParseResolution validates a configured resolution. Empty means second.
func ParseResolution(value string) (Resolution, error) {
	res := Resolution(strings.ToLower(strings.TrimSpace(value)))
	if res == "" {
		return ResolutionSecond, nil
	}
	if _, ok := resolutionLayouts[res]; !ok {
		return "", fmt.Errorf("observation: unknown time resolution %q", value)
	}
	return res, nil
}

// Apply formats timestamp at the resolution. Values that do not parse as a
// timestamp are returned unchanged.
func (r Resolution) Apply(timestamp string) string {
	layout, ok := resolutionLayouts[r]
	if !ok {
		layout = resolutionLayouts[ResolutionSecond]
	}
	trimmed := strings.TrimSpace(timestamp)
	for _, candidate := range timestampLayouts {
		if parsed, err := time.Parse(candidate, trimmed); err == nil {
			return parsed.Format(layout)
		}
	}
	return timestamp
}
