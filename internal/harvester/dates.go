package harvester

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// NormalizeTime parses free-form timestamp text into an instant in loc.
// Text without an explicit offset is interpreted as UTC before conversion.
// Unparseable or empty input returns ok=false, never an error: malformed
// dates are an expected condition on these sources.
func NormalizeTime(text string, loc *time.Location) (time.Time, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, false
	}
	t, err := dateparse.ParseIn(text, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t.In(loc), true
}

// IsRecent reports whether t falls within the last window, measured against
// the current time in loc. The zero time is never recent.
func IsRecent(t time.Time, loc *time.Location, window time.Duration) bool {
	if t.IsZero() {
		return false
	}
	return time.Now().In(loc).Sub(t) <= window
}
