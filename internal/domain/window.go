package domain

import (
	"fmt"
	"strings"
	"time"
)

// DefaultWindow is the length of the venue's recurring market windows.
const DefaultWindow = 15 * time.Minute

// WindowStart floors t (in UTC) to the start of its window.
func WindowStart(t time.Time, window time.Duration) time.Time {
	if window <= 0 {
		window = DefaultWindow
	}
	return t.UTC().Truncate(window)
}

// NextWindowBoundary returns the start of the window after the one containing t.
func NextWindowBoundary(t time.Time, window time.Duration) time.Time {
	if window <= 0 {
		window = DefaultWindow
	}
	return WindowStart(t, window).Add(window)
}

// WindowSlug builds the identifier of the windowed market active at t,
// e.g. "btc-updown-15m-1735689600".
func WindowSlug(prefix string, t time.Time, window time.Duration) string {
	return fmt.Sprintf("%s-%d", strings.TrimSuffix(prefix, "-"), WindowStart(t, window).Unix())
}

// WindowedPrefix reports whether slug names a windowed market series and
// returns the series prefix. A slug already suffixed with a timestamp maps
// back to its prefix.
func WindowedPrefix(slug string, prefixes []string) (string, bool) {
	for _, p := range prefixes {
		if slug == p || strings.HasPrefix(slug, p+"-") {
			return p, true
		}
	}
	return "", false
}
