package app

import (
	"fmt"
	"time"
)

const day = 24 * time.Hour

// RelativeTime renders createdAt relative to now in whole days, rounding down.
// Timestamps in the future count as today; unparseable input yields "".
func RelativeTime(createdAt string, now time.Time) string {
	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return ""
	}
	days := int(now.Sub(t) / day)
	if days < 0 {
		days = 0
	}
	switch {
	case days == 0:
		return "today"
	case days == 1:
		return "yesterday"
	case days < 7:
		return fmt.Sprintf("%d days ago", days)
	case days < 30:
		return fmt.Sprintf("%d weeks ago", days/7)
	case days < 365:
		return fmt.Sprintf("%d months ago", days/30)
	default:
		return fmt.Sprintf("%d years ago", days/365)
	}
}
