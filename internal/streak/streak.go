// Package streak counts consecutive days of approved activity.
package streak

import "time"

// Count returns the number of consecutive calendar days, ending on today,
// that appear in days. A gap today means no streak.
func Count(days []time.Time, today time.Time) int {
	seen := make(map[string]bool, len(days))
	for _, d := range days {
		seen[d.Format(time.DateOnly)] = true
	}

	n := 0
	cur := today
	for seen[cur.Format(time.DateOnly)] {
		n++
		cur = cur.AddDate(0, 0, -1)
	}
	return n
}
