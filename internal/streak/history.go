package streak

import (
	"sort"
	"time"
)

const dateLayout = "2006-01-02"

// ComputeStreak counts consecutive daily GMs ending at, or the day before, reference.
// dates are YYYY-MM-DD strings; duplicates and unparsable values are ignored.
// The i-th most recent date must be exactly i days before the reference (plus one
// when the most recent GM was yesterday); the first gap ends the streak.
func ComputeStreak(dates []string, reference time.Time) int {
	if len(dates) == 0 {
		return 0
	}

	seen := make(map[string]struct{}, len(dates))
	unique := make([]string, 0, len(dates))
	for _, d := range dates {
		if _, ok := seen[d]; ok {
			continue
		}
		if _, err := time.Parse(dateLayout, d); err != nil {
			continue
		}
		seen[d] = struct{}{}
		unique = append(unique, d)
	}

	// ISO dates sort lexicographically
	sort.Sort(sort.Reverse(sort.StringSlice(unique)))

	ref := truncateDay(reference)
	streak := 0
	offset := 0

	for i, d := range unique {
		day, _ := time.Parse(dateLayout, d)
		gap := int(ref.Sub(day).Hours() / 24)

		if i == 0 && gap == 1 {
			// today's GM is still pending, yesterday keeps the streak alive
			offset = 1
		}
		if gap != streak+offset {
			break
		}
		streak++
	}

	return streak
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
