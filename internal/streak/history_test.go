package streak

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestComputeStreak(t *testing.T) {
	ref := time.Date(2024, 1, 3, 15, 30, 0, 0, time.UTC)

	cases := []struct {
		name  string
		dates []string
		want  int
	}{
		{"empty", nil, 0},
		{"three consecutive days", []string{"2024-01-03", "2024-01-02", "2024-01-01"}, 3},
		{"gap breaks streak", []string{"2024-01-03", "2024-01-01"}, 1},
		{"unordered input", []string{"2024-01-01", "2024-01-03", "2024-01-02"}, 3},
		{"duplicates ignored", []string{"2024-01-03", "2024-01-03", "2024-01-02"}, 2},
		{"ends yesterday", []string{"2024-01-02", "2024-01-01", "2023-12-31"}, 3},
		{"last gm two days ago", []string{"2024-01-01", "2023-12-31"}, 0},
		{"garbage ignored", []string{"2024-01-03", "not-a-date", "2024-01-02"}, 2},
		{"future date", []string{"2024-01-05"}, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ComputeStreak(tc.dates, ref))
		})
	}
}

func TestComputeStreakUsesReferenceCalendarDay(t *testing.T) {
	loc := time.FixedZone("ahead", 10*3600)
	// 2024-01-04 02:00 in loc is still 2024-01-03 in UTC; the reference's own calendar day counts
	ref := time.Date(2024, 1, 4, 2, 0, 0, 0, loc)
	assert.Equal(t, 2, ComputeStreak([]string{"2024-01-04", "2024-01-03"}, ref))
}
