package streak

// Eligibility arithmetic for the daily GM window
// All functions are pure: callers pass the sampled "now" explicitly

import (
	"time"

	"gm-streak/internal/models"
)

// Cooldown is the eligibility window after a GM during which a repeat GM is disallowed.
const Cooldown = 24 * time.Hour

// TimeUntilNextEligible returns how long the user must wait before the next GM.
// lastActionTimestamp is unix seconds; 0 means the user never acted and may act now.
// The result is millisecond-precise and never negative.
func TimeUntilNextEligible(lastActionTimestamp int64, now time.Time) time.Duration {
	if lastActionTimestamp == 0 {
		return 0
	}

	nextEligibleMs := lastActionTimestamp*1000 + Cooldown.Milliseconds()
	remainingMs := nextEligibleMs - now.UnixMilli()
	if remainingMs < 0 {
		remainingMs = 0
	}
	return time.Duration(remainingMs) * time.Millisecond
}

// IsEligibleNow reports whether the 24h window since the last GM has elapsed.
func IsEligibleNow(lastActionTimestamp int64, now time.Time) bool {
	return TimeUntilNextEligible(lastActionTimestamp, now) == 0
}

// NextEligibleAt returns the wall-clock instant the window opens, or zero time if never acted.
func NextEligibleAt(lastActionTimestamp int64) time.Time {
	if lastActionTimestamp == 0 {
		return time.Time{}
	}
	return time.Unix(lastActionTimestamp, 0).Add(Cooldown)
}

// CanAct combines the contract's eligibility flag with the locally derived one.
// Both must agree; neither source is preferred when they disagree.
func CanAct(record models.UserStreakRecord, now time.Time) bool {
	return record.EligibleNow && IsEligibleNow(record.LastActionTimestamp, now)
}

// TimeUntilMidnight returns the time left until the next midnight in now's location.
func TimeUntilMidnight(now time.Time) time.Duration {
	y, m, d := now.Date()
	midnight := time.Date(y, m, d+1, 0, 0, 0, 0, now.Location())
	return midnight.Sub(now)
}

// HasActedOn reports whether the last GM falls on the given UTC calendar day.
func HasActedOn(lastActionTimestamp int64, day time.Time) bool {
	if lastActionTimestamp == 0 {
		return false
	}
	return time.Unix(lastActionTimestamp, 0).UTC().Format(dateLayout) == day.UTC().Format(dateLayout)
}
