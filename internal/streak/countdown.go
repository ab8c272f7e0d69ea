package streak

import (
	"fmt"
	"time"
)

// CountdownState is one decomposed frame of a countdown.
// RemainingMs == 0 signals that the user is eligible now.
type CountdownState struct {
	Hours       int   `json:"hours"`
	Minutes     int   `json:"minutes"`
	Seconds     int   `json:"seconds"`
	RemainingMs int64 `json:"remainingMs"`
}

// Decompose splits a remaining duration into hours, minutes and seconds.
// Sub-second remainders are truncated, never rounded up.
func Decompose(remaining time.Duration) CountdownState {
	if remaining < 0 {
		remaining = 0
	}
	ms := remaining.Milliseconds()
	totalSeconds := ms / 1000

	return CountdownState{
		Hours:       int(totalSeconds / 3600),
		Minutes:     int(totalSeconds % 3600 / 60),
		Seconds:     int(totalSeconds % 60),
		RemainingMs: ms,
	}
}

// Ready reports whether the countdown has reached zero.
func (s CountdownState) Ready() bool {
	return s.RemainingMs == 0
}

// Clock renders HH:MM while at least an hour is left, MM:SS otherwise.
func (s CountdownState) Clock() string {
	if s.Hours > 0 {
		return fmt.Sprintf("%02d:%02d", s.Hours, s.Minutes)
	}
	return fmt.Sprintf("%02d:%02d", s.Minutes, s.Seconds)
}

// Digital renders the full HH:MM:SS form.
func (s CountdownState) Digital() string {
	return fmt.Sprintf("%02d:%02d:%02d", s.Hours, s.Minutes, s.Seconds)
}

// Human renders "3h 12m 5s", "12m 5s" or "5s"; "Ready to GM!" at zero.
func (s CountdownState) Human() string {
	switch {
	case s.Ready():
		return "Ready to GM!"
	case s.Hours > 0:
		return fmt.Sprintf("%dh %dm %ds", s.Hours, s.Minutes, s.Seconds)
	case s.Minutes > 0:
		return fmt.Sprintf("%dm %ds", s.Minutes, s.Seconds)
	default:
		return fmt.Sprintf("%ds", s.Seconds)
	}
}

// Progress is the elapsed fraction of period, in whole seconds, clamped to [0,1].
func Progress(remaining, period time.Duration) float64 {
	periodSeconds := int64(period / time.Second)
	if periodSeconds <= 0 {
		return 1
	}
	remainingSeconds := int64(remaining / time.Second)

	p := float64(periodSeconds-remainingSeconds) / float64(periodSeconds)
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
