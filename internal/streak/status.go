package streak

import (
	"time"

	"gm-streak/internal/models"
)

// Status is the eligibility view of one user at one instant.
type Status struct {
	CanAct         bool           `json:"canAct"`
	NextEligibleAt *time.Time     `json:"nextEligibleAt,omitempty"`
	Countdown      CountdownState `json:"countdown"`
	Progress       float64        `json:"progress"`
	ActedToday     bool           `json:"actedToday"`
}

// StatusAt samples the calculator once for record.
func StatusAt(record models.UserStreakRecord, now time.Time) Status {
	remaining := TimeUntilNextEligible(record.LastActionTimestamp, now)
	st := Status{
		CanAct:     CanAct(record, now),
		Countdown:  Decompose(remaining),
		Progress:   Progress(remaining, Cooldown),
		ActedToday: HasActedOn(record.LastActionTimestamp, now),
	}
	if at := NextEligibleAt(record.LastActionTimestamp); !at.IsZero() {
		st.NextEligibleAt = &at
	}
	return st
}
