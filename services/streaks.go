package services

import (
	"math"
	"time"

	"trivia-progression-service/models"
)

// advanceStreak transitions the consecutive-day participation streak for a
// daily_participate event landing on "today" (service timezone):
//
//	no prior day      → streak = 1
//	gap of exactly 1  → streak + 1
//	gap > 1           → streak = 1 (broken)
//	same day again    → no change
//
// BestStreak tracks the high-water mark. Returns true if anything changed.
func advanceStreak(prog *models.UserProgress, today time.Time) bool {
	if prog.LastParticipationDate != nil && sameDay(*prog.LastParticipationDate, today) {
		return false
	}

	switch {
	case prog.LastParticipationDate == nil:
		prog.CurrentStreak = 1
	case daysBetween(*prog.LastParticipationDate, today) == 1:
		prog.CurrentStreak++
	default:
		prog.CurrentStreak = 1
	}

	day := truncateToDay(today)
	prog.LastParticipationDate = &day
	if prog.CurrentStreak > prog.BestStreak {
		prog.BestStreak = prog.CurrentStreak
	}
	return true
}

// daysBetween counts calendar days from a to b in b's location. Rounding
// absorbs the DST hour.
func daysBetween(a, b time.Time) int {
	from := truncateToDay(a.In(b.Location()))
	to := truncateToDay(b)
	return int(math.Round(to.Sub(from).Hours() / 24))
}
