package services

import (
	"time"

	"trivia-progression-service/models"
)

// Reward weights and daily caps (tunable via config/env later)
const (
	ParticipateXP     = 15
	ParticipatePoints = 10

	SolveBaseXP     = 30
	SolveBasePoints = 20
	SolveNoHintXP   = 20 // bonus when no hint was used
	SolveFastXP     = 40 // bonus for <= 3 questions
	SolveQuickXP    = 15 // bonus for <= 10 questions
	SolveFailXP     = 10

	CommentXP       = 2
	DailyCommentCap = 40
	PostXP          = 10
	DailyPostCap    = 50
)

// Reward is what one event earns before achievement bonuses.
type Reward struct {
	XP     int64
	Points int64
}

// IsZero marks a no-op event: nothing is persisted, evaluated, or logged.
func (r Reward) IsZero() bool {
	return r.XP == 0 && r.Points == 0
}

// CalculateReward maps an event onto (XP, points) against the user's current,
// already-quota-reset progress. Unknown event types earn nothing — that is a
// silent no-op, not an error.
func CalculateReward(event models.GameEvent, prog *models.UserProgress) Reward {
	switch event.Type {
	case models.EventDailyParticipate:
		return Reward{XP: ParticipateXP, Points: ParticipatePoints}

	case models.EventSolveSuccess:
		// Solve is guaranteed non-nil; ApplyEvent rejects payload-less solves.
		r := Reward{XP: SolveBaseXP, Points: SolveBasePoints}
		if !event.Solve.UsedHint {
			r.XP += SolveNoHintXP
		}
		if event.Solve.QuestionCount <= 3 {
			r.XP += SolveFastXP
		} else if event.Solve.QuestionCount <= 10 {
			r.XP += SolveQuickXP
		}
		return r

	case models.EventSolveFail:
		return Reward{XP: SolveFailXP}

	case models.EventComment:
		return Reward{XP: cappedXP(CommentXP, DailyCommentCap, prog.DailyCommentXP)}

	case models.EventPost:
		return Reward{XP: cappedXP(PostXP, DailyPostCap, prog.DailyPostXP)}

	default:
		return Reward{}
	}
}

// cappedXP clamps a per-event reward so the daily window never exceeds dayCap.
func cappedXP(perEvent, dayCap, earnedToday int64) int64 {
	remaining := dayCap - earnedToday
	if remaining <= 0 {
		return 0
	}
	if remaining < perEvent {
		return remaining
	}
	return perEvent
}

// resetDailyWindow zeroes the daily quota counters when the calendar day (in
// the service timezone) has changed since the last event. Must run before any
// reward is computed, and only flips once per day no matter how many events
// arrive. Returns true if the window rolled over.
func resetDailyWindow(prog *models.UserProgress, today time.Time) bool {
	if prog.DailyResetDate != nil && sameDay(*prog.DailyResetDate, today) {
		return false
	}
	prog.DailyCommentXP = 0
	prog.DailyPostXP = 0
	day := truncateToDay(today)
	prog.DailyResetDate = &day
	return true
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// sameDay compares calendar dates in b's location — stored dates may come
// back from the database in UTC.
func sameDay(a, b time.Time) bool {
	ay, am, ad := a.In(b.Location()).Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
