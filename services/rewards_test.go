package services_test

import (
	"testing"

	"trivia-progression-service/models"
	"trivia-progression-service/services"
)

func solveEvent(usedHint bool, questionCount int) models.GameEvent {
	return models.GameEvent{
		Type:  models.EventSolveSuccess,
		Solve: &models.SolvePayload{UsedHint: usedHint, QuestionCount: questionCount},
	}
}

func TestCalculateReward_Table(t *testing.T) {
	fresh := &models.UserProgress{Level: 1}

	cases := []struct {
		name       string
		event      models.GameEvent
		prog       *models.UserProgress
		wantXP     int64
		wantPoints int64
	}{
		{"participate", models.GameEvent{Type: models.EventDailyParticipate}, fresh, 15, 10},
		{"solve no hint, 2 questions", solveEvent(false, 2), fresh, 90, 20},
		{"solve no hint, 10 questions", solveEvent(false, 10), fresh, 65, 20},
		{"solve no hint, 11 questions", solveEvent(false, 11), fresh, 50, 20},
		{"solve with hint, 3 questions", solveEvent(true, 3), fresh, 70, 20},
		{"solve with hint, 20 questions", solveEvent(true, 20), fresh, 30, 20},
		{"solve fail", models.GameEvent{Type: models.EventSolveFail}, fresh, 10, 0},
		{"comment under cap", models.GameEvent{Type: models.EventComment}, fresh, 2, 0},
		{"post under cap", models.GameEvent{Type: models.EventPost}, fresh, 10, 0},
		{"unknown event", models.GameEvent{Type: "spectate"}, fresh, 0, 0},
		{
			"comment near cap gets partial",
			models.GameEvent{Type: models.EventComment},
			&models.UserProgress{Level: 1, DailyCommentXP: 39},
			1, 0,
		},
		{
			"comment at cap gets nothing",
			models.GameEvent{Type: models.EventComment},
			&models.UserProgress{Level: 1, DailyCommentXP: 40},
			0, 0,
		},
		{
			"post near cap gets partial",
			models.GameEvent{Type: models.EventPost},
			&models.UserProgress{Level: 1, DailyPostXP: 45},
			5, 0,
		},
		{
			"post at cap gets nothing",
			models.GameEvent{Type: models.EventPost},
			&models.UserProgress{Level: 1, DailyPostXP: 50},
			0, 0,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := services.CalculateReward(tc.event, tc.prog)
			if r.XP != tc.wantXP || r.Points != tc.wantPoints {
				t.Errorf("got (%d xp, %d pts), want (%d, %d)", r.XP, r.Points, tc.wantXP, tc.wantPoints)
			}
		})
	}
}

func TestReward_IsZero(t *testing.T) {
	if !(services.Reward{}).IsZero() {
		t.Error("empty reward should be zero")
	}
	if (services.Reward{XP: 1}).IsZero() {
		t.Error("non-empty reward should not be zero")
	}
}
