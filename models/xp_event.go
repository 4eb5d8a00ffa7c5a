package models

import "time"

// EventType enumerates the gameplay events the engine rewards.
type EventType string

const (
	EventDailyParticipate EventType = "daily_participate"
	EventSolveSuccess     EventType = "solve_success"
	EventSolveFail        EventType = "solve_fail"
	EventComment          EventType = "comment"
	EventPost             EventType = "post"
)

// SolvePayload carries the solve_success-specific fields.
type SolvePayload struct {
	UsedHint      bool `json:"used_hint"`
	QuestionCount int  `json:"question_count"`
}

// GameEvent is the tagged payload union handed to ApplyEvent. Only
// solve_success consults Solve; every other event type carries no fields.
type GameEvent struct {
	Type  EventType     `json:"event_type"`
	Solve *SolvePayload `json:"solve,omitempty"`
}

// XPEvent is the append-only reward ledger. Rows are written once per rewarded
// event, never mutated, and never read back by the engine — analytics and the
// archive worker are the only consumers.
type XPEvent struct {
	ID             string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ExternalUserID string    `gorm:"index;not null" json:"external_user_id"`
	EventType      string    `gorm:"not null" json:"event_type"`
	XPGained       int64     `json:"xp_gained"`
	PointsGained   int64     `json:"points_gained"`
	Metadata       string    `gorm:"type:jsonb" json:"metadata,omitempty"` // e.g., {"used_hint": false, "question_count": 2}
	Archived       bool      `gorm:"index;default:false" json:"archived"`
	CreatedAt      time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
