package models

import "time"

// Ground-truth activity tables. UserProgress keeps cached lifetime counters for
// cheap reads, but achievement conditions and the reconciliation worker count
// these rows instead.

// SolveRecord is one finished puzzle attempt (success only — failures earn XP
// but are not an activity milestone).
type SolveRecord struct {
	ID             string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ExternalUserID string    `gorm:"index;not null" json:"external_user_id"`
	UsedHint       bool      `json:"used_hint"`
	QuestionCount  int       `json:"question_count"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// CommentRecord is one rewarded community comment.
type CommentRecord struct {
	ID             string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ExternalUserID string    `gorm:"index;not null" json:"external_user_id"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// PostRecord is one rewarded community post.
type PostRecord struct {
	ID             string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ExternalUserID string    `gorm:"index;not null" json:"external_user_id"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// ActivityCounts is the authoritative per-user aggregate over the three tables.
type ActivityCounts struct {
	Solves        int64 `json:"solves"`
	NoHintSolves  int64 `json:"no_hint_solves"`
	Under3QSolves int64 `json:"under_3q_solves"`
	Comments      int64 `json:"comments"`
	Posts         int64 `json:"posts"`
}
