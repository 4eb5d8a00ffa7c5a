package models

import (
	"time"

	"gorm.io/gorm"
)

// UserProgress tracks gamified progression for each user (denormalized for performance).
// Owned exclusively by the ProgressionService — nothing else writes this row.
type UserProgress struct {
	ID             string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ExternalUserID string `gorm:"uniqueIndex;not null" json:"external_user_id"` // links to profile service

	// Core progression
	Level  int   `json:"level" gorm:"default:1"`
	XP     int64 `json:"xp" gorm:"default:0"`
	Points int64 `json:"points" gorm:"default:0"` // spendable currency, independent of level

	// Streaks (consecutive calendar days with a daily_participate event)
	CurrentStreak         int        `json:"current_streak" gorm:"default:0"`
	BestStreak            int        `json:"best_streak" gorm:"default:0"`
	LastParticipationDate *time.Time `json:"last_participation_date,omitempty"`

	// Daily XP quota windows (comment/post caps reset at day rollover)
	DailyCommentXP int64      `json:"daily_comment_xp" gorm:"default:0"`
	DailyPostXP    int64      `json:"daily_post_xp" gorm:"default:0"`
	DailyResetDate *time.Time `json:"daily_reset_date,omitempty"`

	// Lifetime activity counters — best-effort caches of the activity tables.
	// Achievement conditions on solves/comments/posts read the tables instead.
	TotalParticipations int64 `json:"total_participations" gorm:"default:0"`
	TotalSolves         int64 `json:"total_solves" gorm:"default:0"`
	NoHintSolves        int64 `json:"no_hint_solves" gorm:"default:0"`
	Under3QSolves       int64 `json:"under_3q_solves" gorm:"default:0"`
	TotalComments       int64 `json:"total_comments" gorm:"default:0"`
	TotalPosts          int64 `json:"total_posts" gorm:"default:0"`

	// Milestones
	LastLevelUpAt *time.Time `json:"last_level_up_at,omitempty"`

	Timestamps
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
