package models

import "time"

// AchievementConditionType selects which counter an achievement watches.
type AchievementConditionType string

const (
	CondStreak         AchievementConditionType = "streak"          // CurrentStreak >= N
	CondParticipations AchievementConditionType = "participations"  // TotalParticipations >= N
	CondSolves         AchievementConditionType = "solves"          // solve records >= N
	CondNoHintSolves   AchievementConditionType = "no_hint_solves"  // no-hint solve records >= N
	CondUnder3QSolves  AchievementConditionType = "under_3q_solves" // ≤3-question solve records >= N
	CondLevel          AchievementConditionType = "level"           // Level >= N
	CondComments       AchievementConditionType = "comments"        // comment records >= N
	CondPosts          AchievementConditionType = "posts"           // post records >= N
)

// AchievementDefinition: static catalog (seeded from AchievementCatalog at boot)
type AchievementDefinition struct {
	ID              string                   `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Code            string                   `gorm:"uniqueIndex;not null" json:"code"` // e.g., "first-solve"
	Name            string                   `gorm:"not null" json:"name"`
	Description     string                   `json:"description"`
	ConditionType   AchievementConditionType `gorm:"type:varchar(32);not null" json:"condition_type"`
	ConditionValue  int64                    `gorm:"not null" json:"condition_value"`
	RewardXP        int64                    `gorm:"default:0" json:"reward_xp"`
	RewardPoints    int64                    `gorm:"default:0" json:"reward_points"`
	RewardTitleCode string                   `json:"reward_title_code,omitempty"` // granted alongside, if set
	CreatedAt       time.Time                `gorm:"autoCreateTime" json:"created_at"`
}

// UserAchievement: awarded instance. The composite unique index is the
// idempotent unlock ledger — a conflicting insert means "already unlocked".
type UserAchievement struct {
	ID              string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ExternalUserID  string    `gorm:"not null;uniqueIndex:idx_user_achievement" json:"external_user_id"`
	AchievementCode string    `gorm:"not null;uniqueIndex:idx_user_achievement" json:"achievement_code"`
	UnlockedAt      time.Time `gorm:"autoCreateTime" json:"unlocked_at"`
}

// AchievementCatalog returns the shipped achievement definitions. Codes are
// derived from names by the seeder when left empty.
func AchievementCatalog() []AchievementDefinition {
	return []AchievementDefinition{
		{
			Name: "First Case Closed", Description: "Solve your first puzzle",
			ConditionType: CondSolves, ConditionValue: 1,
			RewardXP: 30, RewardPoints: 20,
		},
		{
			Name: "Case Veteran", Description: "Solve 25 puzzles",
			ConditionType: CondSolves, ConditionValue: 25,
			RewardXP: 150, RewardPoints: 100,
		},
		{
			Name: "Master Sleuth", Description: "Solve 100 puzzles",
			ConditionType: CondSolves, ConditionValue: 100,
			RewardXP: 500, RewardPoints: 300,
		},
		{
			Name: "Clean Hands", Description: "Solve 10 puzzles without a hint",
			ConditionType: CondNoHintSolves, ConditionValue: 10,
			RewardXP: 50, RewardPoints: 50, RewardTitleCode: "perfectionist",
		},
		{
			Name: "Three Questions", Description: "Solve 10 puzzles in 3 questions or fewer",
			ConditionType: CondUnder3QSolves, ConditionValue: 10,
			RewardXP: 80, RewardPoints: 60, RewardTitleCode: "genius-detective",
		},
		{
			Name: "Week Streak", Description: "Check in 7 days in a row",
			ConditionType: CondStreak, ConditionValue: 7,
			RewardXP: 100, RewardPoints: 70,
		},
		{
			Name: "Monthly Regular", Description: "Check in 30 days in a row",
			ConditionType: CondStreak, ConditionValue: 30,
			RewardXP: 500, RewardPoints: 300,
		},
		{
			Name: "Daily Dozen", Description: "Check in 12 days total",
			ConditionType: CondParticipations, ConditionValue: 12,
			RewardXP: 60, RewardPoints: 40,
		},
		{
			Name: "Voice Of The Lobby", Description: "Write 100 comments",
			ConditionType: CondComments, ConditionValue: 100,
			RewardXP: 120, RewardPoints: 0,
		},
		{
			Name: "Community Author", Description: "Write 20 posts",
			ConditionType: CondPosts, ConditionValue: 20,
			RewardXP: 150, RewardPoints: 0,
		},
		{
			Name: "Level Ten", Description: "Reach level 10",
			ConditionType: CondLevel, ConditionValue: 10,
			RewardXP: 200, RewardPoints: 150,
		},
		{
			Name: "Level Twenty Five", Description: "Reach level 25",
			ConditionType: CondLevel, ConditionValue: 25,
			RewardXP: 800, RewardPoints: 500, RewardTitleCode: "living-legend",
		},
	}
}
