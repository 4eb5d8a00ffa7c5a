package models

import "time"

// TitleUnlockType selects how a title is earned.
type TitleUnlockType string

const (
	TitleUnlockLevel         TitleUnlockType = "level"           // Level >= N
	TitleUnlockStreak        TitleUnlockType = "streak"          // CurrentStreak >= N
	TitleUnlockNoHintSolves  TitleUnlockType = "no_hint_solves"  // no-hint solves >= N
	TitleUnlockUnder3QSolves TitleUnlockType = "under_3q_solves" // ≤3-question solves >= N
	TitleUnlockAchievement   TitleUnlockType = "achievement"     // granted via an achievement's reward_title_code only
	TitleUnlockManual        TitleUnlockType = "manual"          // granted by admins only
)

// TitleDefinition: static catalog of cosmetic labels.
// achievement/manual titles are never auto-unlocked by the evaluator.
type TitleDefinition struct {
	ID          string          `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Code        string          `gorm:"uniqueIndex;not null" json:"code"` // e.g., "perfectionist"
	Name        string          `gorm:"not null" json:"name"`
	UnlockType  TitleUnlockType `gorm:"type:varchar(32);not null" json:"unlock_type"`
	UnlockValue int64           `gorm:"default:0" json:"unlock_value"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// UserTitle: owned instance, unique per (user, title) — idempotent unlock ledger.
type UserTitle struct {
	ID             string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ExternalUserID string    `gorm:"not null;uniqueIndex:idx_user_title" json:"external_user_id"`
	TitleCode      string    `gorm:"not null;uniqueIndex:idx_user_title" json:"title_code"`
	UnlockedAt     time.Time `gorm:"autoCreateTime" json:"unlocked_at"`
}

// TitleCatalog returns the shipped title definitions.
func TitleCatalog() []TitleDefinition {
	return []TitleDefinition{
		{Code: "rookie-detective", Name: "Rookie Detective", UnlockType: TitleUnlockLevel, UnlockValue: 5},
		{Code: "seasoned-detective", Name: "Seasoned Detective", UnlockType: TitleUnlockLevel, UnlockValue: 15},
		{Code: "chief-inspector", Name: "Chief Inspector", UnlockType: TitleUnlockLevel, UnlockValue: 30},
		{Code: "regular", Name: "Regular", UnlockType: TitleUnlockStreak, UnlockValue: 7},
		{Code: "iron-will", Name: "Iron Will", UnlockType: TitleUnlockStreak, UnlockValue: 30},
		{Code: "perfectionist", Name: "Perfectionist", UnlockType: TitleUnlockNoHintSolves, UnlockValue: 10},
		{Code: "genius-detective", Name: "Genius Detective", UnlockType: TitleUnlockUnder3QSolves, UnlockValue: 10},
		{Code: "living-legend", Name: "Living Legend", UnlockType: TitleUnlockAchievement},
		{Code: "founders-club", Name: "Founders Club", UnlockType: TitleUnlockManual},
	}
}
