// Package store defines the persistence contract of the progression engine.
// services/ talk to ProgressStore only; the GORM implementation backs the
// service, the in-memory implementation backs the tests.
package store

import (
	"context"
	"time"

	"trivia-progression-service/models"
)

// ProgressStore is the repository contract for everything the engine persists.
// Implementations must return models.ErrProgressNotFound for a missing
// progress row and models.ErrDuplicateUnlock for a conflicting unlock insert.
type ProgressStore interface {
	// Atomically runs fn against a transactional view of the store. Any error
	// aborts the whole unit of work — no partial commit.
	Atomically(ctx context.Context, fn func(ProgressStore) error) error

	GetProgress(ctx context.Context, externalUserID string) (*models.UserProgress, error)
	CreateProgress(ctx context.Context, prog *models.UserProgress) error
	SaveProgress(ctx context.Context, prog *models.UserProgress) error
	ListProgressBatch(ctx context.Context, offset, limit int) ([]models.UserProgress, error)

	// Static catalogs
	ListAchievementDefinitions(ctx context.Context) ([]models.AchievementDefinition, error)
	ListTitleDefinitions(ctx context.Context) ([]models.TitleDefinition, error)
	GetTitleDefinition(ctx context.Context, code string) (*models.TitleDefinition, error)
	UpsertAchievementDefinition(ctx context.Context, def *models.AchievementDefinition) error
	UpsertTitleDefinition(ctx context.Context, def *models.TitleDefinition) error

	// Unlock ledgers
	ListUserAchievements(ctx context.Context, externalUserID string) ([]models.UserAchievement, error)
	ListUserTitles(ctx context.Context, externalUserID string) ([]models.UserTitle, error)
	InsertUserAchievement(ctx context.Context, ua *models.UserAchievement) error
	InsertUserTitle(ctx context.Context, ut *models.UserTitle) error

	// Activity ground truth + XP ledger
	InsertSolveRecord(ctx context.Context, rec *models.SolveRecord) error
	InsertCommentRecord(ctx context.Context, rec *models.CommentRecord) error
	InsertPostRecord(ctx context.Context, rec *models.PostRecord) error
	CountActivity(ctx context.Context, externalUserID string) (models.ActivityCounts, error)
	AppendXPEvent(ctx context.Context, ev *models.XPEvent) error

	// Ledger archival
	ListUnarchivedXPEvents(ctx context.Context, before time.Time, limit int) ([]models.XPEvent, error)
	MarkXPEventsArchived(ctx context.Context, ids []string) error
}
