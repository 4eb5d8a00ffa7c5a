package store

import (
	"context"
	"errors"
	"time"

	"trivia-progression-service/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore backs ProgressStore with Postgres via GORM.
// gorm.Open must be configured with TranslateError so unique-constraint
// conflicts surface as gorm.ErrDuplicatedKey.
type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

// AutoMigrate creates/updates every table the engine owns.
func (s *GormStore) AutoMigrate() error {
	return s.DB.AutoMigrate(
		&models.UserProgress{},
		&models.AchievementDefinition{},
		&models.TitleDefinition{},
		&models.UserAchievement{},
		&models.UserTitle{},
		&models.SolveRecord{},
		&models.CommentRecord{},
		&models.PostRecord{},
		&models.XPEvent{},
	)
}

func (s *GormStore) Atomically(ctx context.Context, fn func(ProgressStore) error) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{DB: tx})
	})
}

func (s *GormStore) GetProgress(ctx context.Context, externalUserID string) (*models.UserProgress, error) {
	var prog models.UserProgress
	err := s.DB.WithContext(ctx).Where("external_user_id = ?", externalUserID).First(&prog).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrProgressNotFound
	}
	if err != nil {
		return nil, err
	}
	return &prog, nil
}

func (s *GormStore) CreateProgress(ctx context.Context, prog *models.UserProgress) error {
	return s.DB.WithContext(ctx).Create(prog).Error
}

func (s *GormStore) SaveProgress(ctx context.Context, prog *models.UserProgress) error {
	return s.DB.WithContext(ctx).Save(prog).Error
}

func (s *GormStore) ListProgressBatch(ctx context.Context, offset, limit int) ([]models.UserProgress, error) {
	var batch []models.UserProgress
	err := s.DB.WithContext(ctx).
		Order("external_user_id ASC").
		Limit(limit).Offset(offset).
		Find(&batch).Error
	return batch, err
}

func (s *GormStore) ListAchievementDefinitions(ctx context.Context) ([]models.AchievementDefinition, error) {
	var defs []models.AchievementDefinition
	err := s.DB.WithContext(ctx).Order("code ASC").Find(&defs).Error
	return defs, err
}

func (s *GormStore) ListTitleDefinitions(ctx context.Context) ([]models.TitleDefinition, error) {
	var defs []models.TitleDefinition
	err := s.DB.WithContext(ctx).Order("code ASC").Find(&defs).Error
	return defs, err
}

func (s *GormStore) GetTitleDefinition(ctx context.Context, code string) (*models.TitleDefinition, error) {
	var def models.TitleDefinition
	err := s.DB.WithContext(ctx).Where("code = ?", code).First(&def).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrTitleNotFound
	}
	if err != nil {
		return nil, err
	}
	return &def, nil
}

// UpsertAchievementDefinition seeds by code — reward tuning in the catalog
// reaches existing rows on the next boot.
func (s *GormStore) UpsertAchievementDefinition(ctx context.Context, def *models.AchievementDefinition) error {
	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "description", "condition_type", "condition_value",
			"reward_xp", "reward_points", "reward_title_code",
		}),
	}).Create(def).Error
}

func (s *GormStore) UpsertTitleDefinition(ctx context.Context, def *models.TitleDefinition) error {
	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "unlock_type", "unlock_value"}),
	}).Create(def).Error
}

func (s *GormStore) ListUserAchievements(ctx context.Context, externalUserID string) ([]models.UserAchievement, error) {
	var rows []models.UserAchievement
	err := s.DB.WithContext(ctx).
		Where("external_user_id = ?", externalUserID).
		Order("unlocked_at ASC").
		Find(&rows).Error
	return rows, err
}

func (s *GormStore) ListUserTitles(ctx context.Context, externalUserID string) ([]models.UserTitle, error) {
	var rows []models.UserTitle
	err := s.DB.WithContext(ctx).
		Where("external_user_id = ?", externalUserID).
		Order("unlocked_at ASC").
		Find(&rows).Error
	return rows, err
}

func (s *GormStore) InsertUserAchievement(ctx context.Context, ua *models.UserAchievement) error {
	err := s.DB.WithContext(ctx).Create(ua).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return models.ErrDuplicateUnlock
	}
	return err
}

func (s *GormStore) InsertUserTitle(ctx context.Context, ut *models.UserTitle) error {
	err := s.DB.WithContext(ctx).Create(ut).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return models.ErrDuplicateUnlock
	}
	return err
}

func (s *GormStore) InsertSolveRecord(ctx context.Context, rec *models.SolveRecord) error {
	return s.DB.WithContext(ctx).Create(rec).Error
}

func (s *GormStore) InsertCommentRecord(ctx context.Context, rec *models.CommentRecord) error {
	return s.DB.WithContext(ctx).Create(rec).Error
}

func (s *GormStore) InsertPostRecord(ctx context.Context, rec *models.PostRecord) error {
	return s.DB.WithContext(ctx).Create(rec).Error
}

func (s *GormStore) CountActivity(ctx context.Context, externalUserID string) (models.ActivityCounts, error) {
	var counts models.ActivityCounts
	db := s.DB.WithContext(ctx)

	if err := db.Model(&models.SolveRecord{}).
		Where("external_user_id = ?", externalUserID).
		Count(&counts.Solves).Error; err != nil {
		return counts, err
	}
	if err := db.Model(&models.SolveRecord{}).
		Where("external_user_id = ? AND used_hint = false", externalUserID).
		Count(&counts.NoHintSolves).Error; err != nil {
		return counts, err
	}
	if err := db.Model(&models.SolveRecord{}).
		Where("external_user_id = ? AND question_count <= 3", externalUserID).
		Count(&counts.Under3QSolves).Error; err != nil {
		return counts, err
	}
	if err := db.Model(&models.CommentRecord{}).
		Where("external_user_id = ?", externalUserID).
		Count(&counts.Comments).Error; err != nil {
		return counts, err
	}
	if err := db.Model(&models.PostRecord{}).
		Where("external_user_id = ?", externalUserID).
		Count(&counts.Posts).Error; err != nil {
		return counts, err
	}
	return counts, nil
}

func (s *GormStore) AppendXPEvent(ctx context.Context, ev *models.XPEvent) error {
	return s.DB.WithContext(ctx).Create(ev).Error
}

func (s *GormStore) ListUnarchivedXPEvents(ctx context.Context, before time.Time, limit int) ([]models.XPEvent, error) {
	var events []models.XPEvent
	err := s.DB.WithContext(ctx).
		Where("archived = false AND created_at < ?", before).
		Order("created_at ASC").
		Limit(limit).
		Find(&events).Error
	return events, err
}

func (s *GormStore) MarkXPEventsArchived(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return s.DB.WithContext(ctx).
		Model(&models.XPEvent{}).
		Where("id IN ?", ids).
		Update("archived", true).Error
}
