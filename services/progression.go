package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"trivia-progression-service/models"
	"trivia-progression-service/store"

	"github.com/google/uuid"
)

// maxUnlockPasses bounds the achievement/title fixed-point loop. Two passes
// are enough for the shipped condition types (titles grant no XP, so only
// achievement bonuses can cascade); hitting the bound means a reward cycle
// was introduced in the catalogs.
const maxUnlockPasses = 3

// ProgressionService is the single entry point for gameplay events. It owns
// every write to UserProgress and serializes them per user.
type ProgressionService struct {
	Store store.ProgressStore
	Loc   *time.Location
	Now   func() time.Time // injectable for tests

	userLocks sync.Map // external user ID → *sync.Mutex
}

func NewProgressionService(st store.ProgressStore, loc *time.Location) *ProgressionService {
	if loc == nil {
		loc = time.UTC
	}
	return &ProgressionService{
		Store: st,
		Loc:   loc,
		Now:   time.Now,
	}
}

// ApplyEventResult is what the UI renders: level-up and unlock notifications.
type ApplyEventResult struct {
	Success              bool                           `json:"success"`
	NewLevel             int                            `json:"new_level"`
	GainedXP             int64                          `json:"gained_xp"`
	GainedPoints         int64                          `json:"gained_points"`
	LeveledUp            bool                           `json:"leveled_up"`
	UnlockedTitles       []models.TitleDefinition       `json:"unlocked_titles"`
	UnlockedAchievements []models.AchievementDefinition `json:"unlocked_achievements"`
	Error                string                         `json:"error,omitempty"`
}

// userLock returns the mutex serializing all progress writes for one user.
// Different users proceed in parallel; a second instance of the service must
// rely on the unlock unique constraints staying reward-safe.
func (s *ProgressionService) userLock(externalUserID string) *sync.Mutex {
	lock, _ := s.userLocks.LoadOrStore(externalUserID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

// EnsureProgressRecord ensures a UserProgress row exists (idempotent).
// Called from the signup path and the progress read endpoint.
func (s *ProgressionService) EnsureProgressRecord(ctx context.Context, externalUserID string) (*models.UserProgress, error) {
	lock := s.userLock(externalUserID)
	lock.Lock()
	defer lock.Unlock()

	prog, err := s.Store.GetProgress(ctx, externalUserID)
	if errors.Is(err, models.ErrProgressNotFound) {
		prog = &models.UserProgress{
			ID:             uuid.NewString(),
			ExternalUserID: externalUserID,
			Level:          1,
		}
		if err := s.Store.CreateProgress(ctx, prog); err != nil {
			return nil, err
		}
		return prog, nil
	}
	if err != nil {
		return nil, err
	}
	return prog, nil
}

// ApplyEvent converts one gameplay event into XP, points, streak and unlock
// updates, atomically for one user. A store failure aborts the whole call —
// the caller may safely retry.
func (s *ProgressionService) ApplyEvent(ctx context.Context, externalUserID string, event models.GameEvent) (*ApplyEventResult, error) {
	// A solve_success without its payload cannot be rewarded or counted
	// honestly, so it is rejected outright instead of defaulting to the
	// best-case bonuses.
	if event.Type == models.EventSolveSuccess && event.Solve == nil {
		return nil, fmt.Errorf("%w: solve_success requires a solve payload", models.ErrInvalidEvent)
	}

	lock := s.userLock(externalUserID)
	lock.Lock()
	defer lock.Unlock()

	today := s.Now().In(s.Loc)
	var result *ApplyEventResult

	err := s.Store.Atomically(ctx, func(tx store.ProgressStore) error {
		var err error
		result, err = s.applyEventTx(ctx, tx, externalUserID, event, today)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *ProgressionService) applyEventTx(
	ctx context.Context,
	tx store.ProgressStore,
	externalUserID string,
	event models.GameEvent,
	today time.Time,
) (*ApplyEventResult, error) {
	prog, err := tx.GetProgress(ctx, externalUserID)
	if err != nil {
		return nil, err
	}

	// Day rollover resets the comment/post quota windows before any reward
	// for the current event is computed.
	if resetDailyWindow(prog, today) {
		if err := tx.SaveProgress(ctx, prog); err != nil {
			return nil, err
		}
	}

	reward := CalculateReward(event, prog)
	if reward.IsZero() {
		// Silent no-op (e.g. daily comment cap reached, unknown event type):
		// no counters, no ledger row, no unlock scans. Empty slices so the
		// response renders [] rather than null.
		return &ApplyEventResult{
			Success:              true,
			NewLevel:             prog.Level,
			UnlockedTitles:       []models.TitleDefinition{},
			UnlockedAchievements: []models.AchievementDefinition{},
		}, nil
	}

	oldLevel := prog.Level
	prog.XP += reward.XP
	prog.Points += reward.Points
	newLevel, err := LevelOf(prog.XP)
	if err != nil {
		return nil, err
	}
	if newLevel > prog.Level {
		now := s.Now()
		prog.LastLevelUpAt = &now
	}
	prog.Level = newLevel

	if err := s.recordActivity(ctx, tx, prog, event, reward); err != nil {
		return nil, err
	}

	if event.Type == models.EventDailyParticipate {
		advanceStreak(prog, today)
	}

	if err := tx.SaveProgress(ctx, prog); err != nil {
		return nil, err
	}

	if err := s.appendLedger(ctx, tx, externalUserID, event, reward); err != nil {
		return nil, err
	}

	unlockedAchievements, unlockedTitles, err := s.runUnlockPasses(ctx, tx, prog)
	if err != nil {
		return nil, err
	}

	gainedXP := reward.XP
	gainedPoints := reward.Points
	for _, def := range unlockedAchievements {
		gainedXP += def.RewardXP
		gainedPoints += def.RewardPoints
	}

	if prog.Level > oldLevel {
		log.Printf("🎮 Level up: %s → L%d (xp=%d)", externalUserID, prog.Level, prog.XP)
	}

	return &ApplyEventResult{
		Success:              true,
		NewLevel:             prog.Level,
		GainedXP:             gainedXP,
		GainedPoints:         gainedPoints,
		LeveledUp:            prog.Level > oldLevel,
		UnlockedTitles:       unlockedTitles,
		UnlockedAchievements: unlockedAchievements,
	}, nil
}

// recordActivity bumps the event-type-specific cached counters and appends
// the ground-truth activity row the achievement evaluator counts.
func (s *ProgressionService) recordActivity(
	ctx context.Context,
	tx store.ProgressStore,
	prog *models.UserProgress,
	event models.GameEvent,
	reward Reward,
) error {
	switch event.Type {
	case models.EventDailyParticipate:
		prog.TotalParticipations++

	case models.EventSolveSuccess:
		// ApplyEvent rejects payload-less solves, so Solve is always set here.
		prog.TotalSolves++
		if !event.Solve.UsedHint {
			prog.NoHintSolves++
		}
		if event.Solve.QuestionCount <= 3 {
			prog.Under3QSolves++
		}
		rec := &models.SolveRecord{
			ExternalUserID: prog.ExternalUserID,
			UsedHint:       event.Solve.UsedHint,
			QuestionCount:  event.Solve.QuestionCount,
		}
		if err := tx.InsertSolveRecord(ctx, rec); err != nil {
			return err
		}

	case models.EventSolveFail:
		// Rewarded but not an activity milestone.

	case models.EventComment:
		prog.TotalComments++
		prog.DailyCommentXP += reward.XP
		if err := tx.InsertCommentRecord(ctx, &models.CommentRecord{ExternalUserID: prog.ExternalUserID}); err != nil {
			return err
		}

	case models.EventPost:
		prog.TotalPosts++
		prog.DailyPostXP += reward.XP
		if err := tx.InsertPostRecord(ctx, &models.PostRecord{ExternalUserID: prog.ExternalUserID}); err != nil {
			return err
		}
	}
	return nil
}

// appendLedger writes the write-once XPEvent audit row. Never read back by
// this flow.
func (s *ProgressionService) appendLedger(
	ctx context.Context,
	tx store.ProgressStore,
	externalUserID string,
	event models.GameEvent,
	reward Reward,
) error {
	metadata := "{}"
	if event.Solve != nil {
		raw, err := json.Marshal(event.Solve)
		if err != nil {
			return err
		}
		metadata = string(raw)
	}
	return tx.AppendXPEvent(ctx, &models.XPEvent{
		ExternalUserID: externalUserID,
		EventType:      string(event.Type),
		XPGained:       reward.XP,
		PointsGained:   reward.Points,
		Metadata:       metadata,
	})
}

// runUnlockPasses repeats achievement-then-title evaluation until a full pass
// unlocks nothing. Achievement bonus XP can raise the level, which can satisfy
// further level-gated achievements and titles, so one pass is not enough; the
// loop is bounded because unlocks are one-way.
func (s *ProgressionService) runUnlockPasses(
	ctx context.Context,
	tx store.ProgressStore,
	prog *models.UserProgress,
) ([]models.AchievementDefinition, []models.TitleDefinition, error) {
	achSvc := NewAchievementService(tx)
	achSvc.Now = s.Now
	titleSvc := NewTitleService(tx)

	// Ground-truth counts don't change during unlock passes — fetch once.
	counts, err := tx.CountActivity(ctx, prog.ExternalUserID)
	if err != nil {
		return nil, nil, err
	}

	// Non-nil even when nothing unlocks, so the JSON response renders [].
	allAchievements := []models.AchievementDefinition{}
	allTitles := []models.TitleDefinition{}
	seenTitle := make(map[string]bool)

	for pass := 0; ; pass++ {
		if pass >= maxUnlockPasses {
			return nil, nil, fmt.Errorf("%w: unlock evaluation did not settle in %d passes for %s",
				models.ErrInvariantViolation, maxUnlockPasses, prog.ExternalUserID)
		}

		achievements, grantedTitleCodes, err := achSvc.CheckAndUnlock(ctx, prog, counts)
		if err != nil {
			return nil, nil, err
		}
		allAchievements = append(allAchievements, achievements...)

		for _, code := range grantedTitleCodes {
			if seenTitle[code] {
				continue
			}
			def, err := tx.GetTitleDefinition(ctx, code)
			if errors.Is(err, models.ErrTitleNotFound) {
				log.Printf("⚠️ Achievement reward references unknown title %q", code)
				continue
			}
			if err != nil {
				return nil, nil, err
			}
			seenTitle[code] = true
			allTitles = append(allTitles, *def)
		}

		titles, err := titleSvc.CheckAndUnlock(ctx, prog, counts)
		if err != nil {
			return nil, nil, err
		}
		for _, def := range titles {
			if seenTitle[def.Code] {
				continue
			}
			seenTitle[def.Code] = true
			allTitles = append(allTitles, def)
		}

		if len(achievements) == 0 && len(titles) == 0 {
			return allAchievements, allTitles, nil
		}
	}
}
