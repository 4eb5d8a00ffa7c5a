package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"trivia-progression-service/models"
	"trivia-progression-service/services"
	"trivia-progression-service/store"
)

// fakeClock freezes "now" so day rollovers and streaks are scriptable.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AdvanceDays(days int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.AddDate(0, 0, days)
}

// newEngine builds the orchestrator over a fresh memory store. Catalog
// seeding is optional — the pure reward scenarios assume no unlock bonuses.
func newEngine(t *testing.T, seedCatalogs bool) (*services.ProgressionService, *store.MemoryStore, *fakeClock) {
	t.Helper()
	st := store.NewMemoryStore()
	if seedCatalogs {
		if err := services.SeedCatalogs(context.Background(), st); err != nil {
			t.Fatalf("seed catalogs: %v", err)
		}
	}
	svc := services.NewProgressionService(st, time.UTC)
	clock := &fakeClock{now: time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)}
	svc.Now = clock.Now
	return svc, st, clock
}

func mustProgress(t *testing.T, svc *services.ProgressionService, userID string) *models.UserProgress {
	t.Helper()
	prog, err := svc.EnsureProgressRecord(context.Background(), userID)
	if err != nil {
		t.Fatalf("ensure progress: %v", err)
	}
	return prog
}

func apply(t *testing.T, svc *services.ProgressionService, userID string, event models.GameEvent) *services.ApplyEventResult {
	t.Helper()
	result, err := svc.ApplyEvent(context.Background(), userID, event)
	if err != nil {
		t.Fatalf("apply %s: %v", event.Type, err)
	}
	if !result.Success {
		t.Fatalf("apply %s: result not successful: %s", event.Type, result.Error)
	}
	return result
}

func TestApplyEvent_UnknownUser(t *testing.T) {
	svc, _, _ := newEngine(t, false)

	_, err := svc.ApplyEvent(context.Background(), "ghost", models.GameEvent{Type: models.EventSolveFail})
	if err != models.ErrProgressNotFound {
		t.Errorf("expected ErrProgressNotFound, got %v", err)
	}
}

func TestApplyEvent_FreshUserSolve(t *testing.T) {
	svc, st, _ := newEngine(t, false)
	mustProgress(t, svc, "u1")

	result := apply(t, svc, "u1", solveEvent(false, 2))

	if result.GainedXP != 90 || result.GainedPoints != 20 {
		t.Errorf("gained (%d xp, %d pts), want (90, 20)", result.GainedXP, result.GainedPoints)
	}
	if result.NewLevel != 1 || result.LeveledUp {
		t.Errorf("expected level 1 without level-up, got level %d leveledUp=%t", result.NewLevel, result.LeveledUp)
	}

	prog, _ := st.GetProgress(context.Background(), "u1")
	if prog.XP != 90 || prog.Points != 20 {
		t.Errorf("persisted (%d xp, %d pts), want (90, 20)", prog.XP, prog.Points)
	}
	if prog.TotalSolves != 1 || prog.NoHintSolves != 1 || prog.Under3QSolves != 1 {
		t.Errorf("solve counters = (%d, %d, %d), want (1, 1, 1)",
			prog.TotalSolves, prog.NoHintSolves, prog.Under3QSolves)
	}
	if events := st.XPEvents(); len(events) != 1 || events[0].EventType != "solve_success" {
		t.Errorf("expected one solve_success ledger row, got %v", events)
	}
	if result.UnlockedAchievements == nil || result.UnlockedTitles == nil {
		t.Error("unlock slices must be non-nil even when nothing unlocked")
	}
}

func TestApplyEvent_SolveWithoutPayloadRejected(t *testing.T) {
	svc, st, _ := newEngine(t, false)
	mustProgress(t, svc, "u1")

	// No payload, so no honest way to decide the no-hint/under-3Q bonuses.
	_, err := svc.ApplyEvent(context.Background(), "u1", models.GameEvent{Type: models.EventSolveSuccess})
	if !errors.Is(err, models.ErrInvalidEvent) {
		t.Fatalf("expected ErrInvalidEvent, got %v", err)
	}

	// Nothing persisted: the milestone counts the achievement evaluator reads
	// and the cached counters must both stay at zero.
	counts, _ := st.CountActivity(context.Background(), "u1")
	if counts.Solves != 0 || counts.NoHintSolves != 0 || counts.Under3QSolves != 0 {
		t.Errorf("activity counts = %+v, want all zero", counts)
	}
	prog, _ := st.GetProgress(context.Background(), "u1")
	if prog.XP != 0 || prog.TotalSolves != 0 || prog.NoHintSolves != 0 || prog.Under3QSolves != 0 {
		t.Errorf("rejected event mutated progress: %+v", prog)
	}
	if got := len(st.XPEvents()); got != 0 {
		t.Errorf("rejected event wrote %d ledger rows", got)
	}
}

func TestApplyEvent_LevelUpAcrossThreshold(t *testing.T) {
	svc, st, clock := newEngine(t, false)
	prog := mustProgress(t, svc, "u1")

	prog.XP = 95
	if err := st.SaveProgress(context.Background(), prog); err != nil {
		t.Fatalf("save: %v", err)
	}

	result := apply(t, svc, "u1", solveEvent(false, 2))

	if !result.LeveledUp || result.NewLevel != 2 {
		t.Errorf("expected level-up to 2, got level %d leveledUp=%t", result.NewLevel, result.LeveledUp)
	}
	saved, _ := st.GetProgress(context.Background(), "u1")
	if saved.XP != 185 || saved.Level != 2 {
		t.Errorf("persisted xp=%d level=%d, want xp=185 level=2", saved.XP, saved.Level)
	}
	if saved.LastLevelUpAt == nil {
		t.Error("expected LastLevelUpAt to be stamped")
	} else if !saved.LastLevelUpAt.Equal(clock.Now()) {
		t.Errorf("LastLevelUpAt = %v, want the service clock %v", saved.LastLevelUpAt, clock.Now())
	}
}

func TestApplyEvent_DailyCommentCap(t *testing.T) {
	svc, st, _ := newEngine(t, false)
	mustProgress(t, svc, "u1")

	var total int64
	for i := 0; i < 25; i++ {
		result := apply(t, svc, "u1", models.GameEvent{Type: models.EventComment})
		total += result.GainedXP
	}

	if total != 40 {
		t.Errorf("25 comments earned %d XP total, want 40", total)
	}
	prog, _ := st.GetProgress(context.Background(), "u1")
	if prog.DailyCommentXP != 40 {
		t.Errorf("dailyCommentXP = %d, want 40", prog.DailyCommentXP)
	}
	// Comments past the cap are zero-gain no-ops: not counted, not logged.
	if prog.TotalComments != 20 {
		t.Errorf("totalComments = %d, want 20 rewarded comments", prog.TotalComments)
	}
	if got := len(st.XPEvents()); got != 20 {
		t.Errorf("ledger has %d rows, want 20", got)
	}
}

func TestApplyEvent_DayRolloverResetsQuotas(t *testing.T) {
	svc, st, clock := newEngine(t, false)
	mustProgress(t, svc, "u1")

	for i := 0; i < 20; i++ {
		apply(t, svc, "u1", models.GameEvent{Type: models.EventComment})
	}
	for i := 0; i < 5; i++ {
		apply(t, svc, "u1", models.GameEvent{Type: models.EventPost})
	}
	prog, _ := st.GetProgress(context.Background(), "u1")
	if prog.DailyCommentXP != 40 || prog.DailyPostXP != 50 {
		t.Fatalf("daily windows = (%d, %d), want (40, 50)", prog.DailyCommentXP, prog.DailyPostXP)
	}

	clock.AdvanceDays(1)

	result := apply(t, svc, "u1", models.GameEvent{Type: models.EventComment})
	if result.GainedXP != 2 {
		t.Errorf("first comment after rollover gained %d XP, want 2", result.GainedXP)
	}
	prog, _ = st.GetProgress(context.Background(), "u1")
	if prog.DailyCommentXP != 2 || prog.DailyPostXP != 0 {
		t.Errorf("daily windows after rollover = (%d, %d), want (2, 0)", prog.DailyCommentXP, prog.DailyPostXP)
	}
}

func TestApplyEvent_ZeroGainIsNoOp(t *testing.T) {
	svc, st, _ := newEngine(t, false)
	mustProgress(t, svc, "u1")

	for i := 0; i < 20; i++ {
		apply(t, svc, "u1", models.GameEvent{Type: models.EventComment})
	}
	before, _ := st.GetProgress(context.Background(), "u1")
	ledgerBefore := len(st.XPEvents())

	result := apply(t, svc, "u1", models.GameEvent{Type: models.EventComment})

	if result.GainedXP != 0 || result.GainedPoints != 0 || result.LeveledUp {
		t.Errorf("expected silent zero-gain result, got %+v", result)
	}
	if len(result.UnlockedAchievements) != 0 || len(result.UnlockedTitles) != 0 {
		t.Error("zero-gain event must not trigger unlock scans")
	}
	// Empty, not nil: the response body must render [] rather than null.
	if result.UnlockedAchievements == nil || result.UnlockedTitles == nil {
		t.Error("unlock slices must be non-nil on zero-gain results")
	}
	after, _ := st.GetProgress(context.Background(), "u1")
	if after.XP != before.XP || after.Points != before.Points || after.TotalComments != before.TotalComments {
		t.Errorf("zero-gain event mutated progress: before=%+v after=%+v", before, after)
	}
	if len(st.XPEvents()) != ledgerBefore {
		t.Error("zero-gain event wrote a ledger row")
	}
}

func TestApplyEvent_StreakLaws(t *testing.T) {
	t.Run("three consecutive days", func(t *testing.T) {
		svc, st, clock := newEngine(t, false)
		mustProgress(t, svc, "u1")

		for day := 0; day < 3; day++ {
			apply(t, svc, "u1", models.GameEvent{Type: models.EventDailyParticipate})
			clock.AdvanceDays(1)
		}
		prog, _ := st.GetProgress(context.Background(), "u1")
		if prog.CurrentStreak != 3 || prog.BestStreak != 3 {
			t.Errorf("streak = (%d, best %d), want (3, 3)", prog.CurrentStreak, prog.BestStreak)
		}
		if prog.TotalParticipations != 3 {
			t.Errorf("totalParticipations = %d, want 3", prog.TotalParticipations)
		}
	})

	t.Run("gap breaks streak, best survives", func(t *testing.T) {
		svc, st, clock := newEngine(t, false)
		mustProgress(t, svc, "u1")

		apply(t, svc, "u1", models.GameEvent{Type: models.EventDailyParticipate})
		clock.AdvanceDays(1)
		apply(t, svc, "u1", models.GameEvent{Type: models.EventDailyParticipate})
		clock.AdvanceDays(5)
		apply(t, svc, "u1", models.GameEvent{Type: models.EventDailyParticipate})

		prog, _ := st.GetProgress(context.Background(), "u1")
		if prog.CurrentStreak != 1 {
			t.Errorf("currentStreak = %d, want 1 after a gap", prog.CurrentStreak)
		}
		if prog.BestStreak != 2 {
			t.Errorf("bestStreak = %d, want 2", prog.BestStreak)
		}
	})

	t.Run("same day is idempotent", func(t *testing.T) {
		svc, st, _ := newEngine(t, false)
		mustProgress(t, svc, "u1")

		apply(t, svc, "u1", models.GameEvent{Type: models.EventDailyParticipate})
		apply(t, svc, "u1", models.GameEvent{Type: models.EventDailyParticipate})

		prog, _ := st.GetProgress(context.Background(), "u1")
		if prog.CurrentStreak != 1 || prog.BestStreak != 1 {
			t.Errorf("streak = (%d, best %d), want (1, 1)", prog.CurrentStreak, prog.BestStreak)
		}
	})
}

func TestApplyEvent_TenthNoHintSolveUnlocksAchievement(t *testing.T) {
	svc, st, _ := newEngine(t, true)
	mustProgress(t, svc, "u1")

	// Nine prior no-hint solves, high question counts so only the no-hint
	// ladder advances. The first solve unlocks "First Case Closed".
	for i := 0; i < 9; i++ {
		apply(t, svc, "u1", solveEvent(false, 15))
	}
	prog, _ := st.GetProgress(context.Background(), "u1")
	if prog.NoHintSolves != 9 {
		t.Fatalf("noHintSolves = %d, want 9", prog.NoHintSolves)
	}

	result := apply(t, svc, "u1", solveEvent(false, 15))

	// Event reward 30+20 plus the achievement's own 50 XP, in one call.
	if result.GainedXP != 100 {
		t.Errorf("gainedXP = %d, want 100 (event 50 + bonus 50)", result.GainedXP)
	}
	if result.GainedPoints != 70 {
		t.Errorf("gainedPoints = %d, want 70 (event 20 + bonus 50)", result.GainedPoints)
	}
	if !containsAchievement(result.UnlockedAchievements, "clean-hands") {
		t.Errorf("expected clean-hands in unlocked achievements, got %v", result.UnlockedAchievements)
	}
	if !containsTitle(result.UnlockedTitles, "perfectionist") {
		t.Errorf("expected perfectionist reward title, got %v", result.UnlockedTitles)
	}

	prog, _ = st.GetProgress(context.Background(), "u1")
	if prog.NoHintSolves != 10 {
		t.Errorf("noHintSolves = %d, want 10", prog.NoHintSolves)
	}
}

func TestApplyEvent_AchievementBonusCascadesToLevelAchievement(t *testing.T) {
	svc, st, clock := newEngine(t, true)
	prog := mustProgress(t, svc, "u1")

	// One participation short of "Daily Dozen", 50 XP short of level 10.
	// The event reward alone cannot cross; the achievement bonus can, and the
	// level-10 achievement must then fire on the second evaluator pass.
	prog.XP = 4450
	prog.Level = 9
	prog.TotalParticipations = 11
	if err := st.SaveProgress(context.Background(), prog); err != nil {
		t.Fatalf("save: %v", err)
	}

	result := apply(t, svc, "u1", models.GameEvent{Type: models.EventDailyParticipate})

	if !containsAchievement(result.UnlockedAchievements, "daily-dozen") {
		t.Errorf("expected daily-dozen, got %v", result.UnlockedAchievements)
	}
	if !containsAchievement(result.UnlockedAchievements, "level-ten") {
		t.Errorf("expected level-ten via second pass, got %v", result.UnlockedAchievements)
	}
	// 15 event + 60 daily-dozen + 200 level-ten
	if result.GainedXP != 275 {
		t.Errorf("gainedXP = %d, want 275", result.GainedXP)
	}
	if !result.LeveledUp || result.NewLevel != 10 {
		t.Errorf("expected level-up to 10, got level %d leveledUp=%t", result.NewLevel, result.LeveledUp)
	}
	saved, _ := st.GetProgress(context.Background(), "u1")
	if saved.Level != 10 || saved.XP != 4725 {
		t.Errorf("persisted level=%d xp=%d, want level=10 xp=4725", saved.Level, saved.XP)
	}
	// The bonus-driven level-up is stamped with the service clock too.
	if saved.LastLevelUpAt == nil || !saved.LastLevelUpAt.Equal(clock.Now()) {
		t.Errorf("LastLevelUpAt = %v, want the service clock %v", saved.LastLevelUpAt, clock.Now())
	}
}

func TestApplyEvent_UnknownRewardTitleIsSkipped(t *testing.T) {
	svc, st, _ := newEngine(t, false)
	mustProgress(t, svc, "u1")

	// A miswired catalog entry whose reward title was never defined must not
	// fail the event: the achievement still unlocks, the title is skipped.
	if err := st.UpsertAchievementDefinition(context.Background(), &models.AchievementDefinition{
		Code:            "first-case-closed",
		Name:            "First Case Closed",
		ConditionType:   models.CondSolves,
		ConditionValue:  1,
		RewardXP:        30,
		RewardPoints:    20,
		RewardTitleCode: "ghost-title",
	}); err != nil {
		t.Fatalf("upsert definition: %v", err)
	}

	result := apply(t, svc, "u1", solveEvent(true, 15))

	if !containsAchievement(result.UnlockedAchievements, "first-case-closed") {
		t.Errorf("expected first-case-closed, got %v", result.UnlockedAchievements)
	}
	if len(result.UnlockedTitles) != 0 {
		t.Errorf("unknown reward title must not appear in the result, got %v", result.UnlockedTitles)
	}
	if result.GainedXP != 30+30 {
		t.Errorf("gainedXP = %d, want 60 (event 30 + bonus 30)", result.GainedXP)
	}
}

func TestApplyEvent_UnlockIsIdempotentUnderRace(t *testing.T) {
	svc, st, _ := newEngine(t, true)
	mustProgress(t, svc, "u1")

	// Another instance already recorded the unlock (simulated race): the
	// reward must not be granted again here.
	if err := st.InsertUserAchievement(context.Background(), &models.UserAchievement{
		ExternalUserID:  "u1",
		AchievementCode: "first-case-closed",
	}); err != nil {
		t.Fatalf("pre-insert: %v", err)
	}

	result := apply(t, svc, "u1", solveEvent(true, 15))

	if containsAchievement(result.UnlockedAchievements, "first-case-closed") {
		t.Error("already-owned achievement reported as newly unlocked")
	}
	if result.GainedXP != 30 {
		t.Errorf("gainedXP = %d, want 30 (event only, no duplicate bonus)", result.GainedXP)
	}
	rows, _ := st.ListUserAchievements(context.Background(), "u1")
	if len(rows) != 1 {
		t.Errorf("expected exactly one unlock row, got %d", len(rows))
	}
}

func TestApplyEvent_PerUserSerialization(t *testing.T) {
	svc, st, _ := newEngine(t, false)
	mustProgress(t, svc, "u1")

	// 50 concurrent comments race over the same daily window. With per-user
	// serialization the cap holds exactly.
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.ApplyEvent(context.Background(), "u1", models.GameEvent{Type: models.EventComment})
		}()
	}
	wg.Wait()

	prog, _ := st.GetProgress(context.Background(), "u1")
	if prog.DailyCommentXP != 40 || prog.XP != 40 {
		t.Errorf("daily=%d xp=%d, want 40/40 — lost or double-counted update", prog.DailyCommentXP, prog.XP)
	}
	if prog.TotalComments != 20 {
		t.Errorf("totalComments = %d, want 20", prog.TotalComments)
	}
}

func containsAchievement(defs []models.AchievementDefinition, code string) bool {
	for _, d := range defs {
		if d.Code == code {
			return true
		}
	}
	return false
}

func containsTitle(defs []models.TitleDefinition, code string) bool {
	for _, d := range defs {
		if d.Code == code {
			return true
		}
	}
	return false
}
