package services

import (
	"context"
	"errors"
	"log"
	"time"

	"trivia-progression-service/models"
	"trivia-progression-service/store"
)

type AchievementService struct {
	Store store.ProgressStore
	Now   func() time.Time // injectable for tests
}

func NewAchievementService(st store.ProgressStore) *AchievementService {
	return &AchievementService{Store: st, Now: time.Now}
}

// CheckAndUnlock scans every achievement definition the user has not unlocked
// yet and unlocks the ones whose condition now holds. Solve/comment/post
// conditions read the authoritative activity counts; streak, participation
// and level conditions read the progress row itself. The summed bonus
// XP/points land on the progress row in one update with the level recomputed,
// and reward titles are granted duplicate-safe.
//
// Returns the newly unlocked definitions and the title codes granted through
// their reward_title_code.
func (s *AchievementService) CheckAndUnlock(
	ctx context.Context,
	prog *models.UserProgress,
	counts models.ActivityCounts,
) ([]models.AchievementDefinition, []string, error) {
	defs, err := s.Store.ListAchievementDefinitions(ctx)
	if err != nil {
		return nil, nil, err
	}
	owned, err := s.Store.ListUserAchievements(ctx, prog.ExternalUserID)
	if err != nil {
		return nil, nil, err
	}
	ownedSet := make(map[string]bool, len(owned))
	for _, ua := range owned {
		ownedSet[ua.AchievementCode] = true
	}

	var newlyUnlocked []models.AchievementDefinition
	var bonusXP, bonusPoints int64
	var rewardTitleCodes []string

	for _, def := range defs {
		if ownedSet[def.Code] {
			continue
		}
		if !achievementConditionMet(def, prog, counts) {
			continue
		}

		err := s.Store.InsertUserAchievement(ctx, &models.UserAchievement{
			ExternalUserID:  prog.ExternalUserID,
			AchievementCode: def.Code,
		})
		if errors.Is(err, models.ErrDuplicateUnlock) {
			// Lost a race to another instance — reward was already granted there.
			continue
		}
		if err != nil {
			return nil, nil, err
		}

		newlyUnlocked = append(newlyUnlocked, def)
		bonusXP += def.RewardXP
		bonusPoints += def.RewardPoints
		if def.RewardTitleCode != "" {
			rewardTitleCodes = append(rewardTitleCodes, def.RewardTitleCode)
		}
		log.Printf("🏆 Achievement unlocked: %s → %s", def.Name, prog.ExternalUserID)
	}

	if len(newlyUnlocked) == 0 {
		return nil, nil, nil
	}

	prog.XP += bonusXP
	prog.Points += bonusPoints
	newLevel, err := LevelOf(prog.XP)
	if err != nil {
		return nil, nil, err
	}
	if newLevel > prog.Level {
		now := s.Now()
		prog.LastLevelUpAt = &now
	}
	prog.Level = newLevel
	if err := s.Store.SaveProgress(ctx, prog); err != nil {
		return nil, nil, err
	}

	var grantedTitles []string
	for _, code := range rewardTitleCodes {
		err := s.Store.InsertUserTitle(ctx, &models.UserTitle{
			ExternalUserID: prog.ExternalUserID,
			TitleCode:      code,
		})
		if errors.Is(err, models.ErrDuplicateUnlock) {
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		grantedTitles = append(grantedTitles, code)
	}

	return newlyUnlocked, grantedTitles, nil
}

func achievementConditionMet(def models.AchievementDefinition, prog *models.UserProgress, counts models.ActivityCounts) bool {
	switch def.ConditionType {
	case models.CondStreak:
		return int64(prog.CurrentStreak) >= def.ConditionValue
	case models.CondParticipations:
		return prog.TotalParticipations >= def.ConditionValue
	case models.CondLevel:
		return int64(prog.Level) >= def.ConditionValue
	case models.CondSolves:
		return counts.Solves >= def.ConditionValue
	case models.CondNoHintSolves:
		return counts.NoHintSolves >= def.ConditionValue
	case models.CondUnder3QSolves:
		return counts.Under3QSolves >= def.ConditionValue
	case models.CondComments:
		return counts.Comments >= def.ConditionValue
	case models.CondPosts:
		return counts.Posts >= def.ConditionValue
	default:
		return false
	}
}
