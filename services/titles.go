package services

import (
	"context"
	"errors"
	"log"

	"trivia-progression-service/models"
	"trivia-progression-service/store"
)

type TitleService struct {
	Store store.ProgressStore
}

func NewTitleService(st store.ProgressStore) *TitleService {
	return &TitleService{Store: st}
}

// CheckAndUnlock grants every condition-based title the user now qualifies
// for. achievement-typed and manual-typed titles are never auto-unlocked here:
// the former come through an achievement's reward_title_code, the latter
// through the admin grant endpoint. Titles grant no XP or points.
func (s *TitleService) CheckAndUnlock(
	ctx context.Context,
	prog *models.UserProgress,
	counts models.ActivityCounts,
) ([]models.TitleDefinition, error) {
	defs, err := s.Store.ListTitleDefinitions(ctx)
	if err != nil {
		return nil, err
	}
	owned, err := s.Store.ListUserTitles(ctx, prog.ExternalUserID)
	if err != nil {
		return nil, err
	}
	ownedSet := make(map[string]bool, len(owned))
	for _, ut := range owned {
		ownedSet[ut.TitleCode] = true
	}

	var newlyUnlocked []models.TitleDefinition
	for _, def := range defs {
		if ownedSet[def.Code] {
			continue
		}
		if !titleConditionMet(def, prog, counts) {
			continue
		}

		err := s.Store.InsertUserTitle(ctx, &models.UserTitle{
			ExternalUserID: prog.ExternalUserID,
			TitleCode:      def.Code,
		})
		if errors.Is(err, models.ErrDuplicateUnlock) {
			continue
		}
		if err != nil {
			return nil, err
		}
		newlyUnlocked = append(newlyUnlocked, def)
		log.Printf("🎖️ Title unlocked: %s → %s", def.Name, prog.ExternalUserID)
	}

	return newlyUnlocked, nil
}

func titleConditionMet(def models.TitleDefinition, prog *models.UserProgress, counts models.ActivityCounts) bool {
	switch def.UnlockType {
	case models.TitleUnlockLevel:
		return int64(prog.Level) >= def.UnlockValue
	case models.TitleUnlockStreak:
		return int64(prog.CurrentStreak) >= def.UnlockValue
	case models.TitleUnlockNoHintSolves:
		return counts.NoHintSolves >= def.UnlockValue
	case models.TitleUnlockUnder3QSolves:
		return counts.Under3QSolves >= def.UnlockValue
	default:
		// achievement / manual — granted elsewhere
		return false
	}
}
