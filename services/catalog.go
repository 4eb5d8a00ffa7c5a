package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"trivia-progression-service/models"
	"trivia-progression-service/store"

	"github.com/gosimple/slug"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English)

// SeedCatalogs upserts the shipped achievement/title definitions at boot.
// Codes left empty in the catalog are derived from the name, so "First Case
// Closed" seeds as "first-case-closed" and stays stable across reboots.
func SeedCatalogs(ctx context.Context, st store.ProgressStore) error {
	for _, def := range models.TitleCatalog() {
		d := def
		if d.Code == "" {
			d.Code = slug.Make(d.Name)
		}
		if err := st.UpsertTitleDefinition(ctx, &d); err != nil {
			return fmt.Errorf("seed title %s: %w", d.Code, err)
		}
	}
	for _, def := range models.AchievementCatalog() {
		d := def
		if d.Code == "" {
			d.Code = slug.Make(d.Name)
		}
		if err := st.UpsertAchievementDefinition(ctx, &d); err != nil {
			return fmt.Errorf("seed achievement %s: %w", d.Code, err)
		}
	}
	log.Printf("📚 Catalogs seeded: %d achievements, %d titles",
		len(models.AchievementCatalog()), len(models.TitleCatalog()))
	return nil
}

// NewManualTitle builds an admin-defined manual title from a free-form name.
func NewManualTitle(name string) (*models.TitleDefinition, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("title name must not be empty")
	}
	return &models.TitleDefinition{
		Code:       slug.Make(name),
		Name:       titleCaser.String(name),
		UnlockType: models.TitleUnlockManual,
	}, nil
}
