// handlers/progression_routes.go
package handlers

import (
	"errors"
	"log"
	"time"

	"trivia-progression-service/middleware"
	"trivia-progression-service/models"
	"trivia-progression-service/services"

	"github.com/gofiber/fiber/v2"
)

func SetupProgressionRoutes(app *fiber.App, progressionService *services.ProgressionService) {
	// 🔐 Secured routes — require user context (userID, roles) from the
	// Gateway. Grouped under /user so the public /catalog routes stay open.
	securedGroup := app.Group("/user", middleware.UserContextMiddleware())

	// POST /user/events — the single gameplay entry point. The UI renders
	// level-up and unlock notifications from the response.
	securedGroup.Post("/events", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var req struct {
			EventType     string `json:"event_type"`
			UsedHint      *bool  `json:"used_hint,omitempty"`
			QuestionCount *int   `json:"question_count,omitempty"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"error":   "invalid request body",
			})
		}
		if req.EventType == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"error":   "event_type is required",
			})
		}

		event := models.GameEvent{Type: models.EventType(req.EventType)}
		if event.Type == models.EventSolveSuccess {
			// A solve must declare both facts; defaulting would hand out the
			// no-hint and under-3-questions bonuses unearned.
			if req.UsedHint == nil || req.QuestionCount == nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"success": false,
					"error":   "solve_success requires used_hint and question_count",
				})
			}
			event.Solve = &models.SolvePayload{
				UsedHint:      *req.UsedHint,
				QuestionCount: *req.QuestionCount,
			}
		}

		result, err := progressionService.ApplyEvent(c.Context(), userID, event)
		if err != nil {
			if errors.Is(err, models.ErrInvalidEvent) {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"success": false,
					"error":   err.Error(),
				})
			}
			if errors.Is(err, models.ErrProgressNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
					"success": false,
					"error":   "no progress record for user",
				})
			}
			log.Printf("❌ [EVENTS] apply %s for %s failed: %v", req.EventType, userID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"error":   "failed to apply event",
			})
		}
		return c.JSON(result)
	})

	// GET /user/progress — progress row plus XP remaining to the next level.
	// Creates the row on first read, like the signup path would.
	securedGroup.Get("/progress", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		prog, err := progressionService.EnsureProgressRecord(c.Context(), userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load progress",
				"cause": err.Error(),
			})
		}

		xpToNext, err := services.XPToNextLevel(prog.XP)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to compute level progress",
			})
		}

		return c.JSON(fiber.Map{
			"progress":         prog,
			"xp_to_next_level": xpToNext,
		})
	})

	securedGroup.Get("/achievements", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		unlocked, err := progressionService.Store.ListUserAchievements(c.Context(), userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load achievements",
			})
		}
		defs, err := progressionService.Store.ListAchievementDefinitions(c.Context())
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load achievement catalog",
			})
		}

		byCode := make(map[string]models.AchievementDefinition, len(defs))
		for _, d := range defs {
			byCode[d.Code] = d
		}
		type unlockedAchievement struct {
			models.AchievementDefinition
			UnlockedAt time.Time `json:"unlocked_at"`
		}
		out := make([]unlockedAchievement, 0, len(unlocked))
		for _, ua := range unlocked {
			if def, ok := byCode[ua.AchievementCode]; ok {
				out = append(out, unlockedAchievement{AchievementDefinition: def, UnlockedAt: ua.UnlockedAt})
			}
		}
		return c.JSON(fiber.Map{
			"achievements": out,
			"total":        len(defs),
		})
	})

	securedGroup.Get("/titles", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		unlocked, err := progressionService.Store.ListUserTitles(c.Context(), userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load titles",
			})
		}
		defs, err := progressionService.Store.ListTitleDefinitions(c.Context())
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load title catalog",
			})
		}

		byCode := make(map[string]models.TitleDefinition, len(defs))
		for _, d := range defs {
			byCode[d.Code] = d
		}
		type unlockedTitle struct {
			models.TitleDefinition
			UnlockedAt time.Time `json:"unlocked_at"`
		}
		out := make([]unlockedTitle, 0, len(unlocked))
		for _, ut := range unlocked {
			if def, ok := byCode[ut.TitleCode]; ok {
				out = append(out, unlockedTitle{TitleDefinition: def, UnlockedAt: ut.UnlockedAt})
			}
		}
		return c.JSON(fiber.Map{"titles": out})
	})

	// Public catalogs for the UI — registered on the app directly, outside the
	// user-context group.
	app.Get("/catalog/achievements", func(c *fiber.Ctx) error {
		defs, err := progressionService.Store.ListAchievementDefinitions(c.Context())
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load achievement catalog",
			})
		}
		return c.JSON(fiber.Map{"achievements": defs})
	})

	app.Get("/catalog/titles", func(c *fiber.Ctx) error {
		defs, err := progressionService.Store.ListTitleDefinitions(c.Context())
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load title catalog",
			})
		}
		return c.JSON(fiber.Map{"titles": defs})
	})

	// --- Admin ---
	adminGroup := app.Group("/admin", middleware.UserContextMiddleware(), middleware.RequireAdmin())

	// POST /admin/titles — define a new manual title (e.g. event prizes).
	adminGroup.Post("/titles", func(c *fiber.Ctx) error {
		var req struct {
			Name string `json:"name"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		def, err := services.NewManualTitle(req.Name)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		if err := progressionService.Store.UpsertTitleDefinition(c.Context(), def); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to create title",
				"cause": err.Error(),
			})
		}
		return c.Status(fiber.StatusCreated).JSON(def)
	})

	// POST /admin/titles/grant — manual/administrative title grant, the only
	// path that hands out manual-typed titles. Duplicate grants are no-ops.
	adminGroup.Post("/titles/grant", func(c *fiber.Ctx) error {
		var req struct {
			UserID    string `json:"user_id"`
			TitleCode string `json:"title_code"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		if req.UserID == "" || req.TitleCode == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "user_id and title_code are required"})
		}

		if _, err := progressionService.Store.GetTitleDefinition(c.Context(), req.TitleCode); err != nil {
			if errors.Is(err, models.ErrTitleNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown title code"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load title"})
		}

		err := progressionService.Store.InsertUserTitle(c.Context(), &models.UserTitle{
			ExternalUserID: req.UserID,
			TitleCode:      req.TitleCode,
		})
		if err != nil && !errors.Is(err, models.ErrDuplicateUnlock) {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to grant title",
				"cause": err.Error(),
			})
		}
		log.Printf("🎖️ Admin granted title %s → %s", req.TitleCode, req.UserID)
		return c.JSON(fiber.Map{"granted": true})
	})
}
