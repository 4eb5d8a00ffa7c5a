package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"trivia-progression-service/models"

	"github.com/google/uuid"
)

// MemoryStore is an in-process ProgressStore for tests and local runs.
// Unique-constraint semantics match the Postgres schema. Atomically is a
// plain passthrough — the per-user lock in the orchestrator already
// serializes writers, and tests exercise single failures, not rollbacks.
type MemoryStore struct {
	mu sync.Mutex

	progress     map[string]*models.UserProgress // by external user ID
	achievements map[string]*models.AchievementDefinition
	titles       map[string]*models.TitleDefinition

	userAchievements map[string][]models.UserAchievement
	userTitles       map[string][]models.UserTitle

	solves   map[string][]models.SolveRecord
	comments map[string][]models.CommentRecord
	posts    map[string][]models.PostRecord
	events   []models.XPEvent
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		progress:         make(map[string]*models.UserProgress),
		achievements:     make(map[string]*models.AchievementDefinition),
		titles:           make(map[string]*models.TitleDefinition),
		userAchievements: make(map[string][]models.UserAchievement),
		userTitles:       make(map[string][]models.UserTitle),
		solves:           make(map[string][]models.SolveRecord),
		comments:         make(map[string][]models.CommentRecord),
		posts:            make(map[string][]models.PostRecord),
	}
}

func (m *MemoryStore) Atomically(ctx context.Context, fn func(ProgressStore) error) error {
	return fn(m)
}

func (m *MemoryStore) GetProgress(_ context.Context, externalUserID string) (*models.UserProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prog, ok := m.progress[externalUserID]
	if !ok {
		return nil, models.ErrProgressNotFound
	}
	cp := *prog
	return &cp, nil
}

func (m *MemoryStore) CreateProgress(_ context.Context, prog *models.UserProgress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prog.ID == "" {
		prog.ID = uuid.NewString()
	}
	cp := *prog
	m.progress[prog.ExternalUserID] = &cp
	return nil
}

func (m *MemoryStore) SaveProgress(_ context.Context, prog *models.UserProgress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *prog
	m.progress[prog.ExternalUserID] = &cp
	return nil
}

func (m *MemoryStore) ListProgressBatch(_ context.Context, offset, limit int) ([]models.UserProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.progress))
	for id := range m.progress {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	var batch []models.UserProgress
	for i := offset; i < len(ids) && len(batch) < limit; i++ {
		batch = append(batch, *m.progress[ids[i]])
	}
	return batch, nil
}

func (m *MemoryStore) ListAchievementDefinitions(_ context.Context) ([]models.AchievementDefinition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	defs := make([]models.AchievementDefinition, 0, len(m.achievements))
	for _, d := range m.achievements {
		defs = append(defs, *d)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Code < defs[j].Code })
	return defs, nil
}

func (m *MemoryStore) ListTitleDefinitions(_ context.Context) ([]models.TitleDefinition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	defs := make([]models.TitleDefinition, 0, len(m.titles))
	for _, d := range m.titles {
		defs = append(defs, *d)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Code < defs[j].Code })
	return defs, nil
}

func (m *MemoryStore) GetTitleDefinition(_ context.Context, code string) (*models.TitleDefinition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	def, ok := m.titles[code]
	if !ok {
		return nil, models.ErrTitleNotFound
	}
	cp := *def
	return &cp, nil
}

func (m *MemoryStore) UpsertAchievementDefinition(_ context.Context, def *models.AchievementDefinition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if def.ID == "" {
		def.ID = uuid.NewString()
	}
	cp := *def
	m.achievements[def.Code] = &cp
	return nil
}

func (m *MemoryStore) UpsertTitleDefinition(_ context.Context, def *models.TitleDefinition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if def.ID == "" {
		def.ID = uuid.NewString()
	}
	cp := *def
	m.titles[def.Code] = &cp
	return nil
}

func (m *MemoryStore) ListUserAchievements(_ context.Context, externalUserID string) ([]models.UserAchievement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.UserAchievement(nil), m.userAchievements[externalUserID]...), nil
}

func (m *MemoryStore) ListUserTitles(_ context.Context, externalUserID string) ([]models.UserTitle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.UserTitle(nil), m.userTitles[externalUserID]...), nil
}

func (m *MemoryStore) InsertUserAchievement(_ context.Context, ua *models.UserAchievement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.userAchievements[ua.ExternalUserID] {
		if existing.AchievementCode == ua.AchievementCode {
			return models.ErrDuplicateUnlock
		}
	}
	if ua.ID == "" {
		ua.ID = uuid.NewString()
	}
	if ua.UnlockedAt.IsZero() {
		ua.UnlockedAt = time.Now()
	}
	m.userAchievements[ua.ExternalUserID] = append(m.userAchievements[ua.ExternalUserID], *ua)
	return nil
}

func (m *MemoryStore) InsertUserTitle(_ context.Context, ut *models.UserTitle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.userTitles[ut.ExternalUserID] {
		if existing.TitleCode == ut.TitleCode {
			return models.ErrDuplicateUnlock
		}
	}
	if ut.ID == "" {
		ut.ID = uuid.NewString()
	}
	if ut.UnlockedAt.IsZero() {
		ut.UnlockedAt = time.Now()
	}
	m.userTitles[ut.ExternalUserID] = append(m.userTitles[ut.ExternalUserID], *ut)
	return nil
}

func (m *MemoryStore) InsertSolveRecord(_ context.Context, rec *models.SolveRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	m.solves[rec.ExternalUserID] = append(m.solves[rec.ExternalUserID], *rec)
	return nil
}

func (m *MemoryStore) InsertCommentRecord(_ context.Context, rec *models.CommentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	m.comments[rec.ExternalUserID] = append(m.comments[rec.ExternalUserID], *rec)
	return nil
}

func (m *MemoryStore) InsertPostRecord(_ context.Context, rec *models.PostRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	m.posts[rec.ExternalUserID] = append(m.posts[rec.ExternalUserID], *rec)
	return nil
}

func (m *MemoryStore) CountActivity(_ context.Context, externalUserID string) (models.ActivityCounts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var counts models.ActivityCounts
	for _, s := range m.solves[externalUserID] {
		counts.Solves++
		if !s.UsedHint {
			counts.NoHintSolves++
		}
		if s.QuestionCount <= 3 {
			counts.Under3QSolves++
		}
	}
	counts.Comments = int64(len(m.comments[externalUserID]))
	counts.Posts = int64(len(m.posts[externalUserID]))
	return counts, nil
}

func (m *MemoryStore) AppendXPEvent(_ context.Context, ev *models.XPEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}
	m.events = append(m.events, *ev)
	return nil
}

// XPEvents returns a copy of the ledger for assertions in tests.
func (m *MemoryStore) XPEvents() []models.XPEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.XPEvent(nil), m.events...)
}

func (m *MemoryStore) ListUnarchivedXPEvents(_ context.Context, before time.Time, limit int) ([]models.XPEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.XPEvent
	for _, ev := range m.events {
		if !ev.Archived && ev.CreatedAt.Before(before) {
			out = append(out, ev)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *MemoryStore) MarkXPEventsArchived(_ context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	marked := make(map[string]bool, len(ids))
	for _, id := range ids {
		marked[id] = true
	}
	for i := range m.events {
		if marked[m.events[i].ID] {
			m.events[i].Archived = true
		}
	}
	return nil
}
