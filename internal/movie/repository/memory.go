package repository

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/romariotrain/streaming-platform/internal/movie/domain"
	"github.com/romariotrain/streaming-platform/internal/movie/models"
)

// MemoryMovieRepository keeps movies in process memory. It follows the
// same contract as the postgres store, including the version check.
type MemoryMovieRepository struct {
	mu         sync.RWMutex
	data       map[uuid.UUID]*models.Movie
	events     []models.DomainEvent
	categories *MemoryCategoryRepository
}

func NewMemoryMovieRepository(categories *MemoryCategoryRepository) *MemoryMovieRepository {
	return &MemoryMovieRepository{
		data:       make(map[uuid.UUID]*models.Movie),
		categories: categories,
	}
}

func (r *MemoryMovieRepository) Create(ctx context.Context, m *models.Movie, events ...models.DomainEvent) error {
	if m == nil || m.ID == uuid.Nil {
		return models.ErrInvalidArgument
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.data[m.ID]; exists {
		return models.ErrConflict
	}
	r.data[m.ID] = m.Clone()
	r.events = append(r.events, events...)
	return nil
}

func (r *MemoryMovieRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Movie, error) {
	if id == uuid.Nil {
		return nil, models.ErrInvalidArgument
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.data[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return m.Clone(), nil
}

func (r *MemoryMovieRepository) FindByExternalID(ctx context.Context, externalID string) (*models.Movie, error) {
	if externalID == "" {
		return nil, models.ErrInvalidArgument
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, m := range r.data {
		if _, ok := m.AssetByExternalID(externalID); ok {
			return m.Clone(), nil
		}
	}
	return nil, models.ErrNotFound
}

func (r *MemoryMovieRepository) Update(ctx context.Context, m *models.Movie, events ...models.DomainEvent) error {
	if m == nil || m.ID == uuid.Nil {
		return models.ErrInvalidArgument
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.data[m.ID]
	if !ok {
		return models.ErrNotFound
	}
	if stored.Version != m.Version {
		return models.ErrConflict
	}

	// Views are owned by IncrementViews and never overwritten here.
	m.Version++
	m.Views = stored.Views
	r.data[m.ID] = m.Clone()
	r.events = append(r.events, events...)
	return nil
}

func (r *MemoryMovieRepository) IncrementViews(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.data[id]
	if !ok {
		return models.ErrNotFound
	}
	m.Views++
	return nil
}

func (r *MemoryMovieRepository) List(ctx context.Context, f models.MovieFilter) (models.Page[*models.Movie], error) {
	if err := ctx.Err(); err != nil {
		return models.Page[*models.Movie]{}, err
	}

	r.mu.RLock()
	matched := make([]*models.Movie, 0, len(r.data))
	for _, m := range r.data {
		if r.matches(ctx, m, f) {
			matched = append(matched, m.Clone())
		}
	}
	r.mu.RUnlock()

	sortMovies(matched, f.Sort, f.Desc)

	page := models.Page[*models.Movie]{TotalCount: len(matched)}
	start := min(f.Offset, len(matched))
	end := len(matched)
	if f.Limit > 0 {
		end = min(start+f.Limit, len(matched))
	}
	page.Items = matched[start:end]
	return page, nil
}

// Events returns every event recorded with a write, in order.
func (r *MemoryMovieRepository) Events() []models.DomainEvent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]models.DomainEvent(nil), r.events...)
}

func (r *MemoryMovieRepository) matches(ctx context.Context, m *models.Movie, f models.MovieFilter) bool {
	if f.CreatedBy != nil && m.CreatedBy != *f.CreatedBy {
		return false
	}
	if f.Query != "" && !strings.Contains(strings.ToLower(m.Name), strings.ToLower(f.Query)) {
		return false
	}
	if len(f.CategoryIDs) > 0 && !hasAny(m.CategoryIDs, f.CategoryIDs) {
		return false
	}
	if !f.Published {
		return true
	}
	if !domain.Check(m, f.Now).Visible {
		return false
	}
	if r.categories == nil {
		return true
	}
	for _, id := range m.CategoryIDs {
		c, err := r.categories.GetByID(ctx, id)
		if err == nil && c.Status == models.CategoryActive && (len(f.CategoryIDs) == 0 || hasAny([]uuid.UUID{id}, f.CategoryIDs)) {
			return true
		}
	}
	return false
}

func hasAny(have, want []uuid.UUID) bool {
	for _, h := range have {
		for _, w := range want {
			if h == w {
				return true
			}
		}
	}
	return false
}

func sortMovies(ms []*models.Movie, field models.SortField, desc bool) {
	less := func(a, b *models.Movie) bool {
		switch field {
		case models.SortName:
			return a.Name < b.Name
		case models.SortCreatedAt:
			return a.CreatedAt.Before(b.CreatedAt)
		case models.SortViews:
			return a.Views < b.Views
		default:
			return a.PremieresOn.Before(b.PremieresOn)
		}
	}
	sort.SliceStable(ms, func(i, j int) bool {
		if desc {
			return less(ms[j], ms[i])
		}
		return less(ms[i], ms[j])
	})
}

type MemoryCategoryRepository struct {
	mu   sync.RWMutex
	data map[uuid.UUID]*models.Category
}

func NewMemoryCategoryRepository() *MemoryCategoryRepository {
	return &MemoryCategoryRepository{data: make(map[uuid.UUID]*models.Category)}
}

func (r *MemoryCategoryRepository) Create(ctx context.Context, c *models.Category) error {
	if c == nil || c.ID == uuid.Nil {
		return models.ErrInvalidArgument
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.data[c.ID]; exists || r.nameTaken(c.Name, c.ID) {
		return models.ErrConflict
	}
	cp := *c
	r.data[c.ID] = &cp
	return nil
}

func (r *MemoryCategoryRepository) Update(ctx context.Context, c *models.Category) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.data[c.ID]; !ok {
		return models.ErrNotFound
	}
	if r.nameTaken(c.Name, c.ID) {
		return models.ErrConflict
	}
	cp := *c
	r.data[c.ID] = &cp
	return nil
}

func (r *MemoryCategoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.data[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *MemoryCategoryRepository) List(ctx context.Context, f models.CategoryFilter) (models.Page[models.Category], error) {
	if err := ctx.Err(); err != nil {
		return models.Page[models.Category]{}, err
	}

	r.mu.RLock()
	var out []models.Category
	for _, c := range r.data {
		if f.ActiveOnly && c.Status != models.CategoryActive {
			continue
		}
		if f.Query != "" && !strings.Contains(strings.ToLower(c.Name), strings.ToLower(f.Query)) {
			continue
		}
		out = append(out, *c)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	page := models.Page[models.Category]{TotalCount: len(out)}
	start := min(f.Offset, len(out))
	end := len(out)
	if f.Limit > 0 {
		end = min(start+f.Limit, len(out))
	}
	page.Items = out[start:end]
	return page, nil
}

func (r *MemoryCategoryRepository) CountExisting(ctx context.Context, ids []uuid.UUID) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := r.data[id]; ok {
			seen[id] = struct{}{}
		}
	}
	return len(seen), nil
}

// nameTaken must be called with r.mu held.
func (r *MemoryCategoryRepository) nameTaken(name string, except uuid.UUID) bool {
	for id, c := range r.data {
		if id != except && strings.EqualFold(c.Name, name) {
			return true
		}
	}
	return false
}

type MemoryFavouriteRepository struct {
	mu   sync.RWMutex
	data map[uuid.UUID][]uuid.UUID
}

func NewMemoryFavouriteRepository() *MemoryFavouriteRepository {
	return &MemoryFavouriteRepository{data: make(map[uuid.UUID][]uuid.UUID)}
}

func (r *MemoryFavouriteRepository) Replace(ctx context.Context, userID uuid.UUID, categoryIDs []uuid.UUID) error {
	if userID == uuid.Nil {
		return models.ErrInvalidArgument
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(categoryIDs) == 0 {
		delete(r.data, userID)
		return nil
	}
	r.data[userID] = append([]uuid.UUID(nil), categoryIDs...)
	return nil
}

func (r *MemoryFavouriteRepository) CategoryIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]uuid.UUID{}, r.data[userID]...), nil
}
