package memory

import (
	"context"
	"sort"
	"sync"

	domain "github.com/Zhima-Mochi/minishop-chapa/internal/domain/content"
)

type BannerRepository struct {
	mu      sync.RWMutex
	banners map[string]*domain.Banner
}

func NewBannerRepository() *BannerRepository {
	return &BannerRepository{banners: make(map[string]*domain.Banner)}
}

func (r *BannerRepository) Insert(ctx context.Context, b *domain.Banner) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.banners[b.ID] = b.Clone()
	return nil
}

func (r *BannerRepository) Get(ctx context.Context, id string) (*domain.Banner, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.banners[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return b.Clone(), nil
}

func (r *BannerRepository) Update(ctx context.Context, b *domain.Banner) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.banners[b.ID]; !ok {
		return domain.ErrNotFound
	}
	r.banners[b.ID] = b.Clone()
	return nil
}

func (r *BannerRepository) Delete(ctx context.Context, id string) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.banners[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.banners, id)
	return nil
}

func (r *BannerRepository) List(ctx context.Context, activeOnly bool) ([]*domain.Banner, error) {
	_ = ctx
	r.mu.RLock()
	out := make([]*domain.Banner, 0, len(r.banners))
	for _, b := range r.banners {
		if activeOnly && !b.Active {
			continue
		}
		out = append(out, b.Clone())
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Position == out[j].Position {
			return out[i].ID < out[j].ID
		}
		return out[i].Position < out[j].Position
	})
	return out, nil
}

type PageRepository struct {
	mu    sync.RWMutex
	pages map[string]*domain.Page
}

func NewPageRepository() *PageRepository {
	return &PageRepository{pages: make(map[string]*domain.Page)}
}

func (r *PageRepository) Insert(ctx context.Context, p *domain.Page) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.slugTaken(p.Slug, p.ID) {
		return domain.ErrSlugTaken
	}
	r.pages[p.ID] = p.Clone()
	return nil
}

func (r *PageRepository) Get(ctx context.Context, id string) (*domain.Page, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.pages[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p.Clone(), nil
}

func (r *PageRepository) GetBySlug(ctx context.Context, slug string) (*domain.Page, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.pages {
		if p.Slug == slug {
			return p.Clone(), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *PageRepository) Update(ctx context.Context, p *domain.Page) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.pages[p.ID]; !ok {
		return domain.ErrNotFound
	}
	if r.slugTaken(p.Slug, p.ID) {
		return domain.ErrSlugTaken
	}
	r.pages[p.ID] = p.Clone()
	return nil
}

func (r *PageRepository) Delete(ctx context.Context, id string) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.pages[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.pages, id)
	return nil
}

func (r *PageRepository) List(ctx context.Context) ([]*domain.Page, error) {
	_ = ctx
	r.mu.RLock()
	out := make([]*domain.Page, 0, len(r.pages))
	for _, p := range r.pages {
		out = append(out, p.Clone())
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out, nil
}

func (r *PageRepository) slugTaken(slug, exceptID string) bool {
	for id, p := range r.pages {
		if id != exceptID && p.Slug == slug {
			return true
		}
	}
	return false
}

type TemplateRepository struct {
	mu        sync.RWMutex
	templates map[string]*domain.EmailTemplate
}

func NewTemplateRepository() *TemplateRepository {
	return &TemplateRepository{templates: make(map[string]*domain.EmailTemplate)}
}

func (r *TemplateRepository) Insert(ctx context.Context, t *domain.EmailTemplate) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.nameTaken(t.Name, t.ID) {
		return domain.ErrNameTaken
	}
	r.templates[t.ID] = t.Clone()
	return nil
}

func (r *TemplateRepository) Get(ctx context.Context, id string) (*domain.EmailTemplate, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.templates[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return t.Clone(), nil
}

func (r *TemplateRepository) GetByName(ctx context.Context, name string) (*domain.EmailTemplate, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, t := range r.templates {
		if t.Name == name {
			return t.Clone(), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *TemplateRepository) Update(ctx context.Context, t *domain.EmailTemplate) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.templates[t.ID]; !ok {
		return domain.ErrNotFound
	}
	if r.nameTaken(t.Name, t.ID) {
		return domain.ErrNameTaken
	}
	r.templates[t.ID] = t.Clone()
	return nil
}

func (r *TemplateRepository) Delete(ctx context.Context, id string) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.templates[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.templates, id)
	return nil
}

func (r *TemplateRepository) List(ctx context.Context) ([]*domain.EmailTemplate, error) {
	_ = ctx
	r.mu.RLock()
	out := make([]*domain.EmailTemplate, 0, len(r.templates))
	for _, t := range r.templates {
		out = append(out, t.Clone())
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *TemplateRepository) nameTaken(name, exceptID string) bool {
	for id, t := range r.templates {
		if id != exceptID && t.Name == name {
			return true
		}
	}
	return false
}

type SettingRepository struct {
	mu       sync.RWMutex
	settings map[string]*domain.Setting
}

func NewSettingRepository() *SettingRepository {
	return &SettingRepository{settings: make(map[string]*domain.Setting)}
}

func (r *SettingRepository) Get(ctx context.Context, key string) (*domain.Setting, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.settings[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return s.Clone(), nil
}

func (r *SettingRepository) Upsert(ctx context.Context, s *domain.Setting) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings[s.Key] = s.Clone()
	return nil
}

func (r *SettingRepository) List(ctx context.Context, publicOnly bool) ([]*domain.Setting, error) {
	_ = ctx
	r.mu.RLock()
	out := make([]*domain.Setting, 0, len(r.settings))
	for _, s := range r.settings {
		if publicOnly && !s.Public {
			continue
		}
		out = append(out, s.Clone())
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}
