package content

import "context"

type BannerRepository interface {
	Insert(ctx context.Context, b *Banner) error
	Get(ctx context.Context, id string) (*Banner, error)
	Update(ctx context.Context, b *Banner) error
	Delete(ctx context.Context, id string) error
	// List returns banners ordered by Position.
	List(ctx context.Context, activeOnly bool) ([]*Banner, error)
}

type PageRepository interface {
	Insert(ctx context.Context, p *Page) error
	Get(ctx context.Context, id string) (*Page, error)
	GetBySlug(ctx context.Context, slug string) (*Page, error)
	Update(ctx context.Context, p *Page) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*Page, error)
}

type TemplateRepository interface {
	Insert(ctx context.Context, t *EmailTemplate) error
	Get(ctx context.Context, id string) (*EmailTemplate, error)
	GetByName(ctx context.Context, name string) (*EmailTemplate, error)
	Update(ctx context.Context, t *EmailTemplate) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*EmailTemplate, error)
}

type SettingRepository interface {
	Get(ctx context.Context, key string) (*Setting, error)
	Upsert(ctx context.Context, s *Setting) error
	List(ctx context.Context, publicOnly bool) ([]*Setting, error)
}
