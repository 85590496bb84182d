package postgres

import (
	"context"
	"database/sql"
	"errors"

	domain "github.com/Zhima-Mochi/minishop-chapa/internal/domain/content"
)

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	return err
}

func execOne(ctx context.Context, db *sql.DB, taken error, query string, args ...any) error {
	res, err := db.ExecContext(ctx, query, args...)
	if taken != nil && isUniqueViolation(err) {
		return taken
	}
	if err != nil {
		return err
	}
	if affected(res) == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type BannerRepository struct{ db *sql.DB }

func NewBannerRepository(db *sql.DB) *BannerRepository { return &BannerRepository{db: db} }

const bannerColumns = `id, title, image_url, link_url, position, active, created_at, updated_at`

func scanBanner(row scanner) (*domain.Banner, error) {
	var b domain.Banner
	if err := row.Scan(&b.ID, &b.Title, &b.ImageURL, &b.LinkURL, &b.Position, &b.Active, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, notFound(err)
	}
	b.CreatedAt, b.UpdatedAt = utc(b.CreatedAt), utc(b.UpdatedAt)
	return &b, nil
}

func (r *BannerRepository) Insert(ctx context.Context, b *domain.Banner) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO banners(`+bannerColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		b.ID, b.Title, b.ImageURL, b.LinkURL, b.Position, b.Active, b.CreatedAt, b.UpdatedAt)
	return err
}

func (r *BannerRepository) Get(ctx context.Context, id string) (*domain.Banner, error) {
	return scanBanner(r.db.QueryRowContext(ctx, `SELECT `+bannerColumns+` FROM banners WHERE id=$1`, id))
}

func (r *BannerRepository) Update(ctx context.Context, b *domain.Banner) error {
	return execOne(ctx, r.db, nil, `
		UPDATE banners SET title=$2, image_url=$3, link_url=$4, position=$5, active=$6, updated_at=$7 WHERE id=$1
	`, b.ID, b.Title, b.ImageURL, b.LinkURL, b.Position, b.Active, b.UpdatedAt)
}

func (r *BannerRepository) Delete(ctx context.Context, id string) error {
	return execOne(ctx, r.db, nil, `DELETE FROM banners WHERE id=$1`, id)
}

// List returns banners ordered by Position.
func (r *BannerRepository) List(ctx context.Context, activeOnly bool) ([]*domain.Banner, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+bannerColumns+` FROM banners WHERE active OR NOT $1 ORDER BY position, id
	`, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]*domain.Banner, 0)
	for rows.Next() {
		b, err := scanBanner(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

type PageRepository struct{ db *sql.DB }

func NewPageRepository(db *sql.DB) *PageRepository { return &PageRepository{db: db} }

const pageColumns = `id, slug, title, body, published, created_at, updated_at`

func scanPage(row scanner) (*domain.Page, error) {
	var p domain.Page
	if err := row.Scan(&p.ID, &p.Slug, &p.Title, &p.Body, &p.Published, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, notFound(err)
	}
	p.CreatedAt, p.UpdatedAt = utc(p.CreatedAt), utc(p.UpdatedAt)
	return &p, nil
}

func (r *PageRepository) Insert(ctx context.Context, p *domain.Page) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO pages(`+pageColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		p.ID, p.Slug, p.Title, p.Body, p.Published, p.CreatedAt, p.UpdatedAt)
	if isUniqueViolation(err) {
		return domain.ErrSlugTaken
	}
	return err
}

func (r *PageRepository) Get(ctx context.Context, id string) (*domain.Page, error) {
	return scanPage(r.db.QueryRowContext(ctx, `SELECT `+pageColumns+` FROM pages WHERE id=$1`, id))
}

func (r *PageRepository) GetBySlug(ctx context.Context, slug string) (*domain.Page, error) {
	return scanPage(r.db.QueryRowContext(ctx, `SELECT `+pageColumns+` FROM pages WHERE slug=$1`, slug))
}

func (r *PageRepository) Update(ctx context.Context, p *domain.Page) error {
	return execOne(ctx, r.db, domain.ErrSlugTaken, `
		UPDATE pages SET slug=$2, title=$3, body=$4, published=$5, updated_at=$6 WHERE id=$1
	`, p.ID, p.Slug, p.Title, p.Body, p.Published, p.UpdatedAt)
}

func (r *PageRepository) Delete(ctx context.Context, id string) error {
	return execOne(ctx, r.db, nil, `DELETE FROM pages WHERE id=$1`, id)
}

func (r *PageRepository) List(ctx context.Context) ([]*domain.Page, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+pageColumns+` FROM pages ORDER BY slug`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]*domain.Page, 0)
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type TemplateRepository struct{ db *sql.DB }

func NewTemplateRepository(db *sql.DB) *TemplateRepository { return &TemplateRepository{db: db} }

const templateColumns = `id, name, subject, body, created_at, updated_at`

func scanTemplate(row scanner) (*domain.EmailTemplate, error) {
	var t domain.EmailTemplate
	if err := row.Scan(&t.ID, &t.Name, &t.Subject, &t.Body, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, notFound(err)
	}
	t.CreatedAt, t.UpdatedAt = utc(t.CreatedAt), utc(t.UpdatedAt)
	return &t, nil
}

func (r *TemplateRepository) Insert(ctx context.Context, t *domain.EmailTemplate) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO email_templates(`+templateColumns+`) VALUES ($1,$2,$3,$4,$5,$6)`,
		t.ID, t.Name, t.Subject, t.Body, t.CreatedAt, t.UpdatedAt)
	if isUniqueViolation(err) {
		return domain.ErrNameTaken
	}
	return err
}

func (r *TemplateRepository) Get(ctx context.Context, id string) (*domain.EmailTemplate, error) {
	return scanTemplate(r.db.QueryRowContext(ctx, `SELECT `+templateColumns+` FROM email_templates WHERE id=$1`, id))
}

func (r *TemplateRepository) GetByName(ctx context.Context, name string) (*domain.EmailTemplate, error) {
	return scanTemplate(r.db.QueryRowContext(ctx, `SELECT `+templateColumns+` FROM email_templates WHERE name=$1`, name))
}

func (r *TemplateRepository) Update(ctx context.Context, t *domain.EmailTemplate) error {
	return execOne(ctx, r.db, domain.ErrNameTaken, `
		UPDATE email_templates SET name=$2, subject=$3, body=$4, updated_at=$5 WHERE id=$1
	`, t.ID, t.Name, t.Subject, t.Body, t.UpdatedAt)
}

func (r *TemplateRepository) Delete(ctx context.Context, id string) error {
	return execOne(ctx, r.db, nil, `DELETE FROM email_templates WHERE id=$1`, id)
}

func (r *TemplateRepository) List(ctx context.Context) ([]*domain.EmailTemplate, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+templateColumns+` FROM email_templates ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]*domain.EmailTemplate, 0)
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

type SettingRepository struct{ db *sql.DB }

func NewSettingRepository(db *sql.DB) *SettingRepository { return &SettingRepository{db: db} }

func scanSetting(row scanner) (*domain.Setting, error) {
	var s domain.Setting
	if err := row.Scan(&s.Key, &s.Value, &s.Public, &s.UpdatedAt); err != nil {
		return nil, notFound(err)
	}
	s.UpdatedAt = utc(s.UpdatedAt)
	return &s, nil
}

func (r *SettingRepository) Get(ctx context.Context, key string) (*domain.Setting, error) {
	return scanSetting(r.db.QueryRowContext(ctx, `SELECT key, value, public, updated_at FROM settings WHERE key=$1`, key))
}

func (r *SettingRepository) Upsert(ctx context.Context, s *domain.Setting) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO settings(key, value, public, updated_at) VALUES ($1,$2,$3,$4)
		ON CONFLICT (key) DO UPDATE SET value=EXCLUDED.value, public=EXCLUDED.public, updated_at=EXCLUDED.updated_at
	`, s.Key, s.Value, s.Public, s.UpdatedAt)
	return err
}

func (r *SettingRepository) List(ctx context.Context, publicOnly bool) ([]*domain.Setting, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT key, value, public, updated_at FROM settings WHERE public OR NOT $1 ORDER BY key
	`, publicOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]*domain.Setting, 0)
	for rows.Next() {
		s, err := scanSetting(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
