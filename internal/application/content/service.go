package content

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Zhima-Mochi/minishop-chapa/internal/application"
	domain "github.com/Zhima-Mochi/minishop-chapa/internal/domain/content"
	"github.com/Zhima-Mochi/minishop-chapa/internal/observability"
)

const contentService = "content-service"

type IDGenerator interface {
	NewID() string
}

type Repositories struct {
	Banners   domain.BannerRepository
	Pages     domain.PageRepository
	Templates domain.TemplateRepository
	Settings  domain.SettingRepository
}

// Service manages storefront content and store settings.
type Service struct {
	repos           Repositories
	ids             IDGenerator
	defaultCurrency string
	ins             observability.Instruments
}

func NewService(repos Repositories, ids IDGenerator, defaultCurrency string, tel observability.Observability) *Service {
	if defaultCurrency == "" {
		defaultCurrency = "ETB"
	}
	return &Service{
		repos:           repos,
		ids:             ids,
		defaultCurrency: strings.ToUpper(defaultCurrency),
		ins:             observability.Resolve(tel, contentService),
	}
}

type BannerInput struct {
	Title    string
	ImageURL string
	LinkURL  string
	Position int
	Active   bool
}

func (s *Service) ListBanners(ctx context.Context, activeOnly bool) ([]*domain.Banner, error) {
	out, err := s.repos.Banners.List(ctx, activeOnly)
	return out, wrapRepo(err)
}

func (s *Service) CreateBanner(ctx context.Context, in BannerInput) (_ *domain.Banner, err error) {
	ctx, call := application.Begin(ctx, s.ins, "content.banner.create", "CreateBanner")
	defer func() { call.End(err) }()

	b, err := domain.NewBanner(s.ids.NewID(), in.Title, in.ImageURL, in.LinkURL, in.Position, in.Active)
	if err != nil {
		call.Fail("VALIDATION_FAILED")
		return nil, err
	}
	if err := s.repos.Banners.Insert(ctx, b); err != nil {
		call.Fail("BANNER_INSERT_FAILED")
		return nil, wrapRepo(err)
	}
	return b, nil
}

func (s *Service) UpdateBanner(ctx context.Context, id string, in BannerInput) (_ *domain.Banner, err error) {
	ctx, call := application.Begin(ctx, s.ins, "content.banner.update", "UpdateBanner",
		attribute.String("banner.id", id))
	defer func() { call.End(err) }()

	current, err := s.repos.Banners.Get(ctx, id)
	if err != nil {
		call.Fail("BANNER_LOOKUP_FAILED")
		return nil, wrapRepo(err)
	}
	b, err := domain.NewBanner(current.ID, in.Title, in.ImageURL, in.LinkURL, in.Position, in.Active)
	if err != nil {
		call.Fail("VALIDATION_FAILED")
		return nil, err
	}
	b.CreatedAt = current.CreatedAt
	if err := s.repos.Banners.Update(ctx, b); err != nil {
		call.Fail("BANNER_UPDATE_FAILED")
		return nil, wrapRepo(err)
	}
	return b, nil
}

func (s *Service) DeleteBanner(ctx context.Context, id string) error {
	return wrapRepo(s.repos.Banners.Delete(ctx, id))
}

type PageInput struct {
	Slug      string
	Title     string
	Body      string
	Published bool
}

// PublishedPage returns the page for the public site; drafts are reported as not found.
func (s *Service) PublishedPage(ctx context.Context, slug string) (*domain.Page, error) {
	p, err := s.repos.Pages.GetBySlug(ctx, strings.TrimSpace(slug))
	if err != nil {
		return nil, wrapRepo(err)
	}
	if !p.Published {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func (s *Service) ListPages(ctx context.Context) ([]*domain.Page, error) {
	out, err := s.repos.Pages.List(ctx)
	return out, wrapRepo(err)
}

func (s *Service) GetPage(ctx context.Context, id string) (*domain.Page, error) {
	p, err := s.repos.Pages.Get(ctx, id)
	return p, wrapRepo(err)
}

func (s *Service) CreatePage(ctx context.Context, in PageInput) (_ *domain.Page, err error) {
	ctx, call := application.Begin(ctx, s.ins, "content.page.create", "CreatePage",
		attribute.String("page.slug", in.Slug))
	defer func() { call.End(err) }()

	p, err := domain.NewPage(s.ids.NewID(), in.Slug, in.Title, in.Body, in.Published)
	if err != nil {
		call.Fail("VALIDATION_FAILED")
		return nil, err
	}
	if err := s.repos.Pages.Insert(ctx, p); err != nil {
		call.Fail("PAGE_INSERT_FAILED")
		return nil, wrapRepo(err)
	}
	return p, nil
}

func (s *Service) UpdatePage(ctx context.Context, id string, in PageInput) (_ *domain.Page, err error) {
	ctx, call := application.Begin(ctx, s.ins, "content.page.update", "UpdatePage",
		attribute.String("page.id", id))
	defer func() { call.End(err) }()

	current, err := s.repos.Pages.Get(ctx, id)
	if err != nil {
		call.Fail("PAGE_LOOKUP_FAILED")
		return nil, wrapRepo(err)
	}
	p, err := domain.NewPage(current.ID, in.Slug, in.Title, in.Body, in.Published)
	if err != nil {
		call.Fail("VALIDATION_FAILED")
		return nil, err
	}
	p.CreatedAt = current.CreatedAt
	if err := s.repos.Pages.Update(ctx, p); err != nil {
		call.Fail("PAGE_UPDATE_FAILED")
		return nil, wrapRepo(err)
	}
	return p, nil
}

func (s *Service) DeletePage(ctx context.Context, id string) error {
	return wrapRepo(s.repos.Pages.Delete(ctx, id))
}

type TemplateInput struct {
	Name    string
	Subject string
	Body    string
}

func (s *Service) ListTemplates(ctx context.Context) ([]*domain.EmailTemplate, error) {
	out, err := s.repos.Templates.List(ctx)
	return out, wrapRepo(err)
}

func (s *Service) GetTemplate(ctx context.Context, id string) (*domain.EmailTemplate, error) {
	t, err := s.repos.Templates.Get(ctx, id)
	return t, wrapRepo(err)
}

// TemplateByName is used by the notification worker.
func (s *Service) TemplateByName(ctx context.Context, name string) (*domain.EmailTemplate, error) {
	t, err := s.repos.Templates.GetByName(ctx, name)
	return t, wrapRepo(err)
}

func (s *Service) CreateTemplate(ctx context.Context, in TemplateInput) (_ *domain.EmailTemplate, err error) {
	ctx, call := application.Begin(ctx, s.ins, "content.template.create", "CreateEmailTemplate",
		attribute.String("template.name", in.Name))
	defer func() { call.End(err) }()

	t, err := domain.NewEmailTemplate(s.ids.NewID(), in.Name, in.Subject, in.Body)
	if err != nil {
		call.Fail("VALIDATION_FAILED")
		return nil, err
	}
	if err := s.repos.Templates.Insert(ctx, t); err != nil {
		call.Fail("TEMPLATE_INSERT_FAILED")
		return nil, wrapRepo(err)
	}
	return t, nil
}

func (s *Service) UpdateTemplate(ctx context.Context, id string, in TemplateInput) (_ *domain.EmailTemplate, err error) {
	ctx, call := application.Begin(ctx, s.ins, "content.template.update", "UpdateEmailTemplate",
		attribute.String("template.id", id))
	defer func() { call.End(err) }()

	current, err := s.repos.Templates.Get(ctx, id)
	if err != nil {
		call.Fail("TEMPLATE_LOOKUP_FAILED")
		return nil, wrapRepo(err)
	}
	t, err := domain.NewEmailTemplate(current.ID, in.Name, in.Subject, in.Body)
	if err != nil {
		call.Fail("VALIDATION_FAILED")
		return nil, err
	}
	t.CreatedAt = current.CreatedAt
	if err := s.repos.Templates.Update(ctx, t); err != nil {
		call.Fail("TEMPLATE_UPDATE_FAILED")
		return nil, wrapRepo(err)
	}
	return t, nil
}

func (s *Service) DeleteTemplate(ctx context.Context, id string) error {
	return wrapRepo(s.repos.Templates.Delete(ctx, id))
}

func (s *Service) ListSettings(ctx context.Context, publicOnly bool) ([]*domain.Setting, error) {
	out, err := s.repos.Settings.List(ctx, publicOnly)
	return out, wrapRepo(err)
}

func (s *Service) UpsertSetting(ctx context.Context, key, value string, public bool) (_ *domain.Setting, err error) {
	ctx, call := application.Begin(ctx, s.ins, "content.setting.upsert", "UpsertSetting",
		attribute.String("setting.key", key))
	defer func() { call.End(err) }()

	st, err := domain.NewSetting(key, value, public)
	if err != nil {
		call.Fail("VALIDATION_FAILED")
		return nil, err
	}
	if err := validateSetting(st); err != nil {
		call.Fail("VALIDATION_FAILED")
		return nil, err
	}
	if err := s.repos.Settings.Upsert(ctx, st); err != nil {
		call.Fail("SETTING_UPSERT_FAILED")
		return nil, wrapRepo(err)
	}
	return st, nil
}

var ErrInvalidSetting = errors.New("content: invalid setting value")

func validateSetting(st *domain.Setting) error {
	switch st.Key {
	case domain.SettingLowStockThreshold:
		if n, err := strconv.Atoi(strings.TrimSpace(st.Value)); err != nil || n < 0 {
			return fmt.Errorf("%w: %s must be a non-negative integer", ErrInvalidSetting, st.Key)
		}
	case domain.SettingCurrency:
		if len(strings.TrimSpace(st.Value)) != 3 {
			return fmt.Errorf("%w: %s must be a 3-letter code", ErrInvalidSetting, st.Key)
		}
		st.Value = strings.ToUpper(strings.TrimSpace(st.Value))
	}
	return nil
}

func (s *Service) setting(ctx context.Context, key string) (string, bool) {
	st, err := s.repos.Settings.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.ins.Log.Warn("setting_lookup_failed", observability.F("key", key), observability.F("error", err.Error()))
		}
		return "", false
	}
	v := strings.TrimSpace(st.Value)
	return v, v != ""
}

// Currency is the store currency for new orders.
func (s *Service) Currency(ctx context.Context) string {
	if v, ok := s.setting(ctx, domain.SettingCurrency); ok {
		return strings.ToUpper(v)
	}
	return s.defaultCurrency
}

func (s *Service) StoreName(ctx context.Context) string {
	if v, ok := s.setting(ctx, domain.SettingStoreName); ok {
		return v
	}
	return "Minishop"
}

func (s *Service) SupportEmail(ctx context.Context) string {
	v, _ := s.setting(ctx, domain.SettingSupportEmail)
	return v
}

func (s *Service) LowStockThreshold(ctx context.Context) int {
	if v, ok := s.setting(ctx, domain.SettingLowStockThreshold); ok {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return domain.DefaultLowStockThreshold
}

func wrapRepo(err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{domain.ErrNotFound, domain.ErrSlugTaken, domain.ErrNameTaken} {
		if errors.Is(err, known) {
			return err
		}
	}
	return fmt.Errorf("content: repository: %w", err)
}
