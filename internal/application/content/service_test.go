package content

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	domain "github.com/Zhima-Mochi/minishop-chapa/internal/domain/content"
	"github.com/Zhima-Mochi/minishop-chapa/internal/infrastructure/id"
	"github.com/Zhima-Mochi/minishop-chapa/internal/infrastructure/memory"
	"github.com/Zhima-Mochi/minishop-chapa/internal/observability"
)

func newService() *Service {
	return NewService(Repositories{
		Banners:   memory.NewBannerRepository(),
		Pages:     memory.NewPageRepository(),
		Templates: memory.NewTemplateRepository(),
		Settings:  memory.NewSettingRepository(),
	}, id.NewUUIDGenerator(), "etb", observability.Nop())
}

func TestBanners(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	_, err := svc.CreateBanner(ctx, BannerInput{Title: "No image"})
	require.ErrorIs(t, err, domain.ErrInvalidImage)

	second, err := svc.CreateBanner(ctx, BannerInput{Title: "Sale", ImageURL: "/img/sale.png", Position: 2, Active: true})
	require.NoError(t, err)
	first, err := svc.CreateBanner(ctx, BannerInput{Title: "Coffee", ImageURL: "/img/coffee.png", Position: 1, Active: true})
	require.NoError(t, err)
	_, err = svc.CreateBanner(ctx, BannerInput{Title: "Hidden", ImageURL: "/img/x.png"})
	require.NoError(t, err)

	public, err := svc.ListBanners(ctx, true)
	require.NoError(t, err)
	require.Len(t, public, 2)
	require.Equal(t, first.ID, public[0].ID)
	require.Equal(t, second.ID, public[1].ID)

	updated, err := svc.UpdateBanner(ctx, second.ID, BannerInput{Title: "Sale", ImageURL: "/img/sale.png", Position: 2})
	require.NoError(t, err)
	require.False(t, updated.Active)
	require.Equal(t, second.CreatedAt, updated.CreatedAt)

	all, err := svc.ListBanners(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, 3)

	require.NoError(t, svc.DeleteBanner(ctx, first.ID))
	require.ErrorIs(t, svc.DeleteBanner(ctx, first.ID), domain.ErrNotFound)
}

func TestPages(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	_, err := svc.CreatePage(ctx, PageInput{Slug: "About Us", Title: "About"})
	require.ErrorIs(t, err, domain.ErrInvalidSlug)

	draft, err := svc.CreatePage(ctx, PageInput{Slug: "about", Title: "About", Body: "We roast coffee."})
	require.NoError(t, err)
	_, err = svc.CreatePage(ctx, PageInput{Slug: "about", Title: "Again"})
	require.ErrorIs(t, err, domain.ErrSlugTaken)

	_, err = svc.PublishedPage(ctx, "about")
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.UpdatePage(ctx, draft.ID, PageInput{Slug: "about", Title: "About", Body: "We roast coffee.", Published: true})
	require.NoError(t, err)
	page, err := svc.PublishedPage(ctx, "about")
	require.NoError(t, err)
	require.Equal(t, "We roast coffee.", page.Body)
}

func TestTemplates(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	_, err := svc.CreateTemplate(ctx, TemplateInput{Name: "broken", Subject: "{{.OrderID", Body: "x"})
	require.ErrorIs(t, err, domain.ErrInvalidTemplate)

	tpl, err := svc.CreateTemplate(ctx, TemplateInput{Name: "custom", Subject: "Order {{.OrderID}}", Body: "Hello"})
	require.NoError(t, err)
	_, err = svc.CreateTemplate(ctx, TemplateInput{Name: "custom", Subject: "x", Body: "y"})
	require.ErrorIs(t, err, domain.ErrNameTaken)

	got, err := svc.TemplateByName(ctx, "custom")
	require.NoError(t, err)
	require.Equal(t, tpl.ID, got.ID)

	require.NoError(t, svc.DeleteTemplate(ctx, tpl.ID))
	_, err = svc.TemplateByName(ctx, "custom")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSettings(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	require.Equal(t, "ETB", svc.Currency(ctx))
	require.Equal(t, domain.DefaultLowStockThreshold, svc.LowStockThreshold(ctx))

	_, err := svc.UpsertSetting(ctx, domain.SettingLowStockThreshold, "-1", false)
	require.ErrorIs(t, err, ErrInvalidSetting)
	_, err = svc.UpsertSetting(ctx, domain.SettingCurrency, "dollars", true)
	require.ErrorIs(t, err, ErrInvalidSetting)
	_, err = svc.UpsertSetting(ctx, " ", "x", true)
	require.ErrorIs(t, err, domain.ErrInvalidKey)

	_, err = svc.UpsertSetting(ctx, domain.SettingLowStockThreshold, "2", false)
	require.NoError(t, err)
	_, err = svc.UpsertSetting(ctx, domain.SettingCurrency, "usd", true)
	require.NoError(t, err)

	require.Equal(t, 2, svc.LowStockThreshold(ctx))
	require.Equal(t, "USD", svc.Currency(ctx))

	public, err := svc.ListSettings(ctx, true)
	require.NoError(t, err)
	require.Len(t, public, 1)
	require.Equal(t, domain.SettingCurrency, public[0].Key)
}

func TestSeedDefaultsKeepsExistingValues(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	_, err := svc.UpsertSetting(ctx, domain.SettingStoreName, "Bunna House", true)
	require.NoError(t, err)
	require.NoError(t, svc.SeedDefaults(ctx, "Minishop"))
	require.NoError(t, svc.SeedDefaults(ctx, "Minishop"))

	require.Equal(t, "Bunna House", svc.StoreName(ctx))
	templates, err := svc.ListTemplates(ctx)
	require.NoError(t, err)
	require.Len(t, templates, 4)

	tpl, err := svc.TemplateByName(ctx, domain.TemplateOrderPaid)
	require.NoError(t, err)
	subject, body, err := tpl.Render(map[string]any{
		"StoreName":    "Bunna House",
		"CustomerName": "Abebe",
		"OrderID":      "o1",
		"Total":        "500.00",
		"Currency":     "ETB",
		"Items":        []map[string]any{{"Name": "Coffee", "Quantity": 2, "Subtotal": "500.00"}},
	})
	require.NoError(t, err)
	require.Equal(t, "Bunna House: payment received for order o1", subject)
	require.Contains(t, body, "Coffee x2: 500.00 ETB")
}
