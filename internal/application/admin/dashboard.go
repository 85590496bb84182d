package admin

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Zhima-Mochi/minishop-chapa/internal/application"
	domcatalog "github.com/Zhima-Mochi/minishop-chapa/internal/domain/catalog"
	domorder "github.com/Zhima-Mochi/minishop-chapa/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-chapa/internal/observability"
)

const (
	adminService      = "admin-service"
	useCaseDashboard  = "admin.dashboard"
	defaultDays       = 7
	maxDays           = 90
	recentOrdersLimit = 5
)

type UserCounter interface {
	Count(ctx context.Context) (int, error)
}

type ProductStats interface {
	Count(ctx context.Context) (int, error)
	LowStock(ctx context.Context, threshold int) ([]*domcatalog.Product, error)
}

type OrderStats interface {
	List(ctx context.Context, f domorder.Filter) ([]*domorder.Order, int, error)
	Summary(ctx context.Context, since time.Time) (*domorder.Summary, error)
}

type ThresholdReader interface {
	LowStockThreshold(ctx context.Context) int
}

type Dashboard struct {
	Users          int
	Products       int
	Orders         int
	CountsByStatus map[domorder.Status]int
	Revenue        int64
	// Daily has one entry per day, oldest first, including days without sales.
	Daily             []domorder.DailySales
	RecentOrders      []*domorder.Order
	LowStock          []*domcatalog.Product
	LowStockThreshold int
}

type Service struct {
	users    UserCounter
	products ProductStats
	orders   OrderStats
	settings ThresholdReader
	ins      observability.Instruments
	now      func() time.Time
}

func NewService(users UserCounter, products ProductStats, orders OrderStats, settings ThresholdReader, tel observability.Observability) *Service {
	return &Service{
		users:    users,
		products: products,
		orders:   orders,
		settings: settings,
		ins:      observability.Resolve(tel, adminService),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Dashboard aggregates store statistics; days selects the length of the sales chart.
func (s *Service) Dashboard(ctx context.Context, days int) (_ *Dashboard, err error) {
	if days <= 0 {
		days = defaultDays
	}
	if days > maxDays {
		days = maxDays
	}
	ctx, call := application.Begin(ctx, s.ins, useCaseDashboard, "Dashboard", attribute.Int("days", days))
	defer func() { call.End(err) }()

	d := &Dashboard{}
	if d.Users, err = s.users.Count(ctx); err != nil {
		call.Fail("USER_COUNT_FAILED")
		return nil, fmt.Errorf("admin: count users: %w", err)
	}
	if d.Products, err = s.products.Count(ctx); err != nil {
		call.Fail("PRODUCT_COUNT_FAILED")
		return nil, fmt.Errorf("admin: count products: %w", err)
	}

	today := s.now().Truncate(24 * time.Hour)
	since := today.AddDate(0, 0, -(days - 1))
	sum, err := s.orders.Summary(ctx, since)
	if err != nil {
		call.Fail("ORDER_SUMMARY_FAILED")
		return nil, fmt.Errorf("admin: order summary: %w", err)
	}
	d.CountsByStatus = make(map[domorder.Status]int, len(domorder.Statuses))
	for _, st := range domorder.Statuses {
		d.CountsByStatus[st] = sum.CountsByStatus[st]
		d.Orders += sum.CountsByStatus[st]
	}
	d.Revenue = sum.Revenue
	d.Daily = fillDays(sum.Daily, since, days)

	if d.RecentOrders, _, err = s.orders.List(ctx, domorder.Filter{Page: 1, Limit: recentOrdersLimit}); err != nil {
		call.Fail("ORDER_LIST_FAILED")
		return nil, fmt.Errorf("admin: recent orders: %w", err)
	}

	d.LowStockThreshold = s.settings.LowStockThreshold(ctx)
	if d.LowStock, err = s.products.LowStock(ctx, d.LowStockThreshold); err != nil {
		call.Fail("LOW_STOCK_FAILED")
		return nil, fmt.Errorf("admin: low stock: %w", err)
	}

	call.With(
		observability.F("orders", d.Orders),
		observability.F("low_stock", len(d.LowStock)),
	)
	return d, nil
}

func fillDays(sales []domorder.DailySales, since time.Time, days int) []domorder.DailySales {
	byDay := make(map[time.Time]domorder.DailySales, len(sales))
	for _, s := range sales {
		byDay[s.Day.UTC().Truncate(24*time.Hour)] = s
	}
	out := make([]domorder.DailySales, 0, days)
	for i := 0; i < days; i++ {
		day := since.AddDate(0, 0, i)
		s, ok := byDay[day]
		if !ok {
			s = domorder.DailySales{Day: day}
		}
		out = append(out, s)
	}
	return out
}
