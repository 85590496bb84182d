package admin

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domcatalog "github.com/Zhima-Mochi/minishop-chapa/internal/domain/catalog"
	domorder "github.com/Zhima-Mochi/minishop-chapa/internal/domain/order"
	domuser "github.com/Zhima-Mochi/minishop-chapa/internal/domain/user"
	"github.com/Zhima-Mochi/minishop-chapa/internal/infrastructure/memory"
	"github.com/Zhima-Mochi/minishop-chapa/internal/observability"
)

type fixedThreshold int

func (f fixedThreshold) LowStockThreshold(context.Context) int { return int(f) }

func TestDashboard(t *testing.T) {
	ctx := context.Background()
	users := memory.NewUserRepository()
	products, _ := memory.NewCatalogRepositories()
	orders := memory.NewOrderRepository()

	for i, email := range []string{"a@example.com", "b@example.com"} {
		u, err := domuser.New(fmt.Sprintf("u%d", i), "User", email, "", "hash", domuser.RoleCustomer)
		require.NoError(t, err)
		require.NoError(t, users.Insert(ctx, u))
	}
	for _, p := range []struct {
		id    string
		stock int
	}{{"beans", 40}, {"mug", 2}, {"filter", 3}} {
		prod, err := domcatalog.NewProduct(p.id, "", p.id, "", 1000, p.stock, "")
		require.NoError(t, err)
		require.NoError(t, products.Insert(ctx, prod))
	}

	place := func(id string, qty int, settle func(o *domorder.Order) error) {
		o, err := domorder.New(id, "u0", "minishop-"+id, "", "ETB", []domorder.Item{{ProductID: "beans", Name: "Beans", UnitPrice: 1000, Quantity: qty}})
		require.NoError(t, err)
		if settle != nil {
			require.NoError(t, settle(o))
		}
		require.NoError(t, orders.Insert(ctx, o))
	}
	place("o1", 1, nil)
	place("o2", 2, (*domorder.Order).PaymentSucceeded)
	place("o3", 3, func(o *domorder.Order) error {
		if err := o.PaymentSucceeded(); err != nil {
			return err
		}
		return o.Ship()
	})
	place("o4", 4, func(o *domorder.Order) error { return o.PaymentFailed("payment_declined") })

	svc := NewService(users, products, orders, fixedThreshold(3), observability.Nop())
	d, err := svc.Dashboard(ctx, 7)
	require.NoError(t, err)

	require.Equal(t, 2, d.Users)
	require.Equal(t, 3, d.Products)
	require.Equal(t, 4, d.Orders)
	require.Equal(t, 1, d.CountsByStatus[domorder.StatusPending])
	require.Equal(t, 1, d.CountsByStatus[domorder.StatusPaymentFailed])
	require.Equal(t, 0, d.CountsByStatus[domorder.StatusDelivered])
	require.Equal(t, int64(5000), d.Revenue)

	require.Len(t, d.Daily, 7)
	today := d.Daily[6]
	require.True(t, today.Day.Equal(time.Now().UTC().Truncate(24*time.Hour)))
	require.Equal(t, 2, today.Orders)
	require.Equal(t, int64(5000), today.Revenue)
	require.Zero(t, d.Daily[0].Orders)

	require.Len(t, d.RecentOrders, 4)
	require.Equal(t, 3, d.LowStockThreshold)
	require.Len(t, d.LowStock, 2)
	require.Equal(t, "mug", d.LowStock[0].ID)
}

func TestDashboardClampsDays(t *testing.T) {
	products, _ := memory.NewCatalogRepositories()
	svc := NewService(memory.NewUserRepository(), products, memory.NewOrderRepository(), fixedThreshold(5), observability.Nop())

	d, err := svc.Dashboard(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, d.Daily, defaultDays)

	d, err = svc.Dashboard(context.Background(), 1000)
	require.NoError(t, err)
	require.Len(t, d.Daily, maxDays)
}
