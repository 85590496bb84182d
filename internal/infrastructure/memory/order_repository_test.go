package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Zhima-Mochi/minishop-chapa/internal/domain/order"
)

func newOrder(t *testing.T, id, userID, key string, total int64) *order.Order {
	t.Helper()
	o, err := order.New(id, userID, "tx-"+id, key, "ETB", []order.Item{{ProductID: "p", UnitPrice: total, Quantity: 1}})
	require.NoError(t, err)
	return o
}

func TestOrderIdempotencyIsScopedPerUser(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository()

	require.NoError(t, repo.Insert(ctx, newOrder(t, "o1", "u1", "k", 100)))
	require.ErrorIs(t, repo.Insert(ctx, newOrder(t, "o2", "u1", "k", 100)), order.ErrConflict)
	require.NoError(t, repo.Insert(ctx, newOrder(t, "o3", "u2", "k", 100)))

	got, err := repo.FindByIdempotency(ctx, "u2", "k")
	require.NoError(t, err)
	require.Equal(t, "o3", got.ID)

	_, err = repo.FindByIdempotency(ctx, "u3", "k")
	require.ErrorIs(t, err, order.ErrNotFound)

	byRef, err := repo.FindByTxRef(ctx, "tx-o1")
	require.NoError(t, err)
	require.Equal(t, "o1", byRef.ID)
}

func TestOrderSummary(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository()

	paid := newOrder(t, "o1", "u1", "", 500)
	require.NoError(t, paid.PaymentSucceeded())
	old := newOrder(t, "o2", "u1", "", 700)
	require.NoError(t, old.PaymentSucceeded())
	old.CreatedAt = time.Now().UTC().AddDate(0, 0, -30)
	pending := newOrder(t, "o3", "u2", "", 900)

	for _, o := range []*order.Order{paid, old, pending} {
		require.NoError(t, repo.Insert(ctx, o))
	}

	sum, err := repo.Summary(ctx, time.Now().AddDate(0, 0, -7))
	require.NoError(t, err)
	require.Equal(t, 2, sum.CountsByStatus[order.StatusPaid])
	require.Equal(t, 1, sum.CountsByStatus[order.StatusPending])
	require.Equal(t, int64(1200), sum.Revenue)
	require.Len(t, sum.Daily, 1)
	require.Equal(t, int64(500), sum.Daily[0].Revenue)

	list, total, err := repo.List(ctx, order.Filter{UserID: "u1"})
	require.NoError(t, err)
	require.Equal(t, 2, total)
	require.Equal(t, "o1", list[0].ID)
}

func TestOrderUpdateRejectsStaleVersion(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository()
	require.NoError(t, repo.Insert(ctx, newOrder(t, "o1", "u1", "", 100)))

	first, err := repo.Get(ctx, "o1")
	require.NoError(t, err)
	second, err := repo.Get(ctx, "o1")
	require.NoError(t, err)

	require.NoError(t, first.PaymentSucceeded())
	require.NoError(t, repo.Update(ctx, first))
	require.Equal(t, int64(1), first.Version)

	require.NoError(t, second.Cancel("cancelled_by_customer"))
	require.ErrorIs(t, repo.Update(ctx, second), order.ErrConflict)

	stored, err := repo.Get(ctx, "o1")
	require.NoError(t, err)
	require.Equal(t, order.StatusPaid, stored.Status)

	require.ErrorIs(t, repo.Update(ctx, newOrder(t, "missing", "u1", "", 100)), order.ErrNotFound)
}
