package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Zhima-Mochi/minishop-chapa/internal/domain/payment"
)

func TestPaymentPendingQueries(t *testing.T) {
	ctx := context.Background()
	repo := NewPaymentRepository()

	first, _ := payment.New("p1", "o1", "u1", "tx1", 100, "ETB")
	first.CreatedAt = time.Now().Add(-time.Hour)
	second, _ := payment.New("p2", "o1", "u1", "tx2", 100, "ETB")
	settled, _ := payment.New("p3", "o2", "u1", "tx3", 100, "ETB")
	_, _ = settled.Succeed("ref")

	for _, p := range []*payment.Payment{first, second, settled} {
		require.NoError(t, repo.Insert(ctx, p))
	}
	dup, _ := payment.New("p4", "o1", "u1", "tx1", 100, "ETB")
	require.ErrorIs(t, repo.Insert(ctx, dup), payment.ErrConflict)

	newest, err := repo.FindPendingByOrder(ctx, "o1")
	require.NoError(t, err)
	require.Equal(t, "p2", newest.ID)

	pending, err := repo.ListPending(ctx, payment.PendingQuery{
		CreatedBefore: time.Now().Add(-time.Minute),
		DueAt:         time.Now(),
		BaseBackoff:   time.Minute,
		MaxBackoff:    time.Hour,
		Limit:         10,
	})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, "p1", pending[0].ID)

	_, total, err := repo.List(ctx, payment.Filter{Status: payment.StatusSuccess})
	require.NoError(t, err)
	require.Equal(t, 1, total)
}

func TestListPendingSkipsPaymentsInBackoff(t *testing.T) {
	ctx := context.Background()
	repo := NewPaymentRepository()
	now := time.Now().UTC()

	for _, id := range []string{"recent-1", "recent-2"} {
		p, _ := payment.New(id, "o-"+id, "u1", "tx-"+id, 100, "ETB")
		p.CreatedAt = now.Add(-2 * time.Hour)
		p.RecordCheck(now.Add(-time.Second))
		require.NoError(t, repo.Insert(ctx, p))
	}
	due, _ := payment.New("due", "o-due", "u1", "tx-due", 100, "ETB")
	due.CreatedAt = now.Add(-time.Hour)
	due.RecordCheck(now.Add(-10 * time.Minute))
	require.NoError(t, repo.Insert(ctx, due))
	fresh, _ := payment.New("fresh", "o-fresh", "u1", "tx-fresh", 100, "ETB")
	fresh.CreatedAt = now.Add(-30 * time.Minute)
	require.NoError(t, repo.Insert(ctx, fresh))

	got, err := repo.ListPending(ctx, payment.PendingQuery{
		CreatedBefore: now.Add(-time.Minute),
		DueAt:         now,
		BaseBackoff:   time.Minute,
		MaxBackoff:    time.Hour,
		Limit:         2,
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "fresh", got[0].ID)
	require.Equal(t, "due", got[1].ID)
}
