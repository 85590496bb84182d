package order

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	domain "github.com/Zhima-Mochi/minishop-chapa/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-chapa/internal/infrastructure/memory"
	"github.com/Zhima-Mochi/minishop-chapa/internal/observability"
)

func placeOrder(t *testing.T, f *fixture, userID string, qty int) *domain.Order {
	t.Helper()
	res, err := f.create.Execute(context.Background(), CreateOrderInput{UserID: userID, Items: []LineInput{{"coffee", qty}}})
	require.NoError(t, err)
	return res.Order
}

func TestGetHidesForeignOrders(t *testing.T) {
	f := newFixture(t)
	o := placeOrder(t, f, "u1", 1)

	_, err := f.svc.Get(context.Background(), Actor{UserID: "u2"}, o.ID)
	require.ErrorIs(t, err, ErrNotFound)

	got, err := f.svc.Get(context.Background(), Actor{UserID: "admin", Admin: true}, o.ID)
	require.NoError(t, err)
	require.Equal(t, o.ID, got.ID)
}

func TestCustomerCancelReleasesStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := placeOrder(t, f, "u1", 2)
	require.Equal(t, 3, f.stock(t, "coffee"))

	cancelled, err := f.svc.Cancel(ctx, Actor{UserID: "u1"}, o.ID, "")
	require.NoError(t, err)
	require.Equal(t, domain.StatusCancelled, cancelled.Status)
	require.Equal(t, "cancelled_by_customer", cancelled.FailureReason)
	require.Equal(t, 5, f.stock(t, "coffee"))

	again, err := f.svc.Cancel(ctx, Actor{UserID: "u1"}, o.ID, "")
	require.NoError(t, err)
	require.Equal(t, domain.StatusCancelled, again.Status)
	require.Equal(t, 5, f.stock(t, "coffee"))
	require.Equal(t, []string{"order.placed", "order.cancelled"}, f.pub.names())
}

func TestOnlyAdminCancelsPaidOrders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := placeOrder(t, f, "u1", 1)

	stored, err := f.orders.Get(ctx, o.ID)
	require.NoError(t, err)
	require.NoError(t, stored.PaymentSucceeded())
	require.NoError(t, f.orders.Update(ctx, stored))

	_, err = f.svc.Cancel(ctx, Actor{UserID: "u1"}, o.ID, "")
	require.ErrorIs(t, err, domain.ErrNotCancellable)

	cancelled, err := f.svc.Cancel(ctx, Actor{UserID: "admin", Admin: true}, o.ID, "refund requested")
	require.NoError(t, err)
	require.Equal(t, "refund requested", cancelled.FailureReason)
	require.Equal(t, 5, f.stock(t, "coffee"))
}

func TestUpdateStatusFulfilment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := placeOrder(t, f, "u1", 1)

	_, err := f.svc.UpdateStatus(ctx, o.ID, domain.StatusShipped)
	require.ErrorIs(t, err, domain.ErrInvalidStateTransition)
	_, err = f.svc.UpdateStatus(ctx, o.ID, domain.StatusPaid)
	require.ErrorIs(t, err, ErrValidation)

	stored, _ := f.orders.Get(ctx, o.ID)
	require.NoError(t, stored.PaymentSucceeded())
	require.NoError(t, f.orders.Update(ctx, stored))

	shipped, err := f.svc.UpdateStatus(ctx, o.ID, domain.StatusShipped)
	require.NoError(t, err)
	require.Equal(t, domain.StatusShipped, shipped.Status)

	delivered, err := f.svc.UpdateStatus(ctx, o.ID, domain.StatusDelivered)
	require.NoError(t, err)
	require.Equal(t, domain.StatusDelivered, delivered.Status)

	_, err = f.svc.UpdateStatus(ctx, o.ID, domain.StatusCancelled)
	require.ErrorIs(t, err, domain.ErrNotCancellable)
}

func TestListMine(t *testing.T) {
	f := newFixture(t)
	placeOrder(t, f, "u1", 1)
	placeOrder(t, f, "u2", 1)

	orders, total, err := f.svc.ListMine(context.Background(), "u1", 1, 10)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, "u1", orders[0].UserID)
}

// payDuringRead settles the order right after handing out a copy of it, as
// a payment webhook landing between a read and a write would.
type payDuringRead struct {
	*memory.OrderRepository
	armed bool
}

func (r *payDuringRead) Get(ctx context.Context, id string) (*domain.Order, error) {
	o, err := r.OrderRepository.Get(ctx, id)
	if err != nil || !r.armed {
		return o, err
	}
	r.armed = false
	paid := o.Clone()
	if err := paid.PaymentSucceeded(); err != nil {
		return nil, err
	}
	return o, r.OrderRepository.Update(ctx, paid)
}

func TestCancelRereadsOrderPaidMeanwhile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := placeOrder(t, f, "u1", 2)
	repo := &payDuringRead{OrderRepository: f.orders, armed: true}
	svc := NewService(repo, f.products, f.pub, observability.Nop())

	_, err := svc.Cancel(ctx, Actor{UserID: "u1"}, o.ID, "")
	require.ErrorIs(t, err, domain.ErrNotCancellable)

	stored, err := f.orders.Get(ctx, o.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusPaid, stored.Status)
	require.Equal(t, 3, f.stock(t, "coffee"))
	require.Equal(t, []string{"order.placed"}, f.pub.names())
}

type conflictingOrders struct {
	*memory.OrderRepository
	updates int
}

func (r *conflictingOrders) Update(context.Context, *domain.Order) error {
	r.updates++
	return domain.ErrConflict
}

func TestCancelGivesUpAfterRepeatedConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := placeOrder(t, f, "u1", 2)
	repo := &conflictingOrders{OrderRepository: f.orders}
	svc := NewService(repo, f.products, f.pub, observability.Nop())

	_, err := svc.Cancel(ctx, Actor{UserID: "u1"}, o.ID, "")
	require.ErrorIs(t, err, ErrConflict)
	require.Equal(t, maxOrderWrites, repo.updates)
	require.Equal(t, 3, f.stock(t, "coffee"))
	require.Equal(t, domain.StatusPending, f.orderStatus(t, o.ID))
}
