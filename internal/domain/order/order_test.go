package order

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newPending(t *testing.T) *Order {
	t.Helper()
	o, err := New("o1", "u1", "minishop-1", "", "ETB", []Item{
		{ProductID: "p1", Name: "Coffee", UnitPrice: 25000, Quantity: 2},
		{ProductID: "p2", Name: "Tea", UnitPrice: 1050, Quantity: 1},
	})
	require.NoError(t, err)
	return o
}

func TestNewComputesTotals(t *testing.T) {
	o := newPending(t)
	require.Equal(t, StatusPending, o.Status)
	require.Equal(t, int64(50000), o.Items[0].Subtotal)
	require.Equal(t, int64(51050), o.Total)
	require.Len(t, o.StockLines(), 2)

	_, err := New("o2", "u1", "tx", "", "ETB", nil)
	require.ErrorIs(t, err, ErrEmpty)
	_, err = New("o2", "u1", "tx", "", "ETB", []Item{{ProductID: "p1", UnitPrice: 1, Quantity: 0}})
	require.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestPaymentTransitions(t *testing.T) {
	o := newPending(t)
	require.NoError(t, o.PaymentFailed("payment_declined"))
	require.Equal(t, StatusPaymentFailed, o.Status)
	require.Equal(t, "payment_declined", o.FailureReason)

	require.NoError(t, o.PaymentFailed(""))
	require.Equal(t, "payment_declined", o.FailureReason)

	require.NoError(t, o.PaymentSucceeded())
	require.Equal(t, StatusPaid, o.Status)
	require.Empty(t, o.FailureReason)

	require.NoError(t, o.PaymentSucceeded())
	require.ErrorIs(t, o.PaymentFailed("late"), ErrInvalidStateTransition)
}

func TestFulfilmentTransitions(t *testing.T) {
	o := newPending(t)
	require.ErrorIs(t, o.Ship(), ErrInvalidStateTransition)

	require.NoError(t, o.PaymentSucceeded())
	require.NoError(t, o.Ship())
	require.ErrorIs(t, o.Cancel("admin"), ErrNotCancellable)
	require.NoError(t, o.Deliver())
	require.Equal(t, StatusDelivered, o.Status)
	require.ErrorIs(t, o.Ship(), ErrInvalidStateTransition)
}

func TestCancel(t *testing.T) {
	o := newPending(t)
	require.NoError(t, o.Cancel("customer"))
	require.Equal(t, StatusCancelled, o.Status)
	require.NoError(t, o.Cancel("again"))
	require.ErrorIs(t, o.PaymentSucceeded(), ErrInvalidStateTransition)

	failed := newPending(t)
	require.NoError(t, failed.PaymentFailed("expired"))
	require.ErrorIs(t, failed.Cancel("customer"), ErrNotCancellable)
}

func TestStatusHelpers(t *testing.T) {
	st, ok := ParseStatus(" Shipped ")
	require.True(t, ok)
	require.Equal(t, StatusShipped, st)
	_, ok = ParseStatus("lost")
	require.False(t, ok)

	require.True(t, StatusDelivered.Revenue())
	require.False(t, StatusPaymentFailed.HoldsStock())
	require.True(t, StatusPending.HoldsStock())
}

func TestCloneCopiesItems(t *testing.T) {
	o := newPending(t)
	c := o.Clone()
	c.Items[0].Quantity = 99
	require.Equal(t, 2, o.Items[0].Quantity)
}
