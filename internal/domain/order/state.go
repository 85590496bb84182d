package order

// OrderState implements the state pattern for order lifecycle transitions.
// Re-applying the transition that led into a state is a no-op so that
// webhook and reconciler retries stay idempotent.
type OrderState interface {
	Status() Status
	OnPaymentSucceeded(o *Order) (OrderState, error)
	OnPaymentFailed(o *Order, reason string) (OrderState, error)
	OnCancelled(o *Order, reason string) (OrderState, error)
	OnShipped(o *Order) (OrderState, error)
	OnDelivered(o *Order) (OrderState, error)
}

func stateFor(s Status) (OrderState, error) {
	switch s {
	case StatusPending:
		return pendingState{}, nil
	case StatusPaid:
		return paidState{}, nil
	case StatusPaymentFailed:
		return paymentFailedState{}, nil
	case StatusShipped:
		return shippedState{}, nil
	case StatusDelivered:
		return deliveredState{}, nil
	case StatusCancelled:
		return cancelledState{}, nil
	default:
		return nil, ErrInvalidStateTransition
	}
}

// rejectAll is embedded by states to refuse every transition they do not override.
type rejectAll struct{}

func (rejectAll) OnPaymentSucceeded(*Order) (OrderState, error)      { return nil, ErrInvalidStateTransition }
func (rejectAll) OnPaymentFailed(*Order, string) (OrderState, error) { return nil, ErrInvalidStateTransition }
func (rejectAll) OnCancelled(*Order, string) (OrderState, error)     { return nil, ErrNotCancellable }
func (rejectAll) OnShipped(*Order) (OrderState, error)               { return nil, ErrInvalidStateTransition }
func (rejectAll) OnDelivered(*Order) (OrderState, error)             { return nil, ErrInvalidStateTransition }

type pendingState struct{ rejectAll }

func (pendingState) Status() Status { return StatusPending }

func (pendingState) OnPaymentSucceeded(o *Order) (OrderState, error) {
	o.FailureReason = ""
	return paidState{}, nil
}

func (pendingState) OnPaymentFailed(o *Order, reason string) (OrderState, error) {
	o.FailureReason = reason
	return paymentFailedState{}, nil
}

func (pendingState) OnCancelled(o *Order, reason string) (OrderState, error) {
	o.FailureReason = reason
	return cancelledState{}, nil
}

type paidState struct{ rejectAll }

func (paidState) Status() Status { return StatusPaid }

func (paidState) OnPaymentSucceeded(*Order) (OrderState, error) {
	return paidState{}, nil
}

func (paidState) OnCancelled(o *Order, reason string) (OrderState, error) {
	o.FailureReason = reason
	return cancelledState{}, nil
}

func (paidState) OnShipped(*Order) (OrderState, error) {
	return shippedState{}, nil
}

type paymentFailedState struct{ rejectAll }

func (paymentFailedState) Status() Status { return StatusPaymentFailed }

func (paymentFailedState) OnPaymentSucceeded(o *Order) (OrderState, error) {
	o.FailureReason = ""
	return paidState{}, nil
}

func (paymentFailedState) OnPaymentFailed(o *Order, reason string) (OrderState, error) {
	if reason != "" {
		o.FailureReason = reason
	}
	return paymentFailedState{}, nil
}

type shippedState struct{ rejectAll }

func (shippedState) Status() Status { return StatusShipped }

func (shippedState) OnPaymentSucceeded(*Order) (OrderState, error) {
	return shippedState{}, nil
}

func (shippedState) OnShipped(*Order) (OrderState, error) {
	return shippedState{}, nil
}

func (shippedState) OnDelivered(*Order) (OrderState, error) {
	return deliveredState{}, nil
}

type deliveredState struct{ rejectAll }

func (deliveredState) Status() Status { return StatusDelivered }

func (deliveredState) OnPaymentSucceeded(*Order) (OrderState, error) {
	return deliveredState{}, nil
}

func (deliveredState) OnDelivered(*Order) (OrderState, error) {
	return deliveredState{}, nil
}

type cancelledState struct{ rejectAll }

func (cancelledState) Status() Status { return StatusCancelled }

func (cancelledState) OnCancelled(*Order, string) (OrderState, error) {
	return cancelledState{}, nil
}
