package order

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Zhima-Mochi/minishop-chapa/internal/application"
	domcatalog "github.com/Zhima-Mochi/minishop-chapa/internal/domain/catalog"
	domain "github.com/Zhima-Mochi/minishop-chapa/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-chapa/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-chapa/internal/observability"
)

const (
	useCaseOrderCancel       = "order.cancel"
	useCaseOrderUpdateStatus = "order.update_status"

	maxOrderWrites = 3
)

// Service covers the order operations after checkout: reads, cancellation
// and admin fulfilment updates.
type Service struct {
	repo      domain.Repository
	products  domcatalog.ProductRepository
	publisher domoutbox.Publisher
	ins       observability.Instruments
}

func NewService(repo domain.Repository, products domcatalog.ProductRepository, publisher domoutbox.Publisher, tel observability.Observability) *Service {
	return &Service{
		repo:      repo,
		products:  products,
		publisher: publisher,
		ins:       observability.Resolve(tel, orderService),
	}
}

// Get returns the order when actor owns it or is an admin. Foreign orders
// look missing so other users cannot discover ids.
func (s *Service) Get(ctx context.Context, actor Actor, id string) (*domain.Order, error) {
	if id == "" {
		return nil, newValidation("order id is required")
	}
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, wrapRepositoryError(err)
	}
	if !actor.Admin && o.UserID != actor.UserID {
		return nil, ErrNotFound
	}
	return o, nil
}

func (s *Service) ListMine(ctx context.Context, userID string, page, limit int) ([]*domain.Order, int, error) {
	if userID == "" {
		return nil, 0, newValidation("user id is required")
	}
	orders, total, err := s.repo.List(ctx, domain.Filter{UserID: userID, Page: page, Limit: limit})
	return orders, total, wrapRepositoryError(err)
}

func (s *Service) ListAll(ctx context.Context, f domain.Filter) ([]*domain.Order, int, error) {
	orders, total, err := s.repo.List(ctx, f.Normalize())
	return orders, total, wrapRepositoryError(err)
}

// Cancel lets an owner cancel a pending order; admins may also cancel paid ones.
// Reserved stock goes back to the catalog.
func (s *Service) Cancel(ctx context.Context, actor Actor, id, reason string) (_ *domain.Order, err error) {
	ctx, call := application.Begin(ctx, s.ins, useCaseOrderCancel, "CancelOrder",
		attribute.String("order.id", id),
		attribute.Bool("actor.admin", actor.Admin),
	)
	defer func() { call.End(err) }()

	if reason = strings.TrimSpace(reason); reason == "" {
		reason = "cancelled_by_customer"
		if actor.Admin {
			reason = "cancelled_by_admin"
		}
	}

	var o *domain.Order
	err = application.RetryConflicts(call, maxOrderWrites, domain.ErrConflict, func() error {
		var gerr error
		if o, gerr = s.Get(ctx, actor, id); gerr != nil {
			call.Fail("ORDER_LOOKUP_FAILED")
			return gerr
		}
		if o.Status == domain.StatusCancelled {
			call.Status("ALREADY_CANCELLED")
			return nil
		}
		if o.Status == domain.StatusPaid && !actor.Admin {
			call.Fail("NOT_CANCELLABLE")
			return domain.ErrNotCancellable
		}
		return s.cancel(ctx, call, o, reason)
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

// UpdateStatus applies an admin fulfilment step: shipped, delivered or cancelled.
func (s *Service) UpdateStatus(ctx context.Context, id string, status domain.Status) (_ *domain.Order, err error) {
	ctx, call := application.Begin(ctx, s.ins, useCaseOrderUpdateStatus, "UpdateOrderStatus",
		attribute.String("order.id", id),
		attribute.String("order.target_status", string(status)),
	)
	defer func() { call.End(err) }()

	var step func(o *domain.Order) error
	switch status {
	case domain.StatusShipped:
		step = (*domain.Order).Ship
	case domain.StatusDelivered:
		step = (*domain.Order).Deliver
	case domain.StatusCancelled:
	default:
		call.Fail("STATUS_NOT_ALLOWED")
		return nil, newValidation("status must be shipped, delivered or cancelled")
	}

	var o *domain.Order
	err = application.RetryConflicts(call, maxOrderWrites, domain.ErrConflict, func() error {
		var gerr error
		if o, gerr = s.repo.Get(ctx, id); gerr != nil {
			call.Fail("ORDER_LOOKUP_FAILED")
			return wrapRepositoryError(gerr)
		}
		if step == nil {
			if o.Status == domain.StatusCancelled {
				return nil
			}
			return s.cancel(ctx, call, o, "cancelled_by_admin")
		}
		if serr := step(o); serr != nil {
			call.Fail("STATE_TRANSITION_FAILED")
			return serr
		}
		if uerr := s.repo.Update(ctx, o); uerr != nil {
			return writeFailed(call, uerr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	call.With(observability.F("status_after", string(o.Status)))
	return o, nil
}

// cancel writes the cancellation first so only the writer that wins the
// version check hands the stock back.
func (s *Service) cancel(ctx context.Context, call *application.Call, o *domain.Order, reason string) error {
	heldStock := o.Status.HoldsStock()
	if err := o.Cancel(reason); err != nil {
		call.Fail("STATE_TRANSITION_FAILED")
		return err
	}
	if err := s.repo.Update(ctx, o); err != nil {
		return writeFailed(call, err)
	}
	if heldStock {
		if err := s.products.Release(ctx, o.StockLines()); err != nil {
			call.Status("STOCK_RELEASE_FAILED")
			call.Log().Error("stock_release_failed",
				observability.F("order_id", o.ID),
				observability.F("error", err.Error()),
			)
		}
	}
	if err := publish(ctx, s.publisher, s.ins, domain.NewOrderCancelledEvent(o, reason)); err != nil {
		call.With(observability.F("event_publish_error", err.Error()))
	}
	call.With(observability.F("order_id", o.ID), observability.F("reason", reason))
	return nil
}

// writeFailed hands conflicts back for another round and fails the call otherwise.
func writeFailed(call *application.Call, err error) error {
	if errors.Is(err, domain.ErrConflict) {
		return err
	}
	call.Fail("ORDER_UPDATE_FAILED")
	return wrapRepositoryError(err)
}

// IsValidation reports whether err came from input validation.
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }
