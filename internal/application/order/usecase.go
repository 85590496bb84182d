package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Zhima-Mochi/minishop-chapa/internal/application"
	domcatalog "github.com/Zhima-Mochi/minishop-chapa/internal/domain/catalog"
	domain "github.com/Zhima-Mochi/minishop-chapa/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-chapa/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-chapa/internal/observability"
)

const (
	orderService       = "order-service"
	useCaseOrderCreate = "order.create"
	publishPeer        = "outbox"
	publishTimeout     = 300 * time.Millisecond
	maxOrderLines      = 50
)

var (
	ErrConflict   = domain.ErrConflict
	ErrNotFound   = domain.ErrNotFound
	ErrValidation = errors.New("order: validation failed")
	ErrRepository = errors.New("order: repository failure")
)

// CreateOrderUseCase runs checkout: it reserves stock for every line in one
// step, prices the order from the catalog and persists it as pending.
type CreateOrderUseCase struct {
	repo      domain.Repository
	products  domcatalog.ProductRepository
	ids       IDGenerator
	txRefs    TxRefGenerator
	settings  SettingsReader
	publisher domoutbox.Publisher
	ins       observability.Instruments
}

func NewCreateOrderUseCase(
	repo domain.Repository,
	products domcatalog.ProductRepository,
	ids IDGenerator,
	txRefs TxRefGenerator,
	settings SettingsReader,
	publisher domoutbox.Publisher,
	tel observability.Observability,
) *CreateOrderUseCase {
	return &CreateOrderUseCase{
		repo:      repo,
		products:  products,
		ids:       ids,
		txRefs:    txRefs,
		settings:  settings,
		publisher: publisher,
		ins:       observability.Resolve(tel, orderService),
	}
}

type LineInput struct {
	ProductID string
	Quantity  int
}

type CreateOrderInput struct {
	IdempotencyKey  string
	UserID          string
	Items           []LineInput
	ShippingAddress string
	Phone           string
}

type CreateOrderResult struct {
	Order *domain.Order
	// Replayed is true when the idempotency key matched an earlier order.
	Replayed bool
}

func (uc *CreateOrderUseCase) Execute(ctx context.Context, cmd CreateOrderInput) (_ *CreateOrderResult, err error) {
	ctx, call := application.Begin(ctx, uc.ins, useCaseOrderCreate, "CreateOrder",
		attribute.String("order.user_id", cmd.UserID),
		attribute.Int("order.lines", len(cmd.Items)),
	)
	defer func() { call.End(err) }()
	span := call.Span()

	if cmd.UserID == "" {
		call.Fail("USER_ID_REQUIRED")
		return nil, newValidation("user id is required")
	}
	lines, verr := normalizeLines(cmd.Items)
	if verr != nil {
		call.Fail("LINES_INVALID")
		return nil, verr
	}
	if err := ctx.Err(); err != nil {
		call.Fail("CONTEXT_CANCELED")
		return nil, err
	}

	if cmd.IdempotencyKey != "" {
		existing, repoErr := uc.repo.FindByIdempotency(ctx, cmd.UserID, cmd.IdempotencyKey)
		switch {
		case repoErr == nil:
			call.Status("IDEMPOTENT_REPLAY")
			replayed(span, existing)
			return &CreateOrderResult{Order: existing, Replayed: true}, nil
		case errors.Is(repoErr, domain.ErrNotFound):
			// continue
		default:
			call.Fail("IDEMPOTENCY_LOOKUP_FAILED")
			return nil, wrapRepositoryError(repoErr)
		}
	}

	ids := make([]string, len(lines))
	for i, l := range lines {
		ids[i] = l.ProductID
	}
	products, err := uc.products.GetMany(ctx, ids)
	if err != nil {
		call.Fail("PRODUCT_LOOKUP_FAILED")
		return nil, wrapRepositoryError(err)
	}
	items := make([]domain.Item, 0, len(lines))
	for _, l := range lines {
		p, ok := products[l.ProductID]
		if !ok {
			call.Fail("PRODUCT_NOT_FOUND")
			return nil, &domcatalog.ReservationError{ProductID: l.ProductID, Err: domcatalog.ErrNotFound}
		}
		if !p.Active {
			call.Fail("PRODUCT_INACTIVE")
			return nil, &domcatalog.ReservationError{ProductID: l.ProductID, Err: domcatalog.ErrInactive}
		}
		items = append(items, domain.Item{
			ProductID: p.ID,
			Name:      p.Name,
			UnitPrice: p.Price,
			Quantity:  l.Quantity,
		})
	}

	entity, derr := domain.New(uc.ids.NewID(), cmd.UserID, uc.txRefs.NewTxRef(), cmd.IdempotencyKey,
		uc.settings.Currency(ctx), items)
	if derr != nil {
		call.Fail("DOMAIN_CONSTRUCTION_FAILED")
		return nil, fmt.Errorf("order: construct: %w", derr)
	}
	entity.ShippingAddress = strings.TrimSpace(cmd.ShippingAddress)
	entity.Phone = strings.TrimSpace(cmd.Phone)

	if err := uc.products.Reserve(ctx, entity.StockLines()); err != nil {
		call.Fail("STOCK_RESERVE_FAILED")
		return nil, err
	}
	span.AddEvent("stock.reserved")

	if err := uc.repo.Insert(ctx, entity); err != nil {
		uc.release(ctx, call.Log(), entity)
		if errors.Is(err, domain.ErrConflict) && cmd.IdempotencyKey != "" {
			if existing, lookupErr := uc.repo.FindByIdempotency(ctx, cmd.UserID, cmd.IdempotencyKey); lookupErr == nil {
				call.Status("IDEMPOTENT_REPLAY")
				replayed(span, existing)
				return &CreateOrderResult{Order: existing, Replayed: true}, nil
			}
		}
		call.Fail("REPO_INSERT_FAILED")
		return nil, wrapRepositoryError(err)
	}

	if publishErr := publish(ctx, uc.publisher, uc.ins, domain.NewOrderPlacedEvent(entity)); publishErr != nil {
		call.Status("EVENT_PUBLISH_FAILED")
		call.With(observability.F("event_publish_error", publishErr.Error()))
	}

	call.With(
		observability.F("order_id", entity.ID),
		observability.F("tx_ref", entity.TxRef),
		observability.F("total", entity.Total),
	)
	span.SetAttributes(attribute.String("order.status", string(entity.Status)))
	span.AddEvent("order.placed", trace.WithAttributes(attribute.String("order.id", entity.ID)))

	return &CreateOrderResult{Order: entity}, nil
}

func (uc *CreateOrderUseCase) release(ctx context.Context, logger observability.Logger, o *domain.Order) {
	relCtx := context.WithoutCancel(ctx)
	if err := uc.products.Release(relCtx, o.StockLines()); err != nil {
		logger.Error("stock_release_failed",
			observability.F("order_id", o.ID),
			observability.F("error", err.Error()),
		)
	}
}

func normalizeLines(in []LineInput) ([]domcatalog.StockLine, error) {
	if len(in) == 0 {
		return nil, newValidation("at least one item is required")
	}
	if len(in) > maxOrderLines {
		return nil, newValidation(fmt.Sprintf("at most %d items are allowed", maxOrderLines))
	}
	lines := make([]domcatalog.StockLine, 0, len(in))
	for _, it := range in {
		if strings.TrimSpace(it.ProductID) == "" {
			return nil, newValidation("product id is required")
		}
		if it.Quantity <= 0 {
			return nil, newValidation("quantity must be greater than zero")
		}
		lines = append(lines, domcatalog.StockLine{ProductID: strings.TrimSpace(it.ProductID), Quantity: it.Quantity})
	}
	return domcatalog.MergeLines(lines), nil
}

func replayed(span trace.Span, existing *domain.Order) {
	span.SetAttributes(attribute.String("order.status", string(existing.Status)))
	span.AddEvent("order.idempotent_replay",
		trace.WithAttributes(attribute.String("order.id", existing.ID)),
	)
}

// publish emits e best effort: the caller's work is already committed.
func publish(ctx context.Context, publisher domoutbox.Publisher, ins observability.Instruments, e domoutbox.Event) error {
	if publisher == nil {
		return nil
	}
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	start := time.Now()
	outcome := "success"
	err := publisher.Publish(pubCtx, e)
	if err != nil {
		outcome = "error"
	}
	ins.ObserveExternal(publishPeer, e.EventName(), outcome, time.Since(start).Seconds())
	return err
}

func wrapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, domain.ErrConflict):
		return ErrConflict
	default:
		return fmt.Errorf("%w: %w", ErrRepository, err)
	}
}

func newValidation(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}
