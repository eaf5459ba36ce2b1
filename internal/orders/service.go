package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-flowershop/internal/cart"
	"github.com/ariefcatur/go-flowershop/internal/catalog"
	kafkax "github.com/ariefcatur/go-flowershop/internal/kafka"
)

var (
	ErrOverrideReason = errors.New("status override requires a reason")
	ErrUnderpaid      = errors.New("payment below order total")
)

// Publisher matches kafka.Producer.
type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

// StatusCache fronts the store for status-only reads.
type StatusCache interface {
	SetStatus(ctx context.Context, orderID string, s Status) error
	GetStatus(ctx context.Context, orderID string) (Status, bool, error)
	DeleteStatus(ctx context.Context, orderID string) error
}

// Service does not check authorization: admin-only methods assume the
// caller was authorized upstream.
type Service struct {
	Store        Store
	Catalog      catalog.Provider
	Placed       Publisher // shop.order.placed
	StatusEvents Publisher // shop.order.status
	Cache        StatusCache
	Log          *zap.Logger
	ServiceName  string
	ShippingFee  int64
	Now          func() time.Time
}

type CheckoutInput struct {
	Lines         []cart.Line
	Customer      Customer
	PaymentMethod PaymentMethod
	OwnerUserID   string
	TraceID       string
}

// Checkout re-prices the lines from the catalog, snapshots them into a new
// order and persists it. The caller clears the cart on success.
func (s *Service) Checkout(ctx context.Context, in CheckoutInput) (Order, error) {
	if len(in.Lines) == 0 {
		return Order{}, ErrCartEmpty
	}
	lines, err := s.price(ctx, in.Lines)
	if err != nil {
		return Order{}, err
	}
	o, err := NewOrder(lines, in.Customer, in.PaymentMethod, s.ShippingFee, in.OwnerUserID, s.now())
	if err != nil {
		return Order{}, err
	}
	if err := s.Store.Create(ctx, &o); err != nil {
		return Order{}, fmt.Errorf("create order: %w", err)
	}

	s.cache(ctx, o.ID, o.Status)
	s.publish(s.Placed, EventOrderPlaced, o.ID, in.TraceID, OrderPlacedPayload{
		OrderID:       o.ID,
		OwnerUserID:   o.OwnerUserID,
		PaymentMethod: o.PaymentMethod,
		Status:        o.Status,
		Items:         o.Items,
		TotalPrice:    o.TotalPrice,
	})
	s.log().Info("order placed",
		zap.String("order_id", o.ID),
		zap.String("payment_method", string(o.PaymentMethod)),
		zap.String("status", string(o.Status)),
		zap.Int64("total_price", o.TotalPrice),
	)
	return o, nil
}

// price replaces client-side prices with catalog prices.
func (s *Service) price(ctx context.Context, lines []cart.Line) ([]cart.Line, error) {
	out := make([]cart.Line, 0, len(lines))
	for _, ln := range lines {
		p, err := s.Catalog.Get(ctx, ln.ProductID)
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrProductUnavailable, ln.ProductID)
		}
		if err != nil {
			return nil, err
		}
		if !p.InStock {
			return nil, fmt.Errorf("%w: %s is out of stock", ErrProductUnavailable, ln.ProductID)
		}
		price, err := p.PriceFor(ln.SizeName)
		if err != nil {
			return nil, err
		}
		ln.UnitPrice = price
		ln.Name = p.Name
		if p.ImageRef != "" {
			ln.ImageRef = p.ImageRef
		}
		out = append(out, ln)
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (Order, error) {
	return s.Store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]Order, error) {
	return s.Store.List(ctx, f)
}

// Status reads through the cache.
func (s *Service) Status(ctx context.Context, id string) (Status, error) {
	if s.Cache != nil {
		if st, ok, err := s.Cache.GetStatus(ctx, id); err == nil && ok {
			return st, nil
		}
	}
	o, err := s.Store.Get(ctx, id)
	if err != nil {
		return "", err
	}
	s.cache(ctx, o.ID, o.Status)
	return o.Status, nil
}

// Transition applies one transition from the lifecycle table.
func (s *Service) Transition(ctx context.Context, id string, to Status, actor, traceID string) (Order, error) {
	if !to.Valid() {
		return Order{}, fmt.Errorf("%w: %q", ErrUnknownStatus, to)
	}
	o, err := s.Store.Get(ctx, id)
	if err != nil {
		return Order{}, err
	}
	if !CanTransition(o.Status, to) {
		return Order{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, to)
	}
	if err := s.apply(ctx, &o, to, EventOrderStatusChanged, actor, "", traceID); err != nil {
		return Order{}, err
	}
	s.log().Info("order status changed",
		zap.String("order_id", o.ID),
		zap.String("to", string(to)),
		zap.String("actor", actor),
	)
	return o, nil
}

// Override is the out-of-band correction for cases the lifecycle table does
// not allow, such as moving an order backwards.
func (s *Service) Override(ctx context.Context, id string, to Status, actor, reason, traceID string) (Order, error) {
	if !to.Valid() {
		return Order{}, fmt.Errorf("%w: %q", ErrUnknownStatus, to)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return Order{}, ErrOverrideReason
	}
	o, err := s.Store.Get(ctx, id)
	if err != nil {
		return Order{}, err
	}
	from := o.Status
	if from == to {
		return Order{}, fmt.Errorf("%w: order already %s", ErrInvalidTransition, to)
	}
	if err := s.apply(ctx, &o, to, EventOrderStatusOverridden, actor, reason, traceID); err != nil {
		return Order{}, err
	}
	s.log().Warn("order status override",
		zap.String("order_id", o.ID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("actor", actor),
		zap.String("reason", reason),
	)
	return o, nil
}

// ConfirmPayment moves the order forward to paid through legal transitions.
// Orders already at or past paid are left alone. An amount below the frozen
// order total is refused with ErrUnderpaid.
func (s *Service) ConfirmPayment(ctx context.Context, id, paymentRef string, amount int64, traceID string) (Order, error) {
	o, err := s.Store.Get(ctx, id)
	if err != nil {
		return Order{}, err
	}
	if o.Status.Ordinal() >= StatusPaid.Ordinal() {
		s.log().Info("payment already applied", zap.String("order_id", id), zap.String("status", string(o.Status)))
		return o, nil
	}
	path, err := ForwardPath(o.Status, StatusPaid)
	if err != nil {
		return Order{}, err
	}
	if amount < o.TotalPrice {
		return Order{}, fmt.Errorf("%w: paid %d of %d", ErrUnderpaid, amount, o.TotalPrice)
	}
	actor := "payment:" + paymentRef
	for _, step := range path {
		if err := s.apply(ctx, &o, step, EventOrderStatusChanged, actor, "", traceID); err != nil {
			return Order{}, err
		}
	}
	s.log().Info("payment confirmed", zap.String("order_id", id), zap.String("payment_ref", paymentRef))
	return o, nil
}

// Delete is an administrative removal; unknown ids are a no-op.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.Store.Delete(ctx, id); err != nil {
		return err
	}
	if s.Cache != nil {
		if err := s.Cache.DeleteStatus(ctx, id); err != nil {
			s.log().Warn("status cache delete", zap.String("order_id", id), zap.Error(err))
		}
	}
	s.log().Info("order deleted", zap.String("order_id", id))
	return nil
}

func (s *Service) apply(ctx context.Context, o *Order, to Status, eventType, actor, reason, traceID string) error {
	from := o.Status
	now := s.now()
	if err := s.Store.UpdateStatus(ctx, o.ID, to, now); err != nil {
		return err
	}
	o.Status = to
	o.UpdatedAt = now

	s.cache(ctx, o.ID, to)
	s.publish(s.StatusEvents, eventType, o.ID, traceID, StatusChangedPayload{
		OrderID: o.ID, From: from, To: to, Actor: actor, Reason: reason,
	})
	return nil
}

func (s *Service) cache(ctx context.Context, id string, st Status) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.SetStatus(ctx, id, st); err != nil {
		s.log().Warn("status cache set", zap.String("order_id", id), zap.Error(err))
		// a stale entry would outlive the write; force the next read to the store
		if err := s.Cache.DeleteStatus(ctx, id); err != nil {
			s.log().Warn("status cache delete", zap.String("order_id", id), zap.Error(err))
		}
	}
}

func (s *Service) publish(p Publisher, eventType, orderID, traceID string, payload any) {
	if p == nil {
		return
	}
	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    s.now().UTC(),
		Producer:      s.ServiceName,
		TraceID:       traceID,
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(payload),
	}
	p.Publish(PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) log() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}
