// Package payments applies bank-transfer confirmations to orders.
package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/ariefcatur/go-flowershop/internal/kafka"
	"github.com/ariefcatur/go-flowershop/internal/orders"
)

// Deduper claims event ids so redelivered events are applied once.
type Deduper interface {
	Claim(ctx context.Context, eventID string) (bool, error)
	Release(ctx context.Context, eventID string) error
}

type Confirmer interface {
	ConfirmPayment(ctx context.Context, orderID, paymentRef string, amount int64, traceID string) (orders.Order, error)
}

type Service struct {
	Orders Confirmer
	Dedup  Deduper
	Log    *zap.Logger
}

// HandlePaymentConfirmed is installed as the consumer handler. Events that
// can never apply (unknown order, cancelled order, underpayment) are logged
// and committed.
func (s *Service) HandlePaymentConfirmed(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		s.log().Error("drop undecodable event", zap.Int64("offset", m.Offset), zap.Error(err))
		return nil
	}
	if env.EventType != orders.EventPaymentConfirmed {
		return nil
	}

	fresh, err := s.Dedup.Claim(ctx, env.EventID)
	if err != nil {
		return fmt.Errorf("dedup claim: %w", err)
	}
	if !fresh {
		s.log().Debug("duplicate event", zap.String("event_id", env.EventID))
		return nil
	}

	p, err := kafkax.UnwrapPayload[orders.PaymentConfirmedPayload](env.Payload)
	if err != nil {
		s.log().Error("drop event", zap.String("event_id", env.EventID), zap.Error(err))
		return nil
	}

	_, err = s.Orders.ConfirmPayment(ctx, p.OrderID, p.PaymentRef, p.Amount, env.TraceID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, orders.ErrNotFound), errors.Is(err, orders.ErrInvalidTransition), errors.Is(err, orders.ErrUnderpaid):
		s.log().Warn("payment not applicable",
			zap.String("order_id", p.OrderID),
			zap.String("payment_ref", p.PaymentRef),
			zap.Int64("amount", p.Amount),
			zap.Error(err),
		)
		return nil
	default:
		if rerr := s.Dedup.Release(ctx, env.EventID); rerr != nil {
			s.log().Warn("dedup release", zap.String("event_id", env.EventID), zap.Error(rerr))
		}
		return err
	}
}

func (s *Service) log() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}
