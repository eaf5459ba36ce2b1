package finance

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

type Service struct {
	Store Store
	Log   *zap.Logger
	Now   func() time.Time
}

// Add stores tx; a zero Date means today.
func (s *Service) Add(ctx context.Context, tx Transaction) (Transaction, error) {
	if tx.Date.IsZero() {
		tx.Date = s.now().UTC().Truncate(24 * time.Hour)
	}
	tx, err := NewLedger().Add(tx)
	if err != nil {
		return Transaction{}, err
	}
	if err := s.Store.Insert(ctx, tx); err != nil {
		return Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	s.log().Info("transaction added",
		zap.String("id", tx.ID),
		zap.String("type", string(tx.Type)),
		zap.Int64("amount", tx.Amount),
	)
	return tx, nil
}

func (s *Service) Update(ctx context.Context, id string, p Patch) (Transaction, error) {
	cur, err := s.Store.Get(ctx, id)
	if err != nil {
		return Transaction{}, err
	}
	next, err := p.Apply(cur)
	if err != nil {
		return Transaction{}, err
	}
	if err := s.Store.Update(ctx, next); err != nil {
		return Transaction{}, err
	}
	s.log().Info("transaction updated", zap.String("id", id))
	return next, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.Store.Delete(ctx, id); err != nil {
		return err
	}
	s.log().Info("transaction deleted", zap.String("id", id))
	return nil
}

func (s *Service) List(ctx context.Context, f Filter) ([]Transaction, error) {
	l, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return l.Filter(f), nil
}

// Summary scans the whole collection on every call.
func (s *Service) Summary(ctx context.Context, f Filter) (Summary, error) {
	l, err := s.load(ctx)
	if err != nil {
		return Summary{}, err
	}
	return l.Summarize(f), nil
}

func (s *Service) load(ctx context.Context) (*Ledger, error) {
	txs, err := s.Store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return NewLedger(txs...), nil
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
