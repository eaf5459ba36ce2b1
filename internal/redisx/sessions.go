package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ariefcatur/go-flowershop/internal/cart"
	"github.com/ariefcatur/go-flowershop/internal/wishlist"
)

// Sessions keeps per-session cart and wishlist snapshots. Every save
// refreshes the TTL so an abandoned cart survives until the session expires.
type Sessions struct {
	RDB *redis.Client
	TTL time.Duration
}

type cartSnapshot struct {
	Open  bool        `json:"open"`
	Lines []cart.Line `json:"lines"`
}

func (s *Sessions) LoadCart(ctx context.Context, sessionID string) (*cart.Ledger, error) {
	var snap cartSnapshot
	ok, err := s.get(ctx, fmt.Sprintf(KeyCart, sessionID), &snap)
	if err != nil || !ok {
		return cart.New(), err
	}
	l := cart.Restore(snap.Lines)
	l.SetOpen(snap.Open)
	return l, nil
}

func (s *Sessions) SaveCart(ctx context.Context, sessionID string, l *cart.Ledger) error {
	key := fmt.Sprintf(KeyCart, sessionID)
	if l.Len() == 0 && !l.IsOpen() {
		return s.RDB.Del(ctx, key).Err()
	}
	return s.set(ctx, key, cartSnapshot{Open: l.IsOpen(), Lines: l.Lines()})
}

func (s *Sessions) DeleteCart(ctx context.Context, sessionID string) error {
	return s.RDB.Del(ctx, fmt.Sprintf(KeyCart, sessionID)).Err()
}

func (s *Sessions) LoadWishlist(ctx context.Context, sessionID string) (*wishlist.Set, error) {
	var entries []wishlist.Entry
	ok, err := s.get(ctx, fmt.Sprintf(KeyWishlist, sessionID), &entries)
	if err != nil || !ok {
		return wishlist.New(), err
	}
	return wishlist.Restore(entries), nil
}

func (s *Sessions) SaveWishlist(ctx context.Context, sessionID string, w *wishlist.Set) error {
	key := fmt.Sprintf(KeyWishlist, sessionID)
	if w.Count() == 0 {
		return s.RDB.Del(ctx, key).Err()
	}
	return s.set(ctx, key, w.Entries())
}

func (s *Sessions) get(ctx context.Context, key string, out any) (bool, error) {
	b, err := s.RDB.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(b, out); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (s *Sessions) set(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.RDB.Set(ctx, key, b, s.TTL).Err()
}
