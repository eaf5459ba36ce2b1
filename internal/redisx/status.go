package redisx

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/ariefcatur/go-flowershop/internal/orders"
)

// StatusCache implements orders.StatusCache.
type StatusCache struct{ RDB *redis.Client }

func (c *StatusCache) SetStatus(ctx context.Context, orderID string, s orders.Status) error {
	return c.RDB.Set(ctx, fmt.Sprintf(KeyOrderStatus, orderID), string(s), TTLStatusCache).Err()
}

func (c *StatusCache) GetStatus(ctx context.Context, orderID string) (orders.Status, bool, error) {
	v, err := c.RDB.Get(ctx, fmt.Sprintf(KeyOrderStatus, orderID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	st, err := orders.ParseStatus(v)
	if err != nil {
		return "", false, err
	}
	return st, true, nil
}

func (c *StatusCache) DeleteStatus(ctx context.Context, orderID string) error {
	return c.RDB.Del(ctx, fmt.Sprintf(KeyOrderStatus, orderID)).Err()
}
