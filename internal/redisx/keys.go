package redisx

import "time"

const (
	// Session cart snapshot: cart:{session_id} -> JSON {"open":bool,"lines":[...]}
	KeyCart = "cart:%s"

	// Session wishlist snapshot: wishlist:{session_id} -> JSON [entries]
	KeyWishlist = "wishlist:%s"

	// Order status cache: order_status:{order_id} -> status
	KeyOrderStatus = "order_status:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)
