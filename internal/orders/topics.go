package orders

const (
	TopicOrderPlaced      = "shop.order.placed"
	TopicOrderStatus      = "shop.order.status"
	TopicPaymentConfirmed = "shop.payment.confirmed"
)

// Partition key = order_id so every event of one order keeps its order.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
