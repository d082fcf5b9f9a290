package orders

const (
	TopicOrderCreated     = "order.created"
	TopicOrderPaid        = "order.paid"
	TopicOrderCanceled    = "order.canceled"
	TopicPaymentCompleted = "payment.completed"
)

// TopicFor maps an event type to the topic it is published on.
func TopicFor(eventType string) string {
	switch eventType {
	case EventOrderCreated:
		return TopicOrderCreated
	case EventOrderPaid:
		return TopicOrderPaid
	case EventOrderCanceled:
		return TopicOrderCanceled
	case EventPaymentCompleted:
		return TopicPaymentCompleted
	}
	return ""
}

// Partition key = user id, so every event of one buyer keeps its order.
func PartitionKey(userID string) []byte { return []byte(userID) }
