package kafka

import "time"

// EventType определяет тип события
type EventType string

const (
	// События жизненного цикла заказа
	EventTypeOrderCreated  EventType = "order.created"
	EventTypeOrderCanceled EventType = "order.canceled"
	EventTypeOrderDeleted  EventType = "order.deleted"
)

// Valid сообщает, относится ли тип к известным событиям жизненного цикла заказа.
func (t EventType) Valid() bool {
	switch t {
	case EventTypeOrderCreated, EventTypeOrderCanceled, EventTypeOrderDeleted:
		return true
	default:
		return false
	}
}

// Topics для Kafka
const (
	TopicOrderEvents     = "vendas.order.events"
	TopicDeadLetterQueue = "vendas.dlq" // Dead Letter Queue для failed messages
)

// Kafka headers для retry логики
const (
	HeaderRetryCount    = "x-retry-count"
	HeaderOriginalTopic = "x-original-topic"
	HeaderErrorMessage  = "x-error-message"
	HeaderFailedAt      = "x-failed-at"
)

// OrderEvent представляет событие заказа
type OrderEvent struct {
	EventType  EventType              `json:"event_type"`
	OrderID    string                 `json:"order_id"`
	CustomerID string                 `json:"customer_id"`
	Status     string                 `json:"status"`
	Timestamp  time.Time              `json:"timestamp"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// NewOrderEvent создает новое событие заказа
func NewOrderEvent(eventType EventType, orderID, customerID, status string, metadata map[string]interface{}) *OrderEvent {
	return &OrderEvent{
		EventType:  eventType,
		OrderID:    orderID,
		CustomerID: customerID,
		Status:     status,
		Timestamp:  time.Now(),
		Metadata:   metadata,
	}
}
