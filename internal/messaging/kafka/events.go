package kafka

import "time"

// Топики интеграционных событий магазина. Внутренняя шина остаётся
// source of truth для саги; Kafka — витрина для внешних потребителей
// (аналитика, нотификации, CRM).
const (
	TopicOrderEvents    = "flowershop.order.events"
	TopicPaymentEvents  = "flowershop.payment.events"
	TopicDeliveryEvents = "flowershop.delivery.events"
)

// Envelope — общий конверт интеграционного события.
type Envelope struct {
	EventKind   string                 `json:"event_kind"`
	OrderNumber string                 `json:"order_number"`
	OccurredAt  time.Time              `json:"occurred_at"`
	Payload     map[string]interface{} `json:"payload,omitempty"`
}

// NewEnvelope собирает конверт события с текущим временем.
func NewEnvelope(eventKind, orderNumber string, payload map[string]interface{}) Envelope {
	return Envelope{
		EventKind:   eventKind,
		OrderNumber: orderNumber,
		OccurredAt:  time.Now().UTC(),
		Payload:     payload,
	}
}
