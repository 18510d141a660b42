package kafka

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/flowershop/internal/domain"
	"github.com/vladislavdragonenkov/flowershop/internal/eventbus"
)

// EventPublisher — то, что умеет Producer. Выделено для подмены в тестах.
type EventPublisher interface {
	PublishEvent(topic string, key string, event interface{}) error
}

// Bridge транслирует внутренние события саги во внешние топики Kafka.
// Публикация best-effort: недоступный брокер не откатывает сагу,
// ошибка только логируется.
type Bridge struct {
	producer EventPublisher
	logger   *log.Entry
}

// NewBridge создаёт мост и подписывает его на события жизненного цикла заказа.
func NewBridge(producer EventPublisher, bus *eventbus.Bus, logger *log.Entry) *Bridge {
	if logger == nil {
		logger = log.WithField("component", "kafka-bridge")
	}
	b := &Bridge{
		producer: producer,
		logger:   logger,
	}
	bus.Subscribe(domain.EventKindOrderPlaced, b.Handle)
	bus.Subscribe(domain.EventKindOrderCancelled, b.Handle)
	bus.Subscribe(domain.EventKindPaymentCompleted, b.Handle)
	bus.Subscribe(domain.EventKindInventoryDeductionFailed, b.Handle)
	bus.Subscribe(domain.EventKindDeliveryCreated, b.Handle)
	return b
}

// Handle переводит доменное событие в конверт и отправляет в свой топик.
func (b *Bridge) Handle(_ context.Context, event domain.Event) {
	var (
		topic       string
		orderNumber string
		payload     map[string]interface{}
	)

	switch e := event.(type) {
	case domain.OrderPlaced:
		topic = TopicOrderEvents
		orderNumber = e.OrderNumber
		payload = map[string]interface{}{
			"member_id":   e.MemberID,
			"total_minor": e.TotalMinor,
			"items":       len(e.Items),
		}
	case domain.OrderCancelled:
		topic = TopicOrderEvents
		orderNumber = e.OrderNumber
		payload = map[string]interface{}{
			"reason": e.Reason,
		}
	case domain.PaymentCompleted:
		topic = TopicPaymentEvents
		orderNumber = e.OrderNumber
		payload = map[string]interface{}{
			"member_id": e.MemberID,
		}
	case domain.InventoryDeductionFailed:
		topic = TopicOrderEvents
		orderNumber = e.OrderNumber
		payload = map[string]interface{}{
			"reason": e.Reason,
		}
	case domain.DeliveryCreated:
		topic = TopicDeliveryEvents
		orderNumber = e.OrderNumber
		payload = map[string]interface{}{
			"delivery_id": e.DeliveryID,
			"status":      string(e.Status),
		}
	default:
		return
	}

	envelope := NewEnvelope(string(event.Kind()), orderNumber, payload)
	if err := b.producer.PublishEvent(topic, orderNumber, envelope); err != nil {
		b.logger.WithError(err).WithFields(log.Fields{
			"topic":        topic,
			"order_number": orderNumber,
		}).Warn("не удалось опубликовать интеграционное событие")
	}
}
