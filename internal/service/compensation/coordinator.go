package compensation

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/flowershop/internal/domain"
	"github.com/vladislavdragonenkov/flowershop/internal/eventbus"
	"github.com/vladislavdragonenkov/flowershop/internal/metrics"
)

// DomainOrder — домен журнала сбоев для компенсаций заказа. Планировщик
// повторов находит по нему стратегию.
const DomainOrder = "ORDER"

// OrderCanceller — срез операций заказа, нужный компенсации.
type OrderCanceller interface {
	CancelOrder(orderNumber, reason string) error
	GetOrderDetail(orderID string) (domain.Order, error)
}

// PaymentCanceller — срез операций оплаты, нужный компенсации.
type PaymentCanceller interface {
	CancelPayment(orderID string) error
	CancelPaymentByOrderNumber(ctx context.Context, orderNumber, reason string) error
}

// Coordinator запускает компенсирующие транзакции саги. Провал списания
// стока отменяет заказ; отмена заказа возвращает оплату. Компенсация,
// которую не удалось выполнить, пишется в журнал сбоев для повторов.
type Coordinator struct {
	orders   OrderCanceller
	payments PaymentCanceller
	failures domain.FailureLogRepository
	logger   *log.Entry
	metrics  *metrics.FulfillmentMetrics
}

// NewCoordinator создаёт координатор компенсаций и подписывает его на события.
func NewCoordinator(orders OrderCanceller, payments PaymentCanceller, failures domain.FailureLogRepository, bus *eventbus.Bus, logger *log.Entry) *Coordinator {
	if logger == nil {
		logger = log.New().WithField("component", "compensation-coordinator")
	}
	c := &Coordinator{
		orders:   orders,
		payments: payments,
		failures: failures,
		logger:   logger,
		metrics:  metrics.NewFulfillmentMetrics(),
	}
	bus.Subscribe(domain.EventKindInventoryDeductionFailed, c.HandleInventoryDeductionFailed)
	bus.Subscribe(domain.EventKindOrderCancelled, c.HandleOrderCancelled)
	return c
}

// NewCoordinatorWithoutMetrics создаёт координатор без метрик (для тестов).
func NewCoordinatorWithoutMetrics(orders OrderCanceller, payments PaymentCanceller, failures domain.FailureLogRepository, bus *eventbus.Bus, logger *log.Entry) *Coordinator {
	c := NewCoordinator(orders, payments, failures, bus, logger)
	c.metrics = nil
	return c
}

// HandleInventoryDeductionFailed отменяет заказ, сток которого списать не
// удалось. Если отмена провалилась, сбой пишется в журнал: планировщик
// повторов доведёт её до конца.
func (c *Coordinator) HandleInventoryDeductionFailed(_ context.Context, event domain.Event) {
	failed, ok := event.(domain.InventoryDeductionFailed)
	if !ok {
		c.logger.WithField("kind", event.Kind()).Error("неожиданный тип события")
		return
	}

	if c.metrics != nil {
		c.metrics.RecordCompensationStarted()
	}
	c.logger.WithFields(log.Fields{
		"order_number": failed.OrderNumber,
		"reason":       failed.Reason,
	}).Warn("списание стока провалилось, отменяем заказ")

	if err := c.orders.CancelOrder(failed.OrderNumber, failed.Reason); err != nil {
		c.logFailure(failed.OrderNumber, failed.Reason, err)
	}
}

// logFailure фиксирует невыполненную компенсацию в журнале сбоев.
// Провал самой записи только логируется: терять исходную ошибку нельзя.
func (c *Coordinator) logFailure(orderNumber, reason string, cause error) {
	c.logger.WithError(cause).WithField("order_number", orderNumber).Error("не удалось отменить заказ, пишем в журнал сбоев")

	_, err := c.failures.Create(domain.FailureLog{
		Domain:       DomainOrder,
		ReferenceID:  orderNumber,
		ErrorMessage: cause.Error(),
		Payload:      "reason: " + reason,
	})
	if err != nil {
		c.logger.WithError(err).WithField("order_number", orderNumber).Error("не удалось записать сбой в журнал")
		return
	}
	if c.metrics != nil {
		c.metrics.RecordCompensationLogged()
	}
}

// HandleOrderCancelled возвращает оплату отменённого заказа. Неоплаченный
// заказ возврата не требует; отмена у платёжного провайдера best-effort.
func (c *Coordinator) HandleOrderCancelled(ctx context.Context, event domain.Event) {
	cancelled, ok := event.(domain.OrderCancelled)
	if !ok {
		c.logger.WithField("kind", event.Kind()).Error("неожиданный тип события")
		return
	}

	order, err := c.orders.GetOrderDetail(cancelled.OrderID)
	if err != nil {
		c.logger.WithError(err).WithField("order_number", cancelled.OrderNumber).Error("не удалось загрузить отменённый заказ")
		return
	}
	if order.PaymentStatus != domain.PaymentStatusPaid {
		c.logger.WithFields(log.Fields{
			"order_number":   cancelled.OrderNumber,
			"payment_status": order.PaymentStatus,
		}).Info("возврат не требуется")
		return
	}

	if err := c.payments.CancelPaymentByOrderNumber(ctx, cancelled.OrderNumber, cancelled.Reason); err != nil {
		// Провайдер недоступен: локальный возврат всё равно фиксируем.
		c.logger.WithError(err).WithField("order_number", cancelled.OrderNumber).Warn("отмена у платёжного провайдера не удалась")
	}
	if err := c.payments.CancelPayment(cancelled.OrderID); err != nil {
		c.logger.WithError(err).WithField("order_number", cancelled.OrderNumber).Error("не удалось пометить возврат оплаты")
		return
	}
	c.logger.WithField("order_number", cancelled.OrderNumber).Info("оплата возвращена")
}
