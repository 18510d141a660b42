package payment

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/flowershop/internal/domain"
	"github.com/vladislavdragonenkov/flowershop/internal/eventbus"
	"github.com/vladislavdragonenkov/flowershop/internal/metrics"
)

// MethodBankTransfer — безналичный перевод: оплата подтверждается оператором
// вручную, автоматического перехода в PAID нет.
const MethodBankTransfer = "BANK_TRANSFER"

// Request — входные данные команды оплаты.
type Request struct {
	OrderNumber string
	OrderID     string
	AmountMinor int64
	PaymentKey  string
	Method      string
}

// OrderService — срез операций заказа, нужный координатору оплаты.
type OrderService interface {
	MarkAsPaid(orderID string) error
	MarkAsRefunded(orderID string) error
	MarkAsFailed(orderID string) error
	GetOrderDetail(orderID string) (domain.Order, error)
	GetOrderByNumber(orderNumber string) (domain.Order, error)
}

// Coordinator проводит оплату через порт платёжного шлюза и двигает ось
// оплаты заказа. Локальная компенсация (FAILED при любой ошибке) выполняется
// синхронно внутри команды, не через событийный тракт.
type Coordinator struct {
	orders  OrderService
	gateway domain.PaymentGateway
	bus     *eventbus.Bus
	logger  *log.Entry
	metrics *metrics.FulfillmentMetrics
}

// NewCoordinator создаёт координатор оплаты.
func NewCoordinator(orders OrderService, gateway domain.PaymentGateway, bus *eventbus.Bus, logger *log.Entry) *Coordinator {
	if logger == nil {
		logger = log.New().WithField("component", "payment-coordinator")
	}
	return &Coordinator{
		orders:  orders,
		gateway: gateway,
		bus:     bus,
		logger:  logger,
		metrics: metrics.NewFulfillmentMetrics(),
	}
}

// NewCoordinatorWithoutMetrics создаёт координатор без метрик (для тестов).
func NewCoordinatorWithoutMetrics(orders OrderService, gateway domain.PaymentGateway, bus *eventbus.Bus, logger *log.Entry) *Coordinator {
	c := NewCoordinator(orders, gateway, bus, logger)
	c.metrics = nil
	return c
}

// ProcessPayment авторизует списание и публикует PaymentCompleted со снапшотом
// позиций и данных доставки. Любая ошибка после начала последовательности
// помечает оплату FAILED до возврата ошибки вызывающему.
func (c *Coordinator) ProcessPayment(ctx context.Context, req Request) error {
	c.logger.WithFields(log.Fields{
		"order_number": req.OrderNumber,
		"amount_minor": req.AmountMinor,
		"method":       req.Method,
	}).Info("обрабатываем оплату")

	// Безналичный перевод ждёт ручного подтверждения оператором.
	if strings.EqualFold(req.Method, MethodBankTransfer) {
		c.logger.WithField("order_number", req.OrderNumber).Info("безналичный перевод, ожидаем подтверждения")
		return nil
	}

	approved, err := c.gateway.Authorize(ctx, req.OrderNumber, req.AmountMinor, req.PaymentKey, req.Method)
	if err != nil {
		c.failPayment(req.OrderID)
		return fmt.Errorf("authorize payment: %w", err)
	}
	if !approved {
		c.failPayment(req.OrderID)
		return fmt.Errorf("%w: order %s", domain.ErrPaymentRejected, req.OrderNumber)
	}

	if err := c.orders.MarkAsPaid(req.OrderID); err != nil {
		c.failPayment(req.OrderID)
		return fmt.Errorf("mark order paid: %w", err)
	}

	order, err := c.orders.GetOrderDetail(req.OrderID)
	if err != nil {
		c.failPayment(req.OrderID)
		return fmt.Errorf("load order for payment event: %w", err)
	}

	tx := c.bus.Begin()
	tx.Publish(domain.PaymentCompleted{
		OrderNumber:   order.OrderNumber,
		OrderID:       order.ID,
		MemberID:      order.MemberID,
		Items:         order.ItemSnapshots(),
		Shipping:      order.Shipping,
		IsDirectOrder: order.IsDirectOrder,
	})
	tx.Commit()

	if c.metrics != nil {
		c.metrics.RecordPaymentCompleted()
	}
	c.logger.WithField("order_number", order.OrderNumber).Info("оплата завершена")
	return nil
}

// CancelPayment помечает оплату заказа как возвращённую.
func (c *Coordinator) CancelPayment(orderID string) error {
	c.logger.WithField("order_id", orderID).Info("отменяем оплату")
	return c.orders.MarkAsRefunded(orderID)
}

// CancelPaymentByOrderNumber дополнительно дергает endpoint отмены у PG.
// Вызывающая сторона (компенсация) глотает ошибку: отмена у провайдера
// best-effort.
func (c *Coordinator) CancelPaymentByOrderNumber(ctx context.Context, orderNumber, reason string) error {
	if err := c.gateway.Cancel(ctx, orderNumber, reason); err != nil {
		return fmt.Errorf("gateway cancel: %w", err)
	}
	return nil
}

// failPayment — локальная компенсация: ошибка пометки только логируется,
// исходная ошибка оплаты важнее.
func (c *Coordinator) failPayment(orderID string) {
	if c.metrics != nil {
		c.metrics.RecordPaymentFailed()
	}
	if err := c.orders.MarkAsFailed(orderID); err != nil {
		c.logger.WithError(err).WithField("order_id", orderID).Error("не удалось пометить оплату как FAILED")
	}
}
