package order

import (
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/flowershop/internal/domain"
	"github.com/vladislavdragonenkov/flowershop/internal/eventbus"
	"github.com/vladislavdragonenkov/flowershop/internal/metrics"
)

// CreateOrderRequest — входные данные команды оформления заказа.
type CreateOrderRequest struct {
	MemberID       string
	DeliveryMethod domain.DeliveryMethod
	Shipping       domain.ShippingInfo
	MessageCard    string
	IsDirectOrder  bool
}

// ItemRequest — позиция заказа со снапшотами каталога, собранными вызывающей
// стороной на момент оформления.
type ItemRequest struct {
	ProductID      string
	ProductName    string
	Qty            int32
	UnitPriceMinor int64
	DiscountMinor  int64
	Options        []domain.ItemOption
}

// Service владеет агрегатом заказа: только он меняет статусы и публикует
// события жизненного цикла. Обработчики других модулей никогда не лезут
// внутрь заказа напрямую.
type Service struct {
	orders  domain.OrderRepository
	bus     *eventbus.Bus
	logger  *log.Entry
	metrics *metrics.FulfillmentMetrics
}

// NewService создаёт сервис заказов.
func NewService(orders domain.OrderRepository, bus *eventbus.Bus, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "order-service")
	}
	return &Service{
		orders:  orders,
		bus:     bus,
		logger:  logger,
		metrics: metrics.NewFulfillmentMetrics(),
	}
}

// NewServiceWithoutMetrics создаёт сервис без метрик (для тестов).
func NewServiceWithoutMetrics(orders domain.OrderRepository, bus *eventbus.Bus, logger *log.Entry) *Service {
	svc := NewService(orders, bus, logger)
	svc.metrics = nil
	return svc
}

// CreateOrder собирает заказ из снапшотов, считает сумму, сохраняет и
// публикует OrderPlaced после фиксации.
func (s *Service) CreateOrder(req CreateOrderRequest, items []ItemRequest) (domain.Order, error) {
	if len(items) == 0 {
		return domain.Order{}, domain.ErrItemsRequired
	}

	now := time.Now().UTC()
	order := domain.Order{
		ID:             uuid.NewString(),
		OrderNumber:    domain.NewOrderNumber(now),
		MemberID:       req.MemberID,
		Status:         domain.OrderStatusPending,
		PaymentStatus:  domain.PaymentStatusPending,
		DeliveryMethod: req.DeliveryMethod,
		Shipping:       req.Shipping,
		MessageCard:    req.MessageCard,
		IsDirectOrder:  req.IsDirectOrder,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	for _, item := range items {
		order.AddItem(domain.OrderItem{
			ID:             uuid.NewString(),
			ProductID:      item.ProductID,
			ProductName:    item.ProductName,
			Qty:            item.Qty,
			UnitPriceMinor: item.UnitPriceMinor,
			DiscountMinor:  item.DiscountMinor,
			Options:        item.Options,
			CreatedAt:      now,
		})
	}

	if errs := order.ValidateInvariants(); len(errs) > 0 {
		return domain.Order{}, errs[0]
	}

	tx := s.bus.Begin()
	if err := s.orders.Create(order); err != nil {
		tx.Rollback()
		return domain.Order{}, err
	}

	tx.Publish(domain.OrderPlaced{
		OrderNumber:   order.OrderNumber,
		OrderID:       order.ID,
		MemberID:      order.MemberID,
		Items:         order.ItemSnapshots(),
		Shipping:      order.Shipping,
		TotalMinor:    order.TotalMinor,
		IsDirectOrder: order.IsDirectOrder,
	})
	tx.Commit()

	if s.metrics != nil {
		s.metrics.RecordOrderPlaced()
	}
	s.logger.WithFields(log.Fields{
		"order_number": order.OrderNumber,
		"member_id":    order.MemberID,
		"total_minor":  order.TotalMinor,
	}).Info("заказ создан")

	return order, nil
}

// MarkAsPaid переводит ось оплаты заказа в PAID.
func (s *Service) MarkAsPaid(orderID string) error {
	return s.mutate(orderID, func(order *domain.Order) error {
		order.MarkAsPaid(time.Now().UTC())
		return nil
	})
}

// MarkAsRefunded переводит ось оплаты заказа в REFUNDED.
func (s *Service) MarkAsRefunded(orderID string) error {
	return s.mutate(orderID, func(order *domain.Order) error {
		order.MarkAsRefunded()
		return nil
	})
}

// MarkAsFailed переводит ось оплаты в FAILED и отменяет заказ: провал
// оплаты запускает те же компенсации, что и явная отмена. Заказ в
// терминальной фазе доставки только помечается FAILED, событие отмены
// не публикуется.
func (s *Service) MarkAsFailed(orderID string) error {
	order, err := s.orders.Get(orderID)
	if err != nil {
		return err
	}

	tx := s.bus.Begin()
	order.MarkPaymentFailed()
	cancelled := order.Cancellable()
	if cancelled {
		order.Cancel(time.Now().UTC())
	}
	if err := s.saveWithConflictRetry(&order); err != nil {
		tx.Rollback()
		return err
	}
	if cancelled {
		tx.Publish(s.cancelledEvent(&order, "payment failed"))
	}
	tx.Commit()
	return nil
}

// CancelOrder отменяет заказ по бизнес-номеру. Отгруженный или доставленный
// заказ отменить нельзя.
func (s *Service) CancelOrder(orderNumber, reason string) error {
	order, err := s.orders.GetByNumber(orderNumber)
	if err != nil {
		return err
	}
	return s.cancel(order, reason)
}

// CancelOrderByID отменяет заказ по внутреннему идентификатору.
func (s *Service) CancelOrderByID(orderID, reason string) error {
	order, err := s.orders.Get(orderID)
	if err != nil {
		return err
	}
	return s.cancel(order, reason)
}

func (s *Service) cancel(order domain.Order, reason string) error {
	if !order.Cancellable() {
		s.logger.WithFields(log.Fields{
			"order_number": order.OrderNumber,
			"status":       order.Status,
		}).Warn("отмена отклонена: заказ в терминальном статусе")
		return domain.ErrOrderNotCancellable
	}

	tx := s.bus.Begin()
	order.Cancel(time.Now().UTC())
	if err := s.saveWithConflictRetry(&order); err != nil {
		tx.Rollback()
		return err
	}
	tx.Publish(s.cancelledEvent(&order, reason))
	tx.Commit()

	if s.metrics != nil {
		s.metrics.RecordOrderCancelled()
	}
	s.logger.WithFields(log.Fields{
		"order_number": order.OrderNumber,
		"reason":       reason,
	}).Info("заказ отменён")
	return nil
}

// UpdateOrderStatus — административный переход статуса (подготовка, отгрузка,
// доставка). Не участвует в саге.
func (s *Service) UpdateOrderStatus(orderID string, status domain.OrderStatus) error {
	return s.mutate(orderID, func(order *domain.Order) error {
		now := time.Now().UTC()
		switch status {
		case domain.OrderStatusShipped:
			order.ShippedAt = now
		case domain.OrderStatusDelivered:
			order.DeliveredAt = now
		}
		order.Status = status
		return nil
	})
}

// GetOrderDetail возвращает заказ с позициями.
func (s *Service) GetOrderDetail(orderID string) (domain.Order, error) {
	return s.orders.Get(orderID)
}

// GetOrderByNumber возвращает заказ по бизнес-номеру.
func (s *Service) GetOrderByNumber(orderNumber string) (domain.Order, error) {
	return s.orders.GetByNumber(orderNumber)
}

// GetOrdersByMember возвращает заказы участника.
func (s *Service) GetOrdersByMember(memberID string, limit int) ([]domain.Order, error) {
	return s.orders.ListByMember(memberID, limit)
}

func (s *Service) mutate(orderID string, apply func(*domain.Order) error) error {
	order, err := s.orders.Get(orderID)
	if err != nil {
		return err
	}
	if err := apply(&order); err != nil {
		return err
	}
	return s.saveWithConflictRetry(&order)
}

// saveWithConflictRetry сохраняет заказ, перечитывая свежую версию при
// конфликте optimistic locking.
func (s *Service) saveWithConflictRetry(order *domain.Order) error {
	const maxAttempts = 3

	for attempt := 0; attempt < maxAttempts; attempt++ {
		order.UpdatedAt = time.Now().UTC()
		err := s.orders.Save(*order)
		if err == nil {
			order.Version++
			return nil
		}
		if !domain.IsVersionConflict(err) || attempt == maxAttempts-1 {
			s.logger.WithError(err).WithField("order_id", order.ID).Error("не удалось сохранить заказ")
			return err
		}

		fresh, loadErr := s.orders.Get(order.ID)
		if loadErr != nil {
			return loadErr
		}
		// Переносим свежую версию, сохраняя уже применённые изменения статусов.
		fresh.Status = order.Status
		fresh.PaymentStatus = order.PaymentStatus
		fresh.PaidAt = order.PaidAt
		fresh.ShippedAt = order.ShippedAt
		fresh.DeliveredAt = order.DeliveredAt
		fresh.CancelledAt = order.CancelledAt
		*order = fresh
	}
	return domain.ErrOrderVersionConflict
}

func (s *Service) cancelledEvent(order *domain.Order, reason string) domain.OrderCancelled {
	return domain.OrderCancelled{
		OrderNumber:           order.OrderNumber,
		OrderID:               order.ID,
		Reason:                reason,
		MemberID:              order.MemberID,
		Items:                 order.ItemSnapshots(),
		CancelledOrderItemIDs: order.ItemIDs(),
	}
}
