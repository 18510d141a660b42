package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/flowershop/internal/domain"
	"github.com/vladislavdragonenkov/flowershop/internal/eventbus"
)

// Service провизионирует доставку после подтверждения оплаты и двигает её
// статусы. Создание идемпотентно по номеру заказа: повторная доставка
// события оплаты не плодит дублей.
type Service struct {
	deliveries domain.DeliveryRepository
	bus        *eventbus.Bus
	logger     *log.Entry
}

// NewService создаёт сервис доставки и подписывает его на событие оплаты.
func NewService(deliveries domain.DeliveryRepository, bus *eventbus.Bus, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "delivery-service")
	}
	s := &Service{
		deliveries: deliveries,
		bus:        bus,
		logger:     logger,
	}
	bus.Subscribe(domain.EventKindPaymentCompleted, s.HandlePaymentCompleted)
	return s
}

// HandlePaymentCompleted создаёт доставку в статусе PREPARING из снапшота
// события. Дубликат по номеру заказа — штатный no-op.
func (s *Service) HandlePaymentCompleted(_ context.Context, event domain.Event) {
	completed, ok := event.(domain.PaymentCompleted)
	if !ok {
		s.logger.WithField("kind", event.Kind()).Error("неожиданный тип события")
		return
	}

	now := time.Now().UTC()
	d := domain.Delivery{
		ID:            uuid.NewString(),
		OrderID:       completed.OrderID,
		OrderNumber:   completed.OrderNumber,
		ReceiverName:  completed.Shipping.ReceiverName,
		ReceiverPhone: completed.Shipping.ReceiverPhone,
		Address:       completed.Shipping.Address,
		Note:          completed.Shipping.Note,
		Status:        domain.DeliveryStatusPreparing,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	tx := s.bus.Begin()
	if err := s.deliveries.Create(d); err != nil {
		tx.Rollback()
		if errors.Is(err, domain.ErrDeliveryExists) {
			s.logger.WithField("order_number", completed.OrderNumber).Info("доставка уже создана, пропускаем")
			return
		}
		s.logger.WithError(err).WithField("order_number", completed.OrderNumber).Error("не удалось создать доставку")
		return
	}
	tx.Publish(domain.DeliveryCreated{
		DeliveryID:  d.ID,
		OrderID:     d.OrderID,
		OrderNumber: d.OrderNumber,
		Status:      d.Status,
	})
	tx.Commit()

	s.logger.WithFields(log.Fields{
		"order_number": completed.OrderNumber,
		"delivery_id":  d.ID,
	}).Info("доставка создана")
}

// UpdateStatusRequest — данные перехода статуса доставки.
type UpdateStatusRequest struct {
	Status         domain.DeliveryStatus
	TrackingNumber string
	CourierName    string
}

// UpdateStatus выполняет переход статуса доставки. Из терминального статуса
// переходов нет; передача курьеру требует трек-номер.
func (s *Service) UpdateStatus(deliveryID string, req UpdateStatusRequest) (domain.Delivery, error) {
	d, err := s.deliveries.Get(deliveryID)
	if err != nil {
		return domain.Delivery{}, err
	}

	if d.Terminal() {
		return domain.Delivery{}, fmt.Errorf("%w: delivery %s is %s", domain.ErrDeliveryTerminal, deliveryID, d.Status)
	}

	now := time.Now().UTC()
	switch req.Status {
	case domain.DeliveryStatusShipping:
		if req.TrackingNumber == "" {
			return domain.Delivery{}, fmt.Errorf("tracking number is required for shipping: delivery %s", deliveryID)
		}
		d.TrackingNumber = req.TrackingNumber
		d.CourierName = req.CourierName
		d.StartedAt = now
	case domain.DeliveryStatusCompleted:
		d.CompletedAt = now
	case domain.DeliveryStatusPreparing, domain.DeliveryStatusReadyForPickup, domain.DeliveryStatusFailed:
		// Переход без дополнительных полей.
	default:
		return domain.Delivery{}, fmt.Errorf("unknown delivery status %q", req.Status)
	}
	d.Status = req.Status
	d.UpdatedAt = now

	if err := s.deliveries.Save(d); err != nil {
		return domain.Delivery{}, err
	}

	s.logger.WithFields(log.Fields{
		"delivery_id":  deliveryID,
		"order_number": d.OrderNumber,
		"status":       d.Status,
	}).Info("статус доставки обновлён")
	return d, nil
}

// GetByOrderNumber возвращает доставку по бизнес-номеру заказа.
func (s *Service) GetByOrderNumber(orderNumber string) (domain.Delivery, error) {
	return s.deliveries.GetByOrderNumber(orderNumber)
}
