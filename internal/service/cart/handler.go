package cart

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/flowershop/internal/domain"
	"github.com/vladislavdragonenkov/flowershop/internal/eventbus"
)

// Handler очищает корзину участника после успешной оплаты. Прямой заказ
// («купить сейчас») корзину не трогает. Ошибка очистки только логируется:
// заказ уже оплачен, корзина не влияет на сагу.
type Handler struct {
	carts  domain.CartStore
	logger *log.Entry
}

// NewHandler создаёт обработчик и подписывает его на событие оплаты.
func NewHandler(carts domain.CartStore, bus *eventbus.Bus, logger *log.Entry) *Handler {
	if logger == nil {
		logger = log.New().WithField("component", "cart-handler")
	}
	h := &Handler{
		carts:  carts,
		logger: logger,
	}
	bus.Subscribe(domain.EventKindPaymentCompleted, h.HandlePaymentCompleted)
	return h
}

// HandlePaymentCompleted чистит корзину участника из события оплаты.
func (h *Handler) HandlePaymentCompleted(ctx context.Context, event domain.Event) {
	completed, ok := event.(domain.PaymentCompleted)
	if !ok {
		h.logger.WithField("kind", event.Kind()).Error("неожиданный тип события")
		return
	}
	if completed.IsDirectOrder {
		return
	}

	if err := h.carts.Clear(ctx, completed.MemberID); err != nil {
		h.logger.WithError(err).WithFields(log.Fields{
			"member_id":    completed.MemberID,
			"order_number": completed.OrderNumber,
		}).Error("не удалось очистить корзину")
		return
	}
	h.logger.WithField("member_id", completed.MemberID).Info("корзина очищена")
}
