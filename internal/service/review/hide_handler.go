package review

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/flowershop/internal/domain"
	"github.com/vladislavdragonenkov/flowershop/internal/eventbus"
)

// HideHandler скрывает отзывы на позиции отменённого заказа. Работает
// независимо от остальных реакций на отмену: его ошибка их не блокирует.
type HideHandler struct {
	reviews domain.ReviewRepository
	bus     *eventbus.Bus
	logger  *log.Entry
}

// NewHideHandler создаёт обработчик и подписывает его на отмену заказа.
func NewHideHandler(reviews domain.ReviewRepository, bus *eventbus.Bus, logger *log.Entry) *HideHandler {
	if logger == nil {
		logger = log.New().WithField("component", "review-hide-handler")
	}
	h := &HideHandler{
		reviews: reviews,
		bus:     bus,
		logger:  logger,
	}
	bus.Subscribe(domain.EventKindOrderCancelled, h.HandleOrderCancelled)
	return h
}

// HandleOrderCancelled скрывает отзывы по идентификаторам позиций из события
// и публикует ReviewDeleted для каждого, чтобы статистика товара пересчиталась.
func (h *HideHandler) HandleOrderCancelled(_ context.Context, event domain.Event) {
	cancelled, ok := event.(domain.OrderCancelled)
	if !ok {
		h.logger.WithField("kind", event.Kind()).Error("неожиданный тип события")
		return
	}
	if len(cancelled.CancelledOrderItemIDs) == 0 {
		return
	}

	reviews, err := h.reviews.ListByOrderItems(cancelled.CancelledOrderItemIDs)
	if err != nil {
		h.logger.WithError(err).WithField("order_number", cancelled.OrderNumber).Error("не удалось загрузить отзывы отменённого заказа")
		return
	}

	tx := h.bus.Begin()
	hidden := 0
	for _, r := range reviews {
		if r.Hidden {
			continue
		}
		r.Hide()
		r.UpdatedAt = time.Now().UTC()
		if err := h.reviews.Save(r); err != nil {
			h.logger.WithError(err).WithField("review_id", r.ID).Error("не удалось скрыть отзыв")
			continue
		}
		tx.Publish(domain.ReviewDeleted{
			ReviewID:  r.ID,
			ProductID: r.ProductID,
			Rating:    r.Rating,
		})
		hidden++
	}
	tx.Commit()

	if hidden > 0 {
		h.logger.WithFields(log.Fields{
			"order_number": cancelled.OrderNumber,
			"hidden":       hidden,
		}).Info("отзывы отменённого заказа скрыты")
	}
}
