package review

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/flowershop/internal/domain"
	"github.com/vladislavdragonenkov/flowershop/internal/eventbus"
)

// StatsHandler ведёт проекцию статистики отзывов на товаре: количество,
// сумму и среднюю оценку. Проекция согласована в конечном счёте.
type StatsHandler struct {
	products domain.ProductRepository
	logger   *log.Entry
}

// NewStatsHandler создаёт обработчик и подписывает его на события отзывов.
func NewStatsHandler(products domain.ProductRepository, bus *eventbus.Bus, logger *log.Entry) *StatsHandler {
	if logger == nil {
		logger = log.New().WithField("component", "review-stats-handler")
	}
	h := &StatsHandler{
		products: products,
		logger:   logger,
	}
	bus.Subscribe(domain.EventKindReviewCreated, h.Handle)
	bus.Subscribe(domain.EventKindReviewUpdated, h.Handle)
	bus.Subscribe(domain.EventKindReviewDeleted, h.Handle)
	return h
}

// Handle применяет событие отзыва к агрегатам товара.
func (h *StatsHandler) Handle(_ context.Context, event domain.Event) {
	var productID string
	var apply func(p *domain.Product)

	switch e := event.(type) {
	case domain.ReviewCreated:
		productID = e.ProductID
		apply = func(p *domain.Product) { p.AddReviewRating(e.Rating) }
	case domain.ReviewUpdated:
		productID = e.ProductID
		apply = func(p *domain.Product) { p.UpdateReviewRating(e.OldRating, e.NewRating) }
	case domain.ReviewDeleted:
		productID = e.ProductID
		apply = func(p *domain.Product) { p.RemoveReviewRating(e.Rating) }
	default:
		h.logger.WithField("kind", event.Kind()).Error("неожиданный тип события")
		return
	}

	product, err := h.products.Get(productID)
	if err != nil {
		h.logger.WithError(err).WithField("product_id", productID).Error("не удалось загрузить товар для статистики")
		return
	}
	apply(&product)
	if err := h.products.Save(product); err != nil {
		h.logger.WithError(err).WithField("product_id", productID).Error("не удалось сохранить статистику отзывов")
	}
}
