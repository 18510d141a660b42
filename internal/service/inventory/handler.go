package inventory

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/flowershop/internal/domain"
	"github.com/vladislavdragonenkov/flowershop/internal/eventbus"
)

// Handler резервирует сток под оформленный заказ. Подписан на OrderPlaced,
// который доставляется только после фиксации транзакции заказа.
type Handler struct {
	stock  domain.StockService
	bus    *eventbus.Bus
	logger *log.Entry
}

// NewHandler создаёт обработчик и подписывает его на шину.
func NewHandler(stock domain.StockService, bus *eventbus.Bus, logger *log.Entry) *Handler {
	if logger == nil {
		logger = log.New().WithField("component", "inventory-handler")
	}
	h := &Handler{stock: stock, bus: bus, logger: logger}
	bus.Subscribe(domain.EventKindOrderPlaced, h.HandleOrderPlaced)
	return h
}

// HandleOrderPlaced списывает сток по каждой позиции. При первом отказе
// уже списанные позиции возвращаются на склад, затем публикуется
// InventoryDeductionFailed: к началу компенсации сток консистентен.
func (h *Handler) HandleOrderPlaced(ctx context.Context, event domain.Event) {
	placed, ok := event.(domain.OrderPlaced)
	if !ok {
		return
	}

	h.logger.WithFields(log.Fields{
		"order_number": placed.OrderNumber,
		"items":        len(placed.Items),
	}).Info("резервируем сток под заказ")

	decremented := make([]domain.OrderItemInfo, 0, len(placed.Items))
	for _, item := range placed.Items {
		if err := h.stock.DecreaseStock(ctx, item.ProductID, item.Qty); err != nil {
			h.logger.WithError(err).WithFields(log.Fields{
				"order_number": placed.OrderNumber,
				"product_id":   item.ProductID,
				"qty":          item.Qty,
			}).Warn("списание стока не удалось, запускаем компенсацию")

			h.rollback(ctx, placed.OrderNumber, decremented)

			tx := h.bus.Begin()
			tx.Publish(domain.InventoryDeductionFailed{
				OrderNumber: placed.OrderNumber,
				Reason:      err.Error(),
			})
			tx.Commit()
			return
		}
		decremented = append(decremented, item)
	}

	h.logger.WithField("order_number", placed.OrderNumber).Info("сток зарезервирован")
}

// rollback возвращает частично списанные позиции. Ошибка отката только
// логируется: повторный increment безопаснее потерянного стока.
func (h *Handler) rollback(ctx context.Context, orderNumber string, decremented []domain.OrderItemInfo) {
	for _, item := range decremented {
		if err := h.stock.IncreaseStock(ctx, item.ProductID, item.Qty); err != nil {
			h.logger.WithError(err).WithFields(log.Fields{
				"order_number": orderNumber,
				"product_id":   item.ProductID,
				"qty":          item.Qty,
			}).Error("не удалось вернуть сток после частичного списания")
		}
	}
}
