package retry

import (
	"context"
	"errors"
	"strings"

	"github.com/vladislavdragonenkov/flowershop/internal/domain"
)

// reasonPrefix — формат Payload записей домена ORDER.
const reasonPrefix = "reason: "

// OrderCanceller — срез операций заказа, нужный стратегии повтора.
type OrderCanceller interface {
	CancelOrder(orderNumber, reason string) error
	GetOrderByNumber(orderNumber string) (domain.Order, error)
}

// NewOrderStrategy возвращает стратегию повтора для домена ORDER: повторная
// отмена заказа с причиной из Payload. Уже отменённый заказ — успех:
// цель компенсации достигнута.
func NewOrderStrategy(orders OrderCanceller) Func {
	return func(_ context.Context, failureLog domain.FailureLog) error {
		reason := strings.TrimPrefix(failureLog.Payload, reasonPrefix)

		err := orders.CancelOrder(failureLog.ReferenceID, reason+" (Retry)")
		if err == nil {
			return nil
		}
		if errors.Is(err, domain.ErrOrderNotCancellable) {
			order, loadErr := orders.GetOrderByNumber(failureLog.ReferenceID)
			if loadErr == nil && order.Status == domain.OrderStatusCancelled {
				return nil
			}
		}
		return err
	}
}
