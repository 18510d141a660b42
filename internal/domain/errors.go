package domain

import "errors"

var (
	// Ошибка отсутствующего идентификатора участника.
	ErrMemberRequired = errors.New("member_id is required")
	// Ошибка отсутствия хотя бы одной позиции в заказе.
	ErrItemsRequired = errors.New("order must contain at least one item")
	// Ошибка отрицательной суммы заказа.
	ErrAmountNegative = errors.New("total_minor must be non-negative")
	// Ошибка при некорректном количестве товара (<= 0).
	ErrItemQtyInvalid = errors.New("item qty must be greater than zero")
	// Ошибка, если цена позиции отрицательная.
	ErrItemPriceInvalid = errors.New("item price must be non-negative")
	// Ошибка несоответствия суммы заказа и сумм позиций.
	ErrAmountMismatch = errors.New("order total does not match items sum")
	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderVersionConflict сигнализирует о конфликте версий при сохранении.
	ErrOrderVersionConflict = errors.New("order version conflict")
	// ErrOrderNotCancellable — заказ уже отгружен или доставлен, отмена невозможна.
	ErrOrderNotCancellable = errors.New("shipped or delivered order cannot be cancelled")
	// ErrProductNotFound возвращается складом, если товар не существует.
	ErrProductNotFound = errors.New("product not found")
	// ErrInsufficientStock — на складе недостаточно товара для списания.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrPaymentRejected — платёж отклонён провайдером (бизнес-ошибка).
	ErrPaymentRejected = errors.New("payment rejected by gateway")
	// ErrDeliveryNotFound — запись о доставке отсутствует.
	ErrDeliveryNotFound = errors.New("delivery not found")
	// ErrDeliveryExists — доставка по этому заказу уже создана (дедупликация).
	ErrDeliveryExists = errors.New("delivery already exists for order")
	// ErrDeliveryTerminal — завершённую или проваленную доставку менять нельзя.
	ErrDeliveryTerminal = errors.New("delivery is in terminal state")
	// ErrReviewNotFound — отзыв не найден.
	ErrReviewNotFound = errors.New("review not found")
	// ErrRatingOutOfRange — оценка отзыва вне диапазона 1..5.
	ErrRatingOutOfRange = errors.New("rating must be between 1 and 5")
	// ErrFailureLogNotFound — запись журнала сбоев не найдена.
	ErrFailureLogNotFound = errors.New("failure log not found")
)

// IsVersionConflict проверяет, является ли ошибка конфликтом версий.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrOrderVersionConflict)
}

// IsInsufficientStock проверяет, является ли ошибка нехваткой стока.
func IsInsufficientStock(err error) bool {
	return errors.Is(err, ErrInsufficientStock)
}
