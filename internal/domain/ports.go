package domain

import "context"

// StockService описывает контракт склада. Реализация обязана сериализовать
// конкурентные списания по одному товару (эксклюзивная блокировка строки):
// проверка stock >= qty и декремент выполняются атомарно.
type StockService interface {
	// DecreaseStock списывает qty единиц товара или возвращает
	// ErrInsufficientStock / ErrProductNotFound. Сток не уходит в минус.
	DecreaseStock(ctx context.Context, productID string, qty int32) error
	// IncreaseStock возвращает qty единиц на склад (компенсация или restock).
	IncreaseStock(ctx context.Context, productID string, qty int32) error
}

// PaymentGateway описывает взаимодействие с платёжным провайдером (PG).
type PaymentGateway interface {
	// Authorize запрашивает списание. false без ошибки означает отказ провайдера.
	Authorize(ctx context.Context, orderNumber string, amountMinor int64, paymentKey, method string) (bool, error)
	// Cancel запрашивает отмену списания у провайдера. Best-effort.
	Cancel(ctx context.Context, orderNumber, reason string) error
}

// CartStore хранит корзину участника. Сага только очищает её после оплаты.
type CartStore interface {
	// Clear удаляет корзину участника. Отсутствующая корзина не является ошибкой.
	Clear(ctx context.Context, memberID string) error
}

// EventPublisher буферизует доменные события до фиксации unit-of-work.
// Сервисы публикуют через него, не зная о механике шины.
type EventPublisher interface {
	Publish(event Event)
}
