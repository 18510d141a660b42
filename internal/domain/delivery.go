package domain

import "time"

// DeliveryStatus отражает состояние доставки заказа.
type DeliveryStatus string

const (
	// DeliveryStatusPending — запись создана, подготовка не началась.
	DeliveryStatusPending DeliveryStatus = "pending"
	// DeliveryStatusPreparing — букет собирается после подтверждения оплаты.
	DeliveryStatusPreparing DeliveryStatus = "preparing"
	// DeliveryStatusShipping — заказ передан курьеру.
	DeliveryStatusShipping DeliveryStatus = "shipping"
	// DeliveryStatusReadyForPickup — заказ ждёт самовывоза.
	DeliveryStatusReadyForPickup DeliveryStatus = "ready_for_pickup"
	// DeliveryStatusCompleted — доставка завершена (терминальный).
	DeliveryStatusCompleted DeliveryStatus = "completed"
	// DeliveryStatusFailed — доставка не удалась (терминальный).
	DeliveryStatusFailed DeliveryStatus = "failed"
)

// Delivery описывает доставку, созданную из снапшота события оплаты.
// Данные получателя копируются из события и не перечитываются из заказа.
type Delivery struct {
	ID             string
	OrderID        string
	OrderNumber    string
	ReceiverName   string
	ReceiverPhone  string
	Address        string
	Note           string
	Status         DeliveryStatus
	TrackingNumber string
	CourierName    string
	StartedAt      time.Time
	CompletedAt    time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Terminal сообщает, находится ли доставка в конечном статусе.
func (d *Delivery) Terminal() bool {
	return d.Status == DeliveryStatusCompleted || d.Status == DeliveryStatusFailed
}
