package domain

// EventKind идентифицирует тип доменного события для подписки и диспетчеризации.
type EventKind string

const (
	EventKindOrderPlaced              EventKind = "order.placed"
	EventKindPaymentCompleted         EventKind = "payment.completed"
	EventKindOrderCancelled           EventKind = "order.cancelled"
	EventKindInventoryDeductionFailed EventKind = "inventory.deduction_failed"
	EventKindDeliveryCreated          EventKind = "delivery.created"
	EventKindReviewCreated            EventKind = "review.created"
	EventKindReviewUpdated            EventKind = "review.updated"
	EventKindReviewDeleted            EventKind = "review.deleted"
)

// Event — закрытое объединение доменных событий. События несут неизменяемые
// снапшоты, а не живые ссылки на агрегаты: обработчик никогда не перечитывает
// агрегат, который к моменту доставки мог измениться.
type Event interface {
	Kind() EventKind
}

// OrderItemInfo — снапшот позиции заказа внутри события.
type OrderItemInfo struct {
	OrderItemID    string
	ProductID      string
	ProductName    string
	Qty            int32
	UnitPriceMinor int64
}

// OrderPlaced публикуется после фиксации нового заказа.
type OrderPlaced struct {
	OrderNumber   string
	OrderID       string
	MemberID      string
	Items         []OrderItemInfo
	Shipping      ShippingInfo
	TotalMinor    int64
	IsDirectOrder bool
}

func (OrderPlaced) Kind() EventKind { return EventKindOrderPlaced }

// PaymentCompleted публикуется после успешного списания средств.
type PaymentCompleted struct {
	OrderNumber   string
	OrderID       string
	MemberID      string
	Items         []OrderItemInfo
	Shipping      ShippingInfo
	IsDirectOrder bool
}

func (PaymentCompleted) Kind() EventKind { return EventKindPaymentCompleted }

// OrderCancelled публикуется при отмене заказа (пользователем или компенсацией).
type OrderCancelled struct {
	OrderNumber           string
	OrderID               string
	Reason                string
	MemberID              string
	Items                 []OrderItemInfo
	CancelledOrderItemIDs []string
}

func (OrderCancelled) Kind() EventKind { return EventKindOrderCancelled }

// InventoryDeductionFailed публикуется складом при невозможности списать сток.
// Запускает компенсационную отмену заказа.
type InventoryDeductionFailed struct {
	OrderNumber string
	Reason      string
}

func (InventoryDeductionFailed) Kind() EventKind { return EventKindInventoryDeductionFailed }

// ReviewCreated публикуется после создания отзыва.
type ReviewCreated struct {
	ReviewID  string
	ProductID string
	Rating    int32
}

func (ReviewCreated) Kind() EventKind { return EventKindReviewCreated }

// ReviewUpdated публикуется при изменении оценки отзыва.
type ReviewUpdated struct {
	ReviewID  string
	ProductID string
	OldRating int32
	NewRating int32
}

func (ReviewUpdated) Kind() EventKind { return EventKindReviewUpdated }

// ReviewDeleted публикуется после удаления отзыва.
type ReviewDeleted struct {
	ReviewID  string
	ProductID string
	Rating    int32
}

func (ReviewDeleted) Kind() EventKind { return EventKindReviewDeleted }

// DeliveryCreated публикуется после провизионирования доставки под оплату.
type DeliveryCreated struct {
	DeliveryID  string
	OrderID     string
	OrderNumber string
	Status      DeliveryStatus
}

func (DeliveryCreated) Kind() EventKind { return EventKindDeliveryCreated }
