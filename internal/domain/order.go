package domain

import (
	"fmt"
	"math/rand"
	"time"
)

// OrderStatus описывает жизненный цикл заказа в цветочном магазине.
type OrderStatus string

const (
	// OrderStatusPending — заказ создан, оплата ещё не подтверждена.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusPaid — оплата подтверждена платёжным провайдером.
	OrderStatusPaid OrderStatus = "paid"
	// OrderStatusProcessing — букет собирается, заказ готовится к отправке.
	OrderStatusProcessing OrderStatus = "processing"
	// OrderStatusShipped — заказ передан в доставку.
	OrderStatusShipped OrderStatus = "shipped"
	// OrderStatusDelivered — заказ доставлен получателю.
	OrderStatusDelivered OrderStatus = "delivered"
	// OrderStatusCancelled — заказ отменён (пользователем или компенсацией саги).
	OrderStatusCancelled OrderStatus = "cancelled"
)

// PaymentStatus — независимая ось состояния оплаты заказа.
type PaymentStatus string

const (
	// PaymentStatusPending — оплата инициирована, но не подтверждена.
	PaymentStatusPending PaymentStatus = "pending"
	// PaymentStatusPaid — деньги списаны в пользу магазина.
	PaymentStatusPaid PaymentStatus = "paid"
	// PaymentStatusRefunded — деньги возвращены клиенту.
	PaymentStatusRefunded PaymentStatus = "refunded"
	// PaymentStatusFailed — провайдер отклонил платёж или произошла ошибка.
	PaymentStatusFailed PaymentStatus = "failed"
)

// DeliveryMethod определяет способ получения заказа.
type DeliveryMethod string

const (
	DeliveryMethodShipping DeliveryMethod = "shipping"
	DeliveryMethodDirect   DeliveryMethod = "direct"
	DeliveryMethodPickup   DeliveryMethod = "pickup"
)

// ItemOption — снапшот опции позиции (лента, открытка, ваза) на момент покупки.
// Дальнейшие изменения каталога не влияют на исторические заказы.
type ItemOption struct {
	ID              string
	ProductOptionID string
	Name            string
	// AdjustmentMinor — надбавка к цене за единицу в минимальных денежных единицах.
	AdjustmentMinor int64
}

// OrderItem представляет одну позицию заказа со снапшотом цены и имени товара.
type OrderItem struct {
	ID          string
	ProductID   string
	ProductName string
	Qty         int32
	// UnitPriceMinor — цена за единицу на момент заказа.
	UnitPriceMinor int64
	// DiscountMinor — скидка на позицию целиком.
	DiscountMinor int64
	Options       []ItemOption
	CreatedAt     time.Time
}

// TotalMinor вычисляет стоимость позиции: (цена + опции) * количество - скидка.
func (i *OrderItem) TotalMinor() int64 {
	var options int64
	for _, opt := range i.Options {
		options += opt.AdjustmentMinor
	}
	return (i.UnitPriceMinor+options)*int64(i.Qty) - i.DiscountMinor
}

// ShippingInfo — снапшот данных доставки, скопированный из профиля клиента
// при оформлении. Никогда не перечитывается из агрегата участника.
type ShippingInfo struct {
	ReceiverName  string
	ReceiverPhone string
	Address       string
	Note          string
}

// Order агрегирует заказ, его позиции и обе оси состояния.
type Order struct {
	ID          string
	OrderNumber string
	MemberID    string
	Items       []OrderItem
	// TotalMinor — производное поле, пересчитывается при каждой мутации позиций.
	TotalMinor     int64
	Status         OrderStatus
	PaymentStatus  PaymentStatus
	DeliveryMethod DeliveryMethod
	Shipping       ShippingInfo
	MessageCard    string
	IsDirectOrder  bool
	Version        int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
	PaidAt         time.Time
	ShippedAt      time.Time
	DeliveredAt    time.Time
	CancelledAt    time.Time
}

// NewOrderNumber генерирует бизнес-номер заказа. Номер неизменяем после создания.
func NewOrderNumber(now time.Time) string {
	return fmt.Sprintf("ORD-%d-%04d", now.UnixMilli(), rand.Intn(10000))
}

// AddItem добавляет позицию и пересчитывает итоговую сумму.
func (o *Order) AddItem(item OrderItem) {
	o.Items = append(o.Items, item)
	o.CalculateTotal()
}

// CalculateTotal пересчитывает сумму заказа из позиций. Сумма никогда
// не принимается от клиента на веру.
func (o *Order) CalculateTotal() {
	var total int64
	for i := range o.Items {
		total += o.Items[i].TotalMinor()
	}
	o.TotalMinor = total
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.MemberID == "" {
		errs = append(errs, ErrMemberRequired)
	}
	if len(o.Items) == 0 {
		errs = append(errs, ErrItemsRequired)
	}
	if o.TotalMinor < 0 {
		errs = append(errs, ErrAmountNegative)
	}

	// Сверяем сумму заказа с суммой позиций.
	var calc int64
	for i := range o.Items {
		item := &o.Items[i]
		if item.Qty <= 0 {
			errs = append(errs, ErrItemQtyInvalid)
		}
		if item.UnitPriceMinor < 0 {
			errs = append(errs, ErrItemPriceInvalid)
		}
		calc += item.TotalMinor()
	}
	if calc != o.TotalMinor {
		errs = append(errs, ErrAmountMismatch)
	}

	return errs
}

// Cancellable сообщает, можно ли отменить заказ из текущего статуса.
// Отгруженные и доставленные заказы терминальны для отмены.
func (o *Order) Cancellable() bool {
	switch o.Status {
	case OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return false
	default:
		return true
	}
}

// MarkAsPaid переводит ось оплаты в PAID и фиксирует время.
func (o *Order) MarkAsPaid(now time.Time) {
	o.PaymentStatus = PaymentStatusPaid
	o.PaidAt = now
}

// MarkPaymentFailed переводит ось оплаты в FAILED.
func (o *Order) MarkPaymentFailed() {
	o.PaymentStatus = PaymentStatusFailed
}

// MarkAsRefunded переводит ось оплаты в REFUNDED.
func (o *Order) MarkAsRefunded() {
	o.PaymentStatus = PaymentStatusRefunded
}

// Cancel переводит заказ в CANCELLED. Вызывающая сторона обязана
// предварительно проверить Cancellable.
func (o *Order) Cancel(now time.Time) {
	o.Status = OrderStatusCancelled
	o.CancelledAt = now
}

// ItemIDs возвращает идентификаторы позиций (для события отмены).
func (o *Order) ItemIDs() []string {
	ids := make([]string, 0, len(o.Items))
	for i := range o.Items {
		ids = append(ids, o.Items[i].ID)
	}
	return ids
}

// ItemSnapshots возвращает копии позиций для неизменяемых событий.
func (o *Order) ItemSnapshots() []OrderItemInfo {
	infos := make([]OrderItemInfo, 0, len(o.Items))
	for i := range o.Items {
		item := &o.Items[i]
		infos = append(infos, OrderItemInfo{
			OrderItemID:    item.ID,
			ProductID:      item.ProductID,
			ProductName:    item.ProductName,
			Qty:            item.Qty,
			UnitPriceMinor: item.UnitPriceMinor,
		})
	}
	return infos
}
