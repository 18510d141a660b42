package order

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/flowershop/internal/domain"
	"github.com/vladislavdragonenkov/flowershop/internal/eventbus"
	"github.com/vladislavdragonenkov/flowershop/internal/storage/memory"
)

func quietLogger(test string) *log.Entry {
	logger := log.New()
	logger.SetLevel(log.PanicLevel)
	return logger.WithField("test", test)
}

// collector потокобезопасно собирает события шины.
type collector struct {
	mu     sync.Mutex
	events []domain.Event
}

func (c *collector) handler(_ context.Context, event domain.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func (c *collector) all() []domain.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Event, len(c.events))
	copy(out, c.events)
	return out
}

func createRequest() (CreateOrderRequest, []ItemRequest) {
	req := CreateOrderRequest{
		MemberID:       "member-1",
		DeliveryMethod: domain.DeliveryMethodShipping,
		Shipping: domain.ShippingInfo{
			ReceiverName:  "Анна",
			ReceiverPhone: "+7 900 000-00-00",
			Address:       "Москва, Цветочная 1",
		},
	}
	items := []ItemRequest{
		{
			ProductID:      "product-1",
			ProductName:    "Букет «Пионы»",
			Qty:            2,
			UnitPriceMinor: 10000,
			Options: []domain.ItemOption{
				{Name: "лента", AdjustmentMinor: 500},
			},
		},
		{
			ProductID:      "product-2",
			ProductName:    "Ваза",
			Qty:            1,
			UnitPriceMinor: 30000,
			DiscountMinor:  2000,
		},
	}
	return req, items
}

func TestCreateOrder_TotalsAndEvent(t *testing.T) {
	repo := memory.NewOrderRepository()
	bus := eventbus.New(quietLogger("order_create"))
	svc := NewServiceWithoutMetrics(repo, bus, quietLogger("order_create"))

	seen := &collector{}
	bus.Subscribe(domain.EventKindOrderPlaced, seen.handler)

	req, items := createRequest()
	created, err := svc.CreateOrder(req, items)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	bus.Wait()

	// (10000+500)*2 + 30000*1 - 2000
	if created.TotalMinor != 49000 {
		t.Fatalf("expected total 49000, got %d", created.TotalMinor)
	}
	if created.Status != domain.OrderStatusPending || created.PaymentStatus != domain.PaymentStatusPending {
		t.Fatalf("expected pending/pending, got %s/%s", created.Status, created.PaymentStatus)
	}
	if !strings.HasPrefix(created.OrderNumber, "ORD-") {
		t.Fatalf("unexpected order number: %s", created.OrderNumber)
	}

	events := seen.all()
	if len(events) != 1 {
		t.Fatalf("expected one OrderPlaced, got %d", len(events))
	}
	placed := events[0].(domain.OrderPlaced)
	if placed.TotalMinor != created.TotalMinor || len(placed.Items) != 2 {
		t.Fatalf("unexpected event: %+v", placed)
	}
}

func TestCreateOrder_EmptyItemsRejected(t *testing.T) {
	repo := memory.NewOrderRepository()
	bus := eventbus.New(quietLogger("order_empty"))
	svc := NewServiceWithoutMetrics(repo, bus, quietLogger("order_empty"))

	req, _ := createRequest()
	if _, err := svc.CreateOrder(req, nil); !errors.Is(err, domain.ErrItemsRequired) {
		t.Fatalf("expected ErrItemsRequired, got %v", err)
	}
}

func TestCreateOrder_InvalidItemRejected(t *testing.T) {
	repo := memory.NewOrderRepository()
	bus := eventbus.New(quietLogger("order_invalid"))
	svc := NewServiceWithoutMetrics(repo, bus, quietLogger("order_invalid"))

	seen := &collector{}
	bus.Subscribe(domain.EventKindOrderPlaced, seen.handler)

	req, items := createRequest()
	items[0].Qty = 0
	if _, err := svc.CreateOrder(req, items); err == nil {
		t.Fatal("expected validation error for zero quantity")
	}
	bus.Wait()

	if len(seen.all()) != 0 {
		t.Fatal("expected no event for rejected order")
	}
}

func TestCancelOrder_PublishesExactlyOnce(t *testing.T) {
	repo := memory.NewOrderRepository()
	bus := eventbus.New(quietLogger("order_cancel"))
	svc := NewServiceWithoutMetrics(repo, bus, quietLogger("order_cancel"))

	seen := &collector{}
	bus.Subscribe(domain.EventKindOrderCancelled, seen.handler)

	req, items := createRequest()
	created, err := svc.CreateOrder(req, items)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	if err := svc.CancelOrder(created.OrderNumber, "клиент передумал"); err != nil {
		t.Fatalf("cancel order: %v", err)
	}
	bus.Wait()

	updated, err := repo.Get(created.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if updated.Status != domain.OrderStatusCancelled {
		t.Fatalf("expected cancelled, got %s", updated.Status)
	}

	events := seen.all()
	if len(events) != 1 {
		t.Fatalf("expected exactly one OrderCancelled, got %d", len(events))
	}
	cancelled := events[0].(domain.OrderCancelled)
	if cancelled.Reason != "клиент передумал" {
		t.Fatalf("unexpected reason: %q", cancelled.Reason)
	}
	if len(cancelled.CancelledOrderItemIDs) != 2 {
		t.Fatalf("expected item ids in event, got %v", cancelled.CancelledOrderItemIDs)
	}
}

func TestCancelOrder_TerminalStatusesRejected(t *testing.T) {
	repo := memory.NewOrderRepository()
	bus := eventbus.New(quietLogger("order_cancel_terminal"))
	svc := NewServiceWithoutMetrics(repo, bus, quietLogger("order_cancel_terminal"))

	for _, status := range []domain.OrderStatus{
		domain.OrderStatusShipped,
		domain.OrderStatusDelivered,
		domain.OrderStatusCancelled,
	} {
		req, items := createRequest()
		created, err := svc.CreateOrder(req, items)
		if err != nil {
			t.Fatalf("create order: %v", err)
		}
		if err := svc.UpdateOrderStatus(created.ID, status); err != nil {
			t.Fatalf("set status %s: %v", status, err)
		}

		err = svc.CancelOrder(created.OrderNumber, "поздно")
		if !errors.Is(err, domain.ErrOrderNotCancellable) {
			t.Fatalf("status %s: expected ErrOrderNotCancellable, got %v", status, err)
		}
	}
}

func TestMarkAsFailed_PublishesCancellation(t *testing.T) {
	repo := memory.NewOrderRepository()
	bus := eventbus.New(quietLogger("order_mark_failed"))
	svc := NewServiceWithoutMetrics(repo, bus, quietLogger("order_mark_failed"))

	seen := &collector{}
	bus.Subscribe(domain.EventKindOrderCancelled, seen.handler)

	req, items := createRequest()
	created, err := svc.CreateOrder(req, items)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	if err := svc.MarkAsFailed(created.ID); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	bus.Wait()

	updated, err := repo.Get(created.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if updated.PaymentStatus != domain.PaymentStatusFailed {
		t.Fatalf("expected payment failed, got %s", updated.PaymentStatus)
	}
	if updated.Status != domain.OrderStatusCancelled {
		t.Fatalf("expected cancelled order, got %s", updated.Status)
	}

	events := seen.all()
	if len(events) != 1 {
		t.Fatalf("expected one cancellation event, got %d", len(events))
	}
	if reason := events[0].(domain.OrderCancelled).Reason; reason != "payment failed" {
		t.Fatalf("unexpected reason: %q", reason)
	}
}

func TestMarkAsFailed_ShippedOrderPublishesNothing(t *testing.T) {
	repo := memory.NewOrderRepository()
	bus := eventbus.New(quietLogger("order_mark_failed_shipped"))
	svc := NewServiceWithoutMetrics(repo, bus, quietLogger("order_mark_failed_shipped"))

	seen := &collector{}
	bus.Subscribe(domain.EventKindOrderCancelled, seen.handler)

	req, items := createRequest()
	created, err := svc.CreateOrder(req, items)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if err := svc.UpdateOrderStatus(created.ID, domain.OrderStatusShipped); err != nil {
		t.Fatalf("ship order: %v", err)
	}

	if err := svc.MarkAsFailed(created.ID); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	bus.Wait()

	updated, err := repo.Get(created.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if updated.PaymentStatus != domain.PaymentStatusFailed {
		t.Fatalf("expected payment failed, got %s", updated.PaymentStatus)
	}
	if updated.Status != domain.OrderStatusShipped {
		t.Fatalf("shipped order must keep its status, got %s", updated.Status)
	}
	if events := seen.all(); len(events) != 0 {
		t.Fatalf("expected no cancellation event, got %d", len(events))
	}
}

func TestGetOrdersByMember_Snapshot(t *testing.T) {
	repo := memory.NewOrderRepository()
	bus := eventbus.New(quietLogger("order_list"))
	svc := NewServiceWithoutMetrics(repo, bus, quietLogger("order_list"))

	req, items := createRequest()
	if _, err := svc.CreateOrder(req, items); err != nil {
		t.Fatalf("create first: %v", err)
	}
	if _, err := svc.CreateOrder(req, items[:1]); err != nil {
		t.Fatalf("create second: %v", err)
	}

	orders, err := svc.GetOrdersByMember("member-1", 10)
	if err != nil {
		t.Fatalf("list orders: %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(orders))
	}

	// Снапшот заказа не зависит от последующих изменений каталога:
	// имя и цена позиции зафиксированы при оформлении.
	if orders[0].Items[0].ProductName == "" || orders[0].Items[0].UnitPriceMinor == 0 {
		t.Fatalf("expected item snapshot, got %+v", orders[0].Items[0])
	}
}
