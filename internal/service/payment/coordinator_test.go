package payment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/flowershop/internal/domain"
	"github.com/vladislavdragonenkov/flowershop/internal/eventbus"
	"github.com/vladislavdragonenkov/flowershop/internal/service/order"
	"github.com/vladislavdragonenkov/flowershop/internal/storage/memory"
)

func quietLogger(test string) *log.Entry {
	logger := log.New()
	logger.SetLevel(log.PanicLevel)
	return logger.WithField("test", test)
}

// capture собирает события шины в тесте.
type capture struct {
	mu     sync.Mutex
	events []domain.Event
}

func (c *capture) handler(_ context.Context, event domain.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func (c *capture) kinds() []domain.EventKind {
	c.mu.Lock()
	defer c.mu.Unlock()
	kinds := make([]domain.EventKind, 0, len(c.events))
	for _, e := range c.events {
		kinds = append(kinds, e.Kind())
	}
	return kinds
}

func seedOrder(t *testing.T, repo domain.OrderRepository) domain.Order {
	t.Helper()

	now := time.Now().UTC()
	o := domain.Order{
		ID:            "order-1",
		OrderNumber:   "ORD-100-0001",
		MemberID:      "member-1",
		Status:        domain.OrderStatusPending,
		PaymentStatus: domain.PaymentStatusPending,
		TotalMinor:    25000,
		Items: []domain.OrderItem{{
			ID:             "item-1",
			ProductID:      "product-1",
			ProductName:    "Букет «Ромашки»",
			Qty:            1,
			UnitPriceMinor: 25000,
			CreatedAt:      now,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repo.Create(o); err != nil {
		t.Fatalf("create order: %v", err)
	}
	return o
}

func TestProcessPayment_Success(t *testing.T) {
	repo := memory.NewOrderRepository()
	bus := eventbus.New(quietLogger("payment_success"))
	orders := order.NewServiceWithoutMetrics(repo, bus, quietLogger("payment_success"))
	gateway := &MockGateway{}

	seen := &capture{}
	bus.Subscribe(domain.EventKindPaymentCompleted, seen.handler)

	seeded := seedOrder(t, repo)

	c := NewCoordinatorWithoutMetrics(orders, gateway, bus, quietLogger("payment_success"))
	err := c.ProcessPayment(context.Background(), Request{
		OrderNumber: seeded.OrderNumber,
		OrderID:     seeded.ID,
		AmountMinor: seeded.TotalMinor,
		PaymentKey:  "key-ok",
		Method:      "CARD",
	})
	if err != nil {
		t.Fatalf("process payment: %v", err)
	}
	bus.Wait()

	updated, err := repo.Get(seeded.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if updated.PaymentStatus != domain.PaymentStatusPaid {
		t.Fatalf("expected payment status paid, got %s", updated.PaymentStatus)
	}
	if gateway.AuthorizeCalls != 1 {
		t.Fatalf("expected authorize called once, got %d", gateway.AuthorizeCalls)
	}

	kinds := seen.kinds()
	if len(kinds) != 1 || kinds[0] != domain.EventKindPaymentCompleted {
		t.Fatalf("expected exactly one PaymentCompleted event, got %v", kinds)
	}

	got := seen.events[0].(domain.PaymentCompleted)
	if got.OrderNumber != seeded.OrderNumber {
		t.Fatalf("expected order number %s in event, got %s", seeded.OrderNumber, got.OrderNumber)
	}
	if len(got.Items) != 1 || got.Items[0].ProductName != "Букет «Ромашки»" {
		t.Fatalf("expected item snapshot in event, got %+v", got.Items)
	}
}

func TestProcessPayment_Declined(t *testing.T) {
	repo := memory.NewOrderRepository()
	bus := eventbus.New(quietLogger("payment_declined"))
	orders := order.NewServiceWithoutMetrics(repo, bus, quietLogger("payment_declined"))
	gateway := &MockGateway{}

	seen := &capture{}
	bus.Subscribe(domain.EventKindPaymentCompleted, seen.handler)

	seeded := seedOrder(t, repo)

	c := NewCoordinatorWithoutMetrics(orders, gateway, bus, quietLogger("payment_declined"))
	err := c.ProcessPayment(context.Background(), Request{
		OrderNumber: seeded.OrderNumber,
		OrderID:     seeded.ID,
		AmountMinor: seeded.TotalMinor,
		PaymentKey:  "key-FAIL",
		Method:      "CARD",
	})
	if !errors.Is(err, domain.ErrPaymentRejected) {
		t.Fatalf("expected ErrPaymentRejected, got %v", err)
	}
	bus.Wait()

	updated, err := repo.Get(seeded.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if updated.PaymentStatus != domain.PaymentStatusFailed {
		t.Fatalf("expected payment status failed, got %s", updated.PaymentStatus)
	}
	if len(seen.kinds()) != 0 {
		t.Fatalf("expected no PaymentCompleted event, got %v", seen.kinds())
	}
}

func TestProcessPayment_GatewayError(t *testing.T) {
	repo := memory.NewOrderRepository()
	bus := eventbus.New(quietLogger("payment_gateway_error"))
	orders := order.NewServiceWithoutMetrics(repo, bus, quietLogger("payment_gateway_error"))
	gateway := &MockGateway{AuthorizeErr: errors.New("gateway unreachable")}

	seeded := seedOrder(t, repo)

	c := NewCoordinatorWithoutMetrics(orders, gateway, bus, quietLogger("payment_gateway_error"))
	err := c.ProcessPayment(context.Background(), Request{
		OrderNumber: seeded.OrderNumber,
		OrderID:     seeded.ID,
		AmountMinor: seeded.TotalMinor,
		PaymentKey:  "key-ok",
		Method:      "CARD",
	})
	if err == nil {
		t.Fatal("expected error from gateway")
	}

	updated, err := repo.Get(seeded.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if updated.PaymentStatus != domain.PaymentStatusFailed {
		t.Fatalf("expected payment status failed, got %s", updated.PaymentStatus)
	}
}

func TestProcessPayment_BankTransferWaitsForConfirmation(t *testing.T) {
	repo := memory.NewOrderRepository()
	bus := eventbus.New(quietLogger("payment_bank_transfer"))
	orders := order.NewServiceWithoutMetrics(repo, bus, quietLogger("payment_bank_transfer"))
	gateway := &MockGateway{}

	seeded := seedOrder(t, repo)

	c := NewCoordinatorWithoutMetrics(orders, gateway, bus, quietLogger("payment_bank_transfer"))
	err := c.ProcessPayment(context.Background(), Request{
		OrderNumber: seeded.OrderNumber,
		OrderID:     seeded.ID,
		AmountMinor: seeded.TotalMinor,
		PaymentKey:  "key-ok",
		Method:      MethodBankTransfer,
	})
	if err != nil {
		t.Fatalf("process payment: %v", err)
	}

	if gateway.AuthorizeCalls != 0 {
		t.Fatalf("expected gateway not called, got %d", gateway.AuthorizeCalls)
	}

	updated, err := repo.Get(seeded.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if updated.PaymentStatus != domain.PaymentStatusPending {
		t.Fatalf("expected payment status pending, got %s", updated.PaymentStatus)
	}
}

func TestCancelPayment_MarksRefunded(t *testing.T) {
	repo := memory.NewOrderRepository()
	bus := eventbus.New(quietLogger("payment_cancel"))
	orders := order.NewServiceWithoutMetrics(repo, bus, quietLogger("payment_cancel"))
	gateway := &MockGateway{}

	seeded := seedOrder(t, repo)
	if err := orders.MarkAsPaid(seeded.ID); err != nil {
		t.Fatalf("mark paid: %v", err)
	}

	c := NewCoordinatorWithoutMetrics(orders, gateway, bus, quietLogger("payment_cancel"))
	if err := c.CancelPayment(seeded.ID); err != nil {
		t.Fatalf("cancel payment: %v", err)
	}

	updated, err := repo.Get(seeded.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if updated.PaymentStatus != domain.PaymentStatusRefunded {
		t.Fatalf("expected payment status refunded, got %s", updated.PaymentStatus)
	}
}

func TestCancelPaymentByOrderNumber_CallsGateway(t *testing.T) {
	repo := memory.NewOrderRepository()
	bus := eventbus.New(quietLogger("payment_cancel_pg"))
	orders := order.NewServiceWithoutMetrics(repo, bus, quietLogger("payment_cancel_pg"))
	gateway := &MockGateway{}

	c := NewCoordinatorWithoutMetrics(orders, gateway, bus, quietLogger("payment_cancel_pg"))
	if err := c.CancelPaymentByOrderNumber(context.Background(), "ORD-100-0001", "заказ отменён"); err != nil {
		t.Fatalf("cancel by order number: %v", err)
	}
	if gateway.CancelCalls != 1 {
		t.Fatalf("expected gateway cancel called once, got %d", gateway.CancelCalls)
	}
	if gateway.LastReason != "заказ отменён" {
		t.Fatalf("unexpected reason: %s", gateway.LastReason)
	}
}
