package compensation

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

type stubOrders struct {
	mu        sync.Mutex
	cancelErr error
	order     domain.Order
	getErr    error

	cancelCnt  int
	lastNumber string
	lastReason string
}

func (s *stubOrders) CancelOrder(orderNumber, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelCnt++
	s.lastNumber = orderNumber
	s.lastReason = reason
	return s.cancelErr
}

func (s *stubOrders) GetOrderDetail(string) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order, s.getErr
}

type stubPayments struct {
	mu        sync.Mutex
	cancelErr error
	pgErr     error

	cancelCnt int
	pgCnt     int
}

func (s *stubPayments) CancelPayment(string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelCnt++
	return s.cancelErr
}

func (s *stubPayments) CancelPaymentByOrderNumber(context.Context, string, string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pgCnt++
	return s.pgErr
}

func TestHandleInventoryDeductionFailed_CancelsOrder(t *testing.T) {
	orders := &stubOrders{}
	payments := &stubPayments{}
	failures := memory.NewFailureLogRepository()
	bus := eventbus.New(quietLogger("compensation_cancel"))

	c := NewCoordinatorWithoutMetrics(orders, payments, failures, bus, quietLogger("compensation_cancel"))
	c.HandleInventoryDeductionFailed(context.Background(), domain.InventoryDeductionFailed{
		OrderNumber: "ORD-100-0001",
		Reason:      "insufficient stock: product product-1 has 1, requested 2",
	})

	if orders.cancelCnt != 1 {
		t.Fatalf("expected cancel called once, got %d", orders.cancelCnt)
	}
	if orders.lastNumber != "ORD-100-0001" {
		t.Fatalf("unexpected order number: %s", orders.lastNumber)
	}
	if !strings.Contains(orders.lastReason, "stock") {
		t.Fatalf("expected stock reason, got %q", orders.lastReason)
	}

	pending, err := failures.ListPending()
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no failure logs on success, got %d", len(pending))
	}
}

func TestHandleInventoryDeductionFailed_LogsFailureWhenCancelFails(t *testing.T) {
	orders := &stubOrders{cancelErr: errors.New("storage down")}
	payments := &stubPayments{}
	failures := memory.NewFailureLogRepository()
	bus := eventbus.New(quietLogger("compensation_log"))

	c := NewCoordinatorWithoutMetrics(orders, payments, failures, bus, quietLogger("compensation_log"))
	c.HandleInventoryDeductionFailed(context.Background(), domain.InventoryDeductionFailed{
		OrderNumber: "ORD-100-0002",
		Reason:      "insufficient stock: product product-1 has 0, requested 1",
	})

	pending, err := failures.ListPending()
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected one failure log, got %d", len(pending))
	}

	fl := pending[0]
	if fl.Domain != DomainOrder {
		t.Fatalf("expected domain ORDER, got %s", fl.Domain)
	}
	if fl.ReferenceID != "ORD-100-0002" {
		t.Fatalf("expected reference ORD-100-0002, got %s", fl.ReferenceID)
	}
	if !strings.HasPrefix(fl.Payload, "reason: ") {
		t.Fatalf("expected payload with reason prefix, got %q", fl.Payload)
	}
	if fl.Status != domain.FailureStatusPending || fl.RetryCount != 0 {
		t.Fatalf("expected fresh pending record, got %+v", fl)
	}
}

func TestHandleOrderCancelled_RefundsPaidOrder(t *testing.T) {
	orders := &stubOrders{order: domain.Order{
		ID:            "order-1",
		OrderNumber:   "ORD-100-0003",
		PaymentStatus: domain.PaymentStatusPaid,
	}}
	payments := &stubPayments{}
	failures := memory.NewFailureLogRepository()
	bus := eventbus.New(quietLogger("compensation_refund"))

	c := NewCoordinatorWithoutMetrics(orders, payments, failures, bus, quietLogger("compensation_refund"))
	c.HandleOrderCancelled(context.Background(), domain.OrderCancelled{
		OrderNumber: "ORD-100-0003",
		OrderID:     "order-1",
		Reason:      "клиент передумал",
	})

	if payments.pgCnt != 1 {
		t.Fatalf("expected gateway cancel called once, got %d", payments.pgCnt)
	}
	if payments.cancelCnt != 1 {
		t.Fatalf("expected refund marked once, got %d", payments.cancelCnt)
	}
}

func TestHandleOrderCancelled_PendingPaymentIsNoop(t *testing.T) {
	orders := &stubOrders{order: domain.Order{
		ID:            "order-1",
		OrderNumber:   "ORD-100-0004",
		PaymentStatus: domain.PaymentStatusPending,
	}}
	payments := &stubPayments{}
	failures := memory.NewFailureLogRepository()
	bus := eventbus.New(quietLogger("compensation_noop"))

	c := NewCoordinatorWithoutMetrics(orders, payments, failures, bus, quietLogger("compensation_noop"))
	c.HandleOrderCancelled(context.Background(), domain.OrderCancelled{
		OrderNumber: "ORD-100-0004",
		OrderID:     "order-1",
	})

	if payments.pgCnt != 0 || payments.cancelCnt != 0 {
		t.Fatalf("expected no refund calls, got pg=%d cancel=%d", payments.pgCnt, payments.cancelCnt)
	}
}

func TestHandleOrderCancelled_GatewayErrorStillRefundsLocally(t *testing.T) {
	orders := &stubOrders{order: domain.Order{
		ID:            "order-1",
		OrderNumber:   "ORD-100-0005",
		PaymentStatus: domain.PaymentStatusPaid,
	}}
	payments := &stubPayments{pgErr: errors.New("gateway unreachable")}
	failures := memory.NewFailureLogRepository()
	bus := eventbus.New(quietLogger("compensation_pg_error"))

	c := NewCoordinatorWithoutMetrics(orders, payments, failures, bus, quietLogger("compensation_pg_error"))
	c.HandleOrderCancelled(context.Background(), domain.OrderCancelled{
		OrderNumber: "ORD-100-0005",
		OrderID:     "order-1",
	})

	if payments.cancelCnt != 1 {
		t.Fatalf("expected local refund despite gateway error, got %d", payments.cancelCnt)
	}
}
