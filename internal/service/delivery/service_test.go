package delivery

import (
	"context"
	"errors"
	"sync"
	"testing"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/flowershop/internal/domain"
	"github.com/vladislavdragonenkov/flowershop/internal/eventbus"
	"github.com/vladislavdragonenkov/flowershop/internal/storage/memory"
)

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

func quietLogger(test string) *log.Entry {
	logger := log.New()
	logger.SetLevel(log.PanicLevel)
	return logger.WithField("test", test)
}

func paymentEvent() domain.PaymentCompleted {
	return domain.PaymentCompleted{
		OrderNumber: "ORD-100-0001",
		OrderID:     "order-1",
		MemberID:    "member-1",
		Shipping: domain.ShippingInfo{
			ReceiverName:  "Анна",
			ReceiverPhone: "+7 900 000-00-00",
			Address:       "Москва, Цветочная 1",
			Note:          "домофон 42",
		},
	}
}

func TestHandlePaymentCompleted_CreatesPreparingDelivery(t *testing.T) {
	repo := memory.NewDeliveryRepository()
	bus := eventbus.New(quietLogger("delivery_create"))
	svc := NewService(repo, bus, quietLogger("delivery_create"))

	seen := &collector{}
	bus.Subscribe(domain.EventKindDeliveryCreated, seen.handler)

	svc.HandlePaymentCompleted(context.Background(), paymentEvent())
	bus.Wait()

	d, err := repo.GetByOrderNumber("ORD-100-0001")
	if err != nil {
		t.Fatalf("get delivery: %v", err)
	}
	if d.Status != domain.DeliveryStatusPreparing {
		t.Fatalf("expected status preparing, got %s", d.Status)
	}
	if d.ReceiverName != "Анна" || d.Address != "Москва, Цветочная 1" {
		t.Fatalf("expected receiver snapshot from event, got %+v", d)
	}

	events := seen.all()
	if len(events) != 1 {
		t.Fatalf("expected one delivery.created event, got %d", len(events))
	}
	created, ok := events[0].(domain.DeliveryCreated)
	if !ok {
		t.Fatalf("unexpected event type %T", events[0])
	}
	if created.DeliveryID != d.ID || created.OrderNumber != "ORD-100-0001" || created.Status != domain.DeliveryStatusPreparing {
		t.Fatalf("unexpected event payload %+v", created)
	}
}

func TestHandlePaymentCompleted_DuplicateIsNoop(t *testing.T) {
	repo := memory.NewDeliveryRepository()
	bus := eventbus.New(quietLogger("delivery_dup"))
	svc := NewService(repo, bus, quietLogger("delivery_dup"))

	seen := &collector{}
	bus.Subscribe(domain.EventKindDeliveryCreated, seen.handler)

	svc.HandlePaymentCompleted(context.Background(), paymentEvent())

	first, err := repo.GetByOrderNumber("ORD-100-0001")
	if err != nil {
		t.Fatalf("get delivery: %v", err)
	}

	// Повторная доставка того же события не создаёт вторую запись.
	svc.HandlePaymentCompleted(context.Background(), paymentEvent())

	second, err := repo.GetByOrderNumber("ORD-100-0001")
	if err != nil {
		t.Fatalf("get delivery after duplicate: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected same delivery, got %s and %s", first.ID, second.ID)
	}
	bus.Wait()
	if len(seen.all()) != 1 {
		t.Fatalf("expected single delivery.created event, got %d", len(seen.all()))
	}
}

func TestUpdateStatus_ShippingRequiresTracking(t *testing.T) {
	repo := memory.NewDeliveryRepository()
	bus := eventbus.New(quietLogger("delivery_tracking"))
	svc := NewService(repo, bus, quietLogger("delivery_tracking"))

	svc.HandlePaymentCompleted(context.Background(), paymentEvent())
	d, err := repo.GetByOrderNumber("ORD-100-0001")
	if err != nil {
		t.Fatalf("get delivery: %v", err)
	}

	if _, err := svc.UpdateStatus(d.ID, UpdateStatusRequest{Status: domain.DeliveryStatusShipping}); err == nil {
		t.Fatal("expected error without tracking number")
	}

	updated, err := svc.UpdateStatus(d.ID, UpdateStatusRequest{
		Status:         domain.DeliveryStatusShipping,
		TrackingNumber: "TRACK-1",
		CourierName:    "Пётр",
	})
	if err != nil {
		t.Fatalf("update to shipping: %v", err)
	}
	if updated.TrackingNumber != "TRACK-1" || updated.StartedAt.IsZero() {
		t.Fatalf("expected tracking and start time, got %+v", updated)
	}
}

func TestUpdateStatus_TerminalRejectsTransition(t *testing.T) {
	repo := memory.NewDeliveryRepository()
	bus := eventbus.New(quietLogger("delivery_terminal"))
	svc := NewService(repo, bus, quietLogger("delivery_terminal"))

	svc.HandlePaymentCompleted(context.Background(), paymentEvent())
	d, err := repo.GetByOrderNumber("ORD-100-0001")
	if err != nil {
		t.Fatalf("get delivery: %v", err)
	}

	completed, err := svc.UpdateStatus(d.ID, UpdateStatusRequest{Status: domain.DeliveryStatusCompleted})
	if err != nil {
		t.Fatalf("update to completed: %v", err)
	}
	if completed.CompletedAt.IsZero() {
		t.Fatal("expected completed time to be set")
	}

	_, err = svc.UpdateStatus(d.ID, UpdateStatusRequest{Status: domain.DeliveryStatusShipping, TrackingNumber: "TRACK-2"})
	if !errors.Is(err, domain.ErrDeliveryTerminal) {
		t.Fatalf("expected ErrDeliveryTerminal, got %v", err)
	}
}
