package payment

import (
	"context"
	"strings"
	"sync"

	"github.com/vladislavdragonenkov/flowershop/internal/domain"
)

// MockGateway — тестовый платёжный шлюз. Ключ, содержащий "FAIL",
// отклоняется; поведение можно переопределить через поля ошибок.
type MockGateway struct {
	mu sync.Mutex

	AuthorizeErr error
	CancelErr    error

	AuthorizeCalls int
	CancelCalls    int
	LastReason     string
}

var _ domain.PaymentGateway = (*MockGateway)(nil)

func (g *MockGateway) Authorize(_ context.Context, _ string, _ int64, paymentKey, _ string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.AuthorizeCalls++
	if g.AuthorizeErr != nil {
		return false, g.AuthorizeErr
	}
	return !strings.Contains(paymentKey, "FAIL"), nil
}

func (g *MockGateway) Cancel(_ context.Context, _ string, reason string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.CancelCalls++
	g.LastReason = reason
	return g.CancelErr
}
