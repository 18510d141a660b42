package inventory

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/flowershop/internal/domain"
)

// MockStockService — конфигурируемая заглушка StockService для тестов.
// FailProductID ограничивает DecreaseErr одним товаром: остальные позиции
// списываются успешно, что позволяет смоделировать частичное списание.
type MockStockService struct {
	mu            sync.Mutex
	DecreaseErr   error
	IncreaseErr   error
	FailProductID string

	DecreaseCalls int
	IncreaseCalls int
}

// NewMockStockService возвращает mock с успешным сценарием по умолчанию.
func NewMockStockService() *MockStockService {
	return &MockStockService{}
}

// DecreaseStock возвращает заранее настроенную ошибку и считает вызовы.
func (m *MockStockService) DecreaseStock(ctx context.Context, productID string, qty int32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DecreaseCalls++
	if m.FailProductID != "" && m.FailProductID != productID {
		return nil
	}
	return m.DecreaseErr
}

// IncreaseStock возвращает заранее настроенную ошибку и считает вызовы.
func (m *MockStockService) IncreaseStock(ctx context.Context, productID string, qty int32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.IncreaseCalls++
	return m.IncreaseErr
}

var _ domain.StockService = (*MockStockService)(nil)
