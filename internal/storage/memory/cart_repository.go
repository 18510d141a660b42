package memory

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/flowershop/internal/domain"
)

// CartStore — in-memory корзины для разработки и тестов.
type CartStore struct {
	mu    sync.RWMutex
	carts map[string][]string
}

// NewCartStore создаёт in-memory реализацию CartStore.
func NewCartStore() *CartStore {
	return &CartStore{carts: make(map[string][]string)}
}

// Put кладёт идентификаторы товаров в корзину участника (для тестов).
func (s *CartStore) Put(memberID string, productIDs ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.carts[memberID] = append(s.carts[memberID], productIDs...)
}

// Items возвращает содержимое корзины участника.
func (s *CartStore) Items(memberID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]string, len(s.carts[memberID]))
	copy(items, s.carts[memberID])
	return items
}

// Clear удаляет корзину участника. Отсутствующая корзина — не ошибка.
func (s *CartStore) Clear(ctx context.Context, memberID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, memberID)
	return nil
}

var _ domain.CartStore = (*CartStore)(nil)
