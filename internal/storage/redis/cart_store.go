package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/vladislavdragonenkov/flowershop/internal/domain"
)

// CartStore хранит корзины участников в Redis. Корзина — hash
// "cart:<member_id>" с полями product_id -> qty; магазинный фронт пишет её
// напрямую, сага только очищает после оплаты.
type CartStore struct {
	client *redis.Client
}

// NewCartStore создаёт Redis-реализацию CartStore.
func NewCartStore(addr string) *CartStore {
	return &CartStore{
		client: redis.NewClient(&redis.Options{Addr: addr}),
	}
}

// Ping проверяет доступность Redis.
func (s *CartStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Add кладёт товар в корзину участника.
func (s *CartStore) Add(ctx context.Context, memberID, productID string, qty int32) error {
	return s.client.HIncrBy(ctx, cartKey(memberID), productID, int64(qty)).Err()
}

// Items возвращает содержимое корзины участника.
func (s *CartStore) Items(ctx context.Context, memberID string) (map[string]string, error) {
	return s.client.HGetAll(ctx, cartKey(memberID)).Result()
}

// Clear удаляет корзину участника. Отсутствующий ключ — не ошибка.
func (s *CartStore) Clear(ctx context.Context, memberID string) error {
	return s.client.Del(ctx, cartKey(memberID)).Err()
}

// Close закрывает подключение к Redis.
func (s *CartStore) Close() error {
	return s.client.Close()
}

func cartKey(memberID string) string {
	return fmt.Sprintf("cart:%s", memberID)
}

var _ domain.CartStore = (*CartStore)(nil)
