package memory

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/flowershop/internal/domain"
)

// deliveryRepositoryInMemory хранит доставки в памяти.
type deliveryRepositoryInMemory struct {
	mu       sync.RWMutex
	items    map[string]domain.Delivery
	byNumber map[string]string
}

// NewDeliveryRepository создаёт in-memory реализацию DeliveryRepository.
func NewDeliveryRepository() domain.DeliveryRepository {
	return &deliveryRepositoryInMemory{
		items:    make(map[string]domain.Delivery),
		byNumber: make(map[string]string),
	}
}

// Create сохраняет доставку. Номер заказа уникален: повторное событие оплаты
// получает ErrDeliveryExists вместо второй строки.
func (r *deliveryRepositoryInMemory) Create(delivery domain.Delivery) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byNumber[delivery.OrderNumber]; exists {
		return domain.ErrDeliveryExists
	}
	if delivery.ID == "" {
		delivery.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	delivery.CreatedAt = now
	delivery.UpdatedAt = now
	r.items[delivery.ID] = delivery
	r.byNumber[delivery.OrderNumber] = delivery.ID
	return nil
}

// Get возвращает доставку или ErrDeliveryNotFound.
func (r *deliveryRepositoryInMemory) Get(id string) (domain.Delivery, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	delivery, ok := r.items[id]
	if !ok {
		return domain.Delivery{}, domain.ErrDeliveryNotFound
	}
	return delivery, nil
}

// GetByOrderNumber возвращает доставку по номеру заказа.
func (r *deliveryRepositoryInMemory) GetByOrderNumber(orderNumber string) (domain.Delivery, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byNumber[orderNumber]
	if !ok {
		return domain.Delivery{}, domain.ErrDeliveryNotFound
	}
	return r.items[id], nil
}

// Save перезаписывает доставку.
func (r *deliveryRepositoryInMemory) Save(delivery domain.Delivery) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[delivery.ID]; !ok {
		return domain.ErrDeliveryNotFound
	}
	delivery.UpdatedAt = time.Now().UTC()
	r.items[delivery.ID] = delivery
	return nil
}

var _ domain.DeliveryRepository = (*deliveryRepositoryInMemory)(nil)
