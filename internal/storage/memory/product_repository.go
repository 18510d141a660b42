package memory

import (
	"context"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/flowershop/internal/domain"
)

// ProductRepository — in-memory проекция товаров. Реализует и хранилище,
// и контракт склада: списание выполняется под эксклюзивной блокировкой
// строки товара, сериализуя конкурентные декременты.
type ProductRepository struct {
	mu    sync.RWMutex
	items map[string]domain.Product
	// locks — по-товарные мьютексы, аналог SELECT ... FOR UPDATE.
	locks map[string]*sync.Mutex
}

// NewProductRepository создаёт in-memory репозиторий товаров.
func NewProductRepository() *ProductRepository {
	return &ProductRepository{
		items: make(map[string]domain.Product),
		locks: make(map[string]*sync.Mutex),
	}
}

// Create сохраняет товар.
func (r *ProductRepository) Create(product domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	product.CreatedAt = now
	product.UpdatedAt = now
	r.items[product.ID] = product
	return nil
}

// Get возвращает товар или ErrProductNotFound.
func (r *ProductRepository) Get(id string) (domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.items[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return product, nil
}

// Save перезаписывает товар.
func (r *ProductRepository) Save(product domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[product.ID]; !ok {
		return domain.ErrProductNotFound
	}
	product.UpdatedAt = time.Now().UTC()
	r.items[product.ID] = product
	return nil
}

// DecreaseStock списывает сток под эксклюзивной блокировкой строки товара.
// Проверка достаточности и декремент атомарны: сток не уходит в минус.
func (r *ProductRepository) DecreaseStock(ctx context.Context, productID string, qty int32) error {
	rowLock, err := r.rowLock(productID)
	if err != nil {
		return err
	}
	rowLock.Lock()
	defer rowLock.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.items[productID]
	if !ok {
		return domain.ErrProductNotFound
	}
	if err := product.DecreaseStock(qty); err != nil {
		return err
	}
	product.UpdatedAt = time.Now().UTC()
	r.items[productID] = product
	return nil
}

// IncreaseStock возвращает сток на склад (restock или компенсация списания).
func (r *ProductRepository) IncreaseStock(ctx context.Context, productID string, qty int32) error {
	rowLock, err := r.rowLock(productID)
	if err != nil {
		return err
	}
	rowLock.Lock()
	defer rowLock.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.items[productID]
	if !ok {
		return domain.ErrProductNotFound
	}
	product.IncreaseStock(qty)
	product.UpdatedAt = time.Now().UTC()
	r.items[productID] = product
	return nil
}

// rowLock возвращает мьютекс строки товара, создавая его при первом обращении.
func (r *ProductRepository) rowLock(productID string) (*sync.Mutex, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[productID]; !ok {
		return nil, domain.ErrProductNotFound
	}
	lock, ok := r.locks[productID]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[productID] = lock
	}
	return lock, nil
}

var (
	_ domain.ProductRepository = (*ProductRepository)(nil)
	_ domain.StockService      = (*ProductRepository)(nil)
)
