package memory

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/flowershop/internal/domain"
)

// reviewRepositoryInMemory хранит отзывы в памяти.
type reviewRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Review
}

// NewReviewRepository создаёт in-memory реализацию ReviewRepository.
func NewReviewRepository() domain.ReviewRepository {
	return &reviewRepositoryInMemory{items: make(map[string]domain.Review)}
}

// Create сохраняет новый отзыв.
func (r *reviewRepositoryInMemory) Create(review domain.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if review.ID == "" {
		review.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	review.CreatedAt = now
	review.UpdatedAt = now
	r.items[review.ID] = review
	return nil
}

// Get возвращает отзыв или ErrReviewNotFound.
func (r *reviewRepositoryInMemory) Get(id string) (domain.Review, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	review, ok := r.items[id]
	if !ok {
		return domain.Review{}, domain.ErrReviewNotFound
	}
	return review, nil
}

// ListByOrderItems возвращает отзывы, привязанные к указанным позициям заказа.
func (r *reviewRepositoryInMemory) ListByOrderItems(orderItemIDs []string) ([]domain.Review, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wanted := make(map[string]struct{}, len(orderItemIDs))
	for _, id := range orderItemIDs {
		wanted[id] = struct{}{}
	}

	result := make([]domain.Review, 0)
	for _, review := range r.items {
		if _, ok := wanted[review.OrderItemID]; ok {
			result = append(result, review)
		}
	}
	return result, nil
}

// Save перезаписывает отзыв.
func (r *reviewRepositoryInMemory) Save(review domain.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[review.ID]; !ok {
		return domain.ErrReviewNotFound
	}
	review.UpdatedAt = time.Now().UTC()
	r.items[review.ID] = review
	return nil
}

var _ domain.ReviewRepository = (*reviewRepositoryInMemory)(nil)
