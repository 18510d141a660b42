package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/flowershop/internal/domain"
)

// failureLogRepositoryInMemory хранит журнал сбоев компенсаций в памяти.
type failureLogRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.FailureLog
}

// NewFailureLogRepository создаёт in-memory реализацию FailureLogRepository.
func NewFailureLogRepository() domain.FailureLogRepository {
	return &failureLogRepositoryInMemory{items: make(map[string]domain.FailureLog)}
}

// Create сохраняет новую запись со статусом PENDING и нулевым счётчиком попыток.
func (r *failureLogRepositoryInMemory) Create(failureLog domain.FailureLog) (domain.FailureLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if failureLog.ID == "" {
		failureLog.ID = uuid.NewString()
	}
	if failureLog.Status == "" {
		failureLog.Status = domain.FailureStatusPending
	}
	now := time.Now().UTC()
	failureLog.CreatedAt = now
	failureLog.UpdatedAt = now
	r.items[failureLog.ID] = failureLog
	return failureLog, nil
}

// Get возвращает запись или ErrFailureLogNotFound.
func (r *failureLogRepositoryInMemory) Get(id string) (domain.FailureLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	failureLog, ok := r.items[id]
	if !ok {
		return domain.FailureLog{}, domain.ErrFailureLogNotFound
	}
	return failureLog, nil
}

// ListPending возвращает записи в статусе PENDING в порядке создания.
func (r *failureLogRepositoryInMemory) ListPending() ([]domain.FailureLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.FailureLog, 0, len(r.items))
	for _, failureLog := range r.items {
		if failureLog.Status == domain.FailureStatusPending {
			result = append(result, failureLog)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})

	return result, nil
}

// Save перезаписывает запись. Записи никогда не удаляются.
func (r *failureLogRepositoryInMemory) Save(failureLog domain.FailureLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[failureLog.ID]; !ok {
		return domain.ErrFailureLogNotFound
	}
	failureLog.UpdatedAt = time.Now().UTC()
	r.items[failureLog.ID] = failureLog
	return nil
}

var _ domain.FailureLogRepository = (*failureLogRepositoryInMemory)(nil)
