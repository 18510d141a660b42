package review

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/flowershop/internal/domain"
	"github.com/vladislavdragonenkov/flowershop/internal/eventbus"
)

// CreateRequest — входные данные создания отзыва.
type CreateRequest struct {
	ProductID   string
	MemberID    string
	OrderItemID string
	Rating      int32
	Content     string
}

// Service владеет жизненным циклом отзывов. Каждая мутация публикует событие
// со старой и новой оценкой, по которым проекция товара пересчитывает
// статистику.
type Service struct {
	reviews domain.ReviewRepository
	bus     *eventbus.Bus
	logger  *log.Entry
}

// NewService создаёт сервис отзывов.
func NewService(reviews domain.ReviewRepository, bus *eventbus.Bus, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "review-service")
	}
	return &Service{
		reviews: reviews,
		bus:     bus,
		logger:  logger,
	}
}

// Create сохраняет отзыв и публикует ReviewCreated.
func (s *Service) Create(req CreateRequest) (domain.Review, error) {
	now := time.Now().UTC()
	r := domain.Review{
		ID:          uuid.NewString(),
		ProductID:   req.ProductID,
		MemberID:    req.MemberID,
		OrderItemID: req.OrderItemID,
		Rating:      req.Rating,
		Content:     req.Content,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := r.Validate(); err != nil {
		return domain.Review{}, err
	}

	tx := s.bus.Begin()
	if err := s.reviews.Create(r); err != nil {
		tx.Rollback()
		return domain.Review{}, err
	}
	tx.Publish(domain.ReviewCreated{
		ReviewID:  r.ID,
		ProductID: r.ProductID,
		Rating:    r.Rating,
	})
	tx.Commit()

	s.logger.WithFields(log.Fields{
		"review_id":  r.ID,
		"product_id": r.ProductID,
		"rating":     r.Rating,
	}).Info("отзыв создан")
	return r, nil
}

// Update меняет оценку и текст отзыва, публикуя ReviewUpdated со старой и
// новой оценкой.
func (s *Service) Update(reviewID string, rating int32, content string) (domain.Review, error) {
	r, err := s.reviews.Get(reviewID)
	if err != nil {
		return domain.Review{}, err
	}

	oldRating := r.Rating
	r.Rating = rating
	r.Content = content
	r.UpdatedAt = time.Now().UTC()
	if err := r.Validate(); err != nil {
		return domain.Review{}, err
	}

	tx := s.bus.Begin()
	if err := s.reviews.Save(r); err != nil {
		tx.Rollback()
		return domain.Review{}, err
	}
	tx.Publish(domain.ReviewUpdated{
		ReviewID:  r.ID,
		ProductID: r.ProductID,
		OldRating: oldRating,
		NewRating: r.Rating,
	})
	tx.Commit()
	return r, nil
}

// Delete скрывает отзыв и публикует ReviewDeleted. Повторное удаление —
// no-op без события.
func (s *Service) Delete(reviewID string) error {
	r, err := s.reviews.Get(reviewID)
	if err != nil {
		return err
	}
	if r.Hidden {
		return nil
	}

	r.Hide()
	r.UpdatedAt = time.Now().UTC()

	tx := s.bus.Begin()
	if err := s.reviews.Save(r); err != nil {
		tx.Rollback()
		return err
	}
	tx.Publish(domain.ReviewDeleted{
		ReviewID:  r.ID,
		ProductID: r.ProductID,
		Rating:    r.Rating,
	})
	tx.Commit()
	return nil
}

// Get возвращает отзыв; скрытый отзыв наружу не отдаётся.
func (s *Service) Get(reviewID string) (domain.Review, error) {
	r, err := s.reviews.Get(reviewID)
	if err != nil {
		return domain.Review{}, err
	}
	if r.Hidden {
		return domain.Review{}, fmt.Errorf("%w: review %s", domain.ErrReviewNotFound, reviewID)
	}
	return r, nil
}
