package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/flowershop/internal/domain"
)

type reviewRepository struct {
	db *sql.DB
}

// NewReviewRepository создаёт PostgreSQL-реализацию ReviewRepository.
func NewReviewRepository(store *Store) domain.ReviewRepository {
	return &reviewRepository{db: store.DB()}
}

func (r *reviewRepository) Create(review domain.Review) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO reviews (
			id, product_id, member_id, order_item_id, rating, content, hidden,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`,
		review.ID, review.ProductID, review.MemberID, review.OrderItemID,
		review.Rating, review.Content, review.Hidden,
		review.CreatedAt, review.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

func (r *reviewRepository) Get(id string) (domain.Review, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var review domain.Review
	err := r.db.QueryRowContext(ctx, `
		SELECT id, product_id, member_id, order_item_id, rating, content, hidden,
		       created_at, updated_at
		FROM reviews
		WHERE id = $1
	`, id).Scan(
		&review.ID, &review.ProductID, &review.MemberID, &review.OrderItemID,
		&review.Rating, &review.Content, &review.Hidden,
		&review.CreatedAt, &review.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Review{}, domain.ErrReviewNotFound
		}
		return domain.Review{}, fmt.Errorf("select review: %w", err)
	}
	return review, nil
}

func (r *reviewRepository) ListByOrderItems(orderItemIDs []string) ([]domain.Review, error) {
	if len(orderItemIDs) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	placeholders := make([]string, len(orderItemIDs))
	args := make([]any, len(orderItemIDs))
	for i, id := range orderItemIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, product_id, member_id, order_item_id, rating, content, hidden,
		       created_at, updated_at
		FROM reviews
		WHERE order_item_id IN (`+strings.Join(placeholders, ",")+`)
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("list reviews by order items: %w", err)
	}
	defer rows.Close()

	reviews := make([]domain.Review, 0)
	for rows.Next() {
		var review domain.Review
		if err := rows.Scan(
			&review.ID, &review.ProductID, &review.MemberID, &review.OrderItemID,
			&review.Rating, &review.Content, &review.Hidden,
			&review.CreatedAt, &review.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, review)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reviews: %w", err)
	}
	return reviews, nil
}

func (r *reviewRepository) Save(review domain.Review) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE reviews
		SET rating = $1,
		    content = $2,
		    hidden = $3,
		    updated_at = $4
		WHERE id = $5
	`,
		review.Rating, review.Content, review.Hidden, time.Now().UTC(), review.ID,
	)
	if err != nil {
		return fmt.Errorf("update review: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrReviewNotFound
	}
	return nil
}

var _ domain.ReviewRepository = (*reviewRepository)(nil)
