package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/flowershop/internal/domain"
)

// ProductRepository хранит проекцию товаров. Списание стока выполняется под
// SELECT ... FOR UPDATE: конкурентные декременты одной строки сериализуются
// на уровне базы.
type ProductRepository struct {
	db *sql.DB
}

// NewProductRepository создаёт PostgreSQL-реализацию репозитория товаров.
// Возвращаемый тип реализует и domain.ProductRepository, и domain.StockService.
func NewProductRepository(store *Store) *ProductRepository {
	return &ProductRepository{db: store.DB()}
}

func (r *ProductRepository) Create(product domain.Product) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	now := time.Now().UTC()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO products (
			id, name, stock, price_minor, review_count, total_rating, average_rating,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`,
		product.ID, product.Name, product.Stock, product.PriceMinor,
		product.ReviewCount, product.TotalRating, product.AverageRating,
		product.CreatedAt, product.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (r *ProductRepository) Get(id string) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var product domain.Product
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, stock, price_minor, review_count, total_rating, average_rating,
		       created_at, updated_at
		FROM products
		WHERE id = $1
	`, id).Scan(
		&product.ID, &product.Name, &product.Stock, &product.PriceMinor,
		&product.ReviewCount, &product.TotalRating, &product.AverageRating,
		&product.CreatedAt, &product.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("select product: %w", err)
	}
	return product, nil
}

func (r *ProductRepository) Save(product domain.Product) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET name = $1,
		    stock = $2,
		    price_minor = $3,
		    review_count = $4,
		    total_rating = $5,
		    average_rating = $6,
		    updated_at = $7
		WHERE id = $8
	`,
		product.Name, product.Stock, product.PriceMinor,
		product.ReviewCount, product.TotalRating, product.AverageRating,
		time.Now().UTC(), product.ID,
	)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

// DecreaseStock списывает qty единиц под эксклюзивной блокировкой строки.
// Проверка достаточности и декремент атомарны в одной транзакции.
func (r *ProductRepository) DecreaseStock(ctx context.Context, productID string, qty int32) error {
	return r.adjustStock(ctx, productID, func(stock int32) (int32, error) {
		if stock < qty {
			return 0, fmt.Errorf("%w: product %s has %d, requested %d",
				domain.ErrInsufficientStock, productID, stock, qty)
		}
		return stock - qty, nil
	})
}

// IncreaseStock возвращает qty единиц на склад.
func (r *ProductRepository) IncreaseStock(ctx context.Context, productID string, qty int32) error {
	return r.adjustStock(ctx, productID, func(stock int32) (int32, error) {
		return stock + qty, nil
	})
}

func (r *ProductRepository) adjustStock(ctx context.Context, productID string, change func(int32) (int32, error)) error {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(opCtx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var stock int32
	err = tx.QueryRowContext(opCtx, `
		SELECT stock FROM products WHERE id = $1 FOR UPDATE
	`, productID).Scan(&stock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = domain.ErrProductNotFound
			return err
		}
		return fmt.Errorf("lock product row: %w", err)
	}

	next, err := change(stock)
	if err != nil {
		return err
	}

	if _, err = tx.ExecContext(opCtx, `
		UPDATE products SET stock = $1, updated_at = $2 WHERE id = $3
	`, next, time.Now().UTC(), productID); err != nil {
		return fmt.Errorf("update stock: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit stock change: %w", err)
	}
	return nil
}

var (
	_ domain.ProductRepository = (*ProductRepository)(nil)
	_ domain.StockService      = (*ProductRepository)(nil)
)
