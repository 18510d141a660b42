package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/flowershop/internal/domain"
)

const opTimeout = 5 * time.Second

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{db: store.DB()}
}

const orderColumns = `
	id, order_number, member_id, total_minor, status, payment_status,
	delivery_method, receiver_name, receiver_phone, address, note,
	message_card, is_direct_order, version, created_at, updated_at,
	paid_at, shipped_at, delivered_at, cancelled_at`

func (r *orderRepository) Create(order domain.Order) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
	`,
		order.ID, order.OrderNumber, order.MemberID, order.TotalMinor,
		string(order.Status), string(order.PaymentStatus), string(order.DeliveryMethod),
		order.Shipping.ReceiverName, order.Shipping.ReceiverPhone,
		order.Shipping.Address, order.Shipping.Note,
		order.MessageCard, order.IsDirectOrder, order.Version,
		order.CreatedAt, order.UpdatedAt,
		nullTime(order.PaidAt), nullTime(order.ShippedAt),
		nullTime(order.DeliveredAt), nullTime(order.CancelledAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrOrderVersionConflict
		}
		return fmt.Errorf("insert order: %w", err)
	}

	for _, item := range order.Items {
		options, marshalErr := json.Marshal(item.Options)
		if marshalErr != nil {
			err = fmt.Errorf("marshal item options: %w", marshalErr)
			return err
		}
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (
				id, order_id, product_id, product_name, qty,
				unit_price_minor, discount_minor, options, created_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		`,
			item.ID, order.ID, item.ProductID, item.ProductName, item.Qty,
			item.UnitPriceMinor, item.DiscountMinor, options, item.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create order: %w", err)
	}
	return nil
}

func (r *orderRepository) Get(id string) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	return r.getWhere(ctx, "id = $1", id)
}

func (r *orderRepository) GetByNumber(orderNumber string) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	return r.getWhere(ctx, "order_number = $1", orderNumber)
}

func (r *orderRepository) getWhere(ctx context.Context, where string, arg any) (domain.Order, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE `+where, arg)

	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("select order: %w", err)
	}

	items, err := r.loadItems(ctx, order.ID)
	if err != nil {
		return domain.Order{}, err
	}
	order.Items = items
	return order, nil
}

func (r *orderRepository) ListByMember(memberID string, limit int) ([]domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	query := `SELECT ` + orderColumns + `
		FROM orders
		WHERE member_id = $1
		ORDER BY created_at DESC, id DESC`

	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		rows, err = r.db.QueryContext(ctx, query+" LIMIT $2", memberID, limit)
	} else {
		rows, err = r.db.QueryContext(ctx, query, memberID)
	}
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		items, err := r.loadItems(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		order.Items = items
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}
	return orders, nil
}

func (r *orderRepository) Save(order domain.Order) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET total_minor = $1,
		    status = $2,
		    payment_status = $3,
		    message_card = $4,
		    version = version + 1,
		    updated_at = $5,
		    paid_at = $6,
		    shipped_at = $7,
		    delivered_at = $8,
		    cancelled_at = $9
		WHERE id = $10
		  AND version = $11
	`,
		order.TotalMinor, string(order.Status), string(order.PaymentStatus),
		order.MessageCard, order.UpdatedAt,
		nullTime(order.PaidAt), nullTime(order.ShippedAt),
		nullTime(order.DeliveredAt), nullTime(order.CancelledAt),
		order.ID, order.Version,
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		var id string
		err := r.db.QueryRowContext(ctx, `SELECT id FROM orders WHERE id = $1`, order.ID).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrOrderNotFound
		}
		if err != nil {
			return fmt.Errorf("check order exists: %w", err)
		}
		return domain.ErrOrderVersionConflict
	}
	return nil
}

func (r *orderRepository) loadItems(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, product_id, product_name, qty, unit_price_minor, discount_minor, options, created_at
		FROM order_items
		WHERE order_id = $1
		ORDER BY created_at ASC, id ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.OrderItem, 0)
	for rows.Next() {
		var (
			item    domain.OrderItem
			options []byte
		)
		if err := rows.Scan(
			&item.ID, &item.ProductID, &item.ProductName, &item.Qty,
			&item.UnitPriceMinor, &item.DiscountMinor, &options, &item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		if len(options) > 0 {
			if err := json.Unmarshal(options, &item.Options); err != nil {
				return nil, fmt.Errorf("unmarshal item options: %w", err)
			}
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}
	return items, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var (
		order                                    domain.Order
		status, paymentStatus, deliveryMethod    string
		paidAt, shippedAt, deliveredAt, cancelAt sql.NullTime
	)
	if err := row.Scan(
		&order.ID, &order.OrderNumber, &order.MemberID, &order.TotalMinor,
		&status, &paymentStatus, &deliveryMethod,
		&order.Shipping.ReceiverName, &order.Shipping.ReceiverPhone,
		&order.Shipping.Address, &order.Shipping.Note,
		&order.MessageCard, &order.IsDirectOrder, &order.Version,
		&order.CreatedAt, &order.UpdatedAt,
		&paidAt, &shippedAt, &deliveredAt, &cancelAt,
	); err != nil {
		return domain.Order{}, err
	}
	order.Status = domain.OrderStatus(status)
	order.PaymentStatus = domain.PaymentStatus(paymentStatus)
	order.DeliveryMethod = domain.DeliveryMethod(deliveryMethod)
	order.PaidAt = paidAt.Time
	order.ShippedAt = shippedAt.Time
	order.DeliveredAt = deliveredAt.Time
	order.CancelledAt = cancelAt.Time
	return order, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ domain.OrderRepository = (*orderRepository)(nil)
