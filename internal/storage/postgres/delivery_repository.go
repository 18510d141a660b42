package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/flowershop/internal/domain"
)

type deliveryRepository struct {
	db *sql.DB
}

// NewDeliveryRepository создаёт PostgreSQL-реализацию DeliveryRepository.
// Уникальный индекс по order_number превращает повторную доставку события
// оплаты в ErrDeliveryExists.
func NewDeliveryRepository(store *Store) domain.DeliveryRepository {
	return &deliveryRepository{db: store.DB()}
}

const deliveryColumns = `
	id, order_id, order_number, receiver_name, receiver_phone, address, note,
	status, tracking_number, courier_name, started_at, completed_at,
	created_at, updated_at`

func (r *deliveryRepository) Create(delivery domain.Delivery) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO deliveries (`+deliveryColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`,
		delivery.ID, delivery.OrderID, delivery.OrderNumber,
		delivery.ReceiverName, delivery.ReceiverPhone, delivery.Address, delivery.Note,
		string(delivery.Status), delivery.TrackingNumber, delivery.CourierName,
		nullTime(delivery.StartedAt), nullTime(delivery.CompletedAt),
		delivery.CreatedAt, delivery.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDeliveryExists
		}
		return fmt.Errorf("insert delivery: %w", err)
	}
	return nil
}

func (r *deliveryRepository) Get(id string) (domain.Delivery, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	return r.getWhere(ctx, "id = $1", id)
}

func (r *deliveryRepository) GetByOrderNumber(orderNumber string) (domain.Delivery, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	return r.getWhere(ctx, "order_number = $1", orderNumber)
}

func (r *deliveryRepository) getWhere(ctx context.Context, where string, arg any) (domain.Delivery, error) {
	var (
		delivery             domain.Delivery
		status               string
		startedAt, completed sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, `SELECT `+deliveryColumns+` FROM deliveries WHERE `+where, arg).Scan(
		&delivery.ID, &delivery.OrderID, &delivery.OrderNumber,
		&delivery.ReceiverName, &delivery.ReceiverPhone, &delivery.Address, &delivery.Note,
		&status, &delivery.TrackingNumber, &delivery.CourierName,
		&startedAt, &completed, &delivery.CreatedAt, &delivery.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Delivery{}, domain.ErrDeliveryNotFound
		}
		return domain.Delivery{}, fmt.Errorf("select delivery: %w", err)
	}
	delivery.Status = domain.DeliveryStatus(status)
	delivery.StartedAt = startedAt.Time
	delivery.CompletedAt = completed.Time
	return delivery, nil
}

func (r *deliveryRepository) Save(delivery domain.Delivery) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE deliveries
		SET status = $1,
		    tracking_number = $2,
		    courier_name = $3,
		    started_at = $4,
		    completed_at = $5,
		    updated_at = $6
		WHERE id = $7
	`,
		string(delivery.Status), delivery.TrackingNumber, delivery.CourierName,
		nullTime(delivery.StartedAt), nullTime(delivery.CompletedAt),
		time.Now().UTC(), delivery.ID,
	)
	if err != nil {
		return fmt.Errorf("update delivery: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrDeliveryNotFound
	}
	return nil
}

var _ domain.DeliveryRepository = (*deliveryRepository)(nil)
