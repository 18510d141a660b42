package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/flowershop/internal/domain"
)

type failureLogRepository struct {
	db *sql.DB
}

// NewFailureLogRepository создаёт PostgreSQL-реализацию FailureLogRepository.
func NewFailureLogRepository(store *Store) domain.FailureLogRepository {
	return &failureLogRepository{db: store.DB()}
}

func (r *failureLogRepository) Create(failureLog domain.FailureLog) (domain.FailureLog, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if failureLog.ID == "" {
		failureLog.ID = uuid.NewString()
	}
	if failureLog.Status == "" {
		failureLog.Status = domain.FailureStatusPending
	}
	now := time.Now().UTC()
	failureLog.CreatedAt = now
	failureLog.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO failure_logs (
			id, domain, reference_id, error_message, payload, status, retry_count,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`,
		failureLog.ID, failureLog.Domain, failureLog.ReferenceID,
		failureLog.ErrorMessage, failureLog.Payload, string(failureLog.Status),
		failureLog.RetryCount, failureLog.CreatedAt, failureLog.UpdatedAt,
	)
	if err != nil {
		return domain.FailureLog{}, fmt.Errorf("insert failure log: %w", err)
	}
	return failureLog, nil
}

func (r *failureLogRepository) Get(id string) (domain.FailureLog, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	failureLog, err := scanFailureLog(r.db.QueryRowContext(ctx, `
		SELECT id, domain, reference_id, error_message, payload, status, retry_count,
		       created_at, updated_at
		FROM failure_logs
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.FailureLog{}, domain.ErrFailureLogNotFound
		}
		return domain.FailureLog{}, fmt.Errorf("select failure log: %w", err)
	}
	return failureLog, nil
}

func (r *failureLogRepository) ListPending() ([]domain.FailureLog, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, domain, reference_id, error_message, payload, status, retry_count,
		       created_at, updated_at
		FROM failure_logs
		WHERE status = $1
		ORDER BY created_at ASC, id ASC
	`, string(domain.FailureStatusPending))
	if err != nil {
		return nil, fmt.Errorf("list pending failure logs: %w", err)
	}
	defer rows.Close()

	result := make([]domain.FailureLog, 0)
	for rows.Next() {
		failureLog, err := scanFailureLog(rows)
		if err != nil {
			return nil, fmt.Errorf("scan failure log: %w", err)
		}
		result = append(result, failureLog)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate failure logs: %w", err)
	}
	return result, nil
}

func (r *failureLogRepository) Save(failureLog domain.FailureLog) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE failure_logs
		SET error_message = $1,
		    payload = $2,
		    status = $3,
		    retry_count = $4,
		    updated_at = $5
		WHERE id = $6
	`,
		failureLog.ErrorMessage, failureLog.Payload, string(failureLog.Status),
		failureLog.RetryCount, time.Now().UTC(), failureLog.ID,
	)
	if err != nil {
		return fmt.Errorf("update failure log: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrFailureLogNotFound
	}
	return nil
}

func scanFailureLog(row rowScanner) (domain.FailureLog, error) {
	var (
		failureLog domain.FailureLog
		status     string
	)
	if err := row.Scan(
		&failureLog.ID, &failureLog.Domain, &failureLog.ReferenceID,
		&failureLog.ErrorMessage, &failureLog.Payload, &status,
		&failureLog.RetryCount, &failureLog.CreatedAt, &failureLog.UpdatedAt,
	); err != nil {
		return domain.FailureLog{}, err
	}
	failureLog.Status = domain.FailureStatus(status)
	return failureLog, nil
}

var _ domain.FailureLogRepository = (*failureLogRepository)(nil)
