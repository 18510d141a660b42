package domain

import "time"

// Review — отзыв о купленном товаре, привязанный к позиции заказа.
type Review struct {
	ID          string
	ProductID   string
	MemberID    string
	OrderItemID string
	Rating      int32
	Content     string
	// Hidden — мягкое удаление: строка остаётся для аудита, но не показывается.
	Hidden    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate проверяет корректность оценки.
func (r *Review) Validate() error {
	if r.Rating < 1 || r.Rating > 5 {
		return ErrRatingOutOfRange
	}
	return nil
}

// Hide скрывает отзыв, не удаляя строку.
func (r *Review) Hide() {
	r.Hidden = true
}
