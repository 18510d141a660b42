package domain

import (
	"fmt"
	"math"
	"time"
)

// Product — проекция товара каталога, нужная саге: сток и агрегаты отзывов.
// Полный каталог (поиск, подборки, изображения) живёт во внешнем модуле.
type Product struct {
	ID    string
	Name  string
	Stock int32
	// PriceMinor — текущая цена каталога; исторические заказы хранят свой снапшот.
	PriceMinor    int64
	ReviewCount   int64
	TotalRating   int64
	AverageRating float64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// DecreaseStock списывает qty единиц. Сток никогда не уходит в минус:
// при нехватке возвращается ErrInsufficientStock без изменения состояния.
func (p *Product) DecreaseStock(qty int32) error {
	if p.Stock < qty {
		return fmt.Errorf("%w: product %s has %d, requested %d", ErrInsufficientStock, p.ID, p.Stock, qty)
	}
	p.Stock -= qty
	return nil
}

// IncreaseStock возвращает qty единиц на склад (restock или откат списания).
func (p *Product) IncreaseStock(qty int32) {
	p.Stock += qty
}

// AddReviewRating учитывает новый отзыв в агрегатах.
func (p *Product) AddReviewRating(rating int32) {
	p.ReviewCount++
	p.TotalRating += int64(rating)
	p.recalcAverage()
}

// UpdateReviewRating заменяет старую оценку новой.
func (p *Product) UpdateReviewRating(oldRating, newRating int32) {
	p.TotalRating += int64(newRating) - int64(oldRating)
	if p.TotalRating < 0 {
		p.TotalRating = 0
	}
	p.recalcAverage()
}

// RemoveReviewRating убирает удалённый отзыв из агрегатов.
func (p *Product) RemoveReviewRating(rating int32) {
	if p.ReviewCount == 0 {
		return
	}
	p.ReviewCount--
	p.TotalRating -= int64(rating)
	if p.TotalRating < 0 {
		p.TotalRating = 0
	}
	p.recalcAverage()
}

// recalcAverage держит среднюю оценку с точностью до одного знака.
// Ноль отзывов означает среднюю 0.
func (p *Product) recalcAverage() {
	if p.ReviewCount == 0 {
		p.AverageRating = 0
		return
	}
	p.AverageRating = math.Round(float64(p.TotalRating)/float64(p.ReviewCount)*10) / 10
}
