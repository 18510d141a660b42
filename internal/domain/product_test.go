package domain_test

import (
	"errors"
	"testing"

	"github.com/vladislavdragonenkov/flowershop/internal/domain"
)

func TestProductDecreaseStock(t *testing.T) {
	p := domain.Product{ID: "product-1", Stock: 5}

	if err := p.DecreaseStock(3); err != nil {
		t.Fatalf("decrease: %v", err)
	}
	if p.Stock != 2 {
		t.Fatalf("expected stock 2, got %d", p.Stock)
	}

	err := p.DecreaseStock(3)
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	// Неудачное списание не меняет состояние.
	if p.Stock != 2 {
		t.Fatalf("expected stock unchanged, got %d", p.Stock)
	}
}

func TestProductReviewAggregates(t *testing.T) {
	p := domain.Product{ID: "product-1"}

	p.AddReviewRating(5)
	p.AddReviewRating(4)
	if p.ReviewCount != 2 || p.TotalRating != 9 || p.AverageRating != 4.5 {
		t.Fatalf("unexpected aggregates after add: %+v", p)
	}

	p.UpdateReviewRating(4, 2)
	if p.TotalRating != 7 || p.AverageRating != 3.5 {
		t.Fatalf("unexpected aggregates after update: %+v", p)
	}

	p.RemoveReviewRating(5)
	if p.ReviewCount != 1 || p.TotalRating != 2 || p.AverageRating != 2.0 {
		t.Fatalf("unexpected aggregates after remove: %+v", p)
	}

	p.RemoveReviewRating(2)
	if p.ReviewCount != 0 || p.AverageRating != 0 {
		t.Fatalf("expected empty aggregates, got %+v", p)
	}
}

func TestProductAverageRounding(t *testing.T) {
	p := domain.Product{ID: "product-1"}
	p.AddReviewRating(5)
	p.AddReviewRating(4)
	p.AddReviewRating(4)
	// 13/3 = 4.333... -> 4.3
	if p.AverageRating != 4.3 {
		t.Fatalf("expected 4.3, got %v", p.AverageRating)
	}
}

func TestFailureLogLifecycle(t *testing.T) {
	fl := domain.FailureLog{Status: domain.FailureStatusPending}

	for i := 0; i < 5; i++ {
		if fl.Exhausted(5) {
			t.Fatalf("not exhausted at %d attempts", fl.RetryCount)
		}
		fl.IncrementRetry()
	}
	if !fl.Exhausted(5) {
		t.Fatal("expected exhausted after 5 attempts")
	}

	fl.MarkFailed()
	if fl.Status != domain.FailureStatusFailed {
		t.Fatalf("expected failed, got %s", fl.Status)
	}
}

func TestReviewValidate(t *testing.T) {
	for _, rating := range []int32{1, 3, 5} {
		r := domain.Review{Rating: rating}
		if err := r.Validate(); err != nil {
			t.Fatalf("rating %d: %v", rating, err)
		}
	}
	for _, rating := range []int32{0, 6, -2} {
		r := domain.Review{Rating: rating}
		if !errors.Is(r.Validate(), domain.ErrRatingOutOfRange) {
			t.Fatalf("rating %d: expected ErrRatingOutOfRange", rating)
		}
	}
}
