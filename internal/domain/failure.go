package domain

import "time"

// FailureStatus описывает жизненный цикл записи журнала сбоев компенсаций.
type FailureStatus string

const (
	// FailureStatusPending — запись ждёт повторной попытки.
	FailureStatusPending FailureStatus = "pending"
	// FailureStatusResolved — повтор прошёл успешно, запись остаётся для аудита.
	FailureStatusResolved FailureStatus = "resolved"
	// FailureStatusFailed — лимит повторов исчерпан, требуется ручное вмешательство.
	FailureStatusFailed FailureStatus = "failed"
)

// FailureLog — долговременная запись о компенсации, завершившейся ошибкой.
// Последний рубеж перед тем, как сигнал был бы молча потерян.
type FailureLog struct {
	ID string
	// Domain — строковый тег, выбирающий стратегию повтора (например "ORDER").
	Domain string
	// ReferenceID — бизнес-ключ упавшей операции (номер заказа).
	ReferenceID  string
	ErrorMessage string
	// Payload — непрозрачный контекст, достаточный для повтора ("reason: ...").
	Payload    string
	Status     FailureStatus
	RetryCount int32
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// IncrementRetry увеличивает счётчик попыток. Счётчик монотонно растёт
// и никогда не сбрасывается.
func (f *FailureLog) IncrementRetry() {
	f.RetryCount++
}

// MarkResolved фиксирует успешный повтор.
func (f *FailureLog) MarkResolved() {
	f.Status = FailureStatusResolved
}

// MarkFailed переводит запись в терминальный статус после исчерпания лимита.
func (f *FailureLog) MarkFailed() {
	f.Status = FailureStatusFailed
}

// Exhausted сообщает, исчерпан ли лимит повторов.
func (f *FailureLog) Exhausted(maxRetries int32) bool {
	return f.RetryCount >= maxRetries
}
