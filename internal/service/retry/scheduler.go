package retry

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/flowershop/internal/domain"
	"github.com/vladislavdragonenkov/flowershop/internal/metrics"
)

const (
	defaultInterval   = 60 * time.Second
	defaultMaxRetries = 5
)

// Func выполняет одну повторную попытку компенсации из записи журнала.
type Func func(ctx context.Context, failureLog domain.FailureLog) error

// Options задаёт параметры планировщика повторов.
type Options struct {
	Logger     *log.Entry
	Interval   time.Duration
	MaxRetries int32
}

// Option настраивает Scheduler.
type Option func(*Options)

// WithLogger задаёт logger планировщика.
func WithLogger(logger *log.Entry) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// WithInterval задаёт период опроса журнала сбоев.
func WithInterval(interval time.Duration) Option {
	return func(opts *Options) {
		opts.Interval = interval
	}
}

// WithMaxRetries задаёт лимит попыток до терминального FAILED.
func WithMaxRetries(maxRetries int32) Option {
	return func(opts *Options) {
		opts.MaxRetries = maxRetries
	}
}

// Scheduler периодически перечитывает журнал сбоев и повторяет застрявшие
// компенсации. Стратегия повтора выбирается по домену записи; запись,
// исчерпавшая лимит, переводится в FAILED и ждёт оператора.
type Scheduler struct {
	failures   domain.FailureLogRepository
	strategies map[string]Func
	logger     *log.Entry
	interval   time.Duration
	maxRetries int32
	metrics    *metrics.FulfillmentMetrics
}

// NewScheduler создаёт планировщик повторов.
func NewScheduler(failures domain.FailureLogRepository, options ...Option) *Scheduler {
	opts := Options{
		Interval:   defaultInterval,
		MaxRetries: defaultMaxRetries,
	}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "retry-scheduler")
	}
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = defaultMaxRetries
	}

	return &Scheduler{
		failures:   failures,
		strategies: make(map[string]Func),
		logger:     logger,
		interval:   opts.Interval,
		maxRetries: opts.MaxRetries,
		metrics:    metrics.NewFulfillmentMetrics(),
	}
}

// NewSchedulerWithoutMetrics создаёт планировщик без метрик (для тестов).
func NewSchedulerWithoutMetrics(failures domain.FailureLogRepository, options ...Option) *Scheduler {
	s := NewScheduler(failures, options...)
	s.metrics = nil
	return s
}

// Register привязывает стратегию повтора к домену журнала. Регистрация
// выполняется при сборке приложения, до запуска планировщика.
func (s *Scheduler) Register(domainTag string, fn Func) {
	s.strategies[domainTag] = fn
}

// Run запускает периодический опрос журнала до отмены ctx.
func (s *Scheduler) Run(ctx context.Context) {
	if s.failures == nil {
		s.logger.Warn("планировщик повторов выключен: репозиторий журнала не задан")
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.ProcessOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.ProcessOnce(ctx)
		}
	}
}

// ProcessOnce выполняет один цикл повторов.
func (s *Scheduler) ProcessOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	pending, err := s.failures.ListPending()
	if err != nil {
		s.logger.WithError(err).Warn("не удалось прочитать журнал сбоев")
		return
	}
	if s.metrics != nil {
		s.metrics.SetPendingFailureLogs(len(pending))
	}
	if len(pending) == 0 {
		return
	}

	s.logger.WithField("pending", len(pending)).Info("повторяем застрявшие компенсации")
	for _, failureLog := range pending {
		if ctx.Err() != nil {
			return
		}
		s.retryOne(ctx, failureLog)
	}

	if s.metrics != nil {
		if left, err := s.failures.ListPending(); err == nil {
			s.metrics.SetPendingFailureLogs(len(left))
		}
	}
}

func (s *Scheduler) retryOne(ctx context.Context, failureLog domain.FailureLog) {
	entry := s.logger.WithFields(log.Fields{
		"failure_id":   failureLog.ID,
		"domain":       failureLog.Domain,
		"reference_id": failureLog.ReferenceID,
		"retry_count":  failureLog.RetryCount,
	})

	if failureLog.Exhausted(s.maxRetries) {
		failureLog.MarkFailed()
		if err := s.failures.Save(failureLog); err != nil {
			entry.WithError(err).Error("не удалось зафиксировать исчерпание повторов")
			return
		}
		s.recordAttempt("exhausted")
		entry.Error("лимит повторов исчерпан, требуется ручное вмешательство")
		return
	}

	strategy, ok := s.strategies[failureLog.Domain]
	if !ok {
		failureLog.IncrementRetry()
		if err := s.failures.Save(failureLog); err != nil {
			entry.WithError(err).Error("не удалось сохранить запись журнала")
			return
		}
		s.recordAttempt("no_strategy")
		entry.Warn("стратегия повтора для домена не зарегистрирована")
		return
	}

	if err := strategy(ctx, failureLog); err != nil {
		failureLog.IncrementRetry()
		if saveErr := s.failures.Save(failureLog); saveErr != nil {
			entry.WithError(saveErr).Error("не удалось сохранить запись журнала")
			return
		}
		s.recordAttempt("error")
		entry.WithError(err).Warn("повтор компенсации не удался")
		return
	}

	failureLog.MarkResolved()
	if err := s.failures.Save(failureLog); err != nil {
		entry.WithError(err).Error("не удалось зафиксировать успешный повтор")
		return
	}
	s.recordAttempt("resolved")
	entry.Info("компенсация доведена до конца")
}

func (s *Scheduler) recordAttempt(result string) {
	if s.metrics != nil {
		s.metrics.RecordRetryAttempt(result)
	}
}
