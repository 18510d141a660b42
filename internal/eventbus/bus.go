package eventbus

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/flowershop/internal/domain"
)

// Handler обрабатывает одно доменное событие. Обработчик выполняется в
// собственной горутине после фиксации публикующего unit-of-work: его ошибка
// или паника не может откатить исходную команду.
type Handler func(ctx context.Context, event domain.Event)

// Observer получает тип события и длительность каждого завершившегося
// обработчика. Используется для гистограммы времени обработки.
type Observer func(eventKind string, d time.Duration)

// Bus — внутрипроцессная шина публикации/подписки с отложенной доставкой.
// События, опубликованные внутри unit-of-work, буферизуются и рассылаются
// только после Commit. Порядок обработчиков одного события не гарантируется.
type Bus struct {
	mu       sync.RWMutex
	handlers map[domain.EventKind][]Handler
	logger   *log.Entry
	observer Observer

	// wg учитывает горутины обработчиков; Wait используется тестами и shutdown.
	wg sync.WaitGroup
}

// Option настраивает Bus.
type Option func(*Bus)

// WithObserver задаёт наблюдателя длительности обработчиков.
func WithObserver(observer Observer) Option {
	return func(b *Bus) {
		b.observer = observer
	}
}

// New создаёт шину событий.
func New(logger *log.Entry, options ...Option) *Bus {
	if logger == nil {
		logger = log.New().WithField("component", "eventbus")
	}
	b := &Bus{
		handlers: make(map[domain.EventKind][]Handler),
		logger:   logger,
	}
	for _, option := range options {
		option(b)
	}
	return b
}

// Subscribe регистрирует обработчик для событий данного типа.
func (b *Bus) Subscribe(kind domain.EventKind, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[kind] = append(b.handlers[kind], handler)
}

// Begin открывает unit-of-work для публикации событий.
func (b *Bus) Begin() *Tx {
	return &Tx{bus: b}
}

// Wait блокируется до завершения всех запущенных обработчиков.
// Используется в тестах и при graceful shutdown.
func (b *Bus) Wait() {
	b.wg.Wait()
}

// dispatch рассылает событие всем подписчикам, каждому в своей горутине.
func (b *Bus) dispatch(event domain.Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Kind()]))
	copy(handlers, b.handlers[event.Kind()])
	b.mu.RUnlock()

	for _, handler := range handlers {
		b.wg.Add(1)
		go func(h Handler) {
			start := time.Now()
			defer b.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					b.logger.WithFields(log.Fields{
						"event_kind": event.Kind(),
						"panic":      r,
					}).Error("event handler panicked")
				}
				if b.observer != nil {
					b.observer(string(event.Kind()), time.Since(start))
				}
			}()
			h(context.Background(), event)
		}(handler)
	}
}

// Tx буферизует события до фиксации. Реализует domain.EventPublisher.
type Tx struct {
	bus       *Bus
	events    []domain.Event
	committed bool
}

// Publish добавляет событие в буфер. Доставка откладывается до Commit.
func (t *Tx) Publish(event domain.Event) {
	if t.committed {
		// Публикация после фиксации — ошибка программиста; доставляем сразу,
		// чтобы событие не потерялось.
		t.bus.logger.WithField("event_kind", event.Kind()).Warn("publish after commit, dispatching immediately")
		t.bus.dispatch(event)
		return
	}
	t.events = append(t.events, event)
}

// Commit фиксирует unit-of-work и асинхронно рассылает накопленные события.
func (t *Tx) Commit() {
	if t.committed {
		return
	}
	t.committed = true
	for _, event := range t.events {
		t.bus.dispatch(event)
	}
	t.events = nil
}

// Rollback отбрасывает накопленные события без доставки.
func (t *Tx) Rollback() {
	if t.committed {
		return
	}
	t.committed = true
	t.events = nil
}

var _ domain.EventPublisher = (*Tx)(nil)
