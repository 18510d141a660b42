package app

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/flowershop/internal/domain"
	"github.com/vladislavdragonenkov/flowershop/internal/eventbus"
	"github.com/vladislavdragonenkov/flowershop/internal/health"
	"github.com/vladislavdragonenkov/flowershop/internal/metrics"
	"github.com/vladislavdragonenkov/flowershop/internal/storage/memory"
	"github.com/vladislavdragonenkov/flowershop/internal/storage/postgres"
	rediscart "github.com/vladislavdragonenkov/flowershop/internal/storage/redis"
)

// Dependencies содержит шину событий и хранилища приложения.
// Выбор между памятью и внешними системами определяется конфигом:
// пустой DSN или адрес включает in-memory реализацию.
type Dependencies struct {
	Bus        *eventbus.Bus
	Orders     domain.OrderRepository
	Products   domain.ProductRepository
	Stock      domain.StockService
	Deliveries domain.DeliveryRepository
	Reviews    domain.ReviewRepository
	Failures   domain.FailureLogRepository
	Carts      domain.CartStore
	Logger     *log.Entry

	store *postgres.Store
	cache *rediscart.CartStore
}

// NewDependencies создаёт зависимости приложения по конфигурации.
// При заданном PostgresDSN схема накатывается до актуальной версии.
func NewDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	busMetrics := metrics.NewFulfillmentMetrics()
	deps := &Dependencies{
		Bus: eventbus.New(logger.WithField("component", "eventbus"),
			eventbus.WithObserver(busMetrics.ObserveHandlerDuration)),
		Logger: logger,
	}

	if cfg.PostgresDSN != "" {
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureSchema(ctx); err != nil {
			_ = store.Close()
			return nil, err
		}
		products := postgres.NewProductRepository(store)
		deps.store = store
		deps.Orders = postgres.NewOrderRepository(store)
		deps.Products = products
		deps.Stock = products
		deps.Deliveries = postgres.NewDeliveryRepository(store)
		deps.Reviews = postgres.NewReviewRepository(store)
		deps.Failures = postgres.NewFailureLogRepository(store)
		logger.Info("хранилище: postgres")
	} else {
		products := memory.NewProductRepository()
		deps.Orders = memory.NewOrderRepository()
		deps.Products = products
		deps.Stock = products
		deps.Deliveries = memory.NewDeliveryRepository()
		deps.Reviews = memory.NewReviewRepository()
		deps.Failures = memory.NewFailureLogRepository()
		logger.Info("хранилище: in-memory")
	}

	if cfg.RedisAddr != "" {
		cache := rediscart.NewCartStore(cfg.RedisAddr)
		if err := cache.Ping(ctx); err != nil {
			logger.WithError(err).Warn("redis недоступен, корзины переключены на память")
			_ = cache.Close()
			deps.Carts = memory.NewCartStore()
		} else {
			deps.cache = cache
			deps.Carts = cache
			logger.WithField("addr", cfg.RedisAddr).Info("корзины: redis")
		}
	} else {
		deps.Carts = memory.NewCartStore()
	}

	return deps, nil
}

// RegisterHealthChecks добавляет проверки внешних систем в health handler.
func (d *Dependencies) RegisterHealthChecks(handler *health.Handler) {
	if d.store != nil {
		handler.RegisterChecker("postgres", health.NewSimpleChecker("postgres", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return d.store.Ping(ctx)
		}))
	}
	if d.cache != nil {
		handler.RegisterChecker("redis", health.NewSimpleChecker("redis", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return d.cache.Ping(ctx)
		}))
	}
}

// Close освобождает внешние соединения. Память закрывать нечем.
func (d *Dependencies) Close() {
	if d.cache != nil {
		if err := d.cache.Close(); err != nil {
			d.Logger.WithError(err).Warn("ошибка закрытия redis")
		}
	}
	if d.store != nil {
		if err := d.store.Close(); err != nil {
			d.Logger.WithError(err).Warn("ошибка закрытия postgres")
		}
	}
}
