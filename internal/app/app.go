package app

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	healthcheck "github.com/vladislavdragonenkov/flowershop/internal/health"
	"github.com/vladislavdragonenkov/flowershop/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/flowershop/internal/service/cart"
	"github.com/vladislavdragonenkov/flowershop/internal/service/compensation"
	"github.com/vladislavdragonenkov/flowershop/internal/service/delivery"
	"github.com/vladislavdragonenkov/flowershop/internal/service/inventory"
	"github.com/vladislavdragonenkov/flowershop/internal/service/order"
	"github.com/vladislavdragonenkov/flowershop/internal/service/payment"
	"github.com/vladislavdragonenkov/flowershop/internal/service/retry"
	"github.com/vladislavdragonenkov/flowershop/internal/service/review"
	"github.com/vladislavdragonenkov/flowershop/internal/version"
)

// Services — собранная сага: сервисы и обработчики, подписанные на одну
// шину. Поля экспортированы для интеграционных тестов.
type Services struct {
	Orders     *order.Service
	Payments   *payment.Coordinator
	Deliveries *delivery.Service
	Reviews    *review.Service
	Retry      *retry.Scheduler
}

// BuildServices подписывает все обработчики саги на шину зависимостей.
// Порядок подписки не важен: события раскладываются по типам.
func BuildServices(deps *Dependencies, cfg Config) *Services {
	logger := deps.Logger

	orderSvc := order.NewService(deps.Orders, deps.Bus, logger.WithField("component", "order-service"))

	// NOTE: шлюз PG мокается; в production здесь клиент реального провайдера.
	gateway := &payment.MockGateway{}
	paymentCoord := payment.NewCoordinator(orderSvc, gateway, deps.Bus, logger.WithField("component", "payment-coordinator"))

	inventory.NewHandler(deps.Stock, deps.Bus, logger.WithField("component", "inventory-handler"))
	deliverySvc := delivery.NewService(deps.Deliveries, deps.Bus, logger.WithField("component", "delivery-service"))

	reviewSvc := review.NewService(deps.Reviews, deps.Bus, logger.WithField("component", "review-service"))
	review.NewHideHandler(deps.Reviews, deps.Bus, logger.WithField("component", "review-hide-handler"))
	review.NewStatsHandler(deps.Products, deps.Bus, logger.WithField("component", "review-stats-handler"))

	cart.NewHandler(deps.Carts, deps.Bus, logger.WithField("component", "cart-handler"))
	compensation.NewCoordinator(orderSvc, paymentCoord, deps.Failures, deps.Bus, logger.WithField("component", "compensation-coordinator"))

	scheduler := retry.NewScheduler(deps.Failures,
		retry.WithLogger(logger.WithField("component", "retry-scheduler")),
		retry.WithInterval(cfg.RetryInterval),
		retry.WithMaxRetries(int32(cfg.RetryMaxAttempts)),
	)
	scheduler.Register(compensation.DomainOrder, retry.NewOrderStrategy(orderSvc))

	return &Services{
		Orders:     orderSvc,
		Payments:   paymentCoord,
		Deliveries: deliverySvc,
		Reviews:    reviewSvc,
		Retry:      scheduler,
	}
}

// Run собирает приложение и блокируется до отмены контекста.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	deps, err := NewDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	services := BuildServices(deps, cfg)

	// Мост во внешний Kafka (опционально). Внутренняя шина остаётся
	// источником истины, публикация наружу best-effort.
	var producer *kafka.Producer
	if cfg.KafkaBrokers != "" {
		brokers := strings.Split(cfg.KafkaBrokers, ",")
		p, err := kafka.NewProducer(brokers)
		if err != nil {
			logger.WithError(err).Warn("kafka недоступен, продолжаем без публикации наружу")
		} else {
			producer = p
			kafka.NewBridge(producer, deps.Bus, logger.WithField("component", "kafka-bridge"))
			logger.WithField("brokers", brokers).Info("kafka producer инициализирован")
		}
	}

	go services.Retry.Run(ctx)

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	deps.RegisterHealthChecks(healthHandler)
	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	<-ctx.Done()
	logger.Info("получен сигнал остановки")

	// Даём обработчикам дослать буферизованные события.
	deps.Bus.Wait()
	shutdownHTTP(metricsSrv, logger)

	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.WithError(err).Warn("ошибка закрытия kafka producer")
		}
	}

	return ctx.Err()
}

// startMetricsServer запускает HTTP-обработчики /metrics и health-проверок.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("metrics shutdown with error")
	}
}
