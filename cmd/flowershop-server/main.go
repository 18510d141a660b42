package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/flowershop/internal/app"
	"github.com/vladislavdragonenkov/flowershop/internal/version"
)

const (
	envMetricsAddr      = "FLOWERSHOP_METRICS_ADDR"
	envPostgresDSN      = "FLOWERSHOP_POSTGRES_DSN"
	envRedisAddr        = "FLOWERSHOP_REDIS_ADDR"
	envKafkaBrokers     = "FLOWERSHOP_KAFKA_BROKERS"
	envRetryInterval    = "FLOWERSHOP_RETRY_INTERVAL"
	envRetryMaxAttempts = "FLOWERSHOP_RETRY_MAX_ATTEMPTS"
)

// envLookup абстрагирует os.LookupEnv для тестов.
type envLookup func(key string) (string, bool)

// setupLogger настраивает формат и уровень логирования для сервиса.
func setupLogger() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)
}

// readConfigFromEnv применяет переменные окружения поверх дефолтов.
// Некорректные значения не прерывают запуск, а попадают в warnings.
func readConfigFromEnv(lookup envLookup) (app.Config, []string) {
	cfg := app.DefaultConfig()
	var warnings []string

	if v, ok := lookup(envMetricsAddr); ok && strings.TrimSpace(v) != "" {
		cfg.MetricsAddr = strings.TrimSpace(v)
	}
	if v, ok := lookup(envPostgresDSN); ok {
		cfg.PostgresDSN = strings.TrimSpace(v)
	}
	if v, ok := lookup(envRedisAddr); ok {
		cfg.RedisAddr = strings.TrimSpace(v)
	}
	if v, ok := lookup(envKafkaBrokers); ok {
		cfg.KafkaBrokers = strings.TrimSpace(v)
	}

	if v, ok := lookup(envRetryInterval); ok && strings.TrimSpace(v) != "" {
		interval, err := time.ParseDuration(strings.TrimSpace(v))
		switch {
		case err != nil:
			warnings = append(warnings, fmt.Sprintf("%s: %v", envRetryInterval, err))
		case interval <= 0:
			warnings = append(warnings, fmt.Sprintf("%s: must be positive, got %s", envRetryInterval, interval))
		default:
			cfg.RetryInterval = interval
		}
	}

	if v, ok := lookup(envRetryMaxAttempts); ok && strings.TrimSpace(v) != "" {
		attempts, err := strconv.Atoi(strings.TrimSpace(v))
		switch {
		case err != nil:
			warnings = append(warnings, fmt.Sprintf("%s: %v", envRetryMaxAttempts, err))
		case attempts <= 0:
			warnings = append(warnings, fmt.Sprintf("%s: must be positive, got %d", envRetryMaxAttempts, attempts))
		default:
			cfg.RetryMaxAttempts = attempts
		}
	}

	return cfg, warnings
}

func main() {
	setupLogger()

	cfg, warnings := readConfigFromEnv(os.LookupEnv)
	for _, warning := range warnings {
		log.Warn(warning)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"metrics_addr": cfg.MetricsAddr,
		"version":      version.GetVersion(),
	}).Info("запускаем flowershop-server")

	if err := app.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("приложение завершилось с ошибкой")
	}

	log.Info("flowershop-server остановлен")
}
