package app

import "time"

// Config описывает настройки запуска приложения. Пустые адреса внешних
// систем означают работу на in-memory реализациях (dev/demo режим).
type Config struct {
	// MetricsAddr — адрес HTTP-сервера метрик и health-проверок.
	MetricsAddr string

	// PostgresDSN — строка подключения к PostgreSQL. Пустая строка
	// переключает хранилище на память.
	PostgresDSN string

	// RedisAddr — адрес Redis для корзин. Пустая строка — память.
	RedisAddr string

	// KafkaBrokers — список брокеров через запятую. Пустая строка
	// отключает публикацию интеграционных событий.
	KafkaBrokers string

	// RetryInterval — период обхода журнала сбоев планировщиком.
	RetryInterval time.Duration

	// RetryMaxAttempts — число попыток до перевода записи в FAILED.
	RetryMaxAttempts int
}

// DefaultConfig возвращает конфигурацию для локального запуска.
func DefaultConfig() Config {
	return Config{
		MetricsAddr:      ":9090",
		RetryInterval:    60 * time.Second,
		RetryMaxAttempts: 5,
	}
}
