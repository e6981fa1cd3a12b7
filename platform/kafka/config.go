package kafka

import (
	"time"
)

// Config подключение к Kafka для producer'ов сервисов
type Config struct {
	// Brokers через запятую: локально localhost:19092, в docker kafka:9092
	Brokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	// WriteTimeout таймаут записи одного batch
	WriteTimeout time.Duration `env:"KAFKA_WRITE_TIMEOUT" envDefault:"10s"`
	// RequiredAcks -1 все реплики, 1 только лидер
	RequiredAcks int `env:"KAFKA_REQUIRED_ACKS" envDefault:"-1"`
}

// DefaultConfig дефолты для локальной разработки; перекрываются LoadEnv
func DefaultConfig() Config {
	return Config{
		Brokers:      []string{"localhost:19092"},
		WriteTimeout: 10 * time.Second,
		RequiredAcks: -1,
	}
}
