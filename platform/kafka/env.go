package kafka

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// LoadEnv перекрывает поля cfg значениями из переменных окружения (env-теги)
func LoadEnv(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return err
	}
	switch cfg.RequiredAcks {
	case -1, 0, 1:
	default:
		return fmt.Errorf("invalid KAFKA_REQUIRED_ACKS: %d (must be -1, 0 or 1)", cfg.RequiredAcks)
	}
	return nil
}
