package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/shestoi/GoBigTech/services/payment/internal/repository"
)

// SurchargeCache реализует repository.SurchargeCache используя Redis hash
// Ключ surcharge_metadata_<attempt_id>, поле <payment_method>_<payment_method_type>, значение JSON
type SurchargeCache struct {
	client redis.Cmdable
	logger *zap.Logger
}

// NewSurchargeCache создаёт новый Redis кэш надбавок
func NewSurchargeCache(client redis.Cmdable, logger *zap.Logger) *SurchargeCache {
	return &SurchargeCache{
		client: client,
		logger: logger,
	}
}

// SurchargeKey ключ hash с надбавками attempt
func SurchargeKey(attemptID string) string {
	return fmt.Sprintf("surcharge_metadata_%s", attemptID)
}

// SurchargeField поле hash для пары способ оплаты / тип
func SurchargeField(paymentMethod, paymentMethodType string) string {
	return fmt.Sprintf("%s_%s", paymentMethod, paymentMethodType)
}

// GetSurcharge получает надбавку из hash; redis.Nil -> ErrSurchargeNotFound
func (c *SurchargeCache) GetSurcharge(ctx context.Context, attemptID, paymentMethod, paymentMethodType string) (repository.SurchargeDetails, error) {
	key := SurchargeKey(attemptID)
	field := SurchargeField(paymentMethod, paymentMethodType)

	raw, err := c.client.HGet(ctx, key, field).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			c.logger.Debug("surcharge not cached",
				zap.String("attempt_id", attemptID),
				zap.String("field", field),
			)
			return repository.SurchargeDetails{}, repository.ErrSurchargeNotFound
		}
		c.logger.Error("failed to get surcharge from redis",
			zap.Error(err),
			zap.String("attempt_id", attemptID),
		)
		return repository.SurchargeDetails{}, fmt.Errorf("failed to get surcharge: %w", err)
	}

	var details repository.SurchargeDetails
	if err := json.Unmarshal([]byte(raw), &details); err != nil {
		return repository.SurchargeDetails{}, fmt.Errorf("failed to decode surcharge: %w", err)
	}
	return details, nil
}
