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

// TokenCache реализует repository.PaymentMethodTokenCache
// Токен живёт под ключом pm_token_<token>_<payment_method> с TTL, выставленным при создании
type TokenCache struct {
	client redis.Cmdable
	logger *zap.Logger
}

// NewTokenCache создаёт новый Redis кэш токенов
func NewTokenCache(client redis.Cmdable, logger *zap.Logger) *TokenCache {
	return &TokenCache{
		client: client,
		logger: logger,
	}
}

// TokenKey ключ временного токена способа оплаты
func TokenKey(token, paymentMethod string) string {
	return fmt.Sprintf("pm_token_%s_%s", token, paymentMethod)
}

// GetPaymentMethodData получает данные способа оплаты по токену
func (c *TokenCache) GetPaymentMethodData(ctx context.Context, token, paymentMethod string) (json.RawMessage, error) {
	raw, err := c.client.Get(ctx, TokenKey(token, paymentMethod)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, repository.ErrTokenNotFound
		}
		c.logger.Error("failed to get payment method token from redis",
			zap.Error(err),
			zap.String("payment_method", paymentMethod),
		)
		return nil, fmt.Errorf("failed to get payment method token: %w", err)
	}

	if !json.Valid(raw) {
		return nil, fmt.Errorf("payment method token %s holds invalid json", paymentMethod)
	}
	return json.RawMessage(raw), nil
}
