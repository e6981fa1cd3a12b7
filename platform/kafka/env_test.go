package kafka

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadEnv(t *testing.T) {
	t.Run("defaults kept", func(t *testing.T) {
		cfg := DefaultConfig()

		require.NoError(t, LoadEnv(&cfg))
		require.Equal(t, []string{"localhost:19092"}, cfg.Brokers)
		require.Equal(t, 10*time.Second, cfg.WriteTimeout)
		require.Equal(t, -1, cfg.RequiredAcks)
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")
		t.Setenv("KAFKA_WRITE_TIMEOUT", "3s")
		t.Setenv("KAFKA_REQUIRED_ACKS", "1")
		cfg := DefaultConfig()

		require.NoError(t, LoadEnv(&cfg))
		require.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Brokers)
		require.Equal(t, 3*time.Second, cfg.WriteTimeout)
		require.Equal(t, 1, cfg.RequiredAcks)
	})

	t.Run("invalid acks", func(t *testing.T) {
		t.Setenv("KAFKA_REQUIRED_ACKS", "2")
		cfg := DefaultConfig()

		require.Error(t, LoadEnv(&cfg))
	})
}
