package shutdown

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestManager_ShutdownReverseOrder(t *testing.T) {
	m := New(time.Second, zap.NewNop())

	var order []string
	for _, name := range []string{"postgres_pool", "redis_client", "http_server"} {
		m.Add(name, func(ctx context.Context) error {
			order = append(order, name)
			return nil
		})
	}

	require.NoError(t, m.Shutdown())
	require.Equal(t, []string{"http_server", "redis_client", "postgres_pool"}, order)
}

func TestManager_ShutdownContinuesOnError(t *testing.T) {
	m := New(time.Second, zap.NewNop())
	boom := errors.New("boom")

	called := false
	m.Add("first", func(ctx context.Context) error {
		called = true
		return nil
	})
	m.Add("second", func(ctx context.Context) error { return boom })

	err := m.Shutdown()

	require.ErrorIs(t, err, boom)
	require.ErrorContains(t, err, "second")
	require.True(t, called)
}

func TestManager_WaitReturnsOnContextCancel(t *testing.T) {
	m := New(time.Second, zap.NewNop())
	done := false
	m.Add("flag", func(ctx context.Context) error {
		done = true
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, m.Wait(ctx))
	require.True(t, done)
}

type stubGRPCServer struct {
	block   chan struct{}
	stopped bool
}

func (s *stubGRPCServer) GracefulStop() { <-s.block }
func (s *stubGRPCServer) Stop() {
	s.stopped = true
	close(s.block)
}

func TestShutdownGRPCServer_ForcedStop(t *testing.T) {
	srv := &stubGRPCServer{block: make(chan struct{})}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := ShutdownGRPCServer(srv)(ctx)

	require.Error(t, err)
	require.True(t, srv.stopped)
}
