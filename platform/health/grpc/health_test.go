package grpc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/health/grpc_health_v1"
)

func TestHealth_Transitions(t *testing.T) {
	ctx := context.Background()
	h := New(grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	check := func() grpc_health_v1.HealthCheckResponse_ServingStatus {
		resp, err := h.Server().Check(ctx, &grpc_health_v1.HealthCheckRequest{})
		require.NoError(t, err)
		return resp.GetStatus()
	}

	require.Equal(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING, check())

	h.SetServing("")
	require.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, check())

	h.SetNotServing("")
	require.Equal(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING, check())
}
