package grpc

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// Health обёртка над стандартным gRPC health service
type Health struct {
	srv *health.Server
}

// New создаёт Health с начальным статусом сервера ("" = overall).
// Для readiness стартуем с NOT_SERVING и переключаемся после проверки зависимостей
func New(initialStatus grpc_health_v1.HealthCheckResponse_ServingStatus) *Health {
	srv := health.NewServer()
	srv.SetServingStatus("", initialStatus)
	return &Health{srv: srv}
}

// Register регистрирует health service; вызывать до grpcSrv.Serve
func (h *Health) Register(grpcSrv *grpc.Server) {
	grpc_health_v1.RegisterHealthServer(grpcSrv, h.srv)
}

// SetServing статус SERVING для serviceName ("" = overall)
func (h *Health) SetServing(serviceName string) {
	h.srv.SetServingStatus(serviceName, grpc_health_v1.HealthCheckResponse_SERVING)
}

// SetNotServing статус NOT_SERVING для serviceName ("" = overall); используется при shutdown
func (h *Health) SetNotServing(serviceName string) {
	h.srv.SetServingStatus(serviceName, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
}

// Server стандартный health.Server (для Check в тестах)
func (h *Health) Server() grpc_health_v1.HealthServer {
	return h.srv
}
