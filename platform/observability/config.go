package observability

// Config конфигурация OpenTelemetry
type Config struct {
	Enabled bool
	// OTLPEndpoint адрес OTLP gRPC collector, общий для traces и metrics ("otel-collector:4317")
	OTLPEndpoint string
	// SamplingRatio доля корневых трасс (0..1)
	SamplingRatio         float64
	ServiceName           string
	DeploymentEnvironment string
	ServiceVersion        string
}
