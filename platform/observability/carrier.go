package observability

import (
	"google.golang.org/grpc/metadata"
)

// metadataCarrier адаптирует metadata.MD к propagation.TextMapCarrier (ключи lowercase)
type metadataCarrier metadata.MD

// NewMetadataCarrier carrier поверх incoming или outgoing metadata
func NewMetadataCarrier(md metadata.MD) metadataCarrier {
	if md == nil {
		md = metadata.MD{}
	}
	return metadataCarrier(md)
}

func (c metadataCarrier) Get(key string) string {
	if vals := metadata.MD(c).Get(key); len(vals) > 0 {
		return vals[0]
	}
	return ""
}

func (c metadataCarrier) Set(key, value string) {
	metadata.MD(c).Set(key, value)
}

func (c metadataCarrier) Keys() []string {
	out := make([]string, 0, len(c))
	for k := range c {
		out = append(out, k)
	}
	return out
}
