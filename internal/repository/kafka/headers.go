package kafka

import (
	"context"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
)

// HeaderEventKind carries the security event kind so consumers can label
// spans and logs before decoding the payload.
const HeaderEventKind = "shortly-event-kind"

// headerCarrier lets the otel propagator read and write kafka headers in place.
type headerCarrier struct{ hs *[]kafka.Header }

func (c headerCarrier) Get(k string) string { return headerValue(*c.hs, k) }

func (c headerCarrier) Set(k, v string) {
	for i := range *c.hs {
		if (*c.hs)[i].Key == k {
			(*c.hs)[i].Value = []byte(v)
			return
		}
	}
	*c.hs = append(*c.hs, kafka.Header{Key: k, Value: []byte(v)})
}

func (c headerCarrier) Keys() []string {
	ks := make([]string, 0, len(*c.hs))
	for _, h := range *c.hs {
		ks = append(ks, h.Key)
	}
	return ks
}

func injectHeaders(ctx context.Context, kind string) []kafka.Header {
	var hs []kafka.Header
	if kind != "" {
		hs = append(hs, kafka.Header{Key: HeaderEventKind, Value: []byte(kind)})
	}
	otel.GetTextMapPropagator().Inject(ctx, headerCarrier{hs: &hs})
	return hs
}

func extractContext(ctx context.Context, hs []kafka.Header) context.Context {
	return otel.GetTextMapPropagator().Extract(ctx, headerCarrier{hs: &hs})
}

func headerValue(hs []kafka.Header, key string) string {
	for _, h := range hs {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
