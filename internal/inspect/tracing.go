package inspect

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/minio/slabpool/handle"
)

const (
	serviceName    = "slabpool"
	serviceVersion = "0.1.0"
)

// Tracing is an Inspector that records the three lifecycle events as
// span events on one long-lived root span per pool, with attributes
// carrying a human-readable slab/chunk/address identifier. It adapts
// the pattern of a per-request HTTP span into a per-pool diagnostic
// span that lives for the pool's whole lifetime.
type Tracing struct {
	tracer   trace.Tracer
	provider *tracesdk.TracerProvider
	ctx      context.Context
	span     trace.Span
}

// NewTracing dials a Jaeger collector and opens the pool's root span.
// Callers that don't want a live Jaeger endpoint should use Noop
// instead; Tracing is strictly an opt-in, out-of-band observer.
func NewTracing(jaegerEndpoint, poolName string) (*Tracing, error) {
	exp, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(jaegerEndpoint)))
	if err != nil {
		return nil, fmt.Errorf("slabpool: inspect: create jaeger exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
			attribute.String("pool.name", poolName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("slabpool: inspect: build resource: %w", err)
	}

	provider := tracesdk.NewTracerProvider(
		tracesdk.WithBatcher(exp),
		tracesdk.WithResource(res),
	)
	otel.SetTracerProvider(provider)

	tracer := provider.Tracer(serviceName)
	ctx, span := tracer.Start(context.Background(), "pool."+poolName)

	return &Tracing{tracer: tracer, provider: provider, ctx: ctx, span: span}, nil
}

// Shutdown flushes and closes the tracer provider, ending the pool's
// root span. Callers should invoke this from the same place they call
// the pool's own teardown.
func (t *Tracing) Shutdown(ctx context.Context) error {
	t.span.End()
	return t.provider.Shutdown(ctx)
}

func (t *Tracing) BlockCreated(slab uint32, itemSize uint32, total uint32, bytes int) {
	t.span.AddEvent("block.created", trace.WithAttributes(
		attribute.Int64("slab", int64(slab)),
		attribute.Int64("itemsize", int64(itemSize)),
		attribute.Int64("total", int64(total)),
		attribute.Int64("bytes", int64(bytes)),
		attribute.String("access", "no-access"),
	))
}

func (t *Tracing) Allocated(h handle.Handle, slab, chunk uint32, size uint32) {
	t.span.AddEvent("chunk.allocated", trace.WithAttributes(
		attribute.String("identifier", identifier(slab, chunk, h, false)),
		attribute.Int64("slab", int64(slab)),
		attribute.Int64("chunk", int64(chunk)),
		attribute.Int64("size", int64(size)),
	))
}

func (t *Tracing) Freed(h handle.Handle, slab, chunk uint32) {
	t.span.AddEvent("chunk.freed", trace.WithAttributes(
		attribute.String("identifier", identifier(slab, chunk, h, true)),
		attribute.Int64("slab", int64(slab)),
		attribute.Int64("chunk", int64(chunk)),
		attribute.String("access", "no-access"),
	))
}

// identifier builds a human-readable handle description, flipping to
// the "deleted" variant on free.
func identifier(slab, chunk uint32, h handle.Handle, deleted bool) string {
	kind := "live"
	if deleted {
		kind = "deleted"
	}
	return fmt.Sprintf("slab=%d chunk=%d addr=%#x [%s]", slab, chunk, h.Raw(), kind)
}
