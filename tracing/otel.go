// Package tracing wires OpenTelemetry into workflow invocations: one span
// per invocation and one span event per agent invocation.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/hupe1980/agentweave/core"
)

// InstrumentationName names the tracer used by AgentWeave.
const InstrumentationName = "github.com/hupe1980/agentweave"

// ProviderOptions configures NewProvider.
type ProviderOptions struct {
	// Exporter receives finished spans in batches. Without one spans are
	// sampled and propagated but not exported.
	Exporter sdktrace.SpanExporter
	// SampleRatio is the fraction of root spans sampled. Defaults to 1.
	SampleRatio float64
}

// NewProvider creates a tracer provider for serviceName.
func NewProvider(ctx context.Context, serviceName string, optFns ...func(o *ProviderOptions)) (*sdktrace.TracerProvider, error) {
	opts := ProviderOptions{SampleRatio: 1}
	for _, fn := range optFns {
		fn(&opts)
	}

	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(serviceName)))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tpOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(opts.SampleRatio))),
		sdktrace.WithResource(res),
	}

	if opts.Exporter != nil {
		tpOpts = append(tpOpts, sdktrace.WithBatcher(opts.Exporter))
	}

	return sdktrace.NewTracerProvider(tpOpts...), nil
}

// Install makes tp the process-wide tracer provider.
func Install(tp trace.TracerProvider) { otel.SetTracerProvider(tp) }

// Tracer starts invocation spans and implements core.Hook to annotate them.
type Tracer struct {
	tracer trace.Tracer
}

var _ core.Hook = (*Tracer)(nil)

// NewTracer creates a Tracer on tp, or on the global provider when tp is nil.
func NewTracer(tp trace.TracerProvider) *Tracer {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	return &Tracer{tracer: tp.Tracer(InstrumentationName)}
}

// StartInvocation starts the root span of one workflow invocation.
func (t *Tracer) StartInvocation(ctx context.Context, workflow, invocationID string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "workflow "+workflow,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("agentweave.workflow", workflow),
			attribute.String("agentweave.invocation_id", invocationID),
		),
	)
}

// End records err on span, if any, and ends it.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("agentweave.error_kind", core.KindOf(err)))
	} else {
		span.SetStatus(codes.Ok, "")
	}

	span.End()
}

// BeforeAgent implements core.Hook.
func (t *Tracer) BeforeAgent(ic *core.InvocationContext, agent core.Agent) error {
	trace.SpanFromContext(ic.Context).AddEvent("agent.start", trace.WithAttributes(agentAttrs(ic, agent)...))
	return nil
}

// AfterAgent implements core.Hook.
func (t *Tracer) AfterAgent(ic *core.InvocationContext, agent core.Agent, runErr error) error {
	attrs := agentAttrs(ic, agent)
	if runErr != nil {
		attrs = append(attrs,
			attribute.String("agentweave.error_kind", core.KindOf(runErr)),
			attribute.String("agentweave.error", runErr.Error()),
		)
	}

	trace.SpanFromContext(ic.Context).AddEvent("agent.end", trace.WithAttributes(attrs...))

	return nil
}

func agentAttrs(ic *core.InvocationContext, agent core.Agent) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("agentweave.agent", agent.Name()),
		attribute.String("agentweave.branch", ic.Branch),
	}
}
