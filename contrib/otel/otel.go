// Package otel records OpenAI client operations as OpenTelemetry spans.
//
//	client := openai.New(key, openai.WithTelemetry(otel.NewHook(tp)))
package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/petal-labs/oai/core"
)

// ScopeName is the instrumentation scope of the spans.
const ScopeName = "github.com/petal-labs/oai/contrib/otel"

// Hook is a core.TelemetryHook that emits one client span per operation.
// Spans are created when the operation ends, back-dated to its start.
type Hook struct {
	tracer trace.Tracer
}

// NewHook creates a hook using a tracer from tp.
func NewHook(tp trace.TracerProvider) *Hook {
	return &Hook{tracer: tp.Tracer(ScopeName)}
}

// OnRequestStart does nothing; the span is recorded at the end.
func (h *Hook) OnRequestStart(core.RequestStartEvent) {}

// OnRequestEnd records the finished operation.
func (h *Hook) OnRequestEnd(e core.RequestEndEvent) {
	attrs := []attribute.KeyValue{
		attribute.String("gen_ai.system", "openai"),
		attribute.String("gen_ai.operation.name", e.Operation),
		attribute.Bool("oai.stream", e.Stream),
	}
	if e.Model != "" {
		attrs = append(attrs, attribute.String("gen_ai.request.model", e.Model))
	}
	if e.Status != 0 {
		attrs = append(attrs, attribute.Int("http.response.status_code", e.Status))
	}
	if e.Usage.TotalTokens > 0 {
		attrs = append(attrs,
			attribute.Int("gen_ai.usage.input_tokens", e.Usage.PromptTokens),
			attribute.Int("gen_ai.usage.output_tokens", e.Usage.CompletionTokens),
		)
	}

	_, span := h.tracer.Start(context.Background(), "openai "+e.Operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithTimestamp(e.Start),
		trace.WithAttributes(attrs...),
	)
	if e.Err != nil {
		span.SetAttributes(attribute.String("error.type", core.KindOf(e.Err).String()))
		span.RecordError(e.Err)
		span.SetStatus(codes.Error, core.KindOf(e.Err).String())
	}
	span.End(trace.WithTimestamp(e.End))
}

var _ core.TelemetryHook = (*Hook)(nil)
