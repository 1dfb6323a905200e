package pdfask

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/m-mizutani/pdfask"

// WithTracerProvider sets the provider for analysis spans. Default: the
// global provider, which is a no-op until one is installed.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(a *Analyzer) {
		a.tracer = tp.Tracer(instrumentationName)
	}
}

func defaultTracer() trace.Tracer {
	return otel.GetTracerProvider().Tracer(instrumentationName)
}

func (a *Analyzer) startSpan(ctx context.Context, doc PDF, instruction string) (context.Context, trace.Span) {
	return a.tracer.Start(ctx, "analyze",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.Int("pdfask.document.size", len(doc.Data())),
			attribute.Int("pdfask.instruction.length", len(instruction)),
		),
	)
}

func endSpan(span trace.Span, resp *Response, err error) {
	defer span.End()

	if resp != nil {
		span.SetAttributes(
			attribute.Int("llm.input_tokens", resp.InputToken),
			attribute.Int("llm.output_tokens", resp.OutputToken),
		)
	}
	if err != nil {
		span.SetAttributes(attribute.String("pdfask.error.kind", string(KindOf(err))))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
