package nav

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/gradbook-dev/gradbook/pkg/route"
)

// tracerName identifies router spans. The tracer comes from the global
// provider; configure that in main() before serving.
const tracerName = "gradbook/nav"

// startDispatchSpan opens a span for one router invocation. Actor ids are
// deliberately not recorded; the route kind and raw fragment are.
func startDispatchSpan(ctx context.Context, rt route.Route) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "nav.dispatch "+string(rt.Name),
		trace.WithAttributes(
			attribute.String("nav.route", string(rt.Name)),
			attribute.String("nav.fragment", rt.Fragment),
		),
	)
}

// endDispatchSpan closes a dispatch span with its outcome.
func endDispatchSpan(span trace.Span, status string, recovered any) {
	span.SetAttributes(attribute.String("nav.status", status))
	if recovered != nil {
		span.SetStatus(codes.Error, "dispatch panicked")
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
