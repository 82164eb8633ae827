// Package tracing holds the span conventions shared by the application services.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys.
const (
	AttrTripID       = "planner.trip.id"
	AttrDayID        = "planner.day.id"
	AttrItemID       = "planner.item.id"
	AttrDependencyID = "planner.dependency.id"
	AttrErrorType    = "error.type"
)

// Tracer returns a tracer from the global provider. It is a no-op until the host installs a provider.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// Start opens a span named prefix.op.
func Start(ctx context.Context, tracer trace.Tracer, prefix, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, prefix+"."+op, trace.WithAttributes(attrs...))
}

// End records err on the span, if any, and ends it.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String(AttrErrorType, fmt.Sprintf("%T", err)))
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
