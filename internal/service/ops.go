package service

import (
	"context"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// begin opens a span for a service operation. The returned func ends it and
// counts the outcome; call it with the operation's final error.
func begin(ctx context.Context, tracer trace.Tracer, operation string) (context.Context, func(error)) {
	ctx, span := tracer.Start(ctx, "service."+operation)
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		observe(operation, err)
		span.End()
	}
}
