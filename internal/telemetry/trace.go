package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer names used across courtbook.
const (
	TracerRoles      = "courtbook/roles"
	TracerSession    = "courtbook/session"
	TracerAuthClient = "courtbook/authclient"
	TracerDashboard  = "courtbook/dashboard"
)

// StartSpan creates a new span for an operation.
//
//	ctx, span := telemetry.StartSpan(ctx, telemetry.TracerRoles, "roles.fetch",
//	    attribute.String(telemetry.AttrPrincipalID, identifier),
//	)
//	defer span.End()
func StartSpan(ctx context.Context, tracerName, spanName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := otel.Tracer(tracerName)
	return tracer.Start(ctx, spanName, trace.WithAttributes(attrs...))
}

// RecordError records an error on the span and sets the span status to error.
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// AddEvent adds a named event to the span with optional attributes.
func AddEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// Common attribute keys
const (
	AttrPrincipalID   = "principal.id"
	AttrPrincipalRole = "principal.role"

	AttrGuardKind    = "guard.kind"
	AttrGuardOutcome = "guard.outcome"

	AttrRequestID    = "request.id"
	AttrRequiresAuth = "request.requires_auth"

	AttrAuthFailure = "auth.failure"
)
