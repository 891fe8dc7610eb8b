package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// RoleMetrics holds instruments for role fetches against the backend.
type RoleMetrics struct {
	FetchCounter  metric.Int64Counter
	FetchDuration metric.Float64Histogram
	FetchErrors   metric.Int64Counter
}

// NewRoleMetrics creates role-fetch instruments on the global meter provider.
func NewRoleMetrics() (*RoleMetrics, error) {
	meter := otel.Meter(TracerRoles)

	fetchCounter, err := meter.Int64Counter(
		"roles.fetch.count",
		metric.WithDescription("Total number of role fetches sent to the backend"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return nil, err
	}

	fetchDuration, err := meter.Float64Histogram(
		"roles.fetch.duration",
		metric.WithDescription("Role fetch duration"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000),
	)
	if err != nil {
		return nil, err
	}

	fetchErrors, err := meter.Int64Counter(
		"roles.fetch.error.count",
		metric.WithDescription("Total number of failed role fetches"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	return &RoleMetrics{
		FetchCounter:  fetchCounter,
		FetchDuration: fetchDuration,
		FetchErrors:   fetchErrors,
	}, nil
}

// RecordFetch records one settled role fetch. A nil receiver records nothing.
func (m *RoleMetrics) RecordFetch(ctx context.Context, durationMs float64, err error) {
	if m == nil {
		return
	}
	m.FetchCounter.Add(ctx, 1)
	m.FetchDuration.Record(ctx, durationMs)
	if err != nil {
		m.FetchErrors.Add(ctx, 1)
	}
}

// AuthMetrics holds instruments for sign-in attempts.
type AuthMetrics struct {
	AuthAttempts metric.Int64Counter
	AuthFailures metric.Int64Counter
}

// NewAuthMetrics creates sign-in instruments on the global meter provider.
func NewAuthMetrics() (*AuthMetrics, error) {
	meter := otel.Meter(TracerSession)

	authAttempts, err := meter.Int64Counter(
		"auth.attempt.count",
		metric.WithDescription("Total number of sign-in attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	authFailures, err := meter.Int64Counter(
		"auth.failure.count",
		metric.WithDescription("Total number of failed sign-in attempts"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return nil, err
	}

	return &AuthMetrics{
		AuthAttempts: authAttempts,
		AuthFailures: authFailures,
	}, nil
}

// RecordAuth records a sign-in attempt. failure is the failure kind, empty on success.
// A nil receiver records nothing.
func (a *AuthMetrics) RecordAuth(ctx context.Context, method, failure string) {
	if a == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("auth.method", method),
		attribute.Bool("auth.success", failure == ""),
	)
	a.AuthAttempts.Add(ctx, 1, attrs)
	if failure != "" {
		a.AuthFailures.Add(ctx, 1, metric.WithAttributes(
			attribute.String("auth.method", method),
			attribute.String(AttrAuthFailure, failure),
		))
	}
}

// GuardMetrics counts committed guard decisions.
type GuardMetrics struct {
	Decisions metric.Int64Counter
}

// NewGuardMetrics creates guard instruments on the global meter provider.
func NewGuardMetrics() (*GuardMetrics, error) {
	meter := otel.Meter(TracerDashboard)
	decisions, err := meter.Int64Counter(
		"guard.decision.count",
		metric.WithDescription("Total number of guard decisions by kind and outcome"),
		metric.WithUnit("{decision}"),
	)
	if err != nil {
		return nil, err
	}
	return &GuardMetrics{Decisions: decisions}, nil
}

// RecordDecision records one decision. A nil receiver records nothing.
func (g *GuardMetrics) RecordDecision(ctx context.Context, kind, outcome string) {
	if g == nil {
		return
	}
	g.Decisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrGuardKind, kind),
		attribute.String(AttrGuardOutcome, outcome),
	))
}
