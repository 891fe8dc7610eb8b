package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terraconstructs/courtbook/internal/config"
)

func TestInit_DisabledWithoutEndpoint(t *testing.T) {
	shutdown, err := Init(context.Background(), config.ObservabilityConfig{ServiceName: "courtbook"})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInit_RejectsUnsupportedProtocol(t *testing.T) {
	_, err := Init(context.Background(), config.ObservabilityConfig{
		OTLPEndpoint: "localhost:4317",
		OTLPProtocol: "grpc",
		ServiceName:  "courtbook",
	})
	assert.ErrorContains(t, err, "unsupported OTLP protocol")
}

func TestMetrics_NilReceiversRecordNothing(t *testing.T) {
	ctx := context.Background()
	var roles *RoleMetrics
	var auth *AuthMetrics
	var guards *GuardMetrics
	assert.NotPanics(t, func() {
		roles.RecordFetch(ctx, 12, errors.New("boom"))
		auth.RecordAuth(ctx, "password", "")
		guards.RecordDecision(ctx, "admin", "allow")
	})
}

func TestMetrics_GlobalMeterProvider(t *testing.T) {
	ctx := context.Background()
	roles, err := NewRoleMetrics()
	require.NoError(t, err)
	auth, err := NewAuthMetrics()
	require.NoError(t, err)
	guards, err := NewGuardMetrics()
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		roles.RecordFetch(ctx, 12, nil)
		auth.RecordAuth(ctx, "federated", "cancelled")
		guards.RecordDecision(ctx, "member", "deny")
	})
}
