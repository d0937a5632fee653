package observability_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/jhoicas/stock-ledger/internal/infrastructure/observability"
	"github.com/jhoicas/stock-ledger/pkg/config"
)

func TestSetupTracingSDK_SinEndpoint(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Name: "stock-ledger", Env: "test"}}

	shutdown, err := observability.SetupTracingSDK(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))

	fields := otel.GetTextMapPropagator().Fields()
	assert.Contains(t, fields, "traceparent")
	assert.Contains(t, fields, "baggage")
}

func TestSetupTracingSDK_ConEndpoint(t *testing.T) {
	cfg := &config.Config{
		App:  config.AppConfig{Name: "stock-ledger", Env: "test"},
		Otel: config.OtelConfig{Endpoint: "127.0.0.1:4318", Insecure: true},
	}

	shutdown, err := observability.SetupTracingSDK(context.Background(), cfg)
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "op")
	assert.True(t, span.SpanContext().IsValid())
	span.End()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// sin colector escuchando el vaciado puede fallar; solo se comprueba que no bloquea
	_ = shutdown(ctx)
}
