package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/erp/servicedesk/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
)

type fixedLowStock struct {
	n   int64
	err error
}

func (f fixedLowStock) CountLowStock(ctx context.Context) (int64, error) {
	return f.n, f.err
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := map[string]metricdata.Metrics{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumOf(t *testing.T, m metricdata.Metrics) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestNewBusinessMetrics_NilMeter(t *testing.T) {
	bm, err := telemetry.NewBusinessMetrics(nil, nil, zap.NewNop())
	assert.ErrorIs(t, err, telemetry.ErrMeterNil)
	assert.Nil(t, bm)
}

func TestBusinessMetrics_Counters(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	bm, err := telemetry.NewBusinessMetrics(provider.Meter("test"), nil, zap.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	bm.RecordOrderCreated(ctx, "high")
	bm.RecordStatusTransition(ctx, "Aguardando Avaliação", "Em Reparo", "manual")
	bm.RecordStatusTransition(ctx, "Em Reparo", "Aguardando QA", "manual")
	bm.RecordCardMove(ctx, true)
	bm.RecordCardMove(ctx, false)
	bm.RecordWipRejection(ctx)
	bm.RecordEffectFailures(ctx, 2)
	bm.RecordEffectFailures(ctx, 0)

	metrics := collect(t, reader)
	assert.Equal(t, int64(1), sumOf(t, metrics["servicedesk_orders_created_total"]))
	assert.Equal(t, int64(2), sumOf(t, metrics["servicedesk_status_transitions_total"]))
	assert.Equal(t, int64(2), sumOf(t, metrics["servicedesk_card_moves_total"]))
	assert.Equal(t, int64(1), sumOf(t, metrics["servicedesk_wip_rejections_total"]))
	assert.Equal(t, int64(2), sumOf(t, metrics["servicedesk_effect_failures_total"]))

	transitions := metrics["servicedesk_status_transitions_total"].Data.(metricdata.Sum[int64])
	for _, dp := range transitions.DataPoints {
		source, ok := dp.Attributes.Value(attribute.Key("source"))
		require.True(t, ok)
		assert.Equal(t, "manual", source.AsString())
	}
}

func TestBusinessMetrics_LowStockGauge(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	bm, err := telemetry.NewBusinessMetrics(provider.Meter("test"), fixedLowStock{n: 3}, zap.NewNop())
	require.NoError(t, err)
	defer bm.Close()

	gauge, ok := collect(t, reader)["servicedesk_parts_low_stock"].Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 1)
	assert.Equal(t, int64(3), gauge.DataPoints[0].Value)
}

func TestBusinessMetrics_LowStockErrorIsSwallowed(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	_, err := telemetry.NewBusinessMetrics(provider.Meter("test"), fixedLowStock{err: errors.New("db down")}, zap.NewNop())
	require.NoError(t, err)

	m, present := collect(t, reader)["servicedesk_parts_low_stock"]
	if present {
		gauge, ok := m.Data.(metricdata.Gauge[int64])
		require.True(t, ok)
		assert.Empty(t, gauge.DataPoints)
	}
}
