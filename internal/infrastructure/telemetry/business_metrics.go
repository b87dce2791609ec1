package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Metric attribute keys
var (
	AttrPriority    = attribute.Key("priority")
	AttrFromStatus  = attribute.Key("from_status")
	AttrToStatus    = attribute.Key("to_status")
	AttrSource      = attribute.Key("source")
	AttrCrossColumn = attribute.Key("cross_column")
)

// LowStockCounter counts parts at or below their minimum stock
type LowStockCounter interface {
	CountLowStock(ctx context.Context) (int64, error)
}

// BusinessMetrics records workflow and board counters. The low-stock gauge is
// observed on each collection cycle.
type BusinessMetrics struct {
	logger *zap.Logger

	ordersCreated     *Counter
	statusTransitions *Counter
	cardMoves         *Counter
	wipRejections     *Counter
	effectFailures    *Counter

	registration metric.Registration
}

// NewBusinessMetrics creates the instruments on meter. lowStock may be nil.
func NewBusinessMetrics(meter metric.Meter, lowStock LowStockCounter, logger *zap.Logger) (*BusinessMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	bm := &BusinessMetrics{logger: logger}
	counters := []struct {
		target      **Counter
		name        string
		description string
		unit        string
	}{
		{&bm.ordersCreated, "servicedesk_orders_created_total", "Service orders opened", "{orders}"},
		{&bm.statusTransitions, "servicedesk_status_transitions_total", "Applied service order status transitions", "{transitions}"},
		{&bm.cardMoves, "servicedesk_card_moves_total", "Kanban card moves that changed the board", "{moves}"},
		{&bm.wipRejections, "servicedesk_wip_rejections_total", "Moves or inserts refused by a WIP limit", "{rejections}"},
		{&bm.effectFailures, "servicedesk_effect_failures_total", "Best-effort after-commit effects that failed", "{effects}"},
	}
	for _, c := range counters {
		counter, err := NewCounter(meter, c.name, c.description, c.unit)
		if err != nil {
			return nil, err
		}
		*c.target = counter
	}

	if lowStock != nil {
		gauge, err := meter.Int64ObservableGauge("servicedesk_parts_low_stock",
			metric.WithDescription("Parts at or below their minimum stock"),
			metric.WithUnit("{parts}"),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create low stock gauge: %w", err)
		}
		bm.registration, err = meter.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
			n, err := lowStock.CountLowStock(ctx)
			if err != nil {
				logger.Warn("low stock metric collection failed", zap.Error(err))
				return nil
			}
			o.ObserveInt64(gauge, n)
			return nil
		}, gauge)
		if err != nil {
			return nil, fmt.Errorf("failed to register low stock callback: %w", err)
		}
	}
	return bm, nil
}

// RecordOrderCreated counts a new service order
func (bm *BusinessMetrics) RecordOrderCreated(ctx context.Context, priority string) {
	bm.ordersCreated.Inc(ctx, AttrPriority.String(priority))
}

// RecordStatusTransition counts an applied transition by edge and entry point
func (bm *BusinessMetrics) RecordStatusTransition(ctx context.Context, from, to, source string) {
	bm.statusTransitions.Inc(ctx,
		AttrFromStatus.String(from),
		AttrToStatus.String(to),
		AttrSource.String(source),
	)
}

// RecordCardMove counts a committed card move
func (bm *BusinessMetrics) RecordCardMove(ctx context.Context, crossColumn bool) {
	bm.cardMoves.Inc(ctx, AttrCrossColumn.Bool(crossColumn))
}

// RecordWipRejection counts a refused insert or move
func (bm *BusinessMetrics) RecordWipRejection(ctx context.Context) {
	bm.wipRejections.Inc(ctx)
}

// RecordEffectFailures counts failed after-commit effects
func (bm *BusinessMetrics) RecordEffectFailures(ctx context.Context, failed int) {
	if failed <= 0 {
		return
	}
	bm.effectFailures.Add(ctx, int64(failed))
}

// Close unregisters the gauge callback
func (bm *BusinessMetrics) Close() error {
	if bm.registration == nil {
		return nil
	}
	return bm.registration.Unregister()
}
