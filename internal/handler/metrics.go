package handler

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the engine's domain counters. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	evaluations metric.Int64Counter
	selections  metric.Int64Counter
}

// NewMetrics registers the coupon engine counters on the given meter provider.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter("coupon-engine")

	evaluations, err := meter.Int64Counter("coupon.evaluations",
		metric.WithDescription("Single-coupon validate queries, by verdict"),
	)
	if err != nil {
		return nil, err
	}

	selections, err := meter.Int64Counter("coupon.selections",
		metric.WithDescription("Best-coupon selections that produced a winner"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		evaluations: evaluations,
		selections:  selections,
	}, nil
}

// Evaluation records one validate query and its verdict.
func (m *Metrics) Evaluation(ctx context.Context, eligible bool) {
	if m == nil {
		return
	}
	m.evaluations.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("eligible", eligible),
	))
}

// Selection records one winning best-coupon selection.
func (m *Metrics) Selection(ctx context.Context, simulated bool) {
	if m == nil {
		return
	}
	m.selections.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("simulated", simulated),
	))
}
