// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package litm

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "code.hybscloud.com/litm"

// switchMetrics holds the OpenTelemetry instruments of one switch.
type switchMetrics struct {
	attrs metric.MeasurementOption

	submitted metric.Int64Counter
	delivered metric.Int64Counter
	requeued  metric.Int64Counter
	resets    metric.Int64Counter
	finalized metric.Int64Counter
	reapedN   metric.Int64Counter
	inflight  metric.Int64UpDownCounter
}

func newSwitchMetrics(mp metric.MeterProvider, id string) (*switchMetrics, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(meterName)
	m := &switchMetrics{
		attrs: metric.WithAttributes(attribute.String("switch", id)),
	}

	var err error
	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.submitted, "litm.envelopes.submitted", "Envelopes accepted from clients"},
		{&m.delivered, "litm.envelopes.delivered", "Envelopes placed in a subscriber mailbox"},
		{&m.requeued, "litm.envelopes.requeued", "Deliveries retried because a mailbox was busy"},
		{&m.resets, "litm.envelopes.resets", "Routing restarts after a recipient went away"},
		{&m.finalized, "litm.envelopes.finalized", "Envelopes disposed after routing ended"},
		{&m.reapedN, "litm.connections.reaped", "Closed connections reclaimed by the switch"},
	}
	for _, c := range counters {
		*c.dst, err = meter.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, fmt.Errorf("failed to create %s counter: %w", c.name, err)
		}
	}

	m.inflight, err = meter.Int64UpDownCounter(
		"litm.envelopes.inflight",
		metric.WithDescription("Envelopes submitted and not yet finalized"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create litm.envelopes.inflight gauge: %w", err)
	}
	return m, nil
}

func (m *switchMetrics) submit() {
	ctx := context.Background()
	m.submitted.Add(ctx, 1, m.attrs)
	m.inflight.Add(ctx, 1, m.attrs)
}

func (m *switchMetrics) deliver() { m.delivered.Add(context.Background(), 1, m.attrs) }

func (m *switchMetrics) requeue() { m.requeued.Add(context.Background(), 1, m.attrs) }

func (m *switchMetrics) reset() { m.resets.Add(context.Background(), 1, m.attrs) }

func (m *switchMetrics) finalize(typ MessageType) {
	ctx := context.Background()
	m.finalized.Add(ctx, 1, m.attrs, metric.WithAttributes(attribute.String("type", typ.String())))
	m.inflight.Add(ctx, -1, m.attrs)
}

func (m *switchMetrics) connReaped() { m.reapedN.Add(context.Background(), 1, m.attrs) }
