/*
 * Copyright 2025 Rackhost Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package host

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/audiorack/rackhost/api"
	"github.com/audiorack/rackhost/internal/logging"
)

const instrumentationName = "github.com/audiorack/rackhost"

// telemetry instruments the non-realtime lifecycle operations. Defaults
// to noop providers; WithTracerProvider/WithMeterProvider install real
// ones. Nothing here is touched on the process path.
type telemetry struct {
	tracer trace.Tracer
	meter  metric.Meter

	initCount    metric.Int64Counter
	initDuration metric.Float64Histogram
}

func newTelemetry() *telemetry {
	t := &telemetry{
		tracer: tracenoop.NewTracerProvider().Tracer(instrumentationName),
		meter:  metricnoop.NewMeterProvider().Meter(instrumentationName),
	}
	t.buildInstruments()
	return t
}

// WithTracerProvider installs a tracer provider for lifecycle spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(h *Host) { h.tel.tracer = tp.Tracer(instrumentationName) }
}

// WithMeterProvider installs a meter provider for lifecycle metrics.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(h *Host) {
		h.tel.meter = mp.Meter(instrumentationName)
		h.tel.buildInstruments()
	}
}

func (t *telemetry) buildInstruments() {
	var err error
	t.initCount, err = t.meter.Int64Counter("rackhost.initialize.count",
		metric.WithDescription("Initialize attempts"))
	if err != nil {
		logging.Default.Warnf("otel counter: %v", err)
	}
	t.initDuration, err = t.meter.Float64Histogram("rackhost.initialize.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Initialize latency"))
	if err != nil {
		logging.Default.Warnf("otel histogram: %v", err)
	}
}

// initStarted opens a span and returns the closer that records the
// outcome.
func (t *telemetry) initStarted(arch api.Architecture) func(error) {
	archAttr := attribute.String("rackhost.arch", arch.String())
	ctx, span := t.tracer.Start(context.Background(), "rackhost.initialize",
		trace.WithAttributes(archAttr))
	start := time.Now()
	return func(err error) {
		t.initCount.Add(ctx, 1, metric.WithAttributes(archAttr))
		t.initDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(archAttr))
		if err != nil {
			span.RecordError(err)
		}
		span.End()
	}
}
