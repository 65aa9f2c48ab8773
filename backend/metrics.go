// Copyright 2023 StreamNative, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package backend

import (
	"context"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	commonmetric "github.com/devstack-core/devprobe/common/metric"
)

type Metrics struct {
	executions metric.Int64Counter
	latency    metric.Float64Histogram
}

func NewMetrics(provider metric.MeterProvider) *Metrics {
	meter := provider.Meter("devprobe_backend")

	executions, err := meter.Int64Counter("devprobe_probe_executions",
		metric.WithUnit(string(commonmetric.Dimensionless)),
		metric.WithDescription("Number of probe executions by backend and outcome"))
	fatalOnErr(err, "devprobe_probe_executions")

	latency, err := meter.Float64Histogram("devprobe_probe_latency",
		metric.WithUnit(string(commonmetric.Milliseconds)),
		metric.WithDescription("Latency of probe executions"))
	fatalOnErr(err, "devprobe_probe_latency")

	return &Metrics{
		executions: executions,
		latency:    latency,
	}
}

func (m *Metrics) Record(ctx context.Context, res Result) {
	attrs := metric.WithAttributes(
		attribute.Key("backend").String(res.Backend),
		attribute.Key("kind").String(string(res.Kind)),
	)
	m.executions.Add(ctx, 1, attrs)
	m.latency.Record(ctx, float64(res.Duration.Microseconds())/1000.0, attrs)
}

func fatalOnErr(err error, name string) {
	if err != nil {
		slog.Error(
			"Failed to create metric",
			slog.String("metric-name", name),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
