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


package metric

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestPrometheusMetrics(t *testing.T) {
	NewCounter("devprobe_test_counter", "test counter", Dimensionless, nil).Inc()

	metrics, err := Start("localhost:0")
	assert.NoError(t, err)

	url := fmt.Sprintf("http://localhost:%d/metrics", metrics.Port())
	response, err := http.Get(url)
	assert.NoError(t, err)

	assert.Equal(t, 200, response.StatusCode)

	body, err := io.ReadAll(response.Body)
	assert.NoError(t, err)
	_ = response.Body.Close()

	// Looks like exposition format
	assert.Equal(t, "# HELP ", string(body[0:7]))
	assert.Contains(t, string(body), "devprobe_test_counter")

	err = metrics.Close()
	assert.NoError(t, err)

	response, err = http.Get(url)
	assert.ErrorContains(t, err, "connection refused")
	assert.Nil(t, response)
}

func setup() (*sdkmetric.MeterProvider, sdkmetric.Reader) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader), sdkmetric.WithView(Views()...))
	return provider, reader
}

func collect(t *testing.T, reader sdkmetric.Reader, name string) metricdata.Aggregation {
	t.Helper()
	rm := metricdata.ResourceMetrics{}
	require.NoError(t, reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m.Data
			}
		}
	}
	require.Failf(t, "metric not found", "name: %s", name)
	return nil
}

func TestCounter(t *testing.T) {
	provider, reader := setup()
	c := NewCounterWithMeter(provider.Meter("test"), "probe_executions", "", Dimensionless,
		map[string]any{"backend": "redis", "attempt": 1})
	c.Inc()
	c.Add(2)

	sum, ok := collect(t, reader, "probe_executions").(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.EqualValues(t, 3, sum.DataPoints[0].Value)

	backend, found := sum.DataPoints[0].Attributes.Value(attribute.Key("backend"))
	assert.True(t, found)
	assert.Equal(t, "redis", backend.AsString())
}

func TestGauge(t *testing.T) {
	provider, reader := setup()
	value := int64(7)
	g := NewGaugeWithMeter(provider.Meter("test"), "cluster_nodes", "", Dimensionless, nil, func() int64 {
		return value
	})

	data, ok := collect(t, reader, "cluster_nodes").(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, data.DataPoints, 1)
	assert.EqualValues(t, 7, data.DataPoints[0].Value)

	value = 9
	data = collect(t, reader, "cluster_nodes").(metricdata.Gauge[int64])
	assert.EqualValues(t, 9, data.DataPoints[0].Value)

	g.Unregister()
}

func TestLatencyHistogram(t *testing.T) {
	provider, reader := setup()
	h := NewLatencyHistogramWithMeter(provider.Meter("test"), "probe_latency", "", LabelsForBackend("vault"))
	h.Record(1500 * time.Microsecond)
	h.Timer().Done()

	data, ok := collect(t, reader, "probe_latency").(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, data.DataPoints, 1)
	assert.EqualValues(t, 2, data.DataPoints[0].Count)
	assert.Equal(t, latencyBucketsMillis, data.DataPoints[0].Bounds)
}

func TestAttributes(t *testing.T) {
	attrs := attribute.NewSet(Attributes(map[string]any{
		"s": "x",
		"i": 1,
		"b": true,
	})...)
	assert.Equal(t, 3, attrs.Len())
	v, _ := attrs.Value("i")
	assert.EqualValues(t, 1, v.AsInt64())
}
