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


package probe

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/bmizerany/perks/quantile"
	"github.com/dustin/go-humanize"

	"github.com/devstack-core/devprobe/backend"
)

// LatencySummary holds the latency percentiles of one backend, in
// milliseconds.
type LatencySummary struct {
	Backend  string  `json:"backend" yaml:"backend"`
	Samples  int     `json:"samples" yaml:"samples"`
	Failures int     `json:"failures" yaml:"failures"`
	P50      float64 `json:"p50_ms" yaml:"p50_ms"`
	P95      float64 `json:"p95_ms" yaml:"p95_ms"`
	P99      float64 `json:"p99_ms" yaml:"p99_ms"`
	Max      float64 `json:"max_ms" yaml:"max_ms"`
}

type Report struct {
	Results []backend.Result `json:"results" yaml:"results"`
	Latency []LatencySummary `json:"latency" yaml:"latency"`
}

func (r *Report) Unhealthy() int {
	n := 0
	for _, res := range r.Results {
		if !res.Kind.Healthy() {
			n++
		}
	}
	return n
}

func (r *Report) WriteText(w io.Writer) error {
	for _, res := range r.Results {
		if _, err := fmt.Fprintf(w, "%s: %s\n", res.Backend, res.Kind); err != nil {
			return err
		}
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "BACKEND\tSAMPLES\tFAILURES\tP50\tP95\tP99\tMAX")
	for _, l := range r.Latency {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", l.Backend,
			humanize.Comma(int64(l.Samples)), humanize.Comma(int64(l.Failures)),
			millis(l.P50), millis(l.P95), millis(l.P99), millis(l.Max))
	}
	return tw.Flush()
}

func millis(v float64) string {
	return humanize.FtoaWithDigits(v, 2) + "ms"
}

type sampler struct {
	backend  string
	stream   *quantile.Stream
	failures int
}

func newSampler(backend string) *sampler {
	return &sampler{
		backend: backend,
		stream:  quantile.NewTargeted(0.50, 0.95, 0.99, 1.0),
	}
}

func (s *sampler) add(res backend.Result) {
	if !res.Kind.Healthy() {
		s.failures++
	}
	s.stream.Insert(float64(res.Duration.Microseconds()) / 1000.0) // Convert to millis
}

func (s *sampler) summary() LatencySummary {
	return LatencySummary{
		Backend:  s.backend,
		Samples:  s.stream.Count(),
		Failures: s.failures,
		P50:      s.stream.Query(0.50),
		P95:      s.stream.Query(0.95),
		P99:      s.stream.Query(0.99),
		Max:      s.stream.Query(1.0),
	}
}
