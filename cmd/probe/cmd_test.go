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
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devstack-core/devprobe/backend"
	"github.com/devstack-core/devprobe/config"
	"github.com/devstack-core/devprobe/secrets"
)

// sequenceRunner returns increasing durations, 1ms for the first round.
type sequenceRunner struct {
	sync.Mutex
	names []string
	kinds map[string]backend.Kind
	round int
}

func (r *sequenceRunner) Names() []string {
	return r.names
}

func (r *sequenceRunner) Run(_ context.Context, names ...string) ([]backend.Result, error) {
	r.Lock()
	defer r.Unlock()
	r.round++

	res := make([]backend.Result, 0, len(names))
	for _, n := range names {
		kind, ok := r.kinds[n]
		if !ok {
			return nil, errors.Wrapf(backend.ErrUnknownBackend, "%s", n)
		}
		res = append(res, backend.Result{
			Backend:  n,
			Kind:     kind,
			Duration: time.Duration(r.round) * time.Millisecond,
		})
	}
	return res, nil
}

func newSequenceRunner() *sequenceRunner {
	return &sequenceRunner{
		names: []string{"redis", "mysql"},
		kinds: map[string]backend.Kind{"redis": backend.KindOK, "mysql": backend.KindConnectFailed},
	}
}

func TestSample(t *testing.T) {
	report, err := Sample(context.Background(), newSequenceRunner(), 100, 0)
	require.NoError(t, err)

	require.Len(t, report.Results, 2)
	assert.Equal(t, 100*time.Millisecond, report.Results[0].Duration)
	assert.Equal(t, 1, report.Unhealthy())

	require.Len(t, report.Latency, 2)
	redis := report.Latency[0]
	assert.Equal(t, "redis", redis.Backend)
	assert.Equal(t, 100, redis.Samples)
	assert.Equal(t, 0, redis.Failures)
	assert.Equal(t, 50.0, redis.P50)
	assert.Equal(t, 95.0, redis.P95)
	assert.Equal(t, 99.0, redis.P99)
	assert.Equal(t, 100.0, redis.Max)

	assert.Equal(t, 100, report.Latency[1].Failures)
}

func TestSample_Subset(t *testing.T) {
	report, err := Sample(context.Background(), newSequenceRunner(), 1, 0, "redis")
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.Equal(t, 0, report.Unhealthy())

	_, err = Sample(context.Background(), newSequenceRunner(), 1, 0, "kafka")
	assert.ErrorIs(t, err, backend.ErrUnknownBackend)
}

func TestSample_Rate(t *testing.T) {
	start := time.Now()
	_, err := Sample(context.Background(), newSequenceRunner(), 3, 20)
	require.NoError(t, err)
	// the first round is immediate, the next two wait 50ms each
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestSample_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Sample(ctx, newSequenceRunner(), 2, 0.001)
	assert.ErrorContains(t, err, "probing interrupted")
}

func run(t *testing.T, runner Runner, args ...string) (string, error) {
	t.Helper()
	t.Setenv("VAULT_ENABLED", "false")
	opts = NewConfig()
	newRunner = func(*config.Config, secrets.Provider) Runner {
		return runner
	}

	out := &bytes.Buffer{}
	Cmd.SetOut(out)
	Cmd.SetErr(&bytes.Buffer{})
	Cmd.SetArgs(args)
	err := Cmd.Execute()
	return out.String(), err
}

func TestProbeCmd_Single(t *testing.T) {
	out, err := run(t, newSequenceRunner(), "redis")
	require.NoError(t, err)

	var results []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "redis", results[0]["backend"])
	assert.Equal(t, "ok", results[0]["status"])
}

func TestProbeCmd_Unhealthy(t *testing.T) {
	out, err := run(t, newSequenceRunner())
	assert.EqualError(t, err, "1 of 2 backends unhealthy")
	assert.Contains(t, out, `"connect_failed"`)
	assert.NotContains(t, out, "Usage:")
}

func TestProbeCmd_Count(t *testing.T) {
	out, err := run(t, newSequenceRunner(), "redis", "--count=4", "--rate=0", "-o", "text")
	require.NoError(t, err)
	assert.Contains(t, out, "redis: ok\n")
	assert.Contains(t, out, "BACKEND")
	assert.Contains(t, out, "4ms")
}

func TestProbeCmd_InvalidFlags(t *testing.T) {
	out, err := run(t, newSequenceRunner(), "--count=0")
	assert.ErrorContains(t, err, "count must be at least 1")
	assert.Empty(t, out)

	_, err = run(t, newSequenceRunner(), "-o", "xml")
	assert.Error(t, err)
}
