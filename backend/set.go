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
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/metric"

	commonmetric "github.com/devstack-core/devprobe/common/metric"
	"github.com/devstack-core/devprobe/common/process"
	"github.com/devstack-core/devprobe/secrets"
)

var ErrUnknownBackend = errors.New("unknown backend")

// Runner is the type independent view of a Probe.
type Runner interface {
	BackendName() string
	Execute(ctx context.Context, provider secrets.Provider) Result
}

// Set holds named probes in registration order.
type Set struct {
	sync.RWMutex

	provider secrets.Provider
	timeout  time.Duration
	metrics  *Metrics

	names   []string
	runners map[string]Runner
	log     *slog.Logger
}

func NewSet(provider secrets.Provider, timeout time.Duration) *Set {
	return NewSetWithMeterProvider(provider, timeout, commonmetric.Provider())
}

func NewSetWithMeterProvider(provider secrets.Provider, timeout time.Duration, mp metric.MeterProvider) *Set {
	return &Set{
		provider: provider,
		timeout:  timeout,
		metrics:  NewMetrics(mp),
		runners:  make(map[string]Runner),
		log: slog.With(
			slog.String("component", "backend-set"),
		),
	}
}

// Register adds a runner. A runner with an already registered name replaces
// the previous one and keeps its position.
func (s *Set) Register(r Runner) {
	s.Lock()
	defer s.Unlock()

	name := r.BackendName()
	if _, ok := s.runners[name]; !ok {
		s.names = append(s.names, name)
	}
	s.runners[name] = r
}

func (s *Set) Names() []string {
	s.RLock()
	defer s.RUnlock()

	res := make([]string, len(s.names))
	copy(res, s.names)
	return res
}

func (s *Set) Execute(ctx context.Context, name string) (Result, error) {
	results, err := s.Run(ctx, name)
	if err != nil {
		return Result{}, err
	}
	return results[0], nil
}

// Run executes the named probes concurrently, or all of them when no name is
// given. The results follow the order of names.
func (s *Set) Run(ctx context.Context, names ...string) ([]Result, error) {
	s.RLock()
	if len(names) == 0 {
		names = s.names
	}
	runners := make([]Runner, 0, len(names))
	for _, name := range names {
		r, ok := s.runners[name]
		if !ok {
			s.RUnlock()
			return nil, errors.Wrapf(ErrUnknownBackend, "%s", name)
		}
		runners = append(runners, r)
	}
	s.RUnlock()

	results := make([]Result, len(runners))
	wg := sync.WaitGroup{}
	wg.Add(len(runners))
	for i, r := range runners {
		go process.DoWithLabels(map[string]string{
			"devprobe": "probe",
			"backend":  r.BackendName(),
		}, func() {
			defer wg.Done()
			results[i] = s.execute(ctx, r)
		})
	}
	wg.Wait()

	return results, nil
}

func (s *Set) execute(ctx context.Context, r Runner) Result {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	res := r.Execute(ctx, s.provider)
	s.metrics.Record(ctx, res)

	if res.Kind.Healthy() {
		s.log.Debug(
			"Probe succeeded",
			slog.String("backend", res.Backend),
			slog.String("kind", string(res.Kind)),
			slog.Duration("duration", res.Duration),
		)
	} else {
		s.log.Warn(
			"Probe failed",
			slog.String("backend", res.Backend),
			slog.String("kind", string(res.Kind)),
			slog.Duration("duration", res.Duration),
			slog.Any("error", res.Err),
		)
	}
	return res
}
