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


package monitor

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/time/rate"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/devstack-core/devprobe/backend"
	commonmetric "github.com/devstack-core/devprobe/common/metric"
	"github.com/devstack-core/devprobe/common/process"
	"github.com/devstack-core/devprobe/topology"
)

// OverallService is the health service name aggregating every backend.
const OverallService = ""

type ProbeRunner interface {
	Names() []string
	Run(ctx context.Context, names ...string) ([]backend.Result, error)
}

type ClusterInspector interface {
	Nodes(ctx context.Context) backend.Result
	Slots(ctx context.Context) backend.Result
}

// Round is the outcome of one monitoring pass.
type Round struct {
	ID       uuid.UUID
	Results  []backend.Result
	Slots    *topology.SlotDistribution
	Nodes    int
	Healthy  bool
	Duration time.Duration
}

// Monitor periodically runs the backend probes and publishes their status as
// gRPC health services and gauges.
type Monitor struct {
	sync.Mutex

	runner    ProbeRunner
	inspector ClusterInspector
	health    *health.Server
	backends  []string
	limiter   *rate.Limiter
	interval  time.Duration

	up            map[string]int64
	slotsAssigned int64
	coverageBp    int64
	nodes         int64
	gauges        []commonmetric.Gauge
	rounds        commonmetric.Counter
	roundLatency  commonmetric.LatencyHistogram
	lastRound     *Round

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	log    *slog.Logger
}

// NewMonitor creates a monitor for backends, or every backend of runner when
// none is given. The health services are registered as NOT_SERVING until the
// first round completes.
func NewMonitor(runner ProbeRunner, inspector ClusterInspector, healthServer *health.Server,
	interval time.Duration, backends []string, mp metric.MeterProvider) *Monitor {
	if len(backends) == 0 {
		backends = runner.Names()
	}

	m := &Monitor{
		runner:    runner,
		inspector: inspector,
		health:    healthServer,
		backends:  backends,
		limiter:   rate.NewLimiter(rate.Every(interval), 1),
		interval:  interval,
		up:        make(map[string]int64),
		log: slog.With(
			slog.String("component", "monitor"),
		),
	}
	m.ctx, m.cancel = context.WithCancel(context.Background())

	meter := mp.Meter("devprobe_monitor")
	for _, name := range backends {
		healthServer.SetServingStatus(name, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
		m.gauges = append(m.gauges, commonmetric.NewGaugeWithMeter(meter, "devprobe_backend_up",
			"Whether the last probe of the backend succeeded", commonmetric.Dimensionless,
			commonmetric.LabelsForBackend(name), func() int64 {
				m.Lock()
				defer m.Unlock()
				return m.up[name]
			}))
	}
	healthServer.SetServingStatus(OverallService, grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	m.gauges = append(m.gauges,
		commonmetric.NewGaugeWithMeter(meter, "devprobe_cluster_slots_assigned",
			"Number of hash slots assigned to a master", commonmetric.Dimensionless, nil, m.observe(&m.slotsAssigned)),
		commonmetric.NewGaugeWithMeter(meter, "devprobe_cluster_coverage_ratio",
			"Share of the hash slot keyspace assigned to a master", commonmetric.BasisPoints, nil, m.observe(&m.coverageBp)),
		commonmetric.NewGaugeWithMeter(meter, "devprobe_cluster_nodes",
			"Number of nodes in the cluster listing", commonmetric.Dimensionless, nil, m.observe(&m.nodes)),
	)
	m.rounds = commonmetric.NewCounterWithMeter(meter, "devprobe_monitor_rounds",
		"Number of completed monitoring rounds", commonmetric.Dimensionless, nil)
	m.roundLatency = commonmetric.NewLatencyHistogramWithMeter(meter, "devprobe_monitor_round_latency",
		"Duration of monitoring rounds", nil)

	return m
}

func (m *Monitor) observe(value *int64) func() int64 {
	return func() int64 {
		m.Lock()
		defer m.Unlock()
		return *value
	}
}

// Start runs rounds in the background until Close is called.
func (m *Monitor) Start() {
	m.wg.Add(1)
	go process.DoWithLabels(map[string]string{
		"devprobe": "monitor",
	}, func() {
		defer m.wg.Done()
		m.run()
	})
}

func (m *Monitor) run() {
	m.log.Info(
		"Started monitor",
		slog.Any("backends", m.backends),
		slog.Duration("interval", m.Interval()),
	)

	for {
		if err := m.limiter.Wait(m.ctx); err != nil {
			m.log.Debug("Monitor stopped")
			return
		}
		m.RunRound(m.ctx)
	}
}

// SetInterval changes the pace of the following rounds.
func (m *Monitor) SetInterval(interval time.Duration) {
	m.Lock()
	if interval <= 0 || interval == m.interval {
		m.Unlock()
		return
	}
	m.interval = interval
	m.Unlock()

	m.limiter.SetLimit(rate.Every(interval))
	m.log.Info(
		"Updated monitor interval",
		slog.Duration("interval", interval),
	)
}

func (m *Monitor) Interval() time.Duration {
	m.Lock()
	defer m.Unlock()
	return m.interval
}

// RunRound probes every monitored backend and the cluster once.
func (m *Monitor) RunRound(ctx context.Context) Round {
	timer := m.roundLatency.Timer()
	defer timer.Done()

	start := time.Now()
	round := Round{ID: uuid.New(), Healthy: true}
	log := m.log.With(slog.String("round", round.ID.String()))
	log.Debug("Starting monitoring round")

	results, err := m.runner.Run(ctx, m.backends...)
	if err != nil {
		log.Warn(
			"Failed to run probes",
			slog.Any("error", err),
		)
		round.Healthy = false
	}
	round.Results = results

	if m.inspector != nil {
		if res := m.inspector.Slots(ctx); res.Kind.Healthy() {
			if d, ok := res.Data.(topology.SlotDistribution); ok {
				round.Slots = &d
			}
		}
		if res := m.inspector.Nodes(ctx); res.Kind.Healthy() {
			if l, ok := res.Data.(topology.NodeList); ok {
				round.Nodes = l.TotalNodes
			}
		}
	}

	m.Lock()
	if err != nil {
		for _, name := range m.backends {
			m.up[name] = 0
			m.health.SetServingStatus(name, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
		}
	}
	for _, res := range results {
		status := grpc_health_v1.HealthCheckResponse_SERVING
		m.up[res.Backend] = 1
		if !res.Kind.Healthy() {
			status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
			m.up[res.Backend] = 0
			round.Healthy = false
		}
		m.health.SetServingStatus(res.Backend, status)
	}
	if round.Slots != nil {
		m.slotsAssigned = int64(round.Slots.TotalSlots)
		m.coverageBp = int64(math.Round(round.Slots.CoveragePercentage * 100))
	} else {
		m.slotsAssigned = 0
		m.coverageBp = 0
	}
	m.nodes = int64(round.Nodes)
	round.Duration = time.Since(start)
	slotsAssigned := m.slotsAssigned
	m.lastRound = &round
	m.Unlock()

	if round.Healthy {
		m.health.SetServingStatus(OverallService, grpc_health_v1.HealthCheckResponse_SERVING)
	} else {
		m.health.SetServingStatus(OverallService, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	}
	m.rounds.Inc()

	log.Info(
		"Completed monitoring round",
		slog.Bool("healthy", round.Healthy),
		slog.Int("nodes", round.Nodes),
		slog.Int64("slots-assigned", slotsAssigned),
		slog.Duration("duration", round.Duration),
	)
	return round
}

// LastRound returns the most recent round, or nil before the first one.
func (m *Monitor) LastRound() *Round {
	m.Lock()
	defer m.Unlock()
	return m.lastRound
}

func (m *Monitor) Close() error {
	m.cancel()
	m.wg.Wait()
	for _, g := range m.gauges {
		g.Unregister()
	}
	return nil
}
