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
	"io"
	"log/slog"
	"slices"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/devstack-core/devprobe/backend"
	"github.com/devstack-core/devprobe/cluster"
	commonmetric "github.com/devstack-core/devprobe/common/metric"
	"github.com/devstack-core/devprobe/common/rpc"
	"github.com/devstack-core/devprobe/config"
	"github.com/devstack-core/devprobe/secrets"
)

// Server hosts the monitor together with its gRPC health endpoint and the
// metrics endpoint.
type Server struct {
	grpcServer   rpc.GrpcServer
	healthServer *health.Server
	monitor      *Monitor
	metrics      *commonmetric.PrometheusMetrics
	secrets      io.Closer
}

func NewServer(conf config.Config) (*Server, error) {
	slog.Info(
		"Starting devprobe monitor",
		slog.String("environment", conf.Environment),
		slog.Any("monitor", conf.Monitor),
	)

	provider, secretsCloser, err := secrets.FromConfig(context.Background(), &conf)
	if err != nil {
		return nil, err
	}

	set := backend.Default(&conf, provider, commonmetric.Provider())
	for _, name := range conf.Monitor.Backends {
		if !slices.Contains(set.Names(), name) {
			_ = secretsCloser.Close()
			return nil, errors.Wrapf(backend.ErrUnknownBackend, "monitored backend %s", name)
		}
	}

	inspector := cluster.NewInspector(conf.Redis, provider, conf.Timeout)
	healthServer := health.NewServer()
	mon := NewMonitor(set, inspector, healthServer, conf.Monitor.Interval, conf.Monitor.Backends, commonmetric.Provider())

	grpcServer, err := rpc.Default.StartGrpcServer("monitor", conf.Monitor.InternalServiceAddr, func(registrar grpc.ServiceRegistrar) {
		grpc_health_v1.RegisterHealthServer(registrar, healthServer)
	})
	if err != nil {
		return nil, multierr.Append(err, multierr.Combine(mon.Close(), secretsCloser.Close()))
	}

	metrics, err := commonmetric.Start(conf.Monitor.MetricsServiceAddr)
	if err != nil {
		return nil, multierr.Append(err, multierr.Combine(grpcServer.Close(), mon.Close(), secretsCloser.Close()))
	}

	mon.Start()

	return &Server{
		grpcServer:   grpcServer,
		healthServer: healthServer,
		monitor:      mon,
		metrics:      metrics,
		secrets:      secretsCloser,
	}, nil
}

// Reload applies the settings that can change without a restart.
func (s *Server) Reload(conf config.Config) {
	s.monitor.SetInterval(conf.Monitor.Interval)
}

func (s *Server) Monitor() *Monitor {
	return s.monitor
}

func (s *Server) GrpcPort() int {
	return s.grpcServer.Port()
}

func (s *Server) MetricsPort() int {
	return s.metrics.Port()
}

func (s *Server) Close() error {
	s.healthServer.Shutdown()
	return multierr.Combine(
		s.monitor.Close(),
		s.grpcServer.Close(),
		s.metrics.Close(),
		s.secrets.Close(),
	)
}
