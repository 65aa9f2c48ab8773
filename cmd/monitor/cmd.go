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
	"io"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/devstack-core/devprobe/cmd/common"
	"github.com/devstack-core/devprobe/cmd/flag"
	"github.com/devstack-core/devprobe/common/process"
	"github.com/devstack-core/devprobe/config"
	"github.com/devstack-core/devprobe/monitor"
)

// Server is the running daemon. Configuration changes are forwarded to it.
type Server interface {
	io.Closer

	Reload(conf config.Config)
}

type Config struct {
	InternalServiceAddr string
	MetricsServiceAddr  string
	Interval            time.Duration
	Backends            []string
}

var (
	overrides = Config{}

	Cmd = &cobra.Command{
		Use:   "monitor",
		Short: "Start the monitor daemon",
		Long: `Periodically probe the backend services and the cache cluster, and publish
their status through the gRPC health service and Prometheus metrics`,
		Args: cobra.NoArgs,
		RunE: exec,
	}

	startServer = func(conf config.Config) (Server, error) {
		s, err := monitor.NewServer(conf)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
)

func init() {
	registerFlags(Cmd)
}

func registerFlags(cmd *cobra.Command) {
	flag.InternalAddr(cmd, &overrides.InternalServiceAddr)
	flag.MetricsAddr(cmd, &overrides.MetricsServiceAddr)
	cmd.Flags().DurationVar(&overrides.Interval, "interval", 0, "Interval between probing rounds, overrides the configuration")
	cmd.Flags().StringSliceVar(&overrides.Backends, "backends", nil, "Backends to monitor, all when empty")
}

// LoadConfig loads the configuration and applies the flags that were set.
func LoadConfig(cmd *cobra.Command) (config.Config, error) {
	conf, v, err := common.LoadConfig()
	if err != nil {
		return conf, err
	}
	applyOverrides(cmd, &conf)
	if err := conf.Validate(); err != nil {
		return conf, err
	}

	config.Watch(v, func(c config.Config) {
		applyOverrides(cmd, &c)
		reload(c)
	})
	return conf, nil
}

func applyOverrides(cmd *cobra.Command, conf *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("internal-addr") || conf.Monitor.InternalServiceAddr == "" {
		conf.Monitor.InternalServiceAddr = overrides.InternalServiceAddr
	}
	if flags.Changed("metrics-addr") || conf.Monitor.MetricsServiceAddr == "" {
		conf.Monitor.MetricsServiceAddr = overrides.MetricsServiceAddr
	}
	if flags.Changed("interval") {
		conf.Monitor.Interval = overrides.Interval
	}
	if flags.Changed("backends") {
		conf.Monitor.Backends = overrides.Backends
	}
}

var (
	serverLock sync.Mutex
	server     Server
)

func reload(conf config.Config) {
	serverLock.Lock()
	defer serverLock.Unlock()
	if server != nil {
		server.Reload(conf)
	}
}

func exec(cmd *cobra.Command, _ []string) error {
	conf, err := LoadConfig(cmd)
	if err != nil {
		return err
	}

	process.RunProcess(func() (io.Closer, error) {
		s, err := startServer(conf)
		if err != nil {
			return nil, err
		}
		serverLock.Lock()
		server = s
		serverLock.Unlock()
		return s, nil
	})
	return nil
}
