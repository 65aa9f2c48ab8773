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


package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/devstack-core/devprobe/cmd/cluster"
	"github.com/devstack-core/devprobe/cmd/common"
	"github.com/devstack-core/devprobe/cmd/health"
	"github.com/devstack-core/devprobe/cmd/monitor"
	"github.com/devstack-core/devprobe/cmd/parse"
	"github.com/devstack-core/devprobe/cmd/probe"
	"github.com/devstack-core/devprobe/common/logging"
	"github.com/devstack-core/devprobe/common/process"
)

var (
	logLevelStr string

	rootCmd = &cobra.Command{
		Use:               "devprobe",
		Short:             "Diagnostics for the development infrastructure",
		Long:              `Inspect the cache cluster topology and probe the backend services of the development stack`,
		PersistentPreRunE: configureLogging,
		SilenceUsage:      true,
	}
)

type LogLevelError string

func (l LogLevelError) Error() string {
	return fmt.Sprintf("unknown log level (%s)", string(l))
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&common.ConfigFile, "conf", "f", "", "Configuration file")
	rootCmd.PersistentFlags().StringVarP(&logLevelStr, "log-level", "l", logging.DefaultLogLevel.String(), "Set logging level [debug|info|warn|error]")
	rootCmd.PersistentFlags().BoolVarP(&logging.LogJSON, "log-json", "j", false, "Print logs in JSON format")
	rootCmd.PersistentFlags().BoolVar(&process.PprofEnable, "profile", false, "Enable pprof profiler")
	rootCmd.PersistentFlags().StringVar(&process.PprofBindAddress, "profile-bind-address", "127.0.0.1:6060", "Bind address for pprof")

	rootCmd.AddCommand(cluster.Cmd)
	rootCmd.AddCommand(parse.Cmd)
	rootCmd.AddCommand(probe.Cmd)
	rootCmd.AddCommand(monitor.Cmd)
	rootCmd.AddCommand(health.Cmd)
}

func configureLogging(*cobra.Command, []string) error {
	level, err := logging.ParseLogLevel(logLevelStr)
	if err != nil {
		return LogLevelError(logLevelStr)
	}
	logging.LogLevel = level
	logging.ConfigureLoggerWithWriter(os.Stderr)
	return nil
}

func main() {
	process.DoWithLabels(map[string]string{
		"devprobe": "main",
	}, func() {
		if _, err := maxprocs.Set(); err != nil {
			_, _ = fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		if err := rootCmd.Execute(); err != nil {
			_, _ = fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	})
}
