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


package cluster

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/devstack-core/devprobe/backend"
	"github.com/devstack-core/devprobe/cluster"
	"github.com/devstack-core/devprobe/cmd/common"
	"github.com/devstack-core/devprobe/cmd/flag"
	"github.com/devstack-core/devprobe/config"
	"github.com/devstack-core/devprobe/secrets"
)

// Inspector is the subset of cluster.Inspector used by the commands.
type Inspector interface {
	Nodes(ctx context.Context) backend.Result
	Slots(ctx context.Context) backend.Result
	Info(ctx context.Context) backend.Result
	NodeInfo(ctx context.Context, node string) (backend.Result, error)
}

var (
	output string

	newInspector = func(conf config.Config, provider secrets.Provider) Inspector {
		return cluster.NewInspector(conf.Redis, provider, conf.Timeout)
	}

	Cmd = &cobra.Command{
		Use:   "cluster",
		Short: "Inspect the cache cluster",
		Long:  `Run the cluster introspection commands against the cache cluster and print the parsed replies`,
	}

	nodesCmd = &cobra.Command{
		Use:   "nodes",
		Short: "List the cluster nodes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return exec(cmd, func(ctx context.Context, i Inspector) (backend.Result, error) {
				return i.Nodes(ctx), nil
			})
		},
	}

	slotsCmd = &cobra.Command{
		Use:   "slots",
		Short: "Show the slot distribution and coverage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return exec(cmd, func(ctx context.Context, i Inspector) (backend.Result, error) {
				return i.Slots(ctx), nil
			})
		},
	}

	infoCmd = &cobra.Command{
		Use:   "info",
		Short: "Show the cluster state counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return exec(cmd, func(ctx context.Context, i Inspector) (backend.Result, error) {
				return i.Info(ctx), nil
			})
		},
	}

	nodeInfoCmd = &cobra.Command{
		Use:   "node-info <node>",
		Short: "Show the diagnostic sections of one node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return exec(cmd, func(ctx context.Context, i Inspector) (backend.Result, error) {
				return i.NodeInfo(ctx, args[0])
			})
		},
	}
)

func init() {
	flag.Output(Cmd, &output)

	Cmd.AddCommand(nodesCmd)
	Cmd.AddCommand(slotsCmd)
	Cmd.AddCommand(infoCmd)
	Cmd.AddCommand(nodeInfoCmd)
	Cmd.SilenceUsage = true
}

func exec(cmd *cobra.Command, op func(context.Context, Inspector) (backend.Result, error)) error {
	format, err := common.ParseFormat(output)
	if err != nil {
		return err
	}

	conf, _, err := common.LoadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	provider, closer, err := secrets.FromConfig(ctx, &conf)
	if err != nil {
		return err
	}
	defer func() {
		_ = closer.Close()
	}()

	res, err := op(ctx, newInspector(conf, provider))
	if err != nil {
		return err
	}
	return writeResult(cmd.OutOrStdout(), format, res)
}

// writeResult prints the result and turns an unhealthy outcome into an error
// so that the exit code reflects it.
func writeResult(out io.Writer, format common.Format, res backend.Result) error {
	if err := common.WriteOutput(out, format, res); err != nil {
		return err
	}
	if !res.Kind.Healthy() {
		return errors.Errorf("%s: %s", res.Backend, res.Kind)
	}
	return nil
}
