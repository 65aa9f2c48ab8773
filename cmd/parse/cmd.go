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


package parse

import (
	"bytes"
	"encoding/json"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/devstack-core/devprobe/cmd/common"
	"github.com/devstack-core/devprobe/cmd/flag"
	"github.com/devstack-core/devprobe/topology"
)

var (
	output string
	node   string

	Cmd = &cobra.Command{
		Use:   "parse",
		Short: "Parse captured cluster replies",
		Long: `Parse a reply captured from the cache cluster, read from a file or from the
standard input, and print the parsed result`,
	}

	nodesCmd = &cobra.Command{
		Use:   "nodes [file]",
		Short: "Parse a CLUSTER NODES reply",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return exec(cmd, args, func(b []byte) (any, error) {
				return topology.ParseClusterNodes(string(b)), nil
			})
		},
	}

	slotsCmd = &cobra.Command{
		Use:   "slots [file]",
		Short: "Parse a CLUSTER SLOTS reply encoded as a JSON array",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return exec(cmd, args, func(b []byte) (any, error) {
				reply, err := DecodeArrayReply(b)
				if err != nil {
					return nil, err
				}
				return topology.ParseClusterSlots(reply), nil
			})
		},
	}

	infoCmd = &cobra.Command{
		Use:   "info [file]",
		Short: "Parse a CLUSTER INFO reply",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return exec(cmd, args, func(b []byte) (any, error) {
				return topology.ParseClusterInfo(string(b)), nil
			})
		},
	}

	nodeInfoCmd = &cobra.Command{
		Use:   "node-info [file]",
		Short: "Parse an INFO reply of one node",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return exec(cmd, args, func(b []byte) (any, error) {
				return topology.ParseNodeInfo(node, string(b)), nil
			})
		},
	}
)

func init() {
	flag.Output(Cmd, &output)
	nodeInfoCmd.Flags().StringVar(&node, "node", "", "Name of the node the reply was captured from")

	Cmd.AddCommand(nodesCmd)
	Cmd.AddCommand(slotsCmd)
	Cmd.AddCommand(infoCmd)
	Cmd.AddCommand(nodeInfoCmd)
	Cmd.SilenceUsage = true
}

func exec(cmd *cobra.Command, args []string, parse func([]byte) (any, error)) error {
	format, err := common.ParseFormat(output)
	if err != nil {
		return err
	}

	b, err := readInput(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	value, err := parse(b)
	if err != nil {
		return err
	}
	return common.WriteOutput(cmd.OutOrStdout(), format, value)
}

func readInput(stdin io.Reader, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		b, err := io.ReadAll(stdin)
		return b, errors.Wrap(err, "failed to read standard input")
	}
	b, err := os.ReadFile(args[0])
	return b, errors.Wrapf(err, "failed to read %s", args[0])
}

// DecodeArrayReply decodes a JSON rendering of an array reply. Integral
// numbers become int64, other numbers float64.
func DecodeArrayReply(b []byte) ([]any, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	var reply []any
	if err := dec.Decode(&reply); err != nil {
		return nil, errors.Wrap(err, "reply must be a JSON array")
	}
	return convertNumbers(reply).([]any), nil
}

func convertNumbers(value any) any {
	switch v := value.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		f, _ := v.Float64()
		return f
	case []any:
		for i := range v {
			v[i] = convertNumbers(v[i])
		}
		return v
	default:
		return v
	}
}
