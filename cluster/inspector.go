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
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/metric"

	"github.com/devstack-core/devprobe/backend"
	"github.com/devstack-core/devprobe/common/logging"
	commonmetric "github.com/devstack-core/devprobe/common/metric"
	"github.com/devstack-core/devprobe/config"
	"github.com/devstack-core/devprobe/secrets"
	"github.com/devstack-core/devprobe/topology"
)

const (
	OpNodes    = "cluster_nodes"
	OpSlots    = "cluster_slots"
	OpInfo     = "cluster_info"
	OpNodeInfo = "node_info"
)

var ErrUnknownNode = errors.New("unknown node")

// UnknownNodeError lists the accepted node names. It matches ErrUnknownNode.
type UnknownNodeError struct {
	Node  string
	Known []string
}

func (e *UnknownNodeError) Error() string {
	return "Invalid node name. Must be one of: " + strings.Join(e.Known, ", ")
}

func (*UnknownNodeError) Is(target error) bool {
	return target == ErrUnknownNode
}

// ErrUnexpectedReply is returned when a reply does not have the type of the
// issued command.
var ErrUnexpectedReply = errors.New("unexpected reply type")

// Inspector runs the cluster introspection commands and parses their replies.
type Inspector struct {
	conf     config.RedisConfig
	provider secrets.Provider
	timeout  time.Duration
	dial     Dialer
	metrics  *backend.Metrics
	log      *slog.Logger
}

func NewInspector(conf config.RedisConfig, provider secrets.Provider, timeout time.Duration) *Inspector {
	return NewInspectorWithDialer(conf, provider, timeout, DialRedis, commonmetric.Provider())
}

func NewInspectorWithDialer(conf config.RedisConfig, provider secrets.Provider, timeout time.Duration,
	dial Dialer, mp metric.MeterProvider) *Inspector {
	return &Inspector{
		conf:     conf,
		provider: provider,
		timeout:  timeout,
		dial:     dial,
		metrics:  backend.NewMetrics(mp),
		log: slog.With(
			slog.String("component", "cluster-inspector"),
		),
	}
}

// Nodes returns the parsed node listing.
func (i *Inspector) Nodes(ctx context.Context) backend.Result {
	return i.execute(ctx, OpNodes, i.conf.Address(), func(ctx context.Context, e Executor) (any, error) {
		text, err := doString(ctx, e, "cluster", "nodes")
		if err != nil {
			return nil, err
		}
		list := topology.ParseClusterNodes(text)
		if list.TotalNodes == 0 {
			return list, backend.ErrEmpty
		}
		return list, nil
	})
}

// Slots returns the slot ownership and coverage of the cluster.
func (i *Inspector) Slots(ctx context.Context) backend.Result {
	return i.execute(ctx, OpSlots, i.conf.Address(), func(ctx context.Context, e Executor) (any, error) {
		reply, err := e.Do(ctx, "cluster", "slots")
		if err != nil {
			return nil, errors.Wrap(err, "cluster slots failed")
		}
		var elements []any
		switch r := reply.(type) {
		case []any:
			elements = r
		case nil:
		default:
			return nil, errors.Wrapf(ErrUnexpectedReply, "cluster slots returned %T", reply)
		}

		distribution := topology.ParseClusterSlots(elements)
		if len(distribution.Ranges) == 0 {
			return distribution, backend.ErrEmpty
		}
		return distribution, nil
	})
}

// Info returns the cluster wide state counters.
func (i *Inspector) Info(ctx context.Context) backend.Result {
	return i.execute(ctx, OpInfo, i.conf.Address(), func(ctx context.Context, e Executor) (any, error) {
		text, err := doString(ctx, e, "cluster", "info")
		if err != nil {
			return nil, err
		}
		return topology.ParseClusterInfo(text), nil
	})
}

// NodeInfo returns the diagnostic sections of one configured node. Names that
// are not configured are rejected with ErrUnknownNode before any connection
// is attempted.
func (i *Inspector) NodeInfo(ctx context.Context, node string) (backend.Result, error) {
	if err := i.ValidateNode(node); err != nil {
		return backend.Result{}, err
	}

	return i.execute(ctx, OpNodeInfo, i.conf.NodeAddress(node), func(ctx context.Context, e Executor) (any, error) {
		text, err := doString(ctx, e, "info")
		if err != nil {
			return nil, err
		}
		return topology.ParseNodeInfo(node, text), nil
	}), nil
}

func (i *Inspector) ValidateNode(node string) error {
	if slices.Contains(i.conf.Nodes, node) {
		return nil
	}
	i.log.Warn(
		"Rejected node info request",
		slog.String("node", logging.Sanitize(node)),
	)
	return &UnknownNodeError{Node: node, Known: i.KnownNodes()}
}

func (i *Inspector) KnownNodes() []string {
	return slices.Clone(i.conf.Nodes)
}

func (i *Inspector) execute(ctx context.Context, op, addr string,
	run func(ctx context.Context, e Executor) (any, error)) backend.Result {
	if i.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}

	probe := &backend.Probe[Executor]{
		Name:   op,
		Secret: backend.RedisSecretName(i.conf),
		Connect: func(ctx context.Context, secret secrets.Bundle) (Executor, error) {
			return i.dial(ctx, addr, secret)
		},
		Run: run,
		Close: func(e Executor) error {
			return e.Close()
		},
	}

	res := probe.Execute(ctx, i.provider)
	i.metrics.Record(ctx, res)
	if !res.Kind.Healthy() {
		i.log.Warn(
			"Cluster command failed",
			slog.String("op", op),
			slog.String("addr", addr),
			slog.String("kind", string(res.Kind)),
			slog.Any("error", res.Err),
		)
	}
	return res
}

func doString(ctx context.Context, e Executor, args ...any) (string, error) {
	command := commandName(args)
	reply, err := e.Do(ctx, args...)
	if err != nil {
		return "", errors.Wrapf(err, "%s failed", command)
	}
	switch r := reply.(type) {
	case string:
		return r, nil
	case []byte:
		return string(r), nil
	default:
		return "", errors.Wrapf(ErrUnexpectedReply, "%s returned %T", command, reply)
	}
}

func commandName(args []any) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = strings.ToUpper(fmt.Sprint(a))
	}
	return strings.Join(parts, " ")
}
