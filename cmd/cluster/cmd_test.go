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
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devstack-core/devprobe/backend"
	"github.com/devstack-core/devprobe/cluster"
	"github.com/devstack-core/devprobe/config"
	"github.com/devstack-core/devprobe/secrets"
	"github.com/devstack-core/devprobe/topology"
)

type fakeInspector struct {
	conf   config.Config
	result backend.Result
	nodes  []string
}

func (f *fakeInspector) Nodes(context.Context) backend.Result {
	return f.result
}

func (f *fakeInspector) Slots(context.Context) backend.Result {
	return f.result
}

func (f *fakeInspector) Info(context.Context) backend.Result {
	return f.result
}

func (f *fakeInspector) NodeInfo(_ context.Context, node string) (backend.Result, error) {
	for _, n := range f.conf.Redis.Nodes {
		if n == node {
			f.nodes = append(f.nodes, node)
			return f.result, nil
		}
	}
	return backend.Result{}, &cluster.UnknownNodeError{Node: node, Known: f.conf.Redis.Nodes}
}

func run(t *testing.T, result backend.Result, args ...string) (*fakeInspector, string, error) {
	t.Helper()
	t.Setenv("VAULT_ENABLED", "false")
	t.Setenv("REDIS_NODES", "node-a,node-b")

	fake := &fakeInspector{result: result}
	newInspector = func(conf config.Config, provider secrets.Provider) Inspector {
		fake.conf = conf
		assert.IsType(t, &secrets.StaticProvider{}, provider)
		return fake
	}
	output = "json"

	out := &bytes.Buffer{}
	Cmd.SetOut(out)
	Cmd.SetErr(&bytes.Buffer{})
	Cmd.SetArgs(args)
	err := Cmd.Execute()
	return fake, out.String(), err
}

func TestClusterCmd(t *testing.T) {
	ok := backend.Result{
		Backend: cluster.OpInfo,
		Kind:    backend.KindOK,
		Data:    topology.ParseClusterInfo("cluster_state:ok\n"),
	}

	for _, args := range [][]string{{"nodes"}, {"slots"}, {"info"}, {"node-info", "node-b"}} {
		t.Run(args[0], func(t *testing.T) {
			_, out, err := run(t, ok, args...)
			require.NoError(t, err)

			var res map[string]any
			require.NoError(t, json.Unmarshal([]byte(out), &res))
			assert.Equal(t, "ok", res["status"])
			assert.Equal(t, map[string]any{"cluster_info": map[string]any{"cluster_state": "ok"}}, res["data"])
		})
	}
}

func TestClusterCmd_Unhealthy(t *testing.T) {
	failed := backend.Result{
		Backend: cluster.OpNodes,
		Kind:    backend.KindConnectFailed,
		Err:     errors.New("connection refused"),
	}

	_, out, err := run(t, failed, "nodes", "-o", "text")
	assert.EqualError(t, err, "cluster_nodes: connect_failed")
	assert.Equal(t, "cluster_nodes: connect_failed (0s)\n  error: connection refused\n", out)
}

func TestClusterCmd_UnknownNode(t *testing.T) {
	fake, out, err := run(t, backend.Result{}, "node-info", "redis-1")
	assert.ErrorIs(t, err, cluster.ErrUnknownNode)
	assert.EqualError(t, err, "Invalid node name. Must be one of: node-a, node-b")
	assert.Empty(t, out)
	assert.Empty(t, fake.nodes)
}

func TestClusterCmd_Args(t *testing.T) {
	_, _, err := run(t, backend.Result{}, "node-info")
	assert.Error(t, err)

	_, _, err = run(t, backend.Result{}, "nodes", "extra")
	assert.Error(t, err)
}
