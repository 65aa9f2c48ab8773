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

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/devstack-core/devprobe/config"
	"github.com/devstack-core/devprobe/secrets"
	"github.com/devstack-core/devprobe/topology"
)

const (
	Redis = "redis"

	clusterStateOK = "ok"
)

// RedisStatus is the reply of the redis probe.
type RedisStatus struct {
	Host         string `json:"host" yaml:"host"`
	Ping         string `json:"ping" yaml:"ping"`
	ClusterState string `json:"cluster_state" yaml:"cluster_state"`
}

// RedisOptions returns client options for addr. Replies are decoded with
// RESP2 so that generic commands yield string, int64 and []any values.
func RedisOptions(addr string, secret secrets.Bundle) *redis.Options {
	return &redis.Options{
		Addr:             addr,
		Password:         secret.String("password"),
		Protocol:         2,
		MaxRetries:       -1,
		DisableIndentity: true,
	}
}

// NewRedisProbe pings the first configured node and checks the cluster state.
// The credentials are stored under the name of that node.
func NewRedisProbe(conf config.RedisConfig) *Probe[*redis.Client] {
	return &Probe[*redis.Client]{
		Name:   Redis,
		Secret: RedisSecretName(conf),
		Connect: func(ctx context.Context, secret secrets.Bundle) (*redis.Client, error) {
			return DialRedis(ctx, conf.Address(), secret)
		},
		Run: func(ctx context.Context, client *redis.Client) (any, error) {
			pong, err := client.Ping(ctx).Result()
			if err != nil {
				return nil, errors.Wrap(err, "ping failed")
			}
			text, err := client.ClusterInfo(ctx).Result()
			if err != nil {
				return nil, errors.Wrap(err, "failed to get cluster info")
			}

			info := topology.ParseClusterInfo(text)
			status := RedisStatus{Host: conf.Host, Ping: pong, ClusterState: info.State()}
			if status.ClusterState != clusterStateOK {
				return nil, errors.Errorf("cluster state is %q", status.ClusterState)
			}
			return status, nil
		},
		Close: func(client *redis.Client) error {
			return client.Close()
		},
	}
}

// RedisSecretName is the secret holding the cluster password.
func RedisSecretName(conf config.RedisConfig) string {
	if len(conf.Nodes) > 0 {
		return conf.Nodes[0]
	}
	return conf.Host
}

// DialRedis opens a client and verifies the connection.
func DialRedis(ctx context.Context, addr string, secret secrets.Bundle) (*redis.Client, error) {
	client := redis.NewClient(RedisOptions(addr, secret))
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "failed to connect to redis at %s", addr)
	}
	return client, nil
}
