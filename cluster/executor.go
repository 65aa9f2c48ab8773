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

	"github.com/redis/go-redis/v9"

	"github.com/devstack-core/devprobe/backend"
	"github.com/devstack-core/devprobe/secrets"
)

// Executor sends raw commands over one cache connection. Replies are decoded
// into string, int64 and []any values.
type Executor interface {
	io.Closer

	Do(ctx context.Context, args ...any) (any, error)
}

// Dialer opens an Executor to addr.
type Dialer func(ctx context.Context, addr string, secret secrets.Bundle) (Executor, error)

type redisExecutor struct {
	client *redis.Client
}

func (e *redisExecutor) Do(ctx context.Context, args ...any) (any, error) {
	return e.client.Do(ctx, args...).Result()
}

func (e *redisExecutor) Close() error {
	return e.client.Close()
}

// DialRedis is the Dialer backed by go-redis.
func DialRedis(ctx context.Context, addr string, secret secrets.Bundle) (Executor, error) {
	client, err := backend.DialRedis(ctx, addr, secret)
	if err != nil {
		return nil, err
	}
	return &redisExecutor{client: client}, nil
}
