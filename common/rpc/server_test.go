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


package rpc

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

func TestStartGrpcServer(t *testing.T) {
	healthServer := health.NewServer()
	healthServer.SetServingStatus("redis", grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	server, err := Default.StartGrpcServer("test", "localhost:0", func(registrar grpc.ServiceRegistrar) {
		grpc_health_v1.RegisterHealthServer(registrar, healthServer)
	})
	require.NoError(t, err)
	assert.NotZero(t, server.Port())

	conn, err := grpc.NewClient(fmt.Sprintf("localhost:%d", server.Port()),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	client := grpc_health_v1.NewHealthClient(conn)
	resp, err := client.Check(context.Background(), &grpc_health_v1.HealthCheckRequest{Service: ""})
	require.NoError(t, err)
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, resp.Status)

	resp, err = client.Check(context.Background(), &grpc_health_v1.HealthCheckRequest{Service: "redis"})
	require.NoError(t, err)
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING, resp.Status)

	assert.NoError(t, server.Close())
}

func TestStartGrpcServer_BindFailure(t *testing.T) {
	_, err := Default.StartGrpcServer("test", "256.0.0.1:0", func(grpc.ServiceRegistrar) {})
	assert.Error(t, err)
}
