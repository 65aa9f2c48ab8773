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


package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestLoad_Defaults(t *testing.T) {
	conf, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, NewConfig(), conf)
	assert.Equal(t, "http://vault:8200", conf.Vault.Address)
	assert.Equal(t, "postgres:5432", conf.Postgres.Address())
	assert.Equal(t, "mysql:3306", conf.MySQL.Address())
	assert.Equal(t, "mongodb:27017", conf.MongoDB.Address())
	assert.Equal(t, "redis-1:6379", conf.Redis.Address())
	assert.Equal(t, "rabbitmq:5672", conf.RabbitMQ.Address())
	assert.Equal(t, []string{"redis-1", "redis-2", "redis-3"}, conf.Redis.Nodes)
	assert.Equal(t, "redis-2:6379", conf.Redis.NodeAddress("redis-2"))
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("VAULT_ADDR", "http://127.0.0.1:8200")
	t.Setenv("VAULT_TOKEN", "root")
	t.Setenv("POSTGRES_PORT", "15432")
	t.Setenv("MYSQL_DATABASE", "shop")
	t.Setenv("REDIS_NODES", "cache-a,cache-b")
	t.Setenv("DEVPROBE_MONITOR_INTERVAL", "2s")
	t.Setenv("VAULT_ENABLED", "false")

	conf, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:8200", conf.Vault.Address)
	assert.Equal(t, "root", conf.Vault.Token)
	assert.False(t, conf.Vault.Enabled)
	assert.Equal(t, 15432, conf.Postgres.Port)
	assert.Equal(t, "postgres", conf.Postgres.Host)
	assert.Equal(t, "shop", conf.MySQL.Database)
	assert.Equal(t, []string{"cache-a", "cache-b"}, conf.Redis.Nodes)
	assert.Equal(t, 2*time.Second, conf.Monitor.Interval)
}

func TestLoad_File(t *testing.T) {
	file := filepath.Join(t.TempDir(), "devprobe.yaml")
	writeFile(t, file, `
timeout: 1s
redis:
  host: cache
  port: 7000
  nodes: [cache]
monitor:
  interval: 10s
  backends: [redis, vault]
`)
	t.Setenv("REDIS_PORT", "7001")

	conf, err := Load(viper.New(), file)
	require.NoError(t, err)

	assert.Equal(t, time.Second, conf.Timeout)
	assert.Equal(t, "cache:7001", conf.Redis.Address())
	assert.Equal(t, []string{"cache"}, conf.Redis.Nodes)
	assert.Equal(t, []string{"redis", "vault"}, conf.Monitor.Backends)
	assert.Equal(t, 10*time.Second, conf.Monitor.Interval)
	// untouched sections keep their defaults
	assert.Equal(t, "mysql:3306", conf.MySQL.Address())
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(viper.New(), filepath.Join(dir, "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")

	file := filepath.Join(dir, "bad.yaml")
	writeFile(t, file, "postgres:\n  port: not-a-number\n")
	_, err = Load(viper.New(), file)
	assert.ErrorContains(t, err, "failed to decode config")

	file = filepath.Join(dir, "invalid.yaml")
	writeFile(t, file, "monitor:\n  interval: 0s\n")
	_, err = Load(viper.New(), file)
	assert.ErrorContains(t, err, "monitor interval must be positive")
}

func TestValidate(t *testing.T) {
	for _, test := range []struct {
		name   string
		modify func(*Config)
		err    string
	}{
		{"default", func(*Config) {}, ""},
		{"timeout", func(c *Config) { c.Timeout = 0 }, "timeout must be positive"},
		{"no nodes", func(c *Config) { c.Redis.Nodes = nil }, "at least one redis node"},
		{"vault address", func(c *Config) { c.Vault.Address = "" }, "vault address must be set"},
		{"vault disabled", func(c *Config) { c.Vault.Enabled = false; c.Vault.Address = "" }, ""},
	} {
		t.Run(test.name, func(t *testing.T) {
			conf := NewConfig()
			test.modify(&conf)
			err := conf.Validate()
			if test.err == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, test.err)
			}
		})
	}
}

func TestStaticSecrets(t *testing.T) {
	conf := NewConfig()
	conf.Postgres.Password = "pg-pass"
	conf.Redis.Password = "redis-pass"

	secrets := conf.StaticSecrets()
	assert.Equal(t, map[string]string{"user": "appuser", "password": "pg-pass", "database": "appdb"}, secrets["postgres"])
	for _, node := range conf.Redis.Nodes {
		assert.Equal(t, "redis-pass", secrets[node]["password"])
	}
	assert.Equal(t, "guest", secrets["rabbitmq"]["user"])
}

func TestWatch(t *testing.T) {
	file := filepath.Join(t.TempDir(), "devprobe.yaml")
	writeFile(t, file, "monitor:\n  interval: 10s\n")

	v := viper.New()
	_, err := Load(v, file)
	require.NoError(t, err)

	var (
		lock     sync.Mutex
		reloaded []time.Duration
	)
	Watch(v, func(conf Config) {
		lock.Lock()
		defer lock.Unlock()
		reloaded = append(reloaded, conf.Monitor.Interval)
	})

	writeFile(t, file, "monitor:\n  interval: 0s\n")
	writeFile(t, file, "monitor:\n  interval: 3s\n")

	assert.Eventually(t, func() bool {
		lock.Lock()
		defer lock.Unlock()
		return len(reloaded) > 0 && reloaded[len(reloaded)-1] == 3*time.Second
	}, 10*time.Second, 50*time.Millisecond)

	lock.Lock()
	defer lock.Unlock()
	assert.NotContains(t, reloaded, time.Duration(0))
}

func TestWatch_NoFile(t *testing.T) {
	v := viper.New()
	_, err := Load(v, "")
	require.NoError(t, err)

	Watch(v, func(Config) {
		assert.Fail(t, "unexpected reload")
	})
}
