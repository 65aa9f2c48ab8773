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
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devstack-core/devprobe/cmd/common"
	"github.com/devstack-core/devprobe/config"
)

type fakeServer struct {
	sync.Mutex
	reloaded []config.Config
}

func (f *fakeServer) Close() error {
	return nil
}

func (f *fakeServer) Reload(conf config.Config) {
	f.Lock()
	defer f.Unlock()
	f.reloaded = append(f.reloaded, conf)
}

func (f *fakeServer) last() (config.Config, bool) {
	f.Lock()
	defer f.Unlock()
	if len(f.reloaded) == 0 {
		return config.Config{}, false
	}
	return f.reloaded[len(f.reloaded)-1], true
}

func newTestCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	overrides = Config{}
	cmd := &cobra.Command{Use: "monitor"}
	registerFlags(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("VAULT_ENABLED", "false")

	for _, test := range []struct {
		name     string
		args     []string
		internal string
		metrics  string
		interval time.Duration
		backends []string
	}{
		{"defaults", nil, "0.0.0.0:6649", "0.0.0.0:8080", 30 * time.Second, nil},
		{"internal", []string{"-i=localhost:1234"}, "localhost:1234", "0.0.0.0:8080", 30 * time.Second, nil},
		{"metrics", []string{"-m", "localhost:9090"}, "0.0.0.0:6649", "localhost:9090", 30 * time.Second, nil},
		{"interval", []string{"--interval=5s"}, "0.0.0.0:6649", "0.0.0.0:8080", 5 * time.Second, nil},
		{"backends", []string{"--backends=redis,vault"}, "0.0.0.0:6649", "0.0.0.0:8080", 30 * time.Second,
			[]string{"redis", "vault"}},
	} {
		t.Run(test.name, func(t *testing.T) {
			conf, err := LoadConfig(newTestCmd(t, test.args...))
			require.NoError(t, err)
			assert.Equal(t, test.internal, conf.Monitor.InternalServiceAddr)
			assert.Equal(t, test.metrics, conf.Monitor.MetricsServiceAddr)
			assert.Equal(t, test.interval, conf.Monitor.Interval)
			assert.Equal(t, test.backends, conf.Monitor.Backends)
		})
	}
}

func TestLoadConfig_InvalidInterval(t *testing.T) {
	t.Setenv("VAULT_ENABLED", "false")
	_, err := LoadConfig(newTestCmd(t, "--interval=-1s"))
	assert.ErrorContains(t, err, "monitor interval must be positive")
}

func TestLoadConfig_Reload(t *testing.T) {
	t.Setenv("VAULT_ENABLED", "false")

	file := filepath.Join(t.TempDir(), "devprobe.yaml")
	require.NoError(t, os.WriteFile(file, []byte("monitor:\n  interval: 10s\n"), 0o600))
	common.ConfigFile = file
	defer func() { common.ConfigFile = "" }()

	fake := &fakeServer{}
	serverLock.Lock()
	server = fake
	serverLock.Unlock()
	defer func() {
		serverLock.Lock()
		server = nil
		serverLock.Unlock()
	}()

	conf, err := LoadConfig(newTestCmd(t, "--backends=redis"))
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, conf.Monitor.Interval)

	require.NoError(t, os.WriteFile(file, []byte("monitor:\n  interval: 20s\n"), 0o600))

	assert.Eventually(t, func() bool {
		c, ok := fake.last()
		return ok && c.Monitor.Interval == 20*time.Second
	}, 10*time.Second, 50*time.Millisecond)

	c, _ := fake.last()
	assert.Equal(t, []string{"redis"}, c.Monitor.Backends)
}

func TestStartServer(t *testing.T) {
	conf := config.NewConfig()
	conf.Vault.Enabled = false
	conf.Monitor.Backends = []string{"kafka"}
	conf.Monitor.InternalServiceAddr = "localhost:0"
	conf.Monitor.MetricsServiceAddr = "localhost:0"

	s, err := startServer(conf)
	assert.Error(t, err)
	assert.Nil(t, s)
}
