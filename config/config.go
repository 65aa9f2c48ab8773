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
	"fmt"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

const (
	DefaultVaultMount  = "secret"
	DefaultVaultPrefix = "reference-api"

	DefaultInternalPort = 6649
	DefaultMetricsPort  = 8080

	DefaultInternalServiceAddr = "0.0.0.0:6649"
	DefaultMetricsServiceAddr  = "0.0.0.0:8080"
)

// ServiceConfig locates one backend service. User, Password and Database are
// only used when credentials are not read from the secret store.
type ServiceConfig struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	User     string `mapstructure:"user" yaml:"user"`
	Password string `mapstructure:"password" yaml:"password"`
	Database string `mapstructure:"database" yaml:"database"`
}

func (s ServiceConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Secret is the credential bundle equivalent of the static fields.
func (s ServiceConfig) Secret() map[string]string {
	return map[string]string{
		"user":     s.User,
		"password": s.Password,
		"database": s.Database,
	}
}

type RedisConfig struct {
	ServiceConfig `mapstructure:",squash" yaml:",inline"`

	// Nodes are the host names accepted for per-node diagnostics.
	Nodes []string `mapstructure:"nodes" yaml:"nodes"`
}

// NodeAddress is the address of one of the cluster nodes, reached on the
// shared port.
func (r RedisConfig) NodeAddress(node string) string {
	return node + ":" + strconv.Itoa(r.Port)
}

type VaultConfig struct {
	Enabled    bool          `mapstructure:"enabled" yaml:"enabled"`
	Address    string        `mapstructure:"address" yaml:"address"`
	Token      string        `mapstructure:"token" yaml:"token"`
	AppRoleDir string        `mapstructure:"approle_dir" yaml:"approle_dir"`
	Mount      string        `mapstructure:"mount" yaml:"mount"`
	Prefix     string        `mapstructure:"prefix" yaml:"prefix"`
	CacheTTL   time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`
}

type MonitorConfig struct {
	Interval            time.Duration `mapstructure:"interval" yaml:"interval"`
	Backends            []string      `mapstructure:"backends" yaml:"backends"`
	InternalServiceAddr string        `mapstructure:"internal_service_addr" yaml:"internal_service_addr"`
	MetricsServiceAddr  string        `mapstructure:"metrics_service_addr" yaml:"metrics_service_addr"`
}

type Config struct {
	Environment string        `mapstructure:"environment" yaml:"environment"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`

	Vault    VaultConfig   `mapstructure:"vault" yaml:"vault"`
	Postgres ServiceConfig `mapstructure:"postgres" yaml:"postgres"`
	MySQL    ServiceConfig `mapstructure:"mysql" yaml:"mysql"`
	MongoDB  ServiceConfig `mapstructure:"mongodb" yaml:"mongodb"`
	Redis    RedisConfig   `mapstructure:"redis" yaml:"redis"`
	RabbitMQ ServiceConfig `mapstructure:"rabbitmq" yaml:"rabbitmq"`

	Monitor MonitorConfig `mapstructure:"monitor" yaml:"monitor"`
}

func NewConfig() Config {
	return Config{
		Environment: "development",
		Timeout:     5 * time.Second,
		Vault: VaultConfig{
			Enabled:  true,
			Address:  "http://vault:8200",
			Mount:    DefaultVaultMount,
			Prefix:   DefaultVaultPrefix,
			CacheTTL: time.Minute,
		},
		Postgres: ServiceConfig{Host: "postgres", Port: 5432, User: "appuser", Database: "appdb"},
		MySQL:    ServiceConfig{Host: "mysql", Port: 3306, User: "appuser", Database: "appdb"},
		MongoDB:  ServiceConfig{Host: "mongodb", Port: 27017, User: "appuser", Database: "appdb"},
		Redis: RedisConfig{
			ServiceConfig: ServiceConfig{Host: "redis-1", Port: 6379},
			Nodes:         []string{"redis-1", "redis-2", "redis-3"},
		},
		RabbitMQ: ServiceConfig{Host: "rabbitmq", Port: 5672, User: "guest"},
		Monitor: MonitorConfig{
			Interval:            30 * time.Second,
			InternalServiceAddr: DefaultInternalServiceAddr,
			MetricsServiceAddr:  DefaultMetricsServiceAddr,
		},
	}
}

// StaticSecrets returns the credential bundles derived from the configuration,
// keyed by the logical secret name.
func (c *Config) StaticSecrets() map[string]map[string]string {
	secrets := map[string]map[string]string{
		"postgres": c.Postgres.Secret(),
		"mysql":    c.MySQL.Secret(),
		"mongodb":  c.MongoDB.Secret(),
		"rabbitmq": c.RabbitMQ.Secret(),
	}
	for _, node := range c.Redis.Nodes {
		secrets[node] = c.Redis.Secret()
	}
	return secrets
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return errors.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.Monitor.Interval <= 0 {
		return errors.Errorf("monitor interval must be positive, got %s", c.Monitor.Interval)
	}
	if len(c.Redis.Nodes) == 0 {
		return errors.New("at least one redis node must be configured")
	}
	if c.Vault.Enabled && c.Vault.Address == "" {
		return errors.New("vault address must be set when vault is enabled")
	}
	return nil
}
