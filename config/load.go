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
	"log/slog"

	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Environment variables recognised on top of the configuration file.
var envBindings = map[string]string{
	"environment": "ENVIRONMENT",
	"timeout":     "DEVPROBE_TIMEOUT",

	"vault.enabled":     "VAULT_ENABLED",
	"vault.address":     "VAULT_ADDR",
	"vault.token":       "VAULT_TOKEN",
	"vault.approle_dir": "VAULT_APPROLE_DIR",

	"postgres.host":     "POSTGRES_HOST",
	"postgres.port":     "POSTGRES_PORT",
	"postgres.user":     "POSTGRES_USER",
	"postgres.password": "POSTGRES_PASSWORD",
	"postgres.database": "POSTGRES_DB",

	"mysql.host":     "MYSQL_HOST",
	"mysql.port":     "MYSQL_PORT",
	"mysql.user":     "MYSQL_USER",
	"mysql.password": "MYSQL_PASSWORD",
	"mysql.database": "MYSQL_DATABASE",

	"mongodb.host":     "MONGODB_HOST",
	"mongodb.port":     "MONGODB_PORT",
	"mongodb.user":     "MONGODB_USER",
	"mongodb.password": "MONGODB_PASSWORD",
	"mongodb.database": "MONGODB_DATABASE",

	"redis.host":     "REDIS_HOST",
	"redis.port":     "REDIS_PORT",
	"redis.password": "REDIS_PASSWORD",
	"redis.nodes":    "REDIS_NODES",

	"rabbitmq.host":     "RABBITMQ_HOST",
	"rabbitmq.port":     "RABBITMQ_PORT",
	"rabbitmq.user":     "RABBITMQ_USER",
	"rabbitmq.password": "RABBITMQ_PASSWORD",

	"monitor.interval": "DEVPROBE_MONITOR_INTERVAL",
	"monitor.backends": "DEVPROBE_MONITOR_BACKENDS",
}

// Load reads the optional configuration file and the environment into a
// Config seeded with the defaults. Environment values take precedence over
// the file.
func Load(v *viper.Viper, file string) (Config, error) {
	v.SetConfigType("yaml")
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errors.Wrapf(err, "failed to read config file %s", file)
		}
	}

	setDefaults(v)
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, errors.Wrapf(err, "failed to bind %s", env)
		}
	}

	return decode(v)
}

// setDefaults registers NewConfig as the lowest priority layer. Decoding on
// top of a pre-filled struct would merge slices element by element.
func setDefaults(v *viper.Viper) {
	d := NewConfig()
	for key, value := range map[string]any{
		"environment": d.Environment,
		"timeout":     d.Timeout,

		"vault.enabled":   d.Vault.Enabled,
		"vault.address":   d.Vault.Address,
		"vault.mount":     d.Vault.Mount,
		"vault.prefix":    d.Vault.Prefix,
		"vault.cache_ttl": d.Vault.CacheTTL,

		"redis.nodes": d.Redis.Nodes,

		"monitor.interval":              d.Monitor.Interval,
		"monitor.internal_service_addr": d.Monitor.InternalServiceAddr,
		"monitor.metrics_service_addr":  d.Monitor.MetricsServiceAddr,
	} {
		v.SetDefault(key, value)
	}

	for key, s := range map[string]ServiceConfig{
		"postgres": d.Postgres,
		"mysql":    d.MySQL,
		"mongodb":  d.MongoDB,
		"redis":    d.Redis.ServiceConfig,
		"rabbitmq": d.RabbitMQ,
	} {
		v.SetDefault(key+".host", s.Host)
		v.SetDefault(key+".port", s.Port)
		v.SetDefault(key+".user", s.User)
		v.SetDefault(key+".password", s.Password)
		v.SetDefault(key+".database", s.Database)
	}
}

func decode(v *viper.Viper) (Config, error) {
	conf := Config{}
	if err := v.Unmarshal(&conf, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(), // default hook
		mapstructure.StringToSliceHookFunc(","),     // default hook
	))); err != nil {
		return conf, errors.Wrap(err, "failed to decode config")
	}

	if err := conf.Validate(); err != nil {
		return conf, errors.Wrap(err, "invalid config")
	}
	return conf, nil
}

// Watch reloads the configuration file whenever it changes and hands every
// valid new Config to onChange. Invalid revisions are logged and skipped.
func Watch(v *viper.Viper, onChange func(Config)) {
	if v.ConfigFileUsed() == "" {
		return
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		conf, err := decode(v)
		if err != nil {
			slog.Warn(
				"Ignoring invalid configuration change",
				slog.String("file", e.Name),
				slog.Any("error", err),
			)
			return
		}
		slog.Info(
			"Configuration reloaded",
			slog.String("file", e.Name),
		)
		onChange(conf)
	})
	v.WatchConfig()
}
