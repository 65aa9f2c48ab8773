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
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/devstack-core/devprobe/config"
	"github.com/devstack-core/devprobe/secrets"
)

// Default returns a set with every supported backend. The vault probe is only
// registered when the provider reports health.
func Default(conf *config.Config, provider secrets.Provider, mp metric.MeterProvider) *Set {
	s := NewSetWithMeterProvider(provider, conf.Timeout, mp)
	RegisterDefaults(s, conf, provider)
	return s
}

func RegisterDefaults(s *Set, conf *config.Config, provider secrets.Provider) {
	s.Register(NewRedisProbe(conf.Redis))
	s.Register(NewPostgresProbe(conf.Postgres))
	s.Register(NewMySQLProbe(conf.MySQL))
	s.Register(NewMongoDBProbe(conf.MongoDB))
	s.Register(NewRabbitMQProbe(conf.RabbitMQ))
	if checker, ok := provider.(secrets.HealthChecker); ok {
		s.Register(NewVaultProbe(checker))
	}
}

// Timeout returns the per-probe timeout of the set.
func (s *Set) Timeout() time.Duration {
	s.RLock()
	defer s.RUnlock()
	return s.timeout
}
