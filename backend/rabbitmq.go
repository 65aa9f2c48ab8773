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
	"fmt"
	"net/url"
	"time"

	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/devstack-core/devprobe/config"
	"github.com/devstack-core/devprobe/secrets"
)

const RabbitMQ = "rabbitmq"

type BrokerInfo struct {
	Host     string `json:"host" yaml:"host"`
	Product  string `json:"product" yaml:"product"`
	Version  string `json:"version" yaml:"version"`
	Channels bool   `json:"channel_opened" yaml:"channel_opened"`
}

func AMQPURL(conf config.ServiceConfig, secret secrets.Bundle) string {
	u := url.URL{
		Scheme: "amqp",
		User:   url.UserPassword(secret.String("user"), secret.String("password")),
		Host:   conf.Address(),
		Path:   "/",
	}
	return u.String()
}

// NewRabbitMQProbe dials the broker and opens a channel.
func NewRabbitMQProbe(conf config.ServiceConfig) *Probe[*amqp.Connection] {
	return &Probe[*amqp.Connection]{
		Name:   RabbitMQ,
		Secret: RabbitMQ,
		Connect: func(ctx context.Context, secret secrets.Bundle) (*amqp.Connection, error) {
			cfg := amqp.Config{
				Properties: amqp.NewConnectionProperties(),
			}
			cfg.Properties.SetClientConnectionName("devprobe")
			if deadline, ok := ctx.Deadline(); ok {
				cfg.Dial = amqp.DefaultDial(time.Until(deadline))
			}

			conn, err := amqp.DialConfig(AMQPURL(conf, secret), cfg)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to connect to rabbitmq at %s", conf.Address())
			}
			return conn, nil
		},
		Run: func(_ context.Context, conn *amqp.Connection) (any, error) {
			ch, err := conn.Channel()
			if err != nil {
				return nil, errors.Wrap(err, "failed to open channel")
			}
			if err := ch.Close(); err != nil {
				return nil, errors.Wrap(err, "failed to close channel")
			}

			return BrokerInfo{
				Host:     conf.Host,
				Product:  tableString(conn.Properties, "product"),
				Version:  tableString(conn.Properties, "version"),
				Channels: true,
			}, nil
		},
		Close: func(conn *amqp.Connection) error {
			return conn.Close()
		},
	}
}

func tableString(t amqp.Table, key string) string {
	if v, ok := t[key]; ok && v != nil {
		return fmt.Sprint(v)
	}
	return ""
}
