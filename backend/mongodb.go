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
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/devstack-core/devprobe/config"
	"github.com/devstack-core/devprobe/secrets"
)

const (
	MongoDB = "mongodb"

	mongoDisconnectTimeout = 5 * time.Second
)

type MongoCollections struct {
	Database    string   `json:"database" yaml:"database"`
	Host        string   `json:"host" yaml:"host"`
	Collections []string `json:"collections" yaml:"collections"`
}

func MongoClientOptions(conf config.ServiceConfig, secret secrets.Bundle) *options.ClientOptions {
	opts := options.Client().
		ApplyURI("mongodb://" + conf.Address()).
		SetAppName("devprobe")
	if user := secret.String("user"); user != "" {
		opts.SetAuth(options.Credential{
			Username: user,
			Password: secret.String("password"),
		})
	}
	return opts
}

// NewMongoDBProbe lists the collections of the configured database. A
// database without collections is reported as empty.
func NewMongoDBProbe(conf config.ServiceConfig) *Probe[*mongo.Client] {
	return &Probe[*mongo.Client]{
		Name:   MongoDB,
		Secret: MongoDB,
		Connect: func(ctx context.Context, secret secrets.Bundle) (*mongo.Client, error) {
			client, err := mongo.Connect(ctx, MongoClientOptions(conf, secret))
			if err != nil {
				return nil, errors.Wrap(err, "failed to create mongodb client")
			}
			if err := client.Ping(ctx, readpref.Primary()); err != nil {
				_ = client.Disconnect(context.Background())
				return nil, errors.Wrapf(err, "failed to connect to mongodb at %s", conf.Address())
			}
			return client, nil
		},
		Run: func(ctx context.Context, client *mongo.Client) (any, error) {
			database := conf.Database
			names, err := client.Database(database).ListCollectionNames(ctx, bson.D{})
			if err != nil {
				return nil, errors.Wrap(err, "failed to list collections")
			}
			res := MongoCollections{Database: database, Host: conf.Host, Collections: names}
			if len(names) == 0 {
				res.Collections = []string{}
				return res, ErrEmpty
			}
			return res, nil
		},
		Close: func(client *mongo.Client) error {
			ctx, cancel := context.WithTimeout(context.Background(), mongoDisconnectTimeout)
			defer cancel()
			return client.Disconnect(ctx)
		},
	}
}
